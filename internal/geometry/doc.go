// Package geometry owns the detector description used by particle-flow
// reconstruction.
//
// Responsibilities: holding the as-built geometry of the calorimetric
// detector (canonical barrel/endcap sections, additional sub-detectors,
// tracker and coil extents), answering pseudolayer and magnetic field
// queries through pluggable calculators, testing positions against known
// gap regions, and the polygon-radius maths shared by all of the above.
// Key types: Geometry, SubDetectorParameters, Gap, AngleVector.
//
// Lifecycle: a Geometry is created uninitialised, populated once by
// Initialize, then queried read-only from any number of goroutines.
// Reset (or ResetInstance for the process-wide instance) returns it to the
// uninitialised state between independent runs.
//
// Lengths are in mm, angles in radians, fields in Tesla.
package geometry
