package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const twoPi = 2 * math.Pi

// circleSegments is the number of chords used when an unfaceted (order 0)
// outline is drawn as a polygon.
const circleSegments = 180

// AnglePair holds the sine and cosine of one polygon face-normal angle.
type AnglePair struct {
	Sin float64
	Cos float64
}

// AngleVector holds one AnglePair per face of a regular polygon, in face
// order starting at phi0. A filled AngleVector is read-only and may be shared.
type AngleVector []AnglePair

// anglePair returns the face-normal sine/cosine for face k of an n-gon.
// Both the direct and the cached radius paths go through this function so
// that their results are bit-identical.
func anglePair(k int, symmetryOrder uint, phi0 float64) AnglePair {
	phi := phi0 + float64(k)*twoPi/float64(symmetryOrder)
	s, c := math.Sincos(phi)
	return AnglePair{Sin: s, Cos: c}
}

// projection is the distance of (x, y) along a face normal. The explicit
// conversions stop the compiler fusing the expression differently per call site.
func projection(x, y float64, p AnglePair) float64 {
	return float64(x*p.Cos) + float64(y*p.Sin)
}

// FillAngleVector fills angles with the face-normal sine/cosine pairs of a
// regular polygon with the given symmetry order whose first face normal
// points at phi0. The backing array of angles is reused when large enough.
func FillAngleVector(symmetryOrder uint, phi0 float64, angles AngleVector) (AngleVector, error) {
	if symmetryOrder < 3 {
		return angles[:0], fmt.Errorf("%w: polygon symmetry order %d < 3", ErrInvalidParameter, symmetryOrder)
	}
	angles = angles[:0]
	for k := 0; k < int(symmetryOrder); k++ {
		angles = append(angles, anglePair(k, symmetryOrder, phi0))
	}
	return angles, nil
}

// NewAngleVector is FillAngleVector into a freshly allocated vector.
func NewAngleVector(symmetryOrder uint, phi0 float64) (AngleVector, error) {
	return FillAngleVector(symmetryOrder, phi0, make(AngleVector, 0, symmetryOrder))
}

// SymmetryOrder returns the number of polygon faces described.
func (av AngleVector) SymmetryOrder() uint {
	return uint(len(av))
}

// GetMaximumRadius returns the polygon radius of (x, y): the largest
// projection of the point onto the face normals of a regular polygon with
// the given symmetry order and face offset phi0. A point lying on the
// boundary of the polygon with apothem R has polygon radius R.
//
// Symmetry orders below 3 describe no polygon and yield the Euclidean radius.
func GetMaximumRadius(symmetryOrder uint, phi0, x, y float64) float64 {
	if symmetryOrder <= 2 {
		return math.Hypot(x, y)
	}

	maxRadius := math.Inf(-1)
	for k := 0; k < int(symmetryOrder); k++ {
		if r := projection(x, y, anglePair(k, symmetryOrder, phi0)); r > maxRadius {
			maxRadius = r
		}
	}
	return maxRadius
}

// GetMaximumRadiusFromAngles is GetMaximumRadius using precomputed face
// angles. For a vector filled by FillAngleVector(n, phi0) it returns exactly
// GetMaximumRadius(n, phi0, x, y).
func GetMaximumRadiusFromAngles(angles AngleVector, x, y float64) (float64, error) {
	if len(angles) < 3 {
		return 0, fmt.Errorf("%w: angle vector has %d entries, need at least 3", ErrInvalidParameter, len(angles))
	}

	maxRadius := math.Inf(-1)
	for _, p := range angles {
		if r := projection(x, y, p); r > maxRadius {
			maxRadius = r
		}
	}
	return maxRadius, nil
}

// PolygonVertices returns the corners of the regular polygon with the given
// symmetry order, face offset phi0 and apothem radius, counter-clockwise.
// Symmetry order 0 returns a circle of the given radius approximated by
// short chords.
func PolygonVertices(symmetryOrder uint, phi0, radius float64) ([]r2.Vec, error) {
	switch {
	case radius < 0 || math.IsNaN(radius):
		return nil, fmt.Errorf("%w: polygon radius %v", ErrInvalidParameter, radius)
	case symmetryOrder == 0:
		vertices := make([]r2.Vec, circleSegments)
		for k := range vertices {
			s, c := math.Sincos(float64(k) * twoPi / circleSegments)
			vertices[k] = r2.Vec{X: radius * c, Y: radius * s}
		}
		return vertices, nil
	case symmetryOrder < 3:
		return nil, fmt.Errorf("%w: polygon symmetry order %d", ErrInvalidParameter, symmetryOrder)
	}

	halfAngle := math.Pi / float64(symmetryOrder)
	circumRadius := radius / math.Cos(halfAngle)
	vertices := make([]r2.Vec, symmetryOrder)
	for k := range vertices {
		s, c := math.Sincos(phi0 + halfAngle + float64(k)*twoPi/float64(symmetryOrder))
		vertices[k] = r2.Vec{X: circumRadius * c, Y: circumRadius * s}
	}
	return vertices, nil
}
