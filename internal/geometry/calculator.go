package geometry

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/monitoring"
)

// PseudoLayer is a discrete, geometry-derived depth index.
type PseudoLayer uint

// BFieldCalculator computes the magnetic field at a position.
// Compute must be free of side effects: it is called concurrently.
type BFieldCalculator interface {
	// Compute returns the field at position, in Tesla.
	Compute(position r3.Vec) float64
}

// PseudoLayerCalculator maps positions to pseudolayers.
// Compute must be free of side effects: it is called concurrently.
type PseudoLayerCalculator interface {
	// Compute returns the pseudolayer containing position.
	Compute(position r3.Vec) (PseudoLayer, error)

	// PseudoLayerAtIp returns the pseudolayer assigned to the interaction
	// point, the start of the pseudolayer scale.
	PseudoLayerAtIp() PseudoLayer
}

// GeometryInitializer is implemented by calculators that read the detector
// description. InitializeGeometry is called once the Geometry holds its
// parameters, before the calculator serves any query.
type GeometryInitializer interface {
	InitializeGeometry(g *Geometry) error
}

// Verify at compile time that the built-in calculators satisfy the ports.
var (
	_ BFieldCalculator      = (*SolenoidBFieldCalculator)(nil)
	_ GeometryInitializer   = (*SolenoidBFieldCalculator)(nil)
	_ PseudoLayerCalculator = (*FineGranularityPseudoLayerCalculator)(nil)
	_ GeometryInitializer   = (*FineGranularityPseudoLayerCalculator)(nil)
)

// Default solenoid field strengths, Tesla.
const (
	DefaultInnerBField = 3.5
	DefaultOuterBField = -1.5
)

// SolenoidBFieldCalculator returns a uniform field inside the coil and a
// uniform return field outside it. The coil boundary is the coil mid-radius
// and the coil z extent, read from the geometry on initialisation.
type SolenoidBFieldCalculator struct {
	InnerBField float64
	OuterBField float64

	boundaryRadius float64
	halfLength     float64
}

// NewSolenoidBFieldCalculator creates a solenoid field with the given inner
// and outer (return) field strengths.
func NewSolenoidBFieldCalculator(innerBField, outerBField float64) *SolenoidBFieldCalculator {
	return &SolenoidBFieldCalculator{InnerBField: innerBField, OuterBField: outerBField}
}

// InitializeGeometry reads the coil extents.
func (c *SolenoidBFieldCalculator) InitializeGeometry(g *Geometry) error {
	inner, err := g.GetCoilInnerRadius()
	if err != nil {
		return err
	}
	outer, err := g.GetCoilOuterRadius()
	if err != nil {
		return err
	}
	zExtent, err := g.GetCoilZExtent()
	if err != nil {
		return err
	}
	c.boundaryRadius = 0.5 * (inner + outer)
	c.halfLength = zExtent
	return nil
}

// Compute returns InnerBField inside the coil and OuterBField elsewhere.
func (c *SolenoidBFieldCalculator) Compute(position r3.Vec) float64 {
	if math.Hypot(position.X, position.Y) < c.boundaryRadius && math.Abs(position.Z) < c.halfLength {
		return c.InnerBField
	}
	return c.OuterBField
}

// FineGranularityPseudoLayerCalculator assigns pseudolayers by counting the
// calorimeter and muon layer boundaries in front of a position.
//
// Barrel depth is the polygon radius with respect to the ECal barrel inner
// edge, endcap depth is |z|. Positions in the barrel/endcap overlap take the
// smaller of the two pseudolayers. Positions in front of the first layer are
// at the interaction point pseudolayer.
type FineGranularityPseudoLayerCalculator struct {
	cache *AngleVectorCache

	barrelAngles AngleVector
	barrelInnerR float64
	endCapInnerZ float64
	barrelLayers []float64
	endCapLayers []float64
	initialized  bool
	missing      string // why InitializeGeometry left the calculator unusable
}

// NewFineGranularityPseudoLayerCalculator creates the calculator. The
// barrel AngleVector is taken from cache when non-nil.
func NewFineGranularityPseudoLayerCalculator(cache *AngleVectorCache) *FineGranularityPseudoLayerCalculator {
	return &FineGranularityPseudoLayerCalculator{cache: cache}
}

// InitializeGeometry builds the barrel and endcap layer boundary lists from
// the ECal, HCal and muon sections. Without an ECal barrel and endcap, or
// without any layers, the calculator stays unusable and Compute returns
// ErrNotInitialized; the geometry itself still initialises.
func (c *FineGranularityPseudoLayerCalculator) InitializeGeometry(g *Geometry) error {
	c.initialized = false
	c.missing = ""

	eCalBarrel, err := g.GetECalBarrelParameters()
	if err != nil {
		return err
	}
	eCalEndCap, err := g.GetECalEndCapParameters()
	if err != nil {
		return err
	}
	if !eCalBarrel.IsInitialized() || !eCalEndCap.IsInitialized() {
		c.missing = "ecal barrel and endcap parameters"
		monitoring.Logf("[Geometry] id=%s pseudolayer calculator disabled: no %s", g.ID(), c.missing)
		return nil
	}

	symmetryOrder, _ := eCalBarrel.GetInnerSymmetryOrder()
	phi0, _ := eCalBarrel.GetInnerPhiCoordinate()
	c.barrelInnerR, _ = eCalBarrel.GetInnerRCoordinate()
	c.endCapInnerZ, _ = eCalEndCap.GetInnerZCoordinate()

	c.barrelAngles = nil
	if symmetryOrder > 0 {
		if c.cache != nil {
			c.barrelAngles, err = c.cache.Get(symmetryOrder, phi0)
		} else {
			c.barrelAngles, err = NewAngleVector(symmetryOrder, phi0)
		}
		if err != nil {
			return err
		}
	}

	barrels := []*SubDetectorParameters{eCalBarrel}
	endCaps := []*SubDetectorParameters{eCalEndCap}
	for _, get := range []func() (*SubDetectorParameters, error){g.GetHCalBarrelParameters, g.GetMuonBarrelParameters} {
		if p, err := get(); err == nil && p.IsInitialized() {
			barrels = append(barrels, p)
		}
	}
	for _, get := range []func() (*SubDetectorParameters, error){g.GetHCalEndCapParameters, g.GetMuonEndCapParameters} {
		if p, err := get(); err == nil && p.IsInitialized() {
			endCaps = append(endCaps, p)
		}
	}

	c.barrelLayers = layerBoundaries(barrels)
	c.endCapLayers = layerBoundaries(endCaps)
	if len(c.barrelLayers) == 0 || len(c.endCapLayers) == 0 {
		c.missing = "barrel and endcap layers"
		monitoring.Logf("[Geometry] id=%s pseudolayer calculator disabled: no %s", g.ID(), c.missing)
		return nil
	}
	c.initialized = true
	return nil
}

// layerBoundaries concatenates the layer distances of consecutive sections,
// sorted so that overlapping sections still yield a monotonic scale.
func layerBoundaries(sections []*SubDetectorParameters) []float64 {
	var boundaries []float64
	for _, p := range sections {
		layers, _ := p.GetLayerParametersList()
		for _, layer := range layers {
			boundaries = append(boundaries, layer.ClosestDistanceToIp)
		}
	}
	slices.Sort(boundaries)
	return boundaries
}

// PseudoLayerAtIp is always 0.
func (c *FineGranularityPseudoLayerCalculator) PseudoLayerAtIp() PseudoLayer { return 0 }

// Compute returns the number of layer boundaries at or in front of position.
func (c *FineGranularityPseudoLayerCalculator) Compute(position r3.Vec) (PseudoLayer, error) {
	if !c.initialized {
		if c.missing != "" {
			return 0, fmt.Errorf("%w: pseudolayer calculator has no %s", ErrNotInitialized, c.missing)
		}
		return 0, fmt.Errorf("%w: pseudolayer calculator", ErrNotInitialized)
	}
	if !finiteVec(position) {
		return 0, fmt.Errorf("%w: position %v is not finite", ErrInvalidParameter, position)
	}

	rCoordinate := polygonRadius(c.barrelAngles, position.X, position.Y)
	zCoordinate := math.Abs(position.Z)

	barrelLayer := countBoundaries(c.barrelLayers, rCoordinate)
	endCapLayer := countBoundaries(c.endCapLayers, zCoordinate)

	switch {
	case zCoordinate < c.endCapInnerZ:
		return c.PseudoLayerAtIp() + barrelLayer, nil
	case rCoordinate < c.barrelInnerR:
		return c.PseudoLayerAtIp() + endCapLayer, nil
	default:
		return c.PseudoLayerAtIp() + min(barrelLayer, endCapLayer), nil
	}
}

func countBoundaries(boundaries []float64, coordinate float64) PseudoLayer {
	return PseudoLayer(sort.Search(len(boundaries), func(i int) bool { return boundaries[i] > coordinate }))
}
