package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gap is an inactive region of the detector volume.
//
// Contains reports whether position lies inside the region, counting points
// within the gap tolerance of its boundary as inside. Implementations are
// immutable after construction and safe for concurrent use.
type Gap interface {
	Contains(position r3.Vec) bool
}

// Verify at compile time that the gap shapes implement Gap.
var (
	_ Gap = (*BoxGap)(nil)
	_ Gap = (*ConcentricGap)(nil)
)

// BoxGapParameters describes a rectangular prism by one corner and the
// three edge vectors leaving it. The box need not be axis aligned.
type BoxGapParameters struct {
	Vertex r3.Vec
	Side1  r3.Vec
	Side2  r3.Vec
	Side3  r3.Vec
}

// BoxGap is a gap shaped as an arbitrarily oriented rectangular prism.
type BoxGap struct {
	params    BoxGapParameters
	tolerance float64
	units     [3]r3.Vec
	lengths   [3]float64
}

// NewBoxGap validates params and builds a BoxGap with the given boundary tolerance in mm.
func NewBoxGap(params BoxGapParameters, tolerance float64) (*BoxGap, error) {
	if err := validateTolerance(tolerance); err != nil {
		return nil, err
	}
	if !finiteVec(params.Vertex) {
		return nil, fmt.Errorf("%w: box gap vertex %v is not finite", ErrInvalidParameter, params.Vertex)
	}

	g := &BoxGap{params: params, tolerance: tolerance}
	for i, side := range [3]r3.Vec{params.Side1, params.Side2, params.Side3} {
		length := r3.Norm(side)
		if !(length > 0) || math.IsInf(length, 0) {
			return nil, fmt.Errorf("%w: box gap side %d has length %v", ErrInvalidParameter, i+1, length)
		}
		g.units[i] = r3.Scale(1/length, side)
		g.lengths[i] = length
	}
	return g, nil
}

// Parameters returns the shape the gap was built from.
func (g *BoxGap) Parameters() BoxGapParameters { return g.params }

// Contains projects the offset from the vertex onto each edge direction and
// requires every projection to lie within the edge, widened by the tolerance.
func (g *BoxGap) Contains(position r3.Vec) bool {
	relative := r3.Sub(position, g.params.Vertex)
	for i := range g.units {
		projection := r3.Dot(relative, g.units[i])
		if projection < -g.tolerance || projection > g.lengths[i]+g.tolerance {
			return false
		}
	}
	return true
}

// PhiRange is an azimuthal span running counter-clockwise from Start to End,
// in radians. Spans may cross the 0/2π seam, e.g. Start=350°, End=10°.
type PhiRange struct {
	Start float64
	End   float64
}

// ConcentricGapParameters describes a shell between two concentric prisms
// (or cylinders, for symmetry order 0), limited in z and optionally in phi.
type ConcentricGapParameters struct {
	MinZCoordinate     float64
	MaxZCoordinate     float64
	InnerRCoordinate   float64
	InnerPhiCoordinate float64
	InnerSymmetryOrder uint
	OuterRCoordinate   float64
	OuterPhiCoordinate float64
	OuterSymmetryOrder uint
	PhiRange           *PhiRange // nil covers the full azimuth
}

// ConcentricGap is a gap shaped as a (possibly faceted) cylindrical shell wedge.
type ConcentricGap struct {
	params      ConcentricGapParameters
	tolerance   float64
	innerAngles AngleVector
	outerAngles AngleVector
	span        s1.Interval
}

// NewConcentricGap validates params and builds a ConcentricGap with the given
// boundary tolerance in mm. Faceted edges take their AngleVectors from cache
// when it is non-nil.
func NewConcentricGap(params ConcentricGapParameters, tolerance float64, cache *AngleVectorCache) (*ConcentricGap, error) {
	if err := validateTolerance(tolerance); err != nil {
		return nil, err
	}
	if err := validateConcentricGapParameters(params); err != nil {
		return nil, err
	}

	g := &ConcentricGap{params: params, tolerance: tolerance, span: s1.FullInterval()}

	var err error
	if g.innerAngles, err = edgeAngles(cache, params.InnerSymmetryOrder, params.InnerPhiCoordinate); err != nil {
		return nil, err
	}
	if g.outerAngles, err = edgeAngles(cache, params.OuterSymmetryOrder, params.OuterPhiCoordinate); err != nil {
		return nil, err
	}

	if r := params.PhiRange; r != nil {
		if math.IsNaN(r.Start) || math.IsNaN(r.End) || math.IsInf(r.Start, 0) || math.IsInf(r.End, 0) {
			return nil, fmt.Errorf("%w: concentric gap phi range %v is not finite", ErrInvalidParameter, *r)
		}
		if r.End-r.Start < twoPi {
			lo, hi := math.Remainder(r.Start, twoPi), math.Remainder(r.End, twoPi)
			if lo == hi {
				return nil, fmt.Errorf("%w: concentric gap phi range %v is empty", ErrInvalidParameter, *r)
			}
			g.span = s1.IntervalFromEndpoints(lo, hi)
		}
	}
	return g, nil
}

func validateConcentricGapParameters(p ConcentricGapParameters) error {
	for label, v := range map[string]float64{
		"min z":     p.MinZCoordinate,
		"max z":     p.MaxZCoordinate,
		"inner r":   p.InnerRCoordinate,
		"inner phi": p.InnerPhiCoordinate,
		"outer r":   p.OuterRCoordinate,
		"outer phi": p.OuterPhiCoordinate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: concentric gap %s is not finite", ErrInvalidParameter, label)
		}
	}
	if p.MinZCoordinate > p.MaxZCoordinate {
		return fmt.Errorf("%w: concentric gap min z %v > max z %v", ErrInvalidParameter, p.MinZCoordinate, p.MaxZCoordinate)
	}
	if p.InnerRCoordinate < 0 {
		return fmt.Errorf("%w: concentric gap inner r %v is negative", ErrInvalidParameter, p.InnerRCoordinate)
	}
	if p.InnerRCoordinate > p.OuterRCoordinate {
		return fmt.Errorf("%w: concentric gap inner r %v > outer r %v", ErrInvalidParameter, p.InnerRCoordinate, p.OuterRCoordinate)
	}
	if err := validateSymmetryOrder(p.InnerSymmetryOrder); err != nil {
		return fmt.Errorf("concentric gap inner edge: %w", err)
	}
	if err := validateSymmetryOrder(p.OuterSymmetryOrder); err != nil {
		return fmt.Errorf("concentric gap outer edge: %w", err)
	}
	return nil
}

// edgeAngles returns nil for an unfaceted edge.
func edgeAngles(cache *AngleVectorCache, symmetryOrder uint, phi0 float64) (AngleVector, error) {
	if symmetryOrder == 0 {
		return nil, nil
	}
	if cache != nil {
		return cache.Get(symmetryOrder, phi0)
	}
	return NewAngleVector(symmetryOrder, phi0)
}

// Parameters returns the shape the gap was built from.
func (g *ConcentricGap) Parameters() ConcentricGapParameters { return g.params }

// Contains checks z, then the inner and outer edges, then the phi span.
func (g *ConcentricGap) Contains(position r3.Vec) bool {
	if position.Z < g.params.MinZCoordinate-g.tolerance || position.Z > g.params.MaxZCoordinate+g.tolerance {
		return false
	}

	if polygonRadius(g.innerAngles, position.X, position.Y) < g.params.InnerRCoordinate-g.tolerance {
		return false
	}
	if polygonRadius(g.outerAngles, position.X, position.Y) > g.params.OuterRCoordinate+g.tolerance {
		return false
	}

	if g.span.IsFull() {
		return true
	}
	rho := math.Hypot(position.X, position.Y)
	if rho == 0 {
		return true
	}
	span := g.span
	if g.tolerance > 0 {
		span = span.Expanded(math.Min(g.tolerance/rho, math.Pi))
	}
	return span.Contains(math.Atan2(position.Y, position.X))
}

// polygonRadius is the Euclidean radius for a nil vector, else the cached polygon radius.
func polygonRadius(angles AngleVector, x, y float64) float64 {
	if angles == nil {
		return math.Hypot(x, y)
	}
	r, _ := GetMaximumRadiusFromAngles(angles, x, y)
	return r
}

func validateTolerance(tolerance float64) error {
	if !(tolerance >= 0) || math.IsInf(tolerance, 0) {
		return fmt.Errorf("%w: gap tolerance %v must be a non-negative length", ErrInvalidParameter, tolerance)
	}
	return nil
}

func finiteVec(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
