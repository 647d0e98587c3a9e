package geometry

import (
	"fmt"
	"math"
	"slices"
)

// LayerParameters describes one active layer of a sub-detector.
type LayerParameters struct {
	ClosestDistanceToIp float64 // mm, closest approach of the layer to the interaction point
	NRadiationLengths   float64 // absorber in front of the layer, radiation lengths
	NInteractionLengths float64 // absorber in front of the layer, interaction lengths
}

// SubDetectorInput is the configuration record for one sub-detector section.
type SubDetectorInput struct {
	InnerRCoordinate   float64
	InnerZCoordinate   float64
	InnerPhiCoordinate float64
	InnerSymmetryOrder uint
	OuterRCoordinate   float64
	OuterZCoordinate   float64
	OuterPhiCoordinate float64
	OuterSymmetryOrder uint
	Layers             []LayerParameters // front to back
}

// UniformLayers builds n layers of constant pitch starting at firstDistance,
// each with the same absorber thickness in front of it.
func UniformLayers(n int, firstDistance, pitch, radiationLengths, interactionLengths float64) []LayerParameters {
	layers := make([]LayerParameters, n)
	for i := range layers {
		layers[i] = LayerParameters{
			ClosestDistanceToIp: firstDistance + float64(i)*pitch,
			NRadiationLengths:   radiationLengths,
			NInteractionLengths: interactionLengths,
		}
	}
	return layers
}

// SubDetectorParameters is the immutable description of one detector section.
// The zero value is uninitialised and every getter returns ErrNotInitialized.
type SubDetectorParameters struct {
	name          string
	isInitialized bool

	innerRCoordinate   float64
	innerZCoordinate   float64
	innerPhiCoordinate float64
	innerSymmetryOrder uint
	outerRCoordinate   float64
	outerZCoordinate   float64
	outerPhiCoordinate float64
	outerSymmetryOrder uint
	layers             []LayerParameters
}

// newSubDetectorParameters validates in and returns initialised parameters.
func newSubDetectorParameters(name string, in SubDetectorInput) (SubDetectorParameters, error) {
	if err := validateSubDetectorInput(name, in); err != nil {
		return SubDetectorParameters{}, err
	}
	return SubDetectorParameters{
		name:               name,
		isInitialized:      true,
		innerRCoordinate:   in.InnerRCoordinate,
		innerZCoordinate:   in.InnerZCoordinate,
		innerPhiCoordinate: in.InnerPhiCoordinate,
		innerSymmetryOrder: in.InnerSymmetryOrder,
		outerRCoordinate:   in.OuterRCoordinate,
		outerZCoordinate:   in.OuterZCoordinate,
		outerPhiCoordinate: in.OuterPhiCoordinate,
		outerSymmetryOrder: in.OuterSymmetryOrder,
		layers:             slices.Clone(in.Layers),
	}, nil
}

func validateSubDetectorInput(name string, in SubDetectorInput) error {
	for label, v := range map[string]float64{
		"inner r":   in.InnerRCoordinate,
		"inner z":   in.InnerZCoordinate,
		"inner phi": in.InnerPhiCoordinate,
		"outer r":   in.OuterRCoordinate,
		"outer z":   in.OuterZCoordinate,
		"outer phi": in.OuterPhiCoordinate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s %s is not finite", ErrInvalidParameter, name, label)
		}
	}
	if in.InnerRCoordinate < 0 || in.InnerZCoordinate < 0 {
		return fmt.Errorf("%w: %s inner coordinates must be non-negative (r=%v, z=%v)",
			ErrInvalidParameter, name, in.InnerRCoordinate, in.InnerZCoordinate)
	}
	if in.InnerRCoordinate > in.OuterRCoordinate {
		return fmt.Errorf("%w: %s inner r %v > outer r %v",
			ErrInvalidParameter, name, in.InnerRCoordinate, in.OuterRCoordinate)
	}
	if in.InnerZCoordinate > in.OuterZCoordinate {
		return fmt.Errorf("%w: %s inner z %v > outer z %v",
			ErrInvalidParameter, name, in.InnerZCoordinate, in.OuterZCoordinate)
	}
	if err := validateSymmetryOrder(in.InnerSymmetryOrder); err != nil {
		return fmt.Errorf("%s inner edge: %w", name, err)
	}
	if err := validateSymmetryOrder(in.OuterSymmetryOrder); err != nil {
		return fmt.Errorf("%s outer edge: %w", name, err)
	}

	previous := math.Inf(-1)
	for i, layer := range in.Layers {
		if layer.NRadiationLengths < 0 || layer.NInteractionLengths < 0 {
			return fmt.Errorf("%w: %s layer %d has negative absorber thickness", ErrInvalidParameter, name, i)
		}
		if math.IsNaN(layer.ClosestDistanceToIp) || layer.ClosestDistanceToIp < previous {
			return fmt.Errorf("%w: %s layer %d distance %v is not in front-to-back order",
				ErrInvalidParameter, name, i, layer.ClosestDistanceToIp)
		}
		previous = layer.ClosestDistanceToIp
	}
	return nil
}

// validateSymmetryOrder accepts 0 (unfaceted) or a real polygon.
func validateSymmetryOrder(order uint) error {
	if order == 1 || order == 2 {
		return fmt.Errorf("%w: symmetry order %d must be 0 or >= 3", ErrInvalidParameter, order)
	}
	return nil
}

// Name returns the section name the parameters were initialised under.
func (p *SubDetectorParameters) Name() string { return p.name }

// IsInitialized reports whether the parameters have been populated.
func (p *SubDetectorParameters) IsInitialized() bool { return p.isInitialized }

func (p *SubDetectorParameters) check() error {
	if !p.isInitialized {
		if p.name == "" {
			return ErrNotInitialized
		}
		return fmt.Errorf("%w: sub detector %s", ErrNotInitialized, p.name)
	}
	return nil
}

// GetInnerRCoordinate returns the inner cylindrical polar r coordinate, mm.
func (p *SubDetectorParameters) GetInnerRCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.innerRCoordinate, nil
}

// GetInnerZCoordinate returns the inner cylindrical polar z coordinate, mm.
func (p *SubDetectorParameters) GetInnerZCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.innerZCoordinate, nil
}

// GetInnerPhiCoordinate returns the face offset of the inner edge with respect to the x axis.
func (p *SubDetectorParameters) GetInnerPhiCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.innerPhiCoordinate, nil
}

// GetInnerSymmetryOrder returns the number of faces of the inner edge, 0 if round.
func (p *SubDetectorParameters) GetInnerSymmetryOrder() (uint, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.innerSymmetryOrder, nil
}

// GetOuterRCoordinate returns the outer cylindrical polar r coordinate, mm.
func (p *SubDetectorParameters) GetOuterRCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.outerRCoordinate, nil
}

// GetOuterZCoordinate returns the outer cylindrical polar z coordinate, mm.
func (p *SubDetectorParameters) GetOuterZCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.outerZCoordinate, nil
}

// GetOuterPhiCoordinate returns the face offset of the outer edge with respect to the x axis.
func (p *SubDetectorParameters) GetOuterPhiCoordinate() (float64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.outerPhiCoordinate, nil
}

// GetOuterSymmetryOrder returns the number of faces of the outer edge, 0 if round.
func (p *SubDetectorParameters) GetOuterSymmetryOrder() (uint, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.outerSymmetryOrder, nil
}

// GetNLayers returns the number of layers in the section.
func (p *SubDetectorParameters) GetNLayers() (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return len(p.layers), nil
}

// GetLayerParametersList returns a copy of the layer profile, front to back.
func (p *SubDetectorParameters) GetLayerParametersList() ([]LayerParameters, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return slices.Clone(p.layers), nil
}
