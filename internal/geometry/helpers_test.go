package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func vec(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

// testParameters describes a small ILD-like detector. The ECal barrel
// starts at 1000 mm with 30 layers of 5 mm pitch and an octagonal inner edge.
func testParameters() Parameters {
	return Parameters{
		InDetBarrel: &SubDetectorInput{
			InnerRCoordinate: 60, OuterRCoordinate: 900,
			InnerZCoordinate: 0, OuterZCoordinate: 1200,
		},
		InDetEndCap: &SubDetectorInput{
			InnerRCoordinate: 60, OuterRCoordinate: 900,
			InnerZCoordinate: 1200, OuterZCoordinate: 1400,
		},
		ECalBarrel: &SubDetectorInput{
			InnerRCoordinate: 1000, OuterRCoordinate: 1200,
			InnerZCoordinate: 0, OuterZCoordinate: 2000,
			InnerSymmetryOrder: 8, OuterSymmetryOrder: 8,
			Layers: UniformLayers(30, 1000, 5, 0.6, 0.03),
		},
		ECalEndCap: &SubDetectorInput{
			InnerRCoordinate: 300, OuterRCoordinate: 1200,
			InnerZCoordinate: 2100, OuterZCoordinate: 2300,
			InnerSymmetryOrder: 0, OuterSymmetryOrder: 8,
			Layers: UniformLayers(30, 2100, 5, 0.6, 0.03),
		},
		HCalBarrel: &SubDetectorInput{
			InnerRCoordinate: 1250, OuterRCoordinate: 2300,
			InnerZCoordinate: 0, OuterZCoordinate: 2300,
			InnerSymmetryOrder: 8, OuterSymmetryOrder: 16,
			Layers: UniformLayers(48, 1250, 20, 1.1, 0.12),
		},
		HCalEndCap: &SubDetectorInput{
			InnerRCoordinate: 350, OuterRCoordinate: 2300,
			InnerZCoordinate: 2350, OuterZCoordinate: 3400,
			InnerSymmetryOrder: 4, OuterSymmetryOrder: 8,
			Layers: UniformLayers(48, 2350, 20, 1.1, 0.12),
		},
		MuonBarrel: &SubDetectorInput{
			InnerRCoordinate: 3000, OuterRCoordinate: 4000,
			InnerZCoordinate: 0, OuterZCoordinate: 4000,
			InnerSymmetryOrder: 12, OuterSymmetryOrder: 12,
			Layers: UniformLayers(10, 3000, 100, 5, 0.5),
		},
		MuonEndCap: &SubDetectorInput{
			InnerRCoordinate: 300, OuterRCoordinate: 4000,
			InnerZCoordinate: 4100, OuterZCoordinate: 5000,
			InnerSymmetryOrder: 0, OuterSymmetryOrder: 12,
			Layers: UniformLayers(10, 4100, 90, 5, 0.5),
		},

		MainTrackerInnerRadius: 60,
		MainTrackerOuterRadius: 900,
		MainTrackerZExtent:     1200,
		CoilInnerRadius:        2400,
		CoilOuterRadius:        2900,
		CoilZExtent:            3500,

		AdditionalSubDetectors: []NamedSubDetectorInput{
			{
				Name: "LumiCal",
				SubDetectorInput: SubDetectorInput{
					InnerRCoordinate: 80, OuterRCoordinate: 200,
					InnerZCoordinate: 2500, OuterZCoordinate: 2700,
					Layers: UniformLayers(20, 2500, 4.5, 1, 0.04),
				},
			},
		},
		BoxGaps: []BoxGapParameters{
			{
				Vertex: vec(1000, -5, -2000),
				Side1:  vec(200, 0, 0),
				Side2:  vec(0, 10, 0),
				Side3:  vec(0, 0, 4000),
			},
		},
		ConcentricGaps: []ConcentricGapParameters{
			{
				MinZCoordinate: -10, MaxZCoordinate: 10,
				InnerRCoordinate: 1000, OuterRCoordinate: 1200,
				InnerSymmetryOrder: 8, OuterSymmetryOrder: 8,
			},
		},
	}
}

// newTestGeometry returns an initialised geometry built from testParameters.
func newTestGeometry(t *testing.T) *Geometry {
	t.Helper()
	g := New(DefaultSettings())
	require.NoError(t, g.Initialize(testParameters()))
	return g
}
