package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/geometry"
	"github.com/banshee-data/detgeom/internal/testutil"
)

const smallDetector = `{
  // Hand-written test detector.
  "ecal_barrel": {
    "inner_r": 1000, "inner_z": 0, "outer_r": 1100, "outer_z": 2000,
    "inner_symmetry_order": 8, "inner_phi_deg": 22.5,
    "layers": [
      {"closest_distance_to_ip": 1000, "n_radiation_lengths": 0.5, "n_interaction_lengths": 0.02},
      {"closest_distance_to_ip": 1010, "n_radiation_lengths": 0.5, "n_interaction_lengths": 0.02},
    ],
  },
  "ecal_endcap": {
    "inner_r": 200, "inner_z": 2100, "outer_r": 1100, "outer_z": 2200,
    "uniform_layers": {"count": 4, "first_distance": 2100, "pitch": 10, "n_radiation_lengths": 0.5, "n_interaction_lengths": 0.02},
  },
  "main_tracker": {"inner_radius": 30, "outer_radius": 900, "z_extent": 1500},
  "coil": {"inner_radius": 1500, "outer_radius": 1700, "z_extent": 2500},
  "concentric_gaps": [
    {"min_z": -5, "max_z": 5, "inner_r": 1000, "outer_r": 1100, "phi_start_deg": 350, "phi_end_deg": 10},
  ],
  "settings": {
    "gap_tolerance": 0.5,
    "inner_bfield": 4,
    "hit_type_granularity": {"tracker": "very_fine"},
  },
}
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultGeometryConfig(t *testing.T) {
	t.Parallel()

	cfg, err := DefaultGeometryConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.GetGapTolerance())
	assert.Equal(t, geometry.DefaultInnerBField, cfg.GetInnerBField())
	assert.Equal(t, geometry.DefaultOuterBField, cfg.GetOuterBField())
	assert.Equal(t, geometry.DefaultAngleCacheSize, cfg.GetAngleCacheSize())
	assert.Equal(t, geometry.DefaultSettings(), cfg.ToSettings())

	overrides, err := cfg.GranularityOverrides()
	require.NoError(t, err)
	assert.Equal(t, geometry.DefaultHitTypeGranularities(), overrides)

	g, err := cfg.NewGeometry()
	require.NoError(t, err)
	require.True(t, g.IsInitialized())

	for _, st := range geometry.SubDetectorTypes() {
		p, err := g.GetSubDetectorParameters(st)
		require.NoError(t, err)
		assert.True(t, p.IsInitialized(), st)
	}

	eCal, err := g.GetECalBarrelParameters()
	require.NoError(t, err)
	n, err := eCal.GetNLayers()
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	inner, err := g.GetMainTrackerInnerRadius()
	require.NoError(t, err)
	assert.Equal(t, 329.0, inner)

	_, err = g.GetAdditionalSubDetector("LumiCal")
	assert.NoError(t, err)

	gaps, err := g.GetDetectorGapList()
	require.NoError(t, err)
	assert.Len(t, gaps, 2)

	layer, err := g.GetPseudoLayer(r3.Vec{X: 1843})
	require.NoError(t, err)
	assert.Equal(t, geometry.PseudoLayer(1), layer)
	assert.True(t, g.IsInDetectorGapRegion(r3.Vec{X: 1900}))
}

func TestMustDefaultGeometryConfig(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		cfg := MustDefaultGeometryConfig()
		assert.NotNil(t, cfg.ECalBarrel)
	})
}

func TestLoadGeometryConfig_HuJSON(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"detector.hujson", "detector.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadGeometryConfig(writeConfig(t, name, smallDetector))
			require.NoError(t, err)

			assert.Equal(t, 0.5, cfg.GetGapTolerance())
			assert.Equal(t, 4.0, cfg.GetInnerBField())
			assert.Equal(t, geometry.DefaultOuterBField, cfg.GetOuterBField(), "unset fields use defaults")
			assert.Nil(t, cfg.HCalBarrel)

			params := cfg.ToParameters()
			assert.Nil(t, params.HCalBarrel)
			require.NotNil(t, params.ECalBarrel)
			testutil.AssertFloatNear(t, params.ECalBarrel.InnerPhiCoordinate, math.Pi/8, 1e-15)
			want := []geometry.LayerParameters{
				{ClosestDistanceToIp: 1000, NRadiationLengths: 0.5, NInteractionLengths: 0.02},
				{ClosestDistanceToIp: 1010, NRadiationLengths: 0.5, NInteractionLengths: 0.02},
			}
			if diff := cmp.Diff(want, params.ECalBarrel.Layers); diff != "" {
				t.Errorf("ecal barrel layers mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, geometry.UniformLayers(4, 2100, 10, 0.5, 0.02), params.ECalEndCap.Layers)

			require.Len(t, params.ConcentricGaps, 1)
			phi := params.ConcentricGaps[0].PhiRange
			require.NotNil(t, phi)
			testutil.AssertFloatNear(t, phi.Start, testutil.Degrees(350), 1e-12)
			testutil.AssertFloatNear(t, phi.End, testutil.Degrees(10), 1e-12)

			assert.Equal(t, 30.0, params.MainTrackerInnerRadius)
			assert.Equal(t, 1700.0, params.CoilOuterRadius)

			g, err := cfg.NewGeometry()
			require.NoError(t, err)
			hCal, err := g.GetHCalBarrelParameters()
			require.NoError(t, err)
			assert.False(t, hCal.IsInitialized())
			assert.True(t, g.IsInDetectorGapRegion(r3.Vec{X: 1050, Y: -10}))
			assert.False(t, g.IsInDetectorGapRegion(r3.Vec{X: -1050}))
		})
	}
}

func TestLoadGeometryConfig_FileErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadGeometryConfig(writeConfig(t, "detector.yaml", smallDetector))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension")

	_, err = LoadGeometryConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	big := writeConfig(t, "big.json", strings.Repeat(" ", maxFileSize+1))
	_, err = LoadGeometryConfig(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestParseGeometryConfig_Invalid(t *testing.T) {
	t.Parallel()

	const extents = `"main_tracker": {"inner_radius": 1, "outer_radius": 2, "z_extent": 3},
		"coil": {"inner_radius": 4, "outer_radius": 5, "z_extent": 6}`

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"malformed", `{"main_tracker": `, "failed to parse config"},
		{"unknown field", `{` + extents + `, "ecal_barel": {}}`, "unknown field"},
		{"missing tracker", `{"coil": {"inner_radius": 4, "outer_radius": 5, "z_extent": 6}}`, "main_tracker is required"},
		{"missing coil", `{"main_tracker": {"inner_radius": 1, "outer_radius": 2, "z_extent": 3}}`, "coil is required"},
		{"both layer forms", `{` + extents + `, "hcal_barrel": {
			"inner_r": 1, "outer_r": 2, "inner_z": 0, "outer_z": 1,
			"layers": [{"closest_distance_to_ip": 1}],
			"uniform_layers": {"count": 1, "first_distance": 1, "pitch": 1}}}`, "mutually exclusive"},
		{"negative layer count", `{` + extents + `, "muon_endcap": {
			"uniform_layers": {"count": -1, "first_distance": 1, "pitch": 1}}}`, "count must be non-negative"},
		{"unnamed additional", `{` + extents + `, "additional_sub_detectors": [{"inner_r": 1}]}`, "name is required"},
		{"half phi range", `{` + extents + `, "concentric_gaps": [{"min_z": 0, "max_z": 1, "inner_r": 1, "outer_r": 2, "phi_start_deg": 10}]}`, "set together"},
		{"negative tolerance", `{` + extents + `, "settings": {"gap_tolerance": -1}}`, "gap_tolerance"},
		{"zero cache", `{` + extents + `, "settings": {"angle_cache_size": 0}}`, "angle_cache_size"},
		{"unknown hit type", `{` + extents + `, "settings": {"hit_type_granularity": {"VERTEX": "FINE"}}}`, "unknown hit type"},
		{"unknown granularity", `{` + extents + `, "settings": {"hit_type_granularity": {"ECAL": "MEDIUM"}}}`, "unknown granularity"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseGeometryConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewGeometry_InvalidShape(t *testing.T) {
	t.Parallel()

	cfg := MustDefaultGeometryConfig()
	cfg.HCalBarrel.InnerR = cfg.HCalBarrel.OuterR + 1

	_, err := cfg.NewGeometry()
	assert.ErrorIs(t, err, geometry.ErrInvalidParameter)
}

func TestEmptyGeometryConfig(t *testing.T) {
	t.Parallel()

	cfg := EmptyGeometryConfig()
	assert.Error(t, cfg.Validate())
	assert.Equal(t, geometry.DefaultSettings(), cfg.ToSettings())

	params := cfg.ToParameters()
	assert.Nil(t, params.ECalBarrel)
	assert.Empty(t, params.BoxGaps)
}

// Writes the process-wide granularity map, so not parallel.
func TestApplyGranularities(t *testing.T) {
	t.Cleanup(geometry.ResetHitTypeGranularities)

	cfg, err := ParseGeometryConfig([]byte(smallDetector))
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyGranularities())

	got, err := geometry.GetHitTypeGranularity(geometry.HitTypeTracker)
	require.NoError(t, err)
	assert.Equal(t, geometry.GranularityVeryFine, got)

	got, err = geometry.GetHitTypeGranularity(geometry.HitTypeMuon)
	require.NoError(t, err)
	assert.Equal(t, geometry.GranularityCoarse, got, "hit types without an override keep their default")
}
