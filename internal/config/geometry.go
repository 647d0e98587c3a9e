package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/geometry"
)

// geometry.defaults.json describes a compact ILD-like detector. It is the
// single source of truth for the built-in geometry and settings defaults.
//
//go:embed geometry.defaults.json
var defaultGeometryJSON []byte

// maxFileSize caps the size of a geometry config file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// GeometryConfig is the root of a geometry config file. Lengths are in mm,
// angles in degrees and fields in Tesla. Canonical sections that are
// omitted remain uninitialised in the resulting geometry.
type GeometryConfig struct {
	InDetBarrel *SubDetectorConfig `json:"indet_barrel,omitempty"`
	InDetEndCap *SubDetectorConfig `json:"indet_endcap,omitempty"`
	ECalBarrel  *SubDetectorConfig `json:"ecal_barrel,omitempty"`
	ECalEndCap  *SubDetectorConfig `json:"ecal_endcap,omitempty"`
	HCalBarrel  *SubDetectorConfig `json:"hcal_barrel,omitempty"`
	HCalEndCap  *SubDetectorConfig `json:"hcal_endcap,omitempty"`
	MuonBarrel  *SubDetectorConfig `json:"muon_barrel,omitempty"`
	MuonEndCap  *SubDetectorConfig `json:"muon_endcap,omitempty"`

	MainTracker *ExtentConfig `json:"main_tracker"`
	Coil        *ExtentConfig `json:"coil"`

	AdditionalSubDetectors []NamedSubDetectorConfig `json:"additional_sub_detectors,omitempty"`
	BoxGaps                []BoxGapConfig           `json:"box_gaps,omitempty"`
	ConcentricGaps         []ConcentricGapConfig    `json:"concentric_gaps,omitempty"`

	Settings SettingsConfig `json:"settings"`
}

// SubDetectorConfig describes one sub-detector section. The layer profile is
// given either as an explicit list or as a uniform-pitch generator.
type SubDetectorConfig struct {
	InnerR             float64 `json:"inner_r"`
	InnerZ             float64 `json:"inner_z"`
	InnerPhiDeg        float64 `json:"inner_phi_deg,omitempty"`
	InnerSymmetryOrder uint    `json:"inner_symmetry_order,omitempty"`
	OuterR             float64 `json:"outer_r"`
	OuterZ             float64 `json:"outer_z"`
	OuterPhiDeg        float64 `json:"outer_phi_deg,omitempty"`
	OuterSymmetryOrder uint    `json:"outer_symmetry_order,omitempty"`

	Layers        []LayerConfig       `json:"layers,omitempty"`
	UniformLayers *UniformLayerConfig `json:"uniform_layers,omitempty"`
}

// NamedSubDetectorConfig is an additional, non-canonical sub-detector.
type NamedSubDetectorConfig struct {
	Name string `json:"name"`
	SubDetectorConfig
}

// LayerConfig is one entry of an explicit layer profile.
type LayerConfig struct {
	ClosestDistanceToIp float64 `json:"closest_distance_to_ip"`
	NRadiationLengths   float64 `json:"n_radiation_lengths"`
	NInteractionLengths float64 `json:"n_interaction_lengths"`
}

// UniformLayerConfig generates Count layers of constant pitch.
type UniformLayerConfig struct {
	Count               int     `json:"count"`
	FirstDistance       float64 `json:"first_distance"`
	Pitch               float64 `json:"pitch"`
	NRadiationLengths   float64 `json:"n_radiation_lengths"`
	NInteractionLengths float64 `json:"n_interaction_lengths"`
}

// ExtentConfig holds the scalar extents of the main tracker or the coil.
type ExtentConfig struct {
	InnerRadius float64 `json:"inner_radius"`
	OuterRadius float64 `json:"outer_radius"`
	ZExtent     float64 `json:"z_extent"`
}

// BoxGapConfig is an oriented box given by a vertex and three edge vectors.
type BoxGapConfig struct {
	Vertex [3]float64 `json:"vertex"`
	Side1  [3]float64 `json:"side1"`
	Side2  [3]float64 `json:"side2"`
	Side3  [3]float64 `json:"side3"`
}

// ConcentricGapConfig is a (possibly faceted) shell segment. The phi span is
// optional; when omitted the gap covers the full turn.
type ConcentricGapConfig struct {
	MinZ               float64  `json:"min_z"`
	MaxZ               float64  `json:"max_z"`
	InnerR             float64  `json:"inner_r"`
	InnerPhiDeg        float64  `json:"inner_phi_deg,omitempty"`
	InnerSymmetryOrder uint     `json:"inner_symmetry_order,omitempty"`
	OuterR             float64  `json:"outer_r"`
	OuterPhiDeg        float64  `json:"outer_phi_deg,omitempty"`
	OuterSymmetryOrder uint     `json:"outer_symmetry_order,omitempty"`
	PhiStartDeg        *float64 `json:"phi_start_deg,omitempty"`
	PhiEndDeg          *float64 `json:"phi_end_deg,omitempty"`
}

// SettingsConfig holds the optional run settings. Unset fields fall back to
// the defaults returned by the Get* methods.
type SettingsConfig struct {
	GapTolerance       *float64          `json:"gap_tolerance,omitempty"`
	InnerBField        *float64          `json:"inner_bfield,omitempty"`
	OuterBField        *float64          `json:"outer_bfield,omitempty"`
	AngleCacheSize     *int              `json:"angle_cache_size,omitempty"`
	HitTypeGranularity map[string]string `json:"hit_type_granularity,omitempty"`
}

// EmptyGeometryConfig returns a GeometryConfig with every field unset.
func EmptyGeometryConfig() *GeometryConfig {
	return &GeometryConfig{}
}

// LoadGeometryConfig loads a GeometryConfig from a .json or .hujson file.
// Comments and trailing commas are accepted in both.
func LoadGeometryConfig(path string) (*GeometryConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" && ext != ".hujson" {
		return nil, fmt.Errorf("config file must have .json or .hujson extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseGeometryConfig(data)
}

// ParseGeometryConfig decodes and validates a config document.
func ParseGeometryConfig(data []byte) (*GeometryConfig, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := EmptyGeometryConfig()
	dec := json.NewDecoder(bytes.NewReader(standard))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultGeometryConfig returns the embedded default detector description.
func DefaultGeometryConfig() (*GeometryConfig, error) {
	return ParseGeometryConfig(defaultGeometryJSON)
}

// MustDefaultGeometryConfig is DefaultGeometryConfig for test setup and
// program initialisation. It panics if the embedded file is invalid.
func MustDefaultGeometryConfig() *GeometryConfig {
	cfg, err := DefaultGeometryConfig()
	if err != nil {
		panic("embedded geometry.defaults.json: " + err.Error())
	}
	return cfg
}

// Validate checks the parts of the config that cannot be expressed in the
// geometry record. Shape consistency is checked by geometry.Initialize.
func (c *GeometryConfig) Validate() error {
	if c.MainTracker == nil {
		return errors.New("main_tracker is required")
	}
	if c.Coil == nil {
		return errors.New("coil is required")
	}

	for name, sd := range c.subDetectors() {
		if sd == nil {
			continue
		}
		if err := sd.validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i := range c.AdditionalSubDetectors {
		sd := &c.AdditionalSubDetectors[i]
		if sd.Name == "" {
			return fmt.Errorf("additional_sub_detectors[%d]: name is required", i)
		}
		if err := sd.validate(); err != nil {
			return fmt.Errorf("additional sub detector %q: %w", sd.Name, err)
		}
	}
	for i, gap := range c.ConcentricGaps {
		if (gap.PhiStartDeg == nil) != (gap.PhiEndDeg == nil) {
			return fmt.Errorf("concentric_gaps[%d]: phi_start_deg and phi_end_deg must be set together", i)
		}
	}

	s := c.Settings
	if s.GapTolerance != nil && !(*s.GapTolerance >= 0) {
		return fmt.Errorf("gap_tolerance must be non-negative, got %f", *s.GapTolerance)
	}
	if s.AngleCacheSize != nil && *s.AngleCacheSize <= 0 {
		return fmt.Errorf("angle_cache_size must be positive, got %d", *s.AngleCacheSize)
	}
	if _, err := c.GranularityOverrides(); err != nil {
		return err
	}
	return nil
}

func (sd *SubDetectorConfig) validate() error {
	if len(sd.Layers) > 0 && sd.UniformLayers != nil {
		return errors.New("layers and uniform_layers are mutually exclusive")
	}
	if u := sd.UniformLayers; u != nil {
		if u.Count < 0 {
			return fmt.Errorf("uniform_layers.count must be non-negative, got %d", u.Count)
		}
		if u.Pitch < 0 {
			return fmt.Errorf("uniform_layers.pitch must be non-negative, got %f", u.Pitch)
		}
	}
	return nil
}

// subDetectors maps the JSON key of each canonical section to its config.
func (c *GeometryConfig) subDetectors() map[string]*SubDetectorConfig {
	return map[string]*SubDetectorConfig{
		"indet_barrel": c.InDetBarrel,
		"indet_endcap": c.InDetEndCap,
		"ecal_barrel":  c.ECalBarrel,
		"ecal_endcap":  c.ECalEndCap,
		"hcal_barrel":  c.HCalBarrel,
		"hcal_endcap":  c.HCalEndCap,
		"muon_barrel":  c.MuonBarrel,
		"muon_endcap":  c.MuonEndCap,
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (sd *SubDetectorConfig) input() *geometry.SubDetectorInput {
	if sd == nil {
		return nil
	}
	in := &geometry.SubDetectorInput{
		InnerRCoordinate:   sd.InnerR,
		InnerZCoordinate:   sd.InnerZ,
		InnerPhiCoordinate: radians(sd.InnerPhiDeg),
		InnerSymmetryOrder: sd.InnerSymmetryOrder,
		OuterRCoordinate:   sd.OuterR,
		OuterZCoordinate:   sd.OuterZ,
		OuterPhiCoordinate: radians(sd.OuterPhiDeg),
		OuterSymmetryOrder: sd.OuterSymmetryOrder,
	}
	if u := sd.UniformLayers; u != nil {
		in.Layers = geometry.UniformLayers(u.Count, u.FirstDistance, u.Pitch, u.NRadiationLengths, u.NInteractionLengths)
		return in
	}
	for _, layer := range sd.Layers {
		in.Layers = append(in.Layers, geometry.LayerParameters{
			ClosestDistanceToIp: layer.ClosestDistanceToIp,
			NRadiationLengths:   layer.NRadiationLengths,
			NInteractionLengths: layer.NInteractionLengths,
		})
	}
	return in
}

// ToParameters converts the config into the record consumed by
// geometry.Geometry.Initialize.
func (c *GeometryConfig) ToParameters() geometry.Parameters {
	p := geometry.Parameters{
		InDetBarrel: c.InDetBarrel.input(),
		InDetEndCap: c.InDetEndCap.input(),
		ECalBarrel:  c.ECalBarrel.input(),
		ECalEndCap:  c.ECalEndCap.input(),
		HCalBarrel:  c.HCalBarrel.input(),
		HCalEndCap:  c.HCalEndCap.input(),
		MuonBarrel:  c.MuonBarrel.input(),
		MuonEndCap:  c.MuonEndCap.input(),
	}
	if c.MainTracker != nil {
		p.MainTrackerInnerRadius = c.MainTracker.InnerRadius
		p.MainTrackerOuterRadius = c.MainTracker.OuterRadius
		p.MainTrackerZExtent = c.MainTracker.ZExtent
	}
	if c.Coil != nil {
		p.CoilInnerRadius = c.Coil.InnerRadius
		p.CoilOuterRadius = c.Coil.OuterRadius
		p.CoilZExtent = c.Coil.ZExtent
	}

	for i := range c.AdditionalSubDetectors {
		sd := &c.AdditionalSubDetectors[i]
		p.AdditionalSubDetectors = append(p.AdditionalSubDetectors, geometry.NamedSubDetectorInput{
			Name:             sd.Name,
			SubDetectorInput: *sd.SubDetectorConfig.input(),
		})
	}
	for _, gap := range c.BoxGaps {
		p.BoxGaps = append(p.BoxGaps, geometry.BoxGapParameters{
			Vertex: vec(gap.Vertex),
			Side1:  vec(gap.Side1),
			Side2:  vec(gap.Side2),
			Side3:  vec(gap.Side3),
		})
	}
	for _, gap := range c.ConcentricGaps {
		params := geometry.ConcentricGapParameters{
			MinZCoordinate:     gap.MinZ,
			MaxZCoordinate:     gap.MaxZ,
			InnerRCoordinate:   gap.InnerR,
			InnerPhiCoordinate: radians(gap.InnerPhiDeg),
			InnerSymmetryOrder: gap.InnerSymmetryOrder,
			OuterRCoordinate:   gap.OuterR,
			OuterPhiCoordinate: radians(gap.OuterPhiDeg),
			OuterSymmetryOrder: gap.OuterSymmetryOrder,
		}
		if gap.PhiStartDeg != nil && gap.PhiEndDeg != nil {
			params.PhiRange = &geometry.PhiRange{Start: radians(*gap.PhiStartDeg), End: radians(*gap.PhiEndDeg)}
		}
		p.ConcentricGaps = append(p.ConcentricGaps, params)
	}
	return p
}

// ToSettings converts the settings block, filling defaults for unset fields.
func (c *GeometryConfig) ToSettings() geometry.Settings {
	return geometry.Settings{
		GapTolerance:   c.GetGapTolerance(),
		InnerBField:    c.GetInnerBField(),
		OuterBField:    c.GetOuterBField(),
		AngleCacheSize: c.GetAngleCacheSize(),
	}
}

// GetGapTolerance returns the gap_tolerance value or the default.
func (c *GeometryConfig) GetGapTolerance() float64 {
	if c.Settings.GapTolerance == nil {
		return geometry.DefaultSettings().GapTolerance
	}
	return *c.Settings.GapTolerance
}

// GetInnerBField returns the inner_bfield value or the default.
func (c *GeometryConfig) GetInnerBField() float64 {
	if c.Settings.InnerBField == nil {
		return geometry.DefaultInnerBField
	}
	return *c.Settings.InnerBField
}

// GetOuterBField returns the outer_bfield value or the default.
func (c *GeometryConfig) GetOuterBField() float64 {
	if c.Settings.OuterBField == nil {
		return geometry.DefaultOuterBField
	}
	return *c.Settings.OuterBField
}

// GetAngleCacheSize returns the angle_cache_size value or the default.
func (c *GeometryConfig) GetAngleCacheSize() int {
	if c.Settings.AngleCacheSize == nil {
		return geometry.DefaultAngleCacheSize
	}
	return *c.Settings.AngleCacheSize
}

// GranularityOverrides parses the hit_type_granularity block.
func (c *GeometryConfig) GranularityOverrides() (map[geometry.HitType]geometry.Granularity, error) {
	overrides := make(map[geometry.HitType]geometry.Granularity, len(c.Settings.HitTypeGranularity))
	for hitName, granularityName := range c.Settings.HitTypeGranularity {
		hitType, err := geometry.ParseHitType(hitName)
		if err != nil {
			return nil, fmt.Errorf("hit_type_granularity: %w", err)
		}
		granularity, err := geometry.ParseGranularity(granularityName)
		if err != nil {
			return nil, fmt.Errorf("hit_type_granularity[%s]: %w", hitName, err)
		}
		overrides[hitType] = granularity
	}
	return overrides, nil
}

// ApplyGranularities installs the hit_type_granularity overrides in the
// process-wide granularity map.
func (c *GeometryConfig) ApplyGranularities() error {
	overrides, err := c.GranularityOverrides()
	if err != nil {
		return err
	}
	for hitType, granularity := range overrides {
		if err := geometry.SetHitTypeGranularity(hitType, granularity); err != nil {
			return err
		}
	}
	return nil
}

// NewGeometry creates a geometry with the configured settings and
// initialises it from the configured parameters.
func (c *GeometryConfig) NewGeometry() (*geometry.Geometry, error) {
	g := geometry.New(c.ToSettings())
	if err := g.Initialize(c.ToParameters()); err != nil {
		return nil, err
	}
	return g, nil
}
