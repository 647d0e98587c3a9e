package geometry

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/banshee-data/detgeom/internal/monitoring"
)

// HitType is the calorimeter hit category.
type HitType int

const (
	HitTypeTracker HitType = iota
	HitTypeECal
	HitTypeHCal
	HitTypeMuon
)

var hitTypeNames = map[HitType]string{
	HitTypeTracker: "TRACKER",
	HitTypeECal:    "ECAL",
	HitTypeHCal:    "HCAL",
	HitTypeMuon:    "MUON",
}

func (t HitType) String() string {
	if name, ok := hitTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("HitType(%d)", int(t))
}

// ParseHitType accepts the names printed by HitType.String, case-insensitively.
func ParseHitType(s string) (HitType, error) {
	for t, name := range hitTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown hit type %q", ErrInvalidParameter, s)
}

// Granularity is the coarseness class of a hit category.
type Granularity int

const (
	GranularityVeryFine Granularity = iota
	GranularityFine
	GranularityCoarse
	numGranularities
)

var granularityNames = [numGranularities]string{
	GranularityVeryFine: "VERY_FINE",
	GranularityFine:     "FINE",
	GranularityCoarse:   "COARSE",
}

func (g Granularity) String() string {
	if g < 0 || g >= numGranularities {
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
	return granularityNames[g]
}

// ParseGranularity accepts the names printed by Granularity.String, case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	for g, name := range granularityNames {
		if strings.EqualFold(s, name) {
			return Granularity(g), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown granularity %q", ErrInvalidParameter, s)
}

// DefaultHitTypeGranularities returns the built-in hit type to granularity
// map. Tracker hits have no calorimetric granularity and are not registered.
func DefaultHitTypeGranularities() map[HitType]Granularity {
	return map[HitType]Granularity{
		HitTypeECal: GranularityFine,
		HitTypeHCal: GranularityFine,
		HitTypeMuon: GranularityCoarse,
	}
}

// GranularityMap maps hit types to granularities. It is safe for concurrent use.
type GranularityMap struct {
	mu sync.RWMutex
	m  map[HitType]Granularity
}

// NewGranularityMap returns a map holding the defaults.
func NewGranularityMap() *GranularityMap {
	return &GranularityMap{m: DefaultHitTypeGranularities()}
}

// Get returns the granularity registered for hitType, or ErrNotFound.
func (gm *GranularityMap) Get(hitType HitType) (Granularity, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	g, ok := gm.m[hitType]
	if !ok {
		return 0, fmt.Errorf("%w: granularity for hit type %v", ErrNotFound, hitType)
	}
	return g, nil
}

// Set registers granularity for hitType, replacing any previous value.
func (gm *GranularityMap) Set(hitType HitType, granularity Granularity) error {
	if granularity < 0 || granularity >= numGranularities {
		return fmt.Errorf("%w: granularity %v", ErrInvalidParameter, granularity)
	}
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.m[hitType] = granularity
	return nil
}

// Reset restores the defaults.
func (gm *GranularityMap) Reset() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.m = DefaultHitTypeGranularities()
}

// Snapshot returns a copy of the current mapping.
func (gm *GranularityMap) Snapshot() map[HitType]Granularity {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return maps.Clone(gm.m)
}

// hitTypeGranularities is the process-wide map. It is independent of any
// Geometry and survives ResetInstance.
var hitTypeGranularities = NewGranularityMap()

// GetHitTypeGranularity returns the process-wide granularity for hitType.
func GetHitTypeGranularity(hitType HitType) (Granularity, error) {
	return hitTypeGranularities.Get(hitType)
}

// SetHitTypeGranularity overrides the process-wide granularity for hitType.
func SetHitTypeGranularity(hitType HitType, granularity Granularity) error {
	if err := hitTypeGranularities.Set(hitType, granularity); err != nil {
		return err
	}
	monitoring.Logf("[Geometry] hit type granularity %v=%v", hitType, granularity)
	return nil
}

// ResetHitTypeGranularities restores the process-wide defaults.
func ResetHitTypeGranularities() {
	hitTypeGranularities.Reset()
}
