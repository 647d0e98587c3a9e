package geometry

import (
	"fmt"
	"io"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/monitoring"
)

// SubDetectorType identifies one of the canonical detector sections.
type SubDetectorType int

const (
	InDetBarrel SubDetectorType = iota
	InDetEndCap
	ECalBarrel
	ECalEndCap
	HCalBarrel
	HCalEndCap
	MuonBarrel
	MuonEndCap
	numSubDetectorTypes
)

var subDetectorNames = [numSubDetectorTypes]string{
	InDetBarrel: "InDetBarrel",
	InDetEndCap: "InDetEndCap",
	ECalBarrel:  "ECalBarrel",
	ECalEndCap:  "ECalEndCap",
	HCalBarrel:  "HCalBarrel",
	HCalEndCap:  "HCalEndCap",
	MuonBarrel:  "MuonBarrel",
	MuonEndCap:  "MuonEndCap",
}

func (t SubDetectorType) String() string {
	if t < 0 || t >= numSubDetectorTypes {
		return fmt.Sprintf("SubDetectorType(%d)", int(t))
	}
	return subDetectorNames[t]
}

// SubDetectorTypes lists the canonical sections in declaration order.
func SubDetectorTypes() []SubDetectorType {
	types := make([]SubDetectorType, numSubDetectorTypes)
	for i := range types {
		types[i] = SubDetectorType(i)
	}
	return types
}

// NamedSubDetectorInput is the record for an additional, non-canonical sub-detector.
type NamedSubDetectorInput struct {
	Name string
	SubDetectorInput
}

// Parameters is the geometry record consumed by Initialize. Canonical
// sections left nil remain uninitialised; their getters report ErrNotInitialized.
type Parameters struct {
	InDetBarrel *SubDetectorInput
	InDetEndCap *SubDetectorInput
	ECalBarrel  *SubDetectorInput
	ECalEndCap  *SubDetectorInput
	HCalBarrel  *SubDetectorInput
	HCalEndCap  *SubDetectorInput
	MuonBarrel  *SubDetectorInput
	MuonEndCap  *SubDetectorInput

	MainTrackerInnerRadius float64
	MainTrackerOuterRadius float64
	MainTrackerZExtent     float64
	CoilInnerRadius        float64
	CoilOuterRadius        float64
	CoilZExtent            float64

	AdditionalSubDetectors []NamedSubDetectorInput
	BoxGaps                []BoxGapParameters
	ConcentricGaps         []ConcentricGapParameters
}

func (p *Parameters) canonical() [numSubDetectorTypes]*SubDetectorInput {
	return [numSubDetectorTypes]*SubDetectorInput{
		InDetBarrel: p.InDetBarrel,
		InDetEndCap: p.InDetEndCap,
		ECalBarrel:  p.ECalBarrel,
		ECalEndCap:  p.ECalEndCap,
		HCalBarrel:  p.HCalBarrel,
		HCalEndCap:  p.HCalEndCap,
		MuonBarrel:  p.MuonBarrel,
		MuonEndCap:  p.MuonEndCap,
	}
}

// Settings holds the run-independent tunables of a Geometry.
type Settings struct {
	GapTolerance   float64 // mm; points this close to a gap boundary count as inside
	InnerBField    float64 // Tesla, default solenoid field inside the coil
	OuterBField    float64 // Tesla, default solenoid return field
	AngleCacheSize int     // polygons remembered by the AngleVectorCache
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		GapTolerance:   0,
		InnerBField:    DefaultInnerBField,
		OuterBField:    DefaultOuterBField,
		AngleCacheSize: DefaultAngleCacheSize,
	}
}

// Geometry owns the detector description and the active calculators.
//
// Initialize, CreateBoxGap, CreateConcentricGap, the calculator setters and
// Reset must be called from a single goroutine before (or between) query
// phases. All other methods only read and are safe for concurrent use.
type Geometry struct {
	id         uuid.UUID
	settings   Settings
	angleCache *AngleVectorCache

	isInitialized         bool
	bFieldCalculator      BFieldCalculator
	pseudoLayerCalculator PseudoLayerCalculator

	subDetectors [numSubDetectorTypes]SubDetectorParameters

	mainTrackerInnerRadius float64
	mainTrackerOuterRadius float64
	mainTrackerZExtent     float64
	coilInnerRadius        float64
	coilOuterRadius        float64
	coilZExtent            float64

	additionalSubDetectors map[string]*SubDetectorParameters
	detectorGaps           []Gap
}

// New creates an uninitialised Geometry. Invalid settings fields fall back
// to their defaults.
func New(settings Settings) *Geometry {
	defaults := DefaultSettings()
	if validateTolerance(settings.GapTolerance) != nil {
		settings.GapTolerance = defaults.GapTolerance
	}
	if settings.AngleCacheSize <= 0 {
		settings.AngleCacheSize = defaults.AngleCacheSize
	}
	return &Geometry{
		id:         uuid.New(),
		settings:   settings,
		angleCache: NewAngleVectorCache(settings.AngleCacheSize),
	}
}

// ID identifies this geometry instance in diagnostics.
func (g *Geometry) ID() uuid.UUID { return g.id }

// Settings returns the settings the geometry was created with.
func (g *Geometry) Settings() Settings { return g.settings }

// AngleCache returns the AngleVectorCache shared by this geometry's gaps and
// default calculators. Callers may use it for their own polygon queries.
func (g *Geometry) AngleCache() *AngleVectorCache { return g.angleCache }

// IsInitialized reports whether Initialize has succeeded.
func (g *Geometry) IsInitialized() bool { return g.isInitialized }

// GetGapTolerance returns the tolerance applied to gap containment, mm.
func (g *Geometry) GetGapTolerance() float64 { return g.settings.GapTolerance }

// Initialize populates the geometry from params. It may succeed only once per
// run; a second call returns ErrAlreadyInitialized and changes nothing. On any
// error the geometry is left exactly as it was.
func (g *Geometry) Initialize(params Parameters) error {
	if g.isInitialized {
		return fmt.Errorf("%w: geometry %s", ErrAlreadyInitialized, g.id)
	}

	if err := validateExtents("main tracker", params.MainTrackerInnerRadius, params.MainTrackerOuterRadius, params.MainTrackerZExtent); err != nil {
		return err
	}
	if err := validateExtents("coil", params.CoilInnerRadius, params.CoilOuterRadius, params.CoilZExtent); err != nil {
		return err
	}

	var subDetectors [numSubDetectorTypes]SubDetectorParameters
	for t, in := range params.canonical() {
		if in == nil {
			subDetectors[t] = SubDetectorParameters{name: SubDetectorType(t).String()}
			continue
		}
		p, err := newSubDetectorParameters(SubDetectorType(t).String(), *in)
		if err != nil {
			return err
		}
		subDetectors[t] = p
	}

	additional := make(map[string]*SubDetectorParameters, len(params.AdditionalSubDetectors))
	for _, in := range params.AdditionalSubDetectors {
		if in.Name == "" {
			return fmt.Errorf("%w: additional sub detector without a name", ErrInvalidParameter)
		}
		if _, exists := additional[in.Name]; exists {
			return fmt.Errorf("%w: duplicate additional sub detector %q", ErrInvalidParameter, in.Name)
		}
		p, err := newSubDetectorParameters(in.Name, in.SubDetectorInput)
		if err != nil {
			return err
		}
		additional[in.Name] = &p
	}

	gaps, err := g.buildGaps(params.BoxGaps, params.ConcentricGaps)
	if err != nil {
		return err
	}

	// Commit, then let the calculators read the committed state. A failing
	// calculator rolls everything back.
	previous := *g
	g.subDetectors = subDetectors
	g.mainTrackerInnerRadius = params.MainTrackerInnerRadius
	g.mainTrackerOuterRadius = params.MainTrackerOuterRadius
	g.mainTrackerZExtent = params.MainTrackerZExtent
	g.coilInnerRadius = params.CoilInnerRadius
	g.coilOuterRadius = params.CoilOuterRadius
	g.coilZExtent = params.CoilZExtent
	g.additionalSubDetectors = additional
	g.detectorGaps = append(slices.Clip(g.detectorGaps), gaps...)
	g.isInitialized = true

	if g.bFieldCalculator == nil {
		g.bFieldCalculator = NewSolenoidBFieldCalculator(g.settings.InnerBField, g.settings.OuterBField)
	}
	if g.pseudoLayerCalculator == nil {
		g.pseudoLayerCalculator = NewFineGranularityPseudoLayerCalculator(g.angleCache)
	}
	for _, calculator := range []any{g.bFieldCalculator, g.pseudoLayerCalculator} {
		if err := initializeCalculator(g, calculator); err != nil {
			*g = previous
			return err
		}
	}

	monitoring.Logf("[Geometry] id=%s initialized sub_detectors=%d additional=%d gaps=%d bfield=%T pseudolayer=%T",
		g.id, g.countInitializedSubDetectors(), len(g.additionalSubDetectors), len(g.detectorGaps),
		g.bFieldCalculator, g.pseudoLayerCalculator)
	return nil
}

func validateExtents(name string, innerRadius, outerRadius, zExtent float64) error {
	for _, v := range [3]float64{innerRadius, outerRadius, zExtent} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s extents must be finite and non-negative (inner r=%v, outer r=%v, z=%v)",
				ErrInvalidParameter, name, innerRadius, outerRadius, zExtent)
		}
	}
	if innerRadius > outerRadius {
		return fmt.Errorf("%w: %s inner r %v > outer r %v", ErrInvalidParameter, name, innerRadius, outerRadius)
	}
	return nil
}

func initializeCalculator(g *Geometry, calculator any) error {
	initializer, ok := calculator.(GeometryInitializer)
	if !ok {
		return nil
	}
	if err := initializer.InitializeGeometry(g); err != nil {
		return fmt.Errorf("initialize %T: %w", calculator, err)
	}
	return nil
}

func (g *Geometry) countInitializedSubDetectors() int {
	n := 0
	for i := range g.subDetectors {
		if g.subDetectors[i].IsInitialized() {
			n++
		}
	}
	return n
}

func (g *Geometry) buildGaps(boxes []BoxGapParameters, concentrics []ConcentricGapParameters) ([]Gap, error) {
	gaps := make([]Gap, 0, len(boxes)+len(concentrics))
	for i, params := range boxes {
		gap, err := NewBoxGap(params, g.settings.GapTolerance)
		if err != nil {
			return nil, fmt.Errorf("box gap %d: %w", i, err)
		}
		gaps = append(gaps, gap)
	}
	for i, params := range concentrics {
		gap, err := NewConcentricGap(params, g.settings.GapTolerance, g.angleCache)
		if err != nil {
			return nil, fmt.Errorf("concentric gap %d: %w", i, err)
		}
		gaps = append(gaps, gap)
	}
	return gaps, nil
}

// CreateBoxGap validates params and appends a BoxGap to the gap list.
func (g *Geometry) CreateBoxGap(params BoxGapParameters) error {
	gap, err := NewBoxGap(params, g.settings.GapTolerance)
	if err != nil {
		return err
	}
	g.detectorGaps = append(g.detectorGaps, gap)
	monitoring.Logf("[Geometry] id=%s created box gap vertex=%v gaps=%d", g.id, params.Vertex, len(g.detectorGaps))
	return nil
}

// CreateConcentricGap validates params and appends a ConcentricGap to the gap list.
func (g *Geometry) CreateConcentricGap(params ConcentricGapParameters) error {
	gap, err := NewConcentricGap(params, g.settings.GapTolerance, g.angleCache)
	if err != nil {
		return err
	}
	g.detectorGaps = append(g.detectorGaps, gap)
	monitoring.Logf("[Geometry] id=%s created concentric gap r=[%v,%v] z=[%v,%v] gaps=%d", g.id,
		params.InnerRCoordinate, params.OuterRCoordinate, params.MinZCoordinate, params.MaxZCoordinate, len(g.detectorGaps))
	return nil
}

// SetBFieldCalculator installs c as the active field calculator, replacing
// (and closing, if it is an io.Closer) any previous one. If the geometry is
// already initialised c is initialised against it first; on error the
// previous calculator stays active.
func (g *Geometry) SetBFieldCalculator(c BFieldCalculator) error {
	if c == nil {
		return fmt.Errorf("%w: nil bfield calculator", ErrInvalidParameter)
	}
	if g.isInitialized {
		if err := initializeCalculator(g, c); err != nil {
			return err
		}
	}
	release(g.bFieldCalculator, c)
	g.bFieldCalculator = c
	monitoring.Logf("[Geometry] id=%s bfield calculator=%T", g.id, c)
	return nil
}

// SetPseudoLayerCalculator installs c as the active pseudolayer calculator,
// with the same replacement rules as SetBFieldCalculator.
func (g *Geometry) SetPseudoLayerCalculator(c PseudoLayerCalculator) error {
	if c == nil {
		return fmt.Errorf("%w: nil pseudolayer calculator", ErrInvalidParameter)
	}
	if g.isInitialized {
		if err := initializeCalculator(g, c); err != nil {
			return err
		}
	}
	release(g.pseudoLayerCalculator, c)
	g.pseudoLayerCalculator = c
	monitoring.Logf("[Geometry] id=%s pseudolayer calculator=%T", g.id, c)
	return nil
}

// release closes previous unless it is being reinstalled.
func release(previous, next any) {
	if previous == nil || sameCalculator(previous, next) {
		return
	}
	if closer, ok := previous.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			monitoring.Logf("[Geometry] closing %T: %v", previous, err)
		}
	}
}

// sameCalculator reports whether a and b refer to the same calculator.
// Only reference kinds are compared; value calculators may hold func, map or
// slice fields that panic under ==, so they never count as the same.
func sameCalculator(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}

// Reset discards all state and returns the geometry to uninitialised.
// Calculators implementing io.Closer are closed. Reset must not race with queries.
func (g *Geometry) Reset() {
	release(g.bFieldCalculator, nil)
	release(g.pseudoLayerCalculator, nil)
	*g = Geometry{id: g.id, settings: g.settings, angleCache: g.angleCache}
	g.angleCache.Clear()
	monitoring.Logf("[Geometry] id=%s reset", g.id)
}

// GetBField returns the field at position from the active calculator, Tesla.
func (g *Geometry) GetBField(position r3.Vec) (float64, error) {
	if !g.isInitialized {
		return 0, ErrNotInitialized
	}
	return g.bFieldCalculator.Compute(position), nil
}

// GetPseudoLayer returns the pseudolayer of position from the active calculator.
func (g *Geometry) GetPseudoLayer(position r3.Vec) (PseudoLayer, error) {
	if !g.isInitialized {
		return 0, ErrNotInitialized
	}
	return g.pseudoLayerCalculator.Compute(position)
}

// GetPseudoLayerAtIp returns the pseudolayer assigned to the interaction point.
func (g *Geometry) GetPseudoLayerAtIp() (PseudoLayer, error) {
	if !g.isInitialized {
		return 0, ErrNotInitialized
	}
	return g.pseudoLayerCalculator.PseudoLayerAtIp(), nil
}

// IsInDetectorGapRegion reports whether position lies in any known gap.
func (g *Geometry) IsInDetectorGapRegion(position r3.Vec) bool {
	for _, gap := range g.detectorGaps {
		if gap.Contains(position) {
			return true
		}
	}
	return false
}

// GetDetectorGapList returns a copy of the gap list in creation order.
func (g *Geometry) GetDetectorGapList() ([]Gap, error) {
	if !g.isInitialized {
		return nil, ErrNotInitialized
	}
	return slices.Clone(g.detectorGaps), nil
}

// GetSubDetectorParameters returns the parameters of a canonical section.
// The section itself may be uninitialised if it was absent from the record.
func (g *Geometry) GetSubDetectorParameters(t SubDetectorType) (*SubDetectorParameters, error) {
	if t < 0 || t >= numSubDetectorTypes {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, t)
	}
	if !g.isInitialized {
		return nil, ErrNotInitialized
	}
	return &g.subDetectors[t], nil
}

// GetInDetBarrelParameters returns the inner detector barrel parameters.
func (g *Geometry) GetInDetBarrelParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(InDetBarrel)
}

// GetInDetEndCapParameters returns the inner detector endcap parameters.
func (g *Geometry) GetInDetEndCapParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(InDetEndCap)
}

// GetECalBarrelParameters returns the ECal barrel parameters.
func (g *Geometry) GetECalBarrelParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(ECalBarrel)
}

// GetECalEndCapParameters returns the ECal endcap parameters.
func (g *Geometry) GetECalEndCapParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(ECalEndCap)
}

// GetHCalBarrelParameters returns the HCal barrel parameters.
func (g *Geometry) GetHCalBarrelParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(HCalBarrel)
}

// GetHCalEndCapParameters returns the HCal endcap parameters.
func (g *Geometry) GetHCalEndCapParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(HCalEndCap)
}

// GetMuonBarrelParameters returns the muon system barrel parameters.
func (g *Geometry) GetMuonBarrelParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(MuonBarrel)
}

// GetMuonEndCapParameters returns the muon system endcap parameters.
func (g *Geometry) GetMuonEndCapParameters() (*SubDetectorParameters, error) {
	return g.GetSubDetectorParameters(MuonEndCap)
}

// GetAdditionalSubDetectors returns a copy of the name to parameters map.
func (g *Geometry) GetAdditionalSubDetectors() (map[string]*SubDetectorParameters, error) {
	if !g.isInitialized {
		return nil, ErrNotInitialized
	}
	return maps.Clone(g.additionalSubDetectors), nil
}

// GetAdditionalSubDetector returns the named additional sub-detector.
func (g *Geometry) GetAdditionalSubDetector(name string) (*SubDetectorParameters, error) {
	if !g.isInitialized {
		return nil, ErrNotInitialized
	}
	p, ok := g.additionalSubDetectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: sub detector %q", ErrNotFound, name)
	}
	return p, nil
}

func (g *Geometry) scalar(v float64) (float64, error) {
	if !g.isInitialized {
		return 0, ErrNotInitialized
	}
	return v, nil
}

// GetMainTrackerInnerRadius returns the main tracker inner radius, mm.
func (g *Geometry) GetMainTrackerInnerRadius() (float64, error) {
	return g.scalar(g.mainTrackerInnerRadius)
}

// GetMainTrackerOuterRadius returns the main tracker outer radius, mm.
func (g *Geometry) GetMainTrackerOuterRadius() (float64, error) {
	return g.scalar(g.mainTrackerOuterRadius)
}

// GetMainTrackerZExtent returns the main tracker z extent, mm.
func (g *Geometry) GetMainTrackerZExtent() (float64, error) {
	return g.scalar(g.mainTrackerZExtent)
}

// GetCoilInnerRadius returns the coil inner radius, mm.
func (g *Geometry) GetCoilInnerRadius() (float64, error) {
	return g.scalar(g.coilInnerRadius)
}

// GetCoilOuterRadius returns the coil outer radius, mm.
func (g *Geometry) GetCoilOuterRadius() (float64, error) {
	return g.scalar(g.coilOuterRadius)
}

// GetCoilZExtent returns the coil z extent, mm.
func (g *Geometry) GetCoilZExtent() (float64, error) {
	return g.scalar(g.coilZExtent)
}
