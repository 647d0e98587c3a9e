package plotting

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/geometry"
	"github.com/banshee-data/detgeom/internal/monitoring"
)

// LayerMapOptions control a pseudolayer map rendering.
type LayerMapOptions struct {
	Title string
	Step  float64 // sampling pitch in mm, default extent/100
}

// viridis ramp, low to high pseudolayer.
var layerRamp = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderPseudoLayerMap samples the x-z quarter plane at y=0 and writes an
// HTML scatter chart coloured by pseudolayer. Samples inside a detector gap
// are drawn as a separate series.
func RenderPseudoLayerMap(g *geometry.Geometry, o LayerMapOptions, w io.Writer) error {
	if !g.IsInitialized() {
		return geometry.ErrNotInitialized
	}
	extent, err := outerExtent(g)
	if err != nil {
		return err
	}
	step := o.Step
	if step <= 0 {
		step = extent / 100
	}

	var layers, gaps []opts.ScatterData
	maxLayer := geometry.PseudoLayer(1)
	for x := 0.0; x <= extent; x += step {
		for z := 0.0; z <= extent; z += step {
			pos := r3.Vec{X: x, Z: z}
			layer, err := g.GetPseudoLayer(pos)
			if err != nil {
				return fmt.Errorf("pseudolayer at %v: %w", pos, err)
			}
			maxLayer = max(maxLayer, layer)
			if g.IsInDetectorGapRegion(pos) {
				gaps = append(gaps, opts.ScatterData{Value: []interface{}{z, x}})
				continue
			}
			layers = append(layers, opts.ScatterData{Value: []interface{}{z, x, int(layer)}})
		}
	}

	title := o.Title
	if title == "" {
		title = fmt.Sprintf("Geometry %s pseudolayers", g.ID())
	}
	pad := math.Ceil(extent)
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pseudolayer map", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("step=%.1fmm samples=%d gap_samples=%d", step, len(layers)+len(gaps), len(gaps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: pad, Name: "z (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: pad, Name: "x (mm)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxLayer),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: layerRamp},
		}),
	)
	scatter.AddSeries("pseudolayer", layers, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("gap", gaps,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#5a5a5a"}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render pseudolayer map: %w", err)
	}
	monitoring.Logf("[Plotting] id=%s pseudolayer map step=%.1f samples=%d gaps=%d max_layer=%d",
		g.ID(), step, len(layers)+len(gaps), len(gaps), maxLayer)
	return nil
}

// outerExtent is the largest outer r or z over every initialised section.
func outerExtent(g *geometry.Geometry) (float64, error) {
	var all []*geometry.SubDetectorParameters
	for _, t := range geometry.SubDetectorTypes() {
		p, err := g.GetSubDetectorParameters(t)
		if err != nil {
			return 0, err
		}
		all = append(all, p)
	}
	additional, err := g.GetAdditionalSubDetectors()
	if err != nil {
		return 0, err
	}
	for _, p := range additional {
		all = append(all, p)
	}

	extent := 0.0
	for _, p := range all {
		if !p.IsInitialized() {
			continue
		}
		r, _ := p.GetOuterRCoordinate()
		z, _ := p.GetOuterZCoordinate()
		extent = math.Max(extent, math.Max(r, z))
	}
	if extent == 0 {
		return 0, fmt.Errorf("%w: no initialised sub detectors", geometry.ErrInvalidParameter)
	}
	return extent, nil
}
