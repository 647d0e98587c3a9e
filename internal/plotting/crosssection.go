// Package plotting renders detector geometry for inspection.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/detgeom/internal/geometry"
	"github.com/banshee-data/detgeom/internal/monitoring"
)

// Options control a cross-section rendering.
type Options struct {
	Title  string
	Size   vg.Length // edge length of the square image, default 8in
	Points []r3.Vec  // query positions to mark, projected onto x-y
}

var gapColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}

var errNoPath = errors.New("plotting: no output path")

// RenderCrossSection draws the x-y view of an initialised geometry: the
// inner and outer edge of every sub-detector, concentric gap outlines, box
// gap footprints and the optional query points. The image format follows
// the extension of path (.png, .svg, .pdf, ...).
func RenderCrossSection(g *geometry.Geometry, opts Options, path string) error {
	if path == "" {
		return errNoPath
	}
	if !g.IsInitialized() {
		return geometry.ErrNotInitialized
	}
	gaps, err := g.GetDetectorGapList()
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Geometry %s (x-y)", g.ID())
	}
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Add(plotter.NewGrid())

	sections := initializedSections(g)
	colors := generateColors(len(sections))
	extent := 0.0
	for i, s := range sections {
		for _, e := range s.edges() {
			line, r, err := outline(e.symmetryOrder, e.phi, e.r)
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			if e.inner {
				p.Legend.Add(s.name, line)
			}
			extent = math.Max(extent, r)
		}
	}

	for i, gap := range gaps {
		switch gap := gap.(type) {
		case *geometry.ConcentricGap:
			params := gap.Parameters()
			for _, e := range []edge{
				{r: params.InnerRCoordinate, phi: params.InnerPhiCoordinate, symmetryOrder: params.InnerSymmetryOrder},
				{r: params.OuterRCoordinate, phi: params.OuterPhiCoordinate, symmetryOrder: params.OuterSymmetryOrder},
			} {
				line, _, err := outline(e.symmetryOrder, e.phi, e.r)
				if err != nil {
					return fmt.Errorf("concentric gap %d: %w", i, err)
				}
				dashed(line)
				p.Add(line)
			}
		case *geometry.BoxGap:
			line, err := plotter.NewLine(closed(footprint(gap.Parameters())))
			if err != nil {
				return fmt.Errorf("box gap %d: %w", i, err)
			}
			dashed(line)
			p.Add(line)
		}
	}

	if len(opts.Points) > 0 {
		xys := make(plotter.XYs, len(opts.Points))
		for i, pos := range opts.Points {
			xys[i] = plotter.XY{X: pos.X, Y: pos.Y}
			extent = math.Max(extent, math.Max(math.Abs(pos.X), math.Abs(pos.Y)))
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Color = color.Black
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("query", scatter)
	}

	if extent == 0 {
		extent = 1
	}
	extent *= 1.05
	p.X.Min, p.X.Max = -extent, extent
	p.Y.Min, p.Y.Max = -extent, extent
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	size := opts.Size
	if size <= 0 {
		size = 8 * vg.Inch
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("failed to save cross section: %w", err)
	}
	monitoring.Logf("[Plotting] id=%s cross section sections=%d gaps=%d points=%d path=%s",
		g.ID(), len(sections), len(gaps), len(opts.Points), path)
	return nil
}

type edge struct {
	inner         bool
	r, phi        float64
	symmetryOrder uint
}

type section struct {
	name         string
	inner, outer edge
}

func (s section) edges() [2]edge { return [2]edge{s.inner, s.outer} }

// initializedSections lists the canonical sections, then the additional
// ones in name order, skipping any that were not configured.
func initializedSections(g *geometry.Geometry) []section {
	var params []*geometry.SubDetectorParameters
	for _, t := range geometry.SubDetectorTypes() {
		if p, err := g.GetSubDetectorParameters(t); err == nil && p.IsInitialized() {
			params = append(params, p)
		}
	}
	additional, _ := g.GetAdditionalSubDetectors()
	names := make([]string, 0, len(additional))
	for name := range additional {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params = append(params, additional[name])
	}

	sections := make([]section, 0, len(params))
	for _, p := range params {
		s := section{name: p.Name()}
		s.inner.inner = true
		s.inner.r, _ = p.GetInnerRCoordinate()
		s.inner.phi, _ = p.GetInnerPhiCoordinate()
		s.inner.symmetryOrder, _ = p.GetInnerSymmetryOrder()
		s.outer.r, _ = p.GetOuterRCoordinate()
		s.outer.phi, _ = p.GetOuterPhiCoordinate()
		s.outer.symmetryOrder, _ = p.GetOuterSymmetryOrder()
		sections = append(sections, s)
	}
	return sections
}

// outline returns a closed line around the polygon and its circumradius.
func outline(symmetryOrder uint, phi0, radius float64) (*plotter.Line, float64, error) {
	vertices, err := geometry.PolygonVertices(symmetryOrder, phi0, radius)
	if err != nil {
		return nil, 0, err
	}
	circumradius := 0.0
	for _, v := range vertices {
		circumradius = math.Max(circumradius, r2.Norm(v))
	}
	line, err := plotter.NewLine(closed(vertices))
	return line, circumradius, err
}

func closed(vertices []r2.Vec) plotter.XYs {
	if len(vertices) == 0 {
		return nil
	}
	xys := make(plotter.XYs, 0, len(vertices)+1)
	for _, v := range vertices {
		xys = append(xys, plotter.XY{X: v.X, Y: v.Y})
	}
	return append(xys, xys[0])
}

func dashed(line *plotter.Line) {
	line.Color = gapColor
	line.Width = vg.Points(0.75)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
}

// footprint returns the x-y convex hull of a box gap's eight corners.
func footprint(params geometry.BoxGapParameters) []r2.Vec {
	corners := make([]r2.Vec, 0, 8)
	for _, a := range []float64{0, 1} {
		for _, b := range []float64{0, 1} {
			for _, c := range []float64{0, 1} {
				v := r3.Add(params.Vertex, r3.Add(r3.Scale(a, params.Side1), r3.Add(r3.Scale(b, params.Side2), r3.Scale(c, params.Side3))))
				corners = append(corners, r2.Vec{X: v.X, Y: v.Y})
			}
		}
	}
	return convexHull(corners)
}

// convexHull returns the hull of points in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func convexHull(points []r2.Vec) []r2.Vec {
	if len(points) < 3 {
		return points
	}
	sorted := make([]r2.Vec, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b r2.Vec) float64 {
		return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
	}
	hull := make([]r2.Vec, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
