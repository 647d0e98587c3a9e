// Command geometry loads a detector description, initialises the
// process-wide geometry and answers point queries against it.
//
//	geometry -config detector.hujson -point 1850,0,0 -point 0,0,2460 -plot xy.png -layer-map layers.html
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/detgeom/internal/config"
	"github.com/banshee-data/detgeom/internal/geometry"
	"github.com/banshee-data/detgeom/internal/monitoring"
	"github.com/banshee-data/detgeom/internal/plotting"
	"github.com/banshee-data/detgeom/internal/version"
)

// pointList collects repeated -point x,y,z flags.
type pointList []r3.Vec

func (p *pointList) String() string {
	parts := make([]string, len(*p))
	for i, v := range *p {
		parts[i] = fmt.Sprintf("%g,%g,%g", v.X, v.Y, v.Z)
	}
	return strings.Join(parts, " ")
}

func (p *pointList) Set(s string) error {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return fmt.Errorf("point %q: want x,y,z", s)
	}
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return fmt.Errorf("point %q: %w", s, err)
		}
		xyz[i] = v
	}
	*p = append(*p, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "geometry: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("geometry", flag.ContinueOnError)
	configPath := fs.String("config", "", "Geometry config (.json or .hujson); the built-in detector if empty")
	plotPath := fs.String("plot", "", "Write an x-y cross section to this file (.png, .svg, .pdf)")
	mapPath := fs.String("layer-map", "", "Write an HTML pseudolayer map of the x-z plane to this file")
	mapStep := fs.Float64("layer-map-step", 0, "Sampling pitch of -layer-map in mm; 0 picks one from the detector size")
	showGranularity := fs.Bool("granularity", false, "Print the hit type granularity map")
	quiet := fs.Bool("quiet", false, "Suppress diagnostic logging")
	showVersion := fs.Bool("version", false, "Print the version and exit")
	var points pointList
	fs.Var(&points, "point", "Query position x,y,z in mm (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "geometry %s\n", version.String())
		return nil
	}

	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyGranularities(); err != nil {
		return err
	}

	g := geometry.New(cfg.ToSettings())
	if err := geometry.InstallInstance(g); err != nil {
		return err
	}
	defer geometry.ResetInstance()
	if err := geometry.Instance().Initialize(cfg.ToParameters()); err != nil {
		return fmt.Errorf("initialize geometry: %w", err)
	}

	if err := printSummary(stdout, geometry.Instance()); err != nil {
		return err
	}
	if len(points) > 0 {
		if err := printPoints(stdout, geometry.Instance(), points); err != nil {
			return err
		}
	}
	if *showGranularity {
		printGranularities(stdout)
	}
	if *plotPath != "" {
		title := "Built-in detector"
		if *configPath != "" {
			title = *configPath
		}
		if err := plotting.RenderCrossSection(geometry.Instance(), plotting.Options{Title: title, Points: points}, *plotPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cross section written to %s\n", *plotPath)
	}
	if *mapPath != "" {
		if err := writeLayerMap(geometry.Instance(), *mapPath, *mapStep); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "pseudolayer map written to %s\n", *mapPath)
	}
	return nil
}

func writeLayerMap(g *geometry.Geometry, path string, step float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create layer map: %w", err)
	}
	if err := plotting.RenderPseudoLayerMap(g, plotting.LayerMapOptions{Step: step}, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadConfig(path string) (*config.GeometryConfig, error) {
	if path == "" {
		return config.DefaultGeometryConfig()
	}
	return config.LoadGeometryConfig(path)
}

func printSummary(w io.Writer, g *geometry.Geometry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUB DETECTOR\tINNER R\tOUTER R\tINNER Z\tOUTER Z\tLAYERS")
	for _, t := range geometry.SubDetectorTypes() {
		p, err := g.GetSubDetectorParameters(t)
		if err != nil {
			return err
		}
		if !p.IsInitialized() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\n", t)
			continue
		}
		innerR, _ := p.GetInnerRCoordinate()
		outerR, _ := p.GetOuterRCoordinate()
		innerZ, _ := p.GetInnerZCoordinate()
		outerZ, _ := p.GetOuterZCoordinate()
		n, _ := p.GetNLayers()
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%d\n", t, innerR, outerR, innerZ, outerZ, n)
	}
	gaps, err := g.GetDetectorGapList()
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "gaps\t%d\n", len(gaps))
	return tw.Flush()
}

func printPoints(w io.Writer, g *geometry.Geometry, points []r3.Vec) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "X\tY\tZ\tPSEUDOLAYER\tBFIELD\tGAP")
	for _, p := range points {
		layer, err := g.GetPseudoLayer(p)
		if err != nil {
			return fmt.Errorf("pseudolayer at %v: %w", p, err)
		}
		bField, err := g.GetBField(p)
		if err != nil {
			return fmt.Errorf("bfield at %v: %w", p, err)
		}
		fmt.Fprintf(tw, "%g\t%g\t%g\t%d\t%g\t%t\n", p.X, p.Y, p.Z, layer, bField, g.IsInDetectorGapRegion(p))
	}
	return tw.Flush()
}

func printGranularities(w io.Writer) {
	for _, hitType := range []geometry.HitType{geometry.HitTypeTracker, geometry.HitTypeECal, geometry.HitTypeHCal, geometry.HitTypeMuon} {
		g, err := geometry.GetHitTypeGranularity(hitType)
		if err != nil {
			fmt.Fprintf(w, "%s\tunregistered\n", hitType)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", hitType, g)
	}
}
