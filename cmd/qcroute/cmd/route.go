package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/engine"
	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/chazu/qcircuits/pkg/kernel/sdfx"
	"github.com/chazu/qcircuits/pkg/nodefmt"
	"github.com/chazu/qcircuits/pkg/route"
	"github.com/chazu/qcircuits/pkg/tessellate"
	"github.com/spf13/cobra"
	"honnef.co/go/curve"
)

var (
	dxfPath        string
	svgPath        string
	centerlinePath string
	exportLayers   []string
	jsonOutput     bool
)

var routeCmd = &cobra.Command{
	Use:   "route <file>",
	Short: "Compile the waveguides described in a node listing or route script",
	Long: `Compile waveguides and print their length, placements and ports.

A .nodes or .txt file holds one tuple listing and yields a single route
named after the file. A .zy or .lisp file is a route script that may
define any number of waveguides and fixed-length bends.

Examples:
  qcroute route feedline.nodes
  qcroute route chip.zy --dxf chip.dxf --layer 1t1_base_metal_gap_wo_grid
  qcroute route chip.zy --centerline chip_cl.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringVar(&dxfPath, "dxf", "", "write mask layers as DXF")
	routeCmd.Flags().StringVar(&svgPath, "svg", "", "write mask layers as SVG")
	routeCmd.Flags().StringVar(&centerlinePath, "centerline", "", "write route centre lines as SVG")
	routeCmd.Flags().StringSliceVarP(&exportLayers, "layer", "l", nil,
		"export only these layers (default: export.layers from config, else all)")
	routeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print a JSON report instead of text")
}

func runRoute(cmd *cobra.Command, args []string) error {
	filename := args[0]
	logger.Debug("loading routes", "file", filename)
	out := cmd.OutOrStdout()

	if jsonOutput {
		return runRouteJSON(out, filename)
	}

	d, err := loadDesign(filename)
	if err != nil {
		return err
	}
	for _, w := range d.Warnings {
		logger.Warn(w.Message, "route", w.Route)
	}

	results, err := d.Compile(newRouter())
	if err != nil {
		return err
	}

	for i, rt := range d.Routes() {
		printResult(out, rt.Name, results[i])
	}

	if dxfPath != "" || svgPath != "" {
		if err := exportRegions(out, results); err != nil {
			return err
		}
	}
	if centerlinePath != "" {
		if err := writeCenterlines(centerlinePath, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", centerlinePath)
	}
	return nil
}

// runRouteJSON prints a Report. Failures are reported in the JSON and also
// returned so the exit status reflects them.
func runRouteJSON(out io.Writer, filename string) error {
	report := newReport()
	err := func() error {
		d, err := loadDesign(filename)
		var se *scriptError
		if errors.As(err, &se) {
			report.addErrors(se.errs)
			return err
		}
		if err != nil {
			report.addError(err)
			return err
		}
		report.addWarnings(d.Warnings)
		results, err := d.Compile(newRouter())
		if err != nil {
			report.addError(err)
			return err
		}
		report.addRoutes(d, results)
		return nil
	}()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		return encErr
	}
	return err
}

// scriptError carries the line-tagged errors of a failed script.
type scriptError struct {
	file string
	errs []engine.EvalError
}

func (e *scriptError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, ee := range e.errs {
		msgs[i] = fmt.Sprintf("%s: %s", e.file, ee.Error())
	}
	return strings.Join(msgs, "\n")
}

// loadDesign reads a node listing or a route script, chosen by extension.
func loadDesign(filename string) (*engine.Design, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".nodes", ".txt":
		p, err := nodefmt.NewParser(nil)
		if err != nil {
			return nil, err
		}
		nodes, err := p.ParseFile(filename)
		if err != nil {
			return nil, err
		}
		d := engine.NewDesign()
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		if err := d.Add(&engine.Route{Name: name, Kind: engine.RouteWaveguide, Nodes: nodes}); err != nil {
			return nil, err
		}
		return d, nil

	case ".zy", ".lisp":
		src, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		eng := engine.NewEngine()
		eng.Timeout = cfg.Engine.Timeout
		d, evalErrs, err := eng.Evaluate(string(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if len(evalErrs) > 0 {
			return nil, &scriptError{file: filename, errs: evalErrs}
		}
		return d, nil
	}
	return nil, fmt.Errorf("%s: unknown file type (want .nodes, .txt, .zy or .lisp)", filename)
}

func printResult(out io.Writer, name string, res *route.Result) {
	fmt.Fprintf(out, "Route %s\n", name)
	if res.Cell == nil {
		fmt.Fprintf(out, "  (empty)\n\n")
		return
	}
	fmt.Fprintf(out, "  length:     %.6f\n", res.Length)
	fmt.Fprintf(out, "  bends:      %d\n", res.Bends)
	fmt.Fprintf(out, "  end:        %s on %s\n", res.Impedance, res.Face)

	counts := make(map[element.Kind]int)
	for _, p := range res.Placements {
		counts[p.Kind]++
	}
	kinds := make([]element.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s x%d", k, counts[k])
	}
	fmt.Fprintf(out, "  placements: %s\n", strings.Join(parts, ", "))

	names := make([]string, 0, len(res.Ports))
	for n := range res.Ports {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		p := res.Ports[n]
		fmt.Fprintf(out, "  port %-6s %s dir %s\n", n, fmtPoint(p.Pos), fmtPoint(curve.Point(p.Dir)))
	}
	fmt.Fprintln(out)
}

// fmtPoint prints p rounded to 1e-6, without negative zeros.
func fmtPoint(p curve.Point) string {
	r := func(v float64) float64 { return math.Round(v*1e6)/1e6 + 0 }
	return fmt.Sprintf("(%g, %g)", r(p.X), r(p.Y))
}

// exportRegions realizes the selected layers of all routes and writes one
// file per layer and format.
func exportRegions(out io.Writer, results []*route.Result) error {
	top := kernel.NewCell("top")
	for _, res := range results {
		if res.Cell != nil {
			top.Insert(res.Cell, kernel.Identity)
		}
	}

	names := exportLayers
	if len(names) == 0 {
		names = cfg.Export.Layers
	}
	layers := make([]kernel.Layer, len(names))
	for i, n := range names {
		layers[i] = kernel.Layer(n)
	}

	k := sdfx.New()
	k.MeshCells = cfg.Export.MeshCells
	regions, err := tessellate.Tessellate(top, k, layers...)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return fmt.Errorf("no geometry on the selected layers")
	}

	for _, r := range regions {
		logger.Debug("exporting layer", "layer", r.Layer, "polygons", r.Polygons)
		if dxfPath != "" {
			p := layerPath(dxfPath, r.Layer, len(regions))
			if err := k.ToDXF(r.Solid, p); err != nil {
				return fmt.Errorf("export %s: %w", p, err)
			}
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
		if svgPath != "" {
			p := layerPath(svgPath, r.Layer, len(regions))
			if err := k.ToSVG(r.Solid, p); err != nil {
				return fmt.Errorf("export %s: %w", p, err)
			}
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
	}
	return nil
}

// layerPath inserts the layer name before the extension when more than one
// layer is written.
func layerPath(path string, layer kernel.Layer, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + string(layer) + ext
}

// writeCenterlines draws every route's centre line into one SVG document
// with y pointing up.
func writeCenterlines(path string, results []*route.Result) error {
	var bb curve.Rect
	first := true
	for _, res := range results {
		cl := res.Centerline()
		if len(cl) == 0 {
			continue
		}
		if first {
			bb, first = cl.BoundingBox(), false
		} else {
			bb = bb.Union(cl.BoundingBox())
		}
	}
	if first {
		return fmt.Errorf("no centre lines to write")
	}

	const margin = 10
	x0 := int(math.Floor(bb.X0)) - margin
	y0 := int(math.Floor(-bb.Y1)) - margin
	w := int(math.Ceil(bb.X1)) + margin - x0
	h := int(math.Ceil(-bb.Y0)) + margin - y0

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	canvas := svg.New(f)
	canvas.Startview(w, h, x0, y0, w, h)
	canvas.Gtransform("scale(1,-1)")
	for i, res := range results {
		if cl := res.Centerline(); len(cl) > 0 {
			style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", routeColor(i))
			canvas.Path(cl.SVG(curve.SVGOptions{MaxPrecision: 6}), style)
		}
	}
	canvas.Gend()
	canvas.End()
	return f.Close()
}
