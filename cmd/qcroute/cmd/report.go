package cmd

import (
	"github.com/chazu/qcircuits/pkg/engine"
	"github.com/chazu/qcircuits/pkg/route"
)

// colorPalette assigns distinct stroke colors to routes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

func routeColor(i int) string {
	return colorPalette[i%len(colorPalette)]
}

// PortData is a JSON-serializable route port.
type PortData struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	DirX float64 `json:"dir_x"`
	DirY float64 `json:"dir_y"`
}

// PlacementData is a JSON-serializable placed element.
type PlacementData struct {
	Node     int     `json:"node"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Length   float64 `json:"length"`
}

// RouteData is one compiled route.
type RouteData struct {
	Name        string              `json:"name"`
	Length      float64             `json:"length"`
	NodeLengths []float64           `json:"node_lengths"`
	Bends       int                 `json:"bends"`
	Impedance   route.Impedance     `json:"impedance"`
	Face        string              `json:"face"`
	Ports       map[string]PortData `json:"ports"`
	Placements  []PlacementData     `json:"placements"`
	Color       string              `json:"color"`
}

// EvalErrorData is a JSON-serializable script error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Report is the full result printed by `route --json`.
type Report struct {
	Routes   []RouteData     `json:"routes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

func newReport() Report {
	return Report{
		Routes:   []RouteData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// addWarnings converts design warnings to the report format.
func (r *Report) addWarnings(ws []engine.EvalWarning) {
	for _, w := range ws {
		r.Warnings = append(r.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}
}

// addErrors converts script errors to the report format.
func (r *Report) addErrors(errs []engine.EvalError) {
	for _, e := range errs {
		r.Errors = append(r.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
}

// addError records an error without position.
func (r *Report) addError(err error) {
	r.Errors = append(r.Errors, EvalErrorData{Message: err.Error()})
}

// addRoutes converts compiled routes; results line up with d.Routes().
func (r *Report) addRoutes(d *engine.Design, results []*route.Result) {
	for i, rt := range d.Routes() {
		res := results[i]
		data := RouteData{
			Name:        rt.Name,
			Length:      res.Length,
			NodeLengths: res.NodeLengths,
			Bends:       res.Bends,
			Impedance:   res.Impedance,
			Face:        res.Face,
			Ports:       make(map[string]PortData, len(res.Ports)),
			Placements:  make([]PlacementData, 0, len(res.Placements)),
			Color:       routeColor(i),
		}
		for name, p := range res.Ports {
			data.Ports[name] = PortData{X: p.Pos.X, Y: p.Pos.Y, DirX: p.Dir.X, DirY: p.Dir.Y}
		}
		for _, p := range res.Placements {
			data.Placements = append(data.Placements, PlacementData{
				Node:     p.Node,
				Kind:     p.Kind.String(),
				X:        p.Trans.Disp.X,
				Y:        p.Trans.Disp.Y,
				Rotation: p.Trans.Rot.Degrees(),
				Length:   p.Length,
			})
		}
		r.Routes = append(r.Routes, data)
	}
}
