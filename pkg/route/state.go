package route

import (
	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// waypoint is a position on the pending path and the node it came from.
type waypoint struct {
	pos  curve.Point
	node int
}

// routeState is the running state of one compile pass. It is passed and
// returned by value; nothing outside a single Compile call holds it.
type routeState struct {
	impedance Impedance
	face      string

	// start is where the next fill begins; Dir is the direction of travel.
	start     kernel.Port
	startNode int
	// fixed is set when start.Dir is imposed by an element exit port.
	fixed bool

	pending []waypoint

	length float64
}

// emit accounts for l units of signal path.
func (s routeState) emit(node int, l float64) (routeState, error) {
	if l < 0 {
		return s, degenerate(node, "negative path length %g", l)
	}
	s.length += l
	return s, nil
}

// extend appends a plain waypoint to the pending path.
func (s routeState) extend(w waypoint) routeState {
	pending := make([]waypoint, len(s.pending), len(s.pending)+1)
	copy(pending, s.pending)
	s.pending = append(pending, w)
	return s
}

// resume restarts the pending path from an element exit port.
func (s routeState) resume(exit kernel.Port, node int) routeState {
	s.start = exit
	s.startNode = node
	s.fixed = true
	s.pending = nil
	return s
}

// lastPoint returns the most recent point on the path.
func (s routeState) lastPoint() curve.Point {
	if len(s.pending) > 0 {
		return s.pending[len(s.pending)-1].pos
	}
	return s.start.Pos
}

// Placement is one placed sub-element of a compiled route.
type Placement struct {
	Node   int          `json:"node"`
	Kind   element.Kind `json:"kind"`
	Cell   *kernel.Cell `json:"-"`
	Trans  kernel.Trans `json:"trans"`
	Length float64      `json:"length"`
}

// Result is a compiled composite waveguide.
type Result struct {
	// Cell instances every placement; nil for the empty result.
	Cell       *kernel.Cell
	Placements []Placement
	// Ports holds "a" (entry, at node 0), "b" (exit) and splitter stubs
	// named "<name>_<port>". Port directions point out of the route.
	Ports map[string]kernel.Port
	// Length is the total signal path length.
	Length float64
	// NodeLengths[i] is the cumulative length where the route passes node i.
	NodeLengths []float64
	// Impedance and Face are the values active at the route's end.
	Impedance Impedance
	Face      string
	// Bends counts the automatically inserted bends.
	Bends int

	path curve.BezPath
}

// Centerline returns the signal centre line through fills and elements.
func (r *Result) Centerline() curve.BezPath {
	return r.path
}

// Count returns the number of placements of the given kind.
func (r *Result) Count(kind element.Kind) int {
	n := 0
	for _, p := range r.Placements {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the placements of the given kind in placement order.
func (r *Result) Filter(kind element.Kind) []Placement {
	var out []Placement
	for _, p := range r.Placements {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
