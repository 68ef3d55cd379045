package engine

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/route"
	"honnef.co/go/curve"
)

// RouteKind distinguishes how a script route is realised.
type RouteKind int

const (
	// RouteWaveguide is an explicit node sequence.
	RouteWaveguide RouteKind = iota
	// RouteFixedBend is a U-bend solved for a target length.
	RouteFixedBend
)

func (k RouteKind) String() string {
	switch k {
	case RouteWaveguide:
		return "Waveguide"
	case RouteFixedBend:
		return "FixedBend"
	}
	return fmt.Sprintf("RouteKind(%d)", int(k))
}

// FixedBend holds the parameters of a fixed-length U-bend.
type FixedBend struct {
	From, FromCorner curve.Point
	To, ToCorner     curve.Point
	Length           float64
	Bridges          int
}

// Route is one named route defined by a script.
type Route struct {
	Name  string
	Kind  RouteKind
	Nodes []route.Node
	Bend  FixedBend
}

// Compile realises the route with r.
func (rt *Route) Compile(r *route.Router) (*route.Result, error) {
	switch rt.Kind {
	case RouteWaveguide:
		return r.Compile(rt.Nodes)
	case RouteFixedBend:
		b := rt.Bend
		sol, err := r.FixedLengthBend(b.From, b.FromCorner, b.To, b.ToCorner, b.Length, b.Bridges)
		if err != nil {
			return nil, err
		}
		return sol.Result, nil
	}
	return nil, fmt.Errorf("route %q: unknown kind %s", rt.Name, rt.Kind)
}

// EvalWarning is a non-fatal finding about a defined route.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Route   string
}

// Design is the set of routes a script defines, in definition order.
type Design struct {
	routes   []*Route
	byName   map[string]*Route
	Warnings []EvalWarning
}

// NewDesign returns an empty design.
func NewDesign() *Design {
	return &Design{byName: make(map[string]*Route)}
}

// Add appends a route. Names must be unique.
func (d *Design) Add(r *Route) error {
	if r.Name == "" {
		return fmt.Errorf("route name must not be empty")
	}
	if _, dup := d.byName[r.Name]; dup {
		return fmt.Errorf("route %q is already defined", r.Name)
	}
	d.routes = append(d.routes, r)
	d.byName[r.Name] = r
	return nil
}

// Lookup returns the route with the given name, or nil.
func (d *Design) Lookup(name string) *Route {
	return d.byName[name]
}

// Routes returns the routes in definition order.
func (d *Design) Routes() []*Route {
	return d.routes
}

// RouteCount returns the number of routes.
func (d *Design) RouteCount() int {
	return len(d.routes)
}

// Compile realises every route in definition order. The first failure
// aborts with the route's name attached.
func (d *Design) Compile(r *route.Router) ([]*route.Result, error) {
	out := make([]*route.Result, 0, len(d.routes))
	for _, rt := range d.routes {
		res, err := rt.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", rt.Name, err)
		}
		out = append(out, res)
	}
	return out, nil
}
