// Package route compiles waypoint sequences into composite coplanar
// waveguides and solves templated sequences for a target length.
//
// A route is a slice of Nodes. Compile walks it once, threading a routeState
// by value: plain waypoints accumulate into a pending path, and every node
// that inserts something (an element, a taper on an impedance change, a
// flip-chip connector on a face change) first flushes the pending path into
// straights and automatic bends.
package route

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// eps is the distance below which two points coincide.
const eps = 1e-9

// Router compiles node sequences against a configuration and a cell factory.
type Router struct {
	Config  Config
	Factory kernel.Factory
	Logger  *slog.Logger
}

// New returns a router. A nil logger discards debug output.
func New(cfg Config, f kernel.Factory, logger *slog.Logger) *Router {
	return &Router{Config: cfg, Factory: f, Logger: logger}
}

func (r *Router) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// compilation holds the outputs of one Compile call.
type compilation struct {
	cfg   Config
	f     kernel.Factory
	log   *slog.Logger
	nodes []Node
	res   *Result
}

// Compile turns nodes into placed geometry. Fewer than two nodes yield an
// empty result. On error no partial result is returned.
func (r *Router) Compile(nodes []Node) (*Result, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(nodes) < 2 {
		return &Result{
			Ports:       map[string]kernel.Port{},
			NodeLengths: make([]float64, len(nodes)),
			Impedance:   Impedance{A: cfg.A, B: cfg.B},
			Face:        cfg.Face,
		}, nil
	}
	if r.Factory == nil {
		return nil, configErr(-1, "router has no cell factory")
	}
	if err := cfg.validateNodes(nodes); err != nil {
		return nil, err
	}

	c := &compilation{
		cfg:   cfg,
		f:     r.Factory,
		log:   r.logger(),
		nodes: nodes,
		res: &Result{
			Ports:       map[string]kernel.Port{},
			NodeLengths: make([]float64, len(nodes)),
		},
	}
	st, err := c.begin()
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(nodes); i++ {
		if st, err = c.visit(st, i); err != nil {
			return nil, err
		}
	}
	if st, err = c.finish(st); err != nil {
		return nil, err
	}
	return c.result(st), nil
}

// begin sets up the state at node 0. Its impedance and face options set the
// starting profile instead of inserting a transition.
func (c *compilation) begin() (routeState, error) {
	n0 := c.nodes[0]
	st := routeState{
		impedance: Impedance{A: c.cfg.A, B: c.cfg.B},
		face:      c.cfg.Face,
	}
	if n0.Impedance != nil {
		st.impedance = *n0.Impedance
	}
	if n0.Face != "" {
		st.face = n0.Face
	}

	d := c.nodes[1].Position.Sub(n0.Position)
	if d.Hypot() < eps {
		return st, degenerate(1, "coincides with node 0")
	}
	dir := d.Normalize()
	st.start = kernel.Port{Pos: n0.Position, Dir: dir}
	c.res.Ports["a"] = kernel.Port{Pos: n0.Position, Dir: dir.Negate()}
	c.res.path.MoveTo(n0.Position)

	if n0.inline() {
		return c.insert(st, 0)
	}
	if c.cfg.Term1 > 0 {
		if err := c.terminate(st, 0, c.cfg.Term1, n0.Position, dir); err != nil {
			return st, err
		}
	}
	if n0.across() {
		if err := c.bridge(st, 0, n0.Position, dir); err != nil {
			return st, err
		}
	}
	return st, nil
}

// acts reports whether node n forces a flush given the current state.
func (c *compilation) acts(st routeState, n Node) bool {
	return n.inline() ||
		(n.Impedance != nil && *n.Impedance != st.impedance) ||
		(n.Face != "" && n.Face != st.face)
}

func (c *compilation) visit(st routeState, i int) (routeState, error) {
	n := c.nodes[i]
	w := waypoint{pos: n.Position, node: i}
	if !c.acts(st, n) {
		if n.Position.Distance(st.lastPoint()) < eps {
			return st, degenerate(i, "coincides with the previous node")
		}
		return st.extend(w), nil
	}

	st, err := c.flush(st.extend(w))
	if err != nil {
		return st, err
	}
	if n.Face != "" && n.Face != st.face {
		if st, err = c.flipChip(st, i, n.Face); err != nil {
			return st, err
		}
	}
	if n.Impedance != nil && *n.Impedance != st.impedance {
		if st, err = c.taper(st, i, *n.Impedance); err != nil {
			return st, err
		}
	}
	if n.inline() {
		return c.insert(st, i)
	}
	return st, nil
}

func (c *compilation) finish(st routeState) (routeState, error) {
	var err error
	if len(st.pending) > 0 {
		if st, err = c.flush(st); err != nil {
			return st, err
		}
	}
	last := len(c.nodes) - 1
	c.res.Ports["b"] = st.start
	if c.cfg.Term2 > 0 && !c.nodes[last].inline() {
		if err := c.terminate(st, last, c.cfg.Term2, st.start.Pos, st.start.Dir.Negate()); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (c *compilation) result(st routeState) *Result {
	res := c.res
	res.Length = st.length
	res.Impedance = st.impedance
	res.Face = st.face
	res.Cell = c.f.NewCell("WaveguideComposite")
	for _, p := range res.Placements {
		res.Cell.Insert(p.Cell, p.Trans)
	}
	for name, p := range res.Ports {
		res.Cell.SetPort(name, p)
	}
	res.Cell.Length = st.length
	c.log.Debug("route compiled",
		"nodes", len(c.nodes),
		"placements", len(res.Placements),
		"bends", res.Bends,
		"length", res.Length)
	return res
}

// params returns the element parameters implied by the current state.
func (c *compilation) params(st routeState) element.Params {
	return element.Params{
		A:         st.impedance.A,
		B:         st.impedance.B,
		Face:      st.face,
		R:         c.cfg.R,
		Tolerance: c.cfg.ArcTolerance,
	}
}

func (c *compilation) place(node int, kind element.Kind, cell *kernel.Cell, t kernel.Trans, length float64) {
	c.res.Placements = append(c.res.Placements, Placement{
		Node:   node,
		Kind:   kind,
		Cell:   cell,
		Trans:  t,
		Length: length,
	})
}

// orient returns the transform putting cell's port at pos facing outward.
func orient(cell *kernel.Cell, port string, pos curve.Point, outward curve.Vec2) (kernel.Trans, error) {
	p, ok := cell.Port(port)
	if !ok {
		return kernel.Identity, fmt.Errorf("%w: %s has no %s", element.ErrMissingPort, cell.Name, port)
	}
	t := kernel.R(kernel.Direction(outward)-kernel.Direction(p.Dir), curve.Vec2{})
	t.Disp = pos.Sub(t.Apply(p.Pos))
	return t, nil
}

// insertCell places cell with its in port on the current anchor, accounts
// for its in-to-out signal length and resumes from its out port.
func (c *compilation) insertCell(st routeState, node int, kind element.Kind, cell *kernel.Cell, in, out string) (routeState, kernel.Trans, error) {
	for _, port := range []string{in, out} {
		if _, ok := cell.Port(port); !ok {
			return st, kernel.Identity, &ConfigurationError{
				Node:   node,
				Port:   port,
				Reason: fmt.Sprintf("%s does not expose this port", kind),
				Err:    element.ErrMissingPort,
			}
		}
	}
	t, err := orient(cell, in, st.start.Pos, st.start.Dir.Negate())
	if err != nil {
		return st, t, err
	}
	exitLocal, _ := cell.Port(out)
	exit := t.ApplyPort(exitLocal)
	length := cell.PathLength(in, out)

	c.place(node, kind, cell, t, length)
	c.res.path.LineTo(st.start.Pos)
	if cell.Junction != nil {
		c.res.path.LineTo(t.Apply(*cell.Junction))
	}
	c.res.path.LineTo(exit.Pos)

	if st, err = st.emit(node, length); err != nil {
		return st, t, err
	}
	return st.resume(exit, node), t, nil
}

func (c *compilation) elementErr(node int, ref element.Ref, err error) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigurationError{Node: node, Reason: "building " + ref.Name, Err: err}
}

// insert places the inline element of node i.
func (c *compilation) insert(st routeState, i int) (routeState, error) {
	n := c.nodes[i]
	ref := n.Element
	switch ref.Kind {
	case element.KindSplitter:
		return c.splitter(st, i)
	case element.KindAirbridgeConnection:
		return c.airbridgeConnection(st, i)
	}

	p, err := c.params(st).Apply(ref.Kind, n.Overrides())
	if err != nil {
		return st, c.elementErr(i, ref, err)
	}
	switch ref.Kind {
	case element.KindTaper:
		if p.Length == 0 {
			p.Length = c.cfg.TaperLength
		}
	case element.KindFlipChipConnector:
		if p.Length == 0 {
			p.Length = c.cfg.FlipChipLength
		}
		if p.Face2, err = c.targetFace(st, n); err != nil {
			return st, &ConfigurationError{Node: i, Reason: "flip-chip target", Err: err}
		}
	}
	cell, err := ref.Cell(c.f, p)
	if err != nil {
		return st, c.elementErr(i, ref, err)
	}
	in, out := n.Align()
	if st, _, err = c.insertCell(st, i, ref.Kind, cell, in, out); err != nil {
		return st, err
	}
	switch ref.Kind {
	case element.KindTaper:
		st.impedance = Impedance{A: p.A2, B: p.B2}
	case element.KindFlipChipConnector:
		st.face = p.Face2
	}
	c.log.Debug("element inserted", "node", i, "element", ref.Name, "length", cell.PathLength(in, out))
	return st, nil
}

func (c *compilation) targetFace(st routeState, n Node) (string, error) {
	if d, ok := n.Data.(FlipChipData); ok && d.Face != "" {
		return d.Face, nil
	}
	return c.cfg.otherFace(st.face)
}

// taper inserts an impedance taper from the current profile to z.
func (c *compilation) taper(st routeState, i int, z Impedance) (routeState, error) {
	p := c.params(st)
	p.A2, p.B2 = z.A, z.B
	p.Length = c.cfg.TaperLength
	cell, err := element.Taper(c.f, p)
	if err != nil {
		return st, &ConfigurationError{Node: i, Reason: "building taper", Err: err}
	}
	if st, _, err = c.insertCell(st, i, element.KindTaper, cell, element.PortA, element.PortB); err != nil {
		return st, err
	}
	c.log.Debug("taper inserted", "node", i, "from", st.impedance, "to", z)
	st.impedance = z
	return st, nil
}

// flipChip inserts a connector moving the route to face.
func (c *compilation) flipChip(st routeState, i int, face string) (routeState, error) {
	p := c.params(st)
	p.Face2 = face
	p.Length = c.cfg.FlipChipLength
	cell, err := element.FlipChipConnector(c.f, p)
	if err != nil {
		return st, &ConfigurationError{Node: i, Reason: "building flip-chip connector", Err: err}
	}
	if st, _, err = c.insertCell(st, i, element.KindFlipChipConnector, cell, element.PortA, element.PortB); err != nil {
		return st, err
	}
	c.log.Debug("flip-chip connector inserted", "node", i, "from", st.face, "to", face)
	st.face = face
	return st, nil
}

// airbridgeConnection inserts an in-line airbridge, wrapped in tapers when
// the ambient impedance differs from the airbridge's native profile.
func (c *compilation) airbridgeConnection(st routeState, i int) (routeState, error) {
	n := c.nodes[i]
	native := Impedance{A: c.cfg.Airbridge.A, B: c.cfg.Airbridge.B}
	ambient := st.impedance
	wrap := native != ambient

	var err error
	if wrap {
		if st, err = c.taper(st, i, native); err != nil {
			return st, err
		}
	}
	p := c.params(st)
	p.Bridge = c.cfg.Airbridge.Bridge
	if p, err = p.Apply(n.Element.Kind, n.Overrides()); err != nil {
		return st, c.elementErr(i, n.Element, err)
	}
	cell, err := n.Element.Cell(c.f, p)
	if err != nil {
		return st, c.elementErr(i, n.Element, err)
	}
	in, out := n.Align()
	if st, _, err = c.insertCell(st, i, element.KindAirbridgeConnection, cell, in, out); err != nil {
		return st, err
	}
	if wrap {
		return c.taper(st, i, ambient)
	}
	return st, nil
}

// splitter inserts a multi-port junction, continues through the aligned
// ports and records the remaining ports as stubs.
func (c *compilation) splitter(st routeState, i int) (routeState, error) {
	n := c.nodes[i]
	p := c.params(st)
	p.Angles, p.Lengths = c.cfg.Splitter.Angles, c.cfg.Splitter.Lengths
	if d, ok := n.Data.(SplitterData); ok && len(d.Angles) > 0 {
		p.Angles, p.Lengths = d.Angles, d.Lengths
	}
	cell, err := n.Element.Cell(c.f, p)
	if err != nil {
		return st, c.elementErr(i, n.Element, err)
	}
	in, out := n.Align()
	st, t, err := c.insertCell(st, i, element.KindSplitter, cell, in, out)
	if err != nil {
		return st, err
	}
	label := n.Name
	if label == "" {
		label = fmt.Sprintf("n%d", i)
	}
	for _, name := range cell.PortNames() {
		if name == in || name == out {
			continue
		}
		port, _ := cell.Port(name)
		c.res.Ports[label+"_"+name] = t.ApplyPort(port)
	}
	return st, nil
}

// terminate places an open-end stub of length l at pos. outward points back
// into the route; the etched gap extends the other way.
func (c *compilation) terminate(st routeState, node int, l float64, pos curve.Point, outward curve.Vec2) error {
	p := c.params(st)
	p.Length = l
	cell, err := element.Termination(c.f, p)
	if err != nil {
		return &ConfigurationError{Node: node, Reason: "building termination", Err: err}
	}
	t, err := orient(cell, element.PortA, pos, outward)
	if err != nil {
		return err
	}
	c.place(node, element.KindTermination, cell, t, 0)
	return nil
}
