package route

import (
	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// decorate places the airbridges node asks for: n_bridges evenly along the
// edge from -> to at k/(N+1), and one crossing at pos for ab_across.
// Bridges on an edge of zero length would all stack on one point.
func (c *compilation) decorate(st routeState, node int, from, to, pos curve.Point, dir curve.Vec2) error {
	n := c.nodes[node]
	if n.Bridges > 0 {
		if to.Distance(from) < eps {
			return degenerate(node, "n_bridges %d on a zero-length edge", n.Bridges)
		}
		d := to.Sub(from).Normalize()
		for k := 1; k <= n.Bridges; k++ {
			at := from.Lerp(to, float64(k)/float64(n.Bridges+1))
			if err := c.bridge(st, node, at, d); err != nil {
				return err
			}
		}
	}
	if n.across() {
		return c.bridge(st, node, pos, dir)
	}
	return nil
}

// bridge places one airbridge crossing centred on pos, its span transverse
// to dir. Crossings add no signal length.
func (c *compilation) bridge(st routeState, node int, pos curve.Point, dir curve.Vec2) error {
	p := element.Params{Face: st.face, Bridge: c.cfg.Airbridge.Bridge}
	cell, err := element.Airbridge(c.f, p)
	if err != nil {
		return &ConfigurationError{Node: node, Reason: "building airbridge", Err: err}
	}
	c.place(node, element.KindAirbridge, cell, kernel.R(kernel.Direction(dir), curve.Vec2(pos)), 0)
	return nil
}
