package route

import (
	"math"

	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/golang/geo/s1"
	"honnef.co/go/curve"
)

// segment is a straight run between two kept path points, trimmed by the
// bends at either end.
type segment struct {
	from, to curve.Point
	dir      curve.Vec2
	length   float64
	startLen float64 // emitted length at from
}

// bend is a circular arc of the configured radius.
type bend struct {
	start    curve.Point
	dir      curve.Vec2 // heading at start
	sweep    float64    // signed, positive turns left
	startLen float64
}

func (b bend) center(r float64) curve.Point {
	left := curve.Vec(-b.dir.Y, b.dir.X)
	return b.start.Translate(left.Mul(math.Copysign(r, b.sweep)))
}

// at returns the point and heading a fraction t along the arc.
func (b bend) at(r, t float64) (curve.Point, curve.Vec2) {
	c := b.center(r)
	g0 := b.start.Sub(c).Angle()
	pos := c.Translate(curve.VecFromAngle(g0 + t*b.sweep).Mul(r))
	dir := curve.VecFromAngle(b.dir.Angle() + t*b.sweep)
	return pos, dir
}

func (b bend) arc(r float64) curve.Arc {
	c := b.center(r)
	return curve.Arc{
		Center:     c,
		Radii:      curve.Vec(r, r),
		StartAngle: b.start.Sub(c).Angle(),
		SweepAngle: b.sweep,
	}
}

// turn returns the signed angle from u to v.
func turn(u, v curve.Vec2) s1.Angle {
	return s1.Angle(math.Atan2(u.Cross(v), u.Dot(v))) * s1.Radian
}

// leadOut computes the arc leaving port p tangentially and turning until it
// faces target. It fails when target lies inside the bend circle.
func leadOut(p kernel.Port, target curve.Point, r float64) (tangent curve.Point, sweep float64, ok bool) {
	d := p.Dir
	s := 1.0
	if d.Cross(target.Sub(p.Pos)) < 0 {
		s = -1
	}
	left := curve.Vec(-d.Y, d.X)
	center := p.Pos.Translate(left.Mul(s * r))
	cv := target.Sub(center)
	dist := cv.Hypot()
	if dist <= r+eps {
		return curve.Point{}, 0, false
	}
	ta := cv.Angle() - s*math.Acos(r/dist)
	tangent = center.Translate(curve.VecFromAngle(ta).Mul(r))

	sweep = math.Mod(s*(ta-p.Pos.Sub(center).Angle()), 2*math.Pi)
	if sweep < 0 {
		sweep += 2 * math.Pi
	}
	return tangent, s * sweep, true
}

// flush turns the pending path into straights and bends. The last pending
// waypoint is the end of the flush; the returned state resumes there,
// heading along the final straight.
func (c *compilation) flush(st routeState) (routeState, error) {
	pts := make([]waypoint, 0, len(st.pending)+1)
	pts = append(pts, waypoint{pos: st.start.Pos, node: st.startNode})
	pts = append(pts, st.pending...)
	last := len(pts) - 1
	end := pts[last]

	// Nothing to fill: the node sits exactly on the anchor.
	if last == 1 && end.pos.Distance(pts[0].pos) < eps {
		c.res.NodeLengths[end.node] = st.length
		if err := c.decorate(st, end.node, end.pos, end.pos, end.pos, st.start.Dir); err != nil {
			return st, err
		}
		st.start = kernel.Port{Pos: end.pos, Dir: st.start.Dir}
		st.startNode = end.node
		st.pending = nil
		return st, nil
	}
	for k := 1; k <= last; k++ {
		if pts[k].pos.Distance(pts[k-1].pos) < eps {
			return st, degenerate(pts[k].node, "coincides with the previous point")
		}
	}

	r := c.cfg.R
	tol := c.cfg.CollinearTolerance

	var lead *bend
	if st.fixed {
		d := st.start.Dir
		v := pts[1].pos.Sub(pts[0].pos)
		if math.Abs(d.Cross(v)) > tol || d.Dot(v) < 0 {
			if err := c.checkRadius(pts[1].node); err != nil {
				return st, err
			}
			t, sweep, ok := leadOut(st.start, pts[1].pos, r)
			if !ok {
				return st, degenerate(pts[1].node, "lies inside the bend circle leaving node %d", st.startNode)
			}
			lead = &bend{start: st.start.Pos, dir: d, sweep: sweep}
			pts[0] = waypoint{pos: t, node: st.startNode}
		}
	}

	// Drop interior points within tolerance of the chord of their neighbours.
	kept := []int{0}
	onSeg := make([]int, len(pts))
	for k := 1; k < last; k++ {
		prev := pts[kept[len(kept)-1]].pos
		p, next := pts[k].pos, pts[k+1].pos
		chord := next.Sub(prev)
		if chord.Hypot() < eps {
			return st, degenerate(pts[k+1].node, "path returns onto node %d", pts[kept[len(kept)-1]].node)
		}
		onSeg[k] = len(kept) - 1
		dev := math.Abs(chord.Cross(p.Sub(prev))) / chord.Hypot()
		if dev <= tol {
			if p.Sub(prev).Dot(next.Sub(p)) < 0 {
				return st, degenerate(pts[k].node, "path reverses direction")
			}
			continue
		}
		kept = append(kept, k)
	}
	onSeg[last] = len(kept) - 1
	kept = append(kept, last)

	// Corner angles and the cut each bend takes out of its two straights.
	nk := len(kept)
	angles := make([]float64, nk)
	cuts := make([]float64, nk)
	for j := 1; j < nk-1; j++ {
		u := pts[kept[j]].pos.Sub(pts[kept[j-1]].pos)
		v := pts[kept[j+1]].pos.Sub(pts[kept[j]].pos)
		theta := turn(u, v)
		if err := c.checkRadius(pts[kept[j]].node); err != nil {
			return st, err
		}
		angles[j] = theta.Radians()
		cuts[j] = r * math.Tan(math.Abs(theta.Radians())/2)
	}

	segs := make([]segment, nk-1)
	for j := range segs {
		a, b := pts[kept[j]].pos, pts[kept[j+1]].pos
		u := b.Sub(a).Normalize()
		l := a.Distance(b) - cuts[j] - cuts[j+1]
		if l < -eps {
			return st, degenerate(pts[kept[j+1]].node,
				"straight of %.6g to node %d is too short for its bends (needs %.6g)",
				a.Distance(b), pts[kept[j+1]].node, cuts[j]+cuts[j+1])
		}
		segs[j] = segment{
			from:   a.Translate(u.Mul(cuts[j])),
			to:     b.Translate(u.Mul(-cuts[j+1])),
			dir:    u,
			length: max(l, 0),
		}
	}

	var err error
	if lead != nil {
		lead.startLen = st.length
		if st, err = c.emitBend(st, st.startNode, *lead); err != nil {
			return st, err
		}
	}
	bends := make([]bend, nk)
	for j := range segs {
		segs[j].startLen = st.length
		if st, err = c.emitStraight(st, pts[kept[j+1]].node, segs[j]); err != nil {
			return st, err
		}
		if j+1 < nk-1 {
			bends[j+1] = bend{start: segs[j].to, dir: segs[j].dir, sweep: angles[j+1], startLen: st.length}
			if st, err = c.emitBend(st, pts[kept[j+1]].node, bends[j+1]); err != nil {
				return st, err
			}
		}
	}

	// Node lengths and airbridges, now that every piece has its length.
	corner := make(map[int]int, nk)
	for j := 1; j < nk-1; j++ {
		corner[kept[j]] = j
	}
	depart := func(k int) curve.Point {
		if j, ok := corner[k]; ok {
			return segs[j].from
		}
		if k == 0 {
			return segs[0].from
		}
		return pts[k].pos
	}
	for k := 1; k <= last; k++ {
		node := pts[k].node
		if j, ok := corner[k]; ok {
			b := bends[j]
			c.res.NodeLengths[node] = b.startLen + r*math.Abs(b.sweep)/2
			pos, dir := b.at(r, 0.5)
			if err := c.decorate(st, node, depart(k-1), segs[j-1].to, pos, dir); err != nil {
				return st, err
			}
			continue
		}
		s := segs[onSeg[k]]
		along := min(max(pts[k].pos.Sub(s.from).Dot(s.dir), 0), s.length)
		c.res.NodeLengths[node] = s.startLen + along
		if err := c.decorate(st, node, depart(k-1), pts[k].pos, pts[k].pos, s.dir); err != nil {
			return st, err
		}
	}

	c.log.Debug("path flushed",
		"from", st.startNode,
		"to", end.node,
		"points", len(pts),
		"bends", nk-2+boolInt(lead != nil))

	st.start = kernel.Port{Pos: end.pos, Dir: segs[len(segs)-1].dir}
	st.startNode = end.node
	st.fixed = true
	st.pending = nil
	return st, nil
}

func (c *compilation) checkRadius(node int) error {
	r := c.cfg.R
	if r <= 0 {
		return degenerate(node, "a turn is required but the bend radius is %g", r)
	}
	if r <= c.cfg.A/2+c.cfg.B {
		return degenerate(node, "bend radius %g is smaller than the waveguide half width", r)
	}
	return nil
}

func (c *compilation) emitStraight(st routeState, node int, s segment) (routeState, error) {
	if s.length <= eps {
		return st, nil
	}
	p := c.params(st)
	p.Length = s.length
	cell, err := element.Straight(c.f, p)
	if err != nil {
		return st, degenerate(node, "straight: %v", err)
	}
	c.place(node, element.KindStraight, cell, kernel.R(kernel.Direction(s.dir), curve.Vec2(s.from)), s.length)
	c.res.path.LineTo(s.from)
	c.res.path.LineTo(s.to)
	return st.emit(node, s.length)
}

func (c *compilation) emitBend(st routeState, node int, b bend) (routeState, error) {
	r := c.cfg.R
	p := c.params(st)
	p.Alpha = b.sweep
	cell, err := element.Curve(c.f, p)
	if err != nil {
		return st, degenerate(node, "bend: %v", err)
	}
	length := r * math.Abs(b.sweep)
	c.place(node, element.KindCurve, cell, kernel.R(kernel.Direction(b.dir), curve.Vec2(b.start)), length)
	c.res.Bends++

	c.res.path.LineTo(b.start)
	first := true
	for el := range b.arc(r).PathElements(c.cfg.ArcTolerance) {
		if first {
			first = false
			continue
		}
		c.res.path.Push(el)
	}
	return st.emit(node, length)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
