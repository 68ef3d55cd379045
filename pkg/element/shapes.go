package element

import (
	"math"

	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

const degToRad = math.Pi / 180

// defaultTolerance is used when Params.Tolerance is unset.
const defaultTolerance = 0.01

func tolerance(p Params) float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return defaultTolerance
}

// gapStrips returns the two gap rectangles of a straight CPW run from x0 to x1.
func gapStrips(a, b, x0, x1 float64) []kernel.Polygon {
	return []kernel.Polygon{
		kernel.Box(x0, a/2, x1, a/2+b),
		kernel.Box(x0, -a/2-b, x1, -a/2),
	}
}

// taperGaps returns the two gap trapezoids of a linear taper of length l.
func taperGaps(a1, b1, a2, b2, l float64) []kernel.Polygon {
	return []kernel.Polygon{
		{curve.Pt(0, a1/2), curve.Pt(l, a2/2), curve.Pt(l, a2/2+b2), curve.Pt(0, a1/2+b1)},
		{curve.Pt(0, -a1/2-b1), curve.Pt(l, -a2/2-b2), curve.Pt(l, -a2/2), curve.Pt(0, -a1/2)},
	}
}

// arcPoints samples the circle of radius r about c from angle start through
// sweep, endpoints included.
func arcPoints(c curve.Point, r, start, sweep, tol float64) []curve.Point {
	arc := curve.Arc{Center: c, Radii: curve.Vec(r, r), StartAngle: start, SweepAngle: sweep}
	var pts []curve.Point
	for el := range curve.Flatten(arc.PathElements(tol), tol) {
		switch el.Kind {
		case curve.MoveToKind, curve.LineToKind:
			pts = append(pts, el.P0)
		}
	}
	end := c.Translate(curve.VecFromAngle(start + sweep).Mul(r))
	if len(pts) == 0 || pts[len(pts)-1].Distance(end) > 1e-9 {
		pts = append(pts, end)
	}
	return pts
}

// annulus returns the ring sector between radii r1 < r2.
func annulus(c curve.Point, r1, r2, start, sweep, tol float64) kernel.Polygon {
	outer := arcPoints(c, r2, start, sweep, tol)
	inner := arcPoints(c, r1, start, sweep, tol)
	poly := make(kernel.Polygon, 0, len(outer)+len(inner))
	poly = append(poly, outer...)
	for i := len(inner) - 1; i >= 0; i-- {
		poly = append(poly, inner[i])
	}
	return poly
}

func twoPorts(c *kernel.Cell, end curve.Point, dir curve.Vec2) {
	c.SetPort(PortA, kernel.Port{Pos: curve.Pt(0, 0), Dir: curve.Vec(-1, 0)})
	c.SetPort(PortB, kernel.Port{Pos: end, Dir: dir})
}

func gapLayer(face string) kernel.Layer {
	return kernel.FaceLayer(face, kernel.LayerGap)
}
