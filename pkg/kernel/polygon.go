package kernel

import (
	"math"
	"slices"

	"honnef.co/go/curve"
)

// Layer names a mask layer. Face-qualified layers are built with FaceLayer.
type Layer string

// Base layer names; a chip face prefixes them, e.g. "1t1_base_metal_gap_wo_grid".
const (
	LayerGap              Layer = "base_metal_gap_wo_grid"
	LayerAirbridgePads    Layer = "airbridge_pads"
	LayerAirbridgeFlyover Layer = "airbridge_flyover"
	LayerBump             Layer = "underbump_metallization"
)

// BaseLayers lists the per-face layers in mask order.
var BaseLayers = []Layer{LayerGap, LayerAirbridgePads, LayerAirbridgeFlyover, LayerBump}

// FaceLayer qualifies a base layer with a chip face.
func FaceLayer(face string, base Layer) Layer {
	return Layer(face + "_" + string(base))
}

// Polygon is a closed simple polygon given by its vertices.
type Polygon []curve.Point

// Box returns the axis-aligned rectangle spanning x0..x1, y0..y1.
func Box(x0, y0, x1, y1 float64) Polygon {
	return Polygon{
		curve.Pt(x0, y0),
		curve.Pt(x1, y0),
		curve.Pt(x1, y1),
		curve.Pt(x0, y1),
	}
}

// Transform returns the polygon with every vertex transformed.
func (p Polygon) Transform(t Trans) Polygon {
	out := make(Polygon, len(p))
	aff := t.Affine()
	for i, v := range p {
		out[i] = v.Transform(aff)
	}
	return out
}

// Path returns the closed outline.
func (p Polygon) Path() curve.BezPath {
	var path curve.BezPath
	for i, v := range p {
		if i == 0 {
			path.MoveTo(v)
			continue
		}
		path.LineTo(v)
	}
	if len(p) > 0 {
		path.ClosePath()
	}
	return path
}

// Area returns the unsigned enclosed area.
func (p Polygon) Area() float64 {
	return math.Abs(p.Path().SignedArea())
}

// BoundingBox returns the axis-aligned bounds.
func (p Polygon) BoundingBox() curve.Rect {
	return p.Path().BoundingBox()
}

// Contains reports whether pt lies inside the polygon.
func (p Polygon) Contains(pt curve.Point) bool {
	return p.Path().Winding(pt) != 0
}

// CCW returns the polygon with counter-clockwise winding.
func (p Polygon) CCW() Polygon {
	if p.Path().SignedArea() >= 0 {
		return p
	}
	out := slices.Clone(p)
	slices.Reverse(out)
	return out
}
