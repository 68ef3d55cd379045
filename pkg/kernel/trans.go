package kernel

import (
	"fmt"

	"github.com/golang/geo/s1"
	"honnef.co/go/curve"
)

// Trans is a rigid transform: rotation about the origin followed by a
// displacement.
type Trans struct {
	Rot  s1.Angle
	Disp curve.Vec2
}

// Identity is the transform that leaves everything in place.
var Identity = Trans{}

// R returns the transform rotating by rot and then displacing by disp.
func R(rot s1.Angle, disp curve.Vec2) Trans {
	return Trans{Rot: rot, Disp: disp}
}

// Move returns a pure displacement.
func Move(disp curve.Vec2) Trans {
	return Trans{Disp: disp}
}

// Affine returns the equivalent affine matrix.
func (t Trans) Affine() curve.Affine {
	return curve.Rotate(t.Rot.Radians()).ThenTranslate(t.Disp)
}

// Apply transforms a point.
func (t Trans) Apply(p curve.Point) curve.Point {
	return p.Transform(t.Affine())
}

// ApplyVec rotates a vector; displacement does not apply to directions.
func (t Trans) ApplyVec(v curve.Vec2) curve.Vec2 {
	return curve.Vec2(curve.Point(v).Transform(curve.Rotate(t.Rot.Radians())))
}

// ApplyPort transforms a port's position and direction.
func (t Trans) ApplyPort(p Port) Port {
	return Port{Pos: t.Apply(p.Pos), Dir: t.ApplyVec(p.Dir)}
}

// Then returns the transform that applies t first and o second.
func (t Trans) Then(o Trans) Trans {
	return Trans{
		Rot:  (t.Rot + o.Rot).Normalized(),
		Disp: o.ApplyVec(t.Disp).Add(o.Disp),
	}
}

// Inverted returns the inverse transform.
func (t Trans) Inverted() Trans {
	inv := Trans{Rot: -t.Rot}
	inv.Disp = inv.ApplyVec(t.Disp).Negate()
	return inv
}

func (t Trans) String() string {
	return fmt.Sprintf("r%.6g %s", t.Rot.Degrees(), t.Disp)
}

// Direction returns the angle of v measured from the +x axis.
func Direction(v curve.Vec2) s1.Angle {
	return s1.Angle(v.Angle()) * s1.Radian
}
