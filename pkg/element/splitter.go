package element

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/golang/geo/s1"
	"honnef.co/go/curve"
)

// Splitter builds a multi-port junction centred on the origin. Arm i leaves
// in direction Angles[i] (degrees) with length Lengths[i] and ends in port
// PortName(i).
func Splitter(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if len(p.Angles) < 2 || len(p.Angles) != len(p.Lengths) {
		return nil, fmt.Errorf("%w: splitter needs matching angles and lengths, got %d and %d",
			ErrInvalidParams, len(p.Angles), len(p.Lengths))
	}
	if len(p.Angles) > 26 {
		return nil, fmt.Errorf("%w: splitter supports at most 26 arms", ErrInvalidParams)
	}
	for i, l := range p.Lengths {
		if l <= p.A/2+p.B {
			return nil, fmt.Errorf("%w: splitter arm %d length %g shorter than the waveguide half width", ErrInvalidParams, i, l)
		}
	}
	return f.Cell(p.Key("Splitter"), func(c *kernel.Cell) error {
		layer := gapLayer(p.Face)
		half := p.A/2 + p.B
		for i, deg := range p.Angles {
			rot := kernel.R(s1.Angle(deg)*s1.Degree, curve.Vec2{})
			for _, g := range gapStrips(p.A, p.B, half, p.Lengths[i]) {
				c.Add(layer, g.Transform(rot))
			}
			dir := curve.VecFromAngle(deg * degToRad)
			c.SetPort(PortName(i), kernel.Port{Pos: curve.Pt(0, 0).Translate(dir.Mul(p.Lengths[i])), Dir: dir})
		}
		j := curve.Pt(0, 0)
		c.Junction = &j
		c.Length = c.PathLength(PortA, PortB)
		return nil
	})
}
