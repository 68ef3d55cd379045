package element

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// padMargin is how far airbridge pads overhang the flyover on each side.
const padMargin = 2

func (b Bridge) validate() error {
	if b.Length <= 0 || b.Width <= 0 || b.PadLength <= 0 {
		return fmt.Errorf("%w: airbridge %+v needs positive dimensions", ErrInvalidParams, b)
	}
	return nil
}

// Airbridge builds a ground-strap crossing centred on the origin. The bridge
// spans the waveguide along local y; local x is the waveguide direction.
// It adds no signal length.
func Airbridge(f kernel.Factory, p Params) (*kernel.Cell, error) {
	b := p.Bridge
	if err := b.validate(); err != nil {
		return nil, err
	}
	return f.Cell(p.Key("Airbridge"), func(c *kernel.Cell) error {
		half := b.Length / 2
		pw := b.Width/2 + padMargin
		c.Add(kernel.FaceLayer(p.Face, kernel.LayerAirbridgePads),
			kernel.Box(-pw, half, pw, half+b.PadLength),
			kernel.Box(-pw, -half-b.PadLength, pw, -half),
		)
		c.Add(kernel.FaceLayer(p.Face, kernel.LayerAirbridgeFlyover),
			kernel.Box(-b.Width/2, -half-b.PadLength/2, b.Width/2, half+b.PadLength/2))
		c.SetPort(PortA, kernel.Port{Pos: curve.Pt(0, -half-b.PadLength/2), Dir: curve.Vec(0, -1)})
		c.SetPort(PortB, kernel.Port{Pos: curve.Pt(0, half+b.PadLength/2), Dir: curve.Vec(0, 1)})
		return nil
	})
}

// AirbridgeConnection builds an in-line airbridge: the centre conductor lands
// on a pad, flies over and lands on a second pad. (A, B) is the element's
// native impedance.
func AirbridgeConnection(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	b := p.Bridge
	if err := b.validate(); err != nil {
		return nil, err
	}
	return f.Cell(p.Key("AirbridgeConnection"), func(c *kernel.Cell) error {
		l := 2*b.PadLength + b.Length
		c.Add(gapLayer(p.Face), gapStrips(p.A, p.B, 0, l)...)
		pw := p.A/2 + padMargin
		c.Add(kernel.FaceLayer(p.Face, kernel.LayerAirbridgePads),
			kernel.Box(0, -pw, b.PadLength, pw),
			kernel.Box(l-b.PadLength, -pw, l, pw),
		)
		c.Add(kernel.FaceLayer(p.Face, kernel.LayerAirbridgeFlyover),
			kernel.Box(b.PadLength/2, -b.Width/2, l-b.PadLength/2, b.Width/2))
		twoPorts(c, curve.Pt(l, 0), curve.Vec(1, 0))
		c.Length = l
		return nil
	})
}
