package element

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// FlipChipConnector builds a bump transition of p.Length from face p.Face to
// face p.Face2. The first half is drawn on the source face, the second half
// on the target face, and the bump pad on both.
func FlipChipConnector(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: connector length %g must be positive", ErrInvalidParams, p.Length)
	}
	if p.Face2 == "" || p.Face2 == p.Face {
		return nil, fmt.Errorf("%w: connector needs a distinct target face, got %q -> %q", ErrInvalidParams, p.Face, p.Face2)
	}
	return f.Cell(p.Key("FlipChipConnector"), func(c *kernel.Cell) error {
		mid := p.Length / 2
		c.Add(gapLayer(p.Face), gapStrips(p.A, p.B, 0, mid)...)
		c.Add(gapLayer(p.Face2), gapStrips(p.A, p.B, mid, p.Length)...)
		bump := p.A/2 + p.B
		pad := kernel.Box(mid-bump, -bump, mid+bump, bump)
		c.Add(kernel.FaceLayer(p.Face, kernel.LayerBump), pad)
		c.Add(kernel.FaceLayer(p.Face2, kernel.LayerBump), pad)
		twoPorts(c, curve.Pt(p.Length, 0), curve.Vec(1, 0))
		c.Length = p.Length
		return nil
	})
}
