package element

import (
	"fmt"
	"math"

	"github.com/chazu/qcircuits/pkg/kernel"
	"honnef.co/go/curve"
)

// Straight builds a straight CPW segment of p.Length.
func Straight(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: straight length %g must be positive", ErrInvalidParams, p.Length)
	}
	return f.Cell(p.Key("Straight"), func(c *kernel.Cell) error {
		c.Add(gapLayer(p.Face), gapStrips(p.A, p.B, 0, p.Length)...)
		twoPorts(c, curve.Pt(p.Length, 0), curve.Vec(1, 0))
		c.Length = p.Length
		return nil
	})
}

// Curve builds a circular CPW bend of radius p.R sweeping p.Alpha radians.
// Positive Alpha turns left.
func Curve(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if p.Alpha == 0 {
		return nil, fmt.Errorf("%w: curve needs a non-zero alpha", ErrInvalidParams)
	}
	if p.R <= p.A/2+p.B {
		return nil, fmt.Errorf("%w: radius %g too small for a=%g b=%g", ErrInvalidParams, p.R, p.A, p.B)
	}
	return f.Cell(p.Key("Curve"), func(c *kernel.Cell) error {
		s := math.Copysign(1, p.Alpha)
		center := curve.Pt(0, s*p.R)
		start := -s * math.Pi / 2
		tol := tolerance(p)
		layer := gapLayer(p.Face)
		c.Add(layer,
			annulus(center, p.R+p.A/2, p.R+p.A/2+p.B, start, p.Alpha, tol),
			annulus(center, p.R-p.A/2-p.B, p.R-p.A/2, start, p.Alpha, tol),
		)
		end := center.Translate(curve.VecFromAngle(start + p.Alpha).Mul(p.R))
		twoPorts(c, end, curve.VecFromAngle(p.Alpha))
		c.Length = p.R * math.Abs(p.Alpha)
		return nil
	})
}

// Taper builds a linear impedance taper from (A, B) to (A2, B2).
func Taper(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if p.A2 <= 0 || p.B2 <= 0 {
		return nil, fmt.Errorf("%w: taper output a2=%g b2=%g must be positive", ErrInvalidParams, p.A2, p.B2)
	}
	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: taper length %g must be positive", ErrInvalidParams, p.Length)
	}
	return f.Cell(p.Key("Taper"), func(c *kernel.Cell) error {
		c.Add(gapLayer(p.Face), taperGaps(p.A, p.B, p.A2, p.B2, p.Length)...)
		twoPorts(c, curve.Pt(p.Length, 0), curve.Vec(1, 0))
		c.Length = p.Length
		return nil
	})
}

// Termination builds an open-end stub: the centre conductor stops at
// port_a and a gap of p.Length is etched beyond it. It carries no signal
// length.
func Termination(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if err := p.validateCPW(); err != nil {
		return nil, err
	}
	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: termination length %g must be positive", ErrInvalidParams, p.Length)
	}
	return f.Cell(p.Key("Termination"), func(c *kernel.Cell) error {
		half := p.A/2 + p.B
		c.Add(gapLayer(p.Face), kernel.Box(0, -half, p.Length, half))
		c.SetPort(PortA, kernel.Port{Pos: curve.Pt(0, 0), Dir: curve.Vec(-1, 0)})
		return nil
	})
}
