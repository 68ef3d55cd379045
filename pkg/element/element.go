// Package element models the placeable sub-elements a composite waveguide
// can insert: straights, curves, tapers, airbridges, flip-chip connectors,
// splitters, terminations and user-supplied custom cells.
//
// Every element is built into a kernel.Cell in its own local frame. Two-port
// elements expose port_a at the origin facing -x and port_b along +x; the
// router rotates and moves them into place.
package element

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Sentinel errors, wrapped with context by callers.
var (
	ErrUnknownElement = errors.New("unknown element type")
	ErrMissingPort    = errors.New("element has no such port")
	ErrInvalidParams  = errors.New("invalid element parameters")
)

// Kind is the closed set of element variants.
type Kind int

const (
	KindNone Kind = iota
	KindStraight
	KindCurve
	KindTaper
	KindAirbridge
	KindAirbridgeConnection
	KindFlipChipConnector
	KindSplitter
	KindTermination
	KindCustom
)

var kindNames = [...]string{
	KindNone:                "None",
	KindStraight:            "Straight",
	KindCurve:               "Curve",
	KindTaper:               "Taper",
	KindAirbridge:           "Airbridge",
	KindAirbridgeConnection: "AirbridgeConnection",
	KindFlipChipConnector:   "FlipChipConnector",
	KindSplitter:            "Splitter",
	KindTermination:         "Termination",
	KindCustom:              "Custom",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Port names shared by all two-port elements.
const (
	PortA = "port_a"
	PortB = "port_b"
)

// PortName returns the conventional name of the i-th port: port_a, port_b, ...
func PortName(i int) string {
	return "port_" + string(rune('a'+i))
}

// Bridge holds airbridge dimensions.
type Bridge struct {
	Length    float64 `mapstructure:"bridge_length"`
	Width     float64 `mapstructure:"bridge_width"`
	PadLength float64 `mapstructure:"pad_length"`
}

// Params is the fully resolved parameter set handed to a builder.
// Fields a kind does not use are ignored by its builder.
type Params struct {
	A, B   float64
	A2, B2 float64 // taper output impedance
	Face   string
	Face2  string // flip-chip target face
	Length float64
	R      float64
	Alpha  float64 // signed sweep in radians, positive turns left
	Bridge Bridge
	// Splitter arm directions in degrees and arm lengths.
	Angles  []float64
	Lengths []float64
	// Tolerance is the arc flattening tolerance.
	Tolerance float64
	// Extra carries unrecognised overrides through to custom builders.
	Extra Overrides
}

// Key returns a deterministic identity for memoising cells built from p.
func (p Params) Key(name string) string {
	var sb strings.Builder
	sb.WriteString(name)
	fmt.Fprintf(&sb, "(a=%g,b=%g,face=%s", p.A, p.B, p.Face)
	if p.A2 != 0 || p.B2 != 0 {
		fmt.Fprintf(&sb, ",a2=%g,b2=%g", p.A2, p.B2)
	}
	if p.Face2 != "" {
		fmt.Fprintf(&sb, ",face2=%s", p.Face2)
	}
	if p.Length != 0 {
		fmt.Fprintf(&sb, ",l=%g", p.Length)
	}
	if p.R != 0 || p.Alpha != 0 {
		fmt.Fprintf(&sb, ",r=%g,alpha=%g", p.R, p.Alpha)
	}
	if p.Bridge != (Bridge{}) {
		fmt.Fprintf(&sb, ",bridge=%g/%g/%g", p.Bridge.Length, p.Bridge.Width, p.Bridge.PadLength)
	}
	if len(p.Angles) > 0 {
		fmt.Fprintf(&sb, ",angles=%v,lengths=%v", p.Angles, p.Lengths)
	}
	if p.Tolerance != 0 {
		fmt.Fprintf(&sb, ",tol=%g", p.Tolerance)
	}
	if len(p.Extra) > 0 {
		fmt.Fprintf(&sb, ",extra=%v", map[string]any(p.Extra))
	}
	sb.WriteString(")")
	return sb.String()
}

func (p Params) validateCPW() error {
	if p.A <= 0 || p.B <= 0 {
		return fmt.Errorf("%w: a=%g b=%g must be positive", ErrInvalidParams, p.A, p.B)
	}
	return nil
}

// Overrides are per-node element parameter overrides keyed by option name.
type Overrides map[string]any

// OverrideKeys lists the override keys recognised by built-in elements.
var OverrideKeys = []string{"length", "r", "alpha", "a2", "b2", "bridge_length", "bridge_width", "pad_length"}

// Apply returns p with the overrides applied. Custom elements keep unknown
// keys in Extra; built-in elements reject them.
func (p Params) Apply(kind Kind, o Overrides) (Params, error) {
	p.Extra = maps.Clone(p.Extra)
	for key, v := range o {
		f, isNum := toFloat(v)
		dst := p.field(key)
		switch {
		case dst != nil && isNum:
			*dst = f
			if key == "alpha" {
				*dst = f * degToRad
			}
		case dst != nil:
			return p, fmt.Errorf("%w: override %q must be a number, got %T", ErrInvalidParams, key, v)
		case kind == KindCustom:
			if p.Extra == nil {
				p.Extra = Overrides{}
			}
			p.Extra[key] = v
		default:
			return p, fmt.Errorf("%w: %s does not accept override %q", ErrInvalidParams, kind, key)
		}
	}
	return p, nil
}

func (p *Params) field(key string) *float64 {
	switch key {
	case "length":
		return &p.Length
	case "r":
		return &p.R
	case "alpha":
		return &p.Alpha
	case "a2":
		return &p.A2
	case "b2":
		return &p.B2
	case "bridge_length":
		return &p.Bridge.Length
	case "bridge_width":
		return &p.Bridge.Width
	case "pad_length":
		return &p.Bridge.PadLength
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
