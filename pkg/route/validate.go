package route

import (
	"errors"

	"github.com/chazu/qcircuits/pkg/element"
)

// validateNodes checks the rules that depend on a node's position in the
// sequence or on the configuration. Per-node combinations are rechecked
// because nodes may be built as struct literals.
func (c Config) validateNodes(nodes []Node) error {
	for i, n := range nodes {
		if err := n.validate(); err != nil {
			return AtNode(err, i)
		}
		if n.Bridges < 0 {
			return configErr(i, "n_bridges %d must not be negative", n.Bridges)
		}
		if n.Impedance != nil && (n.Impedance.A <= 0 || n.Impedance.B <= 0) {
			return configErr(i, "impedance %s must be positive", *n.Impedance)
		}
		if n.LengthBefore < 0 {
			return configErr(i, "length_before %g must be positive", n.LengthBefore)
		}
		if i == 0 && n.LengthBefore > 0 {
			return configErr(0, "length_before cannot be set on the first node")
		}
		if i == 0 && n.Bridges > 0 {
			return configErr(0, "n_bridges on the first node has no preceding edge")
		}
		if n.Face != "" && !c.hasFace(n.Face) {
			return configErr(i, "unknown face_id %q", n.Face)
		}
		if d, ok := n.Data.(FlipChipData); ok && d.Face != "" && !c.hasFace(d.Face) {
			return configErr(i, "unknown target_face %q", d.Face)
		}
		if !n.Element.IsZero() && n.Element.Build == nil {
			return &ConfigurationError{Node: i, Reason: n.Element.Name, Err: element.ErrUnknownElement}
		}
	}
	return nil
}

// AtNode stamps sequence index i onto a configuration error raised while
// building a node on its own. Other errors pass through unchanged.
func AtNode(err error, i int) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) && ce.Node < 0 {
		cp := *ce
		cp.Node = i
		return &cp
	}
	return err
}
