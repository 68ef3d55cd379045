package route

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/element"
	"honnef.co/go/curve"
)

// Impedance is a coplanar waveguide profile: centre conductor width A and
// gap width B.
type Impedance struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (z Impedance) String() string {
	return fmt.Sprintf("%g/%g", z.A, z.B)
}

// Node is one waypoint of a composite waveguide. Nodes are plain values
// built with NewNode; the router never mutates them.
type Node struct {
	Position curve.Point `json:"position"`
	Element  element.Ref `json:"-"`

	// Impedance, when set, switches the ambient profile from this node on.
	Impedance *Impedance `json:"impedance,omitempty"`
	// Face, when set, switches the chip face from this node on.
	Face string `json:"face,omitempty"`
	// Bridges distributes that many airbridges on the straight before this node.
	Bridges int `json:"n_bridges,omitempty"`
	// Across places one airbridge centred on this node.
	Across bool `json:"ab_across,omitempty"`
	// LengthBefore is a target cumulative length at this node.
	LengthBefore float64 `json:"length_before,omitempty"`
	// Name labels splitter stub ports.
	Name string `json:"inst_name,omitempty"`

	Data NodeData `json:"-"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// ElementData carries options for a two-port or custom element.
type ElementData struct {
	Align  [2]string
	Params element.Overrides
}

// SplitterData carries splitter wiring. Zero-length slices fall back to the
// configured splitter arms.
type SplitterData struct {
	Align   [2]string
	Angles  []float64
	Lengths []float64
}

// FlipChipData carries the target face of an explicit flip-chip connector.
// An empty Face means the other configured face.
type FlipChipData struct {
	Face string
}

func (ElementData) nodeData()  {}
func (SplitterData) nodeData() {}
func (FlipChipData) nodeData() {}

// Option configures a Node under construction.
type Option func(*Node) error

// NewNode builds a node at pos and validates its option combination.
func NewNode(pos curve.Point, opts ...Option) (Node, error) {
	n := Node{Position: pos}
	for _, opt := range opts {
		if err := opt(&n); err != nil {
			return Node{}, err
		}
	}
	if err := n.validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// MustNode is NewNode for literal sequences known to be valid.
func MustNode(pos curve.Point, opts ...Option) Node {
	n, err := NewNode(pos, opts...)
	if err != nil {
		panic(err)
	}
	return n
}

// Pt is shorthand for a plain waypoint.
func Pt(x, y float64) Node {
	return Node{Position: curve.Pt(x, y)}
}

// WithElement inserts the element at this node.
func WithElement(ref element.Ref) Option {
	return func(n *Node) error {
		n.Element = ref
		return nil
	}
}

// WithImpedance switches the ambient impedance at this node.
func WithImpedance(a, b float64) Option {
	return func(n *Node) error {
		if a <= 0 || b <= 0 {
			return configErr(-1, "impedance a=%g b=%g must be positive", a, b)
		}
		n.Impedance = &Impedance{A: a, B: b}
		return nil
	}
}

// WithFace switches the chip face at this node.
func WithFace(face string) Option {
	return func(n *Node) error {
		if face == "" {
			return configErr(-1, "face_id must not be empty")
		}
		n.Face = face
		return nil
	}
}

// WithBridges distributes count airbridges on the preceding straight.
func WithBridges(count int) Option {
	return func(n *Node) error {
		if count < 0 {
			return configErr(-1, "n_bridges %d must not be negative", count)
		}
		n.Bridges = count
		return nil
	}
}

// WithAcross places one airbridge centred on this node.
func WithAcross() Option {
	return func(n *Node) error {
		n.Across = true
		return nil
	}
}

// WithLengthBefore sets the cumulative length target at this node.
func WithLengthBefore(l float64) Option {
	return func(n *Node) error {
		if l <= 0 {
			return configErr(-1, "length_before %g must be positive", l)
		}
		n.LengthBefore = l
		return nil
	}
}

// WithName names the node; splitter stubs are labelled "<name>_<port>".
func WithName(name string) Option {
	return func(n *Node) error {
		n.Name = name
		return nil
	}
}

// WithData attaches kind-specific data.
func WithData(d NodeData) Option {
	return func(n *Node) error {
		n.Data = d
		return nil
	}
}

// Align returns the entry and exit port names, defaulting to port_a/port_b.
func (n Node) Align() (in, out string) {
	var al [2]string
	switch d := n.Data.(type) {
	case ElementData:
		al = d.Align
	case SplitterData:
		al = d.Align
	}
	if al == ([2]string{}) {
		return element.PortA, element.PortB
	}
	return al[0], al[1]
}

// Overrides returns the element parameter overrides, if any.
func (n Node) Overrides() element.Overrides {
	if d, ok := n.Data.(ElementData); ok {
		return d.Params
	}
	return nil
}

// HasAction reports whether the node does more than extend the path.
func (n Node) HasAction() bool {
	return n.inline() || n.Impedance != nil || n.Face != ""
}

// inline reports whether the node's element sits in the signal path. A bare
// Airbridge element is a crossing and behaves like ab_across.
func (n Node) inline() bool {
	return !n.Element.IsZero() && n.Element.Kind != element.KindAirbridge
}

func (n Node) across() bool {
	return n.Across || n.Element.Kind == element.KindAirbridge
}

func (n Node) validate() error {
	kind := n.Element.Kind
	switch d := n.Data.(type) {
	case nil:
	case ElementData:
		if !n.Element.TwoPort() {
			return configErr(-1, "element options given for %s", kind)
		}
		if err := validateAlign(d.Align); err != nil {
			return err
		}
		if _, err := (element.Params{}).Apply(kind, d.Params); err != nil {
			return &ConfigurationError{Node: -1, Reason: "element overrides", Err: err}
		}
	case SplitterData:
		if kind != element.KindSplitter {
			return configErr(-1, "splitter options given for %s", kind)
		}
		if len(d.Angles) != len(d.Lengths) {
			return configErr(-1, "splitter has %d angles but %d lengths", len(d.Angles), len(d.Lengths))
		}
		if err := validateAlign(d.Align); err != nil {
			return err
		}
	case FlipChipData:
		if kind != element.KindFlipChipConnector {
			return configErr(-1, "target_face given for %s", kind)
		}
	}
	if n.Across && !n.Element.IsZero() {
		return configErr(-1, "ab_across cannot be combined with element %s", n.Element.Name)
	}
	if kind == element.KindTermination {
		return configErr(-1, "terminations are added through the term1/term2 configuration, not as node elements")
	}
	return nil
}

func validateAlign(al [2]string) error {
	if al == ([2]string{}) {
		return nil
	}
	if al[0] == "" || al[1] == "" {
		return configErr(-1, "align needs two port names, got %q", al)
	}
	if al[0] == al[1] {
		return &ConfigurationError{Node: -1, Port: al[0], Reason: "align names the same port twice"}
	}
	return nil
}
