package element

import (
	"fmt"
	"maps"
	"slices"

	"github.com/chazu/qcircuits/pkg/kernel"
)

// Builder fills a cell for the given parameters. Builders must be pure: the
// same Params always produce the same geometry.
type Builder func(f kernel.Factory, p Params) (*kernel.Cell, error)

// Ref is a resolved element type: its kind, registered name and builder.
// The zero Ref means "no element".
type Ref struct {
	Kind  Kind
	Name  string
	Build Builder
}

// IsZero reports whether r refers to no element.
func (r Ref) IsZero() bool {
	return r.Kind == KindNone
}

// TwoPort reports whether the element is inserted in-line through two ports.
func (r Ref) TwoPort() bool {
	switch r.Kind {
	case KindStraight, KindCurve, KindTaper, KindAirbridgeConnection, KindFlipChipConnector, KindCustom:
		return true
	}
	return false
}

// Cell builds (or fetches the memoised) cell for p.
func (r Ref) Cell(f kernel.Factory, p Params) (*kernel.Cell, error) {
	if r.Build == nil {
		return nil, fmt.Errorf("%w: %q has no builder", ErrUnknownElement, r.Name)
	}
	return r.Build(f, p)
}

// Registry resolves element type names. Registries are plain values owned by
// their caller; there is no global registry.
type Registry struct {
	refs map[string]Ref
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[string]Ref)}
}

// DefaultRegistry returns a registry holding the built-in element types
// under their layout-library names.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.add("WaveguideCoplanarStraight", KindStraight, Straight)
	r.add("WaveguideCoplanarCurved", KindCurve, Curve)
	r.add("WaveguideCoplanarTaper", KindTaper, Taper)
	r.add("Airbridge", KindAirbridge, Airbridge)
	r.add("AirbridgeConnection", KindAirbridgeConnection, AirbridgeConnection)
	r.add("FlipChipConnectorRf", KindFlipChipConnector, FlipChipConnector)
	r.add("WaveguideCoplanarSplitter", KindSplitter, Splitter)
	r.add("Termination", KindTermination, Termination)
	return r
}

func (r *Registry) add(name string, kind Kind, b Builder) {
	r.refs[name] = Ref{Kind: kind, Name: name, Build: b}
}

// Register adds a custom two-port element. Custom cells must expose
// port_a and port_b and set Cell.Length.
func (r *Registry) Register(name string, b Builder) error {
	if name == "" {
		return fmt.Errorf("element: empty type name")
	}
	if b == nil {
		return fmt.Errorf("element: nil builder for %q", name)
	}
	if _, exists := r.refs[name]; exists {
		return fmt.Errorf("element: %q already registered", name)
	}
	r.add(name, KindCustom, memoised(name, b))
	return nil
}

// memoised routes a custom builder through the factory's cell cache.
func memoised(name string, b Builder) Builder {
	return func(f kernel.Factory, p Params) (*kernel.Cell, error) {
		var built *kernel.Cell
		c, err := f.Cell(p.Key(name), func(c *kernel.Cell) error {
			var err error
			built, err = b(f, p)
			if err != nil {
				return err
			}
			*c = *built
			c.Name = p.Key(name)
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, port := range []string{PortA, PortB} {
			if _, ok := c.Port(port); !ok {
				return nil, fmt.Errorf("%w: custom element %q lacks %s", ErrMissingPort, name, port)
			}
		}
		return c, nil
	}
}

// Resolve looks up an element type by name.
func (r *Registry) Resolve(name string) (Ref, error) {
	ref, ok := r.refs[name]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return ref, nil
}

// MustResolve is Resolve for names known to be registered.
func (r *Registry) MustResolve(name string) Ref {
	ref, err := r.Resolve(name)
	if err != nil {
		panic(err)
	}
	return ref
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.refs))
}
