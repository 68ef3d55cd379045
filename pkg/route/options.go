package route

import (
	"fmt"
	"slices"

	"github.com/chazu/qcircuits/pkg/element"
	"honnef.co/go/curve"
)

// Keys lists the recognised textual node options. Any other key must be an
// element override.
var Keys = []string{
	"a", "b", "face_id", "n_bridges", "ab_across", "length_before", "inst_name",
	"align", "angles", "lengths", "target_face",
}

// KeyValue is one textual node option. Value is a float64, string, bool or a
// []any of those.
type KeyValue struct {
	Key   string
	Value any
}

// FromOptions builds a node from the options of the tuple format or a route
// script. Errors are ConfigurationErrors with Node -1; use AtNode to stamp
// the sequence index.
func FromOptions(pos curve.Point, ref element.Ref, kvs []KeyValue) (Node, error) {
	var b optionSet
	b.ref = ref
	for _, kv := range kvs {
		if err := b.set(kv.Key, kv.Value); err != nil {
			return Node{}, err
		}
	}
	return NewNode(pos, b.options()...)
}

type optionSet struct {
	ref element.Ref

	opts      []Option
	a, b      *float64
	align     [2]string
	angles    []float64
	lengths   []float64
	target    string
	overrides element.Overrides
}

func (b *optionSet) set(key string, v any) error {
	switch key {
	case "a", "b":
		f, err := number(key, v)
		if err != nil {
			return err
		}
		if key == "a" {
			b.a = &f
		} else {
			b.b = &f
		}
	case "face_id":
		s, err := str(key, v)
		if err != nil {
			return err
		}
		b.opts = append(b.opts, WithFace(s))
	case "n_bridges":
		f, err := number(key, v)
		if err != nil {
			return err
		}
		if f != float64(int(f)) {
			return configErr(-1, "n_bridges must be a whole number, got %g", f)
		}
		b.opts = append(b.opts, WithBridges(int(f)))
	case "ab_across":
		on, ok := v.(bool)
		if !ok {
			return configErr(-1, "ab_across must be a boolean, got %s", describe(v))
		}
		if on {
			b.opts = append(b.opts, WithAcross())
		}
	case "length_before":
		f, err := number(key, v)
		if err != nil {
			return err
		}
		b.opts = append(b.opts, WithLengthBefore(f))
	case "inst_name":
		s, err := str(key, v)
		if err != nil {
			return err
		}
		b.opts = append(b.opts, WithName(s))
	case "align":
		items, ok := v.([]any)
		if !ok || len(items) != 2 {
			return configErr(-1, "align must be a pair of port names, got %s", describe(v))
		}
		in, ok1 := items[0].(string)
		out, ok2 := items[1].(string)
		if !ok1 || !ok2 {
			return configErr(-1, "align must be a pair of port names")
		}
		b.align = [2]string{in, out}
	case "angles", "lengths":
		fs, err := numbers(key, v)
		if err != nil {
			return err
		}
		if key == "angles" {
			b.angles = fs
		} else {
			b.lengths = fs
		}
	case "target_face":
		s, err := str(key, v)
		if err != nil {
			return err
		}
		b.target = s
	default:
		if b.ref.Kind != element.KindCustom && !slices.Contains(element.OverrideKeys, key) {
			return configErr(-1, "unknown key %q", key)
		}
		if b.ref.IsZero() {
			return configErr(-1, "key %q needs an element type", key)
		}
		switch v.(type) {
		case float64, string, bool:
		default:
			return configErr(-1, "%s must be a number, string or boolean, got %s", key, describe(v))
		}
		if b.overrides == nil {
			b.overrides = element.Overrides{}
		}
		b.overrides[key] = v
	}
	return nil
}

// options assembles the collected values; combination errors surface from
// NewNode.
func (b *optionSet) options() []Option {
	fail := func(reason string) Option {
		return func(*Node) error { return configErr(-1, "%s", reason) }
	}
	opts := slices.Clone(b.opts)
	hasAlign := b.align != [2]string{}
	if b.ref.IsZero() && hasAlign {
		opts = append(opts, fail("align needs an element type"))
	}
	if !b.ref.IsZero() {
		opts = append(opts, WithElement(b.ref))
	}
	if b.a != nil || b.b != nil {
		if b.a == nil || b.b == nil {
			opts = append(opts, fail("a and b must be given together"))
		} else {
			opts = append(opts, WithImpedance(*b.a, *b.b))
		}
	}

	switch {
	case b.angles != nil || b.lengths != nil || (b.ref.Kind == element.KindSplitter && hasAlign):
		opts = append(opts, WithData(SplitterData{Align: b.align, Angles: b.angles, Lengths: b.lengths}))
	case b.target != "":
		if b.overrides != nil || hasAlign {
			opts = append(opts, fail("target_face cannot be combined with align or element overrides"))
		}
		opts = append(opts, WithData(FlipChipData{Face: b.target}))
	case b.overrides != nil || hasAlign:
		opts = append(opts, WithData(ElementData{Align: b.align, Params: b.overrides}))
	}
	return opts
}

func number(key string, v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, configErr(-1, "%s must be a number, got %s", key, describe(v))
	}
	return f, nil
}

func str(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", configErr(-1, "%s must be a string, got %s", key, describe(v))
	}
	return s, nil
}

func numbers(key string, v any) ([]float64, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, configErr(-1, "%s must be a list of numbers, got %s", key, describe(v))
	}
	out := make([]float64, len(items))
	for k, it := range items {
		f, err := number(key, it)
		if err != nil {
			return nil, err
		}
		out[k] = f
	}
	return out, nil
}

func describe(v any) string {
	switch v.(type) {
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case nil:
		return "nothing"
	}
	return fmt.Sprintf("%T", v)
}
