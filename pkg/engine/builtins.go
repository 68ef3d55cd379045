package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/route"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
	"honnef.co/go/curve"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms route script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: fixed-bend -> fixed_bend
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a point built by `pt`.
type sexpPoint struct {
	p curve.Point
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g)", p.p.X, p.p.Y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpNode wraps a route node built by `node`.
type sexpNode struct {
	node route.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	if n.node.Element.IsZero() {
		return fmt.Sprintf("(node %g %g)", n.node.Position.X, n.node.Position.Y)
	}
	return fmt.Sprintf("(node %g %g :element %q)", n.node.Position.X, n.node.Position.Y, n.node.Element.Name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpRouteRef names a route added to the design.
type sexpRouteRef struct {
	name string
}

func (r *sexpRouteRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(route %q)", r.name)
}
func (r *sexpRouteRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string // keyword names in source order
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if _, seen := result.kw[name]; !seen {
				result.order = append(result.order, name)
			}
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// resolveElement looks up the element type named by s. Unknown names are
// reported as configuration errors, the same as in node listings.
func resolveElement(reg *element.Registry, s zygo.Sexp) (element.Ref, error) {
	typ, err := toKeywordString(s)
	if err != nil {
		return element.Ref{}, errors.Wrap(err, "element")
	}
	ref, err := reg.Resolve(typ)
	if err != nil {
		return element.Ref{}, &route.ConfigurationError{Node: -1, Reason: "element", Err: err}
	}
	return ref, nil
}

// toPoint extracts a point built by `pt`.
func toPoint(s zygo.Sexp) (curve.Point, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.p, nil
	}
	return curve.Point{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts an option value to the plain Go form read by
// route.FromOptions.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		return toKeywordString(v)
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, it := range items {
			if out[i], err = toValue(it); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported option value %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// optionKey maps a script keyword to its node option key.
func optionKey(kw string) string {
	switch kw {
	case "face":
		return "face_id"
	case "across":
		return "ab_across"
	case "name":
		return "inst_name"
	}
	return strings.ReplaceAll(kw, "-", "_")
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the route script builtins into a zygomys
// environment. Routes are added to d as they are defined; element names
// resolve through reg.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, d *Design, reg *element.Registry) {

	// -----------------------------------------------------------------------
	// (pt 100 200)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "pt: x")
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "pt: y")
		}
		return &sexpPoint{p: curve.Pt(x, y)}, nil
	})

	// -----------------------------------------------------------------------
	// (node 500 0 :element "AirbridgeConnection" :a 5 :b 3 :n-bridges 2)
	// (node (pt 500 0) :face "2b1")
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		var pos curve.Point
		switch len(pa.positional) {
		case 1:
			p, err := toPoint(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "node: position")
			}
			pos = p
		case 2:
			x, err := toFloat64(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "node: x")
			}
			y, err := toFloat64(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "node: y")
			}
			pos = curve.Pt(x, y)
		default:
			return zygo.SexpNull, fmt.Errorf("node requires a point or x and y, got %d positional arguments", len(pa.positional))
		}

		var ref element.Ref
		var kvs []route.KeyValue
		for _, kw := range pa.order {
			v := pa.kw[kw]
			if kw == "element" {
				var err error
				if ref, err = resolveElement(reg, v); err != nil {
					return zygo.SexpNull, errors.Wrap(err, "node")
				}
				continue
			}
			val, err := toValue(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "node: %s", kw)
			}
			kvs = append(kvs, route.KeyValue{Key: optionKey(kw), Value: val})
		}

		n, err := route.FromOptions(pos, ref, kvs)
		if err != nil {
			return zygo.SexpNull, errors.Wrapf(err, "node at %s", pos)
		}
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (waveguide "feed" (node 0 0) (node 500 0) ...)
	// (waveguide "feed" (list (node 0 0) (node 500 0)))
	// -----------------------------------------------------------------------
	env.AddFunction("waveguide", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("waveguide requires a name argument")
		}
		routeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "waveguide: name")
		}

		var nodes []route.Node
		var collect func(s zygo.Sexp) error
		collect = func(s zygo.Sexp) error {
			if n, ok := s.(*sexpNode); ok {
				nodes = append(nodes, n.node)
				return nil
			}
			items, err := sexpListToSlice(s)
			if err != nil {
				return fmt.Errorf("expected node or list of nodes, got %T (%s)", s, s.SexpString(nil))
			}
			for _, it := range items {
				if err := collect(it); err != nil {
					return err
				}
			}
			return nil
		}
		for i := 1; i < len(args); i++ {
			if err := collect(args[i]); err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "waveguide %q: argument %d", routeName, i)
			}
		}

		if err := d.Add(&Route{Name: routeName, Kind: RouteWaveguide, Nodes: nodes}); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "waveguide")
		}
		if len(nodes) < 2 {
			d.Warnings = append(d.Warnings, EvalWarning{
				Message: fmt.Sprintf("waveguide %q has %d nodes and produces no geometry", routeName, len(nodes)),
				Route:   routeName,
			})
		}
		return &sexpRouteRef{name: routeName}, nil
	})

	// -----------------------------------------------------------------------
	// (fixed-bend "meander" :from (pt 0 0) :from-corner (pt 0 100)
	//             :to (pt 300 0) :to-corner (pt 300 100) :length 1000 :bridges 2)
	//
	// Registered as "fixed_bend"; the preprocessor rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("fixed_bend", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("fixed-bend requires a name argument")
		}
		routeName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "fixed-bend: name")
		}

		var b FixedBend
		points := []struct {
			kw  string
			dst *curve.Point
		}{
			{"from", &b.From},
			{"from-corner", &b.FromCorner},
			{"to", &b.To},
			{"to-corner", &b.ToCorner},
		}
		for _, p := range points {
			v, ok := pa.kw[p.kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("fixed-bend %q: missing :%s", routeName, p.kw)
			}
			if *p.dst, err = toPoint(v); err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "fixed-bend %q: %s", routeName, p.kw)
			}
		}
		v, ok := pa.kw["length"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("fixed-bend %q: missing :length", routeName)
		}
		if b.Length, err = toFloat64(v); err != nil {
			return zygo.SexpNull, errors.Wrapf(err, "fixed-bend %q: length", routeName)
		}
		if b.Length <= 0 {
			return zygo.SexpNull, fmt.Errorf("fixed-bend %q: length %g must be positive", routeName, b.Length)
		}
		if v, ok := pa.kw["bridges"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "fixed-bend %q: bridges", routeName)
			}
			if f < 0 || f != float64(int(f)) {
				return zygo.SexpNull, fmt.Errorf("fixed-bend %q: bridges must be a whole number >= 0, got %g", routeName, f)
			}
			b.Bridges = int(f)
		}

		if err := d.Add(&Route{Name: routeName, Kind: RouteFixedBend, Bend: b}); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "fixed-bend")
		}
		return &sexpRouteRef{name: routeName}, nil
	})
}
