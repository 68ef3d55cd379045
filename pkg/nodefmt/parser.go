// Package nodefmt reads waveguide node sequences written as tuples:
//
//	[(0, 0), (500, 0, {'n_bridges': 2}), (500, 300, 'AirbridgeConnection'), (900, 300)]
//
// Each tuple is (x, y[, 'Type'][, {key: value}]). Lines starting with # are
// comments.
package nodefmt

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/route"
	"honnef.co/go/curve"
)

// Parser turns tuple listings into route nodes, resolving element type
// names through Registry.
type Parser struct {
	parser   *participle.Parser[File]
	Registry *element.Registry
}

// NewParser creates a parser. A nil registry means the built-in elements.
func NewParser(reg *element.Registry) (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(Lexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	if reg == nil {
		reg = element.DefaultRegistry()
	}
	return &Parser{parser: parser, Registry: reg}, nil
}

// Parse reads a listing from r. name labels positions in syntax errors.
func (p *Parser) Parse(name string, r io.Reader) ([]route.Node, error) {
	f, err := p.parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return p.nodes(f)
}

// ParseString reads a listing from a string.
func (p *Parser) ParseString(name, src string) ([]route.Node, error) {
	f, err := p.parser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return p.nodes(f)
}

// ParseFile reads a listing from a file.
func (p *Parser) ParseFile(filename string) ([]route.Node, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(filename, file)
}

func (p *Parser) nodes(f *File) ([]route.Node, error) {
	tuples := f.Tuples()
	nodes := make([]route.Node, 0, len(tuples))
	for i, t := range tuples {
		n, err := p.node(i, t)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *Parser) node(i int, t *Tuple) (route.Node, error) {
	var (
		typ  *Str
		opts *Dict
	)
	for _, it := range t.Rest {
		switch {
		case it.Type != nil && (typ != nil || opts != nil):
			return route.Node{}, &route.ConfigurationError{
				Node:   i,
				Reason: t.Pos.String() + ": element type must come once, before the options",
			}
		case it.Type != nil:
			typ = it.Type
		case it.Opts != nil && opts != nil:
			return route.Node{}, &route.ConfigurationError{Node: i, Reason: t.Pos.String() + ": options given twice"}
		default:
			opts = it.Opts
		}
	}

	var ref element.Ref
	if typ != nil {
		var err error
		if ref, err = p.Registry.Resolve(string(*typ)); err != nil {
			return route.Node{}, &route.ConfigurationError{Node: i, Reason: t.Pos.String(), Err: err}
		}
	}
	var kvs []route.KeyValue
	if opts != nil {
		for _, e := range opts.Entries {
			kvs = append(kvs, route.KeyValue{Key: string(e.Key), Value: e.Value.goValue()})
		}
	}
	n, err := route.FromOptions(curve.Pt(t.X, t.Y), ref, kvs)
	if err != nil {
		return route.Node{}, fmt.Errorf("%s: %w", t.Pos, route.AtNode(err, i))
	}
	return n, nil
}
