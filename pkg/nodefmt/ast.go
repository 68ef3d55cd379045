package nodefmt

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is a listing of node tuples, optionally wrapped in brackets. A
// trailing comma is allowed after the last tuple.
type File struct {
	List *List   `  @@`
	Bare []*Tuple `| ( @@ ( "," @@ )* ","? )?`
}

// Tuples returns the node tuples in source order.
func (f *File) Tuples() []*Tuple {
	if f.List != nil {
		return f.List.Tuples
	}
	return f.Bare
}

// List is a bracketed tuple listing.
type List struct {
	Tuples []*Tuple `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

// Tuple is one node: (x, y[, 'Type'][, {key: value}]).
type Tuple struct {
	Pos lexer.Position

	X    float64 `"(" @Number ","`
	Y    float64 `@Number`
	Rest []*Item `( "," @@ )* ")"`
}

// Item is a trailing tuple member: the element type or the options.
type Item struct {
	Pos lexer.Position

	Type *Str  `  @String`
	Opts *Dict `| @@`
}

// Dict holds node options.
type Dict struct {
	Entries []*Entry `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

// Entry is one key: value option.
type Entry struct {
	Pos lexer.Position

	Key   Str    `@( Ident | String ) ":"`
	Value *Value `@@`
}

// Value is an option value.
type Value struct {
	Pos lexer.Position

	Number *float64 `  @Number`
	Str    *Str     `| @String`
	Bool   *Boolean `| @( "True" | "False" | "true" | "false" )`
	Tuple  *Seq     `| "(" @@ ")"`
	List   *Seq     `| "[" @@ "]"`
}

// Seq is the body of a tuple or list value.
type Seq struct {
	Items []*Value `( @@ ( "," @@ )* ","? )?`
}

// Str is a string token with its quotes removed. Bare identifiers are
// taken as is.
type Str string

func (s *Str) Capture(values []string) error {
	v := values[0]
	if len(v) < 2 || (v[0] != '\'' && v[0] != '"') {
		*s = Str(v)
		return nil
	}
	quote := v[0]
	body := v[1 : len(v)-1]
	out := make([]byte, 0, len(body))
	for body != "" {
		r, _, tail, err := strconv.UnquoteChar(body, quote)
		if err != nil {
			return fmt.Errorf("bad string %s: %w", v, err)
		}
		out = append(out, string(r)...)
		body = tail
	}
	*s = Str(out)
	return nil
}

// Boolean accepts Python and lower-case spellings.
type Boolean bool

func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "True" || values[0] == "true"
	return nil
}

// goValue converts the value for route.FromOptions.
func (v *Value) goValue() any {
	var seq *Seq
	switch {
	case v.Number != nil:
		return *v.Number
	case v.Str != nil:
		return string(*v.Str)
	case v.Bool != nil:
		return bool(*v.Bool)
	case v.Tuple != nil:
		seq = v.Tuple
	case v.List != nil:
		seq = v.List
	default:
		return nil
	}
	out := make([]any, len(seq.Items))
	for i, it := range seq.Items {
		out[i] = it.goValue()
	}
	return out
}
