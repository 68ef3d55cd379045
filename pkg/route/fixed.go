package route

import (
	"errors"
	"fmt"
	"math"

	"honnef.co/go/curve"
)

// Template produces a node sequence for a value of the free parameter.
type Template func(x float64) ([]Node, error)

// SolveOptions tunes SolveForLength.
type SolveOptions struct {
	// InitialGuess is the parameter value used to probe the template.
	InitialGuess float64
	// Bracket overrides the default (R, target/2) search interval.
	Bracket *[2]float64
	// RelTol is the length tolerance relative to the target.
	RelTol float64
	// MaxIter caps template compiles during the search.
	MaxIter int
	// Node selects the cumulative length at that node as the metric;
	// zero or negative measures the total length.
	Node int
}

// DefaultSolveOptions returns a relative tolerance of 1e-6, at most 100
// iterations and the total length as the metric.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{RelTol: 1e-6, MaxIter: 100, Node: -1}
}

// Solution is a compiled route hitting the target length.
type Solution struct {
	*Result
	// X is the solved parameter value.
	X float64
	// Iterations counts compiles made after the bracket ends were evaluated.
	Iterations int
}

// evaluation memoises one compile of the template.
type evaluation struct {
	res   *Result
	nodes []Node
	f     float64
	err   error
}

// SolveForLength finds x in the bracket such that the compiled length of
// tmpl(x) equals target within tolerance. The search is ITP, a bracketing
// method that never does worse than bisection.
func (r *Router) SolveForLength(tmpl Template, target float64, opts SolveOptions) (*Solution, error) {
	if opts.RelTol <= 0 {
		opts.RelTol = 1e-6
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	lo, hi := r.Config.R, target/2
	if opts.Bracket != nil {
		lo, hi = opts.Bracket[0], opts.Bracket[1]
	}
	tol := max(opts.RelTol*math.Abs(target), 1e-9)

	memo := map[float64]*evaluation{}
	eval := func(x float64) *evaluation {
		if e, ok := memo[x]; ok {
			return e
		}
		e := &evaluation{}
		memo[x] = e
		if e.nodes, e.err = tmpl(x); e.err != nil {
			return e
		}
		if e.res, e.err = r.Compile(e.nodes); e.err != nil {
			return e
		}
		var m float64
		if m, e.err = metric(e.res, opts.Node); e.err != nil {
			return e
		}
		e.f = m - target
		return e
	}

	fail := func(reason string, err error) *RootFindingError {
		rf := &RootFindingError{Target: target, Reason: reason, Err: err}
		if nodes, terr := tmpl(lo); terr == nil && len(nodes) > 0 {
			rf.A, rf.B = nodes[0].Position, nodes[len(nodes)-1].Position
		}
		return rf
	}

	if !(lo < hi) {
		return nil, fail(fmt.Sprintf("empty bracket [%g, %g]", lo, hi), nil)
	}
	ea, eb := eval(lo), eval(hi)
	if ea.err != nil {
		return nil, fail(fmt.Sprintf("compile failed at x=%g", lo), ea.err)
	}
	if eb.err != nil {
		return nil, fail(fmt.Sprintf("compile failed at x=%g", hi), eb.err)
	}
	solved := func(x float64, iters int) *Solution {
		return &Solution{Result: memo[x].res, X: x, Iterations: iters}
	}
	if math.Abs(ea.f) <= tol {
		return solved(lo, 0), nil
	}
	if math.Abs(eb.f) <= tol {
		return solved(hi, 0), nil
	}
	if math.Signbit(ea.f) == math.Signbit(eb.f) {
		return nil, fail(fmt.Sprintf("length error has the same sign at both ends (%g, %g)", ea.f, eb.f), nil)
	}

	// Orient f so it rises across the bracket.
	sign := 1.0
	if ea.f > 0 {
		sign = -1
	}
	var (
		calls    int
		exceeded bool
		evalErr  error
	)
	g := func(x float64) float64 {
		if exceeded || evalErr != nil {
			return 0
		}
		if calls++; calls > opts.MaxIter {
			exceeded = true
			return 0
		}
		e := eval(x)
		if e.err != nil {
			evalErr = e.err
			return 0
		}
		if math.Abs(e.f) <= tol {
			return 0
		}
		return sign * e.f
	}

	slope := math.Abs(eb.f-ea.f) / (hi - lo)
	epsilon := tol / slope / 4
	x := curve.SolveITP(g, lo, hi, epsilon, 1, 0.2/(hi-lo), sign*ea.f, sign*eb.f)

	switch {
	case evalErr != nil:
		return nil, fail(fmt.Sprintf("compile failed during search near x=%g", x), evalErr)
	case exceeded:
		return nil, fail(fmt.Sprintf("no convergence within %d iterations", opts.MaxIter), nil)
	}
	e := eval(x)
	if e.err != nil {
		return nil, fail(fmt.Sprintf("compile failed at x=%g", x), e.err)
	}
	if math.Abs(e.f) > tol {
		return nil, fail(fmt.Sprintf("search ended at x=%g with length error %g", x, e.f), nil)
	}
	return solved(x, calls), nil
}

func metric(res *Result, node int) (float64, error) {
	if node <= 0 {
		return res.Length, nil
	}
	if node >= len(res.NodeLengths) {
		return 0, configErr(node, "length target on node %d but the route has %d nodes", node, len(res.NodeLengths))
	}
	return res.NodeLengths[node], nil
}

// SolveLengthBefore solves tmpl so that the cumulative length at the node
// carrying LengthBefore equals that value. Exactly one node may carry it.
func (r *Router) SolveLengthBefore(tmpl Template, opts SolveOptions) (*Solution, error) {
	nodes, err := tmpl(opts.InitialGuess)
	if err != nil {
		return nil, fmt.Errorf("route: probing template at %g: %w", opts.InitialGuess, err)
	}
	at := -1
	for i, n := range nodes {
		if n.LengthBefore <= 0 {
			continue
		}
		if at >= 0 {
			return nil, configErr(i, "length_before is already set on node %d", at)
		}
		at = i
	}
	if at < 0 {
		return nil, configErr(-1, "no node carries length_before")
	}
	if at == 0 {
		return nil, configErr(0, "length_before cannot be set on the first node")
	}
	opts.Node = at
	return r.SolveForLength(tmpl, nodes[at].LengthBefore, opts)
}

// FixedLengthBend builds the U-shaped route a -> corner -> corner -> b whose
// two legs extend from a and b along the directions toward aCorner and
// bCorner, and solves the leg length so the route is target long. bridges
// airbridges are spread on the middle run.
func (r *Router) FixedLengthBend(a, aCorner, b, bCorner curve.Point, target float64, bridges int) (*Solution, error) {
	ua, ub := aCorner.Sub(a), bCorner.Sub(b)
	if ua.Hypot() < eps || ub.Hypot() < eps {
		return nil, errors.New("route: corner points must differ from their end points")
	}
	ua, ub = ua.Normalize(), ub.Normalize()
	tmpl := func(x float64) ([]Node, error) {
		mid, err := NewNode(b.Translate(ub.Mul(x)), WithBridges(bridges))
		if err != nil {
			return nil, err
		}
		return []Node{
			{Position: a},
			{Position: a.Translate(ua.Mul(x))},
			mid,
			{Position: b},
		}, nil
	}
	return r.SolveForLength(tmpl, target, DefaultSolveOptions())
}
