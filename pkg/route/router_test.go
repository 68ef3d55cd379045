package route

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/qcircuits/pkg/element"
	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"honnef.co/go/curve"
)

var reg = element.DefaultRegistry()

func newRouter() *Router {
	return New(DefaultConfig(), kernel.NewLibrary(), nil)
}

func compile(t *testing.T, r *Router, nodes ...Node) *Result {
	t.Helper()
	res, err := r.Compile(nodes)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return res
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// sumLengths adds up the signal length of every placement.
func sumLengths(res *Result) float64 {
	total := 0.0
	for _, p := range res.Placements {
		total += p.Length
	}
	return total
}

// ---------------------------------------------------------------------------
// Concrete scenarios
// ---------------------------------------------------------------------------

func TestCompileStraight(t *testing.T) {
	res := compile(t, newRouter(), Pt(0, 0), Pt(1000, 0))

	if !near(res.Length, 1000) {
		t.Errorf("Length = %v, want 1000", res.Length)
	}
	if n := res.Count(element.KindStraight); n != 1 {
		t.Errorf("straights = %d, want 1", n)
	}
	if len(res.Placements) != 1 {
		t.Errorf("placements = %d, want 1", len(res.Placements))
	}
	want := map[string]kernel.Port{
		"a": {Pos: curve.Pt(0, 0), Dir: curve.Vec(-1, 0)},
		"b": {Pos: curve.Pt(1000, 0), Dir: curve.Vec(1, 0)},
	}
	if diff := cmp.Diff(want, res.Ports, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ports mismatch (-want +got):\n%s", diff)
	}
	if res.Cell == nil || len(res.Cell.Instances) != 1 {
		t.Fatalf("top cell should instance the one straight")
	}
}

func TestCompileRightAngle(t *testing.T) {
	res := compile(t, newRouter(), Pt(0, 0), Pt(500, 0), Pt(500, 500))

	cut := 100 * math.Tan(math.Pi/4)
	want := (500 - cut) + 100*math.Pi/2 + (500 - cut)
	if !near(res.Length, want) {
		t.Errorf("Length = %v, want %v", res.Length, want)
	}
	if res.Bends != 1 || res.Count(element.KindCurve) != 1 {
		t.Errorf("bends = %d (curves %d), want 1", res.Bends, res.Count(element.KindCurve))
	}
	for _, s := range res.Filter(element.KindStraight) {
		if !near(s.Length, 400) {
			t.Errorf("straight length = %v, want 400", s.Length)
		}
	}
	curveAt := res.Filter(element.KindCurve)[0].Trans.Disp
	if !near(curveAt.X, 400) || !near(curveAt.Y, 0) {
		t.Errorf("bend starts at %v, want (400, 0)", curveAt)
	}
	if !near(res.NodeLengths[1], 400+100*math.Pi/4) {
		t.Errorf("NodeLengths[1] = %v, want bend midpoint %v", res.NodeLengths[1], 400+100*math.Pi/4)
	}
	if !near(res.NodeLengths[2], want) {
		t.Errorf("NodeLengths[2] = %v, want %v", res.NodeLengths[2], want)
	}
	b := res.Ports["b"]
	if !near(b.Dir.X, 0) || !near(b.Dir.Y, 1) {
		t.Errorf("exit direction = %v, want (0, 1)", b.Dir)
	}
}

func TestCompileImpedanceChange(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(500, 0), WithImpedance(5, 3)),
		Pt(1000, 0),
	)

	if n := res.Count(element.KindTaper); n != 1 {
		t.Fatalf("tapers = %d, want 1", n)
	}
	if res.Impedance != (Impedance{A: 5, B: 3}) {
		t.Errorf("final impedance = %v, want 5/3", res.Impedance)
	}
	taper := res.Filter(element.KindTaper)[0]
	if !near(taper.Trans.Disp.X, 500) || !near(taper.Trans.Disp.Y, 0) {
		t.Errorf("taper placed at %v, want (500, 0)", taper.Trans.Disp)
	}
	if !near(res.Length, 1000) {
		t.Errorf("Length = %v, want 1000", res.Length)
	}
}

func TestCompileBridges(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(400, 0), WithBridges(3)),
	)

	bridges := res.Filter(element.KindAirbridge)
	if len(bridges) != 3 {
		t.Fatalf("airbridges = %d, want 3", len(bridges))
	}
	for i, want := range []float64{100, 200, 300} {
		at := bridges[i].Trans.Disp
		if !near(at.X, want) || !near(at.Y, 0) {
			t.Errorf("bridge %d at %v, want (%v, 0)", i, at, want)
		}
		if bridges[i].Length != 0 {
			t.Errorf("bridge %d adds length %v", i, bridges[i].Length)
		}
	}
	if !near(res.Length, 400) {
		t.Errorf("Length = %v, want 400", res.Length)
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestCompileEmpty(t *testing.T) {
	for _, nodes := range [][]Node{nil, {Pt(5, 5)}} {
		res, err := newRouter().Compile(nodes)
		if err != nil {
			t.Fatalf("Compile(%d nodes) error: %v", len(nodes), err)
		}
		if res.Length != 0 || len(res.Placements) != 0 || len(res.Ports) != 0 {
			t.Errorf("Compile(%d nodes) should be empty, got %+v", len(nodes), res)
		}
	}
}

func TestCompileIdempotent(t *testing.T) {
	r := newRouter()
	nodes := []Node{
		Pt(0, 0),
		MustNode(curve.Pt(300, 0), WithBridges(2)),
		MustNode(curve.Pt(300, 400), WithImpedance(5, 3)),
		Pt(700, 600),
		Pt(900, 100),
	}
	first := compile(t, r, nodes...)
	second := compile(t, r, nodes...)

	if first.Length != second.Length {
		t.Errorf("lengths differ: %v vs %v", first.Length, second.Length)
	}
	if diff := cmp.Diff(first.Placements, second.Placements); diff != "" {
		t.Errorf("placements differ (-first +second):\n%s", diff)
	}
	for i := range first.Placements {
		if first.Placements[i].Cell != second.Placements[i].Cell {
			t.Errorf("placement %d should reuse the memoised cell", i)
		}
	}
}

func TestCompileLengthAccounting(t *testing.T) {
	r := newRouter()
	r.Config.Term1, r.Config.Term2 = 20, 20
	res := compile(t, r,
		Pt(0, 0),
		MustNode(curve.Pt(400, 0), WithBridges(1)),
		MustNode(curve.Pt(400, 500), WithFace("2b1")),
		MustNode(curve.Pt(800, 700), WithElement(reg.MustResolve("AirbridgeConnection"))),
		MustNode(curve.Pt(1200, 700), WithAcross()),
		Pt(1200, 1200),
	)
	if !near(res.Length, sumLengths(res)) {
		t.Errorf("Length %v != sum of placement lengths %v", res.Length, sumLengths(res))
	}
	if res.Length <= 0 {
		t.Errorf("Length = %v, want > 0", res.Length)
	}
	for i := 1; i < len(res.NodeLengths); i++ {
		if res.NodeLengths[i] < res.NodeLengths[i-1] {
			t.Errorf("NodeLengths not monotonic at %d: %v", i, res.NodeLengths)
		}
	}
	if got := res.Count(element.KindTermination); got != 2 {
		t.Errorf("terminations = %d, want 2", got)
	}
}

func TestCompileCollinearElision(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  float64
	}{
		{"exact", []Node{Pt(0, 0), Pt(100, 0), Pt(250, 0), Pt(400, 0)}, 400},
		{"within tolerance", []Node{Pt(0, 0), Pt(100, 0), Pt(250, 0.0005), Pt(400, 0)}, 400},
		{"diagonal", []Node{Pt(0, 0), Pt(100, 100), Pt(200, 200), Pt(300, 300)}, 300 * math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, newRouter(), tt.nodes...)
			if res.Bends != 0 || res.Count(element.KindCurve) != 0 {
				t.Errorf("bends = %d, want 0", res.Bends)
			}
			if res.Count(element.KindStraight) != 1 {
				t.Errorf("straights = %d, want one merged run", res.Count(element.KindStraight))
			}
			if !near(res.Length, tt.want) {
				t.Errorf("Length = %v, want %v", res.Length, tt.want)
			}
		})
	}
}

func TestCompileEqualImpedanceIsNoop(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(500, 0), WithImpedance(10, 6)),
		MustNode(curve.Pt(800, 0), WithFace("1t1")),
		Pt(1000, 0),
	)
	if res.Count(element.KindTaper) != 0 || res.Count(element.KindFlipChipConnector) != 0 {
		t.Errorf("no transition expected, got placements %v", res.Placements)
	}
	if !near(res.Length, 1000) {
		t.Errorf("Length = %v, want 1000", res.Length)
	}
}

// ---------------------------------------------------------------------------
// Transitions and elements
// ---------------------------------------------------------------------------

func TestCompileFaceChange(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(500, 0), WithFace("2b1"), WithImpedance(5, 3)),
		Pt(1000, 0),
	)
	if res.Face != "2b1" {
		t.Errorf("Face = %q, want 2b1", res.Face)
	}
	kinds := make([]element.Kind, len(res.Placements))
	for i, p := range res.Placements {
		kinds[i] = p.Kind
	}
	want := []element.Kind{element.KindStraight, element.KindFlipChipConnector, element.KindTaper, element.KindStraight}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("placement kinds (-want +got):\n%s", diff)
	}
	if !near(res.Length, 1000) {
		t.Errorf("Length = %v, want 1000", res.Length)
	}
	last := res.Placements[len(res.Placements)-1].Cell
	if _, ok := last.Shapes["2b1_base_metal_gap_wo_grid"]; !ok {
		t.Errorf("fill after the transition should be on face 2b1, layers %v", last.Layers())
	}
}

func TestCompileAirbridgeConnectionTapers(t *testing.T) {
	tests := []struct {
		name   string
		first  Node
		tapers int
		want   Impedance
	}{
		{"native impedance", Pt(0, 0), 0, Impedance{A: 10, B: 6}},
		{"wrapped", MustNode(curve.Pt(0, 0), WithImpedance(5, 3)), 2, Impedance{A: 5, B: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, newRouter(),
				tt.first,
				MustNode(curve.Pt(500, 0), WithElement(reg.MustResolve("AirbridgeConnection"))),
				Pt(1000, 0),
			)
			if got := res.Count(element.KindTaper); got != tt.tapers {
				t.Errorf("tapers = %d, want %d", got, tt.tapers)
			}
			if res.Count(element.KindAirbridgeConnection) != 1 {
				t.Errorf("airbridge connections = %d, want 1", res.Count(element.KindAirbridgeConnection))
			}
			if !near(res.Length, 1000) {
				t.Errorf("Length = %v, want 1000", res.Length)
			}
			if res.Impedance != tt.want {
				t.Errorf("impedance after the bridge = %v, want %v", res.Impedance, tt.want)
			}
		})
	}
}

func TestCompileFirstNodeElement(t *testing.T) {
	res := compile(t, newRouter(),
		MustNode(curve.Pt(0, 0), WithElement(reg.MustResolve("AirbridgeConnection"))),
		Pt(0, 500),
	)
	ab := res.Filter(element.KindAirbridgeConnection)[0]
	exit := ab.Trans.ApplyPort(ab.Cell.Ports[element.PortB])
	if !near(exit.Pos.X, 0) || !near(exit.Pos.Y, 80) {
		t.Errorf("first element should point toward node 1, exit at %v", exit.Pos)
	}
	if !near(res.Length, 500) {
		t.Errorf("Length = %v, want 500", res.Length)
	}
}

func TestCompileSplitter(t *testing.T) {
	split := MustNode(curve.Pt(500, 0),
		WithElement(reg.MustResolve("WaveguideCoplanarSplitter")),
		WithName("split"),
	)
	res := compile(t, newRouter(), Pt(0, 0), split, Pt(1000, 0))

	stub, ok := res.Ports["split_port_c"]
	if !ok {
		t.Fatalf("missing stub port, ports = %v", res.Ports)
	}
	want := kernel.Port{Pos: curve.Pt(550, -50), Dir: curve.Vec(0, -1)}
	if diff := cmp.Diff(want, stub, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("stub port mismatch (-want +got):\n%s", diff)
	}
	if !near(res.Length, 1000) {
		t.Errorf("Length = %v, want 1000", res.Length)
	}
}

func TestCompileSplitterUnknownPort(t *testing.T) {
	split := MustNode(curve.Pt(500, 0),
		WithElement(reg.MustResolve("WaveguideCoplanarSplitter")),
		WithData(SplitterData{Align: [2]string{"port_a", "port_z"}}),
	)
	_, err := newRouter().Compile([]Node{Pt(0, 0), split, Pt(1000, 0)})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if ce.Node != 1 || ce.Port != "port_z" {
		t.Errorf("error names node %d port %q, want node 1 port_z", ce.Node, ce.Port)
	}
}

func TestCompileCustomElement(t *testing.T) {
	r := element.DefaultRegistry()
	err := r.Register("Meander", func(f kernel.Factory, p element.Params) (*kernel.Cell, error) {
		c := kernel.NewCell("meander")
		c.SetPort(element.PortA, kernel.Port{Pos: curve.Pt(0, 0), Dir: curve.Vec(-1, 0)})
		c.SetPort(element.PortB, kernel.Port{Pos: curve.Pt(40, 0), Dir: curve.Vec(1, 0)})
		c.Length = 250
		return c, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(100, 0), WithElement(r.MustResolve("Meander"))),
		Pt(300, 0),
	)
	// 100 + 250 through the meander + 160 after its exit at x=140.
	if !near(res.Length, 510) {
		t.Errorf("Length = %v, want 510", res.Length)
	}
}

func TestCompileAcrossOnCorner(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(500, 0), WithAcross()),
		Pt(500, 500),
	)
	bridges := res.Filter(element.KindAirbridge)
	if len(bridges) != 1 {
		t.Fatalf("airbridges = %d, want 1", len(bridges))
	}
	at := bridges[0].Trans.Disp
	want := curve.Pt(400+100*math.Sqrt2/2, 100-100*math.Sqrt2/2)
	if !near(at.X, want.X) || !near(at.Y, want.Y) {
		t.Errorf("bridge at %v, want bend midpoint %v", at, want)
	}
	if !near(bridges[0].Trans.Rot.Degrees(), 45) {
		t.Errorf("bridge heading %v, want 45", bridges[0].Trans.Rot.Degrees())
	}
}

func TestCompileLeadOut(t *testing.T) {
	res := compile(t, newRouter(),
		Pt(0, 0),
		MustNode(curve.Pt(200, 0), WithElement(reg.MustResolve("AirbridgeConnection"))),
		Pt(600, 400),
	)
	if res.Bends != 1 {
		t.Fatalf("bends = %d, want 1 lead-out arc", res.Bends)
	}
	b := res.Ports["b"]
	sweep := math.Atan2(b.Dir.Y, b.Dir.X)
	// Tangent length from (600,400) to the circle of radius 100 about (280,100).
	tangent := math.Sqrt(320*320 + 300*300 - 100*100)
	want := 280 + 100*sweep + tangent
	if !near(res.Length, want) {
		t.Errorf("Length = %v, want %v", res.Length, want)
	}
}

func TestCompileTerminations(t *testing.T) {
	r := newRouter()
	r.Config.Term1, r.Config.Term2 = 20, 15
	res := compile(t, r, Pt(0, 0), Pt(1000, 0))
	terms := res.Filter(element.KindTermination)
	if len(terms) != 2 {
		t.Fatalf("terminations = %d, want 2", len(terms))
	}
	if !near(res.Length, 1000) {
		t.Errorf("terminations must not add length, got %v", res.Length)
	}
	// The start stub extends behind node 0.
	bb := terms[0].Cell.Shapes["1t1_base_metal_gap_wo_grid"][0].Transform(terms[0].Trans).BoundingBox()
	if !near(bb.MinX(), -20) || !near(bb.MaxX(), 0) {
		t.Errorf("start stub spans x [%v, %v], want [-20, 0]", bb.MinX(), bb.MaxX())
	}
	bb = terms[1].Cell.Shapes["1t1_base_metal_gap_wo_grid"][0].Transform(terms[1].Trans).BoundingBox()
	if !near(bb.MinX(), 1000) || !near(bb.MaxX(), 1015) {
		t.Errorf("end stub spans x [%v, %v], want [1000, 1015]", bb.MinX(), bb.MaxX())
	}
}

func TestCenterline(t *testing.T) {
	res := compile(t, newRouter(), Pt(0, 0), Pt(500, 0), Pt(500, 500))
	got := res.Centerline().Arclen(1e-6)
	if math.Abs(got-res.Length) > 1e-2 {
		t.Errorf("centre line length = %v, want ~%v", got, res.Length)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name       string
		nodes      []Node
		cfg        func(*Config)
		wantDegen  bool
		wantConfig bool
		wantNode   int
	}{
		{
			name:      "coincident nodes",
			nodes:     []Node{Pt(0, 0), Pt(100, 0), Pt(100, 0), Pt(200, 0)},
			wantDegen: true, wantNode: 2,
		},
		{
			name:      "coincident first pair",
			nodes:     []Node{Pt(0, 0), Pt(0, 0)},
			wantDegen: true, wantNode: 1,
		},
		{
			name:      "reversal",
			nodes:     []Node{Pt(0, 0), Pt(100, 0), Pt(50, 0)},
			wantDegen: true, wantNode: 1,
		},
		{
			name:      "straight too short for bend",
			nodes:     []Node{Pt(0, 0), Pt(50, 0), Pt(50, 500)},
			wantDegen: true, wantNode: 1,
		},
		{
			name:      "zero radius turn",
			nodes:     []Node{Pt(0, 0), Pt(500, 0), Pt(500, 500)},
			cfg:       func(c *Config) { c.R = 0 },
			wantDegen: true, wantNode: 1,
		},
		{
			name: "lead-out target inside bend circle",
			nodes: []Node{
				Pt(0, 0),
				MustNode(curve.Pt(200, 0), WithElement(reg.MustResolve("AirbridgeConnection"))),
				Pt(300, 50),
			},
			wantDegen: true, wantNode: 2,
		},
		{
			name: "bridges on an edge flushed to zero length",
			nodes: []Node{
				MustNode(curve.Pt(0, 0), WithElement(reg.MustResolve("AirbridgeConnection"))),
				MustNode(curve.Pt(0, 80), WithImpedance(5, 3), WithBridges(2)),
				Pt(0, 500),
			},
			wantDegen: true, wantNode: 1,
		},
		{
			name:       "length_before on node 0",
			nodes:      []Node{{Position: curve.Pt(0, 0), LengthBefore: 10}, Pt(100, 0)},
			wantConfig: true, wantNode: 0,
		},
		{
			name:       "unknown face",
			nodes:      []Node{Pt(0, 0), MustNode(curve.Pt(100, 0), WithFace("3t3")), Pt(200, 0)},
			wantConfig: true, wantNode: 1,
		},
		{
			name:       "negative bridges literal",
			nodes:      []Node{Pt(0, 0), {Position: curve.Pt(100, 0), Bridges: -1}},
			wantConfig: true, wantNode: 1,
		},
		{
			name: "straight element without length",
			nodes: []Node{
				Pt(0, 0),
				MustNode(curve.Pt(100, 0), WithElement(reg.MustResolve("WaveguideCoplanarStraight"))),
				Pt(300, 0),
			},
			wantConfig: true, wantNode: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			if tt.cfg != nil {
				tt.cfg(&r.Config)
			}
			res, err := r.Compile(tt.nodes)
			if err == nil {
				t.Fatal("expected an error")
			}
			if res != nil {
				t.Error("failed compiles must not return a result")
			}
			var de *DegenerateGeometryError
			var ce *ConfigurationError
			switch {
			case tt.wantDegen:
				if !errors.As(err, &de) {
					t.Fatalf("err = %v, want DegenerateGeometryError", err)
				}
				if de.Node != tt.wantNode {
					t.Errorf("error at node %d, want %d (%v)", de.Node, tt.wantNode, err)
				}
			case tt.wantConfig:
				if !errors.As(err, &ce) {
					t.Fatalf("err = %v, want ConfigurationError", err)
				}
				if ce.Node != tt.wantNode {
					t.Errorf("error at node %d, want %d (%v)", ce.Node, tt.wantNode, err)
				}
			}
		})
	}
}

func TestCompileNoFactory(t *testing.T) {
	r := New(DefaultConfig(), nil, nil)
	if _, err := r.Compile([]Node{Pt(0, 0), Pt(1, 0)}); err == nil {
		t.Fatal("expected an error without a factory")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"negative radius", func(c *Config) { c.R = -1 }},
		{"zero a", func(c *Config) { c.A = 0 }},
		{"face not listed", func(c *Config) { c.Face = "9z9" }},
		{"zero taper", func(c *Config) { c.TaperLength = 0 }},
		{"splitter mismatch", func(c *Config) { c.Splitter.Lengths = []float64{1} }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
