// Package tessellate flattens a compiled cell hierarchy into world-space
// polygons per layer and realizes each layer as a region using a geometry
// kernel. One region is produced per layer.
package tessellate

import (
	"fmt"
	"slices"

	"github.com/chazu/qcircuits/pkg/kernel"
)

// transformStack accumulates instance transforms during traversal. Each
// frame holds the composed cell-to-world transform.
type transformStack struct {
	frames []kernel.Trans
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(t kernel.Trans) {
	ts.frames = append(ts.frames, t.Then(ts.top()))
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// top returns the accumulated transform, the identity on an empty stack.
func (ts *transformStack) top() kernel.Trans {
	if len(ts.frames) == 0 {
		return kernel.Identity
	}
	return ts.frames[len(ts.frames)-1]
}

// Flatten walks c and its instances and returns every polygon in world
// coordinates, keyed by layer. The cell tree is never mutated.
func Flatten(c *kernel.Cell) map[kernel.Layer][]kernel.Polygon {
	out := make(map[kernel.Layer][]kernel.Polygon)
	if c == nil {
		return out
	}
	walkCell(c, newTransformStack(), out)
	return out
}

func walkCell(c *kernel.Cell, ts *transformStack, out map[kernel.Layer][]kernel.Polygon) {
	t := ts.top()
	for _, layer := range c.Layers() {
		for _, p := range c.Shapes[layer] {
			out[layer] = append(out[layer], p.Transform(t))
		}
	}
	for _, inst := range c.Instances {
		ts.push(inst.Trans)
		walkCell(inst.Cell, ts, out)
		ts.pop()
	}
}

// Region is the realized geometry of one layer.
type Region struct {
	Layer    kernel.Layer
	Solid    kernel.Solid
	Polygons int
}

// Tessellate flattens c and unions each layer's polygons into one region
// using k. When layers is non-empty only those layers are realized. Regions
// come back sorted by layer name.
func Tessellate(c *kernel.Cell, k kernel.Kernel, layers ...kernel.Layer) ([]*Region, error) {
	if c == nil {
		return nil, nil
	}
	flat := Flatten(c)

	names := make([]kernel.Layer, 0, len(flat))
	for layer := range flat {
		if len(layers) == 0 || slices.Contains(layers, layer) {
			names = append(names, layer)
		}
	}
	slices.Sort(names)

	regions := make([]*Region, 0, len(names))
	for _, layer := range names {
		polys := flat[layer]
		solids := make([]kernel.Solid, 0, len(polys))
		for i, p := range polys {
			s, err := k.Polygon(p)
			if err != nil {
				return nil, fmt.Errorf("tessellate: layer %s polygon %d: %w", layer, i, err)
			}
			solids = append(solids, s)
		}
		regions = append(regions, &Region{
			Layer:    layer,
			Solid:    k.Union(solids...),
			Polygons: len(polys),
		})
	}
	return regions, nil
}
