package kernel

import (
	"maps"
	"math"
	"slices"

	"honnef.co/go/curve"
)

// Port is a named anchor of a cell: a position and the outward unit
// direction along which a waveguide leaves the cell.
type Port struct {
	Pos curve.Point `json:"pos"`
	Dir curve.Vec2  `json:"dir"`
}

// Reversed returns the port facing the other way.
func (p Port) Reversed() Port {
	return Port{Pos: p.Pos, Dir: p.Dir.Negate()}
}

// Instance places a child cell in its parent's frame.
type Instance struct {
	Cell  *Cell
	Trans Trans
}

// Cell is a placeable unit of geometry: polygons per layer, named ports,
// and child instances. Cells are built once and then shared read-only.
type Cell struct {
	Name      string
	Shapes    map[Layer][]Polygon
	Ports     map[string]Port
	Instances []Instance

	// Length is the signal path length between port_a and port_b.
	Length float64
	// Junction is the centre of a multi-port element, nil for two-port cells.
	Junction *curve.Point
}

// NewCell returns an empty cell. Most callers go through a Factory.
func NewCell(name string) *Cell {
	return &Cell{
		Name:   name,
		Shapes: make(map[Layer][]Polygon),
		Ports:  make(map[string]Port),
	}
}

// Add appends polygons to a layer.
func (c *Cell) Add(layer Layer, polys ...Polygon) {
	c.Shapes[layer] = append(c.Shapes[layer], polys...)
}

// SetPort defines or replaces a named port.
func (c *Cell) SetPort(name string, p Port) {
	c.Ports[name] = p
}

// Port returns the named port.
func (c *Cell) Port(name string) (Port, bool) {
	p, ok := c.Ports[name]
	return p, ok
}

// PortNames returns the port names in sorted order.
func (c *Cell) PortNames() []string {
	return slices.Sorted(maps.Keys(c.Ports))
}

// Insert places child in this cell.
func (c *Cell) Insert(child *Cell, t Trans) {
	c.Instances = append(c.Instances, Instance{Cell: child, Trans: t})
}

// Layers returns the layers carrying shapes in this cell, sorted.
func (c *Cell) Layers() []Layer {
	return slices.Sorted(maps.Keys(c.Shapes))
}

// PathLength returns the signal length travelled from port in to port out.
// Two-port cells report Length; multi-port cells route through Junction.
func (c *Cell) PathLength(in, out string) float64 {
	if c.Junction == nil {
		return c.Length
	}
	a, okA := c.Ports[in]
	b, okB := c.Ports[out]
	if !okA || !okB {
		return math.NaN()
	}
	return a.Pos.Distance(*c.Junction) + c.Junction.Distance(b.Pos)
}
