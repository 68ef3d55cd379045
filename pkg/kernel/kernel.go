// Package kernel defines the geometry collaborator the router builds on:
// ports, rigid transforms, polygons, cells with named ports, a cell
// factory, and the abstract region kernel. Region backends (sdfx) provide
// boolean operations and export behind the Kernel interface so the rest of
// the system never depends on a concrete backend.
package kernel

import "honnef.co/go/curve"

// Solid is an opaque handle to a realized 2D region.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() curve.Rect
	// Contains reports whether pt lies inside the region.
	Contains(pt curve.Point) bool
}

// Kernel is the abstract region kernel interface.
type Kernel interface {
	// Primitives
	Polygon(p Polygon) (Solid, error)

	// Boolean operations
	Union(solids ...Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Export
	ToDXF(s Solid, path string) error
	ToSVG(s Solid, path string) error
}
