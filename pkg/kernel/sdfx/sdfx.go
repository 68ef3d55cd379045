// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"honnef.co/go/curve"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching squares resolution on export.
const defaultMeshCells = 400

// ErrEmpty is returned when exporting a region with no geometry.
var ErrEmpty = errors.New("sdfx: empty region")

// sdfxSolid wraps an sdf.SDF2 to implement kernel.Solid.
// A nil SDF is the empty region.
type sdfxSolid struct {
	s sdf.SDF2
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() curve.Rect {
	if s.s == nil {
		return curve.Rect{}
	}
	bb := s.s.BoundingBox()
	return curve.Rect{X0: bb.Min.X, Y0: bb.Min.Y, X1: bb.Max.X, Y1: bb.Max.Y}
}

// Contains reports whether pt lies strictly inside the region.
func (s *sdfxSolid) Contains(pt curve.Point) bool {
	if s.s == nil {
		return false
	}
	return s.s.Evaluate(v2.Vec{X: pt.X, Y: pt.Y}) < 0
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// MeshCells is the marching squares resolution used by exports.
	MeshCells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{MeshCells: defaultMeshCells}
}

// unwrap extracts the underlying sdf.SDF2 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF2 {
	if s == nil {
		return nil
	}
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF2.
func wrap(s sdf.SDF2) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Polygon creates a region from a closed polygon.
func (k *SdfxKernel) Polygon(p kernel.Polygon) (kernel.Solid, error) {
	if len(p) < 3 {
		return nil, fmt.Errorf("sdfx: polygon needs at least 3 vertices, got %d", len(p))
	}
	p = p.CCW()
	vs := make([]v2.Vec, len(p))
	for i, pt := range p {
		vs[i] = v2.Vec{X: pt.X, Y: pt.Y}
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of the given regions. Empty regions are skipped.
func (k *SdfxKernel) Union(solids ...kernel.Solid) kernel.Solid {
	var parts []sdf.SDF2
	for _, s := range solids {
		if u := unwrap(s); u != nil {
			parts = append(parts, u)
		}
	}
	switch len(parts) {
	case 0:
		return wrap(nil)
	case 1:
		return wrap(parts[0])
	}
	return wrap(sdf.Union2D(parts...))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	if sa == nil || sb == nil {
		return wrap(sa)
	}
	return wrap(sdf.Difference2D(sa, sb))
}

// Intersection returns the intersection of two regions.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	if sa == nil || sb == nil {
		return wrap(nil)
	}
	return wrap(sdf.Intersect2D(sa, sb))
}

// ToDXF renders the region outline to a DXF file using marching squares.
func (k *SdfxKernel) ToDXF(s kernel.Solid, path string) error {
	sdf2 := unwrap(s)
	if sdf2 == nil {
		return ErrEmpty
	}
	render.ToDXF(sdf2, path, render.NewMarchingSquaresQuadtree(k.cells()))
	return nil
}

// ToSVG renders the region outline to an SVG file using marching squares.
func (k *SdfxKernel) ToSVG(s kernel.Solid, path string) error {
	sdf2 := unwrap(s)
	if sdf2 == nil {
		return ErrEmpty
	}
	render.ToSVG(sdf2, path, render.NewMarchingSquaresQuadtree(k.cells()))
	return nil
}

func (k *SdfxKernel) cells() int {
	if k.MeshCells <= 0 {
		return defaultMeshCells
	}
	return k.MeshCells
}
