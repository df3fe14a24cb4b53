// Package geom provides axis-aligned box primitives for page-local
// coordinate spaces. All operations are pure; boxes are value types and
// never mutated in place.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedBox is returned when a box violates x0<=x1, y0<=y1 or
// contains non-finite coordinates.
var ErrMalformedBox = errors.New("geom: malformed box")

// Box is an immutable axis-aligned rectangle in a page's coordinate
// space. Origin and axis convention are fixed per page; boxes from
// different pages must never be combined.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewBox validates the corner ordering and returns the box.
func NewBox(x0, y0, x1, y1 float64) (Box, error) {
	b := Box{X0: x0, Y0: y0, X1: x1, Y1: y1}
	if err := b.Validate(); err != nil {
		return Box{}, err
	}
	return b, nil
}

// Validate reports ErrMalformedBox for inverted or non-finite corners.
func (b Box) Validate() error {
	for _, v := range []float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in (%g,%g,%g,%g)", ErrMalformedBox, b.X0, b.Y0, b.X1, b.Y1)
		}
	}
	if b.X0 > b.X1 || b.Y0 > b.Y1 {
		return fmt.Errorf("%w: (%g,%g,%g,%g)", ErrMalformedBox, b.X0, b.Y0, b.X1, b.Y1)
	}
	return nil
}

// Width returns the horizontal extent.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Area returns width*height.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// CenterX returns the horizontal centroid coordinate.
func (b Box) CenterX() float64 { return (b.X0 + b.X1) / 2 }

// CenterY returns the vertical centroid coordinate.
func (b Box) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// Union returns the minimal box enclosing both a and b.
func Union(a, b Box) Box {
	return Box{
		X0: math.Min(a.X0, b.X0),
		Y0: math.Min(a.Y0, b.Y0),
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
	}
}

// Intersect returns the overlapping region and whether it is non-empty.
func Intersect(a, b Box) (Box, bool) {
	x0 := math.Max(a.X0, b.X0)
	y0 := math.Max(a.Y0, b.Y0)
	x1 := math.Min(a.X1, b.X1)
	y1 := math.Min(a.Y1, b.Y1)
	if x1 <= x0 || y1 <= y0 {
		return Box{}, false
	}
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1}, true
}

// OverlapRatio returns the fraction of the smaller box's area covered
// by the intersection of a and b; 0 when disjoint or degenerate.
func OverlapRatio(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	smaller := math.Min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0
	}
	return inter.Area() / smaller
}

// HorizontalGap returns the signed distance between the nearest vertical
// edges of a and b; negative when the x-extents overlap.
func HorizontalGap(a, b Box) float64 {
	if a.X0 > b.X0 {
		a, b = b, a
	}
	return b.X0 - a.X1
}

// VerticalGap returns the signed distance between the nearest horizontal
// edges of a and b; negative when the y-extents overlap.
func VerticalGap(a, b Box) float64 {
	if a.Y0 > b.Y0 {
		a, b = b, a
	}
	return b.Y0 - a.Y1
}

// XOverlap returns the length of the overlap of the two x-extents,
// clamped at zero.
func XOverlap(a, b Box) float64 {
	return math.Max(0, math.Min(a.X1, b.X1)-math.Max(a.X0, b.X0))
}

// Transform returns the box shifted by (dx, dy) and rescaled about the
// origin of the new space. Used by the spread engine when remapping
// boxes onto a split page.
func Transform(b Box, dx, dy, scale float64) Box {
	return Box{
		X0: (b.X0 + dx) * scale,
		Y0: (b.Y0 + dy) * scale,
		X1: (b.X1 + dx) * scale,
		Y1: (b.Y1 + dy) * scale,
	}
}

// Clip returns b restricted to bounds. The result may be degenerate
// (zero width or height) when b lies outside bounds.
func Clip(b, bounds Box) Box {
	return Box{
		X0: math.Min(math.Max(b.X0, bounds.X0), bounds.X1),
		Y0: math.Min(math.Max(b.Y0, bounds.Y0), bounds.Y1),
		X1: math.Max(math.Min(b.X1, bounds.X1), bounds.X0),
		Y1: math.Max(math.Min(b.Y1, bounds.Y1), bounds.Y0),
	}
}
