// Package region implements rectilinear regions built from non-overlapping
// rectangles.
//
// A Region is the bookkeeping type used by the backing store for "which part
// of this tile holds valid pixels" and "which part of the queue was skipped".
// Rectangles are half-open image.Rectangle values, so two rectangles that
// share an edge do not overlap.
//
// Mutating methods never write into storage shared with a copy of the
// region, so a Region copied by value stays unchanged. Concurrent use of the
// same Region still requires external synchronization.
package region

import (
	"image"
	"slices"
)

// Region is a set of pixels described by non-overlapping rectangles.
// The zero value is an empty region ready to use.
type Region struct {
	rects []image.Rectangle
}

// FromRect returns a region covering r. An empty r yields an empty region.
func FromRect(r image.Rectangle) Region {
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []image.Rectangle{r.Canon()}}
}

// IsEmpty reports whether the region covers no pixels.
func (g Region) IsEmpty() bool {
	return len(g.rects) == 0
}

// Rects returns a copy of the rectangles making up the region.
// The rectangles never overlap.
func (g Region) Rects() []image.Rectangle {
	return slices.Clone(g.rects)
}

// Len returns the number of rectangles in the region.
func (g Region) Len() int {
	return len(g.rects)
}

// Bounds returns the smallest rectangle containing the whole region.
func (g Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, r := range g.rects {
		b = b.Union(r)
	}
	return b
}

// Area returns the number of pixels in the region.
func (g Region) Area() int {
	area := 0
	for _, r := range g.rects {
		area += r.Dx() * r.Dy()
	}
	return area
}

// Clone returns an independent copy of the region.
func (g Region) Clone() Region {
	return Region{rects: slices.Clone(g.rects)}
}

// Add unions r into the region.
func (g *Region) Add(r image.Rectangle) {
	if r.Empty() {
		return
	}
	// Only the parts of r not already covered are appended, so the
	// non-overlap invariant holds without re-partitioning existing rects.
	pieces := []image.Rectangle{r.Canon()}
	for _, existing := range g.rects {
		if len(pieces) == 0 {
			return
		}
		next := pieces[:0:0]
		for _, p := range pieces {
			next = append(next, subtractRect(p, existing)...)
		}
		pieces = next
	}
	if len(pieces) == 0 {
		return
	}
	g.rects = coalesce(append(slices.Clip(g.rects), pieces...))
}

// coalesce merges rectangles that share a full edge until no two do. rects
// must not be shared with another region.
func coalesce(rects []image.Rectangle) []image.Rectangle {
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			u, ok := join(rects[i], rects[j])
			if !ok {
				continue
			}
			rects[i] = u
			rects = slices.Delete(rects, j, j+1)
			// rects[i] grew; it may now meet a rect it skipped before.
			i = -1
			break
		}
	}
	return rects
}

// join returns the union of a and b when it is itself a rectangle made of
// two side-by-side pieces.
func join(a, b image.Rectangle) (image.Rectangle, bool) {
	switch {
	case a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y && (a.Max.X == b.Min.X || b.Max.X == a.Min.X):
		return a.Union(b), true
	case a.Min.X == b.Min.X && a.Max.X == b.Max.X && (a.Max.Y == b.Min.Y || b.Max.Y == a.Min.Y):
		return a.Union(b), true
	}
	return image.Rectangle{}, false
}

// AddRegion unions other into the region.
func (g *Region) AddRegion(other Region) {
	for _, r := range other.rects {
		g.Add(r)
	}
}

// Subtract removes r from the region.
func (g *Region) Subtract(r image.Rectangle) {
	if r.Empty() || len(g.rects) == 0 {
		return
	}
	out := g.rects[:0:0]
	for _, existing := range g.rects {
		out = append(out, subtractRect(existing, r)...)
	}
	g.rects = out
}

// SubtractRegion removes every rectangle of other from the region.
func (g *Region) SubtractRegion(other Region) {
	for _, r := range other.rects {
		g.Subtract(r)
	}
}

// Intersect clips the region to r.
func (g *Region) Intersect(r image.Rectangle) {
	out := g.rects[:0:0]
	for _, existing := range g.rects {
		if in := existing.Intersect(r); !in.Empty() {
			out = append(out, in)
		}
	}
	g.rects = out
}

// Intersection returns the part of the region inside r without modifying g.
func (g Region) Intersection(r image.Rectangle) Region {
	var out Region
	for _, existing := range g.rects {
		if in := existing.Intersect(r); !in.Empty() {
			out.rects = append(out.rects, in)
		}
	}
	return out
}

// Overlaps reports whether any pixel of r is inside the region.
func (g Region) Overlaps(r image.Rectangle) bool {
	for _, existing := range g.rects {
		if existing.Overlaps(r) {
			return true
		}
	}
	return false
}

// Contains reports whether every pixel of r is inside the region.
// An empty r is always contained.
func (g Region) Contains(r image.Rectangle) bool {
	if r.Empty() {
		return true
	}
	remaining := []image.Rectangle{r.Canon()}
	for _, existing := range g.rects {
		next := remaining[:0:0]
		for _, p := range remaining {
			next = append(next, subtractRect(p, existing)...)
		}
		remaining = next
		if len(remaining) == 0 {
			return true
		}
	}
	return len(remaining) == 0
}

// Translate moves every rectangle of the region by d.
func (g *Region) Translate(d image.Point) {
	moved := make([]image.Rectangle, len(g.rects))
	for i, r := range g.rects {
		moved[i] = r.Add(d)
	}
	g.rects = moved
}

// Clear empties the region.
func (g *Region) Clear() {
	g.rects = nil
}

// Subtract returns the parts of r that are not inside s, as at most four
// non-overlapping rectangles.
func Subtract(r, s image.Rectangle) []image.Rectangle {
	return subtractRect(r, s)
}

// subtractRect splits r around s into top, bottom, left and right bands.
func subtractRect(r, s image.Rectangle) []image.Rectangle {
	in := r.Intersect(s)
	if in.Empty() {
		return []image.Rectangle{r}
	}
	if in == r {
		return nil
	}

	out := make([]image.Rectangle, 0, 4)
	if r.Min.Y < in.Min.Y {
		out = append(out, image.Rect(r.Min.X, r.Min.Y, r.Max.X, in.Min.Y))
	}
	if in.Max.Y < r.Max.Y {
		out = append(out, image.Rect(r.Min.X, in.Max.Y, r.Max.X, r.Max.Y))
	}
	if r.Min.X < in.Min.X {
		out = append(out, image.Rect(r.Min.X, in.Min.Y, in.Min.X, in.Max.Y))
	}
	if in.Max.X < r.Max.X {
		out = append(out, image.Rect(in.Max.X, in.Min.Y, r.Max.X, in.Max.Y))
	}
	return out
}
