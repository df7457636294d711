// Package grid lays out the tile pool over the content plane.
//
// A Geometry is one snapshot of the tile grid: how many tiles wide and high
// it is, where its top-left tile sits in content space (the backing-store
// rect) and which pool tile occupies each index. Geometries are built by the
// paint goroutine into the back slot of a swap.DoubleBuffer and published
// whole; the presentation goroutine only ever reads a published front.
//
// Offsets are always multiples of the tile size, so every geometry shares
// one global tile lattice anchored at the content origin. Scroll reuse
// depends on that: a tile's last-render origin lands exactly on a lattice
// point of any later geometry.
package grid

import (
	"image"

	"github.com/gogpu/tilestore/internal/tile"
)

// Geometry is a snapshot of the tile grid.
//
// Thread safety: a published Geometry is read-only. Only the writer mutates
// the back slot.
type Geometry struct {
	// TilesWide and TilesHigh are the grid dimensions.
	TilesWide int
	TilesHigh int

	// Offset is the content-space origin of tile (0, 0).
	Offset image.Point

	// TileSize is the size of every tile in pixels.
	TileSize image.Point

	// Tiles holds the tile at each index in row-major order:
	// index = y*TilesWide + x.
	Tiles []*tile.Tile

	// Visible is the content-space rect shown in the window when this
	// geometry was published.
	Visible image.Rectangle

	// Contents is the content size at the current scale.
	Contents image.Point

	// Scale is the content scale at publish time.
	Scale float64
}

// Len returns the number of tile slots.
func (g *Geometry) Len() int {
	return g.TilesWide * g.TilesHigh
}

// Rect returns the backing-store rect in content space.
func (g *Geometry) Rect() image.Rectangle {
	return image.Rectangle{
		Min: g.Offset,
		Max: g.Offset.Add(image.Pt(g.TilesWide*g.TileSize.X, g.TilesHigh*g.TileSize.Y)),
	}
}

// ContentBounds returns the content rectangle anchored at the origin.
func (g *Geometry) ContentBounds() image.Rectangle {
	return image.Rectangle{Max: g.Contents}
}

// Contains reports whether idx is inside the grid.
func (g *Geometry) Contains(idx tile.Index) bool {
	return idx.X >= 0 && idx.Y >= 0 && idx.X < g.TilesWide && idx.Y < g.TilesHigh
}

// At returns the tile at idx, or nil when idx is outside the grid.
func (g *Geometry) At(idx tile.Index) *tile.Tile {
	if !g.Contains(idx) {
		return nil
	}
	return g.Tiles[idx.Y*g.TilesWide+idx.X]
}

// Set places t at idx. idx must be inside the grid.
func (g *Geometry) Set(idx tile.Index, t *tile.Tile) {
	g.Tiles[idx.Y*g.TilesWide+idx.X] = t
}

// IndexAt returns the index of slot i in row-major order.
func (g *Geometry) IndexAt(i int) tile.Index {
	return tile.Index{X: i % g.TilesWide, Y: i / g.TilesWide}
}

// OriginOf returns the content-space origin of idx. idx may lie outside
// the grid; the lattice extends in every direction.
func (g *Geometry) OriginOf(idx tile.Index) image.Point {
	return g.Offset.Add(image.Pt(idx.X*g.TileSize.X, idx.Y*g.TileSize.Y))
}

// TileRect returns the content-space rect covered by idx.
func (g *Geometry) TileRect(idx tile.Index) image.Rectangle {
	o := g.OriginOf(idx)
	return image.Rectangle{Min: o, Max: o.Add(g.TileSize)}
}

// IndexOf returns the index of the tile containing p and whether p lies on
// a tile origin of this geometry's lattice.
func (g *Geometry) IndexOf(p image.Point) (idx tile.Index, aligned bool) {
	d := p.Sub(g.Offset)
	idx = tile.Index{X: floorDiv(d.X, g.TileSize.X), Y: floorDiv(d.Y, g.TileSize.Y)}
	aligned = d.X%g.TileSize.X == 0 && d.Y%g.TileSize.Y == 0
	return idx, aligned
}

// IndexesIn returns, in row-major order, the indexes of every tile in the
// grid that intersects r.
func (g *Geometry) IndexesIn(r image.Rectangle) []tile.Index {
	r = r.Intersect(g.Rect())
	if r.Empty() {
		return nil
	}
	lo, _ := g.IndexOf(r.Min)
	hi, _ := g.IndexOf(r.Max.Sub(image.Pt(1, 1)))

	out := make([]tile.Index, 0, (hi.X-lo.X+1)*(hi.Y-lo.Y+1))
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			out = append(out, tile.Index{X: x, Y: y})
		}
	}
	return out
}

// ToContent maps a tile-local rect of idx to content space.
func (g *Geometry) ToContent(idx tile.Index, local image.Rectangle) image.Rectangle {
	return local.Add(g.OriginOf(idx))
}

// ToLocal maps a content-space rect to the tile-local space of idx.
func (g *Geometry) ToLocal(idx tile.Index, r image.Rectangle) image.Rectangle {
	return r.Sub(g.OriginOf(idx))
}

// Resize prepares g to hold a w×h grid at offset, reusing the tile slice
// when it is large enough. All slots are emptied.
func (g *Geometry) Resize(w, h int, offset image.Point) {
	n := w * h
	if cap(g.Tiles) < n {
		g.Tiles = make([]*tile.Tile, n)
	} else {
		g.Tiles = g.Tiles[:n]
		clear(g.Tiles)
	}
	g.TilesWide = w
	g.TilesHigh = h
	g.Offset = offset
}

// CopyFrom makes g an independent copy of src. The tile slice is copied,
// never shared.
func (g *Geometry) CopyFrom(src *Geometry) {
	tiles := g.Tiles
	*g = *src
	if cap(tiles) < len(src.Tiles) {
		tiles = make([]*tile.Tile, len(src.Tiles))
	}
	tiles = tiles[:len(src.Tiles)]
	copy(tiles, src.Tiles)
	g.Tiles = tiles
}

// Each calls fn for every slot in row-major order.
func (g *Geometry) Each(fn func(idx tile.Index, t *tile.Tile)) {
	for i, t := range g.Tiles {
		fn(g.IndexAt(i), t)
	}
}

// AlignDown rounds p down to the tile lattice anchored at the content origin.
func AlignDown(p, tileSize image.Point) image.Point {
	return image.Pt(floorDiv(p.X, tileSize.X)*tileSize.X, floorDiv(p.Y, tileSize.Y)*tileSize.Y)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
