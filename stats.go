package tilestore

import (
	"image"
	"sync/atomic"

	"github.com/gogpu/tilestore/internal/grid"
	"github.com/gogpu/tilestore/surface"
)

// counters are updated from both goroutines.
type counters struct {
	tilesPainted  atomic.Int64
	blits         atomic.Int64
	placeholders  atomic.Int64
	directRenders atomic.Int64
	resumeBlits   atomic.Int64
	resumeRenders atomic.Int64
	queued        atomic.Int64
}

// Stats is a point-in-time view of a BackingStore.
type Stats struct {
	// Generation counts geometry publishes.
	Generation uint64

	// Divisor is the grid shape in tiles.
	Divisor image.Point

	// Offset is the content-space origin of the grid.
	Offset image.Point

	// Visible is the visible rect in content space.
	Visible image.Rectangle

	// Degraded is true while the pool is too small and content is
	// rendered directly.
	Degraded bool

	Active bool
	Scale  float64

	// Queued is the number of pending jobs after the last drain step.
	Queued int

	TilesPainted  int64
	Blits         int64
	Placeholders  int64
	DirectRenders int64
	ResumeBlits   int64
	ResumeRenders int64
}

// Stats returns the current statistics. Geometry fields describe the
// published geometry.
func (s *BackingStore) Stats() Stats {
	st := Stats{
		Generation:    s.geoms.Generation(),
		Degraded:      s.degraded.Load(),
		Active:        s.active.Load(),
		Queued:        int(s.stats.queued.Load()),
		TilesPainted:  s.stats.tilesPainted.Load(),
		Blits:         s.stats.blits.Load(),
		Placeholders:  s.stats.placeholders.Load(),
		DirectRenders: s.stats.directRenders.Load(),
		ResumeBlits:   s.stats.resumeBlits.Load(),
		ResumeRenders: s.stats.resumeRenders.Load(),
	}
	s.geoms.View(func(g *grid.Geometry) {
		st.Divisor = image.Pt(g.TilesWide, g.TilesHigh)
		st.Offset = g.Offset
		st.Visible = g.Visible
		st.Scale = g.Scale
	})
	return st
}

// TileInfo describes one tile of the published geometry.
type TileInfo struct {
	// ID is the tile's pool slot.
	ID int

	// Index is the tile's grid position.
	Index image.Point

	// Rect is the content rect the tile covers.
	Rect image.Rectangle

	// Committed reports whether the tile may be shown at Rect.
	Committed bool

	// Buffer is the front buffer. It is only valid inside ViewTiles.
	Buffer surface.Buffer

	// Rendered lists the tile-local rects of Buffer holding valid pixels.
	Rendered []image.Rectangle
}

// ViewTiles calls fn with every tile of the published geometry and the
// visible rect. The geometry and all front buffers stay pinned while fn
// runs, so fn may read the buffers but must return quickly and must not
// call into the store. It returns false when the store has no tiles to
// show.
func (s *BackingStore) ViewTiles(fn func(tiles []TileInfo, visible image.Rectangle)) bool {
	if !s.active.Load() || s.degraded.Load() || s.closed.Load() {
		return false
	}
	g, release := s.geoms.Load()
	defer release()
	if g.Len() == 0 {
		return false
	}

	infos := make([]TileInfo, 0, g.Len())
	for i, t := range g.Tiles {
		if t == nil {
			continue
		}
		front, unpin := t.Front()
		defer unpin()
		idx := g.IndexAt(i)
		infos = append(infos, TileInfo{
			ID:        t.ID(),
			Index:     image.Pt(idx.X, idx.Y),
			Rect:      g.TileRect(idx),
			Committed: t.IsValid(),
			Buffer:    front.Handle,
			Rendered:  t.Valid(front).Rects(),
		})
	}
	fn(infos, g.Visible)
	return true
}

// Tiles returns a copy of the tile list. Buffer is left nil since the
// buffers are not pinned once Tiles returns.
func (s *BackingStore) Tiles() []TileInfo {
	var out []TileInfo
	s.ViewTiles(func(tiles []TileInfo, _ image.Rectangle) {
		out = make([]TileInfo, len(tiles))
		copy(out, tiles)
	})
	for i := range out {
		out[i].Buffer = nil
	}
	return out
}
