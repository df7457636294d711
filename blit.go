package tilestore

import (
	"image"

	"github.com/gogpu/tilestore/internal/grid"
	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/internal/tile"
	"github.com/gogpu/tilestore/surface"
)

// blitVisible composes the window from the published geometry and presents
// it. Presentation goroutine only.
//
// Content is taken only from valid tiles and only where the front rendered
// region covers it. Everything else gets a placeholder: the zoom snapshot
// when one is held, the checkerboard otherwise. Placeholder rects are sent
// back to the paint goroutine to be queued.
func (s *BackingStore) blitVisible() bool {
	if !s.active.Load() || !s.shown.Load() || s.closed.Load() {
		return false
	}
	if s.suspend.raiseIfSuspended(ResumeBlit) {
		return false
	}

	g, release := s.geoms.Load()
	defer release()

	win := s.display.Window()
	visible := g.Visible
	contents := g.ContentBounds()
	view := image.Rectangle{Max: visible.Size()}
	snap := s.zoom.Load()

	for _, r := range region.Subtract(visible, contents) {
		if err := s.display.Fill(win, r.Sub(visible.Min), surface.Solid(s.opts.background)); err != nil {
			Logger().Warn("tilestore: background fill failed", "err", err)
		}
	}

	var stale []image.Rectangle
	if !s.degraded.Load() && g.Len() > 0 {
		area := visible.Intersect(contents)
		for _, idx := range g.IndexesIn(area) {
			want := g.TileRect(idx).Intersect(area)
			for _, miss := range s.blitTile(win, g, idx, want) {
				s.placeholder(win, g, miss, snap)
				stale = append(stale, miss)
			}
		}
		for _, miss := range region.Subtract(area, g.Rect()) {
			s.placeholder(win, g, miss, snap)
			stale = append(stale, miss)
		}
	}

	if err := s.display.Present(view); err != nil {
		Logger().Warn("tilestore: present failed", "err", err)
		return false
	}
	s.stats.blits.Add(1)
	s.stats.placeholders.Add(int64(len(stale)))

	if len(stale) > 0 {
		s.paint.Post(func() { s.requeueStale(stale) })
	} else if snap != nil && s.zoom.CompareAndSwap(snap, nil) {
		s.display.Release(snap.buf)
	}
	return true
}

// blitTile copies the rendered part of want (content space) from the tile
// at idx to the window. It returns the parts it could not copy.
func (s *BackingStore) blitTile(win surface.Buffer, g *grid.Geometry, idx tile.Index, want image.Rectangle) []image.Rectangle {
	t := g.At(idx)
	if t == nil {
		return []image.Rectangle{want}
	}
	front, release := t.Front()
	defer release()
	if !t.IsValid() {
		return []image.Rectangle{want}
	}

	origin := g.OriginOf(idx)
	local := want.Sub(origin)
	valid := t.Valid(front)
	have := valid.Intersection(local)

	missing := region.FromRect(local)
	for _, r := range have.Rects() {
		dst := r.Add(origin).Sub(g.Visible.Min)
		if err := s.display.Blit(win, dst, front.Handle, r, surface.BlendCopy, 1); err != nil {
			Logger().Warn("tilestore: tile blit failed", "tile", t.ID(), "err", err)
			continue
		}
		missing.Subtract(r)
	}

	out := missing.Rects()
	for i := range out {
		out[i] = out[i].Add(origin)
	}
	return out
}

// placeholder covers want (content space) in the window. The zoom snapshot
// is used where it has pixels for want; the checkerboard fills the rest.
func (s *BackingStore) placeholder(win surface.Buffer, g *grid.Geometry, want image.Rectangle, snap *zoomSnapshot) {
	dst := want.Sub(g.Visible.Min)
	board := s.opts.checkerboard.WithOrigin(g.Visible.Min.Mul(-1))
	if err := s.display.Fill(win, dst, board); err != nil {
		Logger().Warn("tilestore: placeholder fill failed", "err", err)
		return
	}
	if snap == nil {
		return
	}
	src, part := snap.source(want, g.Scale)
	if src.Empty() {
		return
	}
	if err := s.display.Blit(win, part.Sub(g.Visible.Min), snap.buf, src, surface.BlendCopy, 1); err != nil {
		Logger().Warn("tilestore: zoom placeholder failed", "err", err)
	}
}
