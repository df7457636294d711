package tilestore

import (
	"image"

	"github.com/gogpu/tilestore/internal/grid"
	"github.com/gogpu/tilestore/internal/queue"
	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/internal/tile"
)

// Layout runs on the paint goroutine. Every change of the visible rect,
// the content size or the scale ends in exactly one publish of a new
// geometry.

// divisor chooses the grid shape for the current viewport and content.
func (s *BackingStore) divisor() (grid.Divisor, image.Point, bool) {
	ts := s.pool.TileSize()
	need := grid.MinimumTiles(s.viewport, ts)
	div, ok := grid.BestDivisor(grid.DivisorInput{
		Contents: s.contents,
		TileSize: ts,
		MinTiles: need,
		Axis:     s.axis,
		PoolSize: s.pool.Size(),
	})
	return div, need, ok
}

// relayout moves the grid after the visible rect, the viewport or the
// content changed. old is the visible rect before the change.
func (s *BackingStore) relayout(old image.Rectangle) {
	div, need, ok := s.divisor()
	if !ok {
		s.enterDegraded(need)
		return
	}

	front := s.geoms.Front()
	if s.degraded.Load() || front.Len() == 0 || front.Scale != s.scale {
		s.layoutFresh(div, false)
		return
	}

	ts := s.pool.TileSize()
	start := image.Rectangle{
		Min: front.Offset,
		Max: front.Offset.Add(image.Pt(div.W*ts.X, div.H*ts.Y)),
	}
	r := grid.Place(start, s.visible, s.contents, ts)

	back := s.geoms.Back()
	back.Resize(div.W, div.H, r.Min)
	s.stamp(back)

	plan := grid.Reuse(front, back)
	plan.Invalidate()
	s.revalidate(plan.Retained, old)
	s.publish()
	plan.Validate()

	for _, ra := range plan.Reassigned {
		s.queueTile(ra.Rect)
	}
	s.queue.PromoteVisible(s.visible)
	s.noteQueue()
}

// revalidate drops stale content from retained tiles that are visible now.
//
// Two kinds of content are stale: parts drained as Regular jobs while they
// were off-screen, and parts of a tile that was off-screen before the move
// with a Regular job still pending over it. Both are marked stale on the
// tile, so every reader sees a placeholder instead, and queued as Regular
// work. It runs before the new geometry is published.
func (s *BackingStore) revalidate(retained []grid.Retained, old image.Rectangle) {
	contents := s.contentBounds()
	for _, rt := range retained {
		rect := rt.Rect.Intersect(contents)
		shown := rect.Intersect(s.visible)
		if shown.Empty() {
			continue
		}

		var stale region.Region
		for _, p := range s.queue.RequeueNotRendered(shown) {
			stale.Add(p)
		}
		if !rect.Overlaps(old) {
			for _, p := range s.queue.Pending(queue.Regular) {
				stale.Add(p.Intersect(rect))
			}
		}
		for _, r := range stale.Rects() {
			rt.Tile.MarkStale(r.Sub(rt.Rect.Min))
		}
	}
}

// layoutFresh resets every tile and lays the pool out anew around the
// visible rect. A zoom layout queues the visible part as VisibleZoom work
// and the rest as off-screen work; otherwise each tile is queued by
// visibility.
func (s *BackingStore) layoutFresh(div grid.Divisor, zoom bool) {
	ts := s.pool.TileSize()
	for _, t := range s.pool.tiles {
		t.Reset()
	}
	s.failed.Clear()

	r := grid.InitialRect(div, s.visible, s.contents, ts)
	back := s.geoms.Back()
	back.Resize(div.W, div.H, r.Min)
	copy(back.Tiles, s.pool.tiles)
	s.stamp(back)
	if s.degraded.Swap(false) {
		Logger().Info("tilestore: tile pool covers the viewport again", "divisor", image.Pt(div.W, div.H))
	}
	s.publish()

	g := s.geoms.Front()
	covered := g.Rect().Intersect(s.contentBounds())
	if zoom {
		s.queue.Add(queue.VisibleZoom, covered.Intersect(s.visible))
		for _, p := range region.Subtract(covered, s.visible) {
			s.queue.Add(queue.NonVisibleScroll, p)
		}
	} else {
		g.Each(func(idx tile.Index, _ *tile.Tile) {
			s.queueTile(g.TileRect(idx))
		})
	}
	s.noteQueue()
}

// rebuild lays the grid out from scratch, or degrades when the pool is too
// small.
func (s *BackingStore) rebuild(zoom bool) {
	div, need, ok := s.divisor()
	if !ok {
		s.enterDegraded(need)
		return
	}
	Logger().Debug("tilestore: divisor chosen",
		"divisor", image.Pt(div.W, div.H), "need", need, "axis", s.axis)
	s.layoutFresh(div, zoom)
}

// enterDegraded switches to direct rendering: the pool cannot cover the
// viewport, so content is painted straight into the window. The published
// geometry keeps its tiles but tracks the new visible rect.
func (s *BackingStore) enterDegraded(need image.Point) {
	if !s.degraded.Load() || s.exhaustedAt != need {
		Logger().Warn("tilestore: tile pool too small, rendering directly",
			"tiles", s.pool.Size(), "need", need)
		s.exhaustedAt = need
	}
	s.degraded.Store(true)

	back := s.geoms.Back()
	back.CopyFrom(s.geoms.Front())
	s.stamp(back)
	s.publish()

	s.queue.Add(queue.Regular, s.visible.Intersect(s.contentBounds()))
	s.noteQueue()
}

// queueTile queues the content part of a tile rect by visibility.
func (s *BackingStore) queueTile(rect image.Rectangle) {
	rect = rect.Intersect(s.contentBounds())
	if rect.Empty() {
		return
	}
	if rect.Overlaps(s.visible) {
		s.queue.Add(queue.VisibleScroll, rect)
	} else {
		s.queue.Add(queue.NonVisibleScroll, rect)
	}
}

// queueExposed queues content that lies outside old as Regular work.
func (s *BackingStore) queueExposed(old image.Rectangle) {
	for _, p := range region.Subtract(s.contentBounds(), old) {
		s.queue.Add(queue.Regular, p)
	}
	s.noteQueue()
}

// stamp copies the paint-side view parameters into g.
func (s *BackingStore) stamp(g *grid.Geometry) {
	g.TileSize = s.pool.TileSize()
	g.Visible = s.visible
	g.Contents = s.contents
	g.Scale = s.scale
}

// publish makes the back geometry current.
func (s *BackingStore) publish() {
	gen := s.geoms.Publish()
	g := s.geoms.Front()
	Logger().Debug("tilestore: geometry published",
		"generation", gen,
		"grid", image.Pt(g.TilesWide, g.TilesHigh),
		"offset", g.Offset,
		"visible", g.Visible)
}
