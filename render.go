package tilestore

import (
	"image"

	"github.com/gogpu/tilestore/internal/grid"
	"github.com/gogpu/tilestore/internal/queue"
	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/internal/tile"
	"github.com/gogpu/tilestore/surface"
)

// canRender reports whether Render may paint.
func (s *BackingStore) canRender() bool {
	return s.active.Load() && s.shown.Load() && !s.closed.Load()
}

// canDrain reports whether the queue may be drained.
func (s *BackingStore) canDrain() bool {
	return s.canRender() && !s.suspend.suspended()
}

// renderRect paints every tile intersecting rect and commits it. Parts of
// rect outside the grid are recorded as not rendered. Paint goroutine only.
func (s *BackingStore) renderRect(rect image.Rectangle) bool {
	if !s.canRender() {
		return false
	}
	r := rect.Intersect(s.contentBounds())
	if r.Empty() {
		return true
	}
	if s.degraded.Load() {
		return s.renderDirect(r.Intersect(s.visible))
	}

	g := s.geoms.Front()
	ok := true
	for _, idx := range g.IndexesIn(r) {
		t := g.At(idx)
		part := g.TileRect(idx).Intersect(r)
		if err := s.renderTile(g, idx, t, part); err != nil {
			Logger().Warn("tilestore: tile paint failed",
				"tile", t.ID(), "rect", part, "err", err)
			s.failed.Add(part)
			ok = false
			continue
		}
		s.failed.Subtract(part)
		s.queue.MarkRendered(part)
	}
	for _, p := range region.Subtract(r, g.Rect()) {
		s.queue.MarkNotRendered(queue.Regular, p)
	}
	return ok
}

// renderTile paints part (content space) of the tile at idx into its back
// buffer and swaps. When the tile is valid, the rendered pixels outside part
// are carried over from the front buffer first.
func (s *BackingStore) renderTile(g *grid.Geometry, idx tile.Index, t *tile.Tile, part image.Rectangle) error {
	local := g.ToLocal(idx, part)
	back := t.Back()

	if t.IsValid() && local != t.Bounds() {
		front := t.WriterFront()
		keep := t.Valid(front)
		keep.Subtract(local)
		for _, k := range keep.Rects() {
			if err := s.display.Blit(back.Handle, k, front.Handle, k, surface.BlendCopy, 1); err != nil {
				return err
			}
		}
		back.Rendered = keep
	} else {
		back.Rendered.Clear()
	}

	target := RenderTarget{
		Buffer: back.Handle,
		Origin: g.OriginOf(idx),
		Scale:  s.scale,
	}
	if err := s.renderer.Paint(target, part); err != nil {
		return err
	}
	back.Rendered.Add(local)

	t.Swap()
	t.ClearShift()
	t.SetCommitted(true)
	s.stats.tilesPainted.Add(1)
	return nil
}

// renderDirect paints r straight into the window through a scratch buffer.
// It is the fallback when the pool is too small for the viewport.
func (s *BackingStore) renderDirect(r image.Rectangle) bool {
	if r.Empty() {
		return true
	}
	buf, err := s.display.Acquire(r.Size())
	if err != nil {
		Logger().Warn("tilestore: direct render buffer", "size", r.Size(), "err", err)
		return false
	}
	defer s.display.Release(buf)

	target := RenderTarget{Buffer: buf, Origin: r.Min, Scale: s.scale}
	if err := s.renderer.Paint(target, r); err != nil {
		Logger().Warn("tilestore: direct paint failed", "rect", r, "err", err)
		s.failed.Add(r)
		return false
	}

	dst := r.Sub(s.visible.Min)
	var blitErr error
	err = s.present.Call(func() {
		win := s.display.Window()
		blitErr = s.display.Blit(win, dst, buf, image.Rectangle{Max: r.Size()}, surface.BlendCopy, 1)
		if blitErr == nil {
			blitErr = s.display.Present(dst)
		}
	})
	if err != nil {
		return false
	}
	if blitErr != nil {
		Logger().Warn("tilestore: direct blit failed", "rect", r, "err", blitErr)
		return false
	}

	s.failed.Subtract(r)
	s.queue.MarkRendered(r)
	s.stats.directRenders.Add(1)
	return true
}

// drainOne is the paint loop's idle hook. It runs one job and asks for a
// blit every jobBatch jobs and once more when the queue runs dry.
func (s *BackingStore) drainOne() bool {
	if !s.canDrain() {
		return false
	}
	job, ok := s.queue.Next()
	if !ok {
		if s.needsBlit {
			s.needsBlit = false
			s.jobsSinceBlit = 0
			s.requestBlit()
		}
		s.noteQueue()
		return false
	}

	Logger().Debug("tilestore: job", "kind", job.Kind, "rect", job.Rect)
	s.runJob(job)
	s.needsBlit = true
	s.jobsSinceBlit++
	if s.jobsSinceBlit >= s.opts.jobBatch {
		s.needsBlit = false
		s.jobsSinceBlit = 0
		s.requestBlit()
	}
	s.noteQueue()
	return true
}

// runJob renders one drained job. Regular jobs only paint what is visible;
// the rest is remembered as not rendered and repaired when it scrolls into
// view.
func (s *BackingStore) runJob(job queue.Job) {
	if job.Kind != queue.Regular {
		s.renderRect(job.Rect)
		return
	}
	if in := job.Rect.Intersect(s.visible); !in.Empty() {
		s.renderRect(in)
	}
	for _, p := range region.Subtract(job.Rect.Intersect(s.contentBounds()), s.visible) {
		s.queue.MarkNotRendered(queue.Regular, p)
	}
}

// requeueStale queues Regular work for placeholder rects the presentation
// goroutine found. Rects outside the grid, already covered by a job or whose
// last paint failed are skipped.
func (s *BackingStore) requeueStale(stale []image.Rectangle) {
	if s.degraded.Load() {
		return
	}
	gridRect := s.geoms.Front().Rect()
	for _, r := range stale {
		r = r.Intersect(gridRect)
		if r.Empty() || s.queue.PendingAny(r) || s.failed.Overlaps(r) {
			continue
		}
		s.queue.Add(queue.Regular, r)
	}
	s.noteQueue()
}

func (s *BackingStore) noteQueue() {
	s.stats.queued.Store(int64(s.queue.Len()))
}
