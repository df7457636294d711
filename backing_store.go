package tilestore

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/gogpu/tilestore/internal/dispatch"
	"github.com/gogpu/tilestore/internal/grid"
	"github.com/gogpu/tilestore/internal/queue"
	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/internal/swap"
	"github.com/gogpu/tilestore/surface"
)

// BackingStore caches rendered content in a grid of tiles borrowed from a
// Pool and shows the visible part of it in the display window.
//
// Each store runs two goroutines. The paint goroutine owns the render
// queue, paints tile back buffers through the Renderer and builds grid
// geometries. The presentation goroutine reads the published geometry and
// tile front buffers to blit the window. They share no lock on the hot
// path: geometries are published whole through a double buffer and every
// tile is double buffered on its own.
//
// Thread safety: all exported methods are safe for concurrent use, except
// that they must not be called from a Renderer.
type BackingStore struct {
	pool     *Pool
	display  surface.Display
	renderer Renderer
	opts     options

	paint   *dispatch.Loop
	present *dispatch.Loop
	done    chan struct{}

	geoms *swap.DoubleBuffer[grid.Geometry]
	zoom  atomic.Pointer[zoomSnapshot]

	// Paint goroutine state.
	queue         *queue.Queue
	axis          grid.Axis
	base          image.Point
	contents      image.Point
	viewport      image.Point
	visible       image.Rectangle
	scale         float64
	needsBlit     bool
	jobsSinceBlit int
	exhaustedAt   image.Point

	// failed holds content whose last paint failed. Placeholders over it
	// are not requeued until the content changes again.
	failed region.Region

	suspend *suspender

	active     atomic.Bool
	shown      atomic.Bool
	loading    atomic.Bool
	closed     atomic.Bool
	degraded   atomic.Bool
	blitQueued atomic.Bool

	stats counters
}

// NewBackingStore creates a store drawing into the pool's display through
// renderer. The store does not own the tiles until Activate succeeds.
func NewBackingStore(pool *Pool, renderer Renderer, opts ...Option) (*BackingStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if pool.isClosed() {
		return nil, ErrClosed
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &BackingStore{
		pool:     pool,
		display:  pool.Display(),
		renderer: renderer,
		opts:     o,
		done:     make(chan struct{}),
		queue:    queue.New(),
		scale:    o.scale,
		suspend:  newSuspender(),
	}

	s.viewport = o.viewport
	if s.viewport.X <= 0 || s.viewport.Y <= 0 {
		s.viewport = s.display.Window().Size()
	}
	s.base = o.contents
	if s.base.X <= 0 || s.base.Y <= 0 {
		s.base = s.viewport
	}
	s.contents = scaleSize(s.base, s.scale)
	s.visible = s.clampVisible(image.Rectangle{Max: s.viewport})

	initial := grid.Geometry{
		TileSize: pool.TileSize(),
		Visible:  s.visible,
		Contents: s.contents,
		Scale:    s.scale,
	}
	s.geoms = swap.New(initial, initial)
	s.shown.Store(true)

	s.paint = dispatch.New("paint", s.drainOne)
	s.present = dispatch.New("present", nil)
	return s, nil
}

// Activate asks the pool for its tiles. It returns true when the store owns
// the pool now; otherwise the store waits and activates itself when the
// pool is yielded to it. Either way the grid is rebuilt and fully repainted
// on the paint goroutine.
func (s *BackingStore) Activate() bool {
	if s.closed.Load() {
		return false
	}
	if s.active.Load() {
		return true
	}
	if !s.pool.Request(s) {
		Logger().Info("tilestore: waiting for tile pool")
		return false
	}
	s.granted()
	return true
}

// granted is called by the pool when s becomes the owner.
func (s *BackingStore) granted() {
	s.paint.Post(s.onGranted)
}

func (s *BackingStore) onGranted() {
	if s.closed.Load() || s.pool.isClosed() {
		return
	}
	Logger().Info("tilestore: tile pool granted", "tiles", s.pool.Size())
	s.active.Store(true)
	s.queue.Reset()
	s.rebuild(false)
	s.needsBlit = true
}

// Deactivate stops painting and yields the pool to the next waiting store.
func (s *BackingStore) Deactivate() {
	if s.closed.Load() {
		return
	}
	s.runOn(s.paint, func() { s.active.Store(false) })
	s.pool.Yield(s)
}

// IsActive reports whether the store owns the pool.
func (s *BackingStore) IsActive() bool {
	return s.active.Load()
}

// Repaint reports that content inside rect changed. Nothing happens when
// contentChanged is false or rect is empty. When immediate is set the rect
// is rendered and blitted before Repaint returns; otherwise it is queued.
// An immediate repaint that cannot render now, because the store is hidden
// or inactive, is queued as well. While the store is suspended an immediate
// repaint is queued and a render is requested for the resume.
func (s *BackingStore) Repaint(rect image.Rectangle, contentChanged, immediate bool) {
	if !contentChanged || rect.Empty() || s.closed.Load() {
		return
	}
	if immediate && !s.suspend.raiseIfSuspended(ResumeRenderAndBlit) {
		var rendered bool
		s.runOn(s.paint, func() {
			s.failed.Subtract(rect)
			if !s.canRender() {
				s.queue.Add(queue.Regular, rect.Intersect(s.contentBounds()))
				s.noteQueue()
				return
			}
			rendered = s.renderRect(rect)
		})
		if rendered {
			s.runOn(s.present, func() { s.blitVisible() })
		}
		return
	}
	s.paint.Post(func() {
		s.failed.Subtract(rect)
		s.queue.Add(queue.Regular, rect.Intersect(s.contentBounds()))
		s.noteQueue()
	})
}

// Scroll moves the visible rect by delta, clamped to the content. The grid
// follows and tiles are reused where possible. When blit is true the caller
// hands over blit responsibility and the window is blitted right after the
// new geometry is published; otherwise the blit follows the queue drain.
func (s *BackingStore) Scroll(delta image.Point, blit bool) {
	if s.closed.Load() {
		return
	}
	s.paint.Post(func() { s.scroll(delta, blit) })
}

func (s *BackingStore) scroll(delta image.Point, blit bool) {
	old := s.visible
	s.visible = s.clampVisible(s.visible.Add(delta))
	s.axis = grid.AxisOf(delta, s.axis)
	if s.active.Load() {
		s.relayout(old)
	}
	s.afterMove(blit)
}

// Render paints every tile intersecting rect and commits it. It returns
// false when the store is not visible, not active or a paint failed.
func (s *BackingStore) Render(rect image.Rectangle) bool {
	var ok bool
	if !s.runOn(s.paint, func() { ok = s.renderRect(rect) }) {
		return false
	}
	return ok
}

// BlitVisibleContents copies the visible part of the committed tiles to the
// display window and presents it. Tiles that are not ready are covered with
// the placeholder. It returns false when nothing was blitted.
func (s *BackingStore) BlitVisibleContents() bool {
	var ok bool
	if !s.runOn(s.present, func() { ok = s.blitVisible() }) {
		return false
	}
	return ok
}

// TransformChanged switches the content to a new scale. While the store is
// loading, the current window contents are kept and shown scaled in place
// of the placeholder until the new tiles are ready. All tiles are reset and
// the grid is repainted at the new scale.
func (s *BackingStore) TransformChanged(scale float64) {
	if scale <= 0 || s.closed.Load() {
		return
	}
	s.paint.Post(func() { s.transform(scale) })
}

// Suspend stops queue draining and blits until the matching Resume.
// Suspensions nest.
func (s *BackingStore) Suspend() {
	s.suspend.enter()
}

// Resume ends one Suspend. The innermost Resume performs the strongest op
// requested by any Resume of the span, or by work deferred while suspended,
// exactly once, and returns it. Outer Resumes return ResumeNone.
func (s *BackingStore) Resume(op ResumeOp) ResumeOp {
	final, done := s.suspend.leave(op)
	if !done {
		return ResumeNone
	}
	switch final {
	case ResumeRenderAndBlit:
		s.stats.resumeRenders.Add(1)
		s.paint.Post(func() {
			s.renderRect(s.visible)
			s.requestBlit()
		})
	case ResumeBlit:
		s.stats.resumeBlits.Add(1)
		s.requestBlit()
	}
	s.paint.Wake()
	return final
}

// WaitResumed blocks until the store is not suspended or ctx is done.
func (s *BackingStore) WaitResumed(ctx context.Context) error {
	return s.suspend.wait(ctx)
}

// IsSuspended reports whether a Suspend is outstanding.
func (s *BackingStore) IsSuspended() bool {
	return s.suspend.suspended()
}

// SetContentsSize sets the unscaled content size. The grid is re-derived
// and newly exposed content is queued.
func (s *BackingStore) SetContentsSize(size image.Point) {
	if size.X <= 0 || size.Y <= 0 || s.closed.Load() {
		return
	}
	s.paint.Post(func() {
		oldBounds := s.contentBounds()
		old := s.visible
		s.base = size
		s.contents = scaleSize(size, s.scale)
		s.visible = s.clampVisible(s.visible)
		if s.active.Load() {
			s.relayout(old)
			s.queueExposed(oldBounds)
		}
		s.afterMove(false)
	})
}

// SetViewportSize sets the size of the visible rect. It is treated as a
// scroll by zero against the new layout.
func (s *BackingStore) SetViewportSize(size image.Point) {
	if size.X <= 0 || size.Y <= 0 || s.closed.Load() {
		return
	}
	s.paint.Post(func() {
		old := s.visible
		s.viewport = size
		s.visible = s.clampVisible(image.Rectangle{Min: s.visible.Min, Max: s.visible.Min.Add(size)})
		if s.active.Load() {
			s.relayout(old)
		}
		s.afterMove(false)
	})
}

// SetVisible shows or hides the client. A hidden store neither renders nor
// blits; queued work waits until it is shown again.
func (s *BackingStore) SetVisible(visible bool) {
	if s.shown.Swap(visible) == visible || !visible {
		return
	}
	s.paint.Post(func() { s.needsBlit = true })
}

// SetLoading marks the client as loading. Zooming while loading keeps the
// old contents on screen until the new tiles are ready.
func (s *BackingStore) SetLoading(loading bool) {
	s.loading.Store(loading)
}

// SetInteracting reports an interactive gesture. While it lasts, regular
// and off-screen repaints are held back.
func (s *BackingStore) SetInteracting(on bool) {
	if s.closed.Load() {
		return
	}
	s.paint.Post(func() { s.queue.SetBatchUnderPressure(on) })
}

// Flush paints every runnable job and blits the result before returning.
func (s *BackingStore) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	ok := s.runOn(s.paint, func() {
		for s.drainOne() {
		}
		s.requestBlit()
	})
	if !ok || !s.runOn(s.present, func() {}) {
		return ErrClosed
	}
	return nil
}

// Sync waits until the work posted to both goroutines before the call has
// run.
func (s *BackingStore) Sync() error {
	if !s.runOn(s.paint, func() {}) || !s.runOn(s.present, func() {}) {
		return ErrClosed
	}
	return nil
}

// Close stops both goroutines and yields the pool. It is safe to call more
// than once.
func (s *BackingStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.paint.Close()
	s.active.Store(false)
	s.present.Close()
	s.pool.Yield(s)
	if z := s.zoom.Swap(nil); z != nil {
		s.display.Release(z.buf)
	}
	close(s.done)
	return nil
}

// runOn posts fn to l and waits for it. It returns false when the store
// closed before fn ran.
func (s *BackingStore) runOn(l *dispatch.Loop, fn func()) bool {
	if s.closed.Load() {
		return false
	}
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

// afterMove schedules the blit that follows a change of the visible rect.
func (s *BackingStore) afterMove(blit bool) {
	switch {
	case s.suspend.raiseIfSuspended(ResumeBlit):
	case blit:
		s.requestBlit()
	default:
		s.needsBlit = true
	}
}

// requestBlit posts one blit to the presentation goroutine. Requests made
// while one is pending are merged into it.
func (s *BackingStore) requestBlit() {
	if !s.blitQueued.CompareAndSwap(false, true) {
		return
	}
	s.present.Post(func() {
		s.blitQueued.Store(false)
		s.blitVisible()
	})
}

func (s *BackingStore) contentBounds() image.Rectangle {
	return image.Rectangle{Max: s.contents}
}

// clampVisible keeps r inside the content where the content is large
// enough, pinned to the origin otherwise. The size is always the viewport.
func (s *BackingStore) clampVisible(r image.Rectangle) image.Rectangle {
	origin := image.Pt(
		clamp(r.Min.X, 0, s.contents.X-s.viewport.X),
		clamp(r.Min.Y, 0, s.contents.Y-s.viewport.Y),
	)
	return image.Rectangle{Min: origin, Max: origin.Add(s.viewport)}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}

func scaleSize(p image.Point, scale float64) image.Point {
	return image.Pt(int(float64(p.X)*scale+0.5), int(float64(p.Y)*scale+0.5))
}
