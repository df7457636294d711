package tilestore

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/tilestore/surface"
)

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

var errPaint = errors.New("paint failed")

// fillRenderer paints every rect with one color.
type fillRenderer struct {
	mu    sync.Mutex
	c     color.RGBA
	fail  bool
	calls int
}

func (r *fillRenderer) Paint(target RenderTarget, rect image.Rectangle) error {
	r.mu.Lock()
	c, fail := r.c, r.fail
	r.calls++
	r.mu.Unlock()
	if fail {
		return errPaint
	}
	img := target.Buffer.(*surface.ImageBuffer).Image()
	draw.Draw(img, rect.Sub(target.Origin), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

func (r *fillRenderer) set(c color.RGBA) {
	r.mu.Lock()
	r.c = c
	r.mu.Unlock()
}

func (r *fillRenderer) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

type fixture struct {
	bs       *BackingStore
	pool     *Pool
	display  *surface.ImageDisplay
	renderer *fillRenderer
}

// newFixture builds a store with 100x100 tiles and a window the size of the
// viewport.
func newFixture(t *testing.T, poolSize int, contents, viewport image.Point, opts ...Option) *fixture {
	t.Helper()
	d := surface.NewImageDisplay(viewport.X, viewport.Y)
	pool, err := NewPool(d, poolSize, image.Pt(100, 100))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	r := &fillRenderer{c: red}
	opts = append([]Option{WithContentsSize(contents), WithViewportSize(viewport)}, opts...)
	bs, err := NewBackingStore(pool, r, opts...)
	if err != nil {
		t.Fatalf("NewBackingStore: %v", err)
	}
	t.Cleanup(func() {
		bs.Close()
		pool.Close()
	})
	return &fixture{bs: bs, pool: pool, display: d, renderer: r}
}

// settle flushes until no runnable job is left.
func settle(t *testing.T, bs *BackingStore) {
	t.Helper()
	for range 50 {
		if err := bs.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		var runnable bool
		bs.runOn(bs.paint, func() { runnable = bs.queue.HasRunnable() })
		if !runnable {
			return
		}
	}
	t.Fatal("render queue did not settle")
}

// pixel reads the window on the presentation goroutine.
func (f *fixture) pixel(t *testing.T, x, y int) color.RGBA {
	t.Helper()
	var c color.RGBA
	if !f.bs.runOn(f.bs.present, func() { c = f.display.Snapshot().RGBAAt(x, y) }) {
		t.Fatal("store closed")
	}
	return c
}

func tileAt(tiles []TileInfo, rect image.Rectangle) (TileInfo, bool) {
	for _, ti := range tiles {
		if ti.Rect == rect {
			return ti, true
		}
	}
	return TileInfo{}, false
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewBackingStore_Errors(t *testing.T) {
	d := surface.NewImageDisplay(100, 100)
	pool, err := NewPool(d, 4, image.Pt(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	if _, err := NewBackingStore(nil, &fillRenderer{}); !errors.Is(err, ErrNilPool) {
		t.Errorf("nil pool = %v, want ErrNilPool", err)
	}
	if _, err := NewBackingStore(pool, nil); !errors.Is(err, ErrNilRenderer) {
		t.Errorf("nil renderer = %v, want ErrNilRenderer", err)
	}
}

func TestBackingStore_Defaults(t *testing.T) {
	d := surface.NewImageDisplay(300, 200)
	pool, err := NewPool(d, 12, image.Pt(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	bs, err := NewBackingStore(pool, &fillRenderer{})
	if err != nil {
		t.Fatal(err)
	}
	defer bs.Close()

	var viewport, contents image.Point
	bs.runOn(bs.paint, func() { viewport, contents = bs.viewport, bs.contents })
	if viewport != image.Pt(300, 200) {
		t.Errorf("viewport = %v, want window size", viewport)
	}
	if contents != viewport {
		t.Errorf("contents = %v, want viewport", contents)
	}
}

func TestBackingStore_CloseIdempotent(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	if err := f.bs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.bs.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("Render after Close should fail")
	}
	if err := f.bs.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
	if f.pool.Owner() != nil {
		t.Error("Close should yield the pool")
	}
}

// =============================================================================
// Activation Tests
// =============================================================================

func TestBackingStore_InactiveRenderFails(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))

	if f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("inactive store should not render")
	}
	if f.bs.BlitVisibleContents() {
		t.Error("inactive store should not blit")
	}

	if !f.bs.Activate() {
		t.Fatal("Activate on a free pool should succeed")
	}
	settle(t, f.bs)
	if !f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("active store should render")
	}

	f.bs.SetVisible(false)
	if f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("hidden store should not render")
	}
	f.bs.SetVisible(true)
	if !f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("shown store should render again")
	}
}

func TestBackingStore_ActivatePaintsVisible(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	if got := f.pixel(t, 50, 50); got != red {
		t.Errorf("window pixel = %v, want red", got)
	}
	st := f.bs.Stats()
	if !st.Active || st.Degraded {
		t.Errorf("Stats = %+v, want active and not degraded", st)
	}
	if st.Divisor != image.Pt(4, 1) {
		t.Errorf("Divisor = %v, want (4,1)", st.Divisor)
	}
	for _, ti := range f.bs.Tiles() {
		if !ti.Committed {
			t.Errorf("tile %d at %v not committed after settle", ti.ID, ti.Rect)
		}
	}
}

func TestBackingStore_PoolHandover(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	other, err := NewBackingStore(f.pool, f.renderer,
		WithContentsSize(image.Pt(400, 100)), WithViewportSize(image.Pt(100, 100)))
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	if !f.bs.Activate() {
		t.Fatal("first store should get the pool")
	}
	if other.Activate() {
		t.Fatal("second store should wait")
	}
	if f.pool.Waiting() != 1 {
		t.Errorf("Waiting = %d, want 1", f.pool.Waiting())
	}
	settle(t, f.bs)

	f.bs.Deactivate()
	if f.bs.IsActive() {
		t.Error("deactivated store still active")
	}
	if err := other.Sync(); err != nil {
		t.Fatal(err)
	}
	if !other.IsActive() {
		t.Error("waiting store should be activated on handover")
	}
	if f.pool.Owner() != other {
		t.Error("pool owner should be the waiting store")
	}

	// The new owner starts from reset tiles.
	settle(t, other)
	for _, ti := range other.Tiles() {
		if !ti.Committed {
			t.Errorf("tile %d not repainted after handover", ti.ID)
		}
	}
}

// =============================================================================
// Scroll Tests
// =============================================================================

func TestBackingStore_ScrollReuse(t *testing.T) {
	// 500x100 content, one-tile viewport, two tiles: a 2x1 grid.
	f := newFixture(t, 2, image.Pt(500, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)
	if d := f.bs.Stats().Divisor; d != image.Pt(2, 1) {
		t.Fatalf("Divisor = %v, want (2,1)", d)
	}

	f.bs.Suspend()
	for range 3 {
		f.bs.Scroll(image.Pt(40, 0), false)
	}
	if err := f.bs.Sync(); err != nil {
		t.Fatal(err)
	}

	if v := f.bs.Stats().Visible; v != image.Rect(120, 0, 220, 100) {
		t.Fatalf("Visible = %v, want (120,0)-(220,100)", v)
	}
	tiles := f.bs.Tiles()
	kept, ok := tileAt(tiles, image.Rect(100, 0, 200, 100))
	if !ok {
		t.Fatalf("no tile at 100-200: %+v", tiles)
	}
	if !kept.Committed {
		t.Error("retained tile should stay committed")
	}
	moved, ok := tileAt(tiles, image.Rect(200, 0, 300, 100))
	if !ok {
		t.Fatalf("no tile at 200-300: %+v", tiles)
	}
	if moved.Committed {
		t.Error("reassigned tile must not be committed before it is repainted")
	}
	if moved.ID != 0 || kept.ID != 1 {
		t.Errorf("tile ids = %d/%d, want moved 0 and kept 1", moved.ID, kept.ID)
	}

	if op := f.bs.Resume(ResumeNone); op != ResumeBlit {
		t.Errorf("Resume = %v, want Blit requested by the scrolls", op)
	}
	settle(t, f.bs)
	moved, _ = tileAt(f.bs.Tiles(), image.Rect(200, 0, 300, 100))
	if !moved.Committed {
		t.Error("reassigned tile should be committed after the drain")
	}
	if got := f.pixel(t, 90, 50); got != red {
		t.Errorf("pixel over the moved tile = %v, want red", got)
	}
}

func TestBackingStore_ScrollZeroIsIdempotent(t *testing.T) {
	f := newFixture(t, 9, image.Pt(1000, 1000), image.Pt(150, 150))
	f.bs.Activate()
	f.bs.Scroll(image.Pt(230, 120), false)
	settle(t, f.bs)

	before := f.bs.Tiles()
	f.bs.Scroll(image.Point{}, false)
	if err := f.bs.Sync(); err != nil {
		t.Fatal(err)
	}
	after := f.bs.Tiles()

	if len(before) != len(after) {
		t.Fatalf("tile count changed %d -> %d", len(before), len(after))
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.ID != a.ID || b.Rect != a.Rect || b.Committed != a.Committed {
			t.Errorf("tile %d changed: %+v -> %+v", i, b, a)
		}
	}
}

func TestBackingStore_ScrollClamped(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()

	tests := []struct {
		name  string
		delta image.Point
		want  image.Rectangle
	}{
		{"past right edge", image.Pt(1000, 0), image.Rect(300, 0, 400, 100)},
		{"past left edge", image.Pt(-5000, 0), image.Rect(0, 0, 100, 100)},
		{"vertical without room", image.Pt(0, 50), image.Rect(0, 0, 100, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.bs.Scroll(tt.delta, true)
			if err := f.bs.Sync(); err != nil {
				t.Fatal(err)
			}
			if v := f.bs.Stats().Visible; v != tt.want {
				t.Errorf("Visible = %v, want %v", v, tt.want)
			}
		})
	}
}

// A tile goes off-screen with a Regular job pending for it and comes back
// before the job drains. It must show the placeholder, not the old pixels.
func TestBackingStore_StaleTileNotShown(t *testing.T) {
	f := newFixture(t, 4, image.Pt(1000, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)
	if d := f.bs.Stats().Divisor; d != image.Pt(4, 1) {
		t.Fatalf("Divisor = %v, want (4,1)", d)
	}

	f.bs.SetInteracting(true)
	f.renderer.set(blue)
	f.bs.Repaint(image.Rect(200, 0, 300, 100), true, false)
	f.bs.Scroll(image.Pt(200, 0), true)
	if err := f.bs.Sync(); err != nil {
		t.Fatal(err)
	}

	got := f.pixel(t, 50, 50)
	if got == red {
		t.Fatal("stale content of the tile was blitted")
	}
	if got == blue {
		t.Fatal("deferred Regular job ran under pressure")
	}
	want := surface.DefaultCheckerboard.WithOrigin(image.Pt(-200, 0)).ColorAt(50, 50)
	if got != want {
		t.Errorf("pixel = %v, want checkerboard %v", got, want)
	}
	ti, _ := tileAt(f.bs.Tiles(), image.Rect(200, 0, 300, 100))
	if ti.Committed {
		t.Error("tile with cleared content should not be committed")
	}

	f.bs.SetInteracting(false)
	settle(t, f.bs)
	if got := f.pixel(t, 50, 50); got != blue {
		t.Errorf("pixel after drain = %v, want blue", got)
	}
}

// Readers of the tile list run on their own goroutine while scrolls
// withdraw stale content from retained tiles.
func TestBackingStore_TilesDuringRevalidate(t *testing.T) {
	f := newFixture(t, 4, image.Pt(1000, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, ti := range f.bs.Tiles() {
				_ = len(ti.Rendered)
			}
		}
	}()

	for range 10 {
		f.bs.SetInteracting(true)
		f.bs.Repaint(image.Rect(200, 0, 300, 100), true, false)
		f.bs.Scroll(image.Pt(200, 0), true)
		f.bs.SetInteracting(false)
		settle(t, f.bs)
		f.bs.Scroll(image.Pt(-200, 0), true)
		settle(t, f.bs)
	}
	close(stop)
	wg.Wait()

	if got := f.pixel(t, 50, 50); got != red {
		t.Errorf("pixel = %v, want red", got)
	}
}

// A Regular job drained while its tile was off-screen leaves the tile
// stale; scrolling it into view requeues it.
func TestBackingStore_SkippedRegularRequeued(t *testing.T) {
	f := newFixture(t, 4, image.Pt(1000, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	f.renderer.set(blue)
	f.bs.Repaint(image.Rect(300, 0, 400, 100), true, false)
	settle(t, f.bs)

	var skipped bool
	f.bs.runOn(f.bs.paint, func() {
		skipped = f.bs.queue.RegularPreviouslyAttemptedButNotRendered(image.Rect(300, 0, 400, 100))
	})
	if !skipped {
		t.Fatal("off-screen Regular job should be recorded as not rendered")
	}

	f.bs.Scroll(image.Pt(300, 0), false)
	settle(t, f.bs)
	if got := f.pixel(t, 50, 50); got != blue {
		t.Errorf("pixel = %v, want repainted blue", got)
	}
}

// =============================================================================
// Repaint Tests
// =============================================================================

func TestBackingStore_Repaint(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	t.Run("unchanged content ignored", func(t *testing.T) {
		f.renderer.set(blue)
		f.bs.Repaint(image.Rect(0, 0, 100, 100), false, true)
		if got := f.pixel(t, 10, 10); got != red {
			t.Errorf("pixel = %v, want red", got)
		}
	})

	t.Run("immediate", func(t *testing.T) {
		f.renderer.set(blue)
		f.bs.Repaint(image.Rect(0, 0, 50, 100), true, true)
		if got := f.pixel(t, 10, 10); got != blue {
			t.Errorf("repainted pixel = %v, want blue", got)
		}
		if got := f.pixel(t, 75, 10); got != red {
			t.Errorf("untouched pixel = %v, want red", got)
		}
	})

	t.Run("queued", func(t *testing.T) {
		f.renderer.set(red)
		f.bs.Repaint(image.Rect(0, 0, 100, 100), true, false)
		settle(t, f.bs)
		if got := f.pixel(t, 10, 10); got != red {
			t.Errorf("pixel = %v, want red", got)
		}
	})
}

func TestBackingStore_ImmediateRepaintWhileHidden(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	f.bs.SetVisible(false)
	f.renderer.set(blue)
	f.bs.Repaint(image.Rect(0, 0, 100, 100), true, true)
	if got := f.pixel(t, 50, 50); got != red {
		t.Fatalf("hidden store painted the window, pixel = %v", got)
	}

	f.bs.SetVisible(true)
	settle(t, f.bs)
	if got := f.pixel(t, 50, 50); got != blue {
		t.Errorf("pixel after show = %v, want blue", got)
	}
}

func TestBackingStore_RenderFailure(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	f.renderer.setFail(true)
	if f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("Render should report the paint failure")
	}
	if got := f.pixel(t, 10, 10); got != red {
		t.Errorf("pixel = %v, want old content kept", got)
	}

	f.renderer.setFail(false)
	if !f.bs.Render(image.Rect(0, 0, 100, 100)) {
		t.Error("Render should succeed again")
	}
}

// =============================================================================
// Suspend Tests
// =============================================================================

func TestBackingStore_NestedResume(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	tests := []struct {
		name  string
		inner ResumeOp
		outer ResumeOp
		want  ResumeOp
	}{
		{"none", ResumeNone, ResumeNone, ResumeNone},
		{"inner blit", ResumeBlit, ResumeNone, ResumeBlit},
		{"strongest wins", ResumeRenderAndBlit, ResumeBlit, ResumeRenderAndBlit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.bs.Suspend()
			f.bs.Suspend()
			if op := f.bs.Resume(tt.inner); op != ResumeNone {
				t.Errorf("nested Resume = %v, want None", op)
			}
			if !f.bs.IsSuspended() {
				t.Error("store resumed too early")
			}
			if op := f.bs.Resume(tt.outer); op != tt.want {
				t.Errorf("outer Resume = %v, want %v", op, tt.want)
			}
			if f.bs.IsSuspended() {
				t.Error("store still suspended")
			}
		})
	}

	if n := f.bs.Stats().ResumeRenders; n != 1 {
		t.Errorf("ResumeRenders = %d, want 1", n)
	}
}

func TestBackingStore_ImmediateRepaintWhileSuspended(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	f.bs.Suspend()
	f.renderer.set(blue)
	f.bs.Repaint(image.Rect(0, 0, 100, 100), true, true)
	if got := f.pixel(t, 10, 10); got != red {
		t.Errorf("pixel while suspended = %v, want red", got)
	}
	if op := f.bs.Resume(ResumeNone); op != ResumeRenderAndBlit {
		t.Errorf("Resume = %v, want RenderAndBlit", op)
	}
	settle(t, f.bs)
	if got := f.pixel(t, 10, 10); got != blue {
		t.Errorf("pixel after Resume = %v, want blue", got)
	}
}

func TestBackingStore_WaitResumed(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Suspend()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.bs.WaitResumed(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitResumed = %v, want deadline", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.bs.Resume(ResumeNone)
	}()
	if err := f.bs.WaitResumed(context.Background()); err != nil {
		t.Errorf("WaitResumed = %v", err)
	}
}

// =============================================================================
// Resource Exhaustion Tests
// =============================================================================

func TestBackingStore_DegradedRendering(t *testing.T) {
	f := newFixture(t, 1, image.Pt(300, 300), image.Pt(200, 200))
	f.bs.Activate()
	settle(t, f.bs)

	st := f.bs.Stats()
	if !st.Degraded {
		t.Fatal("one tile cannot cover a 200x200 viewport")
	}
	if st.DirectRenders == 0 {
		t.Error("degraded store should render directly")
	}
	if got := f.pixel(t, 150, 150); got != red {
		t.Errorf("pixel = %v, want red", got)
	}
	if f.bs.Tiles() != nil {
		t.Error("degraded store should expose no tiles")
	}
	if !f.bs.Render(image.Rect(0, 0, 50, 50)) {
		t.Error("direct Render should succeed")
	}
}

func TestBackingStore_ViewportResizeDegrades(t *testing.T) {
	f := newFixture(t, 9, image.Pt(1000, 1000), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)
	if d := f.bs.Stats().Divisor; d != image.Pt(3, 3) {
		t.Fatalf("Divisor = %v, want (3,3)", d)
	}

	f.bs.SetViewportSize(image.Pt(300, 300))
	settle(t, f.bs)
	if !f.bs.Stats().Degraded {
		t.Error("nine tiles cannot cover a 300x300 viewport")
	}

	f.bs.SetViewportSize(image.Pt(100, 100))
	settle(t, f.bs)
	st := f.bs.Stats()
	if st.Degraded {
		t.Error("store should leave degraded mode")
	}
	for _, ti := range f.bs.Tiles() {
		if !ti.Committed {
			t.Errorf("tile %d not repainted after leaving degraded mode", ti.ID)
		}
	}
}

// =============================================================================
// Content Size and Transform Tests
// =============================================================================

func TestBackingStore_SetContentsSize(t *testing.T) {
	f := newFixture(t, 4, image.Pt(100, 100), image.Pt(100, 100), WithBackground(blue))
	f.bs.Activate()
	f.bs.SetContentsSize(image.Pt(50, 100))
	settle(t, f.bs)

	if got := f.pixel(t, 75, 50); got != blue {
		t.Errorf("pixel outside content = %v, want background", got)
	}
	if got := f.pixel(t, 25, 50); got != red {
		t.Errorf("pixel inside content = %v, want red", got)
	}

	f.bs.SetContentsSize(image.Pt(400, 100))
	settle(t, f.bs)
	if got := f.pixel(t, 75, 50); got != red {
		t.Errorf("exposed pixel = %v, want red", got)
	}
}

func TestBackingStore_TransformWhileLoading(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	f.bs.SetLoading(true)
	settle(t, f.bs)

	f.bs.TransformChanged(2)
	settle(t, f.bs)

	st := f.bs.Stats()
	if st.Scale != 2 {
		t.Errorf("Scale = %v, want 2", st.Scale)
	}
	var contents image.Point
	f.bs.runOn(f.bs.paint, func() { contents = f.bs.contents })
	if contents != image.Pt(800, 200) {
		t.Errorf("contents = %v, want (800,200)", contents)
	}
	for _, ti := range f.bs.Tiles() {
		if !ti.Committed {
			t.Errorf("tile %d at %v not repainted at the new scale", ti.ID, ti.Rect)
		}
	}
	if f.bs.zoom.Load() != nil {
		t.Error("zoom snapshot should be dropped once the new tiles are shown")
	}
	if n := f.display.Stats().Acquired; n != 8 {
		t.Errorf("live buffers = %d, want 8 (tile pairs only)", n)
	}
}

func TestBackingStore_TransformIgnoresInvalidScale(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)
	gen := f.bs.Stats().Generation

	f.bs.TransformChanged(0)
	f.bs.TransformChanged(-1)
	f.bs.TransformChanged(1)
	if err := f.bs.Sync(); err != nil {
		t.Fatal(err)
	}
	if g := f.bs.Stats().Generation; g != gen {
		t.Errorf("generation %d -> %d, want no relayout", gen, g)
	}
}

func TestZoomSnapshot_Source(t *testing.T) {
	d := surface.NewImageDisplay(10, 10)
	buf, err := d.Acquire(image.Pt(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	z := &zoomSnapshot{buf: buf, visible: image.Rect(100, 0, 200, 100), scale: 1}

	tests := []struct {
		name     string
		want     image.Rectangle
		scale    float64
		wantSrc  image.Rectangle
		wantPart image.Rectangle
	}{
		{"same scale", image.Rect(120, 0, 140, 50), 1, image.Rect(20, 0, 40, 50), image.Rect(120, 0, 140, 50)},
		{"zoom in", image.Rect(200, 0, 300, 100), 2, image.Rect(0, 0, 50, 50), image.Rect(200, 0, 300, 100)},
		{"clipped", image.Rect(380, 0, 420, 100), 2, image.Rect(90, 0, 100, 50), image.Rect(380, 0, 400, 100)},
		{"outside", image.Rect(0, 0, 50, 50), 1, image.Rectangle{}, image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, part := z.source(tt.want, tt.scale)
			if src != tt.wantSrc || part != tt.wantPart {
				t.Errorf("source = %v, %v; want %v, %v", src, part, tt.wantSrc, tt.wantPart)
			}
		})
	}
}

// =============================================================================
// Pressure Tests
// =============================================================================

func TestBackingStore_FlushRespectsPressure(t *testing.T) {
	f := newFixture(t, 4, image.Pt(400, 100), image.Pt(100, 100))
	f.bs.Activate()
	settle(t, f.bs)

	f.bs.SetInteracting(true)
	f.renderer.set(blue)
	f.bs.Repaint(image.Rect(0, 0, 100, 100), true, false)
	if err := f.bs.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := f.pixel(t, 10, 10); got != red {
		t.Errorf("pixel under pressure = %v, want red", got)
	}

	f.bs.SetInteracting(false)
	settle(t, f.bs)
	if got := f.pixel(t, 10, 10); got != blue {
		t.Errorf("pixel after pressure = %v, want blue", got)
	}
}
