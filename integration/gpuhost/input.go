package gpuhost

import (
	"image"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tilestore"
)

// Target receives the input the bridge produces. *tilestore.BackingStore
// implements it.
type Target interface {
	Scroll(delta image.Point, blit bool)
	SetInteracting(on bool)
	TransformChanged(scale float64)
}

// InputOptions configures BindInput.
type InputOptions struct {
	// LineHeight is the scroll distance of one line in pixels.
	// Default: 40
	LineHeight float64

	// PageSize is the scroll distance of one page in pixels.
	// Default: 600x600
	PageSize image.Point

	// MinScale and MaxScale bound the zoom.
	// Default: 0.25 and 8
	MinScale float64
	MaxScale float64

	// ZoomStep is the scale factor of one Ctrl+wheel line.
	// Default: 0.1
	ZoomStep float64

	// BlitOnScroll hands blit responsibility to the store on every scroll.
	BlitOnScroll bool
}

// DefaultInputOptions returns options with sensible defaults.
func DefaultInputOptions() InputOptions {
	return InputOptions{
		LineHeight: 40,
		PageSize:   image.Pt(600, 600),
		MinScale:   0.25,
		MaxScale:   8,
		ZoomStep:   0.1,
	}
}

// Input turns window events into backing store calls.
//
// Thread safety: Input is safe for concurrent use; event sources may
// deliver on any goroutine.
type Input struct {
	target Target
	opts   InputOptions

	mu          sync.Mutex
	remX, remY  float64
	scale       float64
	interacting bool
}

// BindInput subscribes to events, which may implement
// gpucontext.ScrollEventSource, gpucontext.GestureEventSource or both.
// Sources implementing neither are ignored.
func BindInput(target Target, events any, opts InputOptions) (*Input, error) {
	if target == nil {
		return nil, ErrNilStore
	}
	def := DefaultInputOptions()
	if opts.LineHeight <= 0 {
		opts.LineHeight = def.LineHeight
	}
	if opts.PageSize.X <= 0 || opts.PageSize.Y <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.MinScale <= 0 {
		opts.MinScale = def.MinScale
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = max(def.MaxScale, opts.MinScale)
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = def.ZoomStep
	}

	in := &Input{target: target, opts: opts, scale: 1}
	if s, ok := events.(gpucontext.ScrollEventSource); ok {
		s.OnScrollEvent(in.HandleScroll)
	}
	if g, ok := events.(gpucontext.GestureEventSource); ok {
		g.OnGesture(in.HandleGesture)
	}
	return in, nil
}

// Scale returns the current zoom scale.
func (in *Input) Scale() float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.scale
}

// HandleScroll scrolls the target, or zooms it when Control is held.
func (in *Input) HandleScroll(ev gpucontext.ScrollEvent) {
	if ev.Modifiers.HasControl() {
		in.zoomBy(1 - ev.DeltaY*in.opts.ZoomStep)
		return
	}

	dx, dy := ev.DeltaX, ev.DeltaY
	switch ev.DeltaMode {
	case gpucontext.ScrollDeltaLine:
		dx *= in.opts.LineHeight
		dy *= in.opts.LineHeight
	case gpucontext.ScrollDeltaPage:
		dx *= float64(in.opts.PageSize.X)
		dy *= float64(in.opts.PageSize.Y)
	}
	in.scrollBy(dx, dy)
}

// HandleGesture pans and zooms while two or more pointers are down. The
// target is told it is interacting for the duration of the gesture.
func (in *Input) HandleGesture(ev gpucontext.GestureEvent) {
	if ev.NumPointers < 2 {
		in.setInteracting(false)
		return
	}
	in.setInteracting(true)
	// Fingers drag the content, so the viewport moves the other way.
	in.scrollBy(-ev.TranslationDelta.X, -ev.TranslationDelta.Y)
	if ev.ZoomDelta > 0 && ev.ZoomDelta != 1 {
		in.zoomBy(ev.ZoomDelta)
	}
}

func (in *Input) setInteracting(on bool) {
	in.mu.Lock()
	changed := in.interacting != on
	in.interacting = on
	in.mu.Unlock()
	if changed {
		tilestore.Logger().Debug("gpuhost: interaction", "on", on)
		in.target.SetInteracting(on)
	}
}

// scrollBy scrolls by whole pixels and carries the fraction to the next
// event.
func (in *Input) scrollBy(dx, dy float64) {
	in.mu.Lock()
	in.remX += dx
	in.remY += dy
	sx, sy := math.Trunc(in.remX), math.Trunc(in.remY)
	in.remX -= sx
	in.remY -= sy
	blit := in.opts.BlitOnScroll
	in.mu.Unlock()

	if sx == 0 && sy == 0 {
		return
	}
	in.target.Scroll(image.Pt(int(sx), int(sy)), blit)
}

func (in *Input) zoomBy(f float64) {
	if f <= 0 {
		return
	}
	in.mu.Lock()
	next := min(max(in.scale*f, in.opts.MinScale), in.opts.MaxScale)
	changed := next != in.scale
	in.scale = next
	in.mu.Unlock()
	if changed {
		in.target.TransformChanged(next)
	}
}

// Ensure BackingStore can be driven by Input.
var _ Target = (*tilestore.BackingStore)(nil)
