package tilestore

import (
	"image"
	"image/color"

	"github.com/gogpu/tilestore/surface"
)

// defaultJobBatch is the number of tiles painted between two blits while
// the render queue drains.
const defaultJobBatch = 4

// Option configures a BackingStore during creation.
//
// Example:
//
//	bs, err := tilestore.NewBackingStore(pool, renderer,
//	    tilestore.WithContentsSize(image.Pt(4000, 12000)),
//	    tilestore.WithJobBatch(8),
//	)
type Option func(*options)

// options holds optional configuration for BackingStore creation.
type options struct {
	checkerboard surface.Pattern
	background   color.RGBA
	jobBatch     int
	scale        float64
	contents     image.Point
	viewport     image.Point
}

// defaultOptions returns the default backing store options.
func defaultOptions() options {
	return options{
		checkerboard: surface.DefaultCheckerboard,
		background:   color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		jobBatch:     defaultJobBatch,
		scale:        1,
	}
}

// WithCheckerboard sets the placeholder drawn over content that is not
// rendered yet.
func WithCheckerboard(p surface.Pattern) Option {
	return func(o *options) {
		o.checkerboard = p
	}
}

// WithBackground sets the color shown outside the content bounds.
func WithBackground(c color.RGBA) Option {
	return func(o *options) {
		o.background = c
	}
}

// WithJobBatch sets how many queued jobs are painted between blits.
// Values below one are ignored.
func WithJobBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.jobBatch = n
		}
	}
}

// WithInitialScale sets the content scale the store starts at.
// Non-positive values are ignored.
func WithInitialScale(scale float64) Option {
	return func(o *options) {
		if scale > 0 {
			o.scale = scale
		}
	}
}

// WithContentsSize sets the unscaled content size. The default is the
// viewport size.
func WithContentsSize(size image.Point) Option {
	return func(o *options) {
		o.contents = size
	}
}

// WithViewportSize sets the viewport size. The default is the size of the
// display window.
func WithViewportSize(size image.Point) Option {
	return func(o *options) {
		o.viewport = size
	}
}
