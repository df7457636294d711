package tilestore

import (
	"image"

	"github.com/gogpu/tilestore/surface"
)

// RenderTarget is the buffer a Renderer paints into.
type RenderTarget struct {
	// Buffer is the destination. CPU displays hand out surface.PixelBuffer
	// implementations.
	Buffer surface.Buffer

	// Origin is the content-space point that maps to the buffer's (0, 0).
	Origin image.Point

	// Scale is the current content scale.
	Scale float64
}

// Renderer paints content into tile buffers.
//
// Paint must fill exactly rect (content space, already scaled) into
// target.Buffer at rect.Sub(target.Origin). It is called only from the
// paint goroutine, once per tile per pass, and must not retain the buffer
// after it returns. It must not call back into the BackingStore.
type Renderer interface {
	Paint(target RenderTarget, rect image.Rectangle) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(target RenderTarget, rect image.Rectangle) error

// Paint calls f(target, rect).
func (f RendererFunc) Paint(target RenderTarget, rect image.Rectangle) error {
	return f(target, rect)
}
