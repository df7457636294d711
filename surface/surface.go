// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Buffer is an opaque native pixel buffer handle.
//
// The tile store only ever asks a buffer for its size and format; pixel
// access is up to the Surface that created it.
type Buffer interface {
	// Size returns the buffer dimensions in pixels.
	Size() image.Point

	// Format returns the pixel format of the buffer.
	Format() gputypes.TextureFormat
}

// PixelBuffer is an optional interface for buffers with CPU pixel access.
// Layer compositors use it to upload tile content to GPU textures.
type PixelBuffer interface {
	Buffer

	// Pixels returns the pixel data, Stride bytes per row.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// Surface is the capability interface the backing store draws through.
//
// Surfaces are used from two goroutines: the paint goroutine (Acquire,
// Release, Blit and Fill into tile buffers) and the presentation goroutine
// (Blit and Fill into the window). Implementations must allow concurrent
// calls that touch different destination buffers.
type Surface interface {
	// Acquire allocates a native buffer of the given size.
	Acquire(size image.Point) (Buffer, error)

	// Release frees a buffer returned by Acquire. Releasing nil or an
	// already released buffer is a no-op.
	Release(b Buffer)

	// Blit copies srcRect of src into dstRect of dst. When the rectangles
	// differ in size the source is scaled. alpha in [0, 1] is a uniform
	// opacity applied on top of the blend mode.
	Blit(dst Buffer, dstRect image.Rectangle, src Buffer, srcRect image.Rectangle, blend BlendMode, alpha float32) error

	// Fill paints rect of dst with the pattern.
	Fill(dst Buffer, rect image.Rectangle, p Pattern) error
}

// Display is a Surface with a window to present to.
type Display interface {
	Surface

	// Window returns the buffer that is shown on screen after Present.
	Window() Buffer

	// Present shows the window buffer. dirty is the part of the window that
	// changed since the previous Present; implementations may ignore it.
	Present(dirty image.Rectangle) error
}
