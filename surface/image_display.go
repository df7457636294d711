// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// Display errors.
var (
	// ErrInvalidSize is returned when a buffer size is zero, negative or
	// larger than the maximum texture dimension.
	ErrInvalidSize = errors.New("surface: invalid buffer size")

	// ErrForeignBuffer is returned when a buffer was not created by the
	// display it is passed to.
	ErrForeignBuffer = errors.New("surface: buffer belongs to another display")

	// ErrReleased is returned when a released buffer is used.
	ErrReleased = errors.New("surface: buffer released")
)

// ImageBuffer is a CPU buffer backed by *image.RGBA.
type ImageBuffer struct {
	img      *image.RGBA
	format   gputypes.TextureFormat
	released atomic.Bool
}

// NewImageBuffer wraps img as a buffer. The image is used directly.
func NewImageBuffer(img *image.RGBA) *ImageBuffer {
	return &ImageBuffer{img: img, format: gputypes.TextureFormatRGBA8Unorm}
}

// Size returns the buffer dimensions.
func (b *ImageBuffer) Size() image.Point {
	return b.img.Bounds().Size()
}

// Format returns the pixel format.
func (b *ImageBuffer) Format() gputypes.TextureFormat {
	return b.format
}

// Pixels returns direct access to the pixel data.
func (b *ImageBuffer) Pixels() []byte {
	return b.img.Pix
}

// Stride returns the number of bytes per row.
func (b *ImageBuffer) Stride() int {
	return b.img.Stride
}

// Image returns the underlying image. It shares memory with the buffer.
func (b *ImageBuffer) Image() *image.RGBA {
	return b.img
}

// Ensure ImageBuffer implements PixelBuffer.
var _ PixelBuffer = (*ImageBuffer)(nil)

// ImageDisplay is a CPU display whose buffers are *image.RGBA.
//
// Blits are done with golang.org/x/image/draw: same-size copies use
// draw.Draw, scaled copies use draw.ApproxBiLinear, and a uniform alpha is
// applied through a mask.
//
// Thread safety: calls touching different destination buffers may run
// concurrently. The window is only written by the presentation goroutine.
type ImageDisplay struct {
	window *ImageBuffer
	format gputypes.TextureFormat
	limit  uint32

	acquired atomic.Int64
	presents atomic.Int64
	blits    atomic.Int64
	fills    atomic.Int64

	mu        sync.Mutex
	onPresent func(img *image.RGBA, dirty image.Rectangle)
	lastDirty image.Rectangle
}

// NewImageDisplay creates a CPU display with a window of the given size.
func NewImageDisplay(width, height int) *ImageDisplay {
	return NewImageDisplayWithOptions(DefaultOptions(width, height))
}

// NewImageDisplayWithOptions creates a CPU display from options.
func NewImageDisplayWithOptions(opts Options) *ImageDisplay {
	if opts.Width <= 0 {
		opts.Width = 1
	}
	if opts.Height <= 0 {
		opts.Height = 1
	}
	if opts.Format == 0 {
		opts.Format = gputypes.TextureFormatRGBA8Unorm
	}

	win := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	if opts.Background.A != 0 {
		draw.Draw(win, win.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}

	return &ImageDisplay{
		window: &ImageBuffer{img: win, format: opts.Format},
		format: opts.Format,
		limit:  gputypes.DefaultLimits().MaxTextureDimension2D,
	}
}

// Acquire allocates a new buffer.
func (d *ImageDisplay) Acquire(size image.Point) (Buffer, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, size.X, size.Y)
	}
	extent := gputypes.NewExtent2D(uint32(size.X), uint32(size.Y)) //nolint:gosec // checked positive above
	if extent.Width > d.limit || extent.Height > d.limit {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidSize, size.X, size.Y, d.limit)
	}

	d.acquired.Add(1)
	return &ImageBuffer{
		img:    image.NewRGBA(image.Rectangle{Max: size}),
		format: d.format,
	}, nil
}

// Release frees a buffer.
func (d *ImageDisplay) Release(b Buffer) {
	ib, ok := b.(*ImageBuffer)
	if !ok || ib == nil || ib == d.window {
		return
	}
	if ib.released.CompareAndSwap(false, true) {
		d.acquired.Add(-1)
	}
}

// Blit copies srcRect of src into dstRect of dst.
func (d *ImageDisplay) Blit(dst Buffer, dstRect image.Rectangle, src Buffer, srcRect image.Rectangle, blend BlendMode, alpha float32) error {
	dimg, err := d.imageOf(dst)
	if err != nil {
		return err
	}
	simg, err := d.imageOf(src)
	if err != nil {
		return err
	}
	if dstRect.Empty() || srcRect.Empty() || alpha <= 0 {
		return nil
	}
	d.blits.Add(1)

	op := draw.Over
	if blend == BlendCopy {
		op = draw.Src
	}

	var mask image.Image
	if alpha < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(alpha * 0xff)})
	}

	if dstRect.Size() == srcRect.Size() {
		// Clip against both buffers while keeping the two rects aligned.
		clipped := dstRect.Intersect(dimg.Bounds())
		off := clipped.Min.Sub(dstRect.Min)
		sp := srcRect.Min.Add(off)
		if mask == nil {
			draw.Draw(dimg, clipped, simg, sp, op)
		} else {
			draw.DrawMask(dimg, clipped, simg, sp, mask, image.Point{}, op)
		}
		return nil
	}

	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{SrcMask: mask}
	}
	draw.ApproxBiLinear.Scale(dimg, dstRect, simg, srcRect, op, opts)
	return nil
}

// Fill paints rect of dst with the pattern.
func (d *ImageDisplay) Fill(dst Buffer, rect image.Rectangle, p Pattern) error {
	dimg, err := d.imageOf(dst)
	if err != nil {
		return err
	}
	rect = rect.Intersect(dimg.Bounds())
	if rect.Empty() {
		return nil
	}
	d.fills.Add(1)

	if p.IsSolid() {
		draw.Draw(dimg, rect, image.NewUniform(p.A), image.Point{}, draw.Src)
		return nil
	}

	// Walk the cells overlapping rect and fill each clipped cell.
	cell := p.Cell
	x0 := p.Origin.X + floorDiv(rect.Min.X-p.Origin.X, cell)*cell
	y0 := p.Origin.Y + floorDiv(rect.Min.Y-p.Origin.Y, cell)*cell
	for y := y0; y < rect.Max.Y; y += cell {
		for x := x0; x < rect.Max.X; x += cell {
			r := image.Rect(x, y, x+cell, y+cell).Intersect(rect)
			if r.Empty() {
				continue
			}
			draw.Draw(dimg, r, image.NewUniform(p.ColorAt(x, y)), image.Point{}, draw.Src)
		}
	}
	return nil
}

// Window returns the window buffer.
func (d *ImageDisplay) Window() Buffer {
	return d.window
}

// Present records the presented region and calls the present hook.
func (d *ImageDisplay) Present(dirty image.Rectangle) error {
	d.presents.Add(1)
	d.mu.Lock()
	d.lastDirty = dirty
	hook := d.onPresent
	d.mu.Unlock()
	if hook != nil {
		hook(d.window.img, dirty)
	}
	return nil
}

// OnPresent registers fn to be called after every Present with the window
// image and the dirty rectangle. The image must not be retained.
func (d *ImageDisplay) OnPresent(fn func(img *image.RGBA, dirty image.Rectangle)) {
	d.mu.Lock()
	d.onPresent = fn
	d.mu.Unlock()
}

// Snapshot returns a copy of the window contents.
func (d *ImageDisplay) Snapshot() *image.RGBA {
	src := d.window.img
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Stats reports counters for tests and diagnostics.
func (d *ImageDisplay) Stats() DisplayStats {
	d.mu.Lock()
	last := d.lastDirty
	d.mu.Unlock()
	return DisplayStats{
		Acquired:  int(d.acquired.Load()),
		Presents:  int(d.presents.Load()),
		Blits:     int(d.blits.Load()),
		Fills:     int(d.fills.Load()),
		LastDirty: last,
	}
}

// DisplayStats holds ImageDisplay counters.
type DisplayStats struct {
	// Acquired is the number of live buffers (acquired minus released).
	Acquired int

	// Presents is the number of Present calls.
	Presents int

	// Blits and Fills count non-empty operations.
	Blits int
	Fills int

	// LastDirty is the rectangle passed to the latest Present.
	LastDirty image.Rectangle
}

func (d *ImageDisplay) imageOf(b Buffer) (*image.RGBA, error) {
	ib, ok := b.(*ImageBuffer)
	if !ok || ib == nil {
		return nil, ErrForeignBuffer
	}
	if ib.released.Load() {
		return nil, ErrReleased
	}
	return ib.img, nil
}

// Ensure ImageDisplay implements Display.
var _ Display = (*ImageDisplay)(nil)
