// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpuhost

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tilestore/surface"
)

// Common errors returned by gpuhost.
var (
	// ErrNilDisplay is returned when a nil display is passed.
	ErrNilDisplay = errors.New("gpuhost: nil display")

	// ErrNilStore is returned when a nil backing store is passed.
	ErrNilStore = errors.New("gpuhost: nil store")

	// ErrNoPixelAccess is returned when the display window has no CPU
	// pixel access.
	ErrNoPixelAccess = errors.New("gpuhost: window must implement surface.PixelBuffer")

	// ErrInvalidRenderer is returned when the drawer has no texture creator.
	ErrInvalidRenderer = errors.New("gpuhost: drawer must provide a gpucontext.TextureCreator")

	// ErrClosed is returned when operations are attempted after Close.
	ErrClosed = errors.New("gpuhost: closed")
)

// textureDestroyer is the interface for destroying textures.
// This matches the gogpu.Texture.Destroy signature.
type textureDestroyer interface {
	Destroy()
}

func destroyTexture(tex gpucontext.Texture) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// Presenter is a surface.Display that shows its window on the GPU.
//
// All drawing goes to the wrapped CPU display. Present copies the dirty part
// of the window into a staging image; RenderTo uploads what changed since
// the last frame and draws the window texture.
type Presenter struct {
	surface.Display

	window surface.PixelBuffer

	mu      sync.Mutex
	staging *image.RGBA
	dirty   image.Rectangle
	texture gpucontext.Texture
	uploads int
	closed  bool
}

// NewPresenter wraps display. Its window must implement
// surface.PixelBuffer with tightly packed RGBA rows.
func NewPresenter(display surface.Display) (*Presenter, error) {
	if display == nil {
		return nil, ErrNilDisplay
	}
	win, ok := display.Window().(surface.PixelBuffer)
	if !ok {
		return nil, ErrNoPixelAccess
	}
	size := win.Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: window %v", surface.ErrInvalidSize, size)
	}
	bounds := image.Rectangle{Max: size}
	return &Presenter{
		Display: display,
		window:  win,
		staging: image.NewRGBA(bounds),
		dirty:   bounds,
	}, nil
}

// Present stages the dirty part of the window and presents the wrapped
// display.
func (p *Presenter) Present(dirty image.Rectangle) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	r := dirty.Intersect(p.staging.Rect)
	if !r.Empty() {
		copyRows(p.staging.Pix, p.staging.Stride, p.window.Pixels(), p.window.Stride(), r)
		p.dirty = p.dirty.Union(r)
	}
	p.mu.Unlock()
	return p.Display.Present(dirty)
}

// RenderTo uploads the staged window and draws it at (0, 0).
//
// The texture is created on the first call. Later calls upload only the
// region presented since the previous call when the texture supports
// gpucontext.TextureRegionUpdater, and the whole window otherwise.
func (p *Presenter) RenderTo(dc gpucontext.TextureDrawer) error {
	tex, err := p.flush(dc)
	if err != nil {
		return err
	}
	return dc.DrawTexture(tex, 0, 0)
}

func (p *Presenter) flush(dc gpucontext.TextureDrawer) (gpucontext.Texture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if p.texture == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return nil, ErrInvalidRenderer
		}
		size := p.staging.Rect.Size()
		tex, err := creator.NewTextureFromRGBA(size.X, size.Y, p.staging.Pix)
		if err != nil {
			return nil, fmt.Errorf("gpuhost: NewTextureFromRGBA failed: %w", err)
		}
		// Window pixels are premultiplied alpha.
		if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}
		p.texture = tex
		p.dirty = image.Rectangle{}
		p.uploads++
		return tex, nil
	}

	if p.dirty.Empty() {
		return p.texture, nil
	}
	if err := p.upload(p.dirty); err != nil {
		return nil, err
	}
	p.dirty = image.Rectangle{}
	p.uploads++
	return p.texture, nil
}

// upload sends r of the staging image to the texture.
func (p *Presenter) upload(r image.Rectangle) error {
	if ru, ok := p.texture.(gpucontext.TextureRegionUpdater); ok && r != p.staging.Rect {
		data := make([]byte, r.Dx()*r.Dy()*4)
		copyRows(data, r.Dx()*4, p.staging.Pix[p.staging.PixOffset(r.Min.X, r.Min.Y):], p.staging.Stride,
			image.Rectangle{Max: r.Size()})
		if err := ru.UpdateRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), data); err != nil {
			return fmt.Errorf("gpuhost: texture region update failed: %w", err)
		}
		return nil
	}
	if u, ok := p.texture.(gpucontext.TextureUpdater); ok {
		if err := u.UpdateData(p.staging.Pix); err != nil {
			return fmt.Errorf("gpuhost: texture update failed: %w", err)
		}
	}
	return nil
}

// Uploads returns the number of texture uploads so far.
func (p *Presenter) Uploads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

// Close destroys the window texture. The wrapped display is left alone.
// Close is idempotent.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.texture != nil {
		destroyTexture(p.texture)
		p.texture = nil
	}
	return nil
}

// copyRows copies rect r from src to dst, both addressed from their own
// origin with the given strides. Pixels are 4 bytes.
func copyRows(dst []byte, dstStride int, src []byte, srcStride int, r image.Rectangle) {
	n := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		so := y*srcStride + r.Min.X*4
		do := y*dstStride + r.Min.X*4
		copy(dst[do:do+n], src[so:so+n])
	}
}

// Ensure Presenter implements surface.Display.
var _ surface.Display = (*Presenter)(nil)
