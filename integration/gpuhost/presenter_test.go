// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpuhost

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/tilestore/surface"
)

// opaqueDisplay is a display whose window has no CPU pixels.
type opaqueDisplay struct {
	surface.Display
}

func (opaqueDisplay) Window() surface.Buffer { return opaqueBuffer{size: image.Pt(4, 4)} }

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewPresenter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		display surface.Display
		want    error
	}{
		{"nil display", nil, ErrNilDisplay},
		{"no pixel access", opaqueDisplay{}, ErrNoPixelAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPresenter(tt.display)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewPresenter error = %v, want %v", err, tt.want)
			}
			if p != nil {
				t.Error("NewPresenter should return nil on error")
			}
		})
	}
}

// =============================================================================
// Upload Tests
// =============================================================================

func TestPresenter_UploadsDirtyRegion(t *testing.T) {
	d := surface.NewImageDisplay(4, 4)
	p, err := NewPresenter(d)
	if err != nil {
		t.Fatal(err)
	}
	win := d.Window().(*surface.ImageBuffer).Image()
	red := color.RGBA{R: 0xff, A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}

	win.SetRGBA(0, 0, red)
	if err := p.Present(image.Rect(0, 0, 4, 4)); err != nil {
		t.Fatalf("Present: %v", err)
	}

	dc := newMockDrawer()
	if err := p.RenderTo(dc); err != nil {
		t.Fatalf("RenderTo: %v", err)
	}
	if len(dc.creator.textures) != 1 {
		t.Fatalf("textures created = %d, want 1", len(dc.creator.textures))
	}
	tex := dc.creator.textures[0]
	if tex.width != 4 || tex.height != 4 {
		t.Errorf("texture size = %dx%d, want 4x4", tex.width, tex.height)
	}
	if !tex.premultiplied {
		t.Error("window texture should be premultiplied")
	}
	if got := (color.RGBA{tex.data[0], tex.data[1], tex.data[2], tex.data[3]}); got != red {
		t.Errorf("texture pixel (0,0) = %v, want %v", got, red)
	}

	t.Run("partial update", func(t *testing.T) {
		win.SetRGBA(1, 1, blue)
		win.SetRGBA(2, 1, blue)
		if err := p.Present(image.Rect(1, 1, 3, 2)); err != nil {
			t.Fatal(err)
		}
		if err := p.RenderTo(dc); err != nil {
			t.Fatal(err)
		}
		if len(tex.regions) != 1 || tex.regions[0] != image.Rect(1, 1, 3, 2) {
			t.Fatalf("regions = %v, want [(1,1)-(3,2)]", tex.regions)
		}
		o := (1*4 + 2) * 4
		if got := (color.RGBA{tex.data[o], tex.data[o+1], tex.data[o+2], tex.data[o+3]}); got != blue {
			t.Errorf("texture pixel (2,1) = %v, want %v", got, blue)
		}
		if p.Uploads() != 2 {
			t.Errorf("Uploads = %d, want 2", p.Uploads())
		}
	})

	t.Run("clean frame", func(t *testing.T) {
		if err := p.RenderTo(dc); err != nil {
			t.Fatal(err)
		}
		if p.Uploads() != 2 {
			t.Errorf("clean frame uploaded, Uploads = %d", p.Uploads())
		}
		if len(dc.draws) != 3 {
			t.Errorf("draws = %d, want 3", len(dc.draws))
		}
	})

	t.Run("close", func(t *testing.T) {
		if err := p.Close(); err != nil {
			t.Fatal(err)
		}
		if !tex.destroyed {
			t.Error("Close should destroy the texture")
		}
		if err := p.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if err := p.RenderTo(dc); !errors.Is(err, ErrClosed) {
			t.Errorf("RenderTo after Close = %v, want ErrClosed", err)
		}
		if err := p.Present(image.Rect(0, 0, 1, 1)); !errors.Is(err, ErrClosed) {
			t.Errorf("Present after Close = %v, want ErrClosed", err)
		}
	})
}

func TestPresenter_NoCreator(t *testing.T) {
	p, err := NewPresenter(surface.NewImageDisplay(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.RenderTo(&mockDrawer{}); !errors.Is(err, ErrInvalidRenderer) {
		t.Errorf("RenderTo = %v, want ErrInvalidRenderer", err)
	}
}

func TestPresenter_CreateFailure(t *testing.T) {
	p, err := NewPresenter(surface.NewImageDisplay(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	boom := errors.New("boom")
	dc := &mockDrawer{creator: &mockCreator{fail: boom}}
	if err := p.RenderTo(dc); !errors.Is(err, boom) {
		t.Errorf("RenderTo = %v, want wrapped %v", err, boom)
	}
	if len(dc.draws) != 0 {
		t.Error("nothing should be drawn when the texture cannot be created")
	}
}
