// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
)

// fakeBackend returns a backend that records the options it was opened with.
func fakeBackend(name string, priority int, caps Caps, got *Options) Backend {
	return Backend{
		Name:     name,
		Priority: priority,
		Caps:     caps,
		Open: func(opts Options) (Display, error) {
			if got != nil {
				*got = opts
			}
			return NewImageDisplayWithOptions(opts), nil
		},
	}
}

func TestRegistry_RegisterOrdersByPriority(t *testing.T) {
	var r Registry
	for _, b := range []Backend{
		fakeBackend("low", 10, ImageCaps(), nil),
		fakeBackend("high", 100, ImageCaps(), nil),
		fakeBackend("mid", 50, ImageCaps(), nil),
		fakeBackend("also-mid", 50, ImageCaps(), nil),
	} {
		if err := r.Register(b); err != nil {
			t.Fatalf("Register(%s): %v", b.Name, err)
		}
	}

	var names []string
	for _, b := range r.Backends() {
		names = append(names, b.Name)
	}
	want := []string{"high", "also-mid", "mid", "low"}
	if !slices.Equal(names, want) {
		t.Errorf("Backends() = %v, want %v", names, want)
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	var r Registry
	_ = r.Register(fakeBackend("x", 10, ImageCaps(), nil))
	_ = r.Register(fakeBackend("x", 99, Caps{Readback: false}, nil))

	if n := len(r.Backends()); n != 1 {
		t.Fatalf("len(Backends()) = %d, want 1", n)
	}
	b, ok := r.Lookup("x")
	if !ok || b.Priority != 99 || b.Caps.Readback {
		t.Errorf("Lookup(x) = %+v, %v; want the replacement", b, ok)
	}

	r.Unregister("x")
	if _, ok := r.Lookup("x"); ok {
		t.Error("backend still present after Unregister")
	}
}

func TestRegistry_RegisterRejectsIncomplete(t *testing.T) {
	var r Registry
	if err := r.Register(Backend{Name: "no-open"}); err == nil {
		t.Error("Register without Open succeeded")
	}
	if err := r.Register(Backend{Open: func(Options) (Display, error) { return nil, nil }}); err == nil {
		t.Error("Register without a name succeeded")
	}
	if n := len(r.Backends()); n != 0 {
		t.Errorf("len(Backends()) = %d, want 0", n)
	}
}

func TestRegistry_OpenFillsPreferredFormat(t *testing.T) {
	var r Registry
	var got Options
	caps := Caps{Formats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm}}
	_ = r.Register(fakeBackend("bgra", 10, caps, &got))

	opts := DefaultOptions(64, 32)
	opts.Format = gputypes.TextureFormatUndefined
	if _, _, err := r.Open("bgra", opts, Need{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want the preferred BGRA8Unorm", got.Format)
	}

	opts.Format = gputypes.TextureFormatRGBA8Unorm
	if _, _, err := r.Open("bgra", opts, Need{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want the requested RGBA8Unorm", got.Format)
	}
}

func TestRegistry_OpenSkipsBackendsThatCannotServe(t *testing.T) {
	var r Registry
	_ = r.Register(fakeBackend("window", 100, Caps{Formats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}}, nil))
	_ = r.Register(fakeBackend("small", 50, Caps{Formats: ImageCaps().Formats, Readback: true, MaxDimension: 128}, nil))
	_ = r.Register(fakeBackend("image", 10, ImageCaps(), nil))

	tests := []struct {
		name string
		opts Options
		need Need
		want string
	}{
		{"any format", Options{Width: 64, Height: 64}, Need{}, "window"},
		{"needs readback", Options{Width: 64, Height: 64}, Need{Readback: true}, "small"},
		{"needs rgba", DefaultOptions(64, 64), Need{}, "small"},
		{"tile too large", DefaultOptions(64, 64), Need{Tile: image.Pt(256, 256)}, "image"},
		{"window too large", DefaultOptions(800, 600), Need{Readback: true}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, err := r.Open("", tt.opts, tt.need)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if d == nil {
				t.Fatal("Open returned a nil display")
			}
			if b.Name != tt.want {
				t.Errorf("backend = %s, want %s", b.Name, tt.want)
			}
		})
	}
}

func TestRegistry_OpenErrors(t *testing.T) {
	var r Registry
	failed := errors.New("device lost")
	_ = r.Register(Backend{
		Name: "broken",
		Caps: ImageCaps(),
		Open: func(Options) (Display, error) { return nil, failed },
	})
	_ = r.Register(Backend{
		Name:      "absent",
		Caps:      ImageCaps(),
		Open:      func(opts Options) (Display, error) { return NewImageDisplayWithOptions(opts), nil },
		Available: func() bool { return false },
	})
	_ = r.Register(fakeBackend("gpu-only", 10, Caps{Formats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}}, nil))

	tests := []struct {
		name    string
		backend string
		need    Need
		want    error
	}{
		{"not registered", "vulkan", Need{}, ErrBackendNotFound},
		{"unavailable", "absent", Need{}, ErrBackendUnavailable},
		{"open fails", "broken", Need{}, failed},
		{"wrong format", "gpu-only", Need{}, ErrUnsupported},
		{"nothing fits", "", Need{}, ErrNoBackendAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Open(tt.backend, DefaultOptions(64, 64), tt.need)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Open error = %v, want %v", err, tt.want)
			}
			var be *BackendError
			if tt.backend != "" && (!errors.As(err, &be) || be.Name != tt.backend) {
				t.Errorf("error %v does not name backend %q", err, tt.backend)
			}
		})
	}
}

func TestOpen_ImageBackend(t *testing.T) {
	d, b, err := Open("", DefaultOptions(100, 80), Need{Readback: true, Tile: image.Pt(256, 256)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Name != "image" {
		t.Errorf("backend = %s, want image", b.Name)
	}
	img, ok := d.(*ImageDisplay)
	if !ok {
		t.Fatalf("display = %T, want *ImageDisplay", d)
	}
	if got := img.Window().Size(); got != image.Pt(100, 80) {
		t.Errorf("window size = %v, want (100,80)", got)
	}

	_, _, err = Open("image", Options{Width: 0, Height: 10}, Need{})
	if !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width error = %v, want ErrInvalidSize", err)
	}

	opts := DefaultOptions(10, 10)
	opts.Format = gputypes.TextureFormatBGRA8Unorm
	if _, _, err := Open("image", opts, Need{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("BGRA error = %v, want ErrUnsupported", err)
	}
}
