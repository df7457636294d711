// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
)

// Registry errors.
var (
	// ErrNoBackendAvailable is returned when no registered backend is
	// available and able to serve the request.
	ErrNoBackendAvailable = errors.New("surface: no backend available")

	// ErrBackendNotFound is returned for a backend name that was never
	// registered.
	ErrBackendNotFound = errors.New("surface: backend not found")

	// ErrBackendUnavailable is returned for a backend that is registered
	// but cannot run on this system.
	ErrBackendUnavailable = errors.New("surface: backend unavailable")

	// ErrUnsupported is returned when a backend lacks a capability the
	// caller needs.
	ErrUnsupported = errors.New("surface: unsupported by backend")
)

// BackendError ties a registry error to the backend it concerns.
type BackendError struct {
	Name string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Name)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Caps describes what a display backend offers a tile store.
type Caps struct {
	// Formats lists the buffer formats the backend can allocate. The first
	// one is used when Options.Format is left zero.
	Formats []gputypes.TextureFormat

	// Readback reports whether window pixels can be read on the CPU.
	Readback bool

	// MaxDimension bounds the width and height of any buffer, window
	// included. Zero means unbounded.
	MaxDimension uint32
}

// Preferred returns the backend's default format.
func (c Caps) Preferred() gputypes.TextureFormat {
	if len(c.Formats) == 0 {
		return gputypes.TextureFormatUndefined
	}
	return c.Formats[0]
}

// Need is what a caller requires of a backend beyond its options.
type Need struct {
	// Readback requires CPU access to the window.
	Readback bool

	// Tile is the size of the tile buffers that will be acquired.
	Tile image.Point
}

// check reports why caps cannot serve opts and need, or nil.
func (c Caps) check(opts Options, need Need) error {
	if opts.Format != gputypes.TextureFormatUndefined && !slices.Contains(c.Formats, opts.Format) {
		return fmt.Errorf("%w: format %v", ErrUnsupported, opts.Format)
	}
	if need.Readback && !c.Readback {
		return fmt.Errorf("%w: window readback", ErrUnsupported)
	}
	if c.MaxDimension > 0 {
		largest := max(opts.Width, opts.Height, need.Tile.X, need.Tile.Y)
		if largest > int(c.MaxDimension) {
			return fmt.Errorf("%w: dimension %d exceeds %d", ErrUnsupported, largest, c.MaxDimension)
		}
	}
	return nil
}

// Backend is a registered display implementation.
type Backend struct {
	// Name is the unique identifier, as passed to Open.
	Name string

	// Priority orders automatic selection, highest first. Native window
	// backends use 100 and CPU image backends 10.
	Priority int

	Caps Caps

	// Open creates a display. The registry fills a zero Options.Format with
	// Caps.Preferred before calling it.
	Open func(opts Options) (Display, error)

	// Available reports whether the backend can run here. Nil means always.
	Available func() bool
}

func (b *Backend) available() bool {
	return b.Available == nil || b.Available()
}

// Registry holds display backends. The zero value is ready to use.
//
// Backends are chosen once, when the tile store is built, so the store
// itself never learns which one it got.
type Registry struct {
	mu       sync.RWMutex
	backends []Backend
}

// Register adds b, replacing any backend with the same name.
func (r *Registry) Register(b Backend) error {
	if b.Name == "" || b.Open == nil {
		return fmt.Errorf("surface: backend %q needs a name and an Open func", b.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = slices.DeleteFunc(r.backends, func(e Backend) bool { return e.Name == b.Name })
	r.backends = append(r.backends, b)
	slices.SortStableFunc(r.backends, func(x, y Backend) int {
		return cmp.Or(cmp.Compare(y.Priority, x.Priority), cmp.Compare(x.Name, y.Name))
	})
	return nil
}

// Unregister removes the named backend.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = slices.DeleteFunc(r.backends, func(e Backend) bool { return e.Name == name })
}

// Backends returns the registered backends, highest priority first.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.backends)
}

// Lookup returns the named backend.
func (r *Registry) Lookup(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := slices.IndexFunc(r.backends, func(e Backend) bool { return e.Name == name })
	if i < 0 {
		return Backend{}, false
	}
	return r.backends[i], true
}

// Open creates a display from the named backend, or from the highest
// priority backend that is available and satisfies opts and need when name
// is empty. It returns the backend it used.
func (r *Registry) Open(name string, opts Options, need Need) (Display, Backend, error) {
	if name != "" {
		b, ok := r.Lookup(name)
		if !ok {
			return nil, Backend{}, &BackendError{Name: name, Err: ErrBackendNotFound}
		}
		d, err := open(b, opts, need)
		return d, b, err
	}

	var errs []error
	for _, b := range r.Backends() {
		d, err := open(b, opts, need)
		if err == nil {
			return d, b, nil
		}
		errs = append(errs, err)
	}
	return nil, Backend{}, errors.Join(append([]error{ErrNoBackendAvailable}, errs...)...)
}

func open(b Backend, opts Options, need Need) (Display, error) {
	if !b.available() {
		return nil, &BackendError{Name: b.Name, Err: ErrBackendUnavailable}
	}
	if err := b.Caps.check(opts, need); err != nil {
		return nil, &BackendError{Name: b.Name, Err: err}
	}
	if opts.Format == gputypes.TextureFormatUndefined {
		opts.Format = b.Caps.Preferred()
	}
	d, err := b.Open(opts)
	if err != nil {
		return nil, &BackendError{Name: b.Name, Err: err}
	}
	return d, nil
}

// Backends is the process-wide registry.
var backends Registry

// Register adds b to the process-wide registry.
func Register(b Backend) error { return backends.Register(b) }

// Unregister removes the named backend from the process-wide registry.
func Unregister(name string) { backends.Unregister(name) }

// Backends lists the process-wide registry, highest priority first.
func Backends() []Backend { return backends.Backends() }

// Open creates a display from the process-wide registry. See Registry.Open.
func Open(name string, opts Options, need Need) (Display, Backend, error) {
	return backends.Open(name, opts, need)
}

// ImageCaps are the capabilities of ImageDisplay. Pixels are always stored
// as *image.RGBA, so only the 8-bit RGBA formats are offered.
func ImageCaps() Caps {
	return Caps{
		Formats: []gputypes.TextureFormat{
			gputypes.TextureFormatRGBA8Unorm,
			gputypes.TextureFormatRGBA8UnormSrgb,
		},
		Readback:     true,
		MaxDimension: gputypes.DefaultLimits().MaxTextureDimension2D,
	}
}

func init() {
	_ = Register(Backend{
		Name:     "image",
		Priority: 10,
		Caps:     ImageCaps(),
		Open: func(opts Options) (Display, error) {
			if opts.Width <= 0 || opts.Height <= 0 {
				return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
			}
			return NewImageDisplayWithOptions(opts), nil
		},
	})
}
