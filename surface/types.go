// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// BlendMode specifies how source pixels are combined with the destination.
type BlendMode uint8

const (
	// BlendCopy replaces destination pixels with source pixels.
	BlendCopy BlendMode = iota

	// BlendSourceOver is Porter-Duff source-over.
	BlendSourceOver
)

// String returns the blend mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendCopy:
		return "Copy"
	case BlendSourceOver:
		return "SourceOver"
	default:
		return "Unknown"
	}
}

// Pattern describes a fill. A zero Cell means a solid fill with A.
type Pattern struct {
	// A is the solid color, or the first checkerboard color.
	A color.RGBA

	// B is the second checkerboard color.
	B color.RGBA

	// Cell is the checkerboard cell size in pixels.
	Cell int

	// Origin is the pattern phase: the point of the destination buffer that
	// lines up with the top-left corner of an A cell.
	Origin image.Point
}

// Solid returns a solid pattern.
func Solid(c color.RGBA) Pattern {
	return Pattern{A: c}
}

// Checkerboard returns a checkerboard pattern with the given cell size.
func Checkerboard(cell int, a, b color.RGBA) Pattern {
	return Pattern{A: a, B: b, Cell: cell}
}

// DefaultCheckerboard is the placeholder drawn over content that is not
// rendered yet.
var DefaultCheckerboard = Checkerboard(16,
	color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff},
	color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
)

// WithOrigin returns a copy of the pattern anchored at origin.
func (p Pattern) WithOrigin(origin image.Point) Pattern {
	p.Origin = origin
	return p
}

// IsSolid reports whether the pattern is a single color.
func (p Pattern) IsSolid() bool {
	return p.Cell <= 0
}

// ColorAt returns the pattern color at destination pixel (x, y).
func (p Pattern) ColorAt(x, y int) color.RGBA {
	if p.IsSolid() {
		return p.A
	}
	cx := floorDiv(x-p.Origin.X, p.Cell)
	cy := floorDiv(y-p.Origin.Y, p.Cell)
	if (cx+cy)&1 == 0 {
		return p.A
	}
	return p.B
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Options holds display creation options.
type Options struct {
	// Width is the window width in pixels.
	Width int

	// Height is the window height in pixels.
	Height int

	// Format is the pixel format of every buffer.
	// Default: gputypes.TextureFormatRGBA8Unorm
	Format gputypes.TextureFormat

	// Background is the initial window color.
	// Default: transparent
	Background color.RGBA

	// Custom options for specific backends.
	Custom map[string]any
}

// DefaultOptions returns Options with default values.
func DefaultOptions(width, height int) Options {
	return Options{
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}
}
