// Package tile provides the double-buffered tiles of the backing store.
//
// A Tile is one fixed-size slot of the tile pool. It owns two surface
// buffers (front and back). The paint goroutine renders into the back
// buffer and swaps; the presentation goroutine reads only the front.
// A tile is never freed while its pool lives; the grid only remaps it to a
// different Index.
//
// Thread safety: Front and the state getters are safe from any goroutine.
// Back, WriterFront, Swap and the setters belong to the paint goroutine.
package tile

import (
	"image"
	"sync/atomic"

	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/internal/swap"
	"github.com/gogpu/tilestore/surface"
)

// Index is a tile coordinate in the grid. (0, 0) is the top-left tile.
type Index struct {
	X, Y int
}

// Add returns the index offset by dx columns and dy rows.
func (i Index) Add(dx, dy int) Index {
	return Index{X: i.X + dx, Y: i.Y + dy}
}

// Buffer is one half of a tile's buffer pair.
type Buffer struct {
	// Handle is the native buffer acquired from the display surface.
	Handle surface.Buffer

	// Rendered is the part of the buffer, in tile-local coordinates,
	// known to hold valid pixels.
	Rendered region.Region
}

// IsRendered reports whether every pixel of r (tile-local) holds valid content.
func (b *Buffer) IsRendered(r image.Rectangle) bool {
	return b.Rendered.Contains(r)
}

// Tile is a fixed-size double-buffered pixel unit of the backing store.
type Tile struct {
	// id is the stable pool slot number of the tile.
	id int

	// size is the tile size in pixels.
	size image.Point

	// committed is true when the front buffer holds displayable content.
	committed atomic.Bool

	// shiftX and shiftY locate, in whole tiles relative to the current index,
	// where the front buffer content was last rendered.
	shiftX atomic.Int32
	shiftY atomic.Int32

	buffers *swap.DoubleBuffer[Buffer]

	// stale is withdrawn from the front rendered region. It is replaced,
	// never modified, so readers may hold it while the writer moves on.
	stale atomic.Pointer[region.Region]
}

// New creates a tile of the given size owning the front and back handles.
func New(id int, size image.Point, front, back surface.Buffer) *Tile {
	return &Tile{
		id:      id,
		size:    size,
		buffers: swap.New(Buffer{Handle: front}, Buffer{Handle: back}),
	}
}

// ID returns the pool slot number of the tile.
func (t *Tile) ID() int {
	return t.id
}

// Size returns the tile size in pixels.
func (t *Tile) Size() image.Point {
	return t.size
}

// Bounds returns the tile rectangle in tile-local coordinates.
func (t *Tile) Bounds() image.Rectangle {
	return image.Rectangle{Max: t.size}
}

// IsCommitted reports whether the front buffer holds displayable content.
func (t *Tile) IsCommitted() bool {
	return t.committed.Load()
}

// SetCommitted sets the committed flag.
func (t *Tile) SetCommitted(committed bool) {
	t.committed.Store(committed)
}

// Shift returns the horizontal and vertical shift in tiles.
func (t *Tile) Shift() (dx, dy int) {
	return int(t.shiftX.Load()), int(t.shiftY.Load())
}

// HasShift reports whether the tile content belongs to a different index.
func (t *Tile) HasShift() bool {
	return t.shiftX.Load() != 0 || t.shiftY.Load() != 0
}

// SetShift records where the tile was last rendered relative to its index.
func (t *Tile) SetShift(dx, dy int) {
	t.shiftX.Store(int32(dx)) //nolint:gosec // shifts are bounded by the grid size
	t.shiftY.Store(int32(dy)) //nolint:gosec // shifts are bounded by the grid size
}

// ClearShift marks the tile content as belonging to its current index.
func (t *Tile) ClearShift() {
	t.SetShift(0, 0)
}

// IsValid reports whether consumers may show the front buffer at the
// tile's current index.
func (t *Tile) IsValid() bool {
	return t.IsCommitted() && !t.HasShift()
}

// Front pins the front buffer for reading. The caller must call release.
func (t *Tile) Front() (*Buffer, func()) {
	return t.buffers.Load()
}

// WriterFront returns the front buffer without pinning it.
// Paint goroutine only.
func (t *Tile) WriterFront() *Buffer {
	return t.buffers.Front()
}

// Back returns the back buffer. Paint goroutine only.
func (t *Tile) Back() *Buffer {
	return t.buffers.Back()
}

// Swap publishes the back buffer as the new front and waits until the
// presentation goroutine has stopped reading the old front. Stale marks are
// dropped: the back region was built from Valid and no longer holds them.
func (t *Tile) Swap() {
	t.buffers.Publish()
	t.stale.Store(nil)
}

// MarkStale withdraws r (tile-local) from the front rendered region. The
// published buffer is left untouched. Paint goroutine only.
func (t *Tile) MarkStale(r image.Rectangle) {
	var next region.Region
	if cur := t.stale.Load(); cur != nil {
		next = cur.Clone()
	}
	next.Add(r)
	t.stale.Store(&next)
}

// Valid returns the part of b holding valid pixels: its rendered region
// minus the stale marks. b must be the tile's front buffer, pinned by the
// caller or read on the paint goroutine.
func (t *Tile) Valid(b *Buffer) region.Region {
	out := b.Rendered.Clone()
	if st := t.stale.Load(); st != nil {
		out.SubtractRegion(*st)
	}
	return out
}

// Reset invalidates the tile: it becomes uncommitted and unshifted and both
// rendered regions are emptied. The pixels themselves are left alone.
func (t *Tile) Reset() {
	t.committed.Store(false)
	t.ClearShift()
	t.Back().Rendered.Clear()
	t.Swap()
	t.Back().Rendered.Clear()
}

// Handles returns both native buffers, front first. Paint goroutine only.
func (t *Tile) Handles() (front, back surface.Buffer) {
	return t.buffers.Front().Handle, t.buffers.Back().Handle
}
