// Package swap provides a single-writer, many-reader double buffer.
//
// DoubleBuffer keeps two slots of T in a fixed array and an atomic index
// naming the front slot. Readers pin the front slot with a per-slot reader
// count and never block. The writer mutates the back slot, publishes it with
// one atomic store, and then waits until nobody still reads the previous
// front before handing it out as the next back slot.
//
// The backing store uses it for two things: the tile-grid geometry snapshot
// and each tile's front/back pixel buffer pair.
package swap

import (
	"sync"
	"sync/atomic"
)

// slot is one generation of the double buffer.
type slot[T any] struct {
	val     T
	readers atomic.Int32
	_       [56]byte // pad to cache line
}

// DoubleBuffer is a tagged two-slot arena with an atomic front index.
//
// Thread safety: Load and its release function are safe for concurrent use
// by any number of goroutines. Back, Front and Publish belong to the
// single writer goroutine.
type DoubleBuffer[T any] struct {
	slots [2]slot[T]

	// front is the index (0 or 1) of the slot readers see.
	front atomic.Uint32

	// generation counts publishes.
	generation atomic.Uint64

	// mu and cond are used only when the writer has to wait for readers.
	mu      sync.Mutex
	cond    *sync.Cond
	waiting atomic.Bool
}

// New creates a double buffer whose front and back slots hold front and back.
func New[T any](front, back T) *DoubleBuffer[T] {
	d := &DoubleBuffer[T]{}
	d.cond = sync.NewCond(&d.mu)
	d.slots[0].val = front
	d.slots[1].val = back
	d.front.Store(0)
	return d
}

// Load pins the current front slot and returns it together with a release
// function. The caller must not modify the value and must call release
// exactly once when done reading. Load never blocks.
func (d *DoubleBuffer[T]) Load() (*T, func()) {
	for {
		idx := d.front.Load()
		s := &d.slots[idx]
		s.readers.Add(1)
		if d.front.Load() == idx {
			return &s.val, func() { d.unpin(s) }
		}
		// The writer published between our two loads; the slot we pinned
		// may already be under construction. Retry on the new front.
		d.unpin(s)
	}
}

// View calls fn with the pinned front value.
func (d *DoubleBuffer[T]) View(fn func(*T)) {
	v, release := d.Load()
	defer release()
	fn(v)
}

func (d *DoubleBuffer[T]) unpin(s *slot[T]) {
	if s.readers.Add(-1) == 0 && d.waiting.Load() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

// Front returns the front value without pinning it. Only the writer may call
// Front; it is safe because only the writer ever changes which slot is front.
func (d *DoubleBuffer[T]) Front() *T {
	return &d.slots[d.front.Load()].val
}

// Back returns the back value for the writer to mutate.
func (d *DoubleBuffer[T]) Back() *T {
	return &d.slots[1-d.front.Load()].val
}

// Publish makes the back slot the new front with a single atomic store and
// waits until no reader still holds the old front, which then becomes the
// back slot. It returns the new generation number.
func (d *DoubleBuffer[T]) Publish() uint64 {
	old := d.front.Load()
	d.front.Store(1 - old)
	gen := d.generation.Add(1)
	d.waitForReaders(&d.slots[old])
	return gen
}

// Generation returns the number of publishes so far.
func (d *DoubleBuffer[T]) Generation() uint64 {
	return d.generation.Load()
}

// Readers returns the number of readers currently pinning the front slot.
// Intended for tests and diagnostics.
func (d *DoubleBuffer[T]) Readers() int {
	return int(d.slots[d.front.Load()].readers.Load())
}

// waitForReaders blocks until s has no readers.
func (d *DoubleBuffer[T]) waitForReaders(s *slot[T]) {
	if s.readers.Load() == 0 {
		return
	}
	d.mu.Lock()
	d.waiting.Store(true)
	for s.readers.Load() != 0 {
		d.cond.Wait()
	}
	d.waiting.Store(false)
	d.mu.Unlock()
}
