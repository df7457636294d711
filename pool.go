package tilestore

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/tilestore/internal/tile"
	"github.com/gogpu/tilestore/surface"
)

// Pool owns a fixed set of tiles and lends them to one BackingStore at a
// time.
//
// A store asks for the tiles with Activate. When the pool is free the store
// is granted it at once; otherwise it waits in line until the owner yields.
// A store granted the pool after waiting resets every tile, because the
// tiles still hold the previous owner's pixels.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	display  surface.Display
	tileSize image.Point
	tiles    []*tile.Tile

	mu      sync.Mutex
	owner   *BackingStore
	waiters []*BackingStore
	closed  bool
}

// NewPool allocates size tiles of tileSize, two display buffers each.
func NewPool(display surface.Display, size int, tileSize image.Point) (*Pool, error) {
	if display == nil {
		return nil, ErrNilDisplay
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, size)
	}
	if tileSize.X <= 0 || tileSize.Y <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTileSize, tileSize)
	}

	p := &Pool{
		display:  display,
		tileSize: tileSize,
		tiles:    make([]*tile.Tile, 0, size),
	}
	for i := range size {
		front, err := display.Acquire(tileSize)
		if err != nil {
			p.release()
			return nil, fmt.Errorf("%w: tile %d: %w", ErrInvalidTileSize, i, err)
		}
		back, err := display.Acquire(tileSize)
		if err != nil {
			display.Release(front)
			p.release()
			return nil, fmt.Errorf("%w: tile %d: %w", ErrInvalidTileSize, i, err)
		}
		p.tiles = append(p.tiles, tile.New(i, tileSize, front, back))
	}

	Logger().Debug("tilestore: pool allocated", "tiles", size, "tileSize", tileSize)
	return p, nil
}

// Size returns the number of tiles.
func (p *Pool) Size() int {
	return len(p.tiles)
}

// TileSize returns the tile size in pixels.
func (p *Pool) TileSize() image.Point {
	return p.tileSize
}

// Display returns the display the tiles were acquired from.
func (p *Pool) Display() surface.Display {
	return p.display
}

// Request grants the pool to s when it is free and reports whether s owns
// it now. Otherwise s is queued and granted later, when the owner yields.
func (p *Pool) Request(s *BackingStore) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if p.owner == nil || p.owner == s {
		p.owner = s
		return true
	}
	if !slices.Contains(p.waiters, s) {
		p.waiters = append(p.waiters, s)
	}
	return false
}

// Yield releases s's claim: the pool passes to the next waiting store when
// s owns it, and s leaves the line when it is waiting.
func (p *Pool) Yield(s *BackingStore) {
	p.mu.Lock()
	if i := slices.Index(p.waiters, s); i >= 0 {
		p.waiters = slices.Delete(p.waiters, i, i+1)
	}
	if p.owner != s {
		p.mu.Unlock()
		return
	}
	p.owner = nil
	var next *BackingStore
	if len(p.waiters) > 0 && !p.closed {
		next = p.waiters[0]
		p.waiters = slices.Delete(p.waiters, 0, 1)
		p.owner = next
	}
	p.mu.Unlock()

	if next != nil {
		Logger().Info("tilestore: pool passed to waiting store")
		next.granted()
	}
}

// Owner returns the store currently holding the pool, or nil.
func (p *Pool) Owner() *BackingStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner
}

// Waiting returns the number of stores waiting for the pool.
func (p *Pool) Waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// Close releases every tile buffer back to the display. Stores using the
// pool must be closed first.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.owner = nil
	p.waiters = nil
	p.mu.Unlock()

	p.release()
	return nil
}

func (p *Pool) release() {
	for _, t := range p.tiles {
		front, back := t.Handles()
		p.display.Release(front)
		p.display.Release(back)
	}
}

// isClosed reports whether Close was called.
func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
