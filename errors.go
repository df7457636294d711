package tilestore

import "errors"

// Construction errors.
var (
	// ErrNilDisplay is returned when a pool is created without a display.
	ErrNilDisplay = errors.New("tilestore: nil display")

	// ErrNilPool is returned when a backing store is created without a pool.
	ErrNilPool = errors.New("tilestore: nil pool")

	// ErrNilRenderer is returned when a backing store is created without a
	// content renderer.
	ErrNilRenderer = errors.New("tilestore: nil renderer")

	// ErrInvalidTileSize is returned for a non-positive tile size or one the
	// display cannot allocate.
	ErrInvalidTileSize = errors.New("tilestore: invalid tile size")

	// ErrInvalidPoolSize is returned for a pool of fewer than one tile.
	ErrInvalidPoolSize = errors.New("tilestore: invalid pool size")

	// ErrClosed is returned by operations on a closed store or pool.
	ErrClosed = errors.New("tilestore: closed")
)
