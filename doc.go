// Package tilestore provides a tiled backing store for large scrollable and
// zoomable content.
//
// # Overview
//
// A BackingStore shows a viewport of a content plane that is much larger
// than the window. Instead of repainting the whole view on every frame it
// caches rendered content in a small, fixed pool of off-screen tiles and
// repaints only tiles whose content is missing or changed.
//
// # Quick Start
//
//	display := surface.NewImageDisplay(800, 600)
//	pool, err := tilestore.NewPool(display, 24, image.Pt(256, 256))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	bs, err := tilestore.NewBackingStore(pool, renderer,
//	    tilestore.WithContentsSize(image.Pt(4000, 12000)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bs.Close()
//
//	bs.Activate()
//	bs.Scroll(image.Pt(0, 120), false)
//	bs.Repaint(image.Rect(0, 0, 400, 300), true, false)
//
// # Layout
//
// The pool is arranged as a W×H grid. W and H are the factor pair of the
// pool size that covers the viewport with one tile of scroll headroom per
// axis and best matches the content aspect ratio, preferring the axis the
// user last scrolled along. Grid offsets are multiples of the tile size, so
// on a scroll every tile whose content still lies inside the grid keeps it;
// only tiles that fell off are moved to the new edge and repainted.
//
// When the pool cannot cover the viewport the store degrades to painting
// the requested rect straight into the window.
//
// # Threading
//
// Each store runs a paint goroutine and a presentation goroutine. The paint
// goroutine drains the render queue and builds grid geometries; the
// presentation goroutine blits committed tiles to the window. Geometries
// and tile buffers are double buffered, so the presentation goroutine never
// waits for painting and never sees a half-built grid or a half-painted
// tile. Content that is not ready is covered with a checkerboard.
//
// # Pool Arbitration
//
// Several stores may share one Pool. Only the owner paints; Activate asks
// for the pool and Deactivate passes it to the next store in line, which
// resets the tiles and repaints.
//
// # Logging
//
// The package is silent by default. Use SetLogger to route log records to
// an slog.Logger.
package tilestore
