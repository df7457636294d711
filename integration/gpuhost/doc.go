// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpuhost connects a tilestore.BackingStore to a gogpu window.
//
// The backing store draws through the CPU surface.Display interface. This
// package moves the result onto the GPU and feeds window input back into
// the store. The data flow is:
//
//	BackingStore -> surface.Display (CPU) -> GPU texture -> Window
//
// # Architecture
//
//   - Presenter wraps a CPU display. Every Present stages the dirty part of
//     the window; RenderTo uploads it with gpucontext.TextureRegionUpdater
//     and draws the window texture.
//   - Compositor skips the window and uploads each committed tile as its
//     own texture, for hosts that composite layers themselves.
//   - BindInput subscribes to scroll and gesture events and turns them into
//     Scroll, SetInteracting and TransformChanged calls.
//
// # Usage
//
//	cpu := surface.NewImageDisplay(800, 600)
//	presenter, err := gpuhost.NewPresenter(cpu)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer presenter.Close()
//
//	pool, _ := tilestore.NewPool(presenter, 24, image.Pt(256, 256))
//	store, _ := tilestore.NewBackingStore(pool, renderer)
//	store.Activate()
//	gpuhost.BindInput(store, app.EventSource(), gpuhost.DefaultInputOptions())
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    presenter.RenderTo(dc.AsTextureDrawer())
//	})
//
// # Thread Safety
//
// Presenter.Present runs on the store's presentation goroutine and RenderTo
// on the UI thread; they share only the staging image, under a mutex.
// Compositor is NOT safe for concurrent use.
//
// # Integration Without Circular Imports
//
// Only gpucontext interfaces are used, so the package does not import
// gogpu itself.
package gpuhost
