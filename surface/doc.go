// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface defines the display surface boundary of the tile store.
//
// The backing store never interprets pixels. Everything it does to pixel
// memory goes through the small capability interface in this package:
//
//   - Acquire and Release native buffers (one per tile half, plus scratch)
//   - Blit a rectangle from one buffer to another, optionally scaled and
//     blended with a uniform alpha
//   - Fill a rectangle with a Pattern (solid or checkerboard placeholder)
//
// A Display adds the window buffer and Present. Implementations are picked
// at construction time, either directly or through the registry:
//
//	d, backend, err := surface.Open("", surface.DefaultOptions(800, 600), surface.Need{Readback: true})
//
// # Implementations
//
//   - ImageDisplay: CPU buffers backed by *image.RGBA, blits via
//     golang.org/x/image/draw. Also the display used in tests.
//   - GPU presentation lives in integration/gpuhost, which uploads an
//     ImageDisplay window to a gpucontext texture.
//
// # Registry
//
// Backends register under a name with their capabilities: the buffer
// formats they allocate, whether the window can be read back, and the
// largest buffer dimension. Open with an empty name picks the highest
// priority backend whose capabilities cover the request.
//
//	surface.Register(surface.Backend{Name: "vulkan", Priority: 100, Caps: caps, Open: openVulkan})
package surface
