package gpuhost

import (
	"image"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tilestore"
	"github.com/gogpu/tilestore/internal/region"
	"github.com/gogpu/tilestore/surface"
)

// TileSource is the part of a BackingStore the Compositor reads.
type TileSource interface {
	ViewTiles(fn func(tiles []tilestore.TileInfo, visible image.Rectangle)) bool
}

// Compositor draws a backing store as one texture per tile.
//
// Each Compose uploads every committed tile that is fully rendered where it
// is visible and draws it at its window position. Tiles are never drawn
// partially; a host compositing layers keeps whatever it showed before for
// the rest.
type Compositor struct {
	source   TileSource
	textures map[int]gpucontext.Texture
	staging  map[int][]byte
	closed   bool
}

// placement is a tile ready to be uploaded and drawn.
type placement struct {
	id   int
	size image.Point
	at   image.Point
}

// NewCompositor creates a compositor reading tiles from source.
func NewCompositor(source TileSource) (*Compositor, error) {
	if source == nil {
		return nil, ErrNilStore
	}
	return &Compositor{
		source:   source,
		textures: make(map[int]gpucontext.Texture),
		staging:  make(map[int][]byte),
	}, nil
}

// Compose uploads the visible committed tiles and draws them. It returns
// the number of tiles drawn. Nothing is drawn when the store has no tiles to
// show.
func (c *Compositor) Compose(dc gpucontext.TextureDrawer) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}

	var ready []placement
	c.source.ViewTiles(func(tiles []tilestore.TileInfo, visible image.Rectangle) {
		for _, ti := range tiles {
			shown := ti.Rect.Intersect(visible)
			if !ti.Committed || shown.Empty() || !covers(ti.Rendered, shown.Sub(ti.Rect.Min)) {
				continue
			}
			pb, ok := ti.Buffer.(surface.PixelBuffer)
			if !ok {
				continue
			}
			size := pb.Size()
			c.staging[ti.ID] = pack(c.staging[ti.ID], pb, size)
			ready = append(ready, placement{id: ti.ID, size: size, at: ti.Rect.Min.Sub(visible.Min)})
		}
	})

	for _, p := range ready {
		tex, err := c.texture(dc, p)
		if err != nil {
			return 0, err
		}
		if err := dc.DrawTexture(tex, float32(p.at.X), float32(p.at.Y)); err != nil {
			return 0, err
		}
	}
	return len(ready), nil
}

// texture returns the tile's texture holding the staged pixels.
func (c *Compositor) texture(dc gpucontext.TextureDrawer, p placement) (gpucontext.Texture, error) {
	data := c.staging[p.id]
	if tex, ok := c.textures[p.id]; ok {
		if u, ok := tex.(gpucontext.TextureUpdater); ok {
			if err := u.UpdateData(data); err != nil {
				return nil, err
			}
			return tex, nil
		}
		destroyTexture(tex)
		delete(c.textures, p.id)
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return nil, ErrInvalidRenderer
	}
	tex, err := creator.NewTextureFromRGBA(p.size.X, p.size.Y, data)
	if err != nil {
		return nil, err
	}
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(true)
	}
	c.textures[p.id] = tex
	return tex, nil
}

// Textures returns the number of live tile textures.
func (c *Compositor) Textures() int {
	return len(c.textures)
}

// Close destroys every tile texture. Close is idempotent.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for id, tex := range c.textures {
		destroyTexture(tex)
		delete(c.textures, id)
	}
	c.staging = nil
	return nil
}

// covers reports whether the rendered rects cover r.
func covers(rendered []image.Rectangle, r image.Rectangle) bool {
	var g region.Region
	for _, x := range rendered {
		g.Add(x)
	}
	return g.Contains(r)
}

// pack copies the buffer into buf as tightly packed rows, reusing buf when
// it is large enough.
func pack(buf []byte, pb surface.PixelBuffer, size image.Point) []byte {
	n := size.X * size.Y * 4
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	copyRows(buf, size.X*4, pb.Pixels(), pb.Stride(), image.Rectangle{Max: size})
	return buf
}
