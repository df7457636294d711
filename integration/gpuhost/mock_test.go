package gpuhost

import (
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// mockTexture implements the texture interfaces for testing.
type mockTexture struct {
	width, height int
	data          []byte
	regions       []image.Rectangle
	updates       int
	premultiplied bool
	destroyed     bool
}

func (m *mockTexture) Width() int  { return m.width }
func (m *mockTexture) Height() int { return m.height }

func (m *mockTexture) UpdateData(data []byte) error {
	m.data = append(m.data[:0], data...)
	m.updates++
	return nil
}

func (m *mockTexture) UpdateRegion(x, y, w, h int, data []byte) error {
	m.regions = append(m.regions, image.Rect(x, y, x+w, y+h))
	for row := 0; row < h; row++ {
		o := ((y+row)*m.width + x) * 4
		copy(m.data[o:o+w*4], data[row*w*4:(row+1)*w*4])
	}
	m.updates++
	return nil
}

func (m *mockTexture) SetPremultiplied(v bool) { m.premultiplied = v }
func (m *mockTexture) Destroy()                { m.destroyed = true }

// mockCreator implements gpucontext.TextureCreator for testing.
type mockCreator struct {
	textures []*mockTexture
	fail     error
}

func (m *mockCreator) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	tex := &mockTexture{width: width, height: height, data: append([]byte(nil), data...)}
	m.textures = append(m.textures, tex)
	return tex, nil
}

type drawCall struct {
	tex  gpucontext.Texture
	x, y float32
}

// mockDrawer implements gpucontext.TextureDrawer for testing.
type mockDrawer struct {
	creator *mockCreator
	draws   []drawCall
}

func newMockDrawer() *mockDrawer {
	return &mockDrawer{creator: &mockCreator{}}
}

func (m *mockDrawer) DrawTexture(tex gpucontext.Texture, x, y float32) error {
	m.draws = append(m.draws, drawCall{tex: tex, x: x, y: y})
	return nil
}

func (m *mockDrawer) TextureCreator() gpucontext.TextureCreator {
	if m.creator == nil {
		return nil
	}
	return m.creator
}

// opaqueBuffer is a surface.Buffer without pixel access.
type opaqueBuffer struct{ size image.Point }

func (b opaqueBuffer) Size() image.Point              { return b.size }
func (b opaqueBuffer) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }
