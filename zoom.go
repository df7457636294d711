package tilestore

import (
	"image"
	"math"

	"github.com/gogpu/tilestore/surface"
)

// zoomSnapshot is a copy of the window taken when the scale changed while
// the client was loading. Until the tiles at the new scale are ready the
// blit scales it into the placeholder rects.
type zoomSnapshot struct {
	buf surface.Buffer

	// visible and scale describe the view the snapshot was taken of.
	visible image.Rectangle
	scale   float64
}

// source maps want, a content rect at scale, into the snapshot. It returns
// the snapshot rect holding pixels for want and the part of want they
// cover. Both are empty when the snapshot has nothing for want.
func (z *zoomSnapshot) source(want image.Rectangle, scale float64) (src, part image.Rectangle) {
	f := z.scale / scale
	src = scaleRect(want, f).Sub(z.visible.Min).Intersect(image.Rectangle{Max: z.buf.Size()})
	if src.Empty() {
		return image.Rectangle{}, image.Rectangle{}
	}
	part = scaleRect(src.Add(z.visible.Min), 1/f).Intersect(want)
	if part.Empty() {
		return image.Rectangle{}, image.Rectangle{}
	}
	return src, part
}

// scaleRect scales r by f and rounds outwards.
func scaleRect(r image.Rectangle, f float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(float64(r.Min.X)*f)),
		int(math.Floor(float64(r.Min.Y)*f)),
		int(math.Ceil(float64(r.Max.X)*f)),
		int(math.Ceil(float64(r.Max.Y)*f)),
	)
}

// transform switches to scale. Paint goroutine only.
func (s *BackingStore) transform(scale float64) {
	if scale == s.scale {
		return
	}
	if s.active.Load() && s.loading.Load() {
		s.snapshotVisible()
	}

	f := scale / s.scale
	s.queue.Reset()
	s.scale = scale
	s.contents = scaleSize(s.base, scale)
	origin := image.Pt(
		int(math.Round(float64(s.visible.Min.X)*f)),
		int(math.Round(float64(s.visible.Min.Y)*f)),
	)
	s.visible = s.clampVisible(image.Rectangle{Min: origin, Max: origin.Add(s.viewport)})

	Logger().Debug("tilestore: scale changed", "scale", scale, "contents", s.contents)
	if s.active.Load() {
		s.rebuild(true)
	}
	s.afterMove(false)
}

// snapshotVisible copies the window into a fresh zoom snapshot, replacing
// the previous one.
func (s *BackingStore) snapshotVisible() {
	buf, err := s.display.Acquire(s.viewport)
	if err != nil {
		Logger().Warn("tilestore: zoom snapshot buffer", "err", err)
		return
	}
	snap := &zoomSnapshot{buf: buf, visible: s.visible, scale: s.scale}

	var blitErr error
	err = s.present.Call(func() {
		win := s.display.Window()
		r := image.Rectangle{Max: s.viewport}.Intersect(image.Rectangle{Max: win.Size()})
		if blitErr = s.display.Blit(buf, r, win, r, surface.BlendCopy, 1); blitErr != nil {
			return
		}
		if old := s.zoom.Swap(snap); old != nil {
			s.display.Release(old.buf)
		}
	})
	if err != nil || blitErr != nil {
		s.display.Release(buf)
		if blitErr != nil {
			Logger().Warn("tilestore: zoom snapshot failed", "err", blitErr)
		}
	}
}
