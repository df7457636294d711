package grid

import "image"

// maxPlaceSteps bounds the placement loop. Every step moves the rect one
// tile towards the viewport, so a well-formed input settles long before.
const maxPlaceSteps = 1 << 16

// Place moves the backing-store rect r one tile extent at a time until it
// covers as much of visible as it can without leaving the content.
//
// The rect moves left (up) when the viewport starts before it and the moved
// rect still starts inside the content and still reaches the viewport's
// trailing edge. It moves right (down) when the viewport ends past it and
// the moved rect neither starts past the viewport nor past the content.
func Place(r, visible image.Rectangle, contents, tileSize image.Point) image.Rectangle {
	for range maxPlaceSteps {
		switch {
		case shouldMoveLeft(r, visible, tileSize):
			r = r.Sub(image.Pt(tileSize.X, 0))
		case shouldMoveRight(r, visible, contents, tileSize):
			r = r.Add(image.Pt(tileSize.X, 0))
		case shouldMoveUp(r, visible, tileSize):
			r = r.Sub(image.Pt(0, tileSize.Y))
		case shouldMoveDown(r, visible, contents, tileSize):
			r = r.Add(image.Pt(0, tileSize.Y))
		default:
			return r
		}
	}
	return r
}

// InitialRect returns the backing-store rect for a fresh w×h grid covering
// visible: aligned at the tile containing visible.Min, then placed.
func InitialRect(d Divisor, visible image.Rectangle, contents, tileSize image.Point) image.Rectangle {
	origin := AlignDown(visible.Min, tileSize)
	origin.X = max(origin.X, 0)
	origin.Y = max(origin.Y, 0)
	r := image.Rectangle{
		Min: origin,
		Max: origin.Add(image.Pt(d.W*tileSize.X, d.H*tileSize.Y)),
	}
	return Place(r, visible, contents, tileSize)
}

func shouldMoveLeft(r, visible image.Rectangle, ts image.Point) bool {
	m := r.Sub(image.Pt(ts.X, 0))
	return m.Min.X >= 0 && m.Max.X >= visible.Max.X && visible.Min.X < r.Min.X
}

func shouldMoveRight(r, visible image.Rectangle, contents, ts image.Point) bool {
	m := r.Add(image.Pt(ts.X, 0))
	return m.Min.X <= visible.Min.X && m.Min.X < contents.X && visible.Max.X > r.Max.X
}

func shouldMoveUp(r, visible image.Rectangle, ts image.Point) bool {
	m := r.Sub(image.Pt(0, ts.Y))
	return m.Min.Y >= 0 && m.Max.Y >= visible.Max.Y && visible.Min.Y < r.Min.Y
}

func shouldMoveDown(r, visible image.Rectangle, contents, ts image.Point) bool {
	m := r.Add(image.Pt(0, ts.Y))
	return m.Min.Y <= visible.Min.Y && m.Min.Y < contents.Y && visible.Max.Y > r.Max.Y
}
