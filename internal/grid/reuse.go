package grid

import (
	"image"

	"github.com/gogpu/tilestore/internal/tile"
)

// Retained is a tile kept in place by a reuse pass: its last-render origin
// lies on a slot of the new grid.
type Retained struct {
	Tile *tile.Tile

	// From is the tile's index in the old grid, To its index in the new one.
	From, To tile.Index

	// Rect is the tile's content rect in the new grid.
	Rect image.Rectangle
}

// Reassigned is a tile moved to a slot whose content it does not hold.
type Reassigned struct {
	Tile *tile.Tile

	// To is the tile's index in the new grid.
	To tile.Index

	// Rect is the content rect the tile must be repainted for.
	Rect image.Rectangle

	// Shift locates the tile's last-render origin relative to To, in tiles.
	Shift image.Point
}

// Plan is the outcome of Reuse. It is applied in two phases so that a reader
// of the old geometry never sees a tile validated for the wrong origin and a
// reader of the new geometry never sees a moved tile still marked valid:
// Invalidate before the new geometry is published, Validate after.
type Plan struct {
	Retained   []Retained
	Reassigned []Reassigned
}

// Reuse maps the tiles of old onto next, which must already be sized with
// Resize and have the same tile count.
//
// A tile is retained when its last-render origin, originOf(idx+shift) in
// old, is a lattice point inside next. Retained tiles are visited in
// ascending old index; when two tiles claim the same slot the first wins.
// The remaining tiles fill the empty slots of next in ascending index order.
//
// Reuse only fills next.Tiles; tile state is changed by the plan's
// Invalidate and Validate.
func Reuse(old, next *Geometry) Plan {
	plan := Plan{
		Retained: make([]Retained, 0, len(old.Tiles)),
	}
	var leftover []*tile.Tile
	var origins []image.Point

	nextRect := next.Rect()
	for i, t := range old.Tiles {
		idx := old.IndexAt(i)
		dx, dy := t.Shift()
		origin := old.OriginOf(idx.Add(dx, dy))

		if origin.In(nextRect) {
			to, aligned := next.IndexOf(origin)
			if aligned && next.At(to) == nil {
				next.Set(to, t)
				plan.Retained = append(plan.Retained, Retained{
					Tile: t,
					From: idx,
					To:   to,
					Rect: next.TileRect(to),
				})
				continue
			}
		}
		leftover = append(leftover, t)
		origins = append(origins, origin)
	}

	plan.Reassigned = make([]Reassigned, 0, len(leftover))
	k := 0
	for i, t := range next.Tiles {
		if t != nil {
			continue
		}
		if k == len(leftover) {
			break
		}
		to := next.IndexAt(i)
		newOrigin := next.OriginOf(to)
		d := origins[k].Sub(newOrigin)
		next.Tiles[i] = leftover[k]
		plan.Reassigned = append(plan.Reassigned, Reassigned{
			Tile:  leftover[k],
			To:    to,
			Rect:  next.TileRect(to),
			Shift: image.Pt(floorDiv(d.X, next.TileSize.X), floorDiv(d.Y, next.TileSize.Y)),
		})
		k++
	}
	return plan
}

// Invalidate marks every reassigned tile uncommitted and records its shift.
// Call before publishing the new geometry.
func (p *Plan) Invalidate() {
	for _, r := range p.Reassigned {
		r.Tile.SetCommitted(false)
		r.Tile.SetShift(r.Shift.X, r.Shift.Y)
	}
}

// Validate clears the shift of every retained tile and restores its
// committed flag when its front buffer still holds rendered pixels.
// Call after publishing the new geometry.
func (p *Plan) Validate() {
	for _, r := range p.Retained {
		r.Tile.ClearShift()
		r.Tile.SetCommitted(!r.Tile.Valid(r.Tile.WriterFront()).IsEmpty())
	}
}

// Moved reports whether any tile changed slot.
func (p *Plan) Moved() bool {
	if len(p.Reassigned) > 0 {
		return true
	}
	for _, r := range p.Retained {
		if r.From != r.To {
			return true
		}
	}
	return false
}
