package grid

import (
	"image"
	"math"
)

// Axis is the scroll direction the grid should favor.
type Axis int

const (
	// AxisNone expresses no preference.
	AxisNone Axis = iota

	// Horizontal favors grids wider than they are high.
	Horizontal

	// Vertical favors grids higher than they are wide.
	Vertical
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "Horizontal"
	case Vertical:
		return "Vertical"
	default:
		return "None"
	}
}

// AxisOf returns the axis with the larger absolute component of delta,
// or fallback when both are equal.
func AxisOf(delta image.Point, fallback Axis) Axis {
	ax, ay := abs(delta.X), abs(delta.Y)
	switch {
	case ax > ay:
		return Horizontal
	case ay > ax:
		return Vertical
	default:
		return fallback
	}
}

// Divisor is a factor pair of the pool size: the grid is W tiles wide and
// H tiles high.
type Divisor struct {
	W, H int
}

// Agrees reports whether d is shaped along axis.
func (d Divisor) Agrees(axis Axis) bool {
	switch axis {
	case Horizontal:
		return d.W > d.H
	case Vertical:
		return d.H > d.W
	default:
		return false
	}
}

// DivisorInput holds the parameters of BestDivisor.
type DivisorInput struct {
	// Contents is the content size in pixels.
	Contents image.Point

	// TileSize is the tile size in pixels.
	TileSize image.Point

	// MinTiles is the minimum number of tiles per axis.
	MinTiles image.Point

	// Axis is the preferred grid shape.
	Axis Axis

	// PoolSize is the number of tiles in the pool.
	PoolSize int
}

// MinimumTiles returns the minimum grid covering viewport with one tile of
// scroll headroom per axis: ceil(viewport/tile) + 1.
func MinimumTiles(viewport, tileSize image.Point) image.Point {
	return image.Pt(
		ceilDiv(viewport.X, tileSize.X)+1,
		ceilDiv(viewport.Y, tileSize.Y)+1,
	)
}

// BestDivisor chooses the grid shape for the pool.
//
// Factor pairs are enumerated in ascending W. A pair is admissible when each
// axis either reaches the minimum tile count or fits the content perfectly.
// The first admissible perfect fit wins. Otherwise pairs agreeing with the
// preferred axis are kept when any exist, and the pair whose W/H is closest
// to the content aspect ratio is chosen, earliest first on ties.
//
// ok is false when no pair is admissible. The returned divisor is then the
// closest-ratio pair of all factor pairs, so the grid stays well formed.
func BestDivisor(in DivisorInput) (d Divisor, ok bool) {
	if in.PoolSize <= 0 {
		return Divisor{}, false
	}

	pairs := factorPairs(in.PoolSize)
	admissible := make([]Divisor, 0, len(pairs))
	for _, p := range pairs {
		fitW := perfectFit(p.W, in.TileSize.X, in.Contents.X)
		fitH := perfectFit(p.H, in.TileSize.Y, in.Contents.Y)
		if (p.W >= in.MinTiles.X || fitW) && (p.H >= in.MinTiles.Y || fitH) {
			if fitW || fitH {
				return p, true
			}
			admissible = append(admissible, p)
		}
	}

	if len(admissible) == 0 {
		return closestRatio(pairs, in.Contents), false
	}

	preferred := admissible[:0:0]
	for _, p := range admissible {
		if p.Agrees(in.Axis) {
			preferred = append(preferred, p)
		}
	}
	if len(preferred) > 0 {
		admissible = preferred
	}
	return closestRatio(admissible, in.Contents), true
}

// perfectFit reports whether count tiles cover content with less than one
// tile of slack.
func perfectFit(count, tileSize, content int) bool {
	span := count * tileSize
	return span >= content && span-content < tileSize
}

func factorPairs(n int) []Divisor {
	var out []Divisor
	for w := 1; w <= n; w++ {
		if n%w == 0 {
			out = append(out, Divisor{W: w, H: n / w})
		}
	}
	return out
}

func closestRatio(pairs []Divisor, contents image.Point) Divisor {
	target := 1.0
	if contents.X > 0 && contents.Y > 0 {
		target = float64(contents.X) / float64(contents.Y)
	}
	best := pairs[0]
	bestDist := math.Inf(1)
	for _, p := range pairs {
		dist := math.Abs(float64(p.W)/float64(p.H) - target)
		if dist < bestDist {
			best, bestDist = p, dist
		}
	}
	return best
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
