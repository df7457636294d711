package main

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/gogpu/gg"

	"github.com/gogpu/tilestore"
	"github.com/gogpu/tilestore/surface"
)

// cell is the edge length of one content cell at scale 1.
const cell = 200.0

// content paints a checker of tinted cells, each with a ring in its
// centre, so scrolling and zoom are easy to follow in the output frames.
type content struct{}

func (content) Paint(target tilestore.RenderTarget, rect image.Rectangle) error {
	pb, ok := target.Buffer.(*surface.ImageBuffer)
	if !ok {
		return fmt.Errorf("tiledemo: unsupported buffer %T", target.Buffer)
	}

	dc := gg.NewContext(rect.Dx(), rect.Dy())
	defer dc.Close()
	dc.Translate(-float64(rect.Min.X), -float64(rect.Min.Y))
	dc.Scale(target.Scale, target.Scale)

	// Content space at scale 1.
	lo := image.Pt(int(math.Floor(float64(rect.Min.X)/target.Scale/cell)), int(math.Floor(float64(rect.Min.Y)/target.Scale/cell)))
	hi := image.Pt(int(math.Ceil(float64(rect.Max.X)/target.Scale/cell)), int(math.Ceil(float64(rect.Max.Y)/target.Scale/cell)))
	for cy := lo.Y; cy < hi.Y; cy++ {
		for cx := lo.X; cx < hi.X; cx++ {
			x, y := float64(cx)*cell, float64(cy)*cell
			c := gg.HSL(float64(cx*37+cy*61), 0.5, 0.55+0.1*float64((cx+cy)%2))
			dc.SetRGBA(c.R, c.G, c.B, c.A)
			dc.DrawRectangle(x, y, cell, cell)
			if err := dc.Fill(); err != nil {
				return err
			}

			dc.SetRGBA(1, 1, 1, 0.8)
			dc.SetLineWidth(6)
			dc.DrawCircle(x+cell/2, y+cell/2, cell/3)
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
	}

	dst := rect.Sub(target.Origin)
	draw.Draw(pb.Image(), dst, dc.Image(), image.Point{}, draw.Src)
	return nil
}
