// Command tiledemo drives a tile store through a scripted scroll and zoom
// session and writes the window as PNG frames.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/tilestore"
	"github.com/gogpu/tilestore/surface"
)

func main() {
	var (
		script  = flag.String("scenario", "", "TOML scenario file (built-in demo if empty)")
		outDir  = flag.String("out", ".", "directory for PNG frames")
		backend = flag.String("display", "", "display backend (best available if empty)")
		verbose = flag.Bool("v", false, "log tile store activity")
	)
	flag.Parse()

	if *verbose {
		tilestore.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	sc, err := loadScenario(*script)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}
	if err := run(sc, *backend, *outDir); err != nil {
		log.Fatal(err)
	}
}

func run(sc scenario, backend, outDir string) error {
	vp := pt(sc.Viewport)
	display, err := openDisplay(backend, vp, pt(sc.Tile))
	if err != nil {
		return err
	}
	pool, err := tilestore.NewPool(display, sc.Pool, pt(sc.Tile))
	if err != nil {
		return err
	}
	defer pool.Close()

	bs, err := tilestore.NewBackingStore(pool, content{},
		tilestore.WithContentsSize(pt(sc.Contents)),
		tilestore.WithViewportSize(vp),
	)
	if err != nil {
		return err
	}
	defer bs.Close()

	if !bs.Activate() {
		log.Printf("Tile pool busy, waiting")
	}

	scale := 1.0
	for _, st := range sc.Steps {
		if st.Viewport != [2]int{} {
			bs.SetViewportSize(pt(st.Viewport))
		}
		if st.Scroll != [2]int{} {
			bs.Scroll(pt(st.Scroll), false)
		}
		if st.Zoom > 0 && st.Zoom != scale {
			scale = st.Zoom
			bs.TransformChanged(scale)
		}
		if r := st.repaintRect(); !r.Empty() {
			bs.Repaint(r, true, false)
		}
		if err := bs.Flush(); err != nil {
			return err
		}
		if st.Frame != "" {
			if err := writeFrame(display, filepath.Join(outDir, st.Frame)); err != nil {
				return err
			}
		}
	}

	report(bs.Stats())
	return nil
}

// openDisplay opens the named display backend, or the best one that can
// hold tiles of tileSize and be read back when name is empty. Frames are
// encoded from the window, so only CPU image displays are accepted.
func openDisplay(name string, size, tileSize image.Point) (*surface.ImageDisplay, error) {
	opts := surface.DefaultOptions(size.X, size.Y)
	d, backend, err := surface.Open(name, opts, surface.Need{Readback: true, Tile: tileSize})
	if err != nil {
		return nil, err
	}
	img, ok := d.(*surface.ImageDisplay)
	if !ok {
		return nil, fmt.Errorf("tiledemo: display %s (%T) cannot be read back", backend.Name, d)
	}
	tilestore.Logger().Debug("display opened", "backend", backend.Name, "format", backend.Caps.Preferred())
	return img, nil
}

func writeFrame(display *surface.ImageDisplay, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, display.Snapshot()); err != nil {
		f.Close()
		return err
	}
	log.Printf("Frame saved to %s", path)
	return f.Close()
}

func report(st tilestore.Stats) {
	p := message.NewPrinter(language.English)
	p.Printf("grid %dx%d at %v, visible %v, scale %.2f\n",
		st.Divisor.X, st.Divisor.Y, st.Offset, st.Visible, st.Scale)
	p.Printf("tiles painted:  %d\n", st.TilesPainted)
	p.Printf("blits:          %d\n", st.Blits)
	p.Printf("placeholders:   %d\n", st.Placeholders)
	p.Printf("direct renders: %d\n", st.DirectRenders)
}
