package main

import (
	"fmt"
	"image"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// scenario is a scripted session: a store layout followed by steps.
type scenario struct {
	Contents [2]int `toml:"contents"`
	Viewport [2]int `toml:"viewport"`
	Tile     [2]int `toml:"tile"`
	Pool     int    `toml:"pool"`
	Steps    []step `toml:"step"`
}

// step is one user action. Zero fields are skipped; Frame names a PNG to
// write after the step settles.
type step struct {
	Scroll   [2]int  `toml:"scroll"`
	Zoom     float64 `toml:"zoom"`
	Repaint  [4]int  `toml:"repaint"`
	Viewport [2]int  `toml:"viewport"`
	Frame    string  `toml:"frame"`
}

func defaultScenario() scenario {
	return scenario{
		Contents: [2]int{4000, 8000},
		Viewport: [2]int{800, 600},
		Tile:     [2]int{256, 256},
		Pool:     24,
		Steps: []step{
			{Frame: "frame-0.png"},
			{Scroll: [2]int{0, 300}},
			{Scroll: [2]int{120, 300}, Frame: "frame-1.png"},
			{Zoom: 1.5, Frame: "frame-2.png"},
			{Repaint: [4]int{0, 0, 400, 400}, Frame: "frame-3.png"},
		},
	}
}

func loadScenario(path string) (scenario, error) {
	sc := defaultScenario()
	if path == "" {
		return sc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	sc.Steps = nil
	if err := toml.Unmarshal(data, &sc); err != nil {
		return scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Pool <= 0 {
		return scenario{}, fmt.Errorf("%s: pool must be positive", path)
	}
	return sc, nil
}

func pt(v [2]int) image.Point { return image.Pt(v[0], v[1]) }

func (s step) repaintRect() image.Rectangle {
	return image.Rect(s.Repaint[0], s.Repaint[1], s.Repaint[2], s.Repaint[3])
}
