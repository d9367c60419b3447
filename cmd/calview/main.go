//go:build !tinygo

// cmd/calview renders the first-layer calibration toolpath in a desktop
// window: the g-code sequence is generated, traced into motion segments and
// drawn top-down onto the bed. Extrusion strokes are bright, travel moves
// dim. The path is revealed over time in print order.
package main

import (
	"flag"
	"image/color"
	"log"

	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"printcore-go/cmdq"
	"printcore-go/gcode"
	"printcore-go/lay1cal"
)

var (
	layerHeight    = flag.Float64("layer-height", 0.2, "first layer height, mm")
	extrusionWidth = flag.Float64("extrusion-width", 0.45, "extrusion width, mm")
	mmu            = flag.Bool("mmu", false, "render the multi-material variant")
	speed          = flag.Int("speed", 4, "segments revealed per frame; 0 shows all")
)

// MK3-class bed, millimetres.
const (
	bedW  = 250.0
	bedH  = 210.0
	scale = 2.5
)

var (
	bedColor     = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	extrudeColor = color.RGBA{R: 255, G: 120, B: 40, A: 255}
	travelColor  = color.RGBA{R: 90, G: 90, B: 100, A: 255}
)

type game struct {
	segs  []gcode.Segment
	shown int
}

func (g *game) Update() error {
	if *speed <= 0 || g.shown >= len(g.segs) {
		g.shown = len(g.segs)
		return nil
	}
	g.shown += *speed
	if g.shown > len(g.segs) {
		g.shown = len(g.segs)
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bedColor)

	width := float32(*extrusionWidth * scale)
	if width < 2 {
		width = 2
	}
	for _, s := range g.segs[:g.shown] {
		if s.X1 == s.X2 && s.Y1 == s.Y2 {
			continue // pure Z move
		}
		x0, y0 := toScreen(s.X1, s.Y1)
		x1, y1 := toScreen(s.X2, s.Y2)
		if s.Extruding() {
			vector.StrokeLine(screen, x0, y0, x1, y1, width, extrudeColor, true)
		} else {
			vector.StrokeLine(screen, x0, y0, x1, y1, 1, travelColor, true)
		}
	}
}

func (g *game) Layout(int, int) (int, int) {
	return int(bedW * scale), int(bedH * scale)
}

// toScreen maps bed millimetres to pixels. Printer Y grows away from the
// viewer, screen Y grows downward.
func toScreen(x, y float64) (float32, float32) {
	return float32(x * scale), float32((bedH - y) * scale)
}

func buildToolpath() ([]gcode.Segment, error) {
	rec := &cmdq.Recorder{}
	seq := lay1cal.NewSequence(rec, lay1cal.Params{
		LayerHeight:    *layerHeight,
		ExtrusionWidth: *extrusionWidth,
	}, *mmu)

	filament := lay1cal.FilamentNone
	if *mmu {
		filament = 0
	}
	if err := seq.Run(filament, lay1cal.FilamentNone); err != nil {
		return nil, err
	}

	tr := gcode.NewTracer()
	if err := tr.ExecAll(rec.Cmds); err != nil {
		return nil, err
	}
	return tr.Segments(), nil
}

func main() {
	flag.Parse()

	segs, err := buildToolpath()
	if err != nil {
		log.Fatalln(err)
	}
	glog.Infof("calview: %d segments traced", len(segs))

	ebiten.SetWindowTitle("first-layer calibration")
	ebiten.SetWindowSize(int(bedW*scale), int(bedH*scale))
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(&game{segs: segs}); err != nil {
		log.Fatalln(err)
	}
}
