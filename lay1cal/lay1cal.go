// Package lay1cal generates the first-layer (Z offset) calibration print:
// an intro purge line, a meander, and a filled square, emitted as formatted
// g-code commands into a cmdq.Enqueuer. The geometry derives every extrusion
// feed from the layer height and extrusion width, so adjusting Z live during
// the print shows immediately as over- or under-extrusion.
package lay1cal

import (
	"math"

	"printcore-go/cmdq"
	"printcore-go/x/fmtx"
)

// Params carries the geometry of the calibration print. Zero fields take
// the stock 0.2/0.45/1.75 mm profile.
type Params struct {
	LayerHeight    float64 // mm
	ExtrusionWidth float64 // mm
	FilamentDiam   float64 // mm
}

func (p Params) withDefaults() Params {
	if p.LayerHeight == 0 {
		p.LayerHeight = 0.2
	}
	if p.ExtrusionWidth == 0 {
		p.ExtrusionWidth = 0.45
	}
	if p.FilamentDiam == 0 {
		p.FilamentDiam = 1.75
	}
	return p
}

// CountE returns the filament length to extrude for one trace. The trace
// cross-section is a rectangle with semicircular caps:
//
//	area = pi*h^2/4 + h*(w-h)
//
// and the feed is that volume over the filament cross-section.
func (p Params) CountE(extrusionWidth, length float64) float64 {
	h := p.LayerHeight
	area := math.Pi*h*h/4 + h*(extrusionWidth-h)
	filament := math.Pi * p.FilamentDiam * p.FilamentDiam / 4
	return length * area / filament
}

// Spacing returns the centre-to-centre distance between adjacent traces so
// their flattened edges just touch.
func (p Params) Spacing() float64 {
	return p.ExtrusionWidth - p.LayerHeight*(1-math.Pi/4)
}

// Geometry of the print. The meander runs the long way across the bed; the
// square is drawn in 20 mm lanes.
const (
	shortLength = 20.0
	squareWidth = shortLength
	longLength  = 150.0
)

const (
	fmtExtrudeX = "G1X%.4fE%.4f"
	fmtExtrudeY = "G1Y%.4fE%.4f"
	fmtZMove    = "G1Z%.2f"

	cmdZeroExtrusion = "G92E0"
	cmdFeedrate1080  = "G1F1080"
)

// FilamentNone selects the single-material path in Run.
const FilamentNone = -1

// Sequence emits the calibration print into an Enqueuer, step by step.
// The first enqueue failure sticks; later steps become no-ops and every
// step returns the sticky error.
type Sequence struct {
	p   Params
	q   cmdq.Enqueuer
	mmu bool
	err error
}

// NewSequence prepares a calibration sequence. mmu selects the
// multi-material variants of the load and intro steps.
func NewSequence(q cmdq.Enqueuer, p Params, mmu bool) *Sequence {
	return &Sequence{p: p.withDefaults(), q: q, mmu: mmu}
}

// Err returns the first enqueue failure, if any.
func (s *Sequence) Err() error { return s.err }

func (s *Sequence) emit(cmd string) {
	if s.err != nil {
		return
	}
	s.err = s.q.Enqueue(cmd)
}

func (s *Sequence) emitf(format string, args ...any) {
	if s.err != nil {
		return
	}
	s.err = s.q.Enqueue(fmtx.Sprintf(format, args...))
}

// WaitPreheat parks the fan, waits out both heaters, homes, and zeroes the
// extruder. M190/M109 carry no S word: they wait for whatever targets the
// preheat menu already set.
func (s *Sequence) WaitPreheat() error {
	s.emit("M107")
	s.emit("M190")
	s.emit("M109")
	s.emit("G28")
	s.emit(cmdZeroExtrusion)
	return s.err
}

// LoadFilament performs the multi-material toolchange for the requested
// slot. It reports whether the intro line must start with the extra purge
// moves (a fresh load leaves the nozzle empty). Single-material setups do
// nothing and never need the purge.
//
// current is the currently loaded slot, FilamentNone when unknown.
func (s *Sequence) LoadFilament(filament, current int) bool {
	if !s.mmu {
		return false
	}
	s.emit("M83")
	s.emit("G1Y-3F1000")
	s.emit("G1Z0.4")

	if current == filament {
		return false
	}
	if current != FilamentNone {
		s.emit("M702")
	}
	s.emitf("T%d", filament)
	return true
}

// IntroLine purges the nozzle along the front edge of the bed.
func (s *Sequence) IntroLine(extraPurge bool) error {
	if s.mmu {
		intro := []string{
			// First two moves only apply when a toolchange purge is needed.
			"G1X55E29F1073",
			"G1X5E29F1800",
			"G1X55E8F2000",
			"G1Z0.3F1000",
			cmdZeroExtrusion,
			"G1X240E25F2200",
			"G1Y-2F1000",
			"G1X202.5E8F1400",
			"G1Z0.2",
		}
		start := 2
		if extraPurge {
			start = 0
		}
		for _, cmd := range intro[start:] {
			s.emit(cmd)
		}
		return s.err
	}

	s.emit(cmdFeedrate1080)
	s.emitf(fmtExtrudeX, 60.0, s.p.CountE(s.p.ExtrusionWidth*4, 60))
	s.emitf(fmtExtrudeX, 202.5, s.p.CountE(s.p.ExtrusionWidth*8, 142.5))
	return s.err
}

// BeforeMeander switches to absolute XYZ with relative E, retracts, lifts,
// and caps acceleration for the slow calibration moves.
func (s *Sequence) BeforeMeander() error {
	s.emit(cmdZeroExtrusion)
	s.emit("G90")
	s.emit("M83")
	s.emit("G1E-1.5F2100")
	s.emit("G1Z5F7200")
	s.emit("M204S1000")
	return s.err
}

// MeanderStart travels to the meander origin, drops to layer height, and
// draws the lead-in: two fat priming segments, then the first full lane.
func (s *Sequence) MeanderStart() error {
	s.emit("G1X50Y155")
	s.emitf(fmtZMove, s.p.LayerHeight)
	s.emit(cmdFeedrate1080)
	s.emit("G91")
	s.emitf(fmtExtrudeX, 25.0, s.p.CountE(s.p.ExtrusionWidth*4, 25))
	s.emitf(fmtExtrudeX, 25.0, s.p.CountE(s.p.ExtrusionWidth*2, 25))
	s.emitf(fmtExtrudeX, 100.0, s.p.CountE(s.p.ExtrusionWidth, 100))
	s.emitf(fmtExtrudeY, -shortLength, s.p.CountE(s.p.ExtrusionWidth, shortLength))
	return s.err
}

// Meander sweeps five full-width lanes, alternating direction, stepping
// toward the front between lanes.
func (s *Sequence) Meander() error {
	longE := s.p.CountE(s.p.ExtrusionWidth, longLength)
	shortE := s.p.CountE(s.p.ExtrusionWidth, shortLength)

	for i, xdir := 0, -1.0; i <= 4; i, xdir = i+1, -xdir {
		s.emitf(fmtExtrudeX, xdir*longLength, longE)
		s.emitf(fmtExtrudeY, -shortLength, shortE)
	}
	return s.err
}

// Square fills one quarter of the 20 mm square: four pairs of lanes at
// extrusion spacing. The full print calls it four times.
func (s *Sequence) Square() error {
	ySpacing := s.p.Spacing()
	longE := s.p.CountE(s.p.ExtrusionWidth, squareWidth)
	shortE := s.p.CountE(s.p.ExtrusionWidth, ySpacing)

	for i := 0; i < 4; i++ {
		s.emitf(fmtExtrudeX, squareWidth, longE)
		s.emitf(fmtExtrudeY, -ySpacing, shortE)
		s.emitf(fmtExtrudeX, -squareWidth, longE)
		s.emitf(fmtExtrudeY, -ySpacing, shortE)
	}
	return s.err
}

// Finish retracts, parks, and shuts everything down. The filament unload
// only applies to multi-material setups.
func (s *Sequence) Finish() error {
	s.emit("G90")
	s.emit("M107")
	s.emit("G1E-0.075F2100")
	s.emit("M140S0")
	s.emit("G1Z10F1300")
	s.emit("G1X10Y180F4000")
	if s.mmu {
		s.emit("M702")
	}
	s.emit("M104S0")
	s.emit("M84")
	return s.err
}

// Run emits the whole calibration print in order. filament selects the
// multi-material slot (FilamentNone on single-material machines); current
// is the slot already loaded, FilamentNone when unknown.
func (s *Sequence) Run(filament, current int) error {
	s.WaitPreheat()
	extraPurge := s.LoadFilament(filament, current)
	s.IntroLine(extraPurge)
	s.BeforeMeander()
	s.MeanderStart()
	s.Meander()
	for i := 0; i < 4; i++ {
		s.Square()
	}
	s.Finish()
	return s.err
}
