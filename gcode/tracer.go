package gcode

// Segment is one executed move. E is the filament fed over the move
// (negative for retracts, zero for travels); Feed is the active feedrate
// in mm/min.
type Segment struct {
	X1, Y1, Z1 float64
	X2, Y2, Z2 float64
	E          float64
	Feed       float64
}

// Extruding reports whether the move lays down filament.
func (s Segment) Extruding() bool { return s.E > 0 }

// Tracer executes move-related commands and records the resulting
// segments. Heater, fan and other machine-state commands are ignored, so a
// full command stream can be replayed as-is.
//
// Addressing follows the firmware's rules: G90/G91 switch the whole
// machine, M82/M83 switch the extruder alone, and the extruder is relative
// when either flag says so. G90 therefore does not undo an earlier M83.
type Tracer struct {
	x, y, z float64
	e       float64
	feed    float64
	rel     bool // G91
	eRel    bool // M83
	segs    []Segment
}

// NewTracer starts at the origin in absolute mode, matching power-on state.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Exec runs one command. Unknown commands are ignored without error;
// malformed words are not.
func (t *Tracer) Exec(cmd string) error {
	words, err := Fields(cmd)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	head := words[0]
	switch {
	case head.Letter == 'G' && (head.Value == 0 || head.Value == 1):
		t.move(words[1:])
	case head.Letter == 'G' && head.Value == 28:
		t.home(words[1:])
	case head.Letter == 'G' && head.Value == 90:
		t.rel = false
	case head.Letter == 'G' && head.Value == 91:
		t.rel = true
	case head.Letter == 'G' && head.Value == 92:
		t.setPosition(words[1:])
	case head.Letter == 'M' && head.Value == 82:
		t.eRel = false
	case head.Letter == 'M' && head.Value == 83:
		t.eRel = true
	}
	return nil
}

// ExecAll replays a whole command sequence.
func (t *Tracer) ExecAll(cmds []string) error {
	for _, c := range cmds {
		if err := t.Exec(c); err != nil {
			return err
		}
	}
	return nil
}

// Segments returns the recorded moves.
func (t *Tracer) Segments() []Segment { return t.segs }

// Position returns the current XYZ position.
func (t *Tracer) Position() (x, y, z float64) { return t.x, t.y, t.z }

// Feed returns the active feedrate in mm/min.
func (t *Tracer) Feed() float64 { return t.feed }

func (t *Tracer) move(words []Word) {
	nx, ny, nz := t.x, t.y, t.z
	var de float64

	for _, w := range words {
		switch w.Letter {
		case 'X':
			nx = t.target(t.x, w.Value)
		case 'Y':
			ny = t.target(t.y, w.Value)
		case 'Z':
			nz = t.target(t.z, w.Value)
		case 'E':
			if t.rel || t.eRel {
				de = w.Value
				t.e += w.Value
			} else {
				de = w.Value - t.e
				t.e = w.Value
			}
		case 'F':
			t.feed = w.Value
		}
	}

	moved := nx != t.x || ny != t.y || nz != t.z
	if moved || de != 0 {
		t.segs = append(t.segs, Segment{
			X1: t.x, Y1: t.y, Z1: t.z,
			X2: nx, Y2: ny, Z2: nz,
			E: de, Feed: t.feed,
		})
	}
	t.x, t.y, t.z = nx, ny, nz
}

func (t *Tracer) target(cur, v float64) float64 {
	if t.rel {
		return cur + v
	}
	return v
}

// home moves the named axes (or all of them) to the origin. No segment is
// recorded: homing is a physical seek, not a print move.
func (t *Tracer) home(words []Word) {
	if len(words) == 0 {
		t.x, t.y, t.z = 0, 0, 0
		return
	}
	for _, w := range words {
		switch w.Letter {
		case 'X':
			t.x = 0
		case 'Y':
			t.y = 0
		case 'Z':
			t.z = 0
		}
	}
}

// setPosition redefines the logical position without motion (G92).
func (t *Tracer) setPosition(words []Word) {
	for _, w := range words {
		switch w.Letter {
		case 'X':
			t.x = w.Value
		case 'Y':
			t.y = w.Value
		case 'Z':
			t.z = w.Value
		case 'E':
			t.e = w.Value
		}
	}
}
