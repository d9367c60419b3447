// Package gcode parses the compact g-code this firmware emits and traces
// the motion it describes. Host tools use the tracer to preview calibration
// prints without a printer on the desk.
package gcode

import (
	"printcore-go/x/fmtx"
	"printcore-go/x/strconvx"
)

// Word is one letter-value pair, e.g. X25.0 or G1. Axis words may appear
// without a value ("G28 X"); HasValue distinguishes those from X0.
type Word struct {
	Letter   byte
	Value    float64
	HasValue bool
}

// Fields splits a command into words. Both the compact form "G1X5E29F1800"
// and the spaced form "G92 E0" parse; a ';' starts a comment that runs to
// the end of the line.
func Fields(cmd string) ([]Word, error) {
	var words []Word
	i := 0
	for i < len(cmd) {
		c := cmd[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c == ';' {
			break
		}
		letter := c
		if letter >= 'a' && letter <= 'z' {
			letter -= 'a' - 'A'
		}
		if letter < 'A' || letter > 'Z' {
			return nil, fmtx.Errorf("gcode: unexpected %q in %q", string(c), cmd)
		}
		j := i + 1
		for j < len(cmd) && isNumByte(cmd[j]) {
			j++
		}
		w := Word{Letter: letter}
		if j > i+1 {
			v, err := strconvx.ParseFloat(cmd[i+1:j], 64)
			if err != nil {
				return nil, fmtx.Errorf("gcode: bad number in %q: %s", cmd, err.Error())
			}
			w.Value = v
			w.HasValue = true
		}
		words = append(words, w)
		i = j
	}
	return words, nil
}

func isNumByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}
