package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5,0,10) = %d", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1,0,10) = %d", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11,0,10) = %d", got)
	}
	// Swapped bounds still clamp into the same interval.
	if got := Clamp(11, 10, 0); got != 10 {
		t.Errorf("Clamp(11,10,0) = %d", got)
	}
	if got := Clamp(0.31, 0.05, 0.25); got != 0.25 {
		t.Errorf("Clamp(0.31,0.05,0.25) = %v", got)
	}
}

func TestMinMaxAbs(t *testing.T) {
	if Min(2, 3) != 2 || Max(2, 3) != 3 {
		t.Error("Min/Max ordering wrong")
	}
	if Abs(-4) != 4 || Abs(4) != 4 {
		t.Error("Abs wrong for ints")
	}
	if Abs(-1.5) != 1.5 {
		t.Error("Abs wrong for floats")
	}
}
