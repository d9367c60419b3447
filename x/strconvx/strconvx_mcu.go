//go:build rp2040 || rp2350

package strconvx

// Allocation-aware helpers with strconv-compatible signatures for MCU builds.
// Supported bases: 2..36. Float handling targets fixed-point g-code text
// ('f' with explicit precision); it is not IEEE-exact across the full range.

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func Atoi(s string) (int, error) {
	v, err := ParseInt(s, 10, 0)
	return int(v), err
}

func FormatInt(i int64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	if i < 0 {
		return "-" + formatUint(uint64(-i), base)
	}
	return formatUint(uint64(i), base)
}

func FormatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	return formatUint(u, base)
}

func formatUint(u uint64, base int) string {
	if u == 0 {
		return "0"
	}
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}

type parseError struct{}

func (parseError) Error() string { return "invalid syntax" }

// ParseInt parses a signed integer. bitSize follows strconv: 0,8,16,32,64.
func ParseInt(s string, base, bitSize int) (int64, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if base == 0 {
		base = detectBase(&s)
	}
	u, err := ParseUint(s, base, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		if u > 1<<63 {
			return 0, parseError{}
		}
		return -int64(u), nil
	}
	if u >= 1<<63 {
		return 0, parseError{}
	}
	return int64(u), nil
}

func ParseUint(s string, base, bitSize int) (uint64, error) {
	if base == 0 {
		base = detectBase(&s)
	}
	if base < 2 || base > 36 || len(s) == 0 {
		return 0, parseError{}
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d byte
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'z':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'Z':
			d = c - 'A' + 10
		default:
			return 0, parseError{}
		}
		if int(d) >= base {
			return 0, parseError{}
		}
		v = v*uint64(base) + uint64(d)
	}
	switch bitSize {
	case 8:
		v &= 1<<8 - 1
	case 16:
		v &= 1<<16 - 1
	case 32:
		v &= 1<<32 - 1
	}
	return v, nil
}

func detectBase(ps *string) int {
	s := *ps
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			*ps = s[2:]
			return 16
		case 'b', 'B':
			*ps = s[2:]
			return 2
		case 'o', 'O':
			*ps = s[2:]
			return 8
		}
	}
	return 10
}

// FormatFloat renders f in decimal with prec fractional digits ('f' form;
// other verbs fall back to 'f'). No NaN/Inf handling.
func FormatFloat(f float64, fmt byte, prec, _ int) string {
	_ = fmt
	if prec < 0 {
		prec = 6
	}
	neg := false
	if f < 0 {
		neg = true
		f = -f
	}
	intp := uint64(f)
	frac := f - float64(intp)

	if prec == 0 {
		if frac >= 0.5 {
			intp++
		}
		if neg {
			return "-" + formatUint(intp, 10)
		}
		return formatUint(intp, 10)
	}

	pow := uint64(1)
	for i := 0; i < prec; i++ {
		pow *= 10
	}
	fracN := uint64(frac*float64(pow) + 0.5)
	if fracN >= pow { // rounding carried into the integer part
		fracN -= pow
		intp++
	}
	fs := formatUint(fracN, 10)
	for len(fs) < prec {
		fs = "0" + fs
	}
	out := formatUint(intp, 10) + "." + fs
	if neg {
		return "-" + out
	}
	return out
}

func ParseFloat(s string, _ int) (float64, error) {
	if len(s) == 0 {
		return 0, parseError{}
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	var intp uint64
	i, nd := 0, 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		intp = intp*10 + uint64(s[i]-'0')
		i++
		nd++
	}
	var frac, scale float64
	scale = 1
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			frac = frac*10 + float64(s[i]-'0')
			scale *= 10
			i++
			nd++
		}
	}
	if i != len(s) || nd == 0 {
		return 0, parseError{}
	}
	v := float64(intp) + frac/scale
	if neg {
		v = -v
	}
	return v, nil
}
