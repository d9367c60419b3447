//go:build rp2040 || rp2350

package fmtx

import (
	"io"
	"unicode/utf8"

	"printcore-go/x/strconvx"
)

// Tiny formatter subset for MCU builds.
// Verbs: %s %q %d %x %X %t %v %f %g %%, with width for %s and precision for
// %s and %f/%g. Floats render through strconvx fixed-point formatting, which
// is what g-code text needs; no flags beyond that.

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return w.Write([]byte(Sprintf(format, a...)))
}

func Errorf(format string, a ...any) error {
	return &stringError{Sprintf(format, a...)}
}

func Sprint(a ...any) string {
	var b builder
	for i, v := range a {
		if i > 0 {
			b.byte(' ')
		}
		b.any(v, 'v', -1)
	}
	return string(b.buf)
}

func Fprint(w io.Writer, a ...any) (int, error) {
	return w.Write([]byte(Sprint(a...)))
}

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

type builder struct{ buf []byte }

func (b *builder) byte(c byte)  { b.buf = append(b.buf, c) }
func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) any(v any, verb rune, prec int) {
	switch x := v.(type) {
	case string:
		if verb == 'q' {
			b.str(quote(x))
		} else {
			b.str(x)
		}
	case []byte:
		b.any(string(x), verb, prec)
	case int:
		b.str(strconvx.FormatInt(int64(x), 10))
	case int8:
		b.str(strconvx.FormatInt(int64(x), 10))
	case int16:
		b.str(strconvx.FormatInt(int64(x), 10))
	case int32:
		b.str(strconvx.FormatInt(int64(x), 10))
	case int64:
		b.str(strconvx.FormatInt(x, 10))
	case uint:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint8:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint16:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint32:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint64:
		b.str(strconvx.FormatUint(x, 10))
	case float32:
		b.float(float64(x), prec)
	case float64:
		b.float(x, prec)
	case bool:
		if x {
			b.str("true")
		} else {
			b.str("false")
		}
	case error:
		b.str(x.Error())
	default:
		b.str("<unk>")
	}
}

func (b *builder) float(f float64, prec int) {
	if prec < 0 {
		prec = 6
	}
	b.str(strconvx.FormatFloat(f, 'f', prec, 64))
}

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			b.byte(format[i])
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			b.byte('%')
			i += 2
			continue
		}
		i++
		width, prec := -1, -1
		i = parseNum(format, i, &width)
		if i < len(format) && format[i] == '.' {
			i++
			prec = 0
			i = parseNum(format, i, &prec)
		}
		if i >= len(format) || ai >= len(args) {
			return
		}
		verb := rune(format[i])
		arg := args[ai]
		ai++
		i++

		switch verb {
		case 's', 'q':
			var s string
			switch v := arg.(type) {
			case string:
				s = v
			case []byte:
				s = string(v)
			case error:
				s = v.Error()
			default:
				b.any(arg, 'v', prec)
				continue
			}
			if prec >= 0 && prec < len(s) {
				s = s[:prec]
			}
			if verb == 'q' {
				s = quote(s)
			}
			for pad := width - utf8.RuneCountInString(s); pad > 0; pad-- {
				b.byte(' ')
			}
			b.str(s)
		case 'd':
			b.any(arg, 'd', -1)
		case 'x', 'X':
			h := strconvx.FormatUint(toU64(arg), 16)
			if verb == 'X' {
				h = upperHex(h)
			}
			b.str(h)
		case 'f', 'g':
			switch v := arg.(type) {
			case float32:
				b.float(float64(v), prec)
			case float64:
				b.float(v, prec)
			default:
				b.any(arg, 'v', prec)
			}
		case 't':
			v, _ := arg.(bool)
			if v {
				b.str("true")
			} else {
				b.str("false")
			}
		case 'v':
			b.any(arg, 'v', prec)
		default:
			// Unknown verb: emit it literally to aid debugging.
			b.byte('%')
			b.byte(byte(verb))
		}
	}
}

func toU64(v any) uint64 {
	switch t := v.(type) {
	case uint:
		return uint64(t)
	case uint8:
		return uint64(t)
	case uint16:
		return uint64(t)
	case uint32:
		return uint64(t)
	case uint64:
		return t
	case int:
		return uint64(t)
	case int8:
		return uint64(t)
	case int16:
		return uint64(t)
	case int32:
		return uint64(t)
	case int64:
		return uint64(t)
	default:
		return 0
	}
}

func upperHex(h string) string {
	out := []byte(h)
	for i, c := range out {
		if 'a' <= c && c <= 'f' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

func parseNum(s string, i int, out *int) int {
	n, start := 0, i
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i > start {
		*out = n
	}
	return i
}

func quote(s string) string {
	out := []byte{'"'}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			out = append(out, '\\', s[i])
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, s[i])
		}
	}
	return string(append(out, '"'))
}
