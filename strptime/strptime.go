// Package strptime parses textual timestamps against the same pattern
// language as package strftime.
//
// %U, %W, %G, %g, and %V are accepted but informational: like glibc's
// strptime, they are validated and consumed but never combined to
// reconstruct a date, since %Y/%m/%d (or %s) already fully determine one.
package strptime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ngrash/go-tz/civil"
	"github.com/ngrash/go-tz/tzreg"
	"github.com/ngrash/go-tz/tztime"
)

var abbrevMonthByName = buildMonthIndex()

func buildMonthIndex() map[string]int64 {
	names := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	m := make(map[string]int64, len(names))
	for i, n := range names {
		m[n] = int64(i + 1)
	}
	return m
}

// Result is a parsed civil time plus whatever zone metadata the layout
// specified explicitly (%z/%Ez), separate from any zone a caller later
// resolves against.
type Result struct {
	Civil      civil.Second
	HasOffset  bool
	Offset     int32
	UnixFromS  bool // set when %s matched: Civil/Offset are meaningless
	Unix       int64
	LeapSecond bool // the literal seconds field read 60
	// Nanos is the sub-second residue read from %E#S/%E*S, in [0, 1e9).
	Nanos int32
}

// ParseError reports where parsing failed and why.
type ParseError struct {
	Value string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("strptime: %s at position %d in %q", e.Msg, e.Pos, e.Value)
}

// Parse parses value according to layout, which uses the same specifier
// set as package strftime (excluding the purely cosmetic %n/%t, which are
// treated as arbitrary-whitespace matches).
func Parse(layout, value string) (Result, error) {
	res := Result{Civil: civil.Second{Year: 1900, Month: 1, Day: 1}}
	lp, vp := 0, 0

	for lp < len(layout) {
		if layout[lp] == ' ' {
			vp = skipSpaces(value, vp)
			lp++
			continue
		}
		if layout[lp] != '%' {
			if vp >= len(value) || value[vp] != layout[lp] {
				return Result{}, &ParseError{Value: value, Pos: vp, Msg: fmt.Sprintf("expected %q", layout[lp])}
			}
			lp++
			vp++
			continue
		}
		lp++
		if lp >= len(layout) {
			return Result{}, &ParseError{Value: value, Pos: vp, Msg: "dangling % in layout"}
		}
		if layout[lp] == 'E' {
			lp++
			if lp >= len(layout) {
				return Result{}, &ParseError{Value: value, Pos: vp, Msg: "dangling %E in layout"}
			}
			newVp, consumed, err := applyExtendedSpecifier(layout[lp:], value, vp, &res)
			if err != nil {
				return Result{}, err
			}
			vp = newVp
			lp += consumed
			continue
		}
		newVp, err := applySpecifier(layout[lp], value, vp, &res)
		if err != nil {
			return Result{}, err
		}
		vp = newVp
		lp++
	}
	vp = skipSpaces(value, vp)
	if vp != len(value) {
		return Result{}, &ParseError{Value: value, Pos: vp, Msg: "trailing unparsed input"}
	}

	norm := civil.NewSecond(res.Civil.Year, res.Civil.Month, res.Civil.Day, res.Civil.Hour, res.Civil.Minute, res.Civil.SecondField)
	if norm != res.Civil {
		return Result{}, &ParseError{Value: value, Pos: vp, Msg: "day out of range for month"}
	}
	res.Civil = norm
	if res.LeapSecond {
		// ":60" reads as ":00" of the following minute; its fraction is dropped.
		res.Civil = civil.AddSeconds(res.Civil, 1)
		res.Nanos = 0
	}
	return res, nil
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && s[pos] == ' ' {
		pos++
	}
	return pos
}

func readDigits(s string, pos, max int) (int64, int, error) {
	start := pos
	for pos < len(s) && pos-start < max && s[pos] >= '0' && s[pos] <= '9' {
		pos++
	}
	if pos == start {
		return 0, pos, &ParseError{Value: s, Pos: pos, Msg: "expected digits"}
	}
	n, err := strconv.ParseInt(s[start:pos], 10, 64)
	if err != nil {
		return 0, pos, &ParseError{Value: s, Pos: pos, Msg: "invalid number"}
	}
	return n, pos, nil
}

// applyExtendedSpecifier handles the CCTZ %E... extensions. rest is the
// layout text after "%E"; it returns the new value position, the number of
// bytes of rest consumed, and any error.
func applyExtendedSpecifier(rest, value string, pos int, res *Result) (int, int, error) {
	if rest == "" {
		return pos, 0, &ParseError{Value: value, Pos: pos, Msg: "dangling %E in layout"}
	}
	switch {
	case strings.HasPrefix(rest, "4Y"):
		neg := false
		if pos < len(value) && (value[pos] == '+' || value[pos] == '-') {
			neg = value[pos] == '-'
			pos++
		}
		n, np, err := readDigits(value, pos, 9)
		if err != nil {
			return pos, 0, err
		}
		if neg {
			n = -n
		}
		res.Civil.Year = n
		return np, 2, nil
	case strings.HasPrefix(rest, "z"):
		np, err := parseOffset(value, pos, res, true)
		if err != nil {
			return pos, 0, err
		}
		return np, 1, nil
	case rest[0] == '*' && len(rest) >= 2 && rest[1] == 'S':
		np, err := parseSecondsWithFraction(value, pos, res, -1)
		if err != nil {
			return pos, 0, err
		}
		return np, 2, nil
	case rest[0] >= '0' && rest[0] <= '9':
		digits := int(rest[0] - '0')
		consumed := 1
		if len(rest) >= 3 && rest[1] >= '0' && rest[1] <= '9' && rest[2] == 'S' {
			if two := digits*10 + int(rest[1]-'0'); two <= 15 {
				digits = two
				consumed = 2
			}
		}
		if consumed >= len(rest) || rest[consumed] != 'S' {
			return pos, 0, &ParseError{Value: value, Pos: pos, Msg: fmt.Sprintf("unsupported extended specifier %%E%s", rest[:min(consumed+1, len(rest))])}
		}
		np, err := parseSecondsWithFraction(value, pos, res, digits)
		if err != nil {
			return pos, 0, err
		}
		return np, consumed + 1, nil
	default:
		return pos, 0, &ParseError{Value: value, Pos: pos, Msg: fmt.Sprintf("unsupported extended specifier %%E%c", rest[0])}
	}
}

// parseSecondsWithFraction reads a two-digit whole-seconds field, then an
// optional '.'-prefixed fractional part. digits is the expected fractional
// width for %E#S, or -1 for %E*S (fraction is optional and may have any
// width).
func parseSecondsWithFraction(value string, pos int, res *Result, digits int) (int, error) {
	n, np, err := readDigits(value, pos, 2)
	if err != nil {
		return pos, err
	}
	if n > 60 {
		return pos, &ParseError{Value: value, Pos: pos, Msg: "second out of range"}
	}
	if n == 60 {
		res.LeapSecond = true
		n = 59
	}
	res.Civil.SecondField = n
	pos = np

	if digits == 0 {
		return pos, nil
	}
	if pos >= len(value) || value[pos] != '.' {
		if digits > 0 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "expected '.' before fractional seconds"}
		}
		return pos, nil
	}
	pos++
	start := pos
	for pos < len(value) && value[pos] >= '0' && value[pos] <= '9' {
		pos++
	}
	if pos == start {
		return pos, &ParseError{Value: value, Pos: pos, Msg: "expected fractional digits"}
	}
	res.Nanos = fracToNanos(value[start:pos])
	return pos, nil
}

func fracToNanos(digits string) int32 {
	if len(digits) > 9 {
		digits = digits[:9]
	}
	digits += strings.Repeat("0", 9-len(digits))
	n, _ := strconv.ParseInt(digits, 10, 32)
	return int32(n)
}

func applySpecifier(spec byte, value string, pos int, res *Result) (int, error) {
	switch spec {
	case 'Y':
		n, np, err := readDigits(value, pos, 9)
		if err != nil {
			return pos, err
		}
		res.Civil.Year = n
		return np, nil
	case 'y':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n < 69 {
			res.Civil.Year = 2000 + n
		} else {
			res.Civil.Year = 1900 + n
		}
		return np, nil
	case 'm':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n < 1 || n > 12 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "month out of range"}
		}
		res.Civil.Month = n
		return np, nil
	case 'b', 'B', 'h':
		for name, idx := range abbrevMonthByName {
			if strings.HasPrefix(value[pos:], name) {
				res.Civil.Month = idx
				end := pos + len(name)
				// Greedily consume a longer full month name too.
				full := fullMonthName(idx)
				if strings.HasPrefix(value[pos:], full) {
					end = pos + len(full)
				}
				return end, nil
			}
		}
		return pos, &ParseError{Value: value, Pos: pos, Msg: "unrecognized month name"}
	case 'd', 'e':
		pos = skipSpaces(value, pos)
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n < 1 || n > 31 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "day out of range"}
		}
		res.Civil.Day = n
		return np, nil
	case 'H', 'k':
		pos = skipSpaces(value, pos)
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n > 23 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "hour out of range"}
		}
		res.Civil.Hour = n
		return np, nil
	case 'M':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n > 59 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "minute out of range"}
		}
		res.Civil.Minute = n
		return np, nil
	case 'S':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n > 60 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "second out of range"}
		}
		if n == 60 {
			// Leap second: read as :59 and flagged; Parse then moves
			// it on to :00 of the next minute.
			res.LeapSecond = true
			n = 59
		}
		res.Civil.SecondField = n
		return np, nil
	case 's':
		neg := false
		if pos < len(value) && value[pos] == '-' {
			neg = true
			pos++
		}
		n, np, err := readDigits(value, pos, 19)
		if err != nil {
			return pos, err
		}
		if neg {
			n = -n
		}
		res.UnixFromS = true
		res.Unix = n
		return np, nil
	case 'U', 'W':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n > 53 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "week number out of range"}
		}
		return np, nil
	case 'V':
		n, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		if n < 1 || n > 53 {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "ISO week number out of range"}
		}
		return np, nil
	case 'G':
		_, np, err := readDigits(value, pos, 9)
		if err != nil {
			return pos, err
		}
		return np, nil
	case 'g':
		_, np, err := readDigits(value, pos, 2)
		if err != nil {
			return pos, err
		}
		return np, nil
	case 'n', 't':
		return skipSpaces(value, pos), nil
	case '%':
		if pos >= len(value) || value[pos] != '%' {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "expected '%'"}
		}
		return pos + 1, nil
	case 'z':
		return parseOffset(value, pos, res, false)
	default:
		return pos, &ParseError{Value: value, Pos: pos, Msg: fmt.Sprintf("unsupported specifier %%%c", spec)}
	}
}

func fullMonthName(idx int64) string {
	names := []string{"", "January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	return names[idx]
}

func parseOffset(value string, pos int, res *Result, colon bool) (int, error) {
	if pos >= len(value) || (value[pos] != '+' && value[pos] != '-') {
		return pos, &ParseError{Value: value, Pos: pos, Msg: "expected sign"}
	}
	neg := value[pos] == '-'
	pos++
	hh, np, err := readDigits(value, pos, 2)
	if err != nil {
		return pos, err
	}
	pos = np
	if colon {
		if pos >= len(value) || value[pos] != ':' {
			return pos, &ParseError{Value: value, Pos: pos, Msg: "expected ':'"}
		}
		pos++
	}
	mm, np, err := readDigits(value, pos, 2)
	if err != nil {
		return pos, err
	}
	pos = np
	off := int32(hh*3600 + mm*60)
	if neg {
		off = -off
	}
	res.HasOffset = true
	res.Offset = off
	return pos, nil
}

// ResolveUnder resolves r.Civil (or, if %s matched, r.Unix directly)
// against zone, returning CivilLookup.Pre on Skipped/Repeated civil times:
// zoneinfo.Resolution documents Pre as the instant obtained under the offset
// in effect before the nearest transition, which this package treats as the
// parser's default for an ambiguous or nonexistent local time.
func ResolveUnder(r Result, zone *tzreg.Handle) int64 {
	if r.UnixFromS {
		return r.Unix
	}
	res := tztime.Resolve(zone, r.Civil)
	return res.Pre
}
