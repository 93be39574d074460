// Package posixtz parses the POSIX TZ environment-variable grammar used as
// the "future rule" tail of a tzfile (RFC 8536 section 3.3), e.g.
// "CET-1CEST,M3.5.0,M10.5.0/3".
//
// Grammar (POSIX.1-2017 8.3, as implemented by tzcode's tzparse):
//
//	spec     = std offset [ dst [offset] [ ',' rule ',' rule ] ]
//	std, dst = name | '<' name '>'
//	offset   = [ '+' | '-' ] hh [ ':' mm [ ':' ss ] ]   (hh in [0, 24])
//	rule     = date [ '/' time ]
//	date     = 'J' n | n | 'M' m '.' w '.' d
//	time     = offset with hh in [0, 167], default 02:00:00
package posixtz

import (
	"fmt"
	"strconv"
	"strings"
)

// DateForm identifies which of the three POSIX rule-date forms a Rule uses.
type DateForm int

const (
	// JulianNoLeap is the Jn form: 1..365, Feb 29 never counted, even in
	// leap years.
	JulianNoLeap DateForm = iota
	// JulianLeap is the n form: 0..365, Feb 29 counted in leap years.
	JulianLeap
	// MonthWeekDay is the Mm.w.d form: last/first occurrences of a weekday
	// in a given month.
	MonthWeekDay
)

// Rule is one transition rule of a POSIX TZ tail.
type Rule struct {
	Form DateForm

	// Used by JulianNoLeap and JulianLeap.
	Day int

	// Used by MonthWeekDay: month in [1,12], week in [1,5] (5 means
	// "last"), weekday in [0,6] (0 = Sunday).
	Month, Week, Weekday int

	// TimeOfDay is the local transition time of day in seconds,
	// defaulting to 2*3600 (02:00:00) when not specified. May be
	// negative or exceed 24h, per POSIX.
	TimeOfDay int
}

// Spec is a fully parsed POSIX TZ tail.
type Spec struct {
	StdName   string
	StdOffset int // seconds east of UTC, POSIX sign convention already inverted (see Parse)

	DSTName   string
	HasDST    bool
	DSTOffset int // only valid when HasDST

	Start, End Rule // only valid when HasDST
}

// ParseError reports a malformed POSIX TZ string, naming the offending
// substring.
type ParseError struct {
	Spec string
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("posixtz: %s at position %d in %q", e.Msg, e.Pos, e.Spec)
}

// Parse parses a POSIX TZ tail string, e.g. "CET-1CEST,M3.5.0,M10.5.0/3".
func Parse(s string) (Spec, error) {
	p := &parser{src: s}
	var spec Spec

	name, err := p.parseName()
	if err != nil {
		return Spec{}, err
	}
	spec.StdName = name

	off, err := p.parseOffset(0, 24)
	if err != nil {
		return Spec{}, err
	}
	spec.StdOffset = -off // POSIX offsets are west-positive; we store east-positive seconds.

	if p.done() {
		return spec, nil
	}

	dstName, err := p.parseName()
	if err != nil {
		return Spec{}, err
	}
	spec.DSTName = dstName
	spec.HasDST = true

	if !p.done() && p.peek() != ',' {
		off, err := p.parseOffset(0, 24)
		if err != nil {
			return Spec{}, err
		}
		spec.DSTOffset = -off
	} else {
		spec.DSTOffset = spec.StdOffset + 3600
	}

	if p.done() {
		// DST is named but no transition rules were given: undefined by
		// POSIX, but tzcode treats this as "DST never actually occurs"
		// rather than an error.
		return spec, nil
	}

	if err := p.expect(','); err != nil {
		return Spec{}, err
	}
	start, err := p.parseRule()
	if err != nil {
		return Spec{}, err
	}
	spec.Start = start

	if err := p.expect(','); err != nil {
		return Spec{}, err
	}
	end, err := p.parseRule()
	if err != nil {
		return Spec{}, err
	}
	spec.End = end

	if !p.done() {
		return Spec{}, p.errorf("unexpected trailing data")
	}

	return spec, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Spec: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(b byte) error {
	if p.done() || p.src[p.pos] != b {
		return p.errorf("expected %q", b)
	}
	p.pos++
	return nil
}

// parseName parses std/dst abbreviation names: either a quoted <...> form
// (which may contain digits and signs) or a run of 3+ letters.
func (p *parser) parseName() (string, error) {
	if p.done() {
		return "", p.errorf("expected name")
	}
	if p.src[p.pos] == '<' {
		end := strings.IndexByte(p.src[p.pos:], '>')
		if end < 0 {
			return "", p.errorf("unterminated quoted name")
		}
		name := p.src[p.pos+1 : p.pos+end]
		p.pos += end + 1
		return name, nil
	}
	start := p.pos
	for !p.done() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos-start < 3 {
		return "", p.errorf("abbreviation must be at least 3 characters")
	}
	return p.src[start:p.pos], nil
}

func isNameByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// parseOffset parses "[-]hh[:mm[:ss]]", bounding the hour field to
// [-maxHour, maxHour].
func (p *parser) parseOffset(_, maxHour int) (int, error) {
	neg := false
	if !p.done() && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
		neg = p.src[p.pos] == '-'
		p.pos++
	}
	hh, err := p.parseInt()
	if err != nil {
		return 0, err
	}
	if hh > maxHour {
		return 0, p.errorf("hour offset %d exceeds maximum %d", hh, maxHour)
	}
	secs := hh * 3600
	if !p.done() && p.src[p.pos] == ':' {
		p.pos++
		mm, err := p.parseInt()
		if err != nil {
			return 0, err
		}
		secs += mm * 60
		if !p.done() && p.src[p.pos] == ':' {
			p.pos++
			ss, err := p.parseInt()
			if err != nil {
				return 0, err
			}
			secs += ss
		}
	}
	if neg {
		secs = -secs
	}
	return secs, nil
}

func (p *parser) parseInt() (int, error) {
	start := p.pos
	for !p.done() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected digits")
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, p.errorf("invalid integer: %v", err)
	}
	return n, nil
}

// parseRule parses one of Jn, n, or Mm.w.d, optionally followed by
// "/offset".
func (p *parser) parseRule() (Rule, error) {
	var r Rule
	switch p.peek() {
	case 'J':
		p.pos++
		n, err := p.parseInt()
		if err != nil {
			return Rule{}, err
		}
		if n < 1 || n > 365 {
			return Rule{}, p.errorf("Jn day %d out of range [1,365]", n)
		}
		r.Form = JulianNoLeap
		r.Day = n
	case 'M':
		p.pos++
		m, err := p.parseInt()
		if err != nil {
			return Rule{}, err
		}
		if err := p.expect('.'); err != nil {
			return Rule{}, err
		}
		w, err := p.parseInt()
		if err != nil {
			return Rule{}, err
		}
		if err := p.expect('.'); err != nil {
			return Rule{}, err
		}
		d, err := p.parseInt()
		if err != nil {
			return Rule{}, err
		}
		if m < 1 || m > 12 {
			return Rule{}, p.errorf("month %d out of range [1,12]", m)
		}
		if w < 1 || w > 5 {
			return Rule{}, p.errorf("week %d out of range [1,5]", w)
		}
		if d < 0 || d > 6 {
			return Rule{}, p.errorf("weekday %d out of range [0,6]", d)
		}
		r.Form = MonthWeekDay
		r.Month, r.Week, r.Weekday = m, w, d
	default:
		n, err := p.parseInt()
		if err != nil {
			return Rule{}, p.errorf("expected J, M, or digit")
		}
		if n < 0 || n > 365 {
			return Rule{}, p.errorf("n day %d out of range [0,365]", n)
		}
		r.Form = JulianLeap
		r.Day = n
	}

	r.TimeOfDay = 2 * 3600
	if !p.done() && p.peek() == '/' {
		p.pos++
		off, err := p.parseOffset(0, 167)
		if err != nil {
			return Rule{}, err
		}
		r.TimeOfDay = off
	}
	return r, nil
}
