// Package strftime formats civil times plus zone metadata using a
// strftime(3)-derived pattern language, extended with CCTZ's fractional-
// second and numeric-offset specifiers.
//
// Supported conversion specifications:
//
//	%a  Abbreviated weekday name (Sun .. Sat)
//	%A  Full weekday name (Sunday .. Saturday)
//	%b  Abbreviated month name (Jan .. Dec)
//	%B  Full month name (January .. December)
//	%c  ctime(3)-style date and time: "Mon Jan  2 15:04:05 2006"
//	%C  Century (year / 100), 2 digits
//	%d  Day of the month, 01 .. 31
//	%D  Equivalent to %m/%d/%y
//	%e  Day of the month, space-padded ( 1 .. 31)
//	%F  Equivalent to %Y-%m-%d
//	%H  Hour, 24-hour clock, 00 .. 23
//	%I  Hour, 12-hour clock, 01 .. 12
//	%j  Day of the year, 001 .. 366
//	%k  Hour, 24-hour clock, space-padded ( 0 .. 23)
//	%l  Hour, 12-hour clock, space-padded ( 1 .. 12)
//	%m  Month, 01 .. 12
//	%M  Minute, 00 .. 59
//	%n  Newline
//	%p  "AM" or "PM"
//	%P  "am" or "pm"
//	%r  Equivalent to %I:%M:%S %p
//	%R  Equivalent to %H:%M
//	%s  Seconds since the Unix epoch
//	%S  Second, 00 .. 60 (60 to allow the caller to represent a leap second)
//	%t  Tab
//	%T  Equivalent to %H:%M:%S
//	%u  Weekday, 1 .. 7, Monday is 1
//	%U  Week of the year, 00 .. 53, Sunday as the first day of the week
//	%V  ISO 8601 week of the year, 01 .. 53
//	%w  Weekday, 0 .. 6, Sunday is 0
//	%W  Week of the year, 00 .. 53, Monday as the first day of the week
//	%x  Equivalent to %m/%d/%y
//	%X  Equivalent to %H:%M:%S
//	%y  Year without century, 00 .. 99
//	%Y  Year with century
//	%z  Numeric UTC offset, +hhmm or -hhmm
//	%Z  Zone abbreviation
//	%%  A literal '%'
//
// %G and %g, the ISO 8601 week-based year (full and 2-digit), are also
// supported; they belong with %V rather than %Y/%y because the week-based
// year can differ from the calendar year for dates near January 1.
//
// CCTZ extensions:
//
//	%E4Y     Year, zero-padded to at least 4 characters, counting the
//	         leading '-' of a negative year (-5 renders as "-005").
//	%Ez      Numeric UTC offset with a colon, +hh:mm
//	%E#S     Second, followed by a decimal point and # digits of
//	         fractional seconds (# in 0..15, taken from Info.Nanos,
//	         zero-padded or zero-extended past nanosecond precision).
//	%E*S     Second, followed by a decimal point and exactly as many
//	         fractional digits as are needed to represent Info.Nanos
//	         exactly (no trailing zeros); omitted entirely when Nanos is 0.
package strftime

import (
	"fmt"
	"strings"
	"time"

	"github.com/ngrash/go-tz/civil"
)

var abbrevWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
var fullWeekdays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var abbrevMonths = [13]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
var fullMonths = [13]string{"", "January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}

// Info carries the zone metadata a caller layers onto a civil.Second when
// formatting %z/%Z; the zero value formats as UTC.
type Info struct {
	Offset int32 // seconds east of UTC
	Abbrev string
	// Nanos is the sub-second residue of the instant being formatted, in
	// [0, 1e9). It feeds only %E#S/%E*S; it does not affect %s or any
	// whole-second field.
	Nanos int32
}

// Format renders t (with zone metadata info) according to layout.
func Format(layout string, t civil.Second, info Info) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(layout) {
		if layout[i] != '%' {
			b.WriteByte(layout[i])
			i++
			continue
		}
		i++
		if i >= len(layout) {
			return "", fmt.Errorf("strftime: trailing %% in layout %q", layout)
		}
		switch layout[i] {
		case 'E':
			n, err := formatExtended(&b, layout[i+1:], t, info)
			if err != nil {
				return "", err
			}
			i += 1 + n
		default:
			if err := formatSpecifier(&b, layout[i], t, info); err != nil {
				return "", err
			}
			i++
		}
	}
	return b.String(), nil
}

// formatExtended handles the CCTZ %E... extensions. rest is the layout text
// after "%E"; it returns the number of bytes of rest consumed.
func formatExtended(b *strings.Builder, rest string, t civil.Second, info Info) (int, error) {
	if rest == "" {
		return 0, fmt.Errorf("strftime: dangling %%E")
	}
	switch {
	case strings.HasPrefix(rest, "4Y"):
		fmt.Fprintf(b, "%04d", t.Year)
		return 2, nil
	case strings.HasPrefix(rest, "z"):
		sign, h, m := splitOffset(info.Offset)
		fmt.Fprintf(b, "%c%02d:%02d", sign, h, m)
		return 1, nil
	case rest[0] == '*' && len(rest) >= 2 && rest[1] == 'S':
		fmt.Fprintf(b, "%02d", t.SecondField)
		if frac := trimFrac(info.Nanos); frac != "" {
			b.WriteByte('.')
			b.WriteString(frac)
		}
		return 2, nil
	case rest[0] >= '0' && rest[0] <= '9':
		// %E#S: 0..15 digits of fractional seconds followed by 'S'.
		digits := int(rest[0] - '0')
		consumed := 1
		if len(rest) >= 3 && rest[1] >= '0' && rest[1] <= '9' && rest[2] == 'S' {
			if two := digits*10 + int(rest[1]-'0'); two <= 15 {
				digits = two
				consumed = 2
			}
		}
		if consumed >= len(rest) || rest[consumed] != 'S' {
			return 0, fmt.Errorf("strftime: unsupported extended specifier %%E%s", rest[:min(consumed+1, len(rest))])
		}
		fmt.Fprintf(b, "%02d", t.SecondField)
		if digits > 0 {
			b.WriteByte('.')
			b.WriteString(fracDigits(info.Nanos, digits))
		}
		return consumed + 1, nil
	default:
		return 0, fmt.Errorf("strftime: unsupported extended specifier %%E%c", rest[0])
	}
}

// fracDigits renders nanos as exactly digits decimal digits, truncating
// past nanosecond precision or zero-extending beyond it.
func fracDigits(nanos int32, digits int) string {
	s := fmt.Sprintf("%09d", nanos)
	if digits <= len(s) {
		return s[:digits]
	}
	return s + strings.Repeat("0", digits-len(s))
}

// trimFrac renders nanos with the minimum number of digits needed to
// represent it exactly, or "" if nanos is 0 (CCTZ's %E*S).
func trimFrac(nanos int32) string {
	if nanos == 0 {
		return ""
	}
	return strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
}

func splitOffset(offset int32) (sign byte, hours, minutes int) {
	sign = '+'
	off := offset
	if off < 0 {
		sign = '-'
		off = -off
	}
	return sign, int(off / 3600), int((off / 60) % 60)
}

func formatSpecifier(b *strings.Builder, spec byte, t civil.Second, info Info) error {
	wd := civil.Weekday(t)
	switch spec {
	case 'a':
		b.WriteString(abbrevWeekdays[wd])
	case 'A':
		b.WriteString(fullWeekdays[wd])
	case 'b', 'h':
		b.WriteString(abbrevMonths[t.Month])
	case 'B':
		b.WriteString(fullMonths[t.Month])
	case 'c':
		fmt.Fprintf(b, "%s %s %2d %02d:%02d:%02d %d", abbrevWeekdays[wd], abbrevMonths[t.Month], t.Day, t.Hour, t.Minute, t.SecondField, t.Year)
	case 'C':
		fmt.Fprintf(b, "%02d", t.Year/100)
	case 'd':
		fmt.Fprintf(b, "%02d", t.Day)
	case 'D', 'x':
		fmt.Fprintf(b, "%02d/%02d/%02d", t.Month, t.Day, t.Year%100)
	case 'e':
		fmt.Fprintf(b, "%2d", t.Day)
	case 'F':
		fmt.Fprintf(b, "%04d-%02d-%02d", t.Year, t.Month, t.Day)
	case 'H':
		fmt.Fprintf(b, "%02d", t.Hour)
	case 'I':
		fmt.Fprintf(b, "%02d", hour12(t.Hour))
	case 'j':
		fmt.Fprintf(b, "%03d", civil.YearDay(t))
	case 'k':
		fmt.Fprintf(b, "%2d", t.Hour)
	case 'l':
		fmt.Fprintf(b, "%2d", hour12(t.Hour))
	case 'm':
		fmt.Fprintf(b, "%02d", t.Month)
	case 'M':
		fmt.Fprintf(b, "%02d", t.Minute)
	case 'n':
		b.WriteByte('\n')
	case 'p':
		b.WriteString(ampm(t.Hour, false))
	case 'P':
		b.WriteString(ampm(t.Hour, true))
	case 'r':
		fmt.Fprintf(b, "%02d:%02d:%02d %s", hour12(t.Hour), t.Minute, t.SecondField, ampm(t.Hour, false))
	case 'R':
		fmt.Fprintf(b, "%02d:%02d", t.Hour, t.Minute)
	case 's':
		fmt.Fprintf(b, "%d", civil.ToUnix(t)-int64(info.Offset))
	case 'S':
		fmt.Fprintf(b, "%02d", t.SecondField)
	case 't':
		b.WriteByte('\t')
	case 'T', 'X':
		fmt.Fprintf(b, "%02d:%02d:%02d", t.Hour, t.Minute, t.SecondField)
	case 'u':
		if wd == time.Sunday {
			b.WriteString("7")
		} else {
			fmt.Fprintf(b, "%d", int(wd))
		}
	case 'U':
		fmt.Fprintf(b, "%02d", civil.WeekOfYear(t, time.Sunday))
	case 'V':
		_, wk := civil.ISOWeek(t)
		fmt.Fprintf(b, "%02d", wk)
	case 'w':
		fmt.Fprintf(b, "%d", int(wd))
	case 'W':
		fmt.Fprintf(b, "%02d", civil.WeekOfYear(t, time.Monday))
	case 'G':
		y, _ := civil.ISOWeek(t)
		fmt.Fprintf(b, "%d", y)
	case 'g':
		y, _ := civil.ISOWeek(t)
		fmt.Fprintf(b, "%02d", ((y%100)+100)%100)
	case 'y':
		fmt.Fprintf(b, "%02d", t.Year%100)
	case 'Y':
		fmt.Fprintf(b, "%d", t.Year)
	case 'z':
		sign, h, m := splitOffset(info.Offset)
		fmt.Fprintf(b, "%c%02d%02d", sign, h, m)
	case 'Z':
		b.WriteString(info.Abbrev)
	case '%':
		b.WriteByte('%')
	default:
		return fmt.Errorf("strftime: unsupported specifier %%%c", spec)
	}
	return nil
}

func hour12(h int64) int64 {
	h %= 12
	if h == 0 {
		h = 12
	}
	return h
}

func ampm(h int64, lower bool) string {
	s := "AM"
	if h >= 12 {
		s = "PM"
	}
	if lower {
		s = strings.ToLower(s)
	}
	return s
}

// FromUnixString is a convenience for formatting seconds-since-epoch
// directly, shifted by info.Offset.
func FromUnixString(layout string, unix int64, info Info) (string, error) {
	t := civil.FromUnix(unix + int64(info.Offset))
	return Format(layout, t, info)
}
