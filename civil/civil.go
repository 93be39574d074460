// Package civil implements civil-time (year/month/day hour:minute:second)
// arithmetic against the proleptic Gregorian calendar, independent of any
// time zone. It is the calendar half of the library: zone-aware conversion
// between civil time and absolute instants lives in package tztime.
//
// The day-counting algorithm is Howard Hinnant's days_from_civil /
// civil_from_days (see daysSinceUnixEpoch), which this package uses in
// place of internal/unixtime's one-way construction: dates are grouped
// into 400-year eras so that leap-year counting never needs a per-year
// loop.
package civil

import "time"

// Second is a civil time, always normalized: Month is in [1,12], Day is a
// valid day of that month, Hour is in [0,23], Minute and Second are in
// [0,59]. NewSecond, the Add* functions and FromUnix all return normalized
// values; a struct literal is not checked, so pass out-of-range fields
// through NewSecond.
type Second struct {
	Year                      int64
	Month                     int64
	Day                       int64
	Hour, Minute, SecondField int64
}

// NewSecond builds a normalized Second from possibly out-of-range fields,
// e.g. NewSecond(2024, 13, 1, 0, 0, 0) is 2025-01-01T00:00:00, and
// NewSecond(2024, 3, 0, 0, 0, 0) is 2024-02-29T00:00:00 (2024 is a leap
// year). This mirrors CCTZ's DateTime::Normalize field-carry chain.
func NewSecond(year, month, day, hour, minute, second int64) Second {
	// Carry seconds into minutes, minutes into hours, hours into days
	// first: these are fixed-radix and cheap.
	minute, second = carry(minute, second, 60)
	hour, minute = carry(hour, minute, 60)
	day, hour = carry(day, hour, 24)

	// Carry months into years: also fixed-radix.
	year, month = carryMonth(year, month)

	// Now day may be arbitrarily out of range for the resolved
	// (year, month); resolve it through the day count from the first of
	// that month, which needs month to be normalized above and takes
	// whole 400-year eras at a time instead of stepping month by month.
	if day < 1 || day > daysInMonth(year, month) {
		year, month, day = civilFromDays(daysSinceUnixEpoch(year, month, 1) + day - 1)
	}

	return Second{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, SecondField: second}
}

// carry reduces value into [0,radix) by moving the overflow/underflow into
// hi, e.g. carry(25, 70, 60) is (26, 10).
func carry(hi, value, radix int64) (int64, int64) {
	if value >= 0 {
		hi += value / radix
		value %= radix
	} else {
		hi += value/radix - 1
		value = value%radix + radix
		if value == radix {
			value = 0
			hi++
		}
	}
	return hi, value
}

// carryMonth normalizes a possibly out-of-[1,12] month into range, carrying
// the overflow into year.
func carryMonth(year, month int64) (int64, int64) {
	month -= 1
	y, m := carry(year, month, 12)
	return y, m + 1
}

func isLeapYear(year int64) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var daysPerMonth = [12]int64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysInMonth(year, month int64) int64 {
	d := daysPerMonth[month-1]
	if month == 2 && isLeapYear(year) {
		d++
	}
	return d
}

// Compare returns -1, 0, or +1 as a compares before, equal to, or after b,
// field by field, regardless of how either was constructed.
func Compare(a, b Second) int {
	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(a.Month - b.Month)
	case a.Day != b.Day:
		return sign(a.Day - b.Day)
	case a.Hour != b.Hour:
		return sign(a.Hour - b.Hour)
	case a.Minute != b.Minute:
		return sign(a.Minute - b.Minute)
	default:
		return sign(a.SecondField - b.SecondField)
	}
}

func sign(v int64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// Sub returns the number of seconds from b to a, treating both as UTC civil
// times with no zone knowledge. It mirrors CCTZ's DateTime operator-
// (DateTime - DateTime), which reduces both operands to a flat second count
// before subtracting.
func Sub(a, b Second) int64 {
	return ToUnix(a) - ToUnix(b)
}

// AddYears returns t with n years added, clamping the day of month down if
// the result would otherwise land on a day that does not exist (e.g. adding
// one year to Feb 29 on a leap year lands on Feb 28, not Mar 1).
func AddYears(t Second, n int64) Second {
	y := t.Year + n
	d := t.Day
	if d > daysInMonth(y, t.Month) {
		d = daysInMonth(y, t.Month)
	}
	return Second{Year: y, Month: t.Month, Day: d, Hour: t.Hour, Minute: t.Minute, SecondField: t.SecondField}
}

// AddMonths returns t with n months added, with the same day-of-month
// clamping behavior as AddYears.
func AddMonths(t Second, n int64) Second {
	y, m := carryMonth(t.Year, t.Month+n)
	d := t.Day
	if d > daysInMonth(y, m) {
		d = daysInMonth(y, m)
	}
	return Second{Year: y, Month: m, Day: d, Hour: t.Hour, Minute: t.Minute, SecondField: t.SecondField}
}

// AddDays returns t with n days added. n == math.MinInt64 is handled by
// splitting into two smaller additions, since -n would otherwise overflow.
func AddDays(t Second, n int64) Second {
	return addField(t, n, func(s Second, n int64) Second {
		return NewSecond(s.Year, s.Month, s.Day+n, s.Hour, s.Minute, s.SecondField)
	})
}

// AddHours returns t with n hours added.
func AddHours(t Second, n int64) Second {
	return addField(t, n, func(s Second, n int64) Second {
		return NewSecond(s.Year, s.Month, s.Day, s.Hour+n, s.Minute, s.SecondField)
	})
}

// AddMinutes returns t with n minutes added.
func AddMinutes(t Second, n int64) Second {
	return addField(t, n, func(s Second, n int64) Second {
		return NewSecond(s.Year, s.Month, s.Day, s.Hour, s.Minute+n, s.SecondField)
	})
}

// AddSeconds returns t with n seconds added.
func AddSeconds(t Second, n int64) Second {
	return addField(t, n, func(s Second, n int64) Second {
		return NewSecond(s.Year, s.Month, s.Day, s.Hour, s.Minute, s.SecondField+n)
	})
}

const minInt64 = -1 << 63

func addField(t Second, n int64, apply func(Second, int64) Second) Second {
	if n == minInt64 {
		return apply(apply(t, -(n + 1)), -1)
	}
	return apply(t, n)
}

// Weekday returns the day of week of t, using the same civil-calendar
// algorithm as the Go standard library (Zeller-equivalent via days-from-
// epoch modulo 7).
func Weekday(t Second) time.Weekday {
	days := daysSinceUnixEpoch(t.Year, t.Month, t.Day)
	// 1970-01-01 was a Thursday.
	wd := (days%7 + 7 + 4) % 7
	return time.Weekday(wd)
}

// NextWeekday returns the first civil day strictly after t.Day (same
// year/month truncated to day granularity) that falls on wd. It is never
// equal to the input day, even when the input already falls on wd.
func NextWeekday(t Second, wd time.Weekday) Second {
	cur := Weekday(t)
	delta := (int64(wd) - int64(cur) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return AddDays(t, delta)
}

// PrevWeekday returns the first civil day strictly before t.Day that falls
// on wd.
func PrevWeekday(t Second, wd time.Weekday) Second {
	cur := Weekday(t)
	delta := (int64(cur) - int64(wd) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return AddDays(t, -delta)
}

// YearDay returns the 1-based ordinal day of t within its year.
func YearDay(t Second) int {
	return int(daysSinceUnixEpoch(t.Year, t.Month, t.Day) - daysSinceUnixEpoch(t.Year, 1, 1) + 1)
}

// WeekOfYear returns the week number of t (00..53) counting from the first
// occurrence of start in the year: days before that occurrence are week 0.
// This is strftime's %U (start == time.Sunday) and %W (start == time.Monday).
func WeekOfYear(t Second, start time.Weekday) int {
	yday := int64(YearDay(t)) - 1
	jan1 := NewSecond(t.Year, 1, 1, 0, 0, 0)
	wdStart := (int64(Weekday(jan1)) - int64(start) + 7) % 7
	firstYday := (7 - wdStart) % 7
	if yday < firstYday {
		return 0
	}
	return int((yday-firstYday)/7 + 1)
}

// ISOWeek returns the ISO 8601 week-based year and week number (1..53) for
// t, following the same week-containing-the-year's-first-Thursday rule as
// the Go standard library's time.Time.ISOWeek.
func ISOWeek(t Second) (year int64, week int) {
	wd := int64(Weekday(t))
	if wd == 0 {
		wd = 7 // ISO weekday: Monday=1 .. Sunday=7
	}
	thursday := AddDays(t, 4-wd)
	return thursday.Year, (YearDay(thursday)-1)/7 + 1
}

// ToUnix returns the number of seconds between the Unix epoch and t,
// treating t as if it were UTC. This is a pure calendar computation with no
// knowledge of time zones; zone-aware conversion is tztime.Breakdown /
// tztime.Resolve.
func ToUnix(t Second) int64 {
	days := daysSinceUnixEpoch(t.Year, t.Month, t.Day)
	return days*86400 + t.Hour*3600 + t.Minute*60 + t.SecondField
}

// FromUnix is the inverse of ToUnix: it returns the UTC civil time for secs
// seconds since the Unix epoch.
func FromUnix(secs int64) Second {
	days, rem := floorDiv(secs, 86400)
	hour, rem := floorDiv(rem, 3600)
	minute, second := floorDiv(rem, 60)
	y, m, d := civilFromDays(days)
	return Second{Year: y, Month: m, Day: d, Hour: hour, Minute: minute, SecondField: second}
}

func floorDiv(a, b int64) (q, r int64) {
	q = a / b
	r = a % b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}

// daysSinceUnixEpoch returns the number of days between 1970-01-01 and the
// given proleptic-Gregorian civil date, which may be negative.
//
// This is Howard Hinnant's days_from_civil algorithm (also used by CCTZ's
// civil_time_detail.h), shifting the calendar so that March is month 0 of
// an internal year that starts on 2000-03-01 to make leap-day handling
// fall at the end of the internal year instead of in the middle.
func daysSinceUnixEpoch(y, m, d int64) int64 {
	y -= boolToInt(m <= 2)
	era := floorDivInt(y, 400)
	yoe := y - era*400              // [0, 399]
	mp := (m + 9) % 12              // [0, 11], Mar=0 .. Feb=11
	doy := (153*mp+2)/5 + d - 1     // [0, 365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy // [0, 146096]
	return era*146097 + doe - 719468
}

// civilFromDays is the inverse of daysSinceUnixEpoch.
func civilFromDays(z int64) (y, m, d int64) {
	z += 719468
	era := floorDivInt(z, 146097)
	doe := z - era*146097                                   // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365   // [0, 399]
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100) // [0, 365]
	mp := (5*doy + 2) / 153                  // [0, 11]
	d = doy - (153*mp+2)/5 + 1               // [1, 31]
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	y += boolToInt(m <= 2)
	return y, m, d
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
