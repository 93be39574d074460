// Package zoneinfo builds a queryable time zone out of a decoded tzif.Data
// file: a transition table plus an optional POSIX TZ tail for instants
// beyond the table's last real transition. It implements the
// instant-to-civil (Breakdown) and civil-to-instant (Resolve) lookups that
// are CCTZ's TimeZoneInfo::BreakTime and TimeZoneInfo::MakeTimeInfo.
package zoneinfo

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/ngrash/go-tz/civil"
	"github.com/ngrash/go-tz/posixtz"
	"github.com/ngrash/go-tz/tzif"
	"github.com/sirupsen/logrus"
)

// TransitionType is a decoded local time type: an offset from UTC, whether
// it is DST, and its designation string (e.g. "CEST").
type TransitionType struct {
	UTCOffset int32
	IsDST     bool
	Abbrev    string
}

// Transition is one point where the rules for computing local time change.
// Civil and PrevCivil are the civil time immediately at and immediately
// before the transition, precomputed so that lookups never need to redo
// the conversion.
type Transition struct {
	Unix      int64
	TypeIndex int
	Civil     civil.Second
	PrevCivil civil.Second
}

// Info is a fully built, queryable zone.
type Info struct {
	Transitions []Transition
	Types       []TransitionType

	// DefaultType is used for instants before the first transition.
	DefaultType int

	// Extended is true when the POSIX tail was used to synthesize
	// additional transitions beyond the file's real data.
	Extended bool
	// LastYear is the civil year of the last transition (real or
	// synthesized), used to decide when Breakdown/Resolve must recurse
	// with a 400-year shift.
	LastYear int64

	// hints memoize the index of the last successful lookup for each
	// direction. They are a pure performance optimization: a stale or
	// zero value never produces a wrong answer, only a slower one.
	unixHint   atomic.Int64
	civilHint  atomic.Int64
}

// LoadError reports a structurally invalid tzif.Data.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string { return fmt.Sprintf("zoneinfo: %s", e.Reason) }

const (
	maxOffset = 24 * 60 * 60
)

// Build validates and decodes d into a queryable Info. name is used only
// for diagnostic logging (a malformed POSIX tail is not fatal; it is
// logged and the zone is loaded without the extension).
func Build(name string, d tzif.Data) (*Info, error) {
	if d.V1Header.Leapcnt != 0 || (d.Version > tzif.V1 && d.V2Header.Leapcnt != 0) {
		return nil, &LoadError{Reason: "leap second records are not supported"}
	}

	// Prefer the 64-bit V2+ block when present; it has identical
	// semantics to V1 but wider range.
	var (
		transitionTimes []int64
		transitionIdx   []uint8
		records         []tzif.LocalTimeTypeRecord
		designations    []byte
		tzString        string
	)
	if d.Version > tzif.V1 {
		transitionTimes = d.V2Data.TransitionTimes
		transitionIdx = d.V2Data.TransitionTypes
		records = d.V2Data.LocalTimeTypeRecord
		designations = d.V2Data.TimeZoneDesignation
		tzString = string(d.V2Footer.TZString)
	} else {
		for _, t := range d.V1Data.TransitionTimes {
			transitionTimes = append(transitionTimes, int64(t))
		}
		transitionIdx = d.V1Data.TransitionTypes
		records = d.V1Data.LocalTimeTypeRecord
		designations = d.V1Data.TimeZoneDesignation
	}

	if len(records) == 0 {
		return nil, &LoadError{Reason: "no local time type records"}
	}

	types := make([]TransitionType, len(records))
	for i, r := range records {
		if r.Utoff <= -maxOffset || r.Utoff >= maxOffset {
			return nil, &LoadError{Reason: fmt.Sprintf("local time type %d: offset %d out of range", i, r.Utoff)}
		}
		types[i] = TransitionType{
			UTCOffset: r.Utoff,
			IsDST:     r.Dst,
			Abbrev:    designation(designations, r.Idx),
		}
	}

	for i, idx := range transitionIdx {
		if int(idx) >= len(types) {
			return nil, &LoadError{Reason: fmt.Sprintf("transition %d: type index %d out of range", i, idx)}
		}
	}
	for i := 1; i < len(transitionTimes); i++ {
		if transitionTimes[i] <= transitionTimes[i-1] {
			return nil, &LoadError{Reason: fmt.Sprintf("transition %d: not strictly increasing", i)}
		}
	}

	info := &Info{
		Types:       types,
		DefaultType: defaultTransitionType(types, transitionIdx),
	}
	info.Transitions = make([]Transition, len(transitionTimes))
	for i, t := range transitionTimes {
		off := types[transitionIdx[i]].UTCOffset
		c := civil.FromUnix(t + int64(off))
		info.Transitions[i] = Transition{Unix: t, TypeIndex: int(transitionIdx[i]), Civil: c}
		if i > 0 {
			info.Transitions[i].PrevCivil = civil.FromUnix(t + int64(types[transitionIdx[i-1]].UTCOffset) - 1)
		}
	}
	if len(info.Transitions) > 0 {
		info.LastYear = info.Transitions[len(info.Transitions)-1].Civil.Year
	}

	if tzString != "" {
		spec, err := posixtz.Parse(tzString)
		if err != nil {
			logrus.WithField("zone", name).WithField("tzstring", tzString).
				Warn("zoneinfo: ignoring malformed POSIX TZ tail")
		} else if spec.HasDST && len(info.Transitions) > 0 {
			if err := info.extend(spec); err != nil {
				logrus.WithField("zone", name).WithError(err).
					Warn("zoneinfo: failed to extend transition table from POSIX TZ tail")
			} else {
				info.Extended = true
			}
		}
	}

	for i := 1; i < len(info.Transitions); i++ {
		if civil.Sub(info.Transitions[i].Civil, info.Transitions[i-1].Civil) <= 0 {
			return nil, &LoadError{Reason: "transition table is not strictly increasing in civil time"}
		}
	}

	return info, nil
}

func designation(pool []byte, idx uint8) string {
	end := int(idx)
	for end < len(pool) && pool[end] != 0 {
		end++
	}
	if int(idx) >= len(pool) {
		return ""
	}
	return string(pool[idx:end])
}

// defaultTransitionType picks the type used for instants before the first
// transition: type 0 if it is not DST, otherwise the nearest type (by
// index among those actually used) that is not DST, matching CCTZ's
// ResetToBuiltinUTC / Load scan.
func defaultTransitionType(types []TransitionType, used []uint8) int {
	if len(types) == 0 {
		return 0
	}
	if !types[0].IsDST {
		return 0
	}
	seen := make(map[uint8]bool)
	for _, u := range used {
		seen[u] = true
	}
	for idx := range types {
		if !types[idx].IsDST && (len(used) == 0 || seen[uint8(idx)]) {
			return idx
		}
	}
	return 0
}

// extensionYears is how many years of synthetic transitions to generate
// from a POSIX tail once the real transition table runs out, chosen to
// span a full 400-year Gregorian calendaric cycle.
const extensionYears = 400

// extend synthesizes up to 2*extensionYears transitions from spec, starting
// the year after the last real transition.
func (info *Info) extend(spec posixtz.Spec) error {
	stdIdx := info.typeIndexFor(int32(spec.StdOffset), false, spec.StdName)
	dstIdx := info.typeIndexFor(int32(spec.DSTOffset), true, spec.DSTName)

	startYear := info.Transitions[len(info.Transitions)-1].Civil.Year + 1
	var synth []Transition
	for y := startYear; y < startYear+extensionYears; y++ {
		startCivil := ruleCivilDate(y, spec.Start)
		endCivil := ruleCivilDate(y, spec.End)

		startUnix := civil.ToUnix(startCivil) - int64(spec.StdOffset)
		endUnix := civil.ToUnix(endCivil) - int64(spec.DSTOffset)

		startT := Transition{Unix: startUnix, TypeIndex: dstIdx, Civil: civil.FromUnix(startUnix + int64(spec.DSTOffset))}
		endT := Transition{Unix: endUnix, TypeIndex: stdIdx, Civil: civil.FromUnix(endUnix + int64(spec.StdOffset))}

		if startUnix < endUnix {
			synth = append(synth, startT, endT)
		} else {
			synth = append(synth, endT, startT)
		}
	}

	sort.Slice(synth, func(i, j int) bool { return synth[i].Unix < synth[j].Unix })
	for i := range synth {
		if i == 0 {
			lastOff := info.Types[info.Transitions[len(info.Transitions)-1].TypeIndex].UTCOffset
			synth[i].PrevCivil = civil.FromUnix(synth[i].Unix + int64(lastOff) - 1)
		} else {
			prevOff := info.Types[synth[i-1].TypeIndex].UTCOffset
			synth[i].PrevCivil = civil.FromUnix(synth[i].Unix + int64(prevOff) - 1)
		}
	}

	info.Transitions = append(info.Transitions, synth...)
	if len(info.Transitions) > 0 {
		info.LastYear = info.Transitions[len(info.Transitions)-1].Civil.Year
	}
	return nil
}

func (info *Info) typeIndexFor(offset int32, isDST bool, abbrev string) int {
	for i, t := range info.Types {
		if t.UTCOffset == offset && t.IsDST == isDST {
			return i
		}
	}
	info.Types = append(info.Types, TransitionType{UTCOffset: offset, IsDST: isDST, Abbrev: abbrev})
	return len(info.Types) - 1
}

// ruleCivilDate returns the civil date (at 00:00:00) on which rule r occurs
// in year, plus its time of day, fully normalized.
func ruleCivilDate(year int64, r posixtz.Rule) civil.Second {
	var ordinal int64
	switch r.Form {
	case posixtz.JulianNoLeap:
		ordinal = int64(r.Day)
		if ordinal > 59 && isLeap(year) {
			ordinal++
		}
	case posixtz.JulianLeap:
		ordinal = int64(r.Day) + 1
	case posixtz.MonthWeekDay:
		base := civil.NewSecond(year, int64(r.Month), 1, 0, 0, 0)
		wd := civil.Weekday(base)
		delta := (int64(r.Weekday) - int64(wd) + 7) % 7
		first := civil.AddDays(base, delta)
		if r.Week == 5 {
			// Last occurrence: step forward by 7 days while still in
			// the same month.
			cur := first
			for {
				next := civil.AddDays(cur, 7)
				if next.Month != int64(r.Month) {
					break
				}
				cur = next
			}
			return civil.AddSeconds(cur, int64(r.TimeOfDay))
		}
		day := civil.AddDays(first, int64(r.Week-1)*7)
		return civil.AddSeconds(day, int64(r.TimeOfDay))
	}
	jan1 := civil.NewSecond(year, 1, 1, 0, 0, 0)
	day := civil.AddDays(jan1, ordinal-1)
	return civil.AddSeconds(day, int64(r.TimeOfDay))
}

func isLeap(year int64) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// yearsPer400YearCycle is the length, in years, of one Gregorian
// calendaric-equivalence cycle: 146097 days repeat their weekday/leap-year
// pattern exactly. Shifting both an instant and its expected answer by this
// many years (and the matching number of seconds) lets Breakdown and Resolve answer far-future and
// far-past queries by reusing the last extended cycle instead of
// synthesizing transitions forever.
const yearsPer400YearCycle = 400

// Breakdown converts an absolute instant to civil time plus the
// TransitionType in effect at that instant.
type Breakdown struct {
	Civil  civil.Second
	Type   TransitionType
}

// Breakdown implements instant-to-civil lookup (CCTZ's BreakTime).
func (info *Info) Breakdown(unix int64) Breakdown {
	if len(info.Transitions) == 0 {
		return Breakdown{Civil: civil.FromUnix(unix + int64(info.Types[info.DefaultType].UTCOffset)), Type: info.Types[info.DefaultType]}
	}
	if unix < info.Transitions[0].Unix {
		return Breakdown{Civil: civil.FromUnix(unix + int64(info.Types[info.DefaultType].UTCOffset)), Type: info.Types[info.DefaultType]}
	}

	last := info.Transitions[len(info.Transitions)-1]
	if info.Extended && unix > last.Unix {
		shift := yearsPer400YearCycle
		shiftSeconds := civil.ToUnix(civil.AddYears(civil.FromUnix(0), int64(shift)))
		b := info.Breakdown(unix - shiftSeconds)
		return Breakdown{Civil: civil.AddYears(b.Civil, int64(shift)), Type: b.Type}
	}

	idx := info.searchUnix(unix)
	t := info.Transitions[idx]
	typ := info.Types[t.TypeIndex]
	return Breakdown{Civil: civil.FromUnix(unix + int64(typ.UTCOffset)), Type: typ}
}

// searchUnix returns the index of the last transition with Unix <= unix,
// trying the memoized hint first.
func (info *Info) searchUnix(unix int64) int {
	n := len(info.Transitions)
	if h := int(info.unixHint.Load()); h >= 0 && h < n {
		if info.Transitions[h].Unix <= unix && (h == n-1 || info.Transitions[h+1].Unix > unix) {
			return h
		}
	}
	idx := sort.Search(n, func(i int) bool { return info.Transitions[i].Unix > unix }) - 1
	if idx < 0 {
		idx = 0
	}
	info.unixHint.Store(int64(idx))
	return idx
}

// Kind classifies the result of resolving a civil time to an instant.
type Kind int

const (
	// Unique means the civil time names exactly one instant.
	Unique Kind = iota
	// Skipped means the civil time falls in a gap created by a forward
	// transition (e.g. spring-forward) and never occurs.
	Skipped
	// Repeated means the civil time falls in an interval that occurs
	// twice, created by a backward transition (e.g. fall-back).
	Repeated
)

// Resolution is the result of resolving a civil time to one or more
// instants, following CCTZ's TimeInfo.
type Resolution struct {
	Kind Kind
	// Pre is the instant obtained by interpreting the civil time with the
	// offset in effect before the nearest transition.
	Pre int64
	// Trans is the instant of the relevant transition itself. Zero value
	// (with Kind == Unique) when no transition is nearby.
	Trans int64
	// Post is the instant obtained with the offset in effect after the
	// nearest transition.
	Post int64
	// Normalized is true when the input civil.Second's fields were out of
	// range (e.g. a struct literal built without civil.NewSecond) and had
	// to be carried into range before resolution, per CCTZ's
	// TimeInfo::normalized.
	Normalized bool
}

// Resolve implements civil-to-instant lookup (CCTZ's MakeTimeInfo).
func (info *Info) Resolve(c civil.Second) Resolution {
	normalized := civil.NewSecond(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.SecondField)
	wasNormalized := normalized != c
	c = normalized

	r := info.resolve(c)
	r.Normalized = wasNormalized
	return r
}

func (info *Info) resolve(c civil.Second) Resolution {
	if len(info.Transitions) == 0 {
		u := civil.ToUnix(c) - int64(info.Types[info.DefaultType].UTCOffset)
		return Resolution{Kind: Unique, Pre: u, Post: u}
	}

	first := info.Transitions[0]
	if civil.Compare(c, first.Civil) < 0 {
		u := civil.ToUnix(c) - int64(info.Types[info.DefaultType].UTCOffset)
		return Resolution{Kind: Unique, Pre: u, Post: u}
	}

	last := info.Transitions[len(info.Transitions)-1]
	if info.Extended && civil.Compare(c, last.Civil) > 0 {
		shift := int64(yearsPer400YearCycle)
		shiftSeconds := civil.ToUnix(civil.AddYears(civil.FromUnix(0), shift))
		r := info.resolve(civil.AddYears(c, -shift))
		return Resolution{Kind: r.Kind, Pre: addShift(r.Pre, shiftSeconds), Trans: addShift(r.Trans, shiftSeconds), Post: addShift(r.Post, shiftSeconds)}
	}

	idx := info.searchCivil(c)
	tr := info.Transitions[idx]
	prevType := info.Types[info.DefaultType]
	if idx > 0 {
		prevType = info.Types[info.Transitions[idx-1].TypeIndex]
	}
	curType := info.Types[tr.TypeIndex]

	beforePre := civil.Compare(c, tr.PrevCivil) <= 0
	afterPost := civil.Compare(c, tr.Civil) >= 0

	switch {
	case beforePre && afterPost:
		// Gap: civil time is on or before the last instant of the old
		// offset AND on or after the first instant of the new offset is
		// impossible simultaneously unless pre==post; guard defensively.
		u := civil.ToUnix(c) - int64(curType.UTCOffset)
		return Resolution{Kind: Unique, Pre: u, Post: u}
	case !beforePre && !afterPost:
		// Repeated: c falls in both intervals (offset decreased, clock
		// went backward).
		pre := civil.ToUnix(c) - int64(prevType.UTCOffset)
		post := civil.ToUnix(c) - int64(curType.UTCOffset)
		return Resolution{Kind: Repeated, Pre: pre, Trans: tr.Unix, Post: post}
	case beforePre && !afterPost:
		// Skipped: c falls after the old interval's end and before the
		// new interval's start (offset increased, clock jumped forward).
		pre := civil.ToUnix(c) - int64(prevType.UTCOffset)
		post := civil.ToUnix(c) - int64(curType.UTCOffset)
		return Resolution{Kind: Skipped, Pre: pre, Trans: tr.Unix, Post: post}
	default:
		u := civil.ToUnix(c) - int64(curType.UTCOffset)
		return Resolution{Kind: Unique, Pre: u, Post: u}
	}
}

func addShift(v, shift int64) int64 {
	if v == 0 {
		return 0
	}
	return v + shift
}

// searchCivil returns the index of the first transition whose Civil is
// >= c, trying the memoized hint first.
func (info *Info) searchCivil(c civil.Second) int {
	n := len(info.Transitions)
	if h := int(info.civilHint.Load()); h >= 0 && h < n {
		lowOK := h == 0 || civil.Compare(info.Transitions[h-1].Civil, c) < 0
		if lowOK && civil.Compare(info.Transitions[h].Civil, c) >= 0 {
			return h
		}
	}
	idx := sort.Search(n, func(i int) bool { return civil.Compare(info.Transitions[i].Civil, c) >= 0 })
	if idx == n {
		idx = n - 1
	}
	info.civilHint.Store(int64(idx))
	return idx
}
