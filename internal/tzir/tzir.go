// Package tzir computes, for each named zone in a parsed tzdata source
// file, the ordered list of transitions that a compiled tzfile must
// encode. It is the intermediate representation between the IANA source
// parser (package tzdata) and the tzfile writer (package tzc).
package tzir

import (
	"fmt"
	"sort"
	"time"

	"github.com/ngrash/go-tz/internal/tzexpand"
	"github.com/ngrash/go-tz/internal/unixtime"
	"github.com/ngrash/go-tz/tzdata"
	"github.com/sirupsen/logrus"
)

// maxIterationYear bounds the year-by-year search for a zone's active
// rules. No real zone's rule set takes this long to stabilize; it exists
// only to turn a malformed input into an error instead of an infinite
// loop.
const maxIterationYear = 2100

// Process computes the transitions for every zone named in zs, using the
// rule definitions in f.
func Process(f tzdata.File, zs []tzdata.ZoneLine) ([]Zone, error) {
	var (
		zones        []Zone
		activeOffset int64
	)
	for _, z := range zs {
		if z.Rules.Form != tzdata.ZoneRulesName {
			// A fixed SAVE (not a named rule set) never transitions on
			// its own; it contributes only its zone offset.
			zones = append(zones, Zone{Source: z, Expires: true})
			continue
		}

		rs, err := findRules(f.RuleLines, z.Rules.Name)
		if err != nil {
			return nil, err
		}

		var irz Zone
		irz.Source = z
		y := firstYear(rs)
		for {
			if y > maxIterationYear {
				return nil, fmt.Errorf("zone %s: rules for %s did not stabilize by year %d", z.Name, z.Rules.Name, maxIterationYear)
			}

			ars := activeRules(rs, y)

			// First pass: find each active rule's occurrence in y in
			// universal time, ignoring local offsets. The occurrences
			// are then re-ordered using the offset of whichever rule
			// is in effect at the time, since that is what decides the
			// real wall-clock offset applied to the rule's AT field.
			var transitions []transition
			for _, r := range ars {
				utocc := ruleOccurrenceIn(r, y)
				transitions = append(transitions, transition{
					utoccy: y,
					utocc:  utocc,
					r:      r,
					off:    ruleOffset(z, r),
				})
			}
			sort.Slice(transitions, func(i, j int) bool { return transitions[i].utocc < transitions[j].utocc })

			var done bool
			for i, t := range transitions {
				t.occ = t.utocc - activeOffset
				transitions[i] = t
				activeOffset = t.off

				if t.r.Save.Form == tzdata.StandardTime && !irz.definesStdTime {
					irz.FirstStdTime = Transition{Occ: t.occ, TypeOffset: t.off}
					irz.definesStdTime = true
				}

				irz.Transitions = append(irz.Transitions, Transition{Occ: t.occ, TypeOffset: t.off})

				if z.Until.Defined {
					until := tzexpand.Earliest(z.Until)
					until = until - activeOffset + int64(z.Offset/time.Second)
					if t.occ > until {
						logrus.WithField("zone", z.Name).WithField("until", until).
							Debug("tzir: zone expires; continuation line takes over")
						irz.Expires = true
						done = true
						break
					}
				}
			}
			if done {
				break
			}

			if validForever(z, ars) {
				irz.Expires = false
				break
			}
			y++
		}
		zones = append(zones, irz)
	}

	return zones, nil
}

// Zone is the computed transition history for one Zone/continuation-line
// group from the source file.
type Zone struct {
	Source tzdata.ZoneLine

	// Expires is true when this zone's rules are known to stop applying
	// at some point (a finite Zone continuation, or a fixed-offset zone
	// with no named rule set). When false, Transitions already includes
	// the indefinitely-repeating tail.
	Expires bool

	// FirstStdTime is the zone's first transition into standard time. It
	// is recorded here only; tzc does not read it.
	FirstStdTime   Transition
	definesStdTime bool

	// Transitions are every computed transition for this zone, in
	// chronological order.
	Transitions []Transition
}

// Transition is one computed transition: an absolute instant (Occ, Unix
// seconds) and the UTC offset (zone offset + rule SAVE) that applies from
// that instant onward.
type Transition struct {
	Occ        int64
	TypeOffset int64
}

type transition struct {
	r      tzdata.RuleLine
	utoccy int
	utocc  int64
	occ    int64
	off    int64
}

func ruleOffset(z tzdata.ZoneLine, r tzdata.RuleLine) int64 {
	zoff := int64(z.Offset / time.Second)
	roff := int64(r.Save.Duration / time.Second)
	return zoff + roff
}

func validForever(z tzdata.ZoneLine, rs []tzdata.RuleLine) bool {
	if z.Until.Defined {
		return false
	}
	for _, r := range rs {
		if r.To != tzdata.MaxYear {
			return false
		}
	}
	return true
}

func firstYear(rs []tzdata.RuleLine) int {
	if len(rs) == 0 {
		return 0
	}
	y := int(rs[0].From)
	for _, r := range rs {
		y = min(y, int(r.From))
	}
	return y
}

func activeRules(rs []tzdata.RuleLine, year int) []tzdata.RuleLine {
	var active []tzdata.RuleLine
	for _, r := range rs {
		if int(r.From) <= year && int(r.To) >= year {
			active = append(active, r)
		}
	}
	return active
}

func ruleOccurrenceIn(r tzdata.RuleLine, year int) int64 {
	y, m, d := tzexpand.DayOfMonth(year, r.In, r.On)
	hours, minutes, seconds := splitTime(r.At.Duration)
	return unixtime.FromDateTime(y, int(m), d, hours, minutes, seconds)
}

func splitTime(t time.Duration) (int, int, int) {
	h := int(t / time.Hour)
	m := int(t/time.Minute) % 60
	s := int(t/time.Second) % 60
	return h, m, s
}

func findRules(l []tzdata.RuleLine, name string) ([]tzdata.RuleLine, error) {
	var rules []tzdata.RuleLine
	for _, r := range l {
		if r.Name == name {
			rules = append(rules, r)
		}
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules found for name %s", name)
	}
	return rules, nil
}
