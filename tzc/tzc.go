// Package tzc compiles parsed IANA tzdata source (package tzdata) into the
// binary tzfile format (package tzif), the same transformation zic
// performs.
package tzc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ngrash/go-tz/internal/tzir"
	"github.com/ngrash/go-tz/tzdata"
	"github.com/ngrash/go-tz/tzif"
)

// CompileBytes parses dataBuf as IANA tzdata source and compiles every zone
// it defines, returning each zone's encoded tzfile bytes keyed by zone
// name.
func CompileBytes(dataBuf []byte) (map[string][]byte, error) {
	f, err := tzdata.Parse(bytes.NewReader(dataBuf))
	if err != nil {
		return nil, err
	}
	compiled, err := Compile(f)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte)
	for zone, data := range compiled {
		buf := new(bytes.Buffer)
		if err := data.Encode(buf); err != nil {
			return nil, err
		}
		result[zone] = buf.Bytes()
	}
	return result, nil
}

// Compile compiles every zone defined in f.
func Compile(f tzdata.File) (map[string]tzif.Data, error) {
	var (
		zones    = make(map[string][]tzdata.ZoneLine)
		lastName string
	)
	for _, l := range f.ZoneLines {
		if !l.Continuation {
			lastName = l.Name
		}
		zones[lastName] = append(zones[lastName], l)
	}

	var result = make(map[string]tzif.Data)
	for name, zoneLines := range zones {
		z, err := compileZone(f, zoneLines)
		if err != nil {
			return nil, fmt.Errorf("compiling zone %s: %v", name, err)
		}
		if err := tzif.Validate(z); err != nil {
			return nil, fmt.Errorf("compiling zone %s: invalid tzif: %v", name, err)
		}
		result[name] = z
	}
	return result, nil
}

func compileZone(f tzdata.File, lines []tzdata.ZoneLine) (tzif.Data, error) {
	irzs, err := tzir.Process(f, lines)
	if err != nil {
		return tzif.Data{}, err
	}

	var b builder
	b.minimalV1Compliance()

	for _, z := range irzs {
		for _, t := range z.Transitions {
			b.addTransition(t.Occ, t.TypeOffset)
		}
	}

	b.deriveV2HeaderFromData()
	b.setFooter(posixTail(lines))

	return b.Data(), nil
}

// posixTail derives a minimal POSIX TZ tail string from the zone's final
// continuation line. A fully faithful implementation would re-derive the
// DST rule pair from the RuleLines still active in the final continuation;
// this is left as a known gap (see DESIGN.md) and the tail is emitted
// empty when it cannot be derived trivially (a plain numeric offset with
// no named rule set).
func posixTail(lines []tzdata.ZoneLine) string {
	if len(lines) == 0 {
		return ""
	}
	last := lines[len(lines)-1]
	if last.Rules.Form != tzdata.ZoneRulesName {
		// POSIX writes the offset west-positive, as hh[:mm[:ss]].
		off := -int64(last.Offset / time.Second)
		sign := ""
		if off < 0 {
			sign, off = "-", -off
		}
		tail := fmt.Sprintf("<%s>%s%d", last.Format, sign, off/3600)
		if m, s := (off/60)%60, off%60; m != 0 || s != 0 {
			tail += fmt.Sprintf(":%02d", m)
			if s != 0 {
				tail += fmt.Sprintf(":%02d", s)
			}
		}
		return tail
	}
	return ""
}
