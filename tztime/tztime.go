// Package tztime is the public lookup surface: converting between absolute
// instants and civil time under a zone, dispatching over the zone's two
// possible representations (a fixed offset or a full transition table) as
// CCTZ's time_zone.h facade does.
package tztime

import (
	"github.com/ngrash/go-tz/civil"
	"github.com/ngrash/go-tz/fixedzone"
	"github.com/ngrash/go-tz/tzreg"
	"github.com/ngrash/go-tz/zoneinfo"
)

// AbsoluteLookup is the result of converting an instant to civil time.
type AbsoluteLookup struct {
	Civil  civil.Second
	Offset int32
	Abbrev string
	IsDST  bool
	// Nanos is the sub-second residue of the instant, carried through
	// unchanged for formatting (e.g. strftime's %E#S); it plays no part in
	// selecting which zone offset applies.
	Nanos int32
}

// Breakdown converts unix (seconds since the epoch) plus nanos (the
// instant's sub-second residue, in [0, 1e9)) to civil time under zone.
func Breakdown(zone *tzreg.Handle, unix int64, nanos int32) AbsoluteLookup {
	switch zone.Kind {
	case tzreg.KindFixed:
		return AbsoluteLookup{
			Civil:  civil.FromUnix(unix + int64(zone.Fixed.Offset)),
			Offset: zone.Fixed.Offset,
			Abbrev: fixedzone.Abbrev(zone.Fixed),
			Nanos:  nanos,
		}
	default:
		b := zone.Info.Breakdown(unix)
		return AbsoluteLookup{Civil: b.Civil, Offset: b.Type.UTCOffset, Abbrev: b.Type.Abbrev, IsDST: b.Type.IsDST, Nanos: nanos}
	}
}

// CivilLookup is the result of resolving a civil time under a zone.
type CivilLookup struct {
	Kind             zoneinfo.Kind
	Pre, Trans, Post int64
	// Normalized is true when c's fields were out of range and had to be
	// carried into range before resolution (see zoneinfo.Resolution).
	Normalized bool
}

// Resolve converts a civil time to the instant(s) it can denote under zone.
func Resolve(zone *tzreg.Handle, c civil.Second) CivilLookup {
	switch zone.Kind {
	case tzreg.KindFixed:
		normalized := civil.NewSecond(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.SecondField)
		u := civil.ToUnix(normalized) - int64(zone.Fixed.Offset)
		return CivilLookup{Kind: zoneinfo.Unique, Pre: u, Post: u, Normalized: normalized != c}
	default:
		r := zone.Info.Resolve(c)
		return CivilLookup{Kind: r.Kind, Pre: r.Pre, Trans: r.Trans, Post: r.Post, Normalized: r.Normalized}
	}
}

// Local resolves the process's local zone the way CCTZ's time_zone_libc.cc
// does: via the TZ environment variable, falling back to "localtime" (and
// from there to /etc/localtime) when TZ is unset.
func Local() *tzreg.Handle {
	name := tzreg.LocalZoneName()
	if name == "" {
		name = "localtime"
	}
	h, _ := tzreg.Load(name)
	return h
}
