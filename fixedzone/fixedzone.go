// Package fixedzone implements zones with a single, permanent UTC offset
// and no transitions, e.g. "Etc/GMT+5" or a raw numeric offset. It follows
// CCTZ's time_zone_fixed.cc naming scheme so that round-tripping a fixed
// offset through a name and back is lossless.
package fixedzone

import "fmt"

// MaxOffset is the largest magnitude offset, in seconds, a fixed zone may
// carry. Offsets outside [-MaxOffset, MaxOffset] collapse to UTC.
const MaxOffset = 24 * 60 * 60

// Zone is a single, unchanging UTC offset.
type Zone struct {
	Offset int32 // seconds east of UTC
}

// New returns a Zone for offset seconds east of UTC, clamped to UTC if the
// magnitude exceeds MaxOffset. ±MaxOffset itself is accepted, matching
// CCTZ's FixedOffsetFromName (time_zone_fixed.cc), which only rejects
// magnitudes strictly greater than 24h.
func New(offset int32) Zone {
	if offset < -MaxOffset || offset > MaxOffset {
		return Zone{Offset: 0}
	}
	return Zone{Offset: offset}
}

// Name returns the canonical name for z, e.g. "Fixed/UTC+05:30:00", or
// "UTC" for a zero offset.
func Name(z Zone) string {
	if z.Offset == 0 {
		return "UTC"
	}
	sign := byte('+')
	off := z.Offset
	if off < 0 {
		sign = '-'
		off = -off
	}
	h, m, s := off/3600, (off/60)%60, off%60
	return fmt.Sprintf("Fixed/UTC%c%02d:%02d:%02d", sign, h, m, s)
}

// Parse parses a name produced by Name (or the bare "UTC"), returning
// (zone, true) on success.
func Parse(name string) (Zone, bool) {
	if name == "UTC" {
		return Zone{}, true
	}
	const prefix = "Fixed/UTC"
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return Zone{}, false
	}
	rest := name[len(prefix):]
	if len(rest) != 9 || (rest[0] != '+' && rest[0] != '-') || rest[3] != ':' || rest[6] != ':' {
		return Zone{}, false
	}
	var h, m, s int
	if _, err := fmt.Sscanf(rest[1:3], "%02d", &h); err != nil {
		return Zone{}, false
	}
	if _, err := fmt.Sscanf(rest[4:6], "%02d", &m); err != nil {
		return Zone{}, false
	}
	if _, err := fmt.Sscanf(rest[7:9], "%02d", &s); err != nil {
		return Zone{}, false
	}
	off := int32(h*3600 + m*60 + s)
	if rest[0] == '-' {
		off = -off
	}
	return New(off), true
}

// Abbrev returns the display abbreviation for z: the same as Name but with
// "Fixed/" stripped and trailing zero fields elided down to hour
// granularity, e.g. "UTC+09:30:05", "UTC+09:30", "UTC+09", "UTC".
func Abbrev(z Zone) string {
	name := Name(z)
	const prefix = "Fixed/"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		name = name[len(prefix):]
	}
	for {
		if len(name) >= 3 && name[len(name)-3:] == ":00" {
			trimmed := name[:len(name)-3]
			if trimmed == "UTC+00" || trimmed == "UTC-00" {
				return "UTC"
			}
			name = trimmed
			continue
		}
		break
	}
	return name
}
