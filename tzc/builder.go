package tzc

import "github.com/ngrash/go-tz/tzif"

// builder accumulates the pieces of a tzif.Data incrementally: local time
// types (deduplicated by UTC offset), transitions, and a footer. It mirrors
// the field-at-a-time construction tzfile writers like zic use internally.
type builder struct {
	offsetToType map[int64]int
	types        []tzif.LocalTimeTypeRecord
	designations []byte

	transitions []builtTransition
	tzString    string
}

type builtTransition struct {
	unix int64
	typ  int
}

// minimalV1Compliance seeds the builder with the single local time type
// RFC 8536 requires even when a zone has no transitions at all: a type
// record conveys no information in that case, but readers reject files
// that declare zero of them.
func (b *builder) minimalV1Compliance() {
	b.offsetToType = make(map[int64]int)
	b.addType(0, false, "UTC")
}

func (b *builder) addType(offset int64, dst bool, abbrev string) int {
	if idx, ok := b.offsetToType[offset]; ok {
		return idx
	}
	idx := len(b.types)
	b.types = append(b.types, tzif.LocalTimeTypeRecord{
		Utoff: int32(offset),
		Dst:   dst,
		Idx:   uint8(len(b.designations)),
	})
	b.designations = append(b.designations, []byte(abbrev)...)
	b.designations = append(b.designations, 0)
	b.offsetToType[offset] = idx
	return idx
}

// addTransition records a transition to offset (seconds east of UTC) at
// unix. The abbreviation is not tracked at this layer; a
// placeholder derived from the offset is used so that distinct offsets
// always get distinct, non-empty designations.
func (b *builder) addTransition(unix, offset int64) {
	typ := b.addType(offset, false, placeholderAbbrev(offset))
	b.transitions = append(b.transitions, builtTransition{unix: unix, typ: typ})
}

func placeholderAbbrev(offset int64) string {
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	h := offset / 3600
	m := (offset / 60) % 60
	return string([]byte{sign}) + itoa2(int(h)) + itoa2(int(m))
}

func itoa2(n int) string {
	const digits = "0123456789"
	return string([]byte{digits[(n/10)%10], digits[n%10]})
}

func (b *builder) setFooter(tzString string) {
	b.tzString = tzString
}

// Data renders the accumulated state as a V2 tzif.Data (32-bit V1 block
// mirrored for compatibility, 64-bit V2 block as the primary payload).
func (b *builder) Data() tzif.Data {
	timecnt := len(b.transitions)

	v1Times := make([]int32, timecnt)
	v2Times := make([]int64, timecnt)
	typeIdx := make([]uint8, timecnt)
	for i, t := range b.transitions {
		v1Times[i] = int32(t.unix)
		v2Times[i] = t.unix
		typeIdx[i] = uint8(t.typ)
	}

	v1 := tzif.V1DataBlock{
		TransitionTimes:     v1Times,
		TransitionTypes:     typeIdx,
		LocalTimeTypeRecord: b.types,
		TimeZoneDesignation: b.designations,
	}
	v2 := tzif.V2DataBlock{
		TransitionTimes:     v2Times,
		TransitionTypes:     typeIdx,
		LocalTimeTypeRecord: b.types,
		TimeZoneDesignation: b.designations,
	}

	v1Header := tzif.Header{
		Version: tzif.V2,
		Timecnt: uint32(timecnt),
		Typecnt: uint32(len(b.types)),
		Charcnt: uint32(len(b.designations)),
	}
	v2Header := v1Header
	v2Header.Version = tzif.V2

	return tzif.Data{
		Version:  tzif.V2,
		V1Header: v1Header,
		V1Data:   v1,
		V2Header: v2Header,
		V2Data:   v2,
		V2Footer: tzif.Footer{TZString: []byte(b.tzString)},
	}
}

func (b *builder) deriveV2HeaderFromData() {
	// Header fields are computed directly from accumulated state in
	// Data(); nothing to precompute here. Kept as an explicit step
	// (rather than folding into Data) because a future version-4 leap
	// second block would need to be finalized at this point too, in the
	// same place zic finalizes its header counts.
}
