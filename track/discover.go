package track

import "sort"

// ringedInt is a small wraparound counter over [base, base+modulus), used
// for sector-id sequence matching (supplemented from original_source's
// RingedInt.h, per SPEC_FULL.md).
type ringedInt struct {
	base, modulus int
}

func (r ringedInt) wrap(v int) int {
	m := ((v-r.base)%r.modulus + r.modulus) % r.modulus
	return r.base + m
}

// DiscoverSectorIDs infers the likely sector-ids missing from a partially
// read track by computing the average inter-sector bit-offset spacing,
// locating offset gaps where a sector must sit, and matching the visible
// ids against the {base, base+1, ...} sequence with wraparound (spec §4.1
// "discover sector-id scheme").
//
// expectedCount is the number of sectors the track should have (from a
// known regular Format, or the highest visible id+1 if unknown). base is
// the first legal sector-id. Returns the ids of sectors that appear absent.
func DiscoverSectorIDs(t *Track, expectedCount, base int) []int {
	present := make(map[int]bool)
	var offsets []int
	for _, s := range t.Sectors {
		if s.Flags.Orphan {
			continue
		}
		present[s.Header.Sector] = true
		if s.OffsetKnown() {
			offsets = append(offsets, s.Offset)
		}
	}

	inferred := expectedCount <= 0
	if inferred {
		max := base - 1
		for id := range present {
			if id > max {
				max = id
			}
		}
		expectedCount = max - base + 1
		if expectedCount <= 0 {
			return nil
		}
	}

	// When expectedCount had to be inferred from the highest visible id, a
	// run of sectors entirely unread at the high end of the sequence (or
	// wrapping past the index) leaves no trace in present and is invisible
	// to plain id diffing. Locate that hole from the bit-offset spacing: the
	// gap from the last observed sector back around to the first, compared
	// against the track's average inter-sector spacing, says how many
	// sector-sized slots it must hold.
	if inferred && t.TrackLen > 0 && len(offsets) >= 2 {
		sorted := append([]int(nil), offsets...)
		sort.Ints(sorted)
		avg := averageSpacing(sorted)
		if avg > 0 {
			wrapGap := t.TrackLen - sorted[len(sorted)-1] + sorted[0]
			if slots := int(float64(wrapGap)/avg + 0.5); slots > 1 {
				expectedCount += slots - 1
			}
		}
	}

	ring := ringedInt{base: base, modulus: expectedCount}

	var missing []int
	for i := 0; i < expectedCount; i++ {
		id := ring.wrap(base + i)
		if !present[id] {
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	return missing
}

// averageSpacing returns the mean distance between consecutive
// bit-offsets in a sorted-ascending slice; used to estimate where a hole
// in the sequence falls on the track.
func averageSpacing(offsets []int) float64 {
	if len(offsets) < 2 {
		return 0
	}
	sorted := append([]int(nil), offsets...)
	sort.Ints(sorted)
	total := 0
	for i := 1; i < len(sorted); i++ {
		total += sorted[i] - sorted[i-1]
	}
	return float64(total) / float64(len(sorted)-1)
}
