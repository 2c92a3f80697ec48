// Package track implements the Track algebra: add/merge/repair/normalise,
// repeated-sector validation, sector-id scheme discovery and multi-revolution
// offset synchronisation (spec §4.1). Grounded on the teacher's mfm.Reader
// scan discipline and on spec.md's distillation of SAMdisk's Track.cpp.
package track

import (
	"fmt"
	"sort"

	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/sector"
)

// compareToleranceBytes is the fixed tolerance (in bytes on the medium)
// used when searching for an existing sector at "the same" offset; it is
// translated to a bit-offset tolerance via the active data rate/encoding
// (spec §4.1 "COMPARE_TOLERANCE_BYTES").
const compareToleranceBytes = 16

// Track is one side of one cylinder at one moment: an offset-ordered set of
// sectors plus track-level timing (spec §3).
type Track struct {
	Sectors   []sector.Sector
	TrackLen  int // bitcells in one revolution
	TrackTime int // microseconds per revolution

	DataRate sector.DataRate
	Encoding sector.Encoding
}

// AddResult describes which of the four outcomes Track.Add produced.
type AddResult int

const (
	Append AddResult = iota
	Insert
	Merge
	Unchanged
)

func (r AddResult) String() string {
	switch r {
	case Append:
		return "append"
	case Insert:
		return "insert"
	case Merge:
		return "merge"
	default:
		return "unchanged"
	}
}

// toleranceBits converts compareToleranceBytes to a bit-offset tolerance
// for the track's data rate/encoding: 1 byte = 8 data bits, and MFM spends
// 2 bitcells/databit while FM spends 1.
func (t *Track) toleranceBits() int {
	bitsPerByte := 16
	if t.Encoding == sector.EncFM {
		bitsPerByte = 8
	}
	return compareToleranceBytes * bitsPerByte
}

// findByOffset returns the index of a sector within tolerance of offset, or
// -1 if none exists. Sectors are kept offset-ordered so this is a linear
// scan bounded by the tolerance window rather than a full binary search
// (ties at the boundary are deliberately inclusive, matching <=).
func (t *Track) findByOffset(offset int) int {
	tol := t.toleranceBits()
	best := -1
	bestDist := tol + 1
	for i, s := range t.Sectors {
		if !s.OffsetKnown() || offset == 0 {
			continue
		}
		d := s.Offset - offset
		if d < 0 {
			d = -d
		}
		if d <= tol && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// insertSorted inserts s at the position that keeps Sectors offset-ordered.
func (t *Track) insertSorted(s sector.Sector) {
	idx := sort.Search(len(t.Sectors), func(i int) bool {
		return t.Sectors[i].Offset >= s.Offset
	})
	t.Sectors = append(t.Sectors, sector.Sector{})
	copy(t.Sectors[idx+1:], t.Sectors[idx:])
	t.Sectors[idx] = s
}

// Add inserts, merges, or appends a newly observed sector into the track
// (spec §4.1 add(sector)). Offset 0 always appends (offset unknown).
// Sectors recorded at an incompatible data rate are rejected.
func (t *Track) Add(s sector.Sector) (AddResult, error) {
	if len(t.Sectors) > 0 && !sector.CompatibleRate(t.DataRate, s.DataRate) {
		return Unchanged, fmt.Errorf("track: cannot mix datarate %v into track recorded at %v", s.DataRate, t.DataRate)
	}
	if len(t.Sectors) == 0 {
		t.DataRate = s.DataRate
		t.Encoding = s.Encoding
	}

	if !s.OffsetKnown() {
		t.Sectors = append(t.Sectors, s)
		return Append, nil
	}

	if idx := t.findByOffset(s.Offset); idx >= 0 {
		result := t.Sectors[idx].Merge(s)
		if result == sector.MergeUnchanged || result == sector.MergeMatched {
			return Unchanged, nil
		}
		return Merge, nil
	}

	t.insertSorted(s)
	return Insert, nil
}

// headerKey identifies a physical sector across observations:
// header plus encoding (datarate is compared separately via CompatibleRate).
type headerKey struct {
	h   sector.Header
	enc sector.Encoding
}

// RepeatedIDs returns the set of sector-ids that appear on two or more
// non-orphan sectors sharing the same header (spec §4.1 repeated-sector
// handling). Legal on copy-protected disks, illegal under normal-disk mode.
func (t *Track) RepeatedIDs() []int {
	counts := make(map[headerKey]int)
	for _, s := range t.Sectors {
		if s.Flags.Orphan {
			continue
		}
		counts[headerKey{s.Header, s.Encoding}]++
	}
	var ids []int
	seen := make(map[int]bool)
	for k, n := range counts {
		if n >= 2 && !seen[k.h.Sector] {
			ids = append(ids, k.h.Sector)
			seen[k.h.Sector] = true
		}
	}
	sort.Ints(ids)
	return ids
}

// Validate checks structural invariants and returns the first violation
// found as one of the §7 structural error kinds, wrapping core.Err*.
func (t *Track) Validate(normalDisk bool) error {
	for i := 1; i < len(t.Sectors); i++ {
		if t.Sectors[i].OffsetKnown() && t.Sectors[i].Offset < t.Sectors[i-1].Offset {
			return fmt.Errorf("track: sectors not offset-ordered at index %d: %w", i, core.ErrInvalidOffset)
		}
	}
	if normalDisk {
		if repeated := t.RepeatedIDs(); len(repeated) > 0 {
			return fmt.Errorf("track: repeated sector id %d: %w", repeated[0], core.ErrRepeatedSector)
		}
	}
	for _, s := range t.Sectors {
		if s.OffsetKnown() && s.Offset < 16 {
			return fmt.Errorf("track: sector offset %d within 16 bitcells of zero: %w", s.Offset, core.ErrInvalidOffset)
		}
	}
	return nil
}

// EnsureNotAlmost0Offset shifts every sector's offset by delta, wrapping
// into [0, TrackLen), if any sector sits within 16 bitcells of the zero
// sentinel — the storage format reserves offset 0 for "unknown" and
// encoders divide by 16 (spec §4.1).
func (t *Track) EnsureNotAlmost0Offset() {
	if t.TrackLen == 0 {
		return
	}
	needsShift := false
	for _, s := range t.Sectors {
		if s.OffsetKnown() && s.Offset < 16 {
			needsShift = true
			break
		}
	}
	if !needsShift {
		return
	}
	const shift = 64
	for i := range t.Sectors {
		if !t.Sectors[i].OffsetKnown() {
			continue
		}
		t.Sectors[i].Offset = ((t.Sectors[i].Offset+shift)%t.TrackLen + t.TrackLen) % t.TrackLen
		if t.Sectors[i].Offset == 0 {
			t.Sectors[i].Offset = 1
		}
	}
	t.sortByOffset()
}

func (t *Track) sortByOffset() {
	sort.SliceStable(t.Sectors, func(i, j int) bool {
		return t.Sectors[i].Offset < t.Sectors[j].Offset
	})
}

// findMatching returns the first sector matching header+datarate+encoding
// (with datarate compatibility per CompatibleRate), or -1.
func (t *Track) findMatching(h sector.Header, rate sector.DataRate, enc sector.Encoding) int {
	for i, s := range t.Sectors {
		if s.Header == h && s.Encoding == enc && sector.CompatibleRate(s.DataRate, rate) {
			return i
		}
	}
	return -1
}
