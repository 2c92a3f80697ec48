package track

import "github.com/sergev/floppyimg/sector"

// Repair merges every sector from src into dst that isn't in the ignored
// set and doesn't appear repeated on src, inserting sectors dst lacks at a
// position derived from src's relative sector order (spec §4.1 repair).
// Returns the number of sectors actually improved.
func Repair(dst, src *Track, ignored map[int]bool) int {
	repeated := make(map[int]bool)
	for _, id := range src.RepeatedIDs() {
		repeated[id] = true
	}

	improvements := 0
	for _, s := range src.Sectors {
		if ignored[s.Header.Sector] || repeated[s.Header.Sector] {
			continue
		}

		idx := dst.findMatching(s.Header, s.DataRate, s.Encoding)
		if idx >= 0 {
			result := dst.Sectors[idx].Merge(s)
			if result == sector.MergeImproved {
				improvements++
			}
			continue
		}

		insertAt := positionForNewSector(dst, src, s)
		dst.Sectors = append(dst.Sectors, sector.Sector{})
		copy(dst.Sectors[insertAt+1:], dst.Sectors[insertAt:])
		dst.Sectors[insertAt] = s
		improvements++
	}
	return improvements
}

// positionForNewSector chooses where to insert a src-only sector into dst:
// preferentially the position implied by the relative order of other src
// sectors that do appear in dst, falling back to plain offset order if
// both offsets are known (spec §4.1).
func positionForNewSector(dst, src *Track, s sector.Sector) int {
	srcIdx := indexInTrack(src, s.Header)
	if srcIdx >= 0 {
		// Walk src sectors before s, find the last one present in dst, and
		// insert immediately after its dst position.
		for i := srcIdx - 1; i >= 0; i-- {
			if dstIdx := dst.findMatching(src.Sectors[i].Header, src.Sectors[i].DataRate, src.Sectors[i].Encoding); dstIdx >= 0 {
				return dstIdx + 1
			}
		}
		// None of the preceding src sectors are in dst; look forward instead.
		for i := srcIdx + 1; i < len(src.Sectors); i++ {
			if dstIdx := dst.findMatching(src.Sectors[i].Header, src.Sectors[i].DataRate, src.Sectors[i].Encoding); dstIdx >= 0 {
				return dstIdx
			}
		}
	}
	if s.OffsetKnown() {
		for i, d := range dst.Sectors {
			if d.OffsetKnown() && d.Offset > s.Offset {
				return i
			}
		}
	}
	return len(dst.Sectors)
}

func indexInTrack(t *Track, h sector.Header) int {
	for i, s := range t.Sectors {
		if s.Header == h {
			return i
		}
	}
	return -1
}
