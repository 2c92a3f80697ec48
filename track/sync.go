package track

// SyncUnlimitedToOffset shifts every sector's offset by delta, assuming
// single-revolution input; offsets that go negative wrap around the
// revolution boundary (spec §4.1 syncUnlimitedToOffset).
func (t *Track) SyncUnlimitedToOffset(delta int) {
	if t.TrackLen == 0 {
		return
	}
	for i := range t.Sectors {
		if !t.Sectors[i].OffsetKnown() {
			continue
		}
		off := t.Sectors[i].Offset + delta
		off = ((off % t.TrackLen) + t.TrackLen) % t.TrackLen
		if off == 0 {
			off = t.TrackLen - 1
		}
		t.Sectors[i].Offset = off
	}
	t.sortByOffset()
}

// SyncLimitedToOffset shifts every sector's offset by delta, but refuses to
// do so (returning false, no change made) if the shift would push the
// first or last sector across the revolution boundary (spec §4.1
// syncLimitedToOffset).
func (t *Track) SyncLimitedToOffset(delta int) bool {
	if len(t.Sectors) == 0 {
		return true
	}
	first, last := -1, -1
	for i, s := range t.Sectors {
		if !s.OffsetKnown() {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return true
	}
	newFirst := t.Sectors[first].Offset + delta
	newLast := t.Sectors[last].Offset + delta
	if newFirst < 0 || (t.TrackLen > 0 && newLast >= t.TrackLen) {
		return false
	}
	for i := range t.Sectors {
		if t.Sectors[i].OffsetKnown() {
			t.Sectors[i].Offset += delta
		}
	}
	t.sortByOffset()
	return true
}

// ResyncAgainstOffsets finds the delta (within [-window, window]) that
// maximises the count of sectors in t whose shifted offset lands within
// compareToleranceBytes of a reference offset in refs, then applies it via
// SyncUnlimitedToOffset. Used to align multiple same-track revolutions
// before merging (spec §4.1 "offset synchronisation across revolutions").
func (t *Track) ResyncAgainstOffsets(refs []int, window int) int {
	if len(refs) == 0 || len(t.Sectors) == 0 {
		return 0
	}
	tol := t.toleranceBits()

	bestDelta := 0
	bestScore := -1
	for delta := -window; delta <= window; delta++ {
		score := 0
		for _, s := range t.Sectors {
			if !s.OffsetKnown() {
				continue
			}
			shifted := s.Offset + delta
			for _, r := range refs {
				d := shifted - r
				if d < 0 {
					d = -d
				}
				if d <= tol {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestScore = score
			bestDelta = delta
		}
	}
	if bestDelta != 0 {
		t.SyncUnlimitedToOffset(bestDelta)
	}
	return bestDelta
}
