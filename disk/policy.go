package disk

import "github.com/sergev/floppyimg/track"

// DeviceReadingPolicy captures read intent for one track: which sector IDs
// are wanted, which are already known-good and can be skipped, and whether
// the engine should go looking for sectors outside the expected set (spec
// §3 table).
type DeviceReadingPolicy struct {
	Wanted             map[int]bool
	Skippable          map[int]bool
	LookForPossibleIDs bool

	wantedUnskippable    map[int]bool
	wantedUnskippableSet bool
}

// NewDeviceReadingPolicy returns a policy wanting every sector in wantedIDs
// with nothing yet skippable.
func NewDeviceReadingPolicy(wantedIDs []int) *DeviceReadingPolicy {
	p := &DeviceReadingPolicy{Wanted: make(map[int]bool), Skippable: make(map[int]bool)}
	for _, id := range wantedIDs {
		p.Wanted[id] = true
	}
	return p
}

// MarkSkippable records that id is already satisfied (e.g. already good in
// the repair destination) and need not be re-acquired.
func (p *DeviceReadingPolicy) MarkSkippable(id int) {
	if p.Skippable == nil {
		p.Skippable = make(map[int]bool)
	}
	p.Skippable[id] = true
	p.wantedUnskippableSet = false
}

// WantedUnskippable returns "wanted ∖ skippable", the set of sector ids
// still worth acquiring. The result is cached lazily until the next
// MarkSkippable call invalidates it (spec §3 table: "derived set ... cached
// lazily").
func (p *DeviceReadingPolicy) WantedUnskippable() map[int]bool {
	if p.wantedUnskippableSet {
		return p.wantedUnskippable
	}
	out := make(map[int]bool, len(p.Wanted))
	for id := range p.Wanted {
		if !p.Skippable[id] {
			out[id] = true
		}
	}
	p.wantedUnskippable = out
	p.wantedUnskippableSet = true
	return out
}

// Exhausted reports whether there are no remaining wanted-unskippable IDs,
// i.e. every sector this policy cares about is already satisfied.
func (p *DeviceReadingPolicy) Exhausted() bool {
	return len(p.WantedUnskippable()) == 0
}

// StableData reports whether t already carries good copies of every
// sector id in wantedIDs, used by DemandDisk's rescan loop to decide it can
// stop early even with rescans remaining (spec §4.3).
func StableData(t *track.Track, wantedIDs map[int]bool) bool {
	if t == nil {
		return false
	}
	have := make(map[int]bool, len(t.Sectors))
	for _, s := range t.Sectors {
		if s.IsGood() {
			have[s.Header.Sector] = true
		}
	}
	for id := range wantedIDs {
		if !have[id] {
			return false
		}
	}
	return true
}

// RetryPolicy is a retry budget: a remaining count plus a flag for whether
// the most recent round changed anything. It is totally ordered by
// (count, since-last-change) per spec §3 table, used to decide whether
// another round is worth attempting.
type RetryPolicy struct {
	Count           int
	SinceLastChange bool
}

// Less orders RetryPolicy values by (count, since-last-change): fewer
// remaining retries sorts lower, and among equal counts a policy that has
// seen no change recently sorts lower (less worth continuing).
func (p RetryPolicy) Less(other RetryPolicy) bool {
	if p.Count != other.Count {
		return p.Count < other.Count
	}
	if p.SinceLastChange == other.SinceLastChange {
		return false
	}
	return !p.SinceLastChange && other.SinceLastChange
}

// Exhausted reports whether no further retries remain.
func (p RetryPolicy) Exhausted() bool { return p.Count <= 0 }

// Decrement consumes n retries and sets SinceLastChange if changed is
// true this round; it never clears the flag.
func (p RetryPolicy) Decrement(n int, changed bool) RetryPolicy {
	p.Count -= n
	if changed {
		p.SinceLastChange = true
	}
	return p
}
