package disk

import (
	"testing"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/trackdata"
)

func TestDiskReadWriteRoundTrip(t *testing.T) {
	d := New()
	ch := cylhead.CylHead{Cyl: 1, Head: 0}
	if d.Read(ch, nil) != nil {
		t.Fatalf("expected nil for unpopulated track")
	}
	td := trackdata.New(ch)
	td.SetTrack(mkTrack(1, 2))
	d.Write(ch, td, nil)
	if d.Read(ch, nil) != td {
		t.Errorf("expected Read to return the written TrackData")
	}
	if !d.Has(ch) {
		t.Errorf("expected Has(ch) true after Write")
	}
	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}
}

func TestDiskEachVisitsAllPopulated(t *testing.T) {
	d := New()
	chs := []cylhead.CylHead{{Cyl: 0, Head: 0}, {Cyl: 0, Head: 1}, {Cyl: 1, Head: 0}}
	for _, ch := range chs {
		td := trackdata.New(ch)
		td.SetTrack(mkTrack(1))
		d.Write(ch, td, nil)
	}
	seen := map[cylhead.CylHead]bool{}
	d.Each(func(ch cylhead.CylHead, _ *trackdata.TrackData) bool {
		seen[ch] = true
		return true
	})
	for _, ch := range chs {
		if !seen[ch] {
			t.Errorf("Each did not visit %v", ch)
		}
	}
}

func TestDiskRangeVisitsUnpopulatedAsNil(t *testing.T) {
	d := New()
	ch := cylhead.CylHead{Cyl: 0, Head: 0}
	td := trackdata.New(ch)
	td.SetTrack(mkTrack(1))
	d.Write(ch, td, nil)

	r := cylhead.NewRange(2, 1)
	var populated, empty int
	d.Range(r, func(c cylhead.CylHead, got *trackdata.TrackData) bool {
		if got != nil {
			populated++
		} else {
			empty++
		}
		return true
	})
	if populated != 1 {
		t.Errorf("expected exactly 1 populated CylHead, got %d", populated)
	}
	if empty != 1 {
		t.Errorf("expected exactly 1 unpopulated CylHead, got %d", empty)
	}
}
