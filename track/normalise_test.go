package track

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/sector"
)

func withGapTail(s sector.Sector, tail []byte) sector.Sector {
	s.Copies = []sector.DataCopy{{Bytes: append(append([]byte(nil), s.Copies[0].Bytes...), tail...)}}
	return s
}

func TestNormaliseTrackRemovesGapDataUnderGapsNone(t *testing.T) {
	tr := Track{Sectors: []sector.Sector{
		withGapTail(mkSector(1, 1000), bytes.Repeat([]byte{0x4e}, 20)),
	}}
	opts := NormaliseOptions{Gaps: core.GapsNone}
	changed := NormaliseTrack(&tr, opts, nil, core.NewMessageCore(nil))
	if !changed {
		t.Fatal("expected NormaliseTrack to report a change")
	}
	if tr.Sectors[0].HasGapData() {
		t.Error("gap data still present after GapsNone normalise")
	}
}

func TestNormaliseTrackCleansOnlyUniformFillTail(t *testing.T) {
	tr := Track{Sectors: []sector.Sector{
		withGapTail(mkSector(1, 1000), bytes.Repeat([]byte{0x4e}, 12)),
		withGapTail(mkSector(2, 2000), []byte{0x4e, 0x00, 0x4e, 0x4e}),
		mkSector(3, 3000),
	}}
	opts := NormaliseOptions{Gaps: core.GapsClean}
	changed := NormaliseTrack(&tr, opts, nil, core.NewMessageCore(nil))
	if !changed {
		t.Fatal("expected NormaliseTrack to report a change")
	}
	if tr.Sectors[0].HasGapData() {
		t.Error("uniform 0x4e gap tail should have been stripped")
	}
	if tr.Sectors[0].Gap3 != 12 {
		t.Errorf("Gap3 = %d, want 12", tr.Sectors[0].Gap3)
	}
	if !tr.Sectors[1].HasGapData() {
		t.Error("non-uniform gap tail should be left alone by GapsClean")
	}
}

func TestNormaliseTrackKeepsGapDataUnderGapsAllExceptFinalSector(t *testing.T) {
	tr := Track{Sectors: []sector.Sector{
		withGapTail(mkSector(1, 1000), bytes.Repeat([]byte{0x4e}, 20)),
		withGapTail(mkSector(2, 2000), bytes.Repeat([]byte{0x4e}, 20)),
	}}
	opts := NormaliseOptions{Gaps: core.GapsAll}
	NormaliseTrack(&tr, opts, nil, core.NewMessageCore(nil))
	if !tr.Sectors[0].HasGapData() {
		t.Error("GapsAll should preserve gap data on non-final sectors")
	}
	if tr.Sectors[1].HasGapData() {
		t.Error("final sector's gap-4b must be stripped regardless of gaps policy")
	}
}

func TestNormaliseTrackOverridesGap3Cosmetically(t *testing.T) {
	tr := Track{Sectors: []sector.Sector{mkSector(1, 1000)}}
	opts := NormaliseOptions{Gaps: core.GapsAll, Gap3: 84}
	changed := NormaliseTrack(&tr, opts, nil, core.NewMessageCore(nil))
	if changed {
		t.Error("Gap3 override is cosmetic and should not report a change")
	}
	if tr.Sectors[0].Gap3 != 84 {
		t.Errorf("Gap3 = %d, want 84", tr.Sectors[0].Gap3)
	}
}
