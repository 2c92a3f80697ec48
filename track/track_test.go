package track

import (
	"errors"
	"testing"

	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/sector"
)

func mkSector(id, offset int) sector.Sector {
	return sector.Sector{
		Header:   sector.Header{Sector: id, SizeCode: 2},
		DataRate: sector.Rate250K,
		Encoding: sector.EncMFM,
		Offset:   offset,
		Copies:   []sector.DataCopy{{Bytes: make([]byte, 512)}},
	}
}

func TestAddAppendsUnknownOffset(t *testing.T) {
	var tr Track
	result, err := tr.Add(mkSector(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if result != Append {
		t.Errorf("expected Append, got %v", result)
	}
}

func TestAddInsertsOrdered(t *testing.T) {
	var tr Track
	tr.Add(mkSector(1, 1000))
	tr.Add(mkSector(3, 3000))
	result, err := tr.Add(mkSector(2, 2000))
	if err != nil {
		t.Fatal(err)
	}
	if result != Insert {
		t.Errorf("expected Insert, got %v", result)
	}
	if tr.Sectors[0].Header.Sector != 1 || tr.Sectors[1].Header.Sector != 2 || tr.Sectors[2].Header.Sector != 3 {
		t.Errorf("sectors not offset-ordered: %+v", tr.Sectors)
	}
}

func TestAddMergesWithinTolerance(t *testing.T) {
	var tr Track
	tr.Add(mkSector(1, 1000))
	result, err := tr.Add(mkSector(1, 1005))
	if err != nil {
		t.Fatal(err)
	}
	if result != Unchanged {
		t.Errorf("expected Unchanged (identical data merged), got %v", result)
	}
}

func TestAddRejectsMixedDataRate(t *testing.T) {
	var tr Track
	tr.Add(mkSector(1, 1000))
	s := mkSector(2, 2000)
	s.DataRate = sector.Rate500K
	if _, err := tr.Add(s); err == nil {
		t.Errorf("expected error mixing datarates")
	}
}

func TestRepeatedSectorUnderNormalDisk(t *testing.T) {
	var tr Track
	tr.TrackLen = 100000
	s1 := mkSector(3, 1600)
	s2 := mkSector(3, 51200)
	tr.Sectors = []sector.Sector{s1, s2}

	err := tr.Validate(true)
	if err == nil {
		t.Fatal("expected repeated-sector error")
	}
	if !errors.Is(err, core.ErrRepeatedSector) {
		t.Errorf("expected ErrRepeatedSector, got %v", err)
	}
}

func TestRepeatedSectorAllowedWhenNotNormalDisk(t *testing.T) {
	var tr Track
	tr.TrackLen = 100000
	s1 := mkSector(3, 1600)
	s2 := mkSector(3, 51200)
	tr.Sectors = []sector.Sector{s1, s2}

	if err := tr.Validate(false); err != nil {
		t.Errorf("expected no error outside normal-disk mode, got %v", err)
	}
}

func TestDiscoverSectorIDsFindsDeletedSector(t *testing.T) {
	for deleted := 1; deleted <= 8; deleted++ {
		var tr Track
		for id := 1; id <= 8; id++ {
			if id == deleted {
				continue
			}
			tr.Sectors = append(tr.Sectors, mkSector(id, id*1000))
		}
		missing := DiscoverSectorIDs(&tr, 8, 1)
		if len(missing) != 1 || missing[0] != deleted {
			t.Errorf("deleting sector %d: DiscoverSectorIDs = %v, want [%d]", deleted, missing, deleted)
		}
	}
}

func TestDiscoverSectorIDsUsesGapSpacingWhenCountUnknown(t *testing.T) {
	// Sectors 1..6 read out of a true 8-sector track, evenly spaced every
	// 1000 bit-cells; sectors 7 and 8 were never read at all, so they leave
	// no id in `present` and the naive max-visible-id+1 inference would stop
	// at 6. The trailing gap from sector 6 back around to sector 1 is wide
	// enough for two more sector-sized slots, which is what the offset
	// spacing analysis must recover.
	var tr Track
	tr.TrackLen = 8000
	for id := 1; id <= 6; id++ {
		tr.Sectors = append(tr.Sectors, mkSector(id, id*1000))
	}

	missing := DiscoverSectorIDs(&tr, 0, 1)
	if len(missing) != 2 || missing[0] != 7 || missing[1] != 8 {
		t.Errorf("DiscoverSectorIDs with inferred count = %v, want [7 8]", missing)
	}
}

func TestEnsureNotAlmost0OffsetShiftsTrack(t *testing.T) {
	var tr Track
	tr.TrackLen = 100000
	tr.Sectors = []sector.Sector{mkSector(1, 5), mkSector(2, 50000)}
	tr.EnsureNotAlmost0Offset()
	for _, s := range tr.Sectors {
		if s.Offset < 16 {
			t.Errorf("sector offset %d still within 16 bitcells of zero after EnsureNotAlmost0Offset", s.Offset)
		}
	}
}

func TestRepairIsMonotoneInGoodSectorCount(t *testing.T) {
	var dst, src Track
	dst.Add(mkSector(1, 1000))
	bad := mkSector(2, 2000)
	bad.Flags.BadDataCRC = true
	dst.Add(bad)

	good := mkSector(2, 2000)
	src.Add(good)
	src.Add(mkSector(3, 3000))

	before := countGood(&dst)
	Repair(&dst, &src, nil)
	after := countGood(&dst)
	if after < before {
		t.Errorf("RepairTrack shrank good-sector count: before=%d after=%d", before, after)
	}
}

func countGood(t *Track) int {
	n := 0
	for _, s := range t.Sectors {
		if s.IsGood() {
			n++
		}
	}
	return n
}

func TestNormaliseSpeedlockWeakSector(t *testing.T) {
	var tr Track
	for id := 1; id <= 9; id++ {
		s := mkSector(id, id*1000)
		s.Header.Cyl = 0
		data := make([]byte, 512)
		s.Copies = []sector.DataCopy{{Bytes: data}}
		tr.Sectors = append(tr.Sectors, s)
	}

	mc := core.NewMessageCore(nil)
	changed := NormaliseTrack(&tr, NormaliseOptions{ApplyFixes: true}, nil, mc)
	if !changed {
		t.Fatal("expected normalise to apply the Speedlock fixup")
	}
	if len(tr.Sectors[1].Copies) != 2 {
		t.Errorf("expected weak sector to gain a second copy, got %d", len(tr.Sectors[1].Copies))
	}
	if !tr.Sectors[1].Flags.BadDataCRC {
		t.Errorf("expected weak sector copy to be marked bad-data-crc")
	}
}

func TestNormaliseSpeedlockWarnOnlyWithoutFixPolicy(t *testing.T) {
	var tr Track
	for id := 1; id <= 9; id++ {
		s := mkSector(id, id*1000)
		s.Header.Cyl = 0
		s.Copies = []sector.DataCopy{{Bytes: make([]byte, 512)}}
		tr.Sectors = append(tr.Sectors, s)
	}
	mc := core.NewMessageCore(nil)
	changed := NormaliseTrack(&tr, NormaliseOptions{ApplyFixes: false}, nil, mc)
	if changed {
		t.Errorf("expected no byte changes when fix policy is disabled")
	}
	if len(tr.Sectors[1].Copies) != 1 {
		t.Errorf("expected sector to remain untouched, got %d copies", len(tr.Sectors[1].Copies))
	}
}
