package transfer

import (
	"testing"

	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackdata"
)

func mkTrack(ids ...int) *track.Track {
	var t track.Track
	t.DataRate = sector.Rate250K
	t.Encoding = sector.EncMFM
	for _, id := range ids {
		t.Sectors = append(t.Sectors, sector.Sector{
			Header:   sector.Header{Sector: id, SizeCode: 2},
			DataRate: sector.Rate250K,
			Encoding: sector.EncMFM,
			Offset:   id * 1000,
			Copies:   []sector.DataCopy{{Bytes: make([]byte, 512)}},
		})
	}
	return &t
}

func TestTransferTrackCopyWritesSourceTrack(t *testing.T) {
	src := disk.New()
	dst := disk.New()
	ch := cylhead.CylHead{Cyl: 0, Head: 0}

	td := trackdata.New(ch)
	td.SetTrack(mkTrack(1, 2, 3))
	src.Write(ch, td, nil)

	n, err := TransferTrack(src, ch, dst, Options{Mode: Copy, MessageCore: core.NewMessageCore(nil)})
	if err != nil {
		t.Fatalf("TransferTrack: %v", err)
	}
	_ = n

	got := dst.Read(ch, nil)
	if got == nil {
		t.Fatal("expected destination to have the copied track")
	}
	gotTrack, err := got.Track()
	if err != nil {
		t.Fatalf("Track(): %v", err)
	}
	if len(gotTrack.Sectors) != 3 {
		t.Errorf("expected 3 sectors copied, got %d", len(gotTrack.Sectors))
	}
}

func TestTransferTrackMinimalModeSkipsUnusedTrack(t *testing.T) {
	src := disk.New()
	dst := disk.New()
	ch := cylhead.CylHead{Cyl: 5, Head: 0}

	td := trackdata.New(ch)
	td.SetTrack(mkTrack(1))
	src.Write(ch, td, nil)

	n, err := TransferTrack(src, ch, dst, Options{Mode: Copy, Minimal: true, UsedTracks: UsedTracksMap{}})
	if err != nil {
		t.Fatalf("TransferTrack: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 changes for a minimal-mode-skipped track, got %d", n)
	}
	if dst.Has(ch) {
		t.Errorf("expected destination to remain untouched in minimal mode")
	}
}

func TestTransferTrackRepairMergesIntoExistingDestination(t *testing.T) {
	src := disk.New()
	dst := disk.New()
	ch := cylhead.CylHead{Cyl: 0, Head: 0}

	srcTD := trackdata.New(ch)
	srcTD.SetTrack(mkTrack(1, 2, 3))
	src.Write(ch, srcTD, nil)

	dstTD := trackdata.New(ch)
	dstTD.SetTrack(mkTrack(1))
	dst.Write(ch, dstTD, nil)

	n, err := TransferTrack(src, ch, dst, Options{Mode: Repair, MessageCore: core.NewMessageCore(nil)})
	if err != nil {
		t.Fatalf("TransferTrack: %v", err)
	}
	if n == 0 {
		t.Errorf("expected repair to report improvements, got 0")
	}

	got := dst.Read(ch, nil)
	gotTrack, err := got.Track()
	if err != nil {
		t.Fatalf("Track(): %v", err)
	}
	if len(gotTrack.Sectors) != 3 {
		t.Errorf("expected repaired destination to have 3 sectors, got %d", len(gotTrack.Sectors))
	}
}
