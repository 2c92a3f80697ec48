package imagefmt

import (
	"testing"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackdata"
)

func mkSector(id int, copies ...[]byte) sector.Sector {
	s := sector.Sector{
		Header:   sector.Header{Cyl: 0, Head: 0, Sector: id, SizeCode: 2},
		DataRate: sector.Rate250K,
		Encoding: sector.EncMFM,
	}
	for _, c := range copies {
		s.Copies = append(s.Copies, sector.DataCopy{Bytes: append([]byte(nil), c...)})
	}
	return s
}

func TestEDSKRoundTripPreservesHeadersAndData(t *testing.T) {
	ch := cylhead.CylHead{Cyl: 0, Head: 0}
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	tr := &track.Track{
		DataRate: sector.Rate250K,
		Encoding: sector.EncMFM,
		Sectors:  []sector.Sector{mkSector(1, data)},
	}
	td := trackdata.New(ch)
	td.SetTrack(tr)

	d := disk.New()
	d.Format = cylhead.Format{Cyls: 1, Heads: 1}
	d.Write(ch, td, nil)

	raw, err := EncodeEDSK(d, cylhead.NewRange(1, 1))
	if err != nil {
		t.Fatalf("EncodeEDSK: %v", err)
	}
	got, err := DecodeEDSK(raw)
	if err != nil {
		t.Fatalf("DecodeEDSK: %v", err)
	}

	gotTD := got.Read(ch, nil)
	if gotTD == nil {
		t.Fatalf("round trip lost track %v", ch)
	}
	gotTrack, err := gotTD.Track()
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(gotTrack.Sectors) != 1 {
		t.Fatalf("got %d sectors, want 1", len(gotTrack.Sectors))
	}
	gs := gotTrack.Sectors[0]
	if gs.Header != tr.Sectors[0].Header {
		t.Errorf("header = %+v, want %+v", gs.Header, tr.Sectors[0].Header)
	}
	if len(gs.Copies) != 1 || string(gs.Copies[0].Bytes) != string(data) {
		t.Errorf("data not preserved byte-exact")
	}
}

func TestEDSKMultiCopyBadDataCRCRoundTrip(t *testing.T) {
	ch := cylhead.CylHead{Cyl: 0, Head: 0}
	copy1 := make([]byte, 512)
	copy2 := make([]byte, 512)
	for i := range copy1 {
		copy1[i] = byte(i)
		copy2[i] = byte(255 - i)
	}
	s := mkSector(1, copy1, copy2)
	s.Flags.BadDataCRC = true

	tr := &track.Track{DataRate: sector.Rate250K, Encoding: sector.EncMFM, Sectors: []sector.Sector{s}}
	td := trackdata.New(ch)
	td.SetTrack(tr)

	d := disk.New()
	d.Format = cylhead.Format{Cyls: 1, Heads: 1}
	d.Write(ch, td, nil)

	raw, err := EncodeEDSK(d, cylhead.NewRange(1, 1))
	if err != nil {
		t.Fatalf("EncodeEDSK: %v", err)
	}

	got, err := DecodeEDSK(raw)
	if err != nil {
		t.Fatalf("DecodeEDSK: %v", err)
	}
	gotTrack, err := got.Read(ch, nil).Track()
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(gotTrack.Sectors) != 1 {
		t.Fatalf("got %d sectors, want 1", len(gotTrack.Sectors))
	}
	gs := gotTrack.Sectors[0]
	if !gs.Flags.BadDataCRC {
		t.Errorf("bad data CRC flag lost")
	}
	if len(gs.Copies) != 2 {
		t.Fatalf("got %d copies, want 2", len(gs.Copies))
	}
	if string(gs.Copies[0].Bytes) != string(copy1) || string(gs.Copies[1].Bytes) != string(copy2) {
		t.Errorf("copy data not preserved byte-exact")
	}
}

func TestEDSKSignatureDetected(t *testing.T) {
	d := disk.New()
	d.Format = cylhead.Format{Cyls: 1, Heads: 1}
	raw, err := EncodeEDSK(d, cylhead.NewRange(1, 1))
	if err != nil {
		t.Fatalf("EncodeEDSK: %v", err)
	}
	if len(raw) < edskHeaderSize {
		t.Fatalf("encoded image shorter than header size")
	}
	if string(raw[:16]) != "EXTENDED CPC DSK" {
		t.Errorf("signature = %q", raw[:16])
	}
}
