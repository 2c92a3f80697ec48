package trackdata

import (
	"testing"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
)

func TestTrackToBitBufferToTrackRoundTrip(t *testing.T) {
	var tr track.Track
	tr.DataRate = sector.Rate250K
	tr.Encoding = sector.EncMFM
	for id := 1; id <= 3; id++ {
		data := make([]byte, 512)
		for i := range data {
			data[i] = byte(id*16 + i%16)
		}
		tr.Sectors = append(tr.Sectors, sector.Sector{
			Header:   sector.Header{Sector: id, SizeCode: 2},
			DataRate: sector.Rate250K,
			Encoding: sector.EncMFM,
			Copies:   []sector.DataCopy{{Bytes: data}},
		})
	}

	td := New(cylhead.CylHead{Cyl: 0, Head: 0})
	td.SetTrack(&tr)

	buf, err := td.BitBuffer()
	if err != nil {
		t.Fatalf("BitBuffer(): %v", err)
	}
	if buf.NumBits == 0 {
		t.Fatalf("expected non-empty bitstream")
	}

	td2 := New(cylhead.CylHead{Cyl: 0, Head: 0})
	td2.SetBitBuffer(buf)
	got, err := td2.Track()
	if err != nil {
		t.Fatalf("Track(): %v", err)
	}

	if len(got.Sectors) != len(tr.Sectors) {
		t.Fatalf("round trip sector count = %d, want %d", len(got.Sectors), len(tr.Sectors))
	}
	for i, s := range got.Sectors {
		want := tr.Sectors[i]
		if s.Header != want.Header {
			t.Errorf("sector %d header = %+v, want %+v", i, s.Header, want.Header)
		}
		if s.Flags.BadDataCRC {
			t.Errorf("sector %d unexpectedly has bad data CRC after round trip", i)
		}
		if !s.HasData() || !bytesEqual(s.FirstCopy(), want.FirstCopy()) {
			t.Errorf("sector %d data mismatch after round trip", i)
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPreferredDropsNonNormalisedFlux(t *testing.T) {
	var tr track.Track
	tr.DataRate = sector.Rate250K
	tr.Encoding = sector.EncMFM
	tr.Sectors = append(tr.Sectors, sector.Sector{
		Header:   sector.Header{Sector: 1, SizeCode: 2},
		DataRate: sector.Rate250K,
		Encoding: sector.EncMFM,
		Copies:   []sector.DataCopy{{Bytes: make([]byte, 512)}},
	})

	td := New(cylhead.CylHead{Cyl: 0, Head: 0})
	td.SetTrack(&tr)
	td.BitRateKhz = 250
	if _, err := td.Flux(); err != nil {
		t.Fatalf("Flux(): %v", err)
	}
	if !td.Has(LayerFlux) {
		t.Fatalf("expected flux layer present before Preferred()")
	}
	td.Preferred(false)
	if td.Has(LayerFlux) {
		t.Errorf("expected non-normalised flux to be dropped by Preferred(false)")
	}
}
