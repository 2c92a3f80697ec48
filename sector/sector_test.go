package sector

import "testing"

func TestHeaderSize(t *testing.T) {
	cases := []struct {
		sizeCode int
		want     int
	}{
		{0, 128},
		{1, 256},
		{2, 512},
		{3, 1024},
		{6, 8192},
	}
	for _, c := range cases {
		h := Header{SizeCode: c.sizeCode}
		if got := h.Size(); got != c.want {
			t.Errorf("Header{SizeCode:%d}.Size() = %d, want %d", c.sizeCode, got, c.want)
		}
	}
}

func TestSizeCodeFor(t *testing.T) {
	n, err := SizeCodeFor(512)
	if err != nil || n != 2 {
		t.Fatalf("SizeCodeFor(512) = %d, %v, want 2, nil", n, err)
	}
	if _, err := SizeCodeFor(513); err == nil {
		t.Fatalf("SizeCodeFor(513) = nil error, want error")
	}
}

func TestCompatibleRate(t *testing.T) {
	if !CompatibleRate(Rate250K, Rate300K) {
		t.Errorf("250K/300K should be compatible (rotation-speed twin)")
	}
	if CompatibleRate(Rate250K, Rate500K) {
		t.Errorf("250K/500K should not be compatible")
	}
}

func TestMergeDuplicateDataIncrementsReadCount(t *testing.T) {
	s := Sector{Header: Header{Sector: 1, SizeCode: 2}}
	data := make([]byte, 512)
	s.addCopy(data)

	other := Sector{Copies: []DataCopy{{Bytes: data}}}
	result := s.Merge(other)

	if len(s.Copies) != 1 {
		t.Fatalf("expected 1 copy after merging identical data, got %d", len(s.Copies))
	}
	if s.Copies[0].Stats.ReadCount != 2 {
		t.Errorf("expected read count 2, got %d", s.Copies[0].Stats.ReadCount)
	}
	if result != MergeMatched {
		t.Errorf("expected MergeMatched, got %v", result)
	}
}

func TestMergeNewDataAppendsCopy(t *testing.T) {
	s := Sector{Header: Header{Sector: 1, SizeCode: 2}}
	s.addCopy(make([]byte, 512))

	other := Sector{Copies: []DataCopy{{Bytes: []byte{1, 2, 3}}}}
	result := s.Merge(other)

	if len(s.Copies) != 2 {
		t.Fatalf("expected 2 distinct copies, got %d", len(s.Copies))
	}
	if result != MergeImproved {
		t.Errorf("expected MergeImproved, got %v", result)
	}
}

func TestMergeBadCRCIsSticky(t *testing.T) {
	s := Sector{Flags: Flags{BadDataCRC: true}}
	good := Sector{Flags: Flags{BadDataCRC: false}}
	s.Merge(good)
	if !s.Flags.BadDataCRC {
		t.Errorf("bad-data-crc flag should stay sticky once set")
	}
}

func TestIsGoodRequiresCleanCRCsAndData(t *testing.T) {
	s := Sector{Header: Header{SizeCode: 2}}
	if s.IsGood() {
		t.Errorf("sector with no data copies should not be good")
	}
	s.addCopy(make([]byte, 512))
	if !s.IsGood() {
		t.Errorf("sector with clean CRCs and data should be good")
	}
	s.Flags.BadDataCRC = true
	if s.IsGood() {
		t.Errorf("sector with bad data CRC should not be good")
	}
}

func TestIsGood8KSectorExemptFromDataCRC(t *testing.T) {
	s := Sector{Header: Header{SizeCode: 6}}
	s.addCopy(make([]byte, 8192))
	if !s.IsGood() {
		t.Errorf("8K sector with ID CRC clean and data present should be good")
	}
}
