package fat12

import "testing"

func TestBpbEncodeDecodeRoundTrip(t *testing.T) {
	want := Bpb{
		BytesPerSector:    512,
		SectorsPerCluster: 2,
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntryCount:    112,
		TotalSectors:      1440,
		Media:             0xf9,
		SectorsPerFAT:     3,
		SectorsPerTrack:   9,
		NumHeads:          2,
	}
	raw, err := EncodeBpb(want)
	if err != nil {
		t.Fatalf("EncodeBpb: %v", err)
	}
	got, err := DecodeBpb(raw)
	if err != nil {
		t.Fatalf("DecodeBpb: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestBpbEncodeUsesTotalSectors32WhenLarge(t *testing.T) {
	want := Bpb{TotalSectors: 0x10000}
	raw, err := EncodeBpb(want)
	if err != nil {
		t.Fatalf("EncodeBpb: %v", err)
	}
	got, err := DecodeBpb(raw)
	if err != nil {
		t.Fatalf("DecodeBpb: %v", err)
	}
	if got.TotalSectors != want.TotalSectors {
		t.Errorf("TotalSectors = %d, want %d", got.TotalSectors, want.TotalSectors)
	}
}
