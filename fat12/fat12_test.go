package fat12

import "testing"

func TestLogicalToPhysicalMapping(t *testing.T) {
	cyl, head, sectorID := LogicalToPhysical(0, 2, 9)
	if cyl != 0 || head != 0 || sectorID != 1 {
		t.Errorf("logical 0: got (%d,%d,%d), want (0,0,1)", cyl, head, sectorID)
	}
	cyl, head, sectorID = LogicalToPhysical(9, 2, 9)
	if cyl != 0 || head != 1 || sectorID != 1 {
		t.Errorf("logical 9: got (%d,%d,%d), want (0,1,1)", cyl, head, sectorID)
	}
	cyl, head, sectorID = LogicalToPhysical(18, 2, 9)
	if cyl != 1 || head != 0 || sectorID != 1 {
		t.Errorf("logical 18: got (%d,%d,%d), want (1,0,1)", cyl, head, sectorID)
	}
}

func TestAnalyseFatSectorsFindsIdenticalCopyDistance(t *testing.T) {
	const dist = 5
	sectors := make(map[int][]byte)
	for i := 0; i < dist; i++ {
		data := make([]byte, 512)
		for j := range data {
			data[j] = byte((i*31 + j) % 251)
		}
		sectors[1+i] = data
		sectors[1+dist+i] = data // identical FAT2 copy
	}
	read := func(i int) []byte { return sectors[i] }

	got, common := AnalyseFatSectors(read, 1, 8)
	if got != dist {
		t.Errorf("AnalyseFatSectors distance = %d, want %d", got, dist)
	}
	if !common {
		t.Errorf("expected dist=%d to be flagged as common (3 or 5)", dist)
	}
}

func TestGetFileClusterAmountWalksChainAndStopsAtEOF(t *testing.T) {
	fat1 := map[int]int{2: 3, 3: 4, 4: fatEOFLow}
	read := func(copy, cluster int) int {
		if copy == 1 {
			if v, ok := fat1[cluster]; ok {
				return v
			}
		}
		return 0
	}
	got := GetFileClusterAmount(read, 2, 100)
	if got != 3 {
		t.Errorf("GetFileClusterAmount = %d, want 3 (clusters 2,3,4)", got)
	}
}

func TestGetFileClusterAmountFallsBackToFat2(t *testing.T) {
	fat1 := map[int]int{2: 0 /* invalid */}
	fat2 := map[int]int{2: fatEOFLow}
	read := func(copy, cluster int) int {
		if copy == 1 {
			return fat1[cluster]
		}
		return fat2[cluster]
	}
	got := GetFileClusterAmount(read, 2, 100)
	if got != 1 {
		t.Errorf("GetFileClusterAmount with FAT1 invalid link = %d, want 1", got)
	}
}

func TestDetermineSectorsPerClusterPicksSmallestPowerOfTwo(t *testing.T) {
	spc, uncommon := DetermineSectorsPerCluster(1000, 1500, 1)
	if spc != 2 {
		t.Errorf("spc = %d, want 2 (1000*1=1000 < 1500 needs bump)", spc)
	}
	if uncommon {
		t.Errorf("spc=2 should not be flagged uncommon")
	}
}

func TestDetermineSectorsPerClusterFlagsUncommonValues(t *testing.T) {
	_, uncommon := DetermineSectorsPerCluster(100, 1000, 8)
	if !uncommon {
		t.Errorf("expected spc>2 to be flagged uncommon")
	}
}

func TestAnalyseDirEntriesStopsAtEntryAfterZeroName(t *testing.T) {
	entries := []DirEntry{
		{Name: [8]byte{'F', 'I', 'L', 'E', '1'}, StartCluster: 2, FileSize: 1024},
		{}, // zero-name: end of used entries
		{Name: [8]byte{'S', 'H', 'O', 'U', 'L', 'D', 'N', 'T'}, StartCluster: 3, FileSize: 512},
	}
	readEntry := func(i int) DirEntry {
		if i < len(entries) {
			return entries[i]
		}
		return DirEntry{}
	}
	getClusterAmount := func(start int) int { return 2 }

	observations, _ := AnalyseDirEntries(readEntry, 16, 512, getClusterAmount)
	if len(observations) != 1 {
		t.Errorf("expected exactly 1 observation (scan stops at a used entry after a zero-name entry), got %d: %v", len(observations), observations)
	}
}

func TestReconstructBpbFixesInvalidFatSectors(t *testing.T) {
	const dist = 3
	sectors := make(map[int][]byte)
	for i := 0; i < dist; i++ {
		data := make([]byte, 512)
		for j := range data {
			data[j] = byte((i*17 + j) % 200)
		}
		sectors[1+i] = data
		sectors[1+dist+i] = data
	}

	bpb := &Bpb{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntryCount:    112,
		TotalSectors:      720,
		SectorsPerTrack:   9,
		NumHeads:          2,
		SectorsPerFAT:     0, // invalid, forces recomputation
	}
	ev := Evidence{
		ReadSector:      func(i int) []byte { return sectors[i] },
		ReadDirEntry:    func(i int) DirEntry { return DirEntry{} },
		ReadClusterLink: func(copy, cluster int) int { return 0 },
		MaxRootEntries:  112,
		MaxFatSectors:   8,
		MaxClusterIndex: 354,
	}

	fs := NewMSDOS()
	changed := fs.ReconstructBpb(bpb, 40, ev)
	if !changed {
		t.Fatal("expected ReconstructBpb to report a change")
	}
	if bpb.SectorsPerFAT != dist {
		t.Errorf("SectorsPerFAT = %d, want %d", bpb.SectorsPerFAT, dist)
	}
}

func TestAtariSTAcceptsAnyBootSignature(t *testing.T) {
	fs := NewAtariST()
	if !fs.validBootSignature([2]byte{0x00, 0x00}) {
		t.Errorf("Atari-ST filesystem should accept a boot sector without the MS-DOS 0x55,0xAA trailer")
	}
	msdos := NewMSDOS()
	if msdos.validBootSignature([2]byte{0x00, 0x00}) {
		t.Errorf("MS-DOS filesystem should reject a missing 0x55,0xAA trailer")
	}
}
