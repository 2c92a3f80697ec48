package fat12

// FileSystem reconstructs a FAT12 BPB from on-disk evidence, and covers
// the Atari-ST variant through two overridable predicates rather than a
// second C++ class (spec §9 design note): Atari-ST boot sectors use a
// different signature check and a narrower legal-filename-character set
// than MS-DOS.
type FileSystem struct {
	// IsValidBootSignature checks the trailing boot-sector signature;
	// nil defaults to the MS-DOS 0x55,0xAA check.
	IsValidBootSignature func(sig [2]byte) bool

	// IsLegalFilenameChar reports whether a byte may appear in an 8.3 name.
	// Nothing in this package calls it: AnalyseDirEntries does not filter
	// entries by the bytes of their names.
	IsLegalFilenameChar func(b byte) bool
}

// NewMSDOS returns a FileSystem using MS-DOS FAT12 conventions.
func NewMSDOS() *FileSystem {
	return &FileSystem{}
}

// NewAtariST returns a FileSystem using Atari-ST's FAT12 conventions:
// GEMDOS boot sectors have no fixed 0x55,0xAA trailer (the checksum word
// at the start of the sector is authoritative instead), and filenames
// exclude several bytes MS-DOS permits.
func NewAtariST() *FileSystem {
	return &FileSystem{
		IsValidBootSignature: func(sig [2]byte) bool { return true },
		IsLegalFilenameChar: func(b byte) bool {
			switch b {
			case '"', '*', '/', ':', '<', '>', '?', '\\', '|':
				return false
			default:
				return b >= 0x20
			}
		},
	}
}

func (fs *FileSystem) validBootSignature(sig [2]byte) bool {
	if fs.IsValidBootSignature != nil {
		return fs.IsValidBootSignature(sig)
	}
	return sig[0] == 0x55 && sig[1] == 0xaa
}

// Evidence bundles the raw disk access functions ReconstructBpb needs:
// logical-sector reads for FAT cross-correlation, directory-entry reads
// for cluster-chain observation, and 12-bit FAT link reads.
type Evidence struct {
	ReadSector       SectorReader
	ReadDirEntry     func(i int) DirEntry
	ReadClusterLink  ClusterReader
	MaxRootEntries   int
	MaxFatSectors    int
	MaxClusterIndex  int
}

// ReconstructBpb fills in geometry fields in bpb from heuristics (media
// descriptor) and, where the stored fat_sectors or sectors_per_cluster
// look invalid, overwrites them from the cross-correlation and directory-
// walk analyses (spec §4.5). Returns true iff any field changed.
func (fs *FileSystem) ReconstructBpb(bpb *Bpb, cyls int, ev Evidence) bool {
	changed := false

	wantMedia := mediaDescriptorHeuristic(cyls, bpb.SectorsPerTrack, bpb.NumHeads)
	if bpb.Media != wantMedia {
		bpb.Media = wantMedia
		changed = true
	}

	if bpb.fatSectorsLookInvalid(ev.MaxFatSectors) {
		res := bpb.ReservedSectors
		if res <= 0 {
			res = 1
		}
		dist, _ := AnalyseFatSectors(ev.ReadSector, res, ev.MaxFatSectors)
		if dist > 0 && dist != bpb.SectorsPerFAT {
			bpb.SectorsPerFAT = dist
			changed = true
		}
	}

	if bpb.sectorsPerClusterLooksInvalid() {
		getClusterAmount := func(start int) int {
			return GetFileClusterAmount(ev.ReadClusterLink, start, ev.MaxClusterIndex)
		}
		observations, rootEntries := AnalyseDirEntries(ev.ReadDirEntry, ev.MaxRootEntries, bpb.BytesPerSector, getClusterAmount)

		observedMin := 0
		for _, o := range observations {
			if observedMin == 0 || o < observedMin {
				observedMin = o
			}
		}

		dataSectors := bpb.TotalSectors - bpb.ReservedSectors - bpb.NumFATs*bpb.SectorsPerFAT - rootDirSectors(rootEntries, bpb.BytesPerSector)
		spc, _ := DetermineSectorsPerCluster(ev.MaxClusterIndex, dataSectors, observedMin)
		if spc != bpb.SectorsPerCluster {
			bpb.SectorsPerCluster = spc
			changed = true
		}
		if rootEntries != bpb.RootEntryCount && rootEntries > 0 {
			bpb.RootEntryCount = rootEntries
			changed = true
		}
	}

	return changed
}

func rootDirSectors(entries, bytesPerSector int) int {
	if bytesPerSector == 0 {
		return 0
	}
	return ceilDiv(entries*32, bytesPerSector)
}
