// Package fat12 reconstructs a FAT12 BIOS Parameter Block from a disk
// whose boot sector is missing or damaged (spec §4.5), by cross-
// correlating the two FAT copies and walking the root directory's cluster
// chains. Grounded on original_source/src/filesystems/Fat12FileSystem.cpp
// and StFat12FileSystem.cpp, consolidated per the §9 design note into one
// type with two overridable predicates instead of two C++ classes; BPB
// field naming follows dargueta-disko's RawFATBootSectorWithBPB.
package fat12

// Bpb holds the BIOS Parameter Block fields this package can reconstruct,
// named after dargueta-disko's RawFATBootSectorWithBPB.
type Bpb struct {
	BytesPerSector    int
	SectorsPerCluster int
	ReservedSectors   int
	NumFATs           int
	RootEntryCount    int
	TotalSectors      int
	Media             byte
	SectorsPerFAT     int
	SectorsPerTrack   int
	NumHeads          int
}

const (
	bytesPerSectorDefault = 512
	base                  = 1 // FAT12 sector-id base (spec §4.5)
)

// LogicalToPhysical maps a logical sector index to (cyl, head, sector-id)
// per spec §4.5: cyl = i/(heads·sectors), head = (i/sectors) mod heads,
// sector-id = i mod sectors + base.
func LogicalToPhysical(i, heads, sectorsPerTrack int) (cyl, head, sectorID int) {
	cyl = i / (heads * sectorsPerTrack)
	head = (i / sectorsPerTrack) % heads
	sectorID = i%sectorsPerTrack + base
	return
}

// mediaDescriptorHeuristic derives a plausible BPB media-descriptor byte
// from coarse geometry, per spec §4.5: an F8 base with bits set for
// "cyls <= 42", "sectors <= 8", "heads == 2".
func mediaDescriptorHeuristic(cyls, sectorsPerTrack, heads int) byte {
	media := byte(0xf8)
	if cyls <= 42 {
		media |= 0x04
	}
	if sectorsPerTrack <= 8 {
		media |= 0x02
	}
	if heads == 2 {
		media |= 0x01
	}
	return media
}

// fatSectorsLookInvalid reports whether the sectors-per-FAT value is implausible enough to
// warrant recomputation from the on-disk analyses (zero, or a sectors-per-
// FAT value larger than the whole disk could support).
func (b Bpb) fatSectorsLookInvalid(maxFatSectors int) bool {
	return b.SectorsPerFAT <= 0 || b.SectorsPerFAT > maxFatSectors
}

func (b Bpb) sectorsPerClusterLooksInvalid() bool {
	if b.SectorsPerCluster <= 0 {
		return true
	}
	// Must be a power of two by the FAT12 spec.
	return b.SectorsPerCluster&(b.SectorsPerCluster-1) != 0
}
