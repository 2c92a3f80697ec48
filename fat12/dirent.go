package fat12

// DirEntry is one 32-byte FAT12 root-directory entry, fields named to
// match the on-disk layout (spec §4.5).
type DirEntry struct {
	Name         [8]byte
	Ext          [3]byte
	Attr         byte
	StartCluster int
	FileSize     int
}

const (
	dirEntryDeleted     = 0xe5
	dirEntryNameUnused  = 0x00
	attrVolumeLabel     = 0x08
	attrSubdirectory    = 0x10
	attrLongNameMask    = 0x0f
	attrLongNameValue   = 0x0f
)

func (e DirEntry) isDeleted() bool      { return e.Name[0] == dirEntryDeleted }
func (e DirEntry) isUnused() bool       { return e.Name[0] == dirEntryNameUnused }
func (e DirEntry) isVolumeLabel() bool  { return e.Attr&attrVolumeLabel != 0 }
func (e DirEntry) isSubdirectory() bool { return e.Attr&attrSubdirectory != 0 }
func (e DirEntry) isLongNameFragment() bool {
	return e.Attr&attrLongNameMask == attrLongNameValue
}

// eligibleForClusterObservation reports whether e is a plain file entry
// whose cluster chain is worth walking for a sectors-per-cluster
// observation (spec §4.5: "neither deleted nor a label nor a subdirectory
// nor a long-name fragment").
func (e DirEntry) eligibleForClusterObservation() bool {
	return !e.isDeleted() && !e.isUnused() && !e.isVolumeLabel() &&
		!e.isSubdirectory() && !e.isLongNameFragment()
}

// FAT12 chain-link classification (spec §4.5).
const (
	fatEOFLow  = 0xff8
	fatEOFHigh = 0xfff
	fatLinkLow = 0x002
	fatLinkHigh = 0xfef
)

func isEOFLink(v int) bool  { return v >= fatEOFLow && v <= fatEOFHigh }
func isValidLink(v int) bool { return v >= fatLinkLow && v <= fatLinkHigh }

// ClusterReader reads 12-bit FAT entries from either FAT copy by cluster
// index.
type ClusterReader func(fatCopy int, cluster int) int

// GetFileClusterAmount walks the chain starting at start, preferring FAT1
// but falling back to FAT2 for any link FAT1 yields an invalid value for,
// per spec §4.5. Returns the number of clusters in the chain.
func GetFileClusterAmount(read ClusterReader, start, maxClusters int) int {
	count := 0
	cluster := start
	seen := make(map[int]bool)
	for cluster != 0 && !seen[cluster] && count <= maxClusters {
		seen[cluster] = true
		count++

		next := read(1, cluster)
		if !isValidLink(next) && !isEOFLink(next) {
			next = read(2, cluster)
		}
		if isEOFLink(next) || !isValidLink(next) {
			break
		}
		cluster = next
	}
	return count
}

// AnalyseDirEntries walks the root directory region, reading entries via
// readEntry(logicalIndex) until a zero-name entry is followed by a
// non-zero-name entry or maxEntries is reached, and records
// ceil(file_size / (sectorSize * cluster_len)) for every eligible entry as
// an observation of sectors-per-cluster, where cluster_len is that file's
// own chain length from getClusterAmount (spec §4.5). It returns the
// observed sectors-per-cluster values (caller picks the best fit) and the
// directory size clamped to the nearest of {0x70, 0xe0} if within range.
func AnalyseDirEntries(readEntry func(i int) DirEntry, maxEntries, sectorSize int, getClusterAmount func(start int) int) (observations []int, rootDirEntries int) {
	sawZeroName := false
	count := 0
	for i := 0; i < maxEntries; i++ {
		e := readEntry(i)
		if e.isUnused() {
			sawZeroName = true
			continue
		}
		if sawZeroName {
			break
		}
		count++

		if !e.eligibleForClusterObservation() {
			continue
		}
		clusterLen := getClusterAmount(e.StartCluster)
		if clusterLen == 0 {
			continue
		}
		spc := ceilDiv(e.FileSize, sectorSize*clusterLen)
		if spc > 0 {
			observations = append(observations, spc)
		}
	}

	rootDirEntries = clampToNearestNormalRootDirSize(count)
	return observations, rootDirEntries
}

// normalRootDirSizes are the root-directory entry counts seen on real
// FAT12 floppies (spec §4.5): 0x70 for 5.25" 360K/1.2M, 0xE0 for 3.5"
// 720K/1.44M.
var normalRootDirSizes = []int{0x70, 0xe0}

// rootDirClampTolerance bounds how far the observed count may drift from a
// normal value before clamping is considered unsafe and the raw observed
// count is kept instead.
const rootDirClampTolerance = 16

func clampToNearestNormalRootDirSize(count int) int {
	best := -1
	bestDist := rootDirClampTolerance + 1
	for _, candidate := range normalRootDirSizes {
		if d := abs(count - candidate); d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	if best >= 0 && bestDist <= rootDirClampTolerance {
		return best
	}
	return count
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DetermineSectorsPerCluster picks the smallest power-of-two
// sectors-per-cluster satisfying maxClusterIndex*spc >= dataSectors and at
// least as large as the directory-walk observation (spec §4.5). Returns
// the value and whether it is outside the common {1,2} set (caller warns).
func DetermineSectorsPerCluster(maxClusterIndex, dataSectors, observedMin int) (spc int, uncommon bool) {
	spc = 1
	for maxClusterIndex*spc < dataSectors || spc < observedMin {
		spc *= 2
		if spc > 128 {
			break
		}
	}
	return spc, spc != 1 && spc != 2
}
