package cylhead

import (
	"fmt"

	"github.com/sergev/floppyimg/sector"
)

// Format is a regular-geometry hint: enough information to synthesize or
// validate a disk whose sectors are laid out uniformly (spec §3).
type Format struct {
	Cyls       int
	Heads      int
	Sectors    int
	SizeCode   int
	Base       int // first sector-id, typically 1
	Interleave int
	Skew       int
	Gap3       int
	Fill       byte
	DataRate   sector.DataRate
	Encoding   sector.Encoding
	Head0, Head1 int // per-head ID override, -1 if unset
	CylsFirst  bool
}

// commonFormats mirrors the teacher's own size-to-geometry table
// (mfm.DetectFormatFromSize), generalized with data rate/encoding.
var commonFormats = []Format{
	{Cyls: 80, Heads: 2, Sectors: 18, SizeCode: 2, Base: 1, DataRate: sector.Rate500K, Encoding: sector.EncMFM}, // 1.44M
	{Cyls: 80, Heads: 2, Sectors: 9, SizeCode: 2, Base: 1, DataRate: sector.Rate250K, Encoding: sector.EncMFM},  // 720K
	{Cyls: 80, Heads: 1, Sectors: 9, SizeCode: 2, Base: 1, DataRate: sector.Rate250K, Encoding: sector.EncMFM},  // 360K (3.5")
	{Cyls: 80, Heads: 2, Sectors: 15, SizeCode: 2, Base: 1, DataRate: sector.Rate500K, Encoding: sector.EncMFM}, // 1.2M
	{Cyls: 40, Heads: 2, Sectors: 9, SizeCode: 2, Base: 1, DataRate: sector.Rate300K, Encoding: sector.EncMFM},  // 360K (5.25")
	{Cyls: 40, Heads: 2, Sectors: 8, SizeCode: 2, Base: 1, DataRate: sector.Rate300K, Encoding: sector.EncMFM},  // 320K
	{Cyls: 40, Heads: 1, Sectors: 8, SizeCode: 2, Base: 1, DataRate: sector.Rate300K, Encoding: sector.EncMFM},  // 160K
	{Cyls: 40, Heads: 1, Sectors: 9, SizeCode: 2, Base: 1, DataRate: sector.Rate300K, Encoding: sector.EncMFM},  // 180K
}

// FromSize returns the regular Format matching a disk image of the given
// byte size, the same lookup table the teacher uses in
// mfm.DetectFormatFromSize, generalized to return a full Format rather than
// a bare (cyls,heads,sectors) tuple.
func FromSize(size int64) (Format, error) {
	for _, f := range commonFormats {
		bytesPerSector := 128 << uint(f.SizeCode)
		total := int64(f.Cyls) * int64(f.Heads) * int64(f.Sectors) * int64(bytesPerSector)
		if total == size {
			f.Head1 = -1
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("cylhead: no regular format matches size %d", size)
}

// Validate checks the format's fields against MAX bounds and internal
// consistency (spec §3 invariants).
func (f Format) Validate() error {
	if f.Cyls <= 0 || f.Cyls > MaxCyls {
		return fmt.Errorf("cylhead: format cyls %d out of range", f.Cyls)
	}
	if f.Heads != 1 && f.Heads != 2 {
		return fmt.Errorf("cylhead: format heads %d out of range {1,2}", f.Heads)
	}
	if f.Sectors <= 0 {
		return fmt.Errorf("cylhead: format sectors %d must be positive", f.Sectors)
	}
	if f.SizeCode < 0 || f.SizeCode > 7 {
		return fmt.Errorf("cylhead: format size code %d out of range [0,7]", f.SizeCode)
	}
	return nil
}

// DiskSize returns the total byte size a disk of this format would occupy.
func (f Format) DiskSize() int64 {
	return int64(f.Cyls) * int64(f.Heads) * int64(f.Sectors) * int64(128<<uint(f.SizeCode))
}

// Range returns the full cyl/head range for this format.
func (f Format) Range() Range {
	r := NewRange(f.Cyls, f.Heads)
	r.CylsFirst = f.CylsFirst
	return r
}

// HeadID returns the head value to record in sector headers for head,
// honoring Head0/Head1 overrides (negative means "no override").
func (f Format) HeadID(head int) int {
	if head == 0 && f.Head0 >= 0 {
		return f.Head0
	}
	if head == 1 && f.Head1 >= 0 {
		return f.Head1
	}
	return head
}
