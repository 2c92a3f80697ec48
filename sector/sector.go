// Package sector implements the per-sector data model: on-media headers,
// data-rate/encoding enums and the Sector type with its multi-copy merge
// algebra (spec §3, §4.1).
package sector

import "fmt"

// DataRate is the bit-cell rate a sector/track was recorded at.
type DataRate int

const (
	RateUnknown DataRate = iota
	Rate250K
	Rate300K
	Rate500K
	Rate1M
	Rate2M
)

func (r DataRate) String() string {
	switch r {
	case Rate250K:
		return "250Kbps"
	case Rate300K:
		return "300Kbps"
	case Rate500K:
		return "500Kbps"
	case Rate1M:
		return "1Mbps"
	case Rate2M:
		return "2Mbps"
	default:
		return "unknown"
	}
}

// RateFromKHz maps a measured/nominal bit rate in kbps to the nearest
// standard DataRate, the classification every device source and image
// wrapper uses to turn a raw kbps figure into the domain enum.
func RateFromKHz(kbps int) DataRate {
	switch {
	case kbps >= 900:
		return Rate1M
	case kbps >= 450:
		return Rate500K
	case kbps >= 280:
		return Rate300K
	default:
		return Rate250K
	}
}

// CompatibleRate reports whether two data rates should be treated as the
// same physical rate for matching purposes. 250K and 300K are a
// rotation-speed twin pair (the same cells read at 300RPM vs 360RPM).
func CompatibleRate(a, b DataRate) bool {
	if a == b {
		return true
	}
	twin := func(r DataRate) bool { return r == Rate250K || r == Rate300K }
	return twin(a) && twin(b)
}

// Encoding is the modulation scheme used to record a sector/track.
type Encoding int

const (
	EncUnknown Encoding = iota
	EncFM
	EncMFM
	EncAmiga
	EncRX02
	EncAce
	EncMX
	EncAgat
)

func (e Encoding) String() string {
	switch e {
	case EncFM:
		return "FM"
	case EncMFM:
		return "MFM"
	case EncAmiga:
		return "Amiga"
	case EncRX02:
		return "RX02"
	case EncAce:
		return "Ace"
	case EncMX:
		return "MX"
	case EncAgat:
		return "Agat"
	default:
		return "unknown"
	}
}

// Header is the four-byte sector identifier (CHRN) recorded on the medium.
type Header struct {
	Cyl      int
	Head     int
	Sector   int // "R" — the sector-id field, not necessarily physical order
	SizeCode int // "N" — size = 128 << N, N in [0,7]
}

// Size returns the sector size in bytes implied by the size code.
// N=6 is the 8KiB "overlong" sector used by several protection schemes.
func (h Header) Size() int {
	return 128 << uint(h.SizeCode)
}

// SizeCodeFor returns the size code for a given byte size, or an error if
// size isn't a valid 128*2^N value for N in [0,7].
func SizeCodeFor(size int) (int, error) {
	for n := 0; n <= 7; n++ {
		if 128<<uint(n) == size {
			return n, nil
		}
	}
	return 0, fmt.Errorf("sector: %d is not a valid sector size (128*2^N, N in [0,7])", size)
}

// SameID reports whether two headers share the same CHRN.
func (h Header) SameID(other Header) bool {
	return h == other
}

func (h Header) String() string {
	return fmt.Sprintf("C%d H%d R%d N%d", h.Cyl, h.Head, h.Sector, h.SizeCode)
}

// Flags records sticky structural conditions observed on a sector.
type Flags struct {
	BadIDCRC   bool
	BadDataCRC bool
	Deleted    bool
	AltDAM     bool
	RX02DAM    bool
	Orphan     bool // data field found with no matching preceding ID field
}

// Union returns the flags that are set in either a or b, except Orphan,
// which stays set only when both are orphans — "bad" flags are sticky and
// never cleared by a merge with a clean copy alone.
func (f Flags) Union(other Flags) Flags {
	return Flags{
		BadIDCRC:   f.BadIDCRC || other.BadIDCRC,
		BadDataCRC: f.BadDataCRC || other.BadDataCRC,
		Deleted:    f.Deleted || other.Deleted,
		AltDAM:     f.AltDAM || other.AltDAM,
		RX02DAM:    f.RX02DAM || other.RX02DAM,
		Orphan:     f.Orphan && other.Orphan,
	}
}

// ReadStats records per-copy acquisition statistics.
type ReadStats struct {
	ReadCount int // number of times this exact byte sequence was observed
}

// DataCopy is one observed byte sequence for a sector's data field.
type DataCopy struct {
	Bytes []byte
	Stats ReadStats
}

// Equal reports whether two copies contain byte-identical data.
func (d DataCopy) Equal(other DataCopy) bool {
	if len(d.Bytes) != len(other.Bytes) {
		return false
	}
	for i := range d.Bytes {
		if d.Bytes[i] != other.Bytes[i] {
			return false
		}
	}
	return true
}

// Sector is one physical sector: its header, recording parameters, data
// address mark, bit-offset position, revolution index, and 0..N data copies.
type Sector struct {
	Header     Header
	DataRate   DataRate
	Encoding   Encoding
	DAM        byte
	Offset     int // bit-offset within the track; 0 means "unknown" (see OffsetKnown)
	Revolution int // which captured revolution this observation came from
	Flags      Flags
	Copies     []DataCopy
	MaxCopies  int // cap on stored copies (0 = unbounded); configurable via core.Options
	Gap3       int // cached/overridden inter-sector gap3 length in bytes, 0 = unknown
}

// OffsetKnown reports whether the sector's bit-offset has been established.
// Offset 0 is the sentinel for "unknown"; see spec §9 design note.
func (s Sector) OffsetKnown() bool {
	return s.Offset != 0
}

// Size returns the sector's data size in bytes, derived from the header.
func (s Sector) Size() int {
	return s.Header.Size()
}

// HasGapData reports whether any stored copy carries bytes beyond the
// sector's declared data size: trailing gap3/gap4b content captured
// alongside the data field (spec §9 GLOSSARY "Gap3").
func (s Sector) HasGapData() bool {
	size := s.Size()
	for _, c := range s.Copies {
		if len(c.Bytes) > size {
			return true
		}
	}
	return false
}

// RemoveGapData truncates every copy back to the sector's declared data
// size, discarding any trailing gap bytes unconditionally. Returns true if
// any copy was shortened.
func (s *Sector) RemoveGapData() bool {
	size := s.Size()
	changed := false
	for i := range s.Copies {
		if len(s.Copies[i].Bytes) > size {
			s.Copies[i].Bytes = s.Copies[i].Bytes[:size]
			changed = true
		}
	}
	return changed
}

// RemoveGapDataIfFill truncates copies whose trailing bytes beyond the
// declared size are a uniform run of fill, recording the discarded length
// into Gap3 if it hasn't been recorded yet. Copies whose trailing bytes
// aren't a clean fill run are left untouched, since the removal can't be
// trusted to be lossless.
func (s *Sector) RemoveGapDataIfFill(fill byte) bool {
	size := s.Size()
	changed := false
	for i := range s.Copies {
		if len(s.Copies[i].Bytes) <= size {
			continue
		}
		tail := s.Copies[i].Bytes[size:]
		clean := true
		for _, b := range tail {
			if b != fill {
				clean = false
				break
			}
		}
		if !clean {
			continue
		}
		if s.Gap3 == 0 {
			s.Gap3 = len(tail)
		}
		s.Copies[i].Bytes = s.Copies[i].Bytes[:size]
		changed = true
	}
	return changed
}

// IsGood reports whether the sector has at least one copy and neither a
// bad ID CRC nor a bad data CRC (the spec's definition of a "good" sector).
// 8K sectors (size code 6) are exempted from the data-CRC requirement since
// they carry no standard data CRC; they are "good" if the ID CRC is clean.
func (s Sector) IsGood() bool {
	if s.Flags.BadIDCRC {
		return false
	}
	if s.Header.SizeCode == 6 {
		return len(s.Copies) > 0
	}
	return !s.Flags.BadDataCRC && len(s.Copies) > 0
}

// HasData reports whether any data copy was captured.
func (s Sector) HasData() bool {
	return len(s.Copies) > 0
}

// FirstCopy returns the first stored data copy, or nil if none.
func (s Sector) FirstCopy() []byte {
	if len(s.Copies) == 0 {
		return nil
	}
	return s.Copies[0].Bytes
}

// addCopy appends data as a new copy, unless it duplicates an existing
// copy byte-for-byte — in that case the existing copy's read-count is
// incremented instead (spec §4.1 Sector::merge). Respects MaxCopies if set.
// Returns true if the sector's observable state changed.
func (s *Sector) addCopy(data []byte) bool {
	for i := range s.Copies {
		if s.Copies[i].Equal(DataCopy{Bytes: data}) {
			s.Copies[i].Stats.ReadCount++
			return false
		}
	}
	if s.MaxCopies > 0 && len(s.Copies) >= s.MaxCopies {
		return false
	}
	s.Copies = append(s.Copies, DataCopy{Bytes: append([]byte(nil), data...), Stats: ReadStats{ReadCount: 1}})
	return true
}

// MergeResult describes the effect of merging a second observation into a
// sector (spec §4.1).
type MergeResult int

const (
	MergeUnchanged MergeResult = iota
	MergeImproved
	MergeNewDataOverLimit
	MergeMatched
)

// Merge folds another observation of the same physical sector into s:
// unions the sticky error flags, and either adds a new data copy, bumps an
// existing copy's read-count, or reports the copy cap was hit.
func (s *Sector) Merge(other Sector) MergeResult {
	beforeFlags := s.Flags
	s.Flags = s.Flags.Union(other.Flags)
	flagsChanged := s.Flags != beforeFlags

	if !other.HasData() {
		if flagsChanged {
			return MergeImproved
		}
		return MergeMatched
	}

	changed := false
	overLimit := false
	for _, c := range other.Copies {
		before := len(s.Copies)
		if !s.addCopy(c.Bytes) {
			if len(s.Copies) == before && s.MaxCopies > 0 && len(s.Copies) >= s.MaxCopies {
				overLimit = true
			}
		} else {
			changed = true
		}
	}

	switch {
	case changed || flagsChanged:
		return MergeImproved
	case overLimit:
		return MergeNewDataOverLimit
	default:
		return MergeMatched
	}
}
