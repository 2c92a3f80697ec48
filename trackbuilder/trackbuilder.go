// Package trackbuilder encodes a Track (or Format+sector contents) into an
// encoded BitBuffer bitstream: address marks, IDAM/DAM with CRCs, and
// configurable gaps (spec §4.6). Generalizes the teacher's
// mfm.Writer.EncodeTrackIBMPC (hardcoded IBM-PC/MFM) to configurable
// gaps/FM per spec.
package trackbuilder

import (
	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
)

// Gaps bundles the inter-field gap lengths a Builder writes, in bytes.
type Gaps struct {
	Gap1, Gap2, Gap3, Gap4a, Gap4b int
	WriteIAM                       bool
}

// DefaultGaps returns IBM System 34-ish MFM defaults, matching the
// teacher's hardcoded indexGap/headerGap/sectorGap constants.
func DefaultGaps() Gaps {
	return Gaps{Gap1: 80, Gap2: 22, Gap3: 108, Gap4a: 0, Gap4b: 0, WriteIAM: true}
}

// Builder encodes a track's sectors into a bitstream using the clock rule
// of the active encoding (MFM: reversal between consecutive zeros only; FM:
// reversal before every data bit — both implemented in bitbuffer.Writer).
type Builder struct {
	w        *bitbuffer.Writer
	fill     byte
	encoding sector.Encoding
}

// writeMarker writes the 12-byte zero preamble then three sync bytes with
// the documented missing-clock-bit violation (A1=0xA1 for ID/data marks,
// C2=0xC2 for the index mark), grounded on mfm.Writer.writeMarker/writeIndexMarker.
func (b *Builder) writeMarker(bytePattern byte) {
	for i := 0; i < 12; i++ {
		b.w.WriteByte(0)
	}
	bits := [8]int{
		int((bytePattern >> 7) & 1), int((bytePattern >> 6) & 1),
		int((bytePattern >> 5) & 1), int((bytePattern >> 4) & 1),
		int((bytePattern >> 3) & 1), int((bytePattern >> 2) & 1),
		int((bytePattern >> 1) & 1), int(bytePattern & 1),
	}
	for i := 0; i < 3; i++ {
		b.w.WriteDataBit(bits[0])
		b.w.WriteDataBit(bits[1])
		b.w.WriteDataBit(bits[2])
		b.w.WriteDataBit(bits[3])
		b.w.WriteDataBit(bits[4])
		b.w.WriteRawHalfBit(0) // missing clock bit (half-bit violation)
		b.w.WriteRawHalfBit(0) // missing clock bit (half-bit violation)
		b.w.WriteDataBit(bits[6])
		b.w.WriteDataBit(bits[7])
	}
}

const (
	idamSync   = 0xa1
	indexSync  = 0xc2
	idamTag    = 0xfe
	damTag     = 0xfb
	damDeleted = 0xf8
	iamTag     = 0xfc
)

// EncodeTrack builds the bitstream for t under f and gaps, using clock
// seeds per spec §4.6 (FM seeds 0xffff, MFM seeds 0xcdb4 post-sync).
func EncodeTrack(t *track.Track, f cylhead.Format, gaps Gaps) *bitbuffer.BitBuffer {
	maxHalfBits := t.TrackLen
	if maxHalfBits == 0 {
		maxHalfBits = estimateTrackLen(f)
	}
	w := bitbuffer.NewWriter(maxHalfBits, t.Encoding)
	b := &Builder{w: w, fill: 0x4e, encoding: t.Encoding}

	if gaps.WriteIAM {
		w.WriteGapByte(gaps.Gap1, b.fill)
		b.writeMarker(indexSync)
		w.WriteByte(iamTag)
	}
	w.WriteGapByte(gaps.Gap1, b.fill)

	for i, s := range t.Sectors {
		b.writeMarker(idamSync)
		w.WriteByte(idamTag)
		hdr := []byte{byte(s.Header.Cyl), byte(s.Header.Head), byte(s.Header.Sector), byte(s.Header.SizeCode)}
		for _, hb := range hdr {
			w.WriteByte(hb)
		}
		seed := sector.SeedMFM
		if t.Encoding == sector.EncFM {
			seed = sector.SeedFM
		}
		sum := sector.CRC16CCITT(seed, append([]byte{idamTag}, hdr...))
		w.WriteByte(byte(sum >> 8))
		w.WriteByte(byte(sum))

		w.WriteGapByte(gaps.Gap2, b.fill)

		b.writeMarker(idamSync)
		tag := byte(damTag)
		if s.Flags.Deleted {
			tag = damDeleted
		}
		w.WriteByte(tag)

		data := s.FirstCopy()
		for _, db := range data {
			w.WriteByte(db)
		}
		dsum := sector.CRC16CCITT(seed, append([]byte{tag}, data...))
		w.WriteByte(byte(dsum >> 8))
		w.WriteByte(byte(dsum))

		gap3 := gaps.Gap3
		if i == len(t.Sectors)-1 {
			// enforced final-sector gap-4b removal (spec §4.1 normalise)
			gap3 = 0
		}
		w.WriteGapByte(gap3, b.fill)
	}

	remaining := maxHalfBits/8 - len(w.Bits())
	if remaining > 0 {
		w.WriteGapByte(remaining, b.fill)
	}
	return w.ToBitBuffer(t.DataRate)
}

func estimateTrackLen(f cylhead.Format) int {
	bytesPerSector := 128 << uint(f.SizeCode)
	perSector := bytesPerSector + 62 + f.Gap3
	total := f.Sectors*perSector + 200
	return total * 16
}
