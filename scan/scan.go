// Package scan implements the address-mark scanner that recovers a Track
// from a BitBuffer (spec §4.2 "Track ← BitBuffer"), generalizing the
// teacher's mfm.Reader IBM-PC and Amiga scan loops to the shared
// bitbuffer/sector/track types.
package scan

import (
	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
)

// IBMPC scans an MFM/FM bitstream for IBM-PC format address marks (IDAM
// 0xFE, DAM 0xFB/0xF8) and returns the recovered Track, grounded on
// mfm.Reader.scanIBMPC/ReadSectorIBMPC.
func IBMPC(buf *bitbuffer.BitBuffer, cylHint, headHint int) *track.Track {
	r := bitbuffer.NewReader(buf)
	t := &track.Track{TrackLen: buf.TrackLen, DataRate: buf.DataRate, Encoding: buf.Encoding}

	for {
		tag, ok := scanMarker(r, buf.Encoding)
		if !ok {
			break
		}
		if tag != 0xfe {
			continue
		}

		startOffset := r.BitPos()
		hdrBytes := make([]byte, 4)
		ok = true
		for i := range hdrBytes {
			b, err := r.ReadByte()
			if err != nil {
				ok = false
				break
			}
			hdrBytes[i] = b
		}
		if !ok {
			break
		}
		sumHi, err1 := r.ReadByte()
		sumLo, err2 := r.ReadByte()
		if err1 != nil || err2 != nil {
			break
		}
		headerSum := uint16(sumHi)<<8 | uint16(sumLo)

		seed := sector.SeedMFM
		if buf.Encoding == sector.EncFM {
			seed = sector.SeedFM
		}
		mySum := sector.CRC16CCITT(seed, append([]byte{0xfe}, hdrBytes...))
		badIDCRC := mySum != headerSum

		h := sector.Header{
			Cyl:      int(hdrBytes[0]),
			Head:     int(hdrBytes[1]),
			Sector:   int(hdrBytes[2]),
			SizeCode: int(hdrBytes[3]),
		}
		_ = cylHint
		_ = headHint

		s := sector.Sector{
			Header:   h,
			DataRate: buf.DataRate,
			Encoding: buf.Encoding,
			Offset:   startOffset,
		}
		s.Flags.BadIDCRC = badIDCRC

		dataTag, ok := scanMarker(r, buf.Encoding)
		if !ok {
			t.Add(s)
			break
		}
		if dataTag == 0xfe {
			t.Add(s)
			continue
		}
		s.DAM = byte(dataTag)
		if dataTag != 0xfb && dataTag != 0xf8 {
			t.Add(s)
			continue
		}
		if dataTag == 0xf8 {
			s.Flags.Deleted = true
		}

		size := h.Size()
		data := make([]byte, size)
		readOK := true
		for i := 0; i < size; i++ {
			b, err := r.ReadByte()
			if err != nil {
				readOK = false
				break
			}
			data[i] = b
		}
		if readOK {
			dSumHi, e1 := r.ReadByte()
			dSumLo, e2 := r.ReadByte()
			if e1 == nil && e2 == nil {
				dataSum := uint16(dSumHi)<<8 | uint16(dSumLo)
				myDataSum := sector.CRC16CCITT(seed, append([]byte{byte(dataTag)}, data...))
				if myDataSum != dataSum {
					s.Flags.BadDataCRC = true
				}
			}
			s.Copies = []sector.DataCopy{{Bytes: data}}
		}
		t.Add(s)
	}
	return t
}

// scanMarker advances r past sync bytes and returns the tag byte following
// an A1A1A1 (data/IDAM) or C2C2C2 (index) marker, grounded on
// mfm.Reader.scanIBMPC.
func scanMarker(r *bitbuffer.Reader, enc sector.Encoding) (int, bool) {
	history := uint32(0x13713713)
	for {
		bit, err := r.ReadDataBit()
		if err != nil {
			return -1, false
		}
		history = (history << 1) | uint32(bit)
		if history == 0xffffffff {
			if _, err := r.ReadHalfBit(); err != nil {
				return -1, false
			}
			history = 0
			continue
		}
		if history == 0x00a1a1a1 || history == 0x00c2c2c2 {
			b, err := r.ReadByte()
			if err != nil {
				return -1, false
			}
			return int(b), true
		}
	}
}
