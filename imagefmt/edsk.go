// Package imagefmt implements the reader/writer dispatch table (spec §6)
// and the EDSK/RDSK codec, the "key image format" documented bit-exactly
// in §6: a fixed 256-byte (EDSK) or 1024-byte (RDSK) header, per-track
// Track-Info blocks with NEC uPD765 ST1/ST2-style per-sector status
// bytes. The Offset-Info/ReadStats-Info trailer blocks are neither written
// nor parsed.
// Grounded on the teacher's hfe.Disk read/write pair (read.go/write.go)
// for the dispatch-table shape, generalized to disk.Disk/track.Track
// instead of hfe's own Disk/TrackData types.
package imagefmt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackdata"
)

const (
	edskHeaderSize = 256
	rdskHeaderSize = 1024
	blockSize      = 256

	edskSignaturePrefix = "EXTENDED CPC DSK"
	trackInfoMagic      = "Track-Info\r\n\x00"
)

// status1/status2 bit meanings, mirroring NEC uPD765 ST1/ST2 (spec §6).
const (
	st1MissingAddressMark = 0x01
	st1BadIDCRC           = 0x20
	st2ControlMark        = 0x40
	st2BadDataCRC         = 0x20
	st2DataFieldNotFound  = 0x01
)

// edskDiskHeader is the fixed leading header, signature + creator +
// geometry + per-track size table, byte-laid-out per the documented
// EDSK shape.
type edskDiskHeader struct {
	Signature    [34]byte
	Creator      [14]byte
	NumTracks    uint8
	NumSides     uint8
	TrackSizeLow uint16 // only meaningful for plain (non-extended) DSK; EDSK uses the per-track table
}

// trackInfoHeader is the fixed 24-byte-plus-table prefix of one
// Track-Info block.
type trackInfoHeader struct {
	Magic          [13]byte
	_              [3]byte
	TrackNumber    uint8
	SideNumber     uint8
	DataRate       uint8
	RecordingMode  uint8
	SectorSize     uint8
	NumSectors     uint8
	Gap3Length     uint8
	FillerByte     uint8
}

// sectorInfo is the 8-byte per-sector descriptor inside a Track-Info
// block.
type sectorInfo struct {
	Cyl        uint8
	Head       uint8
	SectorID   uint8
	SizeCode   uint8
	Status1    uint8
	Status2    uint8
	ActualSize uint16
}

func dataRateByte(r sector.DataRate) uint8 {
	switch r {
	case sector.Rate250K:
		return 0
	case sector.Rate300K:
		return 1
	case sector.Rate500K:
		return 2
	case sector.Rate1M:
		return 3
	default:
		return 0
	}
}

func dataRateFromByte(b uint8) sector.DataRate {
	switch b {
	case 0:
		return sector.Rate250K
	case 1:
		return sector.Rate300K
	case 2:
		return sector.Rate500K
	case 3:
		return sector.Rate1M
	default:
		return sector.RateUnknown
	}
}

func recordingModeByte(e sector.Encoding) uint8 {
	if e == sector.EncFM {
		return 0
	}
	return 1
}

func encodingFromRecordingMode(b uint8) sector.Encoding {
	if b == 0 {
		return sector.EncFM
	}
	return sector.EncMFM
}

// EncodeEDSK serialises d into EDSK bytes, laying out each track's sectors
// bit-exactly per spec §6, including the multi-copy extension for
// weak/error sectors and the legacy-48K and dummy-trailing-byte quirks.
func EncodeEDSK(d *disk.Disk, r cylhead.Range) ([]byte, error) {
	var trackBlocks [][]byte
	var perTrackSize []uint16

	err := iterateOrdered(d, r, func(ch cylhead.CylHead, td *trackdata.TrackData) error {
		var t *track.Track
		if td != nil {
			tt, terr := td.Track()
			if terr != nil {
				return terr
			}
			t = tt
		} else {
			t = &track.Track{}
		}
		blk, terr := encodeTrackInfo(ch, t)
		if terr != nil {
			return terr
		}
		trackBlocks = append(trackBlocks, blk)
		perTrackSize = append(perTrackSize, uint16(len(blk)/blockSize))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	hdr := edskDiskHeader{NumTracks: uint8(r.Cylinders()), NumSides: uint8(r.Heads())}
	copy(hdr.Signature[:], edskSignaturePrefix)
	copy(hdr.Creator[:], "floppyimg")
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	// RDSK's 1024-byte header exists to hold a larger per-track size table
	// than EDSK's 256-byte header can: when the track count exceeds what
	// fits after the fixed fields, switch to the bigger header.
	headerSize := edskHeaderSize
	if len(perTrackSize) > edskHeaderSize-buf.Len() {
		headerSize = rdskHeaderSize
	}
	headerRemaining := headerSize - buf.Len()
	sizeTable := make([]byte, headerRemaining)
	for i, sz := range perTrackSize {
		if i < len(sizeTable) {
			sizeTable[i] = byte(sz)
		}
	}
	buf.Write(sizeTable)

	for _, blk := range trackBlocks {
		buf.Write(blk)
	}
	return buf.Bytes(), nil
}

func iterateOrdered(d *disk.Disk, r cylhead.Range, fn func(cylhead.CylHead, *trackdata.TrackData) error) error {
	var firstErr error
	r.Each(func(ch cylhead.CylHead) bool {
		td := d.Read(ch, nil)
		if err := fn(ch, td); err != nil {
			firstErr = err
			return false
		}
		return true
	})
	return firstErr
}

// encodeTrackInfo builds one Track-Info block (header + sector table +
// packed sector data), padded to the next 256-byte boundary.
func encodeTrackInfo(ch cylhead.CylHead, t *track.Track) ([]byte, error) {
	var buf bytes.Buffer

	th := trackInfoHeader{
		TrackNumber:   uint8(ch.Cyl),
		SideNumber:    uint8(ch.Head),
		DataRate:      dataRateByte(t.DataRate),
		RecordingMode: recordingModeByte(t.Encoding),
		NumSectors:    uint8(len(t.Sectors)),
		Gap3Length:    0x4e,
		FillerByte:    0xe5,
	}
	copy(th.Magic[:], trackInfoMagic)
	if len(t.Sectors) > 0 {
		th.SectorSize = uint8(t.Sectors[0].Header.SizeCode)
	}
	if err := binary.Write(&buf, binary.LittleEndian, &th); err != nil {
		return nil, err
	}

	type sectorPayload struct {
		info sectorInfo
		data []byte
	}
	payloads := make([]sectorPayload, 0, len(t.Sectors))

	for _, s := range t.Sectors {
		data := s.FirstCopy()
		st1, st2 := uint8(0), uint8(0)
		if s.Flags.BadIDCRC {
			st1 |= st1BadIDCRC
		}
		if s.Flags.Orphan {
			st1 |= st1MissingAddressMark
		}
		if s.Flags.BadDataCRC {
			st2 |= st2BadDataCRC
		}
		if s.Flags.Deleted {
			st2 |= st2ControlMark
		}
		if !s.HasData() {
			st2 |= st2DataFieldNotFound
		}

		actualSize := len(data)
		if len(s.Copies) > 1 {
			// Multi-copy extension: concatenate every copy; actualSize
			// records the combined size (spec §8 scenario 6).
			var combined []byte
			for _, c := range s.Copies {
				combined = append(combined, c.Bytes...)
			}
			data = combined
			actualSize = len(combined)
		}

		// Dummy trailing-byte marker: a bad-data-crc sector whose size is
		// one byte above a multiple of the native sector size gets an
		// extra marker byte appended (spec §4/§6 quirk).
		native := s.Header.Size()
		if s.Flags.BadDataCRC && native > 0 && actualSize%native == 1 {
			data = append(data, 0)
			actualSize++
		}

		payloads = append(payloads, sectorPayload{
			info: sectorInfo{
				Cyl: uint8(s.Header.Cyl), Head: uint8(s.Header.Head),
				SectorID: uint8(s.Header.Sector), SizeCode: uint8(s.Header.SizeCode),
				Status1: st1, Status2: st2, ActualSize: uint16(actualSize),
			},
			data: data,
		})
	}

	for _, p := range payloads {
		if err := binary.Write(&buf, binary.LittleEndian, &p.info); err != nil {
			return nil, err
		}
	}
	for _, p := range payloads {
		buf.Write(p.data)
	}

	padded := ((buf.Len() + blockSize - 1) / blockSize) * blockSize
	out := make([]byte, padded)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeEDSK parses EDSK bytes into a disk.Disk, the inverse of EncodeEDSK.
func DecodeEDSK(raw []byte) (*disk.Disk, error) {
	if len(raw) < edskHeaderSize {
		return nil, fmt.Errorf("imagefmt: EDSK image too short (%d bytes)", len(raw))
	}
	var hdr edskDiskHeader
	headerStructSize := binary.Size(hdr)
	if err := binary.Read(bytes.NewReader(raw[:headerStructSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("imagefmt: reading EDSK header: %w", err)
	}
	sig := string(bytes.TrimRight(hdr.Signature[:], "\x00"))
	if len(sig) < len(edskSignaturePrefix) || sig[:len(edskSignaturePrefix)] != edskSignaturePrefix {
		return nil, fmt.Errorf("imagefmt: not an EDSK image (signature %q)", sig)
	}

	numTracks := int(hdr.NumTracks) * int(hdr.NumSides)
	headerSize := edskHeaderSize
	if numTracks > edskHeaderSize-headerStructSize {
		headerSize = rdskHeaderSize
	}
	if len(raw) < headerSize {
		return nil, fmt.Errorf("imagefmt: EDSK image too short for its own track count (%d bytes)", len(raw))
	}
	sizeTable := raw[headerStructSize:headerSize]
	offset := headerSize

	d := disk.New()
	d.TypeTag = "EDSK"
	d.Format = cylhead.Format{Cyls: int(hdr.NumTracks), Heads: int(hdr.NumSides)}

	for i := 0; i < numTracks && i < len(sizeTable); i++ {
		sizeBlocks := int(sizeTable[i])
		if sizeBlocks == 0 {
			continue
		}
		size := sizeBlocks * blockSize
		if offset+size > len(raw) {
			return nil, fmt.Errorf("imagefmt: truncated track-info block %d", i)
		}
		t, ch, err := decodeTrackInfo(raw[offset : offset+size])
		if err != nil {
			return nil, fmt.Errorf("imagefmt: track %d: %w", i, err)
		}
		td := trackdata.New(ch)
		td.SetTrack(t)
		d.Write(ch, td, nil)
		offset += size
	}
	return d, nil
}

func decodeTrackInfo(blk []byte) (*track.Track, cylhead.CylHead, error) {
	var th trackInfoHeader
	r := bytes.NewReader(blk)
	if err := binary.Read(r, binary.LittleEndian, &th); err != nil {
		return nil, cylhead.CylHead{}, err
	}
	if string(bytes.TrimRight(th.Magic[:], "\x00")) != "Track-Info" {
		return nil, cylhead.CylHead{}, fmt.Errorf("bad Track-Info magic")
	}

	ch, err := cylhead.New(int(th.TrackNumber), int(th.SideNumber))
	if err != nil {
		return nil, cylhead.CylHead{}, err
	}

	t := &track.Track{
		DataRate: dataRateFromByte(th.DataRate),
		Encoding: encodingFromRecordingMode(th.RecordingMode),
	}

	headerLen := binary.Size(th)
	infoOffset := headerLen
	infos := make([]sectorInfo, th.NumSectors)
	for i := range infos {
		if err := binary.Read(bytes.NewReader(blk[infoOffset:]), binary.LittleEndian, &infos[i]); err != nil {
			return nil, cylhead.CylHead{}, err
		}
		infoOffset += binary.Size(infos[i])
	}

	dataOffset := infoOffset
	for _, info := range infos {
		native := sector.Header{SizeCode: int(info.SizeCode)}.Size()
		actual := int(info.ActualSize)
		if dataOffset+actual > len(blk) {
			actual = len(blk) - dataOffset
		}
		raw := blk[dataOffset : dataOffset+actual]
		dataOffset += actual

		s := sector.Sector{
			Header: sector.Header{
				Cyl: int(info.Cyl), Head: int(info.Head),
				Sector: int(info.SectorID), SizeCode: int(info.SizeCode),
			},
			DataRate: t.DataRate,
			Encoding: t.Encoding,
		}
		s.Flags.BadIDCRC = info.Status1&st1BadIDCRC != 0
		s.Flags.Orphan = info.Status1&st1MissingAddressMark != 0
		s.Flags.BadDataCRC = info.Status2&st2BadDataCRC != 0
		s.Flags.Deleted = info.Status2&st2ControlMark != 0

		trimmed := raw
		if s.Flags.BadDataCRC && native > 0 && len(trimmed)%native == 1 {
			trimmed = trimmed[:len(trimmed)-1]
		}

		// Covers the legacy-48K quirk too: an old 3x16K multi-copy sector
		// decodes the same way as any other multi-copy sector here.
		if native > 0 && len(trimmed) > native && len(trimmed)%native == 0 {
			for off := 0; off < len(trimmed); off += native {
				s.Copies = append(s.Copies, sector.DataCopy{Bytes: append([]byte(nil), trimmed[off:off+native]...)})
			}
		} else if len(trimmed) > 0 {
			s.Copies = append(s.Copies, sector.DataCopy{Bytes: append([]byte(nil), trimmed...)})
		}

		t.Sectors = append(t.Sectors, s)
	}

	return t, ch, nil
}
