package fat12

import (
	"bytes"
	"encoding/binary"
)

// rawBpb mirrors the on-disk byte layout of the BIOS Parameter Block
// starting at boot-sector offset 0x0B, field order and sizes per the
// FAT12 specification (and matching dargueta-disko's
// RawFATBootSectorWithBPB field naming).
type rawBpb struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
}

// DecodeBpb reads the packed BPB bytes (expected to start at the boot
// sector's offset 0x0B) using the teacher corpus's encoding/binary
// byte-copy-mutate-writeback idiom rather than hand-rolled bit shifting.
func DecodeBpb(raw []byte) (Bpb, error) {
	var r rawBpb
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &r); err != nil {
		return Bpb{}, err
	}
	total := int(r.TotalSectors16)
	if total == 0 {
		total = int(r.TotalSectors32)
	}
	return Bpb{
		BytesPerSector:    int(r.BytesPerSector),
		SectorsPerCluster: int(r.SectorsPerCluster),
		ReservedSectors:   int(r.ReservedSectors),
		NumFATs:           int(r.NumFATs),
		RootEntryCount:    int(r.RootEntryCount),
		TotalSectors:      total,
		Media:             r.Media,
		SectorsPerFAT:     int(r.SectorsPerFAT),
		SectorsPerTrack:   int(r.SectorsPerTrack),
		NumHeads:          int(r.NumHeads),
	}, nil
}

// EncodeBpb writes bpb back into the packed on-disk layout DecodeBpb reads,
// the "copies the bytes out, mutates the copy, writes back" pattern ReconstructBpb
// relies on to only touch the fields it actually changed.
func EncodeBpb(bpb Bpb) ([]byte, error) {
	r := rawBpb{
		BytesPerSector:    uint16(bpb.BytesPerSector),
		SectorsPerCluster: uint8(bpb.SectorsPerCluster),
		ReservedSectors:   uint16(bpb.ReservedSectors),
		NumFATs:           uint8(bpb.NumFATs),
		RootEntryCount:    uint16(bpb.RootEntryCount),
		Media:             bpb.Media,
		SectorsPerFAT:     uint16(bpb.SectorsPerFAT),
		SectorsPerTrack:   uint16(bpb.SectorsPerTrack),
		NumHeads:          uint16(bpb.NumHeads),
	}
	if bpb.TotalSectors <= 0xffff {
		r.TotalSectors16 = uint16(bpb.TotalSectors)
	} else {
		r.TotalSectors32 = uint32(bpb.TotalSectors)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
