package imagefmt

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/hfe"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/trackdata"
)

// ReadHFEFamily loads filename through the teacher's hfe package (HFE, IMG,
// ADF and the remaining stub formats dispatch on extension the same way
// hfe.Read already does) and converts its raw-bitstream Disk into a
// disk.Disk of lazily-scanned BitBuffer layers.
func ReadHFEFamily(filename string) (*disk.Disk, error) {
	src, err := hfe.Read(filename)
	if err != nil {
		return nil, fmt.Errorf("imagefmt: %w", err)
	}
	return FromHFEDisk(src)
}

// WriteHFEFamily converts d to the teacher's raw-bitstream Disk shape and
// writes it out via hfe.Write, dispatching on filename's extension exactly
// as hfe.Write does internally.
func WriteHFEFamily(filename string, d *disk.Disk) error {
	dst, err := ToHFEDisk(d)
	if err != nil {
		return err
	}
	if err := hfe.Write(filename, dst); err != nil {
		return fmt.Errorf("imagefmt: %w", err)
	}
	return nil
}

func bitRateKhzFromRate(r sector.DataRate) uint16 {
	switch r {
	case sector.Rate1M:
		return 1000
	case sector.Rate500K:
		return 500
	case sector.Rate300K:
		return 300
	default:
		return 250
	}
}

// FromHFEDisk converts a teacher hfe.Disk (raw per-side bitstreams) into a
// disk.Disk of lazily-scanned BitBuffer layers. Exported so callers that
// already hold an hfe.Disk (e.g. a physical write path) can reuse it without
// going through a file.
func FromHFEDisk(src *hfe.Disk) (*disk.Disk, error) {
	d := disk.New()
	d.TypeTag = "HFE"
	cyls := int(src.Header.NumberOfTrack)
	heads := int(src.Header.NumberOfSide)
	d.Format = cylhead.Format{Cyls: cyls, Heads: heads}

	rate := sector.RateFromKHz(int(src.Header.BitRate))
	enc := sector.EncMFM
	if src.Header.TrackEncoding == hfe.ENC_ISOIBM_FM {
		enc = sector.EncFM
	}

	for i, tr := range src.Tracks {
		if i >= cyls {
			break
		}
		sides := [][]byte{tr.Side0}
		if heads > 1 {
			sides = append(sides, tr.Side1)
		}
		for head, bits := range sides {
			if len(bits) == 0 {
				continue
			}
			ch, err := cylhead.New(i, head)
			if err != nil {
				return nil, err
			}
			buf := &bitbuffer.BitBuffer{
				Bits:     append([]byte(nil), bits...),
				NumBits:  len(bits) * 8,
				DataRate: rate,
				Encoding: enc,
				TrackLen: len(bits) * 8,
			}
			td := trackdata.New(ch)
			td.SetBitBuffer(buf)
			d.Write(ch, td, nil)
		}
	}
	return d, nil
}

// ToHFEDisk converts d into the teacher's raw-bitstream Disk shape.
func ToHFEDisk(d *disk.Disk) (*hfe.Disk, error) {
	cyls, heads := d.Format.Cyls, d.Format.Heads
	if cyls == 0 {
		cyls = 80
	}
	if heads == 0 {
		heads = 2
	}

	out := &hfe.Disk{
		Header: hfe.Header{
			NumberOfTrack: uint8(cyls),
			NumberOfSide:  uint8(heads),
		},
		Tracks: make([]hfe.TrackData, cyls),
	}

	rng := cylhead.NewRange(cyls, heads)
	var firstRate sector.DataRate
	var firstEnc sector.Encoding
	rng.Each(func(ch cylhead.CylHead) bool {
		td := d.Read(ch, nil)
		if td == nil {
			return true
		}
		buf, err := td.BitBuffer()
		if err != nil || buf == nil {
			return true
		}
		if firstRate == sector.RateUnknown {
			firstRate, firstEnc = buf.DataRate, buf.Encoding
		}
		if ch.Head == 0 {
			out.Tracks[ch.Cyl].Side0 = append([]byte(nil), buf.Bits...)
		} else {
			out.Tracks[ch.Cyl].Side1 = append([]byte(nil), buf.Bits...)
		}
		return true
	})

	out.Header.BitRate = bitRateKhzFromRate(firstRate)
	if firstEnc == sector.EncFM {
		out.Header.TrackEncoding = hfe.ENC_ISOIBM_FM
	}
	return out, nil
}
