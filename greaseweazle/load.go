package greaseweazle

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/trackdata"
)

// Load captures one track's flux, decodes it to MFM bitcells and returns it
// as a TrackData carrying a BitBuffer layer, implementing disk.DeviceSource
// (spec §4.3/§6) over the teacher's per-track ReadFlux/decodeFluxToMFM pair.
// withHeadSeekTo, when >= 0, seeks there first per the retry head-seek hint.
func (c *Client) Load(ch cylhead.CylHead, firstRead bool, withHeadSeekTo int, policy *disk.DeviceReadingPolicy) (*trackdata.TrackData, error) {
	if withHeadSeekTo >= 0 {
		if err := c.Seek(byte(withHeadSeekTo)); err != nil {
			return nil, fmt.Errorf("failed to seek to cylinder %d: %w", withHeadSeekTo, err)
		}
	}
	if err := c.SelectDrive(0); err != nil {
		return nil, fmt.Errorf("failed to select drive: %w", err)
	}
	if err := c.SetMotor(0, true); err != nil {
		return nil, fmt.Errorf("failed to turn on motor: %w", err)
	}
	if err := c.Seek(byte(ch.Cyl)); err != nil {
		return nil, fmt.Errorf("failed to seek to cylinder %d: %w", ch.Cyl, err)
	}
	if err := c.SetHead(byte(ch.Head)); err != nil {
		return nil, fmt.Errorf("failed to set head %d: %w", ch.Head, err)
	}

	revs := uint16(core.FirstReadRevs)
	if !firstRead {
		revs = uint16(core.RemainReadRevs)
	}
	fluxData, err := c.ReadFlux(0, revs)
	if err != nil {
		return nil, fmt.Errorf("failed to read flux data from %s: %w", ch, err)
	}

	rpm, bitRateKhz := c.calculateRPMAndBitRate(fluxData)

	mfmBits, err := c.decodeFluxToMFM(fluxData, bitRateKhz)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flux data to MFM from %s: %w", ch, err)
	}

	if err := c.GetFluxStatus(); err != nil {
		return nil, fmt.Errorf("flux status error after reading %s: %w", ch, err)
	}

	buf := &bitbuffer.BitBuffer{
		Bits:     mfmBits,
		NumBits:  len(mfmBits) * 8,
		DataRate: sector.RateFromKHz(int(bitRateKhz)),
		Encoding: sector.EncMFM,
		TrackLen: len(mfmBits) * 8,
	}

	td := trackdata.New(ch)
	td.SetBitBuffer(buf)
	td.BitRateKhz = bitRateKhz
	td.RPM = rpm
	return td, nil
}

// SupportsRetries reports that reloading a track with Load is meaningful
// (each capture is a fresh revolution off the physical medium).
func (c *Client) SupportsRetries() bool { return true }

// SupportsRescans reports that additional revolutions can improve a track.
func (c *Client) SupportsRescans() bool { return true }

// IsConstantDisk reports false: physical media is not guaranteed to return
// identical bytes across reads.
func (c *Client) IsConstantDisk() bool { return false }

// Preload is unsupported; Greaseweazle captures one track at a time.
func (c *Client) Preload(r cylhead.Range, step int) bool { return false }
