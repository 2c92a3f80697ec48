package supercardpro

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
// over the per-track readFlux/decodeFluxToMFM pair. withHeadSeekTo, when
// >= 0, seeks there first per the retry head-seek hint.
func (c *Client) Load(ch cylhead.CylHead, firstRead bool, withHeadSeekTo int, policy *disk.DeviceReadingPolicy) (*trackdata.TrackData, error) {
	if err := c.selectDrive(0); err != nil {
		return nil, fmt.Errorf("failed to select drive: %w", err)
	}
	defer c.deselectDrive(0)

	if withHeadSeekTo >= 0 {
		seekTrack := uint(withHeadSeekTo)*2 + uint(ch.Head)
		if err := c.seekTrack(seekTrack); err != nil {
			return nil, fmt.Errorf("failed to seek to cylinder %d: %w", withHeadSeekTo, err)
		}
	}

	track := uint(ch.Cyl)*2 + uint(ch.Head)
	if err := c.seekTrack(track); err != nil {
		return nil, fmt.Errorf("failed to seek to %s: %w", ch, err)
	}

	revs := uint(core.FirstReadRevs)
	if !firstRead {
		revs = uint(core.RemainReadRevs)
	}
	if revs > 5 {
		revs = 5
	}
	fluxData, err := c.readFlux(revs)
	if err != nil {
		return nil, fmt.Errorf("failed to read flux data from %s: %w", ch, err)
	}

	rpm, bitRateKhz := c.calculateRPMAndBitRate(fluxData)

	mfmBits, err := c.decodeFluxToMFM(fluxData, bitRateKhz)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flux data to MFM from %s: %w", ch, err)
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

// SupportsRetries reports that reloading a track with Load is meaningful.
func (c *Client) SupportsRetries() bool { return true }

// SupportsRescans reports that additional revolutions can improve a track.
func (c *Client) SupportsRescans() bool { return true }

// IsConstantDisk reports false: physical media is not guaranteed to return
// identical bytes across reads.
func (c *Client) IsConstantDisk() bool { return false }

// Preload is unsupported; SuperCard Pro captures one track at a time.
func (c *Client) Preload(r cylhead.Range, step int) bool { return false }
