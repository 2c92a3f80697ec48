package kryoflux

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/trackdata"
)

// Load captures one track's stream, decodes it to MFM bitcells and returns
// it as a TrackData carrying a BitBuffer layer, implementing
// disk.DeviceSource over captureStream/decodeKryoFluxStream/
// decodeFluxToMFM. withHeadSeekTo, when >= 0, is applied as a head-seek
// detour before settling on ch, per the retry head-seek hint.
func (c *Client) Load(ch cylhead.CylHead, firstRead bool, withHeadSeekTo int, policy *disk.DeviceReadingPolicy) (*trackdata.TrackData, error) {
	if err := c.configure(0, 0, 0, 83); err != nil {
		return nil, fmt.Errorf("failed to configure device: %w", err)
	}

	if withHeadSeekTo >= 0 {
		if err := c.motorOn(ch.Head, withHeadSeekTo); err != nil {
			return nil, fmt.Errorf("failed to seek to cylinder %d: %w", withHeadSeekTo, err)
		}
	}

	if err := c.motorOn(ch.Head, ch.Cyl); err != nil {
		return nil, fmt.Errorf("failed to position head at %s: %w", ch, err)
	}
	defer c.motorOff()

	streamData, err := c.captureStream()
	if err != nil {
		return nil, fmt.Errorf("failed to capture stream from %s: %w", ch, err)
	}

	decoded, err := c.decodeKryoFluxStream(streamData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream from %s: %w", ch, err)
	}

	rpm, bitRateKhz := c.calculateRPMAndBitRate(decoded)

	mfmBits, err := c.decodeFluxToMFM(decoded, bitRateKhz)
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

// SupportsRescans reports that additional stream captures can improve a
// track: KryoFlux always captures a single pass, so a rescan simply
// recaptures.
func (c *Client) SupportsRescans() bool { return true }

// IsConstantDisk reports false: physical media is not guaranteed to return
// identical bytes across reads.
func (c *Client) IsConstantDisk() bool { return false }

// Preload is unsupported; KryoFlux captures one track at a time.
func (c *Client) Preload(r cylhead.Range, step int) bool { return false }
