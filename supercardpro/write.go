package supercardpro

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/sector"
)

// Convert MFM bitcells to flux transition times.
// Each 1 bit in the MFM bitcell stream is a flux transition; 0 bits are none.
// Return transition times in nanoseconds relative to track start.
func mfmToFluxTransitions(mfmBits []byte, bitRateKhz uint16) ([]uint64, error) {
	if len(mfmBits) == 0 {
		return nil, fmt.Errorf("empty MFM data")
	}

	// Calculate bitcell period in nanoseconds
	// bitRateKhz is in kbps, so bitRate_bps = bitRateKhz * 1000
	bitRateBps := float64(bitRateKhz) * 1000.0 * 2
	bitcellPeriodNs := uint64(1e9 / bitRateBps)

	var transitions []uint64
	currentTime := uint64(0)

	// Process each bit in the MFM bitcell stream
	bitCount := len(mfmBits) * 8
	for i := 0; i < bitCount; i++ {
		// Extract bit at position i (MSB-first)
		byteIdx := i / 8
		bitIdx := 7 - (i % 8) // MSB-first
		currentBit := (mfmBits[byteIdx] & (1 << bitIdx)) != 0

		// Advance time by one bitcell period before checking for transition
		currentTime += bitcellPeriodNs

		// Add transition time when the bitcell is 1
		if currentBit {
			transitions = append(transitions, currentTime)
		}
	}
	return transitions, nil
}

// Encode flux transition times into SuperCard Pro flux format.
// Transitions are relative times in nanoseconds, converted to intervals in 25ns units.
// Ensure the stream covers at least one full revolution by padding if necessary.
func encodeFluxToSCP(transitions []uint64, rpm uint16) []byte {
	var result []byte

	if len(transitions) == 0 {
		// No transitions - generate minimal flux data for one revolution
		rotationDurationNs := 60e9 / float64(rpm)
		indexTime25ns := uint32(rotationDurationNs / 25.0)
		// Use a reasonable interval size
		intervalSize := uint16(40) // 40 * 25ns = 1 microsecond
		nrSamples := indexTime25ns / uint32(intervalSize)
		if nrSamples == 0 {
			nrSamples = 1
		}
		result = make([]byte, int(nrSamples)*2)
		for i := uint32(0); i < nrSamples; i++ {
			binary.BigEndian.PutUint16(result[i*2:(i+1)*2], intervalSize)
		}
		return result
	}

	// Calculate rotation duration in nanoseconds
	rotationDurationNs := 60e9 / float64(rpm)
	indexTime25ns := uint32(rotationDurationNs / 25.0)

	// Convert transitions to intervals
	lastTime := uint64(0)
	for _, transitionTime := range transitions {
		// Calculate interval in nanoseconds
		intervalNs := transitionTime - lastTime

		// Convert to 25ns units
		interval25ns := uint32(intervalNs / 25)

		// Handle overflow: if interval >= 0x10000, emit 0x0000 and subtract 0x10000
		for interval25ns >= 0x10000 {
			// Emit overflow marker (0x0000)
			result = append(result, 0x00, 0x00)
			interval25ns -= 0x10000
		}

		// Ensure minimum interval of 1 (0 would be interpreted as overflow)
		if interval25ns == 0 {
			interval25ns = 1
		}

		// Emit interval as big-endian uint16
		intervalBytes := make([]byte, 2)
		binary.BigEndian.PutUint16(intervalBytes, uint16(interval25ns))
		result = append(result, intervalBytes...)

		lastTime = transitionTime
	}

	// Ensure we cover at least one full revolution
	// Calculate total duration from the last transition time
	totalTime25ns := uint32(lastTime / 25)
	if totalTime25ns < indexTime25ns {
		remaining25ns := indexTime25ns - totalTime25ns
		// Add padding intervals to cover the remaining time
		// Use a reasonable interval size for padding
		intervalSize := uint16(40) // 40 * 25ns = 1 microsecond
		nrPaddingSamples := remaining25ns / uint32(intervalSize)
		if nrPaddingSamples == 0 {
			nrPaddingSamples = 1
		}
		for i := uint32(0); i < nrPaddingSamples; i++ {
			intervalBytes := make([]byte, 2)
			binary.BigEndian.PutUint16(intervalBytes, intervalSize)
			result = append(result, intervalBytes...)
		}
	}

	return result
}

// loadRAM uploads raw flux samples into the device's onboard buffer ahead
// of a writeFlux call, using SCPCMD_LOADRAM_USB's offset/length header
// followed by the raw payload (the inverse of readFlux's SENDRAM_USB pull).
func (c *Client) loadRAM(data []byte) error {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], 0) // offset
	binary.BigEndian.PutUint32(header[4:8], uint32(len(data)))

	packet := make([]byte, 3+len(header))
	packet[0] = SCPCMD_LOADRAM_USB
	packet[1] = byte(len(header))
	copy(packet[2:2+len(header)], header)
	checksum := byte(0x4a)
	for i := 0; i < 2+len(header); i++ {
		checksum += packet[i]
	}
	packet[2+len(header)] = checksum

	if _, err := c.port.Write(packet); err != nil {
		return fmt.Errorf("failed to write LOADRAM_USB command: %w", err)
	}
	if _, err := c.port.Write(data); err != nil {
		return fmt.Errorf("failed to upload flux data: %w", err)
	}

	response := make([]byte, 2)
	if _, err := io.ReadFull(c.port, response); err != nil {
		return fmt.Errorf("failed to read LOADRAM_USB response: %w", err)
	}
	if response[0] != SCPCMD_LOADRAM_USB {
		return fmt.Errorf("command echo mismatch: sent 0x%02x, received 0x%02x", SCPCMD_LOADRAM_USB, response[0])
	}
	if response[1] != SCP_STATUS_OK {
		return fmt.Errorf("LOADRAM_USB failed with status 0x%02x", response[1])
	}
	return nil
}

// writeFlux commits nrSamples flux intervals already staged by loadRAM to
// the medium, repeated for nrRevs revolutions.
func (c *Client) writeFlux(nrSamples uint32, nrRevs uint) error {
	params := make([]byte, 5)
	binary.BigEndian.PutUint32(params[0:4], nrSamples)
	params[4] = byte(nrRevs)
	return c.scpSend(SCPCMD_WRITEFLUX, params, nil)
}

// WriteImage writes every track of d, up to numCylinders cylinders, to the
// floppy disk, one track at a time, generalizing the per-track flux upload
// above to an arbitrary disk.Disk source.
func (c *Client) WriteImage(d *disk.Disk, numCylinders int) error {
	if numCylinders > 82 {
		numCylinders = 82
	}

	err := c.selectDrive(0)
	if err != nil {
		return fmt.Errorf("failed to select drive: %w", err)
	}
	defer c.deselectDrive(0)

	heads := d.Format.Heads
	if heads == 0 {
		heads = 2
	}

	fmt.Printf("Writing image to floppy disk\n")
	fmt.Printf("Tracks: %d, Sides: %d\n", numCylinders, heads)

	for cyl := 0; cyl < numCylinders; cyl++ {
		for head := 0; head < heads; head++ {
			if cyl != 0 || head != 0 {
				fmt.Printf("\rWriting track %d, side %d...", cyl, head)
			} else {
				fmt.Printf("Writing track %d, side %d...", cyl, head)
			}

			ch, err := cylhead.New(cyl, head)
			if err != nil {
				return fmt.Errorf("invalid cylhead %d/%d: %w", cyl, head, err)
			}
			track := uint(cyl*2 + head)
			if err := c.seekTrack(track); err != nil {
				return fmt.Errorf("failed to seek to track %d: %w", track, err)
			}

			td := d.Read(ch, nil)
			var mfmBits []byte
			rpm := uint16(300)
			bitRateKhz := uint16(250)
			if td != nil {
				if buf, err := td.BitBuffer(); err == nil && buf != nil {
					mfmBits = buf.Bits
					bitRateKhz = bitRateKhzFromDataRate(buf.DataRate)
				}
				if td.RPM != 0 {
					rpm = td.RPM
				}
			}

			var transitions []uint64
			if len(mfmBits) > 0 {
				transitions, err = mfmToFluxTransitions(mfmBits, bitRateKhz)
				if err != nil {
					return fmt.Errorf("failed to convert MFM to flux transitions for cylinder %d, head %d: %w", cyl, head, err)
				}
			}

			fluxData := encodeFluxToSCP(transitions, rpm)
			nrSamples := uint32(len(fluxData) / 2)

			if err := c.loadRAM(fluxData); err != nil {
				return fmt.Errorf("failed to load flux data for cylinder %d, head %d: %w", cyl, head, err)
			}
			if err := c.writeFlux(nrSamples, 2); err != nil {
				return fmt.Errorf("failed to write flux data for cylinder %d, head %d: %w", cyl, head, err)
			}
		}
	}
	fmt.Printf(" Done\n")

	return nil
}

// bitRateKhzFromDataRate converts the domain DataRate enum back to a
// nominal kbps figure for flux encoding, the inverse of sector.RateFromKHz.
func bitRateKhzFromDataRate(r sector.DataRate) uint16 {
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
