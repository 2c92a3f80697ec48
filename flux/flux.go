// Package flux implements FluxData (N revolutions of flux-reversal times)
// and the PLL-based conversions to/from BitBuffer (spec §3, §4.2), grounded
// on the teacher's pll.Decoder and mfm.GenerateFluxTransitions/CoverFullRotation.
package flux

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/sector"
)

// FluxData holds N captured revolutions of flux-reversal times in
// nanoseconds, each starting at t=0.
type FluxData struct {
	Revolutions [][]uint64
	Normalised  bool // cleared on raw acquisition; set once PLL-aligned
}

// PLL constants, carried over from the teacher's SCP-style decoder
// (pll.CLOCK_MAX_ADJ / PERIOD_ADJ_PCT / PHASE_ADJ_PCT).
const (
	clockMaxAdjPct  = 10 // +/- adjustment range, 90%-110% of ideal period
	periodAdjPct    = 5
	phaseAdjPct     = 60
	precompNs       = 140 // nominal write precompensation, ns
)

// Decoder recovers a bit sequence from one revolution of flux times using a
// phase-locked loop, matching pll.Decoder's algorithm exactly.
type Decoder struct {
	periodIdeal  float64
	period       float64
	accumFlux    float64
	time         float64
	clockedZeros int

	transitions []uint64
	index       int
	lastTime    uint64
}

// NewDecoder creates a PLL decoder for one revolution's transitions at the
// nominal bitRateKhz (kilobits/sec of data-bit rate; bitcell period is
// derived assuming 2 bitcells/databit as in MFM).
func NewDecoder(transitions []uint64, bitRateKhz uint16) *Decoder {
	period := 1e6 / float64(bitRateKhz) / 2
	return &Decoder{
		periodIdeal: period,
		period:      period,
		transitions: transitions,
	}
}

func (d *Decoder) nextFlux() uint64 {
	if d.index >= len(d.transitions) {
		return 0
	}
	next := d.transitions[d.index]
	interval := next - d.lastTime
	d.lastTime = next
	d.index++
	return interval
}

// IsDone reports whether all transitions have been consumed.
func (d *Decoder) IsDone() bool { return d.index >= len(d.transitions) }

// NextBit decodes the next bitcell: false for a clocked zero (no
// transition observed within the window), true when a transition landed in
// the current clock window, adjusting the PLL's period/phase as it goes.
func (d *Decoder) NextBit() bool {
	for d.accumFlux < d.period/2 {
		interval := d.nextFlux()
		if interval == 0 {
			d.clockedZeros++
			return false
		}
		d.accumFlux += float64(interval)
	}

	d.time += d.period
	d.accumFlux -= d.period

	if d.accumFlux >= d.period/2 {
		d.clockedZeros++
		return false
	}

	if d.clockedZeros <= 3 {
		d.period += d.accumFlux * periodAdjPct / 100
	} else {
		d.period += (d.periodIdeal - d.period) * periodAdjPct / 100
	}

	pMin := d.periodIdeal * (100 - clockMaxAdjPct) / 100
	if d.period < pMin {
		d.period = pMin
	}
	pMax := d.periodIdeal * (100 + clockMaxAdjPct) / 100
	if d.period > pMax {
		d.period = pMax
	}

	newFlux := d.accumFlux * (100 - phaseAdjPct) / 100
	d.time += d.accumFlux - newFlux
	d.accumFlux = newFlux
	d.clockedZeros = 0
	return true
}

// DecodeRevolution runs the PLL over one full revolution of transitions and
// returns the recovered bitcell stream as a BitBuffer.
func DecodeRevolution(transitions []uint64, bitRateKhz uint16, enc sector.Encoding) *bitbuffer.BitBuffer {
	d := NewDecoder(transitions, bitRateKhz)
	w := bitbuffer.NewWriter(1<<24, enc)
	for !d.IsDone() {
		w.WriteRawHalfBit(boolToBit(d.NextBit()))
	}
	rate := rateFromKhz(bitRateKhz)
	return w.ToBitBuffer(rate)
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rateFromKhz(khz uint16) sector.DataRate {
	switch {
	case khz <= 260:
		return sector.Rate250K
	case khz <= 310:
		return sector.Rate300K
	case khz <= 520:
		return sector.Rate500K
	case khz <= 1100:
		return sector.Rate1M
	default:
		return sector.Rate2M
	}
}

func khzFromRate(rate sector.DataRate) uint16 {
	switch rate {
	case sector.Rate250K:
		return 250
	case sector.Rate300K:
		return 300
	case sector.Rate500K:
		return 500
	case sector.Rate1M:
		return 1000
	case sector.Rate2M:
		return 2000
	default:
		return 250
	}
}

// EncodeBitBuffer expands a BitBuffer's bitcells to flux-reversal times,
// applying write precompensation to cells whose surrounding pattern would
// otherwise shift the transition on the medium (spec §4.6).
func EncodeBitBuffer(buf *bitbuffer.BitBuffer) ([]uint64, error) {
	if buf == nil || buf.NumBits == 0 {
		return nil, fmt.Errorf("flux: empty bit buffer")
	}
	bitRateKhz := khzFromRate(buf.DataRate)
	bitcellPeriodNs := uint64(1e9 / (float64(bitRateKhz) * 1000.0 * 2))

	transitions := make([]uint64, 0, buf.NumBits/2)
	currentTime := uint64(0)
	prevTransition := false
	for i := 0; i < buf.NumBits; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		bit := (buf.Bits[byteIdx] >> uint(bitIdx)) & 1
		currentTime += bitcellPeriodNs

		if bit != 0 {
			t := currentTime
			// Precompensation: an isolated transition surrounded by wide
			// gaps drifts under magnetic peak-shift; nudge it by
			// +/-precompNs based on the neighbouring cell pattern.
			next := nextBit(buf, i)
			if prevTransition && !next {
				t += precompNs
			} else if !prevTransition && next {
				t -= precompNs
			}
			transitions = append(transitions, t)
			prevTransition = true
		} else {
			prevTransition = false
		}
	}
	return transitions, nil
}

func nextBit(buf *bitbuffer.BitBuffer, i int) bool {
	if i+1 >= buf.NumBits {
		return false
	}
	byteIdx := (i + 1) / 8
	bitIdx := 7 - ((i + 1) % 8)
	return (buf.Bits[byteIdx]>>uint(bitIdx))&1 != 0
}

// CoverFullRotation extends transitions with evenly spaced "clocked zero"
// transitions until the full rotation period (derived from floppyRPM) is
// covered, matching mfm.CoverFullRotation.
func CoverFullRotation(transitions []uint64, bitRateKhz uint16, floppyRPM uint16) []uint64 {
	rotationDurationNs := uint64(60e9 / float64(floppyRPM))
	bitcellPeriodNs := uint64(1e9 / (float64(bitRateKhz) * 1000.0 * 2))
	twoBitcellPeriodNs := 2 * bitcellPeriodNs

	lastTime := uint64(0)
	if len(transitions) > 0 {
		lastTime = transitions[len(transitions)-1]
	}

	currentTime := lastTime
	for currentTime+twoBitcellPeriodNs <= rotationDurationNs {
		currentTime += twoBitcellPeriodNs
		transitions = append(transitions, currentTime)
	}
	return transitions
}
