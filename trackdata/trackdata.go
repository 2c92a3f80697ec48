// Package trackdata implements TrackData, the lazy multi-representation
// bundle holding whichever of {Track, BitBuffer, FluxData} are currently
// materialised for one CylHead, converting between them on demand (spec
// §3, §4.2). Modeled as the small tagged union the §9 design note calls
// for — no inheritance, pure conversion functions.
package trackdata

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/flux"
	"github.com/sergev/floppyimg/scan"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackbuilder"
)

// Representation flags bits, recording which layers are currently valid.
type Layer int

const (
	LayerTrack Layer = 1 << iota
	LayerBitBuffer
	LayerFlux
)

// TrackData holds whichever of {Track, BitBuffer, FluxData} are currently
// materialised for one CylHead, and lazily derives the others (spec §4.2).
type TrackData struct {
	CylHead cylhead.CylHead

	present Layer

	track     *track.Track
	bitBuffer *bitbuffer.BitBuffer
	fluxData  *flux.FluxData

	// Normalised records whether FluxData has been through PLL recovery
	// (§4.2: non-normalised flux is dropped unless explicitly requested).
	Normalised bool

	// BitRateKhz and RPM are needed to convert between BitBuffer and
	// FluxData; captured at acquisition time.
	BitRateKhz uint16
	RPM        uint16
}

// New creates an empty TrackData for ch with no layers materialised.
func New(ch cylhead.CylHead) *TrackData {
	return &TrackData{CylHead: ch}
}

// Has reports whether layer l is currently materialised.
func (td *TrackData) Has(l Layer) bool { return td.present&l != 0 }

// SetTrack installs t as the Track layer, invalidating nothing else unless
// the caller calls Invalidate explicitly (spec §3 Lifecycle).
func (td *TrackData) SetTrack(t *track.Track) {
	td.track = t
	td.present |= LayerTrack
}

// SetBitBuffer installs buf as the BitBuffer layer.
func (td *TrackData) SetBitBuffer(buf *bitbuffer.BitBuffer) {
	td.bitBuffer = buf
	td.present |= LayerBitBuffer
}

// SetFlux installs f as the FluxData layer.
func (td *TrackData) SetFlux(f *flux.FluxData, normalised bool) {
	td.fluxData = f
	td.Normalised = normalised
	td.present |= LayerFlux
}

// Invalidate clears layers other than keep, forcing later accessors to
// rederive them.
func (td *TrackData) Invalidate(keep Layer) {
	if keep&LayerTrack == 0 {
		td.track = nil
		td.present &^= LayerTrack
	}
	if keep&LayerBitBuffer == 0 {
		td.bitBuffer = nil
		td.present &^= LayerBitBuffer
	}
	if keep&LayerFlux == 0 {
		td.fluxData = nil
		td.present &^= LayerFlux
	}
}

// Track returns the Track layer, deriving it from BitBuffer or FluxData if
// necessary (spec §4.2 Track ← BitBuffer / Track ← FluxData).
func (td *TrackData) Track() (*track.Track, error) {
	if td.Has(LayerTrack) {
		return td.track, nil
	}
	buf, err := td.BitBuffer()
	if err != nil {
		return nil, fmt.Errorf("trackdata: cannot derive track for %v: %w", td.CylHead, err)
	}
	t := scan.IBMPC(buf, td.CylHead.Cyl, td.CylHead.Head)
	td.track = t
	td.present |= LayerTrack
	return t, nil
}

// BitBuffer returns the BitBuffer layer, deriving it from FluxData (PLL
// recovery) or from Track (encoding) if necessary.
func (td *TrackData) BitBuffer() (*bitbuffer.BitBuffer, error) {
	if td.Has(LayerBitBuffer) {
		return td.bitBuffer, nil
	}
	if td.Has(LayerFlux) {
		if len(td.fluxData.Revolutions) == 0 {
			return nil, fmt.Errorf("trackdata: flux layer has no revolutions for %v", td.CylHead)
		}
		enc := sector.EncMFM
		if td.track != nil {
			enc = td.track.Encoding
		}
		buf := flux.DecodeRevolution(td.fluxData.Revolutions[0], td.BitRateKhz, enc)
		td.bitBuffer = buf
		td.present |= LayerBitBuffer
		return buf, nil
	}
	if td.Has(LayerTrack) {
		f := cylhead.Format{SizeCode: 2, Sectors: len(td.track.Sectors), Gap3: 108}
		buf := trackbuilder.EncodeTrack(td.track, f, trackbuilder.DefaultGaps())
		td.bitBuffer = buf
		td.present |= LayerBitBuffer
		return buf, nil
	}
	return nil, fmt.Errorf("trackdata: no layer available to derive bitbuffer for %v", td.CylHead)
}

// Flux returns the FluxData layer, deriving it from BitBuffer (expansion
// with precompensation) if necessary.
func (td *TrackData) Flux() (*flux.FluxData, error) {
	if td.Has(LayerFlux) {
		return td.fluxData, nil
	}
	buf, err := td.BitBuffer()
	if err != nil {
		return nil, fmt.Errorf("trackdata: cannot derive flux for %v: %w", td.CylHead, err)
	}
	transitions, err := flux.EncodeBitBuffer(buf)
	if err != nil {
		return nil, fmt.Errorf("trackdata: %w", err)
	}
	rpm := td.RPM
	if rpm == 0 {
		rpm = 300
	}
	transitions = flux.CoverFullRotation(transitions, td.BitRateKhz, rpm)
	fd := &flux.FluxData{Revolutions: [][]uint64{transitions}}
	td.fluxData = fd
	td.present |= LayerFlux
	return fd, nil
}

// Preferred drops non-normalised flux unless keepRawFlux is set, per spec
// §4.2: "non-normalised flux is dropped unless explicitly asked for — it is
// considered an implementation detail of acquisition." Call this once the
// caller has extracted whatever representation it actually wants.
func (td *TrackData) Preferred(keepRawFlux bool) {
	if td.Has(LayerFlux) && !td.Normalised && !keepRawFlux {
		td.fluxData = nil
		td.present &^= LayerFlux
	}
}
