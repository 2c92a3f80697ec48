// Package bitbuffer implements BitBuffer, the MFM/FM bitstream
// representation of one track (spec §3, §4.1), generalizing the teacher's
// mfm.Reader/mfm.Writer half-bit primitives to both encodings.
package bitbuffer

import (
	"fmt"

	"github.com/sergev/floppyimg/sector"
)

// BitBuffer holds a raw MSB-first bit sequence recorded at a given data
// rate and encoding, with its nominal track length in bitcells.
type BitBuffer struct {
	Bits     []byte // packed MSB-first
	NumBits  int
	DataRate sector.DataRate
	Encoding sector.Encoding
	TrackLen int // nominal length in bitcells for this revolution
}

// New creates an empty BitBuffer sized to hold at least numBits bits.
func New(numBits int, rate sector.DataRate, enc sector.Encoding) *BitBuffer {
	return &BitBuffer{
		Bits:     make([]byte, 0, (numBits+7)/8),
		DataRate: rate,
		Encoding: enc,
		TrackLen: numBits,
	}
}

// Reader scans a BitBuffer bit by bit, tracking MFM/FM clock/data framing.
type Reader struct {
	buf    *BitBuffer
	bitPos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf *BitBuffer) *Reader {
	return &Reader{buf: buf}
}

// BitPos returns the reader's current bit-offset within the buffer.
func (r *Reader) BitPos() int { return r.bitPos }

// SeekBit repositions the reader to an absolute bit offset.
func (r *Reader) SeekBit(pos int) { r.bitPos = pos }

// ReadHalfBit reads one raw bitcell.
func (r *Reader) ReadHalfBit() (int, error) {
	if r.bitPos >= r.buf.NumBits {
		return -1, fmt.Errorf("bitbuffer: end of stream")
	}
	byteIdx := r.bitPos / 8
	bitIdx := 7 - (r.bitPos & 7)
	bit := (r.buf.Bits[byteIdx] >> uint(bitIdx)) & 1
	r.bitPos++
	return int(bit), nil
}

// ReadDataBit reads one data bit, consuming the clock half-bit that
// precedes it. Both encodings carry a clock cell before every data cell,
// as Writer emits them (the FM clock cell is always set and carries no
// information).
func (r *Reader) ReadDataBit() (int, error) {
	if _, err := r.ReadHalfBit(); err != nil {
		return -1, err
	}
	return r.ReadHalfBit()
}

// ReadByte reads 8 data bits MSB-first.
func (r *Reader) ReadByte() (byte, error) {
	var result byte
	for i := 0; i < 8; i++ {
		bit, err := r.ReadDataBit()
		if err != nil {
			return 0, err
		}
		result = (result << 1) | byte(bit)
	}
	return result, nil
}

// Writer appends MFM/FM-encoded bits to a buffer bounded by MaxHalfBits.
type Writer struct {
	buf         []byte
	bitPos      int
	lastDataBit int
	maxHalfBits int
	encoding    sector.Encoding
}

// NewWriter creates a Writer for a track of maxHalfBits total bitcells.
func NewWriter(maxHalfBits int, enc sector.Encoding) *Writer {
	return &Writer{
		buf:         make([]byte, 0, (maxHalfBits+7)/8),
		maxHalfBits: maxHalfBits,
		encoding:    enc,
	}
}

func (w *Writer) writeHalfBit(bit int) {
	if w.bitPos >= w.maxHalfBits {
		return
	}
	neededBytes := (w.bitPos + 7) / 8
	if neededBytes >= len(w.buf) {
		w.buf = append(w.buf, 0)
	}
	if bit != 0 {
		byteIdx := w.bitPos / 8
		bitIdx := 7 - (w.bitPos % 8)
		w.buf[byteIdx] |= 1 << uint(bitIdx)
	}
	w.bitPos++
}

// WriteDataBit encodes one data bit per the active encoding's clock rule:
// MFM inserts a clock reversal between consecutive zeros only; FM writes a
// clock reversal before every data bit.
func (w *Writer) WriteDataBit(bit int) {
	if w.encoding == sector.EncFM {
		w.writeHalfBit(1) // FM clock cell, always set
		w.writeHalfBit(bit)
		w.lastDataBit = bit
		return
	}
	if bit != 0 {
		w.writeHalfBit(0)
		w.writeHalfBit(1)
	} else {
		w.writeHalfBit(w.lastDataBit ^ 1)
		w.writeHalfBit(0)
	}
	w.lastDataBit = bit
}

// WriteByte encodes a data byte MSB-first.
func (w *Writer) WriteByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.WriteDataBit(int((b >> uint(i)) & 1))
	}
}

// WriteGapByte writes n copies of fill as encoded gap bytes.
func (w *Writer) WriteGapByte(n int, fill byte) {
	for i := 0; i < n; i++ {
		w.WriteByte(fill)
	}
}

// WriteRawHalfBit writes a raw, un-encoded bitcell — used for address-mark
// sync patterns that intentionally violate the clock rule.
func (w *Writer) WriteRawHalfBit(bit int) { w.writeHalfBit(bit) }

// Bits returns the written buffer trimmed to its actual used length.
func (w *Writer) Bits() []byte {
	actual := (w.bitPos + 7) / 8
	if actual < len(w.buf) {
		return w.buf[:actual]
	}
	return w.buf
}

// Len returns the number of bitcells written so far.
func (w *Writer) Len() int { return w.bitPos }

// ToBitBuffer packages the writer's output as a BitBuffer.
func (w *Writer) ToBitBuffer(rate sector.DataRate) *BitBuffer {
	return &BitBuffer{
		Bits:     w.Bits(),
		NumBits:  w.bitPos,
		DataRate: rate,
		Encoding: w.encoding,
		TrackLen: w.maxHalfBits,
	}
}
