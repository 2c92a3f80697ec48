// Package cylhead provides the physical-address and geometry primitives
// shared across the disk model: CylHead, Range and Format.
package cylhead

import "fmt"

// MaxCyls bounds the cylinder field of a CylHead; no floppy drive exceeds it.
const MaxCyls = 128

// CylHead identifies one side of one cylinder on a physical disk.
type CylHead struct {
	Cyl  int
	Head int
}

// New constructs a CylHead, validating the cylinder bound.
func New(cyl, head int) (CylHead, error) {
	if cyl < 0 || cyl >= MaxCyls {
		return CylHead{}, fmt.Errorf("cylhead: cyl %d out of range [0,%d)", cyl, MaxCyls)
	}
	if head != 0 && head != 1 {
		return CylHead{}, fmt.Errorf("cylhead: head %d out of range {0,1}", head)
	}
	return CylHead{Cyl: cyl, Head: head}, nil
}

// Less implements the (cyl, head) total order.
func (ch CylHead) Less(other CylHead) bool {
	if ch.Cyl != other.Cyl {
		return ch.Cyl < other.Cyl
	}
	return ch.Head < other.Head
}

func (ch CylHead) String() string {
	return fmt.Sprintf("%d.%d", ch.Cyl, ch.Head)
}

// Range is a rectangular region of CylHead, [CylBegin,CylEnd) x [HeadBegin,HeadEnd).
type Range struct {
	CylBegin, CylEnd   int
	HeadBegin, HeadEnd int
	CylsFirst          bool // iteration order: cylinders outer or heads outer
}

// NewRange builds the range spanning every cylinder/head of the given geometry.
func NewRange(cyls, heads int) Range {
	return Range{CylBegin: 0, CylEnd: cyls, HeadBegin: 0, HeadEnd: heads}
}

// Empty reports whether the range covers zero area.
func (r Range) Empty() bool {
	return r.CylEnd <= r.CylBegin || r.HeadEnd <= r.HeadBegin
}

// Contains reports whether ch falls within the range.
func (r Range) Contains(ch CylHead) bool {
	return ch.Cyl >= r.CylBegin && ch.Cyl < r.CylEnd &&
		ch.Head >= r.HeadBegin && ch.Head < r.HeadEnd
}

// Each calls fn for every CylHead in the range, honoring CylsFirst for
// iteration order. Iteration stops early if fn returns false.
func (r Range) Each(fn func(CylHead) bool) {
	if r.Empty() {
		return
	}
	if r.CylsFirst {
		for cyl := r.CylBegin; cyl < r.CylEnd; cyl++ {
			for head := r.HeadBegin; head < r.HeadEnd; head++ {
				if !fn(CylHead{Cyl: cyl, Head: head}) {
					return
				}
			}
		}
		return
	}
	for head := r.HeadBegin; head < r.HeadEnd; head++ {
		for cyl := r.CylBegin; cyl < r.CylEnd; cyl++ {
			if !fn(CylHead{Cyl: cyl, Head: head}) {
				return
			}
		}
	}
}

// Cylinders returns the number of distinct cylinders covered.
func (r Range) Cylinders() int {
	if r.CylEnd <= r.CylBegin {
		return 0
	}
	return r.CylEnd - r.CylBegin
}

// Heads returns the number of distinct heads covered.
func (r Range) Heads() int {
	if r.HeadEnd <= r.HeadBegin {
		return 0
	}
	return r.HeadEnd - r.HeadBegin
}
