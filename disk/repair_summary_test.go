package disk

import (
	"testing"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/trackdata"
)

func TestRepairSummaryDiskPullsFromOuterOnFirstRead(t *testing.T) {
	outer := New()
	ch := cylhead.CylHead{Cyl: 0, Head: 0}
	outerTD := trackdata.New(ch)
	outerTD.SetTrack(mkTrack(1, 2, 3))
	outer.Write(ch, outerTD, nil)

	pullCount := 0
	transferFn := func(src Reader, ch cylhead.CylHead, dst Writer, policy *DeviceReadingPolicy) (int, error) {
		pullCount++
		td := src.Read(ch, policy)
		dst.Write(ch, td, policy)
		return len(mkTrack(1, 2, 3).Sectors), nil
	}
	rsd := NewRepairSummaryDisk(outer, transferFn)

	got := rsd.Read(ch, nil)
	if got == nil {
		t.Fatal("expected a pulled TrackData, got nil")
	}
	if pullCount != 1 {
		t.Errorf("expected exactly one pull from outer, got %d", pullCount)
	}
}

func TestRepairSummaryDiskSkipsPullWhenInnerAlreadySatisfiesPolicy(t *testing.T) {
	outer := New()
	ch := cylhead.CylHead{Cyl: 0, Head: 0}

	rsd := NewRepairSummaryDisk(outer, func(src Reader, ch cylhead.CylHead, dst Writer, policy *DeviceReadingPolicy) (int, error) {
		t.Fatal("transfer should not be invoked when inner already satisfies the policy")
		return 0, nil
	})

	innerTD := trackdata.New(ch)
	innerTD.SetTrack(mkTrack(1, 2, 3))
	rsd.Inner.Write(ch, innerTD, nil)

	policy := NewDeviceReadingPolicy([]int{1, 2, 3})
	got := rsd.Read(ch, policy)
	if got != innerTD {
		t.Errorf("expected the already-good inner track to be returned without a pull")
	}
}

func TestRepairSummaryDiskFormatForwardsToOuter(t *testing.T) {
	outer := New()
	outer.Format = cylhead.Format{Cyls: 80, Heads: 2, Sectors: 9}
	rsd := NewRepairSummaryDisk(outer, func(Reader, cylhead.CylHead, Writer, *DeviceReadingPolicy) (int, error) { return 0, nil })
	if rsd.Format() != outer.Format {
		t.Errorf("Format() = %+v, want %+v", rsd.Format(), outer.Format)
	}
}
