package disk

import (
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/trackdata"
)

// Transferer is the subset of the transfer engine RepairSummaryDisk needs
// to pull a track from the outer read disk into the inner write disk. The
// transfer package's TransferTrack satisfies this.
type Transferer interface {
	TransferTrack(src Reader, ch cylhead.CylHead, dst Writer, policy *DeviceReadingPolicy) (int, error)
}

// Reader is the read half of the Disk contract, satisfied by *Disk and
// *DemandDisk.
type Reader interface {
	Read(ch cylhead.CylHead, policy *DeviceReadingPolicy) *trackdata.TrackData
}

// Writer is the write half of the Disk contract.
type Writer interface {
	Write(ch cylhead.CylHead, td *trackdata.TrackData, policy *DeviceReadingPolicy)
}

// RepairSummaryDisk is the read-through virtual disk used by repair-mode
// transfers (spec §4.3): it borrows an outer "read-from" disk and owns an
// inner "write-to" disk. Reading a track that the inner disk already has
// (and that satisfies the policy) returns it directly; otherwise a
// transfer is run to pull the track from the outer disk into the inner
// one, avoiding re-reading sectors the inner disk already holds as good.
type RepairSummaryDisk struct {
	Outer Reader
	Inner *Disk

	transfer func(src Reader, ch cylhead.CylHead, dst Writer, policy *DeviceReadingPolicy) (int, error)
}

// NewRepairSummaryDisk returns a RepairSummaryDisk wrapping outer, with a
// fresh empty inner disk and transferFn as the repair-pull implementation
// (normally transfer.TransferTrack, injected here to avoid an import cycle
// between disk and transfer).
func NewRepairSummaryDisk(outer Reader, transferFn func(src Reader, ch cylhead.CylHead, dst Writer, policy *DeviceReadingPolicy) (int, error)) *RepairSummaryDisk {
	return &RepairSummaryDisk{Outer: outer, Inner: New(), transfer: transferFn}
}

// Read satisfies ch from the inner disk if already present and policy-
// satisfied; otherwise triggers a repair pull from the outer disk into the
// inner disk and returns the inner disk's (now populated) copy.
func (r *RepairSummaryDisk) Read(ch cylhead.CylHead, policy *DeviceReadingPolicy) *trackdata.TrackData {
	if td := r.Inner.Read(ch, policy); td != nil {
		if policy == nil || policy.Exhausted() {
			return td
		}
		if t, err := td.Track(); err == nil && StableData(t, policy.Wanted) {
			return td
		}
	}
	if r.transfer != nil {
		r.transfer(r.Outer, ch, r.Inner, policy)
	}
	return r.Inner.Read(ch, policy)
}

// Write stores td directly into the inner disk, bypassing the repair pull
// (used when the caller already has authoritative data to install, e.g.
// after TransferTrack itself computed the repaired track).
func (r *RepairSummaryDisk) Write(ch cylhead.CylHead, td *trackdata.TrackData, policy *DeviceReadingPolicy) {
	r.Inner.Write(ch, td, policy)
}

// outerDisk narrows Outer to *Disk when possible, for the forwarding
// getters below; device-backed outer sources that are not *Disk simply
// have no format/metadata to forward.
func (r *RepairSummaryDisk) outerDisk() (*Disk, bool) {
	d, ok := r.Outer.(*Disk)
	return d, ok
}

// Format forwards to the outer disk: per spec §4.3, "all metadata/format/
// filesystem getters forward to the outer disk; only the stored track
// data is distinct".
func (r *RepairSummaryDisk) Format() cylhead.Format {
	if d, ok := r.outerDisk(); ok {
		return d.Format
	}
	if dd, ok := r.Outer.(*DemandDisk); ok {
		return dd.Disk.Format
	}
	return cylhead.Format{}
}

// Metadata forwards to the outer disk.
func (r *RepairSummaryDisk) Metadata() map[string]string {
	if d, ok := r.outerDisk(); ok {
		return d.Metadata
	}
	if dd, ok := r.Outer.(*DemandDisk); ok {
		return dd.Disk.Metadata
	}
	return nil
}
