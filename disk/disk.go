// Package disk implements the addressable Disk container (spec §3, §4.3):
// a mutex-protected map from CylHead to TrackData, the DemandDisk
// specialisation that loads tracks from a physical device on first touch
// under a retry/rescan policy, and RepairSummaryDisk, the read-through
// virtual disk used by repair-mode transfers.
//
// Grounded on adapter.FloppyAdapter (the teacher's nearest "device source"
// contract) generalized to the DeviceSource interface below, and on the
// teacher's single coarse mutex style (no per-track locks).
package disk

import (
	"fmt"
	"sync"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/trackdata"
)

// Disk is an addressable CylHead → TrackData map with a single writer lock
// (spec §5). It additionally carries format/metadata/type-tag hints that
// are orthogonal to any one track's content.
type Disk struct {
	mu     sync.Mutex
	tracks map[cylhead.CylHead]*trackdata.TrackData

	Format   cylhead.Format
	Metadata map[string]string
	TypeTag  string
}

// New returns an empty Disk.
func New() *Disk {
	return &Disk{tracks: make(map[cylhead.CylHead]*trackdata.TrackData), Metadata: make(map[string]string)}
}

// Read returns the TrackData stored for ch, or nil if nothing has been
// written there yet. policy is accepted for interface parity with
// DemandDisk/RepairSummaryDisk but ignored by the base Disk.
func (d *Disk) Read(ch cylhead.CylHead, policy *DeviceReadingPolicy) *trackdata.TrackData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracks[ch]
}

// Write installs td under ch, replacing anything previously stored there.
func (d *Disk) Write(ch cylhead.CylHead, td *trackdata.TrackData, policy *DeviceReadingPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracks[ch] = td
}

// Each calls fn for every populated CylHead in unspecified order. fn
// returning false stops the iteration early.
func (d *Disk) Each(fn func(cylhead.CylHead, *trackdata.TrackData) bool) {
	d.mu.Lock()
	snapshot := make(map[cylhead.CylHead]*trackdata.TrackData, len(d.tracks))
	for k, v := range d.tracks {
		snapshot[k] = v
	}
	d.mu.Unlock()
	for ch, td := range snapshot {
		if !fn(ch, td) {
			return
		}
	}
}

// Range iterates every CylHead named by r in its natural order, regardless
// of whether it is populated; fn receives nil for unpopulated entries.
func (d *Disk) Range(r cylhead.Range, fn func(cylhead.CylHead, *trackdata.TrackData) bool) {
	r.Each(func(ch cylhead.CylHead) bool {
		return fn(ch, d.Read(ch, nil))
	})
}

// Has reports whether ch is populated.
func (d *Disk) Has(ch cylhead.CylHead) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tracks[ch]
	return ok
}

// Count returns the number of populated tracks.
func (d *Disk) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tracks)
}

func (d *Disk) String() string {
	return fmt.Sprintf("disk(%s, %d tracks)", d.TypeTag, d.Count())
}
