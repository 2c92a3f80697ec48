package disk

import (
	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackdata"
)

// DeviceSource is the contract a physical (or virtual-but-device-shaped)
// acquisition backend implements, generalizing adapter.FloppyAdapter's
// single Read-whole-disk method into the per-track primitive the transfer
// engine needs (spec §3 table, §4.3).
type DeviceSource interface {
	// Load acquires one track. firstRead distinguishes the initial capture
	// (FIRST_READ_REVS) from a rescan/retry (REMAIN_READ_REVS).
	// withHeadSeekTo, when >= 0, asks the backend to seek there first
	// before returning to ch, per the head-seek-alternation hint (spec
	// §4.3).
	Load(ch cylhead.CylHead, firstRead bool, withHeadSeekTo int, policy *DeviceReadingPolicy) (*trackdata.TrackData, error)

	SupportsRetries() bool
	SupportsRescans() bool

	// IsConstantDisk reports whether repeated reads of the same track
	// reliably return identical data (e.g. a file-backed image), which
	// gates whether the transfer engine will even attempt retries.
	IsConstantDisk() bool

	// Preload asks the backend to eagerly acquire every track named by r,
	// optionally fanning work out across step goroutines; returns whether
	// preloading is supported at all.
	Preload(r cylhead.Range, step int) bool
}

// DemandDisk wraps a Disk with a DeviceSource: the first read() of any
// CylHead (or any uncached read) triggers acquisition through the source,
// subject to the retry/rescan loop of spec §4.3. Subsequent reads are
// served from the cache.
type DemandDisk struct {
	*Disk

	source  DeviceSource
	opts    core.Options
	loaded  map[cylhead.CylHead]bool
	seekSeq map[cylhead.CylHead]int
}

// NewDemandDisk returns a DemandDisk backed by source, using opts for the
// retry/rescan/head-seek budgets.
func NewDemandDisk(source DeviceSource, opts core.Options) *DemandDisk {
	return &DemandDisk{
		Disk:    New(),
		source:  source,
		opts:    opts,
		loaded:  make(map[cylhead.CylHead]bool),
		seekSeq: make(map[cylhead.CylHead]int),
	}
}

// headSeekSequence is the documented retry head-seek-alternation pattern:
// {-1, C+1, C-1, C+1, ...} clamped to [0, maxCyl] (spec §4.3, §8 scenario 5).
func headSeekSequence(retryIndex, cyl, maxCyl int) int {
	if retryIndex <= 0 {
		return -1
	}
	var target int
	if retryIndex%2 == 1 {
		target = cyl + 1
	} else {
		target = cyl - 1
	}
	if target < 0 {
		target = 0
	}
	if target > maxCyl {
		target = maxCyl
	}
	return target
}

// Read implements the spec §4.3 DemandDisk.read pseudocode: on first touch
// (or when uncached is requested) it loads, then rescans/retries until the
// budget is exhausted or the track is judged stable, swapping in whichever
// capture had more (or better) sectors.
func (d *DemandDisk) Read(ch cylhead.CylHead, policy *DeviceReadingPolicy) *trackdata.TrackData {
	return d.read(ch, false, policy)
}

// ReadUncached forces a fresh acquisition even if ch was already loaded.
func (d *DemandDisk) ReadUncached(ch cylhead.CylHead, policy *DeviceReadingPolicy) *trackdata.TrackData {
	return d.read(ch, true, policy)
}

func (d *DemandDisk) read(ch cylhead.CylHead, uncached bool, policy *DeviceReadingPolicy) *trackdata.TrackData {
	if !uncached && d.loaded[ch] {
		return d.Disk.Read(ch, policy)
	}

	td, err := d.source.Load(ch, true, -1, policy)
	if err != nil || td == nil {
		return d.Disk.Read(ch, policy)
	}

	retries := 0
	if !d.source.SupportsRetries() {
		retries = d.opts.Retries
	}
	rescans := d.opts.Rescans
	retryIndex := 0
	maxCyl := cylhead.MaxCyls - 1

	var wanted map[int]bool
	if policy != nil {
		wanted = policy.Wanted
	}

	for rescans > 0 || retries > 0 {
		if rescans <= 0 {
			if t, terr := td.Track(); terr == nil && StableData(t, wanted) {
				break
			}
		}

		retryIndex++
		seekTo := headSeekSequence(retryIndex, ch.Cyl, maxCyl)

		rescan, rerr := d.source.Load(ch, false, seekTo, policy)
		if rerr == nil && rescan != nil && betterThan(rescan, td) {
			td = rescan
		}

		consume := 1
		if hasFlux(td) {
			consume = core.RemainReadRevs
		}
		rescans -= consume
		retries -= consume
	}

	d.Disk.Write(ch, td, policy)
	d.loaded[ch] = true
	return td
}

// betterThan reports whether candidate has more, or more good, sectors
// than current (spec §4.3: "rescan has more sectors, or more good sectors,
// than trackdata").
func betterThan(candidate, current *trackdata.TrackData) bool {
	ct, cerr := candidate.Track()
	curt, curerr := current.Track()
	if cerr != nil {
		return false
	}
	if curerr != nil {
		return true
	}
	if len(ct.Sectors) != len(curt.Sectors) {
		return len(ct.Sectors) > len(curt.Sectors)
	}
	return countGoodSectors(ct) > countGoodSectors(curt)
}

func countGoodSectors(t *track.Track) int {
	n := 0
	for _, s := range t.Sectors {
		if s.IsGood() {
			n++
		}
	}
	return n
}

func hasFlux(td *trackdata.TrackData) bool {
	return td.Has(trackdata.LayerFlux)
}
