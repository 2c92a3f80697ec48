package core

import "github.com/sergev/floppyimg/cylhead"

// GapsPolicy selects how much gap content normalise() strips from a track.
type GapsPolicy int

const (
	GapsNone GapsPolicy = iota
	GapsClean
	GapsAll
)

// Options is the explicit, passed-through replacement for SAMdisk's
// getOpt<T>("key") global bag (spec §9 design note). Constructed by the
// caller (cmd/read.go builds one; config reads no TOML table for it) and
// threaded through
// TransferTrack/NormaliseTrack/DemandDisk instead of read from statics.
type Options struct {
	Retries  int
	Rescans  int

	Repair bool
	Merge  bool

	SkipStableSectors bool
	NormalDisk        bool
	Minimal           bool

	NoDups  bool
	NoData  bool
	Check8K bool

	Gaps GapsPolicy

	Gap3       int
	Fill       byte
	Base       int
	Interleave int
	Skew       int
	Size       int

	Head0, Head1 int

	Paranoia  bool
	MaxCopies int
	MaxSplice int

	ByteToleranceOfTime int

	Step       int
	DoubleStep bool

	Range cylhead.Range

	CylsFirst bool

	// TrackRetries bounds the repair-mode per-track retry loop (§4.4); 0
	// disables it, a negative value requests AUTO (stop once a round makes
	// no improvement).
	TrackRetries int

	// DiskRetries bounds the whole-disk retry loop (§4.4).
	DiskRetries int
}

// TrackRetriesAuto is the sentinel for "retry until no further improvement".
const TrackRetriesAuto = -1

// Default returns the recommended defaults, matching the teacher's
// FIRST_READ_REVS/REMAIN_READ_REVS capture counts (spec §4.3).
func Default() Options {
	return Options{
		Retries:   5,
		Rescans:   5,
		MaxCopies: 3,
		Base:      1,
		Fill:      0,
		Head1:     -1,
	}
}

// FirstReadRevs and RemainReadRevs are the recommended flux capture counts
// for the first acquisition and each subsequent rescan/retry (spec §4.3).
const (
	FirstReadRevs  = 2
	RemainReadRevs = 5
)
