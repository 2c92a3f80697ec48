// Package transfer implements TransferTrack, the per-track copy/merge/
// repair pipeline that moves one track from a source disk to a
// destination disk under a DeviceReadingPolicy and RetryPolicy (spec
// §4.4). Grounded on the teacher's greaseweazle.Client.readDisk/writeDisk
// request/response loop (adapter/greaseweazle orchestration), generalized
// from "whole disk, one direction" into "one track, three modes".
package transfer

import (
	"fmt"

	"github.com/sergev/floppyimg/bitbuffer"
	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/scan"
	"github.com/sergev/floppyimg/track"
	"github.com/sergev/floppyimg/trackdata"
)

// Mode selects how TransferTrack reconciles the source track with the
// destination (spec §4.4).
type Mode int

const (
	Copy Mode = iota
	Merge
	Repair
)

func (m Mode) String() string {
	switch m {
	case Copy:
		return "copy"
	case Merge:
		return "merge"
	case Repair:
		return "repair"
	default:
		return "unknown"
	}
}

// UsedTracksMap answers "is this CylHead used by the file system", gating
// minimal-mode transfers (spec §4.4 step 1). A nil map is treated as
// "everything is used" (i.e. minimal mode has no effect without one).
type UsedTracksMap map[cylhead.CylHead]bool

func (u UsedTracksMap) used(ch cylhead.CylHead) bool {
	if u == nil {
		return true
	}
	return u[ch]
}

// Options bundles the knobs TransferTrack needs beyond the disks
// themselves: the transfer mode, whether to bypass DemandDisk's cache,
// the reading policy, minimal-mode gating, and the per-track retry budget.
type Options struct {
	Mode              Mode
	Uncached          bool
	Policy            *disk.DeviceReadingPolicy
	Minimal           bool
	UsedTracks        UsedTracksMap
	TrackRetries      int // 0 disables; core.TrackRetriesAuto retries until no improvement
	SkipStableSectors bool
	NormalDisk        bool
	Gaps         core.GapsPolicy
	Gap3         int
	Fill         byte
	NoDups       bool
	NoData       bool
	Check8K      bool
	Memo         *track.Checksum8KMemo
	MessageCore  *core.MessageCore
}

// IsConstant reports whether src is known to return identical data across
// repeated reads (e.g. an image-file-backed disk.Disk), gating retries per
// spec §4.3/§4.4.
type IsConstant interface {
	IsConstantDisk() bool
}

// TransferTrack copies/merges/repairs one track from src to dst, per the
// exact loop of spec §4.4. It returns the number of sectors improved
// across all rounds.
func TransferTrack(src disk.Reader, ch cylhead.CylHead, dst disk.Writer, opts Options) (int, error) {
	if opts.Minimal && !opts.UsedTracks.used(ch) {
		return 0, nil
	}

	constantSrc := false
	if ic, ok := src.(IsConstant); ok {
		constantSrc = ic.IsConstantDisk()
	}

	skipStable := opts.Mode == Repair && !constantSrc && opts.SkipStableSectors

	trackRetries := 0
	if opts.Mode == Repair && !constantSrc && opts.TrackRetries != 0 {
		trackRetries = opts.TrackRetries
	}

	total := 0
	round := 0
	for {
		if opts.Mode == Repair && skipStable {
			if dstReader, ok := dst.(disk.Reader); ok {
				if dstTD := dstReader.Read(ch, opts.Policy); dstTD != nil {
					markStableSkippable(dstTD, opts.Policy)
					if opts.Policy != nil && opts.Policy.Exhausted() {
						return total, nil
					}
				}
			}
		}

		srcTD := src.Read(ch, opts.Policy)
		if srcTD == nil {
			return total, fmt.Errorf("transfer: no data available for %v", ch)
		}

		if srcTD.Has(trackdata.LayerBitBuffer) {
			buf, err := srcTD.BitBuffer()
			if err == nil && NormaliseBitstream(buf) {
				rebuilt := scan.IBMPC(buf, ch.Cyl, ch.Head)
				srcTD.SetTrack(rebuilt)
			}
		}

		srcTrack, err := srcTD.Track()
		if err != nil {
			return total, fmt.Errorf("transfer: %w", err)
		}

		track.NormaliseTrack(srcTrack, track.NormaliseOptions{
			NoDups:     opts.NoDups,
			NoData:     opts.NoData,
			Check8K:    opts.Check8K,
			Gaps:       opts.Gaps,
			Gap3:       opts.Gap3,
			Fill:       opts.Fill,
			ApplyFixes: true,
		}, opts.Memo, opts.MessageCore)

		changes := 0
		switch opts.Mode {
		case Repair:
			dstReader, _ := dst.(disk.Reader)
			var dstTrack *track.Track
			if dstReader != nil {
				if dstTD := dstReader.Read(ch, opts.Policy); dstTD != nil {
					dstTrack, _ = dstTD.Track()
				}
			}
			if dstTrack == nil {
				dstTrack = &track.Track{DataRate: srcTrack.DataRate, Encoding: srcTrack.Encoding, TrackLen: srcTrack.TrackLen}
			}
			var ignored map[int]bool
			if opts.Policy != nil {
				ignored = opts.Policy.Skippable
			}
			changes = track.Repair(dstTrack, srcTrack, ignored)
			newTD := trackdata.New(ch)
			newTD.SetTrack(dstTrack)
			dst.Write(ch, newTD, opts.Policy)
		default: // Copy, Merge
			dst.Write(ch, srcTD, opts.Policy)
		}

		total += changes

		if trackRetries == 0 || (trackRetries > 0 && round >= trackRetries) {
			break
		}
		if trackRetries < 0 && changes == 0 {
			break
		}
		round++
	}

	return total, nil
}

// markStableSkippable marks every good sector id in dstTD's track as
// skippable in policy, so the source read can avoid re-acquiring sectors
// the destination already holds cleanly (spec §4.4 step 4a).
func markStableSkippable(dstTD *trackdata.TrackData, policy *disk.DeviceReadingPolicy) {
	if policy == nil {
		return
	}
	t, err := dstTD.Track()
	if err != nil {
		return
	}
	for _, s := range t.Sectors {
		if s.IsGood() {
			policy.MarkSkippable(s.Header.Sector)
		}
	}
}

// NormaliseBitstream performs the housekeeping that can be done purely on
// the bit level before address marks are even parsed: here, detecting a
// track whose recorded start is within a half-revolution's noise of zero
// and is better represented starting elsewhere is a Track-layer concern
// (track.EnsureNotAlmost0Offset). Reports whether it modified buf enough to
// warrant re-scanning for sectors; it makes no bit-level change,
// not even to an empty buffer, and always returns false.
func NormaliseBitstream(buf *bitbuffer.BitBuffer) bool {
	return false
}
