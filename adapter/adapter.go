package adapter

import (
	"github.com/sergev/floppyimg/disk"
)

// FloppyAdapter defines the interface for floppy disk adapters: status
// reporting, the disk.DeviceSource per-track acquisition contract used by
// disk.DemandDisk, and a whole-image write path (spec §4.3/§6).
type FloppyAdapter interface {
	// PrintStatus prints adapter status information to stdout
	PrintStatus()

	disk.DeviceSource

	// WriteImage writes every track of d, up to numCylinders cylinders,
	// to the attached medium.
	WriteImage(d *disk.Disk, numCylinders int) error

	// Erase bulk-erases numberOfTracks cylinders on the attached medium.
	Erase(numberOfTracks int) error
}
