package kryoflux

import (
	"fmt"

	"github.com/sergev/floppyimg/disk"
)

// WriteImage is unsupported: KryoFlux hardware is read-only, it has no
// write head driver circuit.
func (c *Client) WriteImage(d *disk.Disk, numCylinders int) error {
	return fmt.Errorf("write is not supported by the KryoFlux adapter")
}

// Erase is unsupported for the same reason as WriteImage.
func (c *Client) Erase(numberOfTracks int) error {
	return fmt.Errorf("erase is not supported by the KryoFlux adapter")
}
