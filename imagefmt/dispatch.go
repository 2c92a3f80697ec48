package imagefmt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
)

// Format names an image file format by its conventional extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatEDSK
	FormatHFE
	FormatIMG
	FormatADF
)

// DetectFormat classifies filename by its extension, the same lookup Read
// and Write use internally, exported so callers can validate or adjust
// cylinder counts before calling either.
func DetectFormat(filename string) Format {
	return detect(filename)
}

func detect(filename string) Format {
	ext := filepath.Ext(filename)
	if ext == "" {
		return FormatUnknown
	}
	switch strings.ToLower(ext[1:]) {
	case "dsk", "edsk":
		return FormatEDSK
	case "hfe":
		return FormatHFE
	case "img", "ima":
		return FormatIMG
	case "adf":
		return FormatADF
	default:
		return FormatUnknown
	}
}

// Read loads filename into a disk.Disk, dispatching on its extension (spec
// §6): EDSK/DSK goes through the bit-exact codec in this package, the rest
// are thin wrappers over the teacher's hfe package.
func Read(filename string) (*disk.Disk, error) {
	switch detect(filename) {
	case FormatEDSK:
		raw, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("imagefmt: %w", err)
		}
		return DecodeEDSK(raw)
	case FormatHFE, FormatIMG, FormatADF:
		return ReadHFEFamily(filename)
	default:
		return nil, fmt.Errorf("imagefmt: unrecognized image format for file %q", filename)
	}
}

// Write stores d into filename, dispatching on its extension exactly as
// Read does. The cyl/head range written is taken from d.Format.
func Write(filename string, d *disk.Disk) error {
	switch detect(filename) {
	case FormatEDSK:
		rng := cylhead.NewRange(d.Format.Cyls, d.Format.Heads)
		raw, err := EncodeEDSK(d, rng)
		if err != nil {
			return fmt.Errorf("imagefmt: %w", err)
		}
		return os.WriteFile(filename, raw, 0o644)
	case FormatHFE, FormatIMG, FormatADF:
		return WriteHFEFamily(filename, d)
	default:
		return fmt.Errorf("imagefmt: unrecognized image format for file %q", filename)
	}
}
