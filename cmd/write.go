package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sergev/floppyimg/config"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/imagefmt"
	"github.com/sergev/floppyimg/sector"
	"github.com/sergev/floppyimg/trackdata"
	"github.com/spf13/cobra"
)

// firstTrackBitRateKhz scans d for the first populated track carrying a
// BitBuffer and returns its data rate in kbps, or 0 if none is found.
func firstTrackBitRateKhz(d *disk.Disk) int {
	rate := sector.RateUnknown
	d.Each(func(ch cylhead.CylHead, td *trackdata.TrackData) bool {
		buf, err := td.BitBuffer()
		if err != nil || buf == nil {
			return true
		}
		rate = buf.DataRate
		return false
	})
	switch rate {
	case sector.Rate1M:
		return 1000
	case sector.Rate500K:
		return 500
	case sector.Rate300K:
		return 300
	case sector.Rate250K:
		return 250
	default:
		return 0
	}
}

var writeCmd = &cobra.Command{
	Use:   "write SRC.EXT",
	Short: "Write image to the floppy disk",
	Long: `Write image from SRC.EXT to the floppy disk.
Format of floppy image is defined by extension.
` + supportedImageFormatsText,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if floppyAdapter == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}

		filename := args[0]

		d, err := imagefmt.Read(filename)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file: %w", err))
		}

		bitRateKhz := firstTrackBitRateKhz(d)
		if bitRateKhz > config.MaxKBps {
			cobra.CheckErr(fmt.Errorf("image with bit rate %d kbps is incompatible with drive %s",
				bitRateKhz, config.DriveName))
		}
		if d.Format.Heads > config.Heads {
			cobra.CheckErr(fmt.Errorf("image with %d sides is incompatible with drive %s",
				d.Format.Heads, config.DriveName))
		}

		numCylinders := d.Format.Cyls
		if numCylinders > config.Cyls+2 {
			cobra.CheckErr(fmt.Errorf("image with %d cylinders is incompatible with drive %s",
				numCylinders, config.DriveName))
		}
		if imagefmt.DetectFormat(filename) != imagefmt.FormatHFE {
			if numCylinders >= 80 {
				// Ignore extra cylinders
				numCylinders = 80
			} else if numCylinders > 40 {
				numCylinders = 40
			}
		}

		fmt.Printf("Writing %d tracks, %d side(s)\n", numCylinders, d.Format.Heads)
		fmt.Printf("Bit Rate: %d kbps\n", bitRateKhz)
		fmt.Printf("\n")

		fmt.Print("Insert TARGET diskette in drive\nand press Enter when ready...")
		reader := bufio.NewReader(os.Stdin)
		_, _ = reader.ReadString('\n')
		fmt.Printf("\n")

		if err := floppyAdapter.WriteImage(d, numCylinders); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write floppy disk: %w", err))
		}
		fmt.Printf("\n")
		fmt.Printf("Image from file '%s' written to diskette.\n", filename)
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
