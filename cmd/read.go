package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sergev/floppyimg/config"
	"github.com/sergev/floppyimg/core"
	"github.com/sergev/floppyimg/cylhead"
	"github.com/sergev/floppyimg/disk"
	"github.com/sergev/floppyimg/imagefmt"
	"github.com/sergev/floppyimg/transfer"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [DEST.EXT]",
	Short: "Read image of the floppy disk",
	Long: `Read the floppy disk and save image to file DEST.EXT.
Format of floppy image is defined by extension.
By default the floppy image is saved in HFE format as 'image.hfe'.
` + supportedImageFormatsText,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if floppyAdapter == nil {
			cobra.CheckErr(fmt.Errorf("adapter not available"))
		}

		filename := "image.hfe"
		if len(args) > 0 {
			filename = args[0]
		}

		cylinders := config.Cyls
		switch imagefmt.DetectFormat(filename) {
		case imagefmt.FormatUnknown:
			cobra.CheckErr(fmt.Errorf("unknown image format: %s", filename))
		case imagefmt.FormatHFE:
			// HFE images carry two extra cylinders of head-alignment slack.
			cylinders += 2
		}
		fmt.Printf("Reading %d tracks, %d side(s)\n", cylinders, config.Heads)
		fmt.Printf("\n")

		fmt.Print("Insert SOURCE diskette in drive\nand press Enter when ready...")
		reader := bufio.NewReader(os.Stdin)
		_, _ = reader.ReadString('\n')
		fmt.Printf("\n")

		opts := core.Options{
			Retries: 3,
			Rescans: 3,
		}
		source := disk.NewDemandDisk(floppyAdapter, opts)
		dest := disk.New()
		dest.Format = cylhead.Format{Cyls: cylinders, Heads: config.Heads}

		rng := cylhead.NewRange(cylinders, config.Heads)
		xferOpts := transfer.Options{Mode: transfer.Copy}
		var readErr error
		rng.Each(func(ch cylhead.CylHead) bool {
			fmt.Printf("\rReading cylinder %d, side %d...", ch.Cyl, ch.Head)
			if _, err := transfer.TransferTrack(source, ch, dest, xferOpts); err != nil {
				readErr = fmt.Errorf("failed to read %s: %w", ch, err)
				return false
			}
			return true
		})
		fmt.Printf("\n")
		if readErr != nil {
			cobra.CheckErr(readErr)
		}

		if err := imagefmt.Write(filename, dest); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("\n")
		fmt.Printf("Image from diskette saved to file '%s'.\n", filename)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
