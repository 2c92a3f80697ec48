package cmd

import (
	"fmt"
	"strconv"

	"github.com/sergev/floppyimg/adapter"
	"github.com/sergev/floppyimg/config"
	"github.com/sergev/floppyimg/greaseweazle"
	"github.com/sergev/floppyimg/kryoflux"
	"github.com/sergev/floppyimg/supercardpro"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var floppyAdapter adapter.FloppyAdapter

const supportedImageFormatsText = `Supported image formats:
  *.adf          - Amiga Disk File
  *.bkd          - BK-0010/0011M Disk image
  *.dsk or *.edsk - CPCEMU / Extended DSK
  *.hfe          - HxC Floppy Emulator
  *.img or *.ima - raw binary contents of the entire disk`
	// TODO: cp2        - Central Point Software's Copy-II-PC
	// TODO: dcf        - Disk Copy Fast utility
	// TODO: epl        - EPLCopy utility
	// TODO: imd        - Dave Dunfield's ImageDisk utility
	// TODO: mfm        - low-level MFM encoded bit stream
	// TODO: pdi        - Upland's PlanetPress
	// TODO: pri        - PCE Raw Image
	// TODO: psi        - PCE Sector Image
	// TODO: scp        - SuperCard Pro low-level raw magnetic flux transitions
	// TODO: td0        - Teledisk

var rootCmd = &cobra.Command{
	Use:   "floppy",
	Short: "Tool for reading and writing diskettes via USB floppy adapters",
	Long: `Command-line tool for reading, writing and formatting diskettes via USB floppy adapters.
` + supportedImageFormatsText,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch cmd.Name() {
		case "status", "read", "write", "format", "erase":
			// These commands require the floppy hardware
			break
		default:
			// Other commands don't need the floppy device
			return
		}

		var err error
		floppyAdapter, err = findAdapter()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("%w", err))
		}

		if err := config.Initialize(); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to initialize config: %w", err))
		}
	},
}

// findAdapter attempts to find and initialize either a Greaseweazle,
// SuperCard Pro or KryoFlux adapter, in that order, by matching the VID/PID
// of every enumerated serial port against each client's known identity.
func findAdapter() (adapter.FloppyAdapter, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	for _, port := range ports {
		portVID, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		portPID, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}

		if uint16(portVID) == greaseweazle.VendorID && uint16(portPID) == greaseweazle.ProductID {
			if a, err := greaseweazle.NewClient(port); err == nil {
				return a, nil
			}
		}
	}

	for _, port := range ports {
		portVID, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		portPID, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}

		if uint16(portVID) == supercardpro.VendorID && uint16(portPID) == supercardpro.ProductID {
			if a, err := supercardpro.NewClient(port); err == nil {
				return a, nil
			}
		}
	}

	for _, port := range ports {
		portVID, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		portPID, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}

		if uint16(portVID) == kryoflux.VendorID && uint16(portPID) == kryoflux.ProductID {
			if a, err := kryoflux.NewClient(port); err == nil {
				return a, nil
			}
		}
	}

	return nil, fmt.Errorf("no supported USB floppy adapter found (Greaseweazle: VID=0x%04X PID=0x%04X, SuperCard Pro: VID=0x%04X PID=0x%04X, KryoFlux: VID=0x%04X PID=0x%04X)",
		greaseweazle.VendorID, greaseweazle.ProductID,
		supercardpro.VendorID, supercardpro.ProductID,
		kryoflux.VendorID, kryoflux.ProductID)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
