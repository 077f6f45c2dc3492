// ABOUTME: Lists output devices of the registered backends
// ABOUTME: Shows default marker, nominal rates, hog owner, stereo pair and volume
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Resonate-Protocol/resonate-out/internal/version"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/all"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagBackend string
	flagAll     bool
	flagNoColor bool
	flagVersion bool
)

func init() {
	flag.StringVarP(&flagBackend, "backend", "b", "malgo", "Backend to query")
	flag.BoolVarP(&flagAll, "all", "a", false, "Query every registered backend")
	flag.BoolVarP(&flagNoColor, "no-color", "", false, "Disable colored output")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

func main() {
	flag.Parse()

	if flagNoColor {
		color.NoColor = true
	}
	if flagVersion {
		fmt.Printf("resonate-devices (%s %s)\n", version.Product, version.Version)
		return
	}

	backends := []string{flagBackend}
	if flagAll {
		backends = hal.Backends()
	}

	failed := false
	for _, name := range backends {
		if err := listBackend(color.Output, name); err != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func listBackend(w io.Writer, name string) error {
	sys, err := hal.Open(name)
	if err != nil {
		return err
	}
	defer sys.Unload()

	return list(w, sys)
}

// list prints every output device of sys
func list(w io.Writer, sys hal.System) error {
	title := color.New(color.FgCyan, color.Bold)
	def := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)
	warn := color.New(color.FgYellow)

	devices, err := sys.OutputDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	defaultDev, _ := sys.DefaultOutputDevice()

	title.Fprintf(w, "%s", sys.Name())
	fmt.Fprintf(w, " (%d output devices)\n", len(devices))

	for _, dev := range devices {
		name, err := sys.DeviceName(dev)
		if err != nil {
			name = "?"
		}

		marker := "  "
		if dev == defaultDev {
			marker = def.Sprint("* ")
		}
		fmt.Fprintf(w, "%s%s ", marker, name)
		dim.Fprintf(w, "[id %d]\n", dev)

		if ranges, err := sys.NominalSampleRates(dev); err != nil {
			warn.Fprintf(w, "    rates:  %v\n", err)
		} else {
			fmt.Fprintf(w, "    rates:  %s\n", formatRanges(ranges))
		}

		switch owner, err := sys.HogOwner(dev); {
		case err != nil:
			warn.Fprintf(w, "    hog:    %v\n", err)
		case owner == hal.NoHogOwner:
			fmt.Fprintf(w, "    hog:    free\n")
		case owner == os.Getpid():
			warn.Fprintf(w, "    hog:    this process (%d)\n", owner)
		default:
			warn.Fprintf(w, "    hog:    pid %d\n", owner)
		}

		pair, err := sys.PreferredStereoChannels(dev)
		if err != nil {
			warn.Fprintf(w, "    stereo: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "    stereo: %d/%d", pair[0], pair[1])
		if l, lerr := sys.VolumeScalar(dev, pair[0]); lerr == nil {
			if r, rerr := sys.VolumeScalar(dev, pair[1]); rerr == nil {
				fmt.Fprintf(w, "  volume %d/%d", int(l*100), int(r*100))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func formatRanges(ranges []hal.ValueRange) string {
	if len(ranges) == 0 {
		return "none"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ") + " Hz"
}
