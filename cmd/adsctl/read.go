package main

import (
	"fmt"
	"io"
	"strconv"

	"adcdevice-go/drivers/ads1x15"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	readCmd.Flags().BoolVarP(&readOpts.Raw, "raw", "R", false, "print only the raw conversion code")
	rootCmd.AddCommand(readCmd)
}

var (
	readCmd = &cobra.Command{
		Use:                   "read [flags] <channel>...",
		Short:                 "Read single-ended inputs",
		Long:                  `Run a one-shot conversion on each AINx input relative to GND.`,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  read,
		DisableFlagsInUseLine: true,
	}
	readOpts = struct {
		Raw bool
	}{}
)

func read(cmd *cobra.Command, args []string) error {
	chans, err := parseChannels(args)
	if err != nil {
		return err
	}
	d, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	for _, ch := range chans {
		v, err := d.ReadSingleEnded(ch)
		if err != nil {
			return errors.Wrapf(err, "read ain%d", ch)
		}
		printValue(cmd.OutOrStdout(), d, fmt.Sprintf("ain%d", ch), v, readOpts.Raw)
	}
	return nil
}

func parseChannels(args []string) ([]uint8, error) {
	cc := make([]uint8, 0, len(args))
	for _, arg := range args {
		ch, err := strconv.ParseUint(arg, 10, 8)
		if err != nil || ch > 3 {
			return nil, errors.Wrapf(ads1x15.ErrInvalidChannel, "channel %q", arg)
		}
		cc = append(cc, uint8(ch))
	}
	return cc, nil
}

func printValue(w io.Writer, d *ads1x15.Device, name string, raw int16, rawOnly bool) {
	if rawOnly {
		fmt.Fprintf(w, "%d\n", raw)
		return
	}
	fmt.Fprintf(w, "%s: raw=%d uv=%d\n", name, raw, d.Microvolts(raw))
}
