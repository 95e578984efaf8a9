package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare <channel> <threshold>",
	Short: "Arm the comparator on an input",
	Long: `Set the high threshold and start continuous conversions on the channel.
ALERT/RDY asserts, and latches, once a conversion exceeds the threshold.
The threshold is in conversion codes for the configured variant.`,
	Args: cobra.ExactArgs(2),
	RunE: compare,
}

func compare(cmd *cobra.Command, args []string) error {
	chans, err := parseChannels(args[:1])
	if err != nil {
		return err
	}
	th, err := strconv.ParseInt(args[1], 0, 16)
	if err != nil {
		return errors.Wrapf(err, "threshold %q", args[1])
	}
	d, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := d.StartComparator(chans[0], int16(th)); err != nil {
		return err
	}
	cfg, err := d.ReadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ain%d: comparator armed threshold=%d config=0x%04x\n", chans[0], th, uint16(cfg))
	return nil
}
