package main

import (
	"adcdevice-go/drivers/ads1x15"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	diffCmd.Flags().BoolVarP(&diffOpts.Raw, "raw", "R", false, "print only the raw conversion code")
	rootCmd.AddCommand(diffCmd)
}

var (
	diffCmd = &cobra.Command{
		Use:                   "diff [flags] <pair>...",
		Short:                 "Read differential inputs",
		Long:                  `Run a one-shot differential conversion on each pair: 0-1, 0-3, 1-3 or 2-3.`,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  diff,
		DisableFlagsInUseLine: true,
	}
	diffOpts = struct {
		Raw bool
	}{}
)

func diff(cmd *cobra.Command, args []string) error {
	pairs := make([]ads1x15.DiffPair, 0, len(args))
	for _, arg := range args {
		p, err := parsePair(arg)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
	}
	d, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	for _, p := range pairs {
		v, err := d.ReadDifferential(p)
		if err != nil {
			return errors.Wrapf(err, "read %s", p)
		}
		printValue(cmd.OutOrStdout(), d, p.String(), v, diffOpts.Raw)
	}
	return nil
}

func parsePair(s string) (ads1x15.DiffPair, error) {
	for _, p := range []ads1x15.DiffPair{ads1x15.Diff01, ads1x15.Diff03, ads1x15.Diff13, ads1x15.Diff23} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, errors.Wrapf(ads1x15.ErrInvalidChannel, "pair %q", s)
}
