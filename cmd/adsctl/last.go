package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	lastCmd.Flags().BoolVarP(&lastOpts.Raw, "raw", "R", false, "print only the raw conversion code")
	rootCmd.AddCommand(lastCmd)
}

var (
	lastCmd = &cobra.Command{
		Use:   "last [flags]",
		Short: "Read the conversion register",
		Long: `Read the most recent conversion without starting a new one, after
waiting one conversion period. Useful while the comparator runs in
continuous mode.`,
		Args: cobra.NoArgs,
		RunE: last,
	}
	lastOpts = struct {
		Raw bool
	}{}
)

func last(cmd *cobra.Command, args []string) error {
	d, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	v, err := d.LastConversion()
	if err != nil {
		return err
	}
	cfg, err := d.ReadConfig()
	if err != nil {
		return err
	}
	printValue(cmd.OutOrStdout(), d, fmt.Sprintf("mux%d", cfg.Mux()), v, lastOpts.Raw)
	return nil
}
