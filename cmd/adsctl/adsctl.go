// A utility to read ADS1015/ADS1115 converters on a Linux I²C bus.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

var rootCmd = &cobra.Command{
	Use:   "adsctl",
	Short: "adsctl is a utility to read ADS1x15 converters",
	Long:  "adsctl reads single-ended and differential inputs, arms the comparator and runs the HAL sampling loop for ADS1015/ADS1115 converters",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !rootOpts.Debug {
			return nil
		}
		l, err := newLoggerConfig().Build()
		if err != nil {
			return err
		}
		logger = l.Sugar().Named("adsctl")
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootOpts = struct {
	Debug bool
}{}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootOpts.Debug, "debug", false, "enable debug logging to stderr")
	bindDeviceFlags(rootCmd.PersistentFlags())
}

func main() {
	cmd, err := rootCmd.ExecuteC()
	_ = logger.Sync()
	if err != nil {
		logErr(cmd, err)
		os.Exit(1)
	}
}

func newLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.DebugLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "adsctl %s: %s\n", cmd.Name(), err)
}
