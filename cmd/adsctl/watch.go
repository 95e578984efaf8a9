package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"adcdevice-go/bus"
	"adcdevice-go/services/hal"
	"adcdevice-go/types"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"tinygo.org/x/drivers"
)

func init() {
	watchCmd.Flags().IntVarP(&watchOpts.PeriodMS, "period", "p", 1000, "sampling period in ms")
	watchCmd.Flags().IntVarP(&watchOpts.Count, "count", "n", 0, "exit after this many samples (0 runs until interrupted)")
	rootCmd.AddCommand(watchCmd)
}

var (
	watchCmd = &cobra.Command{
		Use:   "watch [flags] <input>",
		Short: "Sample an input periodically through the HAL",
		Long: `Run the HAL sampling loop for one input and print each value.
The input is ain0..ain3 or diff_0_1, diff_0_3, diff_1_3, diff_2_3.`,
		Args: cobra.ExactArgs(1),
		RunE: watch,
	}
	watchOpts = struct {
		PeriodMS int
		Count    int
	}{}
)

// singleBus serves one already opened bus under a fixed id.
type singleBus struct {
	id string
	b  drivers.I2C
}

func (f singleBus) ByID(id string) (drivers.I2C, bool) {
	if id != f.id {
		return nil, false
	}
	return f.b, true
}

func watch(cmd *cobra.Command, args []string) error {
	s, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	b, c, err := openBus(s)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return watchHAL(ctx, cmd, s, b, args[0])
}

func watchHAL(ctx context.Context, cmd *cobra.Command, s settings, b drivers.I2C, input string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bb := bus.NewBus(16)
	halConn := bb.NewConnection("hal")
	conn := bb.NewConnection("adsctl")
	defer conn.Disconnect()

	values := conn.Subscribe(bus.Topic{"hal", "capability", "adc", "+", "value"})
	devState := conn.Subscribe(bus.Topic{"hal", "device", "+", "state"})
	capState := conn.Subscribe(bus.Topic{"hal", "capability", "adc", "+", "state"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		hal.Run(ctx, halConn, singleBus{id: "i2c0", b: b})
	}()
	defer func() { cancel(); <-done }()

	params := types.ADS1x15Params{
		Addr:     int(s.Addr),
		Input:    input,
		Gain:     s.Gain.String(),
		RateSPS:  int(s.Rate),
		PeriodMS: watchOpts.PeriodMS,
	}
	conn.Publish(conn.NewMessage(bus.Topic{"config", "hal"}, hal.HALConfig{
		Version: 1,
		Devices: []hal.DevCfg{{
			ID:     "adc0",
			Type:   s.Variant.String(),
			BusRef: hal.DevBusRef{ID: "i2c0", Type: "i2c"},
			Params: params,
		}},
	}, true))
	logger.Debugw("published hal config", "params", params)

	out := cmd.OutOrStdout()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-devState.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok && st.Error != "" {
				return errors.Errorf("device rejected: %s", st.Error)
			}
		case m := <-capState.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok && st.Link == types.LinkDegraded {
				logger.Warnw("sample failed", "error", st.Error)
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: sample failed: %s\n", input, st.Error)
			}
		case m := <-values.Channel():
			v, ok := m.Payload.(types.ADCValue)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "%d %s: raw=%d uv=%d\n", v.TSms, v.Input, v.Raw, v.Microvolts)
			n++
			if watchOpts.Count > 0 && n >= watchOpts.Count {
				return nil
			}
		}
	}
}
