package main

import (
	"io"

	"adcdevice-go/drivers/ads1x15"
	"adcdevice-go/drivers/ads1x15/sim"
	"adcdevice-go/services/hal/platform"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"tinygo.org/x/drivers"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openBus returns the I²C bus selected by s, or a simulated bus holding a
// single converter at s.Addr.
func openBus(s settings) (drivers.I2C, io.Closer, error) {
	if s.Sim {
		d := sim.New(s.Addr, s.Variant)
		for ch, uv := range s.SimInputs {
			d.SetInput(ch, uv)
		}
		logger.Debugw("using simulated converter", "addr", s.Addr, "variant", s.Variant, "inputs", s.SimInputs)
		return sim.NewBus(d), nopCloser{}, nil
	}
	b, c, err := platform.OpenI2C(s.Bus, s.Hz)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("opened i2c bus", "bus", s.Bus, "hz", s.Hz)
	return b, c, nil
}

func deviceConfig(s settings) ads1x15.Config {
	cfg := ads1x15.DefaultConfig(s.Variant)
	cfg.Address = s.Addr
	cfg.Gain = s.Gain
	cfg.Rate = s.Rate
	return cfg
}

// openDevice resolves the configuration for cmd and returns a ready driver.
func openDevice(cmd *cobra.Command) (*ads1x15.Device, io.Closer, error) {
	s, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg := deviceConfig(s)
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "device config")
	}
	b, c, err := openBus(s)
	if err != nil {
		return nil, nil, err
	}
	return ads1x15.New(b, cfg), c, nil
}
