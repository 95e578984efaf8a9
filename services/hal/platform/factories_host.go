// services/hal/platform/factories_host.go
//go:build !linux && !rp2040 && !rp2350

package platform

import (
	"errors"
	"io"

	"adcdevice-go/services/hal"

	"tinygo.org/x/drivers"
)

// ErrNoI2C is returned on hosts without a supported I²C stack.
var ErrNoI2C = errors.New("platform: no i2c support on this host")

// On other hosts no buses are configured. Tests inject fakes.
func DefaultI2CFactory() hal.I2CBusFactory { return noI2CFactory{} }

type noI2CFactory struct{}

func (noI2CFactory) ByID(string) (drivers.I2C, bool) { return nil, false }

// OpenI2C always fails on this host.
func OpenI2C(name string, hz int64) (drivers.I2C, io.Closer, error) {
	return nil, nil, ErrNoI2C
}
