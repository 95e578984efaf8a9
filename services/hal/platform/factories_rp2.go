// services/hal/platform/factories_rp2.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"adcdevice-go/services/hal"

	"tinygo.org/x/drivers"
)

// DefaultI2CFactory configures i2c0 and i2c1 with board-default pins at 400 kHz.
func DefaultI2CFactory() hal.I2CBusFactory {
	f := &rp2I2CFactory{buses: make(map[string]drivers.I2C)}

	b0 := machine.I2C0
	_ = b0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	f.buses["i2c0"] = b0

	b1 := machine.I2C1
	_ = b1.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	})
	f.buses["i2c1"] = b1

	return f
}

type rp2I2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *rp2I2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}
