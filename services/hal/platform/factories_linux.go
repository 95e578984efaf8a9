// services/hal/platform/factories_linux.go
//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"io"
	"strings"
	"sync"

	"adcdevice-go/services/hal"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var (
	initOnce sync.Once
	initErr  error
)

func hostInit() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = errors.Wrap(err, "periph host init")
		}
	})
	return initErr
}

// periphBus adapts a periph I²C bus to drivers.I2C. One lock per bus keeps
// transactions from different goroutines whole.
type periphBus struct {
	mu  sync.Mutex
	bus i2c.BusCloser
}

func (p *periphBus) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := i2c.Dev{Bus: p.bus, Addr: addr}
	if err := d.Tx(w, r); err != nil {
		return errors.Wrapf(err, "i2c tx addr=0x%02x", addr)
	}
	return nil
}

func (p *periphBus) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bus.Close()
}

// OpenI2C opens a Linux I²C bus by periph name ("1", "I2C1", "/dev/i2c-1").
// hz of 0 leaves the bus speed unchanged.
func OpenI2C(name string, hz int64) (drivers.I2C, io.Closer, error) {
	if err := hostInit(); err != nil {
		return nil, nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open i2c bus %q", name)
	}
	if hz > 0 {
		if err := b.SetSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
			return nil, nil, multierr.Append(errors.Wrap(err, "set i2c speed"), b.Close())
		}
	}
	pb := &periphBus{bus: b}
	return pb, pb, nil
}

// linuxI2CFactory opens buses lazily: "i2cN" maps to periph bus "N".
type linuxI2CFactory struct {
	mu    sync.Mutex
	buses map[string]*periphBus
}

// DefaultI2CFactory serves host I²C buses through periph.
func DefaultI2CFactory() hal.I2CBusFactory {
	return &linuxI2CFactory{buses: map[string]*periphBus{}}
}

func (f *linuxI2CFactory) ByID(id string) (drivers.I2C, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buses[id]; ok {
		return b, true
	}
	name := strings.TrimPrefix(id, "i2c")
	if name == "" {
		return nil, false
	}
	b, _, err := OpenI2C(name, 0)
	if err != nil {
		return nil, false
	}
	pb := b.(*periphBus)
	f.buses[id] = pb
	return pb, true
}

// Close releases every bus the factory opened.
func (f *linuxI2CFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	for id, b := range f.buses {
		err = multierr.Append(err, b.Close())
		delete(f.buses, id)
	}
	return err
}
