// Package sim is a register-level ADS1015/ADS1115 model that satisfies
// tinygo.org/x/drivers.I2C. Conversions complete instantly; inputs are set in
// microvolts.
package sim

import (
	"errors"
	"sync"

	"adcdevice-go/drivers/ads1x15"

	"tinygo.org/x/drivers"
)

var (
	ErrNoDevice    = errors.New("sim: no device at address")
	ErrUnsupported = errors.New("sim: unsupported transaction")
)

// Compile-time checks.
var (
	_ drivers.I2C = (*Device)(nil)
	_ drivers.I2C = (*Bus)(nil)
)

// Register pointers as seen on the wire.
const (
	RegConversion byte = 0x00
	RegConfig     byte = 0x01
	RegLoThresh   byte = 0x02
	RegHiThresh   byte = 0x03
)

const powerOnConfig = 0x8583

// Tx is one logged transaction.
type Tx struct {
	Addr  uint16
	Write []byte
	NRead int
}

// Device models one converter.
type Device struct {
	mu      sync.Mutex
	addr    uint16
	variant ads1x15.Variant
	regs    [4]uint16
	inputs  [4]int32 // µV on AIN0..AIN3
	alert   bool

	failWrite error
	failRead  error
	shortRead bool

	log []Tx
}

// New returns a device at addr with power-on register contents.
func New(addr uint16, v ads1x15.Variant) *Device {
	d := &Device{addr: addr, variant: v}
	d.regs[RegConfig] = powerOnConfig
	d.regs[RegLoThresh] = 0x8000
	d.regs[RegHiThresh] = 0x7FF0
	if v == ads1x15.ADS1115 {
		d.regs[RegHiThresh] = 0x7FFF
	}
	return d
}

func (d *Device) Address() uint16 { return d.addr }

// SetInput sets the voltage on AINch. In continuous mode the conversion
// register and comparator follow immediately.
func (d *Device) SetInput(ch int, uv int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch < 0 || ch >= len(d.inputs) {
		return
	}
	d.inputs[ch] = uv
	if !ads1x15.ConfigWord(d.regs[RegConfig]).SingleShot() {
		d.convert()
	}
}

// Alert reports the ALERT/RDY comparator state.
func (d *Device) Alert() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alert
}

// Register returns the raw contents of reg.
func (d *Device) Register(reg byte) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg&0x03]
}

// FailWrites makes subsequent writes return err. nil restores normal operation.
func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	d.failWrite = err
	d.mu.Unlock()
}

// FailReads makes subsequent reads return err.
func (d *Device) FailReads(err error) {
	d.mu.Lock()
	d.failRead = err
	d.mu.Unlock()
}

// ShortReads makes reads deliver fewer bytes than requested, which the
// transport reports as an error.
func (d *Device) ShortReads(on bool) {
	d.mu.Lock()
	d.shortRead = on
	d.mu.Unlock()
}

// Log returns a copy of the transaction log.
func (d *Device) Log() []Tx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Tx(nil), d.log...)
}

// ResetLog clears the transaction log.
func (d *Device) ResetLog() {
	d.mu.Lock()
	d.log = d.log[:0]
	d.mu.Unlock()
}

var errShortRead = errors.New("sim: short read")

func (d *Device) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != d.addr {
		return ErrNoDevice
	}
	d.log = append(d.log, Tx{Addr: addr, Write: append([]byte(nil), w...), NRead: len(r)})

	switch {
	case len(w) == 3 && len(r) == 0:
		if d.failWrite != nil {
			return d.failWrite
		}
		d.write(w[0]&0x03, uint16(w[1])<<8|uint16(w[2]))
		return nil
	case len(w) == 1 && len(r) == 0:
		if d.failWrite != nil {
			return d.failWrite
		}
		return nil
	case len(w) == 1 && len(r) == 2:
		if d.failRead != nil {
			return d.failRead
		}
		if d.shortRead {
			r[0] = 0xFF
			return errShortRead
		}
		v := d.read(w[0] & 0x03)
		r[0] = byte(v >> 8)
		r[1] = byte(v)
		return nil
	default:
		return ErrUnsupported
	}
}

func (d *Device) write(reg byte, v uint16) {
	switch reg {
	case RegConversion:
		// read-only
	case RegConfig:
		d.regs[RegConfig] = v &^ 0x8000
		cw := ads1x15.ConfigWord(v)
		if cw.Queue() == ads1x15.QueueNone {
			d.alert = false
		}
		if cw.Start() || !cw.SingleShot() {
			d.convert()
		}
	default:
		d.regs[reg] = v
	}
}

func (d *Device) read(reg byte) uint16 {
	switch reg {
	case RegConfig:
		// Conversions are instant, so the device always reads idle.
		return d.regs[RegConfig] | 0x8000
	case RegConversion:
		if ads1x15.ConfigWord(d.regs[RegConfig]).Latching() {
			d.alert = false
		}
		return d.regs[RegConversion]
	default:
		return d.regs[reg]
	}
}

// convert runs one conversion using the current configuration.
func (d *Device) convert() {
	cw := ads1x15.ConfigWord(d.regs[RegConfig])
	uv := d.muxVoltage(cw.Mux())
	code := Code(d.variant, cw.Gain(), uv)
	shift := d.variant.BitShift()
	d.regs[RegConversion] = uint16(code) << shift

	if cw.Queue() == ads1x15.QueueNone {
		return
	}
	hi := int16(d.regs[RegHiThresh]) >> shift
	lo := int16(d.regs[RegLoThresh]) >> shift
	switch {
	case code > hi:
		d.alert = true
	case !cw.Latching() && code <= lo:
		d.alert = false
	}
}

func (d *Device) muxVoltage(mux uint8) int32 {
	switch mux {
	case 0:
		return d.inputs[0] - d.inputs[1]
	case 1:
		return d.inputs[0] - d.inputs[3]
	case 2:
		return d.inputs[1] - d.inputs[3]
	case 3:
		return d.inputs[2] - d.inputs[3]
	default:
		return d.inputs[mux-4]
	}
}

// Code converts a voltage into the signed sample the device would report,
// clamped to the variant's range.
func Code(v ads1x15.Variant, g ads1x15.Gain, uv int32) int16 {
	fs := int64(g.FullScaleMicrovolts())
	if fs == 0 {
		return 0
	}
	full := int64(1) << (v.Resolution() - 1)
	c := int64(uv) * full / fs
	if c > full-1 {
		c = full - 1
	}
	if c < -full {
		c = -full
	}
	return int16(c)
}

// Bus routes transactions to simulated devices by address.
type Bus struct {
	mu   sync.Mutex
	devs map[uint16]*Device
}

// NewBus returns a bus holding devs.
func NewBus(devs ...*Device) *Bus {
	b := &Bus{devs: make(map[uint16]*Device, len(devs))}
	for _, d := range devs {
		b.devs[d.addr] = d
	}
	return b
}

// Attach adds or replaces the device at d's address.
func (b *Bus) Attach(d *Device) {
	b.mu.Lock()
	b.devs[d.addr] = d
	b.mu.Unlock()
}

// Device returns the device at addr, or nil.
func (b *Bus) Device(addr uint16) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devs[addr]
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	d := b.devs[addr]
	b.mu.Unlock()
	if d == nil {
		return ErrNoDevice
	}
	return d.Tx(addr, w, r)
}
