package ads1x15

import (
	"time"

	"adcdevice-go/errcode"

	"tinygo.org/x/drivers"
)

// Sentinel errors. Bus failures are returned as *errcode.E values that match
// ErrBusWrite or ErrBusRead under errors.Is and unwrap to the transport cause.
var (
	ErrInvalidChannel  error = errcode.InvalidChannel
	ErrInvalidGain     error = errcode.InvalidGain
	ErrInvalidDataRate error = errcode.InvalidDataRate
	ErrInvalidAddress  error = errcode.InvalidAddress
	ErrBusWrite        error = errcode.BusWriteFailed
	ErrBusRead         error = errcode.BusReadFailed
)

// Config describes one converter on a bus. Zero fields take defaults in New.
type Config struct {
	Address uint16   // one of AddressGND/VDD/SDA/SCL
	Variant Variant  // ADS1015 or ADS1115
	Gain    Gain     // initial PGA setting
	Rate    DataRate // initial data rate; 0 selects the variant default
	// Delay blocks for at least the given duration. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// DefaultConfig returns the power-on style settings for v at AddressGND.
func DefaultConfig(v Variant) Config {
	return Config{
		Address: AddressGND,
		Variant: v,
		Gain:    GainTwoThirds,
		Rate:    v.DefaultRate(),
	}
}

// Validate checks address, variant, gain and rate.
func (c Config) Validate() error {
	switch c.Address {
	case AddressGND, AddressVDD, AddressSDA, AddressSCL:
	default:
		return ErrInvalidAddress
	}
	if c.Variant != ADS1015 && c.Variant != ADS1115 {
		return errcode.InvalidParams
	}
	if !c.Gain.Valid() {
		return ErrInvalidGain
	}
	if c.Rate != 0 && !c.Variant.Supports(c.Rate) {
		return ErrInvalidDataRate
	}
	return nil
}

// Device is one ADS1015/ADS1115 on an I²C bus.
//
// A Device is not safe for concurrent use. Reads sleep for the conversion
// time while the device owns the bus; callers sharing a bus between devices
// must hold their own per-bus lock across a whole read.
type Device struct {
	bus     drivers.I2C
	addr    uint16
	variant Variant
	gain    Gain
	rate    DataRate
	delay   func(time.Duration)

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device. It does not touch the bus.
func New(bus drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressGND
	}
	v := cfg.Variant
	if v == VariantUnknown {
		v = ADS1115
	}
	rate := cfg.Rate
	if rate == 0 || !v.Supports(rate) {
		rate = v.DefaultRate()
	}
	gain := cfg.Gain
	if !gain.Valid() {
		gain = GainTwoThirds
	}
	delay := cfg.Delay
	if delay == nil {
		delay = time.Sleep
	}
	return &Device{
		bus:     bus,
		addr:    addr,
		variant: v,
		gain:    gain,
		rate:    rate,
		delay:   delay,
	}
}

// Introspection.
func (d *Device) Address() uint16       { return d.addr }
func (d *Device) Variant() Variant      { return d.variant }
func (d *Device) Gain() Gain            { return d.gain }
func (d *Device) DataRate() DataRate    { return d.rate }
func (d *Device) BitShift() uint8       { return d.variant.BitShift() }
func (d *Device) SamplesPerSecond() int { return int(d.rate) }

// RateRegisterBits returns the data-rate field for the current rate.
func (d *Device) RateRegisterBits() uint16 {
	bits, _ := d.variant.rateBits(d.rate)
	return bits
}

// SetGain stores the PGA setting used by the next conversion. No bus traffic.
func (d *Device) SetGain(g Gain) error {
	if !g.Valid() {
		return ErrInvalidGain
	}
	d.gain = g
	return nil
}

// SetDataRate stores the data rate used by the next conversion. No bus traffic.
func (d *Device) SetDataRate(r DataRate) error {
	if !d.variant.Supports(r) {
		return ErrInvalidDataRate
	}
	d.rate = r
	return nil
}

// FullScaleMicrovolts is the positive full-scale input at the current gain.
func (d *Device) FullScaleMicrovolts() int32 { return d.gain.FullScaleMicrovolts() }

// Microvolts scales a decoded sample by the current gain and resolution.
func (d *Device) Microvolts(raw int16) int32 { return Microvolts(d.variant, d.gain, raw) }

// Microvolts converts a decoded sample taken at gain g on variant v.
func Microvolts(v Variant, g Gain, raw int16) int32 {
	full := int64(1) << (v.Resolution() - 1)
	return int32(int64(raw) * int64(g.FullScaleMicrovolts()) / full)
}
