package ads1x15

import (
	"time"

	"adcdevice-go/x/mathx"
)

// ConversionDelay is ceil(1000 ms / rate) plus 1 ms of margin.
func (d *Device) ConversionDelay() time.Duration {
	ms := mathx.CeilDiv(uint32(1000), uint32(d.rate)) + 1
	return time.Duration(ms) * time.Millisecond
}

// ReadSingleEnded converts AINch against GND and returns the signed sample.
// An invalid channel fails before any bus traffic.
func (d *Device) ReadSingleEnded(ch uint8) (int16, error) {
	if _, err := d.StartSingleEnded(ch); err != nil {
		return 0, err
	}
	return d.LastConversion()
}

// ReadDifferential converts the voltage across pair and returns the signed
// sample.
func (d *Device) ReadDifferential(pair DiffPair) (int16, error) {
	if _, err := d.StartDifferential(pair); err != nil {
		return 0, err
	}
	return d.LastConversion()
}

// StartSingleEnded writes a one-shot configuration for AINch and returns how
// long to wait before ReadConversion.
func (d *Device) StartSingleEnded(ch uint8) (time.Duration, error) {
	mux, err := packInputSingleEnded(ch)
	if err != nil {
		return 0, err
	}
	return d.startOneShot(mux)
}

// StartDifferential is StartSingleEnded for a differential pair.
func (d *Device) StartDifferential(pair DiffPair) (time.Duration, error) {
	mux, err := packInputDifferential(pair)
	if err != nil {
		return 0, err
	}
	return d.startOneShot(mux)
}

func (d *Device) startOneShot(mux uint16) (time.Duration, error) {
	gain, rate, err := d.fieldBits()
	if err != nil {
		return 0, err
	}
	cfg := buildReadConfig(gain, mux, rate)
	if err := d.writeRegister(regConfig, uint16(cfg)); err != nil {
		return 0, err
	}
	return d.ConversionDelay(), nil
}

// StartComparator puts the device in continuous mode on AINch with the
// comparator latching ALERT/RDY once a conversion exceeds threshold.
// threshold uses the same units as the decoded samples.
func (d *Device) StartComparator(ch uint8, threshold int16) error {
	mux, err := packInputSingleEnded(ch)
	if err != nil {
		return err
	}
	gain, rate, err := d.fieldBits()
	if err != nil {
		return err
	}
	if err := d.writeRegister(regHiThresh, encodeThreshold(threshold, d.variant.BitShift())); err != nil {
		return err
	}
	return d.writeRegister(regConfig, uint16(buildComparatorConfig(gain, mux, rate)))
}

// LastConversion waits one conversion time and reads the conversion register
// without rewriting the configuration. Reading also clears a latched
// comparator.
func (d *Device) LastConversion() (int16, error) {
	d.delay(d.ConversionDelay())
	return d.ReadConversion()
}

// ReadConversion reads and decodes the conversion register immediately.
func (d *Device) ReadConversion() (int16, error) {
	raw, err := d.readRegister(regConversion)
	if err != nil {
		return 0, err
	}
	return decodeResult(raw, d.variant.BitShift()), nil
}

// ReadConfig returns the configuration register as the device reports it.
func (d *Device) ReadConfig() (ConfigWord, error) {
	v, err := d.readRegister(regConfig)
	return ConfigWord(v), err
}

func (d *Device) fieldBits() (gain, rate uint16, err error) {
	if gain, err = packGain(d.gain); err != nil {
		return 0, 0, err
	}
	rate, ok := d.variant.rateBits(d.rate)
	if !ok {
		return 0, 0, ErrInvalidDataRate
	}
	return gain, rate, nil
}
