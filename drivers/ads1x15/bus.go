package ads1x15

import "adcdevice-go/errcode"

// I2C 16-bit register operations (big-endian: HIGH then LOW).
//
// NOTE: drivers.I2C.Tx MUST perform the pointer write followed by a
// repeated-start read when both w and r are provided. A transport that cannot
// return both bytes must report an error.

func (d *Device) writeRegister(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	if err := d.bus.Tx(d.addr, d.w[:3], nil); err != nil {
		return &errcode.E{C: errcode.BusWriteFailed, Op: "ads1x15.write", Msg: regName(reg), Err: err}
	}
	return nil
}

func (d *Device) readRegister(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, &errcode.E{C: errcode.BusReadFailed, Op: "ads1x15.read", Msg: regName(reg), Err: err}
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func regName(reg byte) string {
	switch reg {
	case regConversion:
		return "conversion"
	case regConfig:
		return "config"
	case regLoThresh:
		return "lo_thresh"
	case regHiThresh:
		return "hi_thresh"
	default:
		return "unknown"
	}
}
