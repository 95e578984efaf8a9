package ads1x15

// Variant identifies the converter die. Both share the register map; they
// differ in resolution and data-rate table.
type Variant uint8

const (
	VariantUnknown Variant = iota
	ADS1015                // 12-bit, 128..3300 SPS
	ADS1115                // 16-bit, 8..860 SPS
)

// DataRate is a conversion rate in samples per second.
type DataRate uint16

const (
	Rate8SPS    DataRate = 8
	Rate16SPS   DataRate = 16
	Rate32SPS   DataRate = 32
	Rate64SPS   DataRate = 64
	Rate128SPS  DataRate = 128
	Rate250SPS  DataRate = 250
	Rate475SPS  DataRate = 475
	Rate490SPS  DataRate = 490
	Rate860SPS  DataRate = 860
	Rate920SPS  DataRate = 920
	Rate1600SPS DataRate = 1600
	Rate2400SPS DataRate = 2400
	Rate3300SPS DataRate = 3300
)

type rateEntry struct {
	rate DataRate
	bits uint16
}

var ads1015Rates = [...]rateEntry{
	{Rate128SPS, 0x0000},
	{Rate250SPS, 0x0020},
	{Rate490SPS, 0x0040},
	{Rate920SPS, 0x0060},
	{Rate1600SPS, 0x0080},
	{Rate2400SPS, 0x00A0},
	{Rate3300SPS, 0x00C0},
}

var ads1115Rates = [...]rateEntry{
	{Rate8SPS, 0x0000},
	{Rate16SPS, 0x0020},
	{Rate32SPS, 0x0040},
	{Rate64SPS, 0x0060},
	{Rate128SPS, 0x0080},
	{Rate250SPS, 0x00A0},
	{Rate475SPS, 0x00C0},
	{Rate860SPS, 0x00E0},
}

func (v Variant) table() []rateEntry {
	switch v {
	case ADS1015:
		return ads1015Rates[:]
	case ADS1115:
		return ads1115Rates[:]
	default:
		return nil
	}
}

// BitShift is the right shift applied to the conversion register.
func (v Variant) BitShift() uint8 {
	if v == ADS1015 {
		return 4
	}
	return 0
}

// Resolution returns the effective sample width in bits.
func (v Variant) Resolution() uint8 { return 16 - v.BitShift() }

// DefaultRate is the power-on data rate of the variant.
func (v Variant) DefaultRate() DataRate {
	switch v {
	case ADS1015:
		return Rate1600SPS
	case ADS1115:
		return Rate128SPS
	default:
		return 0
	}
}

// Rates lists the supported data rates in ascending order.
func (v Variant) Rates() []DataRate {
	t := v.table()
	out := make([]DataRate, len(t))
	for i, e := range t {
		out[i] = e.rate
	}
	return out
}

// Supports reports whether r is in the variant's rate table.
func (v Variant) Supports(r DataRate) bool {
	_, ok := v.rateBits(r)
	return ok
}

func (v Variant) rateBits(r DataRate) (uint16, bool) {
	for _, e := range v.table() {
		if e.rate == r {
			return e.bits, true
		}
	}
	return 0, false
}

func (v Variant) String() string {
	switch v {
	case ADS1015:
		return "ads1015"
	case ADS1115:
		return "ads1115"
	default:
		return "unknown"
	}
}

// ParseVariant maps "ads1015"/"ads1115" to a Variant.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "ads1015", "ADS1015":
		return ADS1015, true
	case "ads1115", "ADS1115":
		return ADS1115, true
	default:
		return VariantUnknown, false
	}
}
