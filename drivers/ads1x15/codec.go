package ads1x15

// Gain selects the PGA full-scale range.
type Gain uint8

const (
	GainTwoThirds Gain = iota // ±6.144 V
	GainOne                   // ±4.096 V
	GainTwo                   // ±2.048 V
	GainFour                  // ±1.024 V
	GainEight                 // ±0.512 V
	GainSixteen               // ±0.256 V
)

var gainBits = [...]uint16{
	GainTwoThirds: 0x0000,
	GainOne:       0x0200,
	GainTwo:       0x0400,
	GainFour:      0x0600,
	GainEight:     0x0800,
	GainSixteen:   0x0A00,
}

// Full-scale range per gain, in µV.
var gainFullScaleMicrovolts = [...]int32{
	GainTwoThirds: 6_144_000,
	GainOne:       4_096_000,
	GainTwo:       2_048_000,
	GainFour:      1_024_000,
	GainEight:     512_000,
	GainSixteen:   256_000,
}

// Valid reports whether g is one of the six PGA settings.
func (g Gain) Valid() bool { return int(g) < len(gainBits) }

// FullScaleMicrovolts returns the positive full-scale input for g, or 0 for
// an unknown gain.
func (g Gain) FullScaleMicrovolts() int32 {
	if !g.Valid() {
		return 0
	}
	return gainFullScaleMicrovolts[g]
}

func (g Gain) String() string {
	switch g {
	case GainTwoThirds:
		return "2/3"
	case GainOne:
		return "1"
	case GainTwo:
		return "2"
	case GainFour:
		return "4"
	case GainEight:
		return "8"
	case GainSixteen:
		return "16"
	default:
		return "invalid"
	}
}

// ParseGain accepts the PGA multiplier ("2/3", "1", "2", "4", "8", "16").
func ParseGain(s string) (Gain, error) {
	for g := GainTwoThirds; g.Valid(); g++ {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, ErrInvalidGain
}

// DiffPair is one of the fixed differential input pairings (P - N).
type DiffPair uint8

const (
	Diff01 DiffPair = iota // AIN0 - AIN1
	Diff03                 // AIN0 - AIN3
	Diff13                 // AIN1 - AIN3
	Diff23                 // AIN2 - AIN3
)

var diffMux = [...]uint16{
	Diff01: muxDiff01,
	Diff03: muxDiff03,
	Diff13: muxDiff13,
	Diff23: muxDiff23,
}

var singleMux = [numChannels]uint16{muxSingle0, muxSingle1, muxSingle2, muxSingle3}

func (p DiffPair) String() string {
	switch p {
	case Diff01:
		return "0-1"
	case Diff03:
		return "0-3"
	case Diff13:
		return "1-3"
	case Diff23:
		return "2-3"
	default:
		return "invalid"
	}
}

// ComparatorQueue is the ALERT/RDY assertion queue depth.
type ComparatorQueue uint8

const (
	QueueOne ComparatorQueue = iota
	QueueTwo
	QueueFour
	QueueNone // comparator disabled
)

// ConfigWord is a fully assembled configuration register value.
// It is built once per write and never modified in place.
type ConfigWord uint16

func (c ConfigWord) Start() bool            { return c&cfgOSMask != 0 }
func (c ConfigWord) Mux() uint8             { return uint8((c & cfgMuxMask) >> cfgMuxShift) }
func (c ConfigWord) Gain() Gain             { return Gain((c & cfgPGAMask) >> cfgPGAShift) }
func (c ConfigWord) SingleShot() bool       { return c&cfgModeMask == cfgModeSingle }
func (c ConfigWord) RateBits() uint16       { return uint16(c & cfgRateMask) }
func (c ConfigWord) ComparatorWindow() bool { return c&cfgCompModeMask == cfgCompWindow }
func (c ConfigWord) ActiveHigh() bool       { return c&cfgCompPolMask == cfgCompPolActiveHigh }
func (c ConfigWord) Latching() bool         { return c&cfgCompLatMask == cfgCompLatch }
func (c ConfigWord) Queue() ComparatorQueue { return ComparatorQueue(c & cfgCompQueMask) }

func packGain(g Gain) (uint16, error) {
	if !g.Valid() {
		return 0, ErrInvalidGain
	}
	return gainBits[g], nil
}

func packInputSingleEnded(ch uint8) (uint16, error) {
	if ch >= numChannels {
		return 0, ErrInvalidChannel
	}
	return singleMux[ch], nil
}

func packInputDifferential(p DiffPair) (uint16, error) {
	if int(p) >= len(diffMux) {
		return 0, ErrInvalidChannel
	}
	return diffMux[p], nil
}

// buildReadConfig assembles the one-shot word: comparator disabled,
// single-shot mode, start bit set.
func buildReadConfig(gain, mux, rate uint16) ConfigWord {
	return ConfigWord(readComparatorDefaults | cfgModeSingle | cfgOSSingle | gain | mux | rate)
}

// buildComparatorConfig assembles the continuous-mode word with the
// comparator latching after one match. The start bit is never set.
func buildComparatorConfig(gain, mux, rate uint16) ConfigWord {
	return ConfigWord(armComparatorDefaults | cfgModeContinuous | gain | mux | rate)
}

// decodeResult turns a raw conversion register into a signed sample.
// With shift 0 the register already holds a full 16-bit two's-complement
// value. Otherwise the sample occupies the top bits and is sign-extended
// from bit 11.
func decodeResult(raw uint16, shift uint8) int16 {
	if shift == 0 {
		return int16(raw)
	}
	v := raw >> shift
	if v > 0x07FF {
		v |= 0xF000
	}
	return int16(v)
}

// encodeThreshold applies the inverse of decodeResult's shift.
func encodeThreshold(threshold int16, shift uint8) uint16 {
	return uint16(threshold) << shift
}
