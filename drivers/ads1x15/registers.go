// Package ads1x15 provides constants for register addresses and bitfields used
// by the ADS1015 and ADS1115 I²C analog-to-digital converters.
package ads1x15

// 7-bit I²C addresses selected by the ADDR strap.
const (
	AddressGND = 0x48 // ADDR tied to GND (default)
	AddressVDD = 0x49
	AddressSDA = 0x4A
	AddressSCL = 0x4B
)

// Register pointers.
const (
	regConversion = 0x00 // R
	regConfig     = 0x01 // R/W
	regLoThresh   = 0x02 // R/W
	regHiThresh   = 0x03 // R/W
)

// Config register fields.
const (
	// OS: write 1 to start a single conversion; reads 1 when idle.
	cfgOSMask   = 0x8000
	cfgOSSingle = 0x8000

	cfgMuxMask  = 0x7000
	cfgMuxShift = 12

	cfgPGAMask  = 0x0E00
	cfgPGAShift = 9

	cfgModeMask       = 0x0100
	cfgModeContinuous = 0x0000
	cfgModeSingle     = 0x0100

	cfgRateMask  = 0x00E0
	cfgRateShift = 5

	cfgCompModeMask    = 0x0010
	cfgCompTraditional = 0x0000
	cfgCompWindow      = 0x0010

	cfgCompPolMask       = 0x0008
	cfgCompPolActiveLow  = 0x0000
	cfgCompPolActiveHigh = 0x0008

	cfgCompLatMask  = 0x0004
	cfgCompNonLatch = 0x0000
	cfgCompLatch    = 0x0004

	cfgCompQueMask  = 0x0003
	cfgCompQue1Conv = 0x0000
	cfgCompQue2Conv = 0x0001
	cfgCompQue4Conv = 0x0002
	cfgCompQueNone  = 0x0003
)

// Input multiplexer codes (already shifted into bits 14..12).
const (
	muxDiff01   = 0x0000 // AIN0 - AIN1 (power-on default)
	muxDiff03   = 0x1000
	muxDiff13   = 0x2000
	muxDiff23   = 0x3000
	muxSingle0  = 0x4000
	muxSingle1  = 0x5000
	muxSingle2  = 0x6000
	muxSingle3  = 0x7000
	numChannels = 4
)

// Comparator settings used by plain reads: disabled, ALERT/RDY high-Z.
const readComparatorDefaults = cfgCompQueNone | cfgCompNonLatch | cfgCompPolActiveLow | cfgCompTraditional

// Comparator settings used when arming: latch after one match.
const armComparatorDefaults = cfgCompQue1Conv | cfgCompLatch | cfgCompPolActiveLow | cfgCompTraditional
