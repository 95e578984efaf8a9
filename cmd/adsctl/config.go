package main

import (
	"strconv"
	"strings"

	"adcdevice-go/drivers/ads1x15"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

// settings is the resolved device selection shared by all subcommands.
type settings struct {
	Bus       string
	Hz        int64
	Addr      uint16
	Variant   ads1x15.Variant
	Gain      ads1x15.Gain
	Rate      ads1x15.DataRate
	Sim       bool
	SimInputs map[int]int32
}

var deviceKeys = map[string]bool{
	"bus": true, "hz": true, "addr": true, "variant": true, "gain": true,
	"rate": true, "sim": true, "inputs": true,
}

func bindDeviceFlags(fs *pflag.FlagSet) {
	fs.StringP("bus", "b", "1", "I²C bus name or number")
	fs.Int64("hz", 0, "I²C bus speed in Hz (0 leaves it unchanged)")
	fs.StringP("addr", "a", "0x48", "7-bit device address")
	fs.StringP("variant", "v", "ads1115", "converter variant (ads1015 or ads1115)")
	fs.StringP("gain", "g", "2/3", "PGA gain (2/3, 1, 2, 4, 8, 16)")
	fs.IntP("rate", "r", 0, "data rate in SPS (0 selects the variant default)")
	fs.Bool("sim", false, "use a simulated converter instead of the bus")
	fs.String("inputs", "", "simulated inputs as ch=uV pairs, e.g. 0=1000000,3=-5000")
	fs.StringP("config", "c", "", "JSON config file")
}

// flagDict collects the device flags set on the command line so they
// override env and file values. fs must be the invoked command's merged set;
// the root's persistent set does not record which flags were changed.
func flagDict(fs *pflag.FlagSet) map[string]interface{} {
	m := map[string]interface{}{}
	fs.Visit(func(f *pflag.Flag) {
		switch {
		case f.Name == "config":
			m["config"] = map[string]interface{}{"file": f.Value.String()}
		case deviceKeys[f.Name]:
			m[f.Name] = f.Value.String()
		}
	})
	return m
}

func loadConfig(fs *pflag.FlagSet) (settings, error) {
	defaultConfig := map[string]interface{}{
		"bus":     "1",
		"hz":      0,
		"addr":    "0x48",
		"variant": "ads1115",
		"gain":    "2/3",
		"rate":    0,
		"sim":     false,
		"inputs":  "",
	}
	def := dict.New(dict.WithMap(defaultConfig))
	cfg := config.New(
		dict.New(dict.WithMap(flagDict(fs))),
		env.New(env.WithEnvPrefix("ADSCTL_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "adsctl.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust())
	return resolveSettings(cfg)
}

func resolveSettings(cfg *config.Config) (s settings, err error) {
	// MustGet panics on a value that will not convert.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("config: %v", r)
		}
	}()
	s.Bus = cfg.MustGet("bus").String()
	s.Hz = int64(cfg.MustGet("hz").Int())
	s.Sim = cfg.MustGet("sim").Bool()

	addr, err := strconv.ParseUint(cfg.MustGet("addr").String(), 0, 8)
	if err != nil {
		return s, errors.Wrap(ads1x15.ErrInvalidAddress, "addr")
	}
	s.Addr = uint16(addr)

	v, ok := ads1x15.ParseVariant(cfg.MustGet("variant").String())
	if !ok {
		return s, errors.Errorf("unknown variant %q", cfg.MustGet("variant").String())
	}
	s.Variant = v

	if s.Gain, err = ads1x15.ParseGain(cfg.MustGet("gain").String()); err != nil {
		return s, errors.Wrap(err, "gain")
	}

	rate := cfg.MustGet("rate").Int()
	switch {
	case rate == 0:
		s.Rate = v.DefaultRate()
	case rate < 0 || rate > 0xFFFF:
		return s, errors.Wrap(ads1x15.ErrInvalidDataRate, "rate")
	default:
		s.Rate = ads1x15.DataRate(rate)
	}

	if s.SimInputs, err = parseInputs(cfg.MustGet("inputs").String()); err != nil {
		return s, err
	}
	return s, nil
}

// parseInputs reads "ch=uV" pairs separated by commas.
func parseInputs(list string) (map[int]int32, error) {
	m := map[int]int32{}
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ch, uv, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Errorf("input %q: want ch=uV", pair)
		}
		c, err := strconv.Atoi(ch)
		if err != nil || c < 0 || c > 3 {
			return nil, errors.Wrapf(ads1x15.ErrInvalidChannel, "input %q", pair)
		}
		n, err := strconv.ParseInt(uv, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "input %q", pair)
		}
		m[c] = int32(n)
	}
	return m, nil
}
