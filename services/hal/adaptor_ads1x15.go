// services/hal/adaptor_ads1x15.go
package hal

import (
	"context"
	"sync"
	"time"

	"adcdevice-go/drivers/ads1x15"
	"adcdevice-go/errcode"
	"adcdevice-go/types"
	"adcdevice-go/x/timex"
)

// adsInput is one mux selection, by config name.
type adsInput struct {
	name   string
	single bool
	ch     uint8
	pair   ads1x15.DiffPair
}

func parseInput(s string) (adsInput, error) {
	switch s {
	case "", "ain0":
		return adsInput{name: "ain0", single: true, ch: 0}, nil
	case "ain1":
		return adsInput{name: s, single: true, ch: 1}, nil
	case "ain2":
		return adsInput{name: s, single: true, ch: 2}, nil
	case "ain3":
		return adsInput{name: s, single: true, ch: 3}, nil
	case "diff_0_1":
		return adsInput{name: s, pair: ads1x15.Diff01}, nil
	case "diff_0_3":
		return adsInput{name: s, pair: ads1x15.Diff03}, nil
	case "diff_1_3":
		return adsInput{name: s, pair: ads1x15.Diff13}, nil
	case "diff_2_3":
		return adsInput{name: s, pair: ads1x15.Diff23}, nil
	default:
		return adsInput{}, errcode.InvalidChannel
	}
}

type adsAdaptor struct {
	id    string
	busID string
	input adsInput

	mu       sync.Mutex // Control runs on the service loop, Trigger/Collect on the bus worker
	dev      *ads1x15.Device
	trigGain ads1x15.Gain // gain in force when the pending conversion started
}

// NewADS1x15Adaptor wraps dev, sampling one input.
func NewADS1x15Adaptor(id, busID string, dev *ads1x15.Device, input string) (Adaptor, error) {
	in, err := parseInput(input)
	if err != nil {
		return nil, err
	}
	return &adsAdaptor{id: id, busID: busID, dev: dev, input: in}, nil
}

func (a *adsAdaptor) ID() string { return a.id }

func (a *adsAdaptor) Capabilities() []CapInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return []CapInfo{{
		Kind: string(types.KindADC),
		Info: map[string]any{
			"schema_version":  1,
			"driver":          a.dev.Variant().String(),
			"bus":             a.busID,
			"addr":            a.dev.Address(),
			"input":           a.input.name,
			"resolution_bits": a.dev.Variant().Resolution(),
			"unit":            "uV",
		},
	}}
}

func (a *adsAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trigGain = a.dev.Gain()
	if a.input.single {
		return a.dev.StartSingleEnded(a.input.ch)
	}
	return a.dev.StartDifferential(a.input.pair)
}

func (a *adsAdaptor) Collect(ctx context.Context) (Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	raw, err := a.dev.ReadConversion()
	if err != nil {
		return nil, err
	}
	ts := timex.NowMs()
	v := types.ADCValue{
		Input:      a.input.name,
		Raw:        raw,
		Microvolts: ads1x15.Microvolts(a.dev.Variant(), a.trigGain, raw),
		TSms:       ts,
	}
	return Sample{{Kind: string(types.KindADC), Payload: v, TsMs: ts}}, nil
}

// Control handles set_gain, set_data_rate and get_config. None of them touch
// the bus; new settings apply from the next conversion.
func (a *adsAdaptor) Control(kind, method string, payload any) (any, error) {
	if kind != string(types.KindADC) {
		return nil, ErrUnsupported
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	switch method {
	case "set_gain":
		var p types.ADCSetGain
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.InvalidPayload
		}
		g, err := ads1x15.ParseGain(p.Gain)
		if err != nil {
			return nil, err
		}
		if err := a.dev.SetGain(g); err != nil {
			return nil, err
		}
		return a.configLocked(), nil
	case "set_data_rate":
		var p types.ADCSetDataRate
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.InvalidPayload
		}
		if p.RateSPS <= 0 || p.RateSPS > 0xFFFF {
			return nil, ads1x15.ErrInvalidDataRate
		}
		if err := a.dev.SetDataRate(ads1x15.DataRate(p.RateSPS)); err != nil {
			return nil, err
		}
		return a.configLocked(), nil
	case "get_config":
		return a.configLocked(), nil
	default:
		return nil, ErrUnsupported
	}
}

func (a *adsAdaptor) configLocked() types.ADCConfig {
	return types.ADCConfig{
		Gain:              a.dev.Gain().String(),
		RateSPS:           a.dev.SamplesPerSecond(),
		FullScaleUV:       a.dev.FullScaleMicrovolts(),
		ConversionDelayMs: a.dev.ConversionDelay().Milliseconds(),
		Input:             a.input.name,
	}
}
