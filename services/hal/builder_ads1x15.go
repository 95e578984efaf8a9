// services/hal/builder_ads1x15.go
package hal

import (
	"time"

	"adcdevice-go/drivers/ads1x15"
	"adcdevice-go/errcode"
	"adcdevice-go/types"
	"adcdevice-go/x/mathx"
)

const (
	defaultADCPeriod = 1000 // ms
	minPeriodMS      = 200
	maxPeriodMS      = 3_600_000
)

type ads1x15Builder struct{ variant ads1x15.Variant }

func init() {
	RegisterBuilder("ads1015", ads1x15Builder{variant: ads1x15.ADS1015})
	RegisterBuilder("ads1115", ads1x15Builder{variant: ads1x15.ADS1115})
}

func (b ads1x15Builder) Build(in BuildInput) (BuildOutput, error) {
	if in.BusRef.Type != "i2c" || in.BusRef.ID == "" {
		return BuildOutput{}, errcode.InvalidParams
	}
	i2c, ok := in.Buses.ByID(in.BusRef.ID)
	if !ok {
		return BuildOutput{}, errcode.UnknownBus
	}

	var p types.ADS1x15Params
	if in.ParamsJSON != nil {
		if err := decodeJSON(in.ParamsJSON, &p); err != nil {
			return BuildOutput{}, errcode.InvalidPayload
		}
	}

	cfg := ads1x15.DefaultConfig(b.variant)
	if p.Addr != 0 {
		cfg.Address = uint16(p.Addr)
	}
	if p.Gain != "" {
		g, err := ads1x15.ParseGain(p.Gain)
		if err != nil {
			return BuildOutput{}, err
		}
		cfg.Gain = g
	}
	if p.RateSPS != 0 {
		if p.RateSPS < 0 || p.RateSPS > 0xFFFF {
			return BuildOutput{}, ads1x15.ErrInvalidDataRate
		}
		cfg.Rate = ads1x15.DataRate(p.RateSPS)
	}
	if err := cfg.Validate(); err != nil {
		return BuildOutput{}, err
	}

	ad, err := NewADS1x15Adaptor(in.DeviceID, in.BusRef.ID, ads1x15.New(i2c, cfg), p.Input)
	if err != nil {
		return BuildOutput{}, err
	}

	period := p.PeriodMS
	if period == 0 {
		period = defaultADCPeriod
	}
	period = mathx.Clamp(period, minPeriodMS, maxPeriodMS)

	return BuildOutput{
		Adaptor:     ad,
		BusID:       in.BusRef.ID,
		SampleEvery: time.Duration(period) * time.Millisecond,
	}, nil
}
