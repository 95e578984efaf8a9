package types

// ADS1x15Params is the params shape for device types "ads1015" and "ads1115".
// Zero values select defaults: address 0x48, input ain0, gain 2/3, the
// variant's default rate and a 1 s sampling period.
type ADS1x15Params struct {
	Addr     int    `json:"addr,omitempty"`
	Input    string `json:"input,omitempty"`
	Gain     string `json:"gain,omitempty"`
	RateSPS  int    `json:"rate_sps,omitempty"`
	PeriodMS int    `json:"period_ms,omitempty"`
}
