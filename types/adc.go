package types

// ------------------------
// ADC capability
// ------------------------

// ADCInfo is the retained info document for one converter input.
type ADCInfo struct {
	SchemaVersion  int    `json:"schema_version"`
	Driver         string `json:"driver"` // "ads1015" | "ads1115"
	Bus            string `json:"bus"`
	Addr           uint16 `json:"addr"`
	Input          string `json:"input"` // "ain0".."ain3", "diff_0_1", ...
	ResolutionBits uint8  `json:"resolution_bits"`
}

// ADCValue is one conversion result.
type ADCValue struct {
	Input      string `json:"input"`
	Raw        int16  `json:"raw"`        // signed sample at device resolution
	Microvolts int32  `json:"microvolts"` // scaled by the gain in force for this sample
	TSms       int64  `json:"ts_ms"`
}

// ADCConfig is returned by the get_config control.
type ADCConfig struct {
	Gain              string `json:"gain"` // "2/3", "1", ... "16"
	RateSPS           int    `json:"rate_sps"`
	FullScaleUV       int32  `json:"full_scale_uv"`
	ConversionDelayMs int64  `json:"conversion_delay_ms"`
	Input             string `json:"input"`
}

// ---- Control payloads ----

type ADCSetGain struct {
	Gain string `json:"gain"`
}

type ADCSetDataRate struct {
	RateSPS int `json:"rate_sps"`
}

type SetPeriod struct {
	PeriodMS int `json:"period_ms"`
}
