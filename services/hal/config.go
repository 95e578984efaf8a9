package hal

// JSON config published on config/hal.

type HALConfig struct {
	Version int      `json:"version"`
	Devices []DevCfg `json:"devices"`
}

type DevCfg struct {
	ID     string    `json:"id"`   // "adc0"
	Type   string    `json:"type"` // "ads1115"
	BusRef DevBusRef `json:"bus_ref"`
	Params any       `json:"params,omitempty"` // device-specific shape; may be a map or struct
}

type DevBusRef struct {
	ID   string `json:"id"`   // "i2c0"
	Type string `json:"type"` // "i2c"
}
