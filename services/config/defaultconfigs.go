package config

// Embedded board configs, keyed by the board ID placed in ctx under
// CtxDeviceKey. Each top-level key becomes one retained config/<key> message.

// Pico with one ADS1115 at 0x48 on I2C0: AIN0 single-ended for the supply
// rail through a divider, AIN2-AIN3 across a shunt.
const cfgPico = `{
  "hal": {
    "version": 1,
    "devices": [
      {
        "id": "vrail",
        "type": "ads1115",
        "bus_ref": {"id": "i2c0", "type": "i2c"},
        "params": {"addr": 72, "input": "ain0", "gain": "1", "rate_sps": 128, "period_ms": 1000}
      },
      {
        "id": "ishunt",
        "type": "ads1115",
        "bus_ref": {"id": "i2c0", "type": "i2c"},
        "params": {"addr": 72, "input": "diff_2_3", "gain": "16", "rate_sps": 64, "period_ms": 500}
      }
    ]
  },
  "heartbeat": {
    "interval_ms": 10000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
