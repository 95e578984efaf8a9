package config

import (
	"context"
	"encoding/json"
	"errors"

	"adcdevice-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for the board ID
)

// EmbeddedConfigLookup resolves the raw JSON config for a board. Tests and
// board-specific builds may replace it.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig splits the board config by top-level key and publishes each
// section retained on config/<key>, e.g. config/hal for the HAL service.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("embedded config is not a JSON object: " + err.Error())
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start publishes the board config in the background. Failures are reported
// retained on config/state.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			conn.Publish(conn.NewMessage(bus.T(configPrefix, "state"),
				map[string]any{"ok": false, "error": err.Error()}, true))
		}
	}()
}
