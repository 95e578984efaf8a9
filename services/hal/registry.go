// services/hal/registry.go
package hal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// BuildInput is provided to a device builder to construct an Adaptor.
type BuildInput struct {
	Ctx        context.Context
	Buses      I2CBusFactory
	DeviceID   string
	Type       string
	ParamsJSON any
	BusRef     DevBusRef
}

// BuildOutput is returned by a builder.
type BuildOutput struct {
	Adaptor     Adaptor
	BusID       string        // bucket key for the shared per-bus worker (e.g. "i2c0")
	SampleEvery time.Duration // 0 if not a periodic producer
}

// Builder constructs an Adaptor from config and platform factories.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

var (
	muBuilders sync.RWMutex
	builders   = map[string]Builder{}
)

// RegisterBuilder installs a builder for a given device type string.
// It panics on duplicate registration to catch mistakes at start-up.
func RegisterBuilder(deviceType string, b Builder) {
	muBuilders.Lock()
	defer muBuilders.Unlock()
	if deviceType == "" {
		panic("hal: empty device type for builder")
	}
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("hal: builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

// RegisteredTypes lists the device types with a builder, sorted.
func RegisteredTypes() []string {
	muBuilders.RLock()
	defer muBuilders.RUnlock()
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// findBuilder looks up a registered builder by type.
func findBuilder(deviceType string) (Builder, bool) {
	muBuilders.RLock()
	defer muBuilders.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
