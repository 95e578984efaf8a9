// services/hal/types.go
package hal

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// Reading is one datum for one capability kind.
type Reading struct {
	Kind    string // e.g. "adc"
	Payload any    // JSON-serialisable payload
	TsMs    int64  // producer timestamp
}

// Sample is a batch of readings collected together.
type Sample []Reading

// CapInfo describes one capability’s retained info document.
type CapInfo struct {
	Kind string         // capability kind
	Info map[string]any // small JSONable map
}

// Adaptor owns a concrete device/driver and exposes generic hooks.
// Adaptors must NOT touch the bus or spawn goroutines.
type Adaptor interface {
	ID() string
	// Static capability descriptions (published as retained).
	Capabilities() []CapInfo
	// Trigger a measurement and return suggested wait until Collect.
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	// Collect fetches the measurement started by Trigger.
	Collect(ctx context.Context) (Sample, error)
	// Optional pass-through control for driver-specific methods.
	// Return (nil, ErrUnsupported) if not implemented for a method/kind.
	Control(kind, method string, payload any) (result any, err error)
}

// WorkerConfig centralises timings and limits.
type WorkerConfig struct {
	TriggerTimeout time.Duration
	CollectTimeout time.Duration
	InputQueueSize int
}

// MeasureReq asks the worker to trigger/collect for a given adaptor.
type MeasureReq struct {
	ID      string
	Adaptor Adaptor
	Prio    bool // true for read_now
}

// Result emitted by the worker.
type Result struct {
	ID     string
	Sample Sample
	Err    error
}

// ErrUnsupported for adaptor Control pass-through.
var ErrUnsupported = errUnsupported{}

type errUnsupported struct{}

func (errUnsupported) Error() string { return "unsupported" }

// I2CBusFactory injects configured I²C instances by id.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}
