// services/hal/workers_api.go
package hal

import "context"

// MeasurementWorker is the narrow contract the service relies on.
type MeasurementWorker interface {
	Submit(MeasureReq) bool
	Remove(id string)
	Start(ctx context.Context)
}

// NewMeasurementWorker adapts the concrete constructor to the interface.
func NewMeasurementWorker(cfg WorkerConfig, sink chan<- Result) MeasurementWorker {
	return NewWorker(cfg, sink)
}
