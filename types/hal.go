package types

// ---- Common HAL state (retained) ----

type HALState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"` // machine-readable short code
}

// ---- Capability kinds ----

type Kind string

const (
	KindADC Kind = "adc"
)

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Heartbeat ----

type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeMs int64  `json:"uptime_ms"`
	TS       int64  `json:"ts_ms"`
}
