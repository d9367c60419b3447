// Package types holds the payload schemas exchanged over the bus.
// Everything here is plain data: services share these structs in-process,
// and the bridge marshals the same structs to JSON for the uplink.
package types

// ---- Node heartbeat ----

// Heartbeat is published at printer/heartbeat (retained).
type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeMs uint32 `json:"uptime_ms"` // wraps ~49 days; consumers diff, not compare
	TS       int64  `json:"ts_ms"`
}

// HeartbeatConfig is the retained payload at config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs uint32 `json:"interval_ms"` // 0 disables the beat
}

// ---- First-layer calibration ----

// CalibrationRun asks the calibration service to queue a full first-layer
// sequence. Published at cal/first_layer/run. Zero fields take defaults.
type CalibrationRun struct {
	LayerHeight    float64 `json:"layer_height,omitempty"`    // mm
	ExtrusionWidth float64 `json:"extrusion_width,omitempty"` // mm
	FilamentDiam   float64 `json:"filament_diam,omitempty"`   // mm
	Filament       int     `json:"filament,omitempty"`        // tool slot; <0 for single-material
	ExtraPurge     bool    `json:"extra_purge,omitempty"`
}

// Calibration phases reported in CalibrationState.
const (
	PhaseIdle    = "idle"
	PhaseRunning = "running"
	PhaseDone    = "done"
	PhaseError   = "error"
)

// CalibrationState is the retained progress snapshot at cal/first_layer/state.
type CalibrationState struct {
	Phase  string `json:"phase"`
	Queued int    `json:"queued"`
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Uplink bridge ----

type Link string

const (
	LinkUp   Link = "up"
	LinkDown Link = "down"
)

// BridgeState is the retained payload at bridge/state.
type BridgeState struct {
	Link   Link   `json:"link"`
	Broker string `json:"broker,omitempty"`
	TS     int64  `json:"ts_ms"`
}
