package config

import (
	"printcore-go/bus"
	"printcore-go/types"
)

// -----------------------------------------------------------------------------
// Compiled-in defaults
//
// Key: device ID passed to New (the build target).
// Val: retained messages published verbatim at startup.
// -----------------------------------------------------------------------------

var profiles = map[string]Profile{
	"pico": {
		{bus.T("config", "heartbeat"),
			types.HeartbeatConfig{IntervalMs: 1000}},
		{bus.T("config", "serial", "uart0"),
			types.SerialConfig{Baud: 115200, RxBuf: 32, DataBits: 8, StopBits: 1}},
		{bus.T("config", "cal", "first_layer"),
			types.CalibrationRun{LayerHeight: 0.2, ExtrusionWidth: 0.45, FilamentDiam: 1.75, Filament: -1}},
	},
	"host": {
		{bus.T("config", "heartbeat"),
			types.HeartbeatConfig{IntervalMs: 500}},
		{bus.T("config", "serial", "lo"),
			types.SerialConfig{Baud: 115200, RxBuf: 32, DataBits: 8, StopBits: 1}},
		{bus.T("config", "cal", "first_layer"),
			types.CalibrationRun{LayerHeight: 0.2, ExtrusionWidth: 0.45, FilamentDiam: 1.75, Filament: -1}},
	},
}
