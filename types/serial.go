package types

// ---- Serial port (config + diagnostics) ----

// Parity is a small enum to avoid string parsing on the device side.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// SerialConfig is the retained payload at config/serial/<port>.
type SerialConfig struct {
	Baud     uint32 `json:"baud"`
	RxBuf    int    `json:"rx_buf,omitempty"` // receive ring capacity; port defaults if zero
	DataBits uint8  `json:"data_bits,omitempty"`
	StopBits uint8  `json:"stop_bits,omitempty"`
	Parity   Parity `json:"parity,omitempty"`
}

// SerialOverflow is a best-effort event at diag/serial/<port>/overflow.
// Emitted from the receive path when the ring rejects a byte; never blocks.
type SerialOverflow struct {
	Dropped uint32 `json:"dropped"` // total bytes dropped since open
	TS      int64  `json:"ts_ms"`
}

// SerialStats is the retained snapshot at diag/serial/<port>/stats.
type SerialStats struct {
	RxBytes uint32 `json:"rx_bytes"`
	TxBytes uint32 `json:"tx_bytes"`
	Dropped uint32 `json:"dropped"`
}
