package control

import (
	"encoding/json"

	"gajaoverlay/internal/state"
)

// Request is one control-socket operation.
type Request struct {
	Op string `json:"op"`
	// Record carries a raw StatusRecord for the update-status op.
	Record json.RawMessage `json:"record,omitempty"`
}

// Status is the daemon status response.
type Status struct {
	Running   bool          `json:"running"`
	UptimeSec float64       `json:"uptime_sec"`
	Port      int           `json:"port"`
	Streaming bool          `json:"streaming"`
	State     state.Overlay `json:"state"`
}

// SimpleResponse is a generic ack.
type SimpleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
