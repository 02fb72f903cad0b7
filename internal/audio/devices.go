// Package audio enumerates host audio devices. The assistant owns the
// microphone; this exists so its device names can be checked from here.
package audio

// Device is one input or output device on the host.
type Device struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"` // input or output
	Channels  int     `json:"channels"`
	LatencyMs float64 `json:"latency_ms"`
	Default   bool    `json:"default"`
}
