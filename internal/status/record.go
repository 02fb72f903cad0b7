// Package status models one unit of assistant state received from the
// remote source.
package status

import "encoding/json"

// Out-of-band actions a record may carry. An action record is handled
// exclusively; no other field in it is consulted.
const (
	ActionOpenSettings = "open_settings"
	ActionQuit         = "quit"
)

// Record is a loosely-typed status message. The three activity flags are
// pointers so a missing trio can fall back to keyword derivation from the
// Status label.
type Record struct {
	Status           string
	Text             string
	Message          string
	IsListening      *bool
	IsSpeaking       *bool
	WakeWordDetected *bool
	OverlayVisible   bool
	ShowOverlay      bool
	HideOverlay      bool
	Action           string
}

// Parse decodes a record, defaulting every field: wrong-typed or missing
// values never produce an error beyond undecodable JSON itself.
func Parse(data []byte) (Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, err
	}
	rec := Record{
		Status:         asString(raw, "status"),
		Text:           asString(raw, "text"),
		Message:        asString(raw, "message"),
		OverlayVisible: asBool(raw, "overlay_visible"),
		ShowOverlay:    asBool(raw, "show_overlay"),
		HideOverlay:    asBool(raw, "hide_overlay"),
		Action:         asString(raw, "action"),
	}
	rec.IsListening = asBoolPtr(raw, "is_listening")
	rec.IsSpeaking = asBoolPtr(raw, "is_speaking")
	rec.WakeWordDetected = asBoolPtr(raw, "wake_word_detected")
	return rec, nil
}

// Label returns the status label, defaulting to "Unknown".
func (r Record) Label() string {
	if r.Status == "" {
		return "Unknown"
	}
	return r.Status
}

// DisplayText returns the display text, accepting the legacy "message" key.
func (r Record) DisplayText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.Message
}

// HasFlags reports whether the record supplied any of the three activity
// flags explicitly.
func (r Record) HasFlags() bool {
	return r.IsListening != nil || r.IsSpeaking != nil || r.WakeWordDetected != nil
}

func asString(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func asBool(raw map[string]any, key string) bool {
	if v, ok := raw[key].(bool); ok {
		return v
	}
	return false
}

func asBoolPtr(raw map[string]any, key string) *bool {
	if v, ok := raw[key].(bool); ok {
		return &v
	}
	return nil
}
