// Package window is the boundary to the overlay renderer process. The
// daemon decides what to request of the window; the renderer applies the
// native show/hide and click-through flags.
package window

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Update is the payload emitted to the renderer on every accepted change.
type Update struct {
	Status           string `json:"status"`
	Text             string `json:"text"`
	IsListening      bool   `json:"is_listening"`
	IsSpeaking       bool   `json:"is_speaking"`
	WakeWordDetected bool   `json:"wake_word_detected"`
}

// Sink receives window requests from the reconciler and idle monitor.
type Sink interface {
	Show()
	Hide()
	SetInteractive(interactive bool)
	EmitStatus(u Update)
	IsVisible() bool
}

type event struct {
	Event       string  `json:"event"`
	Interactive *bool   `json:"interactive,omitempty"`
	Payload     *Update `json:"payload,omitempty"`
}

// StreamSink writes window requests as JSON lines to an attached renderer
// connection. With no renderer attached, requests still update the local
// visibility bookkeeping and the event is dropped.
type StreamSink struct {
	logger *logrus.Logger

	mu      sync.Mutex
	w       io.Writer
	visible bool
}

// NewStreamSink returns a detached StreamSink.
func NewStreamSink(logger *logrus.Logger) *StreamSink {
	return &StreamSink{logger: logger}
}

// Attach sets the renderer connection, replacing any previous one.
func (s *StreamSink) Attach(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
	s.logger.Info("renderer attached")
}

// Detach clears the renderer connection, but only if w is still the
// attached one (a newer renderer may have replaced it).
func (s *StreamSink) Detach(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == w {
		s.w = nil
		s.logger.Info("renderer detached")
	}
}

func (s *StreamSink) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
	s.write(event{Event: "show"})
}

func (s *StreamSink) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.write(event{Event: "hide"})
}

func (s *StreamSink) SetInteractive(interactive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(event{Event: "set-interactive", Interactive: &interactive})
}

func (s *StreamSink) EmitStatus(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(event{Event: "status-update", Payload: &u})
}

func (s *StreamSink) IsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// write encodes one event; callers hold s.mu. A write failure detaches the
// renderer so a dead connection cannot wedge the reconciler.
func (s *StreamSink) write(ev event) {
	if s.w == nil {
		s.logger.Debugf("no renderer attached, dropping %s", ev.Event)
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warnf("encode window event: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := s.w.Write(data); err != nil {
		s.logger.Warnf("renderer write failed, detaching: %v", err)
		s.w = nil
	}
}
