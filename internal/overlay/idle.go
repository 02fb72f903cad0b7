package overlay

import (
	"context"
	"sync"
	"time"

	"gajaoverlay/internal/state"
	"gajaoverlay/internal/window"

	"github.com/sirupsen/logrus"
)

// IdleMonitor hides the overlay after sustained inactivity. It is the only
// path that hides the window purely due to time rather than a record.
type IdleMonitor struct {
	store  *state.Store
	sink   window.Sink
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	timeout time.Duration
}

// NewIdleMonitor returns a monitor with the given inactivity threshold.
func NewIdleMonitor(store *state.Store, sink window.Sink, timeout time.Duration, logger *logrus.Logger) *IdleMonitor {
	return &IdleMonitor{
		store:   store,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
		timeout: timeout,
	}
}

// SetTimeout swaps the inactivity threshold (config reload).
func (m *IdleMonitor) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

func (m *IdleMonitor) threshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Run checks on a fixed cadence until ctx is done.
func (m *IdleMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check hides the overlay when it has been visible without activity, text
// or a pinned visibility request for longer than the threshold. Returns
// whether a hide was requested.
func (m *IdleMonitor) Check() bool {
	timeout := m.threshold()
	var hide bool
	m.store.Update(func(o *state.Overlay) {
		if !o.Visible || o.Pinned {
			return
		}
		if o.IsListening || o.IsSpeaking || o.WakeWordDetected {
			return
		}
		if o.Text != "" {
			return
		}
		if m.now().Sub(o.LastActivity) < timeout {
			return
		}
		o.Visible = false
		o.Interactive = false
		hide = true
	})
	if hide {
		m.logger.Info("auto-hiding overlay after prolonged inactivity")
		if m.sink.IsVisible() {
			m.sink.Hide()
		}
	}
	return hide
}
