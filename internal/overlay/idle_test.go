package overlay

import (
	"testing"
	"time"

	"gajaoverlay/internal/logging"
	"gajaoverlay/internal/state"
)

func newTestMonitor(t *testing.T, timeout time.Duration) (*IdleMonitor, *state.Store, *fakeSink) {
	t.Helper()
	store := state.New()
	sink := &fakeSink{}
	return NewIdleMonitor(store, sink, timeout, logging.NewTestLogger()), store, sink
}

func TestIdleHidesAfterTimeout(t *testing.T) {
	m, store, sink := newTestMonitor(t, 30*time.Second)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.LastActivity = base
	})
	sink.visible = true

	m.now = func() time.Time { return base.Add(29 * time.Second) }
	if m.Check() {
		t.Fatalf("should not hide before the timeout")
	}

	m.now = func() time.Time { return base.Add(31 * time.Second) }
	if !m.Check() {
		t.Fatalf("should hide after the timeout")
	}
	snap := store.Snapshot()
	if snap.Visible || snap.Interactive {
		t.Fatalf("auto-hide should clear visibility and interactivity: %+v", snap)
	}
	if sink.hides != 1 {
		t.Fatalf("expected one hide, got %d", sink.hides)
	}

	// Already hidden; a later check is a no-op.
	if m.Check() {
		t.Fatalf("hidden overlay should not hide again")
	}
	if sink.hides != 1 {
		t.Fatalf("expected no further hides, got %d", sink.hides)
	}
}

func TestIdleSkipsActivity(t *testing.T) {
	m, store, _ := newTestMonitor(t, 30*time.Second)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.IsSpeaking = true
		o.LastActivity = base
	})
	m.now = func() time.Time { return base.Add(time.Minute) }
	if m.Check() {
		t.Fatalf("active overlay must not auto-hide")
	}
}

func TestIdleSkipsText(t *testing.T) {
	m, store, _ := newTestMonitor(t, 30*time.Second)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.Text = "Dimming the lights"
		o.LastActivity = base
	})
	m.now = func() time.Time { return base.Add(time.Minute) }
	if m.Check() {
		t.Fatalf("overlay with text must not auto-hide")
	}
}

func TestIdleSkipsPinned(t *testing.T) {
	m, store, _ := newTestMonitor(t, 30*time.Second)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.Pinned = true
		o.LastActivity = base
	})
	m.now = func() time.Time { return base.Add(time.Hour) }
	if m.Check() {
		t.Fatalf("pinned overlay must not auto-hide")
	}
}

func TestIdleSkipsSinkHideWhenWindowAlreadyHidden(t *testing.T) {
	m, store, sink := newTestMonitor(t, 30*time.Second)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.LastActivity = base
	})
	// Renderer window already hidden; state still says visible.
	sink.visible = false

	m.now = func() time.Time { return base.Add(time.Minute) }
	if !m.Check() {
		t.Fatalf("state should still transition to hidden")
	}
	if sink.hides != 0 {
		t.Fatalf("no hide request for an already hidden window, got %d", sink.hides)
	}
}

func TestSetTimeout(t *testing.T) {
	m, store, _ := newTestMonitor(t, time.Hour)

	base := time.Now()
	store.Update(func(o *state.Overlay) {
		o.Visible = true
		o.LastActivity = base
	})
	m.now = func() time.Time { return base.Add(time.Minute) }
	if m.Check() {
		t.Fatalf("one minute is under the hour timeout")
	}

	m.SetTimeout(30 * time.Second)
	if !m.Check() {
		t.Fatalf("reloaded timeout should apply")
	}
}
