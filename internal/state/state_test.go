package state

import "testing"

func TestNewStartsOffline(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	if snap.Status != "Offline" {
		t.Fatalf("expected Offline start, got %q", snap.Status)
	}
	if snap.Visible || snap.Interactive {
		t.Fatalf("overlay should start hidden: %+v", snap)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	s := New()
	s.Update(func(o *Overlay) {
		o.Visible = true
		o.Status = "listening"
		o.IsListening = true
	})
	snap := s.Snapshot()
	if !snap.Visible || !snap.IsListening || snap.Status != "listening" {
		t.Fatalf("update not reflected: %+v", snap)
	}

	// Snapshot is a copy; mutating it must not leak back.
	snap.Visible = false
	if !s.Snapshot().Visible {
		t.Fatalf("snapshot mutation leaked into store")
	}
}

func TestUpdateReleasesLockOnPanic(t *testing.T) {
	s := New()
	func() {
		defer func() { _ = recover() }()
		s.Update(func(o *Overlay) {
			panic("boom")
		})
	}()
	// Deadlocks here if the lock leaked.
	_ = s.Snapshot()
}
