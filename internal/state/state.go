// Package state holds the single shared overlay state record.
package state

import (
	"sync"
	"time"
)

// Overlay is the canonical display state. One instance exists for the
// process lifetime, owned by the Store.
type Overlay struct {
	Visible          bool   `json:"visible"`
	Interactive      bool   `json:"interactive"`
	Status           string `json:"status"`
	Text             string `json:"text"`
	IsListening      bool   `json:"is_listening"`
	IsSpeaking       bool   `json:"is_speaking"`
	WakeWordDetected bool   `json:"wake_word_detected"`

	// Pinned marks an explicit visibility request (show_overlay override or
	// the source's overlay_visible flag); the idle monitor never hides a
	// pinned overlay.
	Pinned       bool      `json:"pinned"`
	LastActivity time.Time `json:"-"`
}

// Store guards Overlay behind one mutex. Every read-compare-mutate runs
// inside Update; callers issue window calls only after Update returns.
type Store struct {
	mu  sync.Mutex
	cur Overlay
}

// New returns a Store with all flags false and status "Offline".
func New() *Store {
	return &Store{cur: Overlay{Status: "Offline", LastActivity: time.Now()}}
}

// Update runs fn with the lock held. The lock is released on every exit
// path, including a panic inside fn.
func (s *Store) Update(fn func(*Overlay)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cur)
}

// Snapshot returns a copy of the current state under the same lock.
func (s *Store) Snapshot() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
