// Package overlay reconciles assistant status records into the canonical
// overlay state and decides what to request of the window.
package overlay

import (
	"sync"
	"time"

	"gajaoverlay/internal/state"
	"gajaoverlay/internal/status"
	"gajaoverlay/internal/window"

	"github.com/sirupsen/logrus"
)

// Reconciler applies StatusRecords to the shared state. Records are
// processed strictly in arrival order by whichever goroutine delivered
// them; the store's lock is released before any window call.
type Reconciler struct {
	store  *state.Store
	sink   window.Sink
	logger *logrus.Logger
	now    func() time.Time

	// OpenSettings and Quit handle the out-of-band actions. Either may be
	// nil, in which case the action is logged and ignored.
	OpenSettings func()
	Quit         func()

	kwMu sync.RWMutex
	kw   Keywords
}

// New returns a Reconciler over store and sink.
func New(store *state.Store, sink window.Sink, kw Keywords, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		sink:   sink,
		logger: logger,
		now:    time.Now,
		kw:     kw,
	}
}

// SetKeywords swaps the keyword tables (config reload).
func (r *Reconciler) SetKeywords(kw Keywords) {
	r.kwMu.Lock()
	defer r.kwMu.Unlock()
	r.kw = kw
}

func (r *Reconciler) keywords() Keywords {
	r.kwMu.RLock()
	defer r.kwMu.RUnlock()
	return r.kw
}

// windowOps collects the sink calls decided inside the critical section
// and performed after it.
type windowOps struct {
	setInteractive bool
	interactive    bool
	show           bool
	hide           bool
	emit           bool
	payload        window.Update
}

func (r *Reconciler) perform(ops windowOps) {
	if ops.setInteractive {
		r.sink.SetInteractive(ops.interactive)
	}
	if ops.show {
		r.sink.Show()
	}
	if ops.hide {
		r.sink.Hide()
	}
	if ops.emit {
		r.sink.EmitStatus(ops.payload)
	}
}

// HandleRecord applies one record. Implements transport.Handler.
func (r *Reconciler) HandleRecord(rec status.Record) {
	// Out-of-band actions are exclusive: nothing else in the record counts.
	if rec.Action != "" {
		r.handleAction(rec.Action)
		return
	}
	if rec.ShowOverlay || rec.HideOverlay {
		r.applyOverride(rec)
		return
	}
	r.applyDerived(rec)
}

func (r *Reconciler) handleAction(action string) {
	switch action {
	case status.ActionOpenSettings:
		if r.OpenSettings == nil {
			r.logger.Warn("open_settings action with no settings handler")
			return
		}
		r.logger.Info("action: open settings")
		r.OpenSettings()
	case status.ActionQuit:
		if r.Quit == nil {
			r.logger.Warn("quit action with no quit handler")
			return
		}
		r.logger.Info("action: quit")
		r.Quit()
	default:
		r.logger.Warnf("unknown action %q ignored", action)
	}
}

// applyOverride handles explicit show_overlay/hide_overlay requests. They
// bypass the derived-visibility formula: explicit caller intent beats
// ambient status. An explicit hide wins if both are set.
func (r *Reconciler) applyOverride(rec status.Record) {
	wantVisible := !rec.HideOverlay
	var ops windowOps
	r.store.Update(func(o *state.Overlay) {
		wantInteractive := o.Interactive && wantVisible
		wantPinned := wantVisible
		if o.Visible == wantVisible && o.Interactive == wantInteractive && o.Pinned == wantPinned {
			return
		}
		if wantVisible && !o.Visible {
			ops.show = true
		}
		if !wantVisible && o.Visible {
			ops.hide = true
		}
		if o.Interactive != wantInteractive {
			ops.setInteractive = true
			ops.interactive = wantInteractive
		}
		o.Visible = wantVisible
		o.Interactive = wantInteractive
		o.Pinned = wantPinned
		o.LastActivity = r.now()
		ops.emit = true
		ops.payload = window.Update{
			Status:           o.Status,
			Text:             o.Text,
			IsListening:      o.IsListening,
			IsSpeaking:       o.IsSpeaking,
			WakeWordDetected: o.WakeWordDetected,
		}
	})
	if ops.emit {
		r.logger.Infof("visibility override: visible=%v", wantVisible)
	}
	r.perform(ops)
}

// applyDerived runs the general formula: defaults, canonical flags,
// derived visibility and interactivity, change detection.
func (r *Reconciler) applyDerived(rec status.Record) {
	kw := r.keywords()

	label := rec.Label()
	text := rec.DisplayText()

	var listening, speaking, wake bool
	if rec.HasFlags() {
		// Flags supplied explicitly are taken verbatim, missing ones false.
		listening = rec.IsListening != nil && *rec.IsListening
		speaking = rec.IsSpeaking != nil && *rec.IsSpeaking
		wake = rec.WakeWordDetected != nil && *rec.WakeWordDetected
	} else {
		listening, speaking, wake = kw.deriveFlags(label)
	}

	hasActivity := wake || speaking || listening
	visible := hasActivity || kw.meaningful(text) || rec.OverlayVisible
	interactive := listening && visible

	var ops windowOps
	r.store.Update(func(o *state.Overlay) {
		if o.Text == text &&
			o.IsListening == listening &&
			o.IsSpeaking == speaking &&
			o.WakeWordDetected == wake &&
			o.Visible == visible &&
			o.Interactive == interactive {
			return // idempotent no-op
		}
		if o.Interactive != interactive {
			ops.setInteractive = true
			ops.interactive = interactive
		}
		if visible && !o.Visible {
			ops.show = true
		}
		if !visible && o.Visible {
			ops.hide = true
		}
		o.Status = label
		o.Text = text
		o.IsListening = listening
		o.IsSpeaking = speaking
		o.WakeWordDetected = wake
		o.Visible = visible
		o.Interactive = interactive
		o.Pinned = rec.OverlayVisible
		o.LastActivity = r.now()
		ops.emit = true
		ops.payload = window.Update{
			Status:           label,
			Text:             text,
			IsListening:      listening,
			IsSpeaking:       speaking,
			WakeWordDetected: wake,
		}
	})
	if ops.emit {
		r.logger.Debugf("status update: listening=%v speaking=%v wake=%v text=%q visible=%v interactive=%v",
			listening, speaking, wake, text, visible, interactive)
	}
	r.perform(ops)
}
