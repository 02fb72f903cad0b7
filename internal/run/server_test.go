package run

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"gajaoverlay/internal/config"
	"gajaoverlay/internal/control"
	"gajaoverlay/internal/logging"
	"gajaoverlay/internal/state"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	dir := t.TempDir()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "overlay.log")
	cfg.Paths.SocketPath = filepath.Join(dir, "overlay.sock")
	cfg.Paths.EventSocketPath = filepath.Join(dir, "overlay-events.sock")
	cfg.Paths.PidPath = filepath.Join(dir, "overlay.pid")
	return New(cfg, logging.NewTestLogger())
}

// roundTrip drives one request through the control handler over a pipe.
func roundTrip(t *testing.T, srv *Server, req control.Request, out any) {
	t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		srv.handleConn(context.Background(), server)
		close(done)
	}()
	if err := json.NewEncoder(client).Encode(req); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := json.NewDecoder(client).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = client.Close()
	<-done
}

func TestControlHealth(t *testing.T) {
	srv := newTestServer(t)
	var resp control.SimpleResponse
	roundTrip(t, srv, control.Request{Op: "health"}, &resp)
	if !resp.OK || resp.Message != "ok" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestControlStatus(t *testing.T) {
	srv := newTestServer(t)
	var resp control.Status
	roundTrip(t, srv, control.Request{Op: "status"}, &resp)
	if !resp.Running {
		t.Fatalf("daemon should report running")
	}
	if resp.State.Status != "Offline" {
		t.Fatalf("fresh daemon state should be Offline: %+v", resp.State)
	}
}

func TestControlShowHideToggle(t *testing.T) {
	srv := newTestServer(t)

	var resp control.SimpleResponse
	roundTrip(t, srv, control.Request{Op: "show"}, &resp)
	if !resp.OK || !srv.Snapshot().Visible {
		t.Fatalf("show op failed: %+v", resp)
	}

	roundTrip(t, srv, control.Request{Op: "toggle-display"}, &resp)
	if !resp.OK || srv.Snapshot().Visible {
		t.Fatalf("toggle should hide a visible overlay: %+v", resp)
	}

	roundTrip(t, srv, control.Request{Op: "toggle-display"}, &resp)
	if !resp.OK || !srv.Snapshot().Visible {
		t.Fatalf("toggle should show a hidden overlay: %+v", resp)
	}

	roundTrip(t, srv, control.Request{Op: "hide"}, &resp)
	if !resp.OK || srv.Snapshot().Visible {
		t.Fatalf("hide op failed: %+v", resp)
	}
}

func TestControlUpdateStatus(t *testing.T) {
	srv := newTestServer(t)

	var resp control.SimpleResponse
	req := control.Request{Op: "update-status", Record: json.RawMessage(`{"status":"listening"}`)}
	roundTrip(t, srv, req, &resp)
	if !resp.OK {
		t.Fatalf("update-status failed: %+v", resp)
	}
	snap := srv.Snapshot()
	if !snap.IsListening || !snap.Visible {
		t.Fatalf("injected record not applied: %+v", snap)
	}

	req = control.Request{Op: "update-status", Record: json.RawMessage(`"just a string"`)}
	roundTrip(t, srv, req, &resp)
	if resp.OK {
		t.Fatalf("non-object record should be rejected")
	}
}

func TestControlGetState(t *testing.T) {
	srv := newTestServer(t)
	srv.ShowOverlay()

	var o state.Overlay
	roundTrip(t, srv, control.Request{Op: "get-state"}, &o)
	if !o.Visible || !o.Pinned {
		t.Fatalf("unexpected state: %+v", o)
	}
}

func TestControlUnknownOp(t *testing.T) {
	srv := newTestServer(t)
	var resp control.SimpleResponse
	roundTrip(t, srv, control.Request{Op: "defrobnicate"}, &resp)
	if resp.OK {
		t.Fatalf("unknown op should fail")
	}
}

func TestMetricsCountWindowTraffic(t *testing.T) {
	srv := newTestServer(t)

	srv.ShowOverlay()
	srv.HideOverlay()

	if srv.metrics.updates.Load() != 2 {
		t.Fatalf("expected 2 window updates, got %d", srv.metrics.updates.Load())
	}
	if srv.metrics.hides.Load() != 1 {
		t.Fatalf("expected 1 hide, got %d", srv.metrics.hides.Load())
	}
}
