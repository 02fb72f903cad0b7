package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gajaoverlay/internal/config"
	"gajaoverlay/internal/logging"
	"gajaoverlay/internal/status"
)

type collectHandler struct {
	mu   sync.Mutex
	recs []status.Record
}

func (h *collectHandler) HandleRecord(rec status.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
}

func (h *collectHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.recs)
}

func (h *collectHandler) last() status.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recs[len(h.recs)-1]
}

type countStats struct {
	records    atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
}

func (s *countStats) IncRecords()    { s.records.Add(1) }
func (s *countStats) IncDropped()    { s.dropped.Add(1) }
func (s *countStats) IncReconnects() { s.reconnects.Add(1) }

func serverPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return port
}

func testConfig(t *testing.T, ports ...int) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Ports = ports
	cfg.Server.PollIntervalMS = 10
	cfg.Server.ProbeTimeoutMS = 500
	cfg.Server.StreamCooldownSec = 1
	return cfg
}

func TestDiscoverPicksFirstAnswering(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ready"}`)
	}))
	defer good.Close()

	cfg := testConfig(t, serverPort(t, bad), serverPort(t, good))
	c := New(cfg, &collectHandler{}, nil, logging.NewTestLogger())

	if got := c.discover(context.Background()); got != serverPort(t, good) {
		t.Fatalf("expected port %d, got %d", serverPort(t, good), got)
	}
}

func TestDiscoverFallsBackToDefault(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	port := serverPort(t, dead)
	dead.Close() // nothing listens there anymore

	t.Setenv("GAJA_PORT", "6542")
	cfg := testConfig(t, port)
	c := New(cfg, &collectHandler{}, nil, logging.NewTestLogger())

	if got := c.discover(context.Background()); got != 6542 {
		t.Fatalf("expected env default 6542, got %d", got)
	}
}

func TestStreamDeliversRecords(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"status\":\"listening\"}\n\n")
		fl.Flush()
		fmt.Fprint(w, "data: {\"status\":\"speaking\",\"text\":\"hello\"}\n\n")
		fl.Flush()
	}))
	defer ts.Close()

	handler := &collectHandler{}
	stats := &countStats{}
	cfg := testConfig(t, serverPort(t, ts))
	c := New(cfg, handler, stats, logging.NewTestLogger())

	if !c.stream(context.Background(), serverPort(t, ts)) {
		t.Fatalf("stream should report a successful connection")
	}
	if handler.count() != 2 {
		t.Fatalf("expected 2 records, got %d", handler.count())
	}
	if got := handler.last(); got.Status != "speaking" || got.Text != "hello" {
		t.Fatalf("unexpected last record: %+v", got)
	}
	if !c.Streaming() || c.Port() != serverPort(t, ts) {
		t.Fatalf("client mode not updated: port=%d streaming=%v", c.Port(), c.Streaming())
	}
}

func TestStreamRefusedFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cfg := testConfig(t, serverPort(t, ts))
	c := New(cfg, &collectHandler{}, nil, logging.NewTestLogger())

	if c.stream(context.Background(), serverPort(t, ts)) {
		t.Fatalf("404 stream endpoint should report failure")
	}
}

func TestPollDeliversAndDropsBadRecords(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			fmt.Fprint(w, "not json")
			return
		}
		fmt.Fprint(w, `{"status":"listening"}`)
	}))
	defer ts.Close()

	handler := &collectHandler{}
	stats := &countStats{}
	cfg := testConfig(t, serverPort(t, ts))
	c := New(cfg, handler, stats, logging.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	c.poll(ctx, serverPort(t, ts))

	if stats.dropped.Load() != 1 {
		t.Fatalf("expected 1 dropped record, got %d", stats.dropped.Load())
	}
	if handler.count() == 0 {
		t.Fatalf("expected polled records to be delivered")
	}
	if got := handler.last(); got.Status != "listening" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPollFailsOverToNextPort(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"listening"}`)
	}))
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"speaking","text":"from b"}`)
	}))
	defer b.Close()

	portA := serverPort(t, a)
	portB := serverPort(t, b)

	handler := &collectHandler{}
	stats := &countStats{}
	cfg := testConfig(t, portA, portB)
	c := New(cfg, handler, stats, logging.NewTestLogger())

	// Kill port A mid-poll; the next cycle must re-probe and move to B.
	go func() {
		time.Sleep(50 * time.Millisecond)
		a.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.poll(ctx, portA)

	if c.Port() != portB {
		t.Fatalf("expected failover to port %d, got %d", portB, c.Port())
	}
	if stats.reconnects.Load() == 0 {
		t.Fatalf("port switch should count as a reconnect")
	}
	if got := handler.last(); got.Status != "speaking" || got.Text != "from b" {
		t.Fatalf("expected records from the new port, got %+v", got)
	}
}

func TestRunFallsBackToPolling(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			fmt.Fprint(w, `{"status":"ready"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	handler := &collectHandler{}
	cfg := testConfig(t, serverPort(t, ts))
	c := New(cfg, handler, nil, logging.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	if handler.count() == 0 {
		t.Fatalf("expected records via polling fallback")
	}
	if c.Streaming() {
		t.Fatalf("client should report polling mode")
	}
	if c.Port() != serverPort(t, ts) {
		t.Fatalf("unexpected port %d", c.Port())
	}
}
