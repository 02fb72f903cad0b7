package run

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"gajaoverlay/internal/window"
)

type metrics struct {
	records    atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
	updates    atomic.Int64
	hides      atomic.Int64
}

func (m *metrics) reset() {
	m.records.Store(0)
	m.dropped.Store(0)
	m.reconnects.Store(0)
	m.updates.Store(0)
	m.hides.Store(0)
}

// transport.Stats.
func (m *metrics) IncRecords()    { m.records.Add(1) }
func (m *metrics) IncDropped()    { m.dropped.Add(1) }
func (m *metrics) IncReconnects() { m.reconnects.Add(1) }

// countingSink wraps the renderer sink to count emitted updates and
// hide requests.
type countingSink struct {
	window.Sink
	m *metrics
}

func (c countingSink) Hide() {
	c.m.hides.Add(1)
	c.Sink.Hide()
}

func (c countingSink) EmitStatus(u window.Update) {
	c.m.updates.Add(1)
	c.Sink.EmitStatus(u)
}

func (s *Server) metricsServe(ctxDone <-chan struct{}, addr string, logger interface {
	Infof(string, ...any)
	Warnf(string, ...any)
}) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "gaja_overlay_records_total %d\n", s.metrics.records.Load())
		fmt.Fprintf(w, "gaja_overlay_records_dropped_total %d\n", s.metrics.dropped.Load())
		fmt.Fprintf(w, "gaja_overlay_reconnects_total %d\n", s.metrics.reconnects.Load())
		fmt.Fprintf(w, "gaja_overlay_window_updates_total %d\n", s.metrics.updates.Load())
		fmt.Fprintf(w, "gaja_overlay_window_hides_total %d\n", s.metrics.hides.Load())
	})
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		<-ctxDone
		_ = server.Close()
	}()
	logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
		logger.Warnf("metrics server: %v", err)
	}
}
