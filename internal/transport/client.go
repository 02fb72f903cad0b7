// Package transport maintains the live status feed from the assistant:
// endpoint discovery over candidate ports, an SSE stream when available,
// and fixed-interval polling otherwise.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"gajaoverlay/internal/config"
	"gajaoverlay/internal/sse"
	"gajaoverlay/internal/status"

	"github.com/sirupsen/logrus"
)

// Handler consumes decoded records. Called synchronously from the
// transport goroutine; records arrive in order.
type Handler interface {
	HandleRecord(rec status.Record)
}

// Stats receives transport counters.
type Stats interface {
	IncRecords()
	IncDropped()
	IncReconnects()
}

type nopStats struct{}

func (nopStats) IncRecords()    {}
func (nopStats) IncDropped()    {}
func (nopStats) IncReconnects() {}

// Client drives the feed. Run blocks for the process lifetime; it never
// mutates overlay state itself.
type Client struct {
	cfg     *config.Config
	handler Handler
	stats   Stats
	logger  *logrus.Logger

	streamc *http.Client // long-lived stream, no client timeout
	reqc    *http.Client // probes and polls

	mu        sync.Mutex
	port      int
	streaming bool
}

// Port returns the endpoint currently in use (0 before discovery).
func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Streaming reports whether the client is on the SSE stream rather than
// the polling fallback.
func (c *Client) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Client) setMode(port int, streaming bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.port = port
	c.streaming = streaming
}

// New returns a Client delivering records to handler.
func New(cfg *config.Config, handler Handler, stats Stats, logger *logrus.Logger) *Client {
	if stats == nil {
		stats = nopStats{}
	}
	probeTimeout := time.Duration(cfg.Server.ProbeTimeoutMS) * time.Millisecond
	return &Client{
		cfg:     cfg,
		handler: handler,
		stats:   stats,
		logger:  logger,
		streamc: &http.Client{},
		reqc:    &http.Client{Timeout: probeTimeout},
	}
}

func (c *Client) statusURL(port int) string {
	return fmt.Sprintf("http://%s:%d/api/status", c.cfg.Server.Host, port)
}

func (c *Client) streamURL(port int) string {
	return fmt.Sprintf("http://%s:%d/status/stream", c.cfg.Server.Host, port)
}

// Run discovers an endpoint and serves the stream; when a stream ends it
// waits out the cooldown and restarts discovery from scratch (the
// assistant may have moved ports). If streaming is unavailable it drops
// to polling for the rest of the process lifetime.
func (c *Client) Run(ctx context.Context) {
	cooldown := time.Duration(c.cfg.Server.StreamCooldownSec) * time.Second
	for ctx.Err() == nil {
		port := c.discover(ctx)
		streamed := c.stream(ctx, port)
		if ctx.Err() != nil {
			return
		}
		if !streamed {
			c.logger.Info("stream endpoint unavailable, falling back to polling")
			c.poll(ctx, port)
			return
		}
		c.logger.Infof("stream ended, reconnecting in %s", cooldown)
		select {
		case <-ctx.Done():
			return
		case <-time.After(cooldown):
		}
		c.stats.IncReconnects()
	}
}

// discover probes the candidate ports in order and returns the first that
// answers; with no answer it falls back to the env/build default.
func (c *Client) discover(ctx context.Context) int {
	for _, port := range c.cfg.Server.Ports {
		if c.probe(ctx, port) {
			c.logger.Infof("assistant found on port %d", port)
			return port
		}
	}
	port := c.cfg.DefaultPort()
	c.logger.Warnf("no assistant answered a probe, assuming port %d", port)
	return port
}

func (c *Client) probe(ctx context.Context, port int) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL(port), nil)
	if err != nil {
		return false
	}
	resp, err := c.reqc.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// stream opens the SSE endpoint and decodes records until the connection
// ends. Returns false when the endpoint refused or errored on connect, so
// the caller can fall back to polling.
func (c *Client) stream(ctx context.Context, port int) bool {
	url := c.streamURL(port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warnf("stream request: %v", err)
		return false
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.streamc.Do(req)
	if err != nil {
		c.logger.Warnf("stream connect %s: %v", url, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnf("stream endpoint returned %s", resp.Status)
		return false
	}

	c.logger.Infof("connected to status stream on port %d", port)
	c.setMode(port, true)
	dec := sse.New() // fresh buffer per connection
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, payload := range dec.Feed(buf[:n]) {
				c.deliver([]byte(payload))
			}
		}
		if err != nil {
			if ctx.Err() == nil && err != io.EOF {
				c.logger.Warnf("stream read: %v", err)
			}
			return true
		}
	}
}

// poll fetches the status endpoint at a fixed interval. A request failure
// schedules a re-probe of all candidates on the next cycle so the client
// follows an assistant restarting on a different port.
func (c *Client) poll(ctx context.Context, port int) {
	c.setMode(port, false)
	interval := time.Duration(c.cfg.Server.PollIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reprobe := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if reprobe {
			reprobe = false
			for _, candidate := range c.cfg.Server.Ports {
				if c.probe(ctx, candidate) {
					if candidate != port {
						c.logger.Infof("switching to port %d", candidate)
						c.stats.IncReconnects()
					}
					port = candidate
					c.setMode(port, false)
					break
				}
			}
		}
		body, err := c.fetchStatus(ctx, port)
		if err != nil {
			c.logger.Warnf("poll port %d: %v", port, err)
			reprobe = true
			continue
		}
		if body != nil {
			c.deliver(body)
		}
	}
}

// fetchStatus returns the status body, nil on a non-success response
// (soft failure, no failover), or an error on a transport failure.
func (c *Client) fetchStatus(ctx context.Context, port int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL(port), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.reqc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnf("status endpoint returned %s", resp.Status)
		return nil, nil
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) deliver(data []byte) {
	rec, err := status.Parse(data)
	if err != nil {
		c.stats.IncDropped()
		c.logger.Warnf("dropping undecodable record: %v", err)
		return
	}
	c.stats.IncRecords()
	c.handler.HandleRecord(rec)
}

// ProbeAny reports whether any candidate answers; used by doctor.
func ProbeAny(cfg *config.Config) (int, bool) {
	c := New(cfg, nil, nil, logrus.New())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, port := range cfg.Server.Ports {
		if c.probe(ctx, port) {
			return port, true
		}
	}
	return 0, false
}

// FetchState performs a one-shot status fetch; used by the CLI.
func FetchState(cfg *config.Config, port int) (map[string]any, error) {
	reqc := &http.Client{Timeout: 3 * time.Second}
	resp, err := reqc.Get(fmt.Sprintf("http://%s:%d/api/status", cfg.Server.Host, port))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status endpoint returned %s", resp.Status)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
