// Package run hosts the overlay daemon: the transport client, the
// reconciler, the idle monitor, the renderer event socket and the
// control socket.
package run

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"gajaoverlay/internal/config"
	"gajaoverlay/internal/control"
	"gajaoverlay/internal/launch"
	"gajaoverlay/internal/overlay"
	"gajaoverlay/internal/state"
	"gajaoverlay/internal/status"
	"gajaoverlay/internal/transport"
	"gajaoverlay/internal/window"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Server wires the daemon together. One Server per process.
type Server struct {
	cfg    *config.Config
	logger *logrus.Logger

	store    *state.Store
	sink     *window.StreamSink
	rec      *overlay.Reconciler
	monitor  *overlay.IdleMonitor
	launcher *launch.Launcher
	client   *transport.Client

	startedAt time.Time
	metrics   metrics

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds a Server over cfg. Run starts it.
func New(cfg *config.Config, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     state.New(),
		sink:      window.NewStreamSink(logger),
		launcher:  launch.NewLauncher(cfg, logger),
		startedAt: time.Now(),
	}
	s.metrics.reset()

	counted := countingSink{Sink: s.sink, m: &s.metrics}
	s.rec = overlay.New(s.store, counted, overlay.KeywordsFromConfig(cfg), logger)
	s.rec.OpenSettings = s.OpenSettings
	s.rec.Quit = s.RequestShutdown
	s.monitor = overlay.NewIdleMonitor(s.store, counted,
		time.Duration(cfg.Overlay.IdleTimeoutSec)*time.Second, logger)
	s.client = transport.New(cfg, s.rec, &s.metrics, logger)
	return s
}

// Serve runs a daemon until interrupted. Convenience for the plain
// (trayless) path.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	return New(cfg, logger).Run(context.Background())
}

// Run starts all loops and blocks until ctx is done, a signal arrives,
// or RequestShutdown is called.
func (s *Server) Run(ctx context.Context) error {
	if err := config.MustStatePaths(s.cfg); err != nil {
		return err
	}
	// Write pid file.
	if err := os.WriteFile(s.cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(s.cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warnf("remove pid file: %v", err)
		}
	}()
	for _, sock := range []string{s.cfg.Paths.SocketPath, s.cfg.Paths.EventSocketPath} {
		if err := os.Remove(sock); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debugf("remove stale socket: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.controlLoop(ctx)
	go s.eventsLoop(ctx)
	go s.watchConfig(ctx)
	go s.monitor.Run(ctx, time.Duration(s.cfg.Overlay.IdleCheckMS)*time.Millisecond)
	go s.client.Run(ctx)

	if s.cfg.Metrics.Enabled {
		go s.metricsServe(ctx.Done(), s.cfg.Metrics.Addr, s.logger)
	}

	s.logger.Infof("overlay daemon started, control socket %s", s.cfg.Paths.SocketPath)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		s.logger.Infof("received signal %s, shutting down", sig)
		cancel()
	case <-ctx.Done():
	}
	return nil
}

// RequestShutdown stops the daemon. Safe from any goroutine; used by
// the quit action and the tray.
func (s *Server) RequestShutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OpenSettings launches the settings window, honoring the cooldown.
func (s *Server) OpenSettings() {
	if !s.launcher.ShouldRun() {
		s.logger.Debug("settings launch skipped (cooldown)")
		return
	}
	go func() {
		if err := s.launcher.OpenSettings(context.Background()); err != nil {
			s.logger.Warnf("open settings: %v", err)
		}
	}()
}

// ShowOverlay forces the overlay visible, as if a show_overlay record
// arrived.
func (s *Server) ShowOverlay() {
	s.rec.HandleRecord(status.Record{ShowOverlay: true})
}

// HideOverlay forces the overlay hidden.
func (s *Server) HideOverlay() {
	s.rec.HandleRecord(status.Record{HideOverlay: true})
}

// Snapshot returns the current overlay state.
func (s *Server) Snapshot() state.Overlay {
	return s.store.Snapshot()
}

func (s *Server) controlLoop(ctx context.Context) {
	ln, err := net.Listen("unix", s.cfg.Paths.SocketPath)
	if err != nil {
		s.logger.Errorf("control listen: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("control accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control connection close: %v", err)
		}
	}()
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var req control.Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		return
	}
	enc := json.NewEncoder(conn)
	switch req.Op {
	case "status":
		_ = enc.Encode(control.Status{
			Running:   true,
			UptimeSec: time.Since(s.startedAt).Seconds(),
			Port:      s.client.Port(),
			Streaming: s.client.Streaming(),
			State:     s.store.Snapshot(),
		})
	case "health":
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "ok"})
	case "get-state":
		_ = enc.Encode(s.store.Snapshot())
	case "show":
		s.ShowOverlay()
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "overlay shown"})
	case "hide":
		s.HideOverlay()
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "overlay hidden"})
	case "toggle-display":
		if s.store.Snapshot().Visible {
			s.HideOverlay()
			_ = enc.Encode(control.SimpleResponse{OK: true, Message: "overlay hidden"})
		} else {
			s.ShowOverlay()
			_ = enc.Encode(control.SimpleResponse{OK: true, Message: "overlay shown"})
		}
	case "update-status":
		rec, err := status.Parse(req.Record)
		if err != nil {
			_ = enc.Encode(control.SimpleResponse{OK: false, Message: fmt.Sprintf("bad record: %v", err)})
			return
		}
		s.rec.HandleRecord(rec)
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "applied"})
	case "reload":
		if err := s.reloadConfig(); err != nil {
			_ = enc.Encode(control.SimpleResponse{OK: false, Message: err.Error()})
			return
		}
		_ = enc.Encode(control.SimpleResponse{OK: true, Message: "config reloaded"})
	default:
		_ = enc.Encode(control.SimpleResponse{OK: false, Message: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

// eventsLoop accepts renderer connections on the event socket. The
// newest connection wins; the previous one is replaced.
func (s *Server) eventsLoop(ctx context.Context) {
	ln, err := net.Listen("unix", s.cfg.Paths.EventSocketPath)
	if err != nil {
		s.logger.Errorf("events listen: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("events accept: %v", err)
			continue
		}
		go s.serveRenderer(ctx, conn)
	}
}

// serveRenderer attaches conn as the renderer, replays the current
// state so a late-connecting renderer syncs, and holds the connection
// until it closes.
func (s *Server) serveRenderer(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	s.sink.Attach(conn)
	defer s.sink.Detach(conn)

	snap := s.store.Snapshot()
	s.sink.EmitStatus(window.Update{
		Status:           snap.Status,
		Text:             snap.Text,
		IsListening:      snap.IsListening,
		IsSpeaking:       snap.IsSpeaking,
		WakeWordDetected: snap.WakeWordDetected,
	})
	s.sink.SetInteractive(snap.Interactive)
	if snap.Visible {
		s.sink.Show()
	} else {
		s.sink.Hide()
	}

	// Renderers never send; a read returning means the peer went away.
	buf := make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			if ctx.Err() == nil {
				s.logger.Debugf("renderer connection closed: %v", err)
			}
			return
		}
	}
}

// watchConfig reloads keyword tables and timeouts when the config file
// changes on disk. Endpoint and socket settings need a restart.
func (s *Server) watchConfig(ctx context.Context) {
	path := s.cfg.Paths.ConfigPath
	if path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warnf("config watcher: %v", err)
		return
	}
	defer func() { _ = watcher.Close() }()
	// Watch the directory; editors replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Warnf("config watcher: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			time.Sleep(100 * time.Millisecond) // let the write settle
			if err := s.reloadConfig(); err != nil {
				s.logger.Warnf("config reload: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warnf("config watcher: %v", err)
		}
	}
}

// reloadConfig re-reads the config file and applies the hot-swappable
// parts: keyword tables, placeholders, idle timeout, log level.
func (s *Server) reloadConfig() error {
	fresh, err := config.Load(s.cfg.Paths.ConfigPath)
	if err != nil {
		return err
	}
	s.rec.SetKeywords(overlay.KeywordsFromConfig(fresh))
	s.monitor.SetTimeout(time.Duration(fresh.Overlay.IdleTimeoutSec) * time.Second)
	if lvl, err := logrus.ParseLevel(fresh.Logging.Level); err == nil {
		s.logger.SetLevel(lvl)
	}
	s.logger.Info("config reloaded")
	return nil
}
