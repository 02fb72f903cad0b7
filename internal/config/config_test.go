package config

import (
	"os"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("GAJA_OVERLAY_LOG_LEVEL", "debug")
	t.Setenv("GAJA_OVERLAY_LOG_FORMAT", "json")
	t.Setenv("GAJA_OVERLAY_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("GAJA_OVERLAY_TRAY_ENABLED", "0")

	applyEnvOverrides(cfg)

	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Tray.Enabled {
		t.Fatalf("tray should be disabled via env")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.Settings.Command = "/bin/echo"
	cfg.Keywords.Wake = []string{"gaja"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Settings.Command != "/bin/echo" {
		t.Fatalf("expected settings command to persist")
	}
	if len(loaded.Keywords.Wake) != 1 || loaded.Keywords.Wake[0] != "gaja" {
		t.Fatalf("expected wake keywords to persist: %v", loaded.Keywords.Wake)
	}

	// cleanup to avoid residue
	_ = os.Remove(path)
}

func TestDefaultPortEnv(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}

	t.Setenv("GAJA_PORT", "6123")
	if got := cfg.DefaultPort(); got != 6123 {
		t.Fatalf("GAJA_PORT override failed: %d", got)
	}

	t.Setenv("GAJA_PORT", "not-a-port")
	if got := cfg.DefaultPort(); got != buildModePort {
		t.Fatalf("bad GAJA_PORT should fall back to build default: %d", got)
	}
}

func TestDefaultsProbeOrder(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if len(cfg.Server.Ports) != 2 || cfg.Server.Ports[0] != 5000 || cfg.Server.Ports[1] != 5001 {
		t.Fatalf("unexpected default ports: %v", cfg.Server.Ports)
	}
	if cfg.Server.PollIntervalMS != 500 {
		t.Fatalf("unexpected poll interval: %d", cfg.Server.PollIntervalMS)
	}
	if cfg.Overlay.IdleTimeoutSec != 30 {
		t.Fatalf("unexpected idle timeout: %d", cfg.Overlay.IdleTimeoutSec)
	}
}
