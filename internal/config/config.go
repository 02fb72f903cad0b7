package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultPollIntervalMS   = 500
	defaultProbeTimeoutMS   = 750
	defaultCooldownSec      = 5
	defaultIdleTimeoutSec   = 30
	defaultIdleCheckMS      = 1000
	defaultStateDirLinux    = ".local/state/gajaoverlay"
	defaultConfigDir        = ".config/gajaoverlay"
	defaultSettingsTimeout  = 10.0
	defaultSettingsCooldown = 1.0
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Server struct {
		Host              string `toml:"host"`
		Ports             []int  `toml:"ports"` // probed in order
		PollIntervalMS    int    `toml:"poll_interval_ms"`
		ProbeTimeoutMS    int    `toml:"probe_timeout_ms"`
		StreamCooldownSec int    `toml:"stream_cooldown_sec"`
	} `toml:"server"`

	Overlay struct {
		IdleTimeoutSec   int      `toml:"idle_timeout_sec"`
		IdleCheckMS      int      `toml:"idle_check_ms"`
		PlaceholderTexts []string `toml:"placeholder_texts"`
	} `toml:"overlay"`

	// Keyword tables used when a record carries only a free-text status
	// label. The lists grew between assistant releases; they belong in
	// config, not code.
	Keywords struct {
		Listening []string `toml:"listening"`
		Speaking  []string `toml:"speaking"`
		Wake      []string `toml:"wake"`
		Idle      []string `toml:"idle"`
	} `toml:"keywords"`

	Settings struct {
		Command     string            `toml:"command"`
		Args        []string          `toml:"args"`
		CooldownSec float64           `toml:"cooldown_sec"`
		TimeoutSec  float64           `toml:"timeout_sec"`
		Env         map[string]string `toml:"env"`
	} `toml:"settings"`

	Tray struct {
		Enabled bool `toml:"enabled"`
	} `toml:"tray"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir        string `toml:"state_dir"`
		LogPath         string `toml:"log_path"`
		SocketPath      string `toml:"socket_path"`
		EventSocketPath string `toml:"event_socket_path"`
		PidPath         string `toml:"pid_path"`
		ConfigPath      string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/gajaoverlay for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "gajaoverlay")
	}

	cfg := &Config{}

	cfg.Server.Host = "localhost"
	cfg.Server.Ports = []int{5000, 5001}
	cfg.Server.PollIntervalMS = defaultPollIntervalMS
	cfg.Server.ProbeTimeoutMS = defaultProbeTimeoutMS
	cfg.Server.StreamCooldownSec = defaultCooldownSec

	cfg.Overlay.IdleTimeoutSec = defaultIdleTimeoutSec
	cfg.Overlay.IdleCheckMS = defaultIdleCheckMS
	cfg.Overlay.PlaceholderTexts = []string{
		"Listening...", "Offline", "Ready", "Connected", "Słucham...",
	}

	cfg.Keywords.Listening = []string{"listening", "recording", "słucham"}
	cfg.Keywords.Speaking = []string{"speaking", "processing", "thinking", "busy", "mówię", "przetwarzam"}
	cfg.Keywords.Wake = []string{"wakeword", "wake_word", "detected"}
	cfg.Keywords.Idle = []string{"idle", "offline", "error", "ready"}

	cfg.Settings.Command = ""
	cfg.Settings.Args = []string{}
	cfg.Settings.CooldownSec = defaultSettingsCooldown
	cfg.Settings.TimeoutSec = defaultSettingsTimeout
	cfg.Settings.Env = map[string]string{}

	cfg.Tray.Enabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "gajaoverlay.log")
	cfg.Paths.SocketPath = filepath.Join(stateDir, "gajaoverlay.sock")
	cfg.Paths.EventSocketPath = filepath.Join(stateDir, "gajaoverlay-events.sock")
	cfg.Paths.PidPath = filepath.Join(stateDir, "gajaoverlay.pid")

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9321"

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// ensure dir
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPort returns the port used when no candidate answers a probe.
// GAJA_PORT wins; otherwise the build-mode default (5001 in debug builds,
// 5000 in release), mirroring the assistant's own port selection.
func (c *Config) DefaultPort() int {
	if v := os.Getenv("GAJA_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			return p
		}
	}
	return buildModePort
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GAJA_OVERLAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GAJA_OVERLAY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GAJA_OVERLAY_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("GAJA_OVERLAY_TRAY_ENABLED"); v != "" {
		cfg.Tray.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
}
