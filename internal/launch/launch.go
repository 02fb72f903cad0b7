// Package launch spawns the external settings window on request.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"gajaoverlay/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Launcher executes the configured settings command with cooldown
// handling, so a burst of open_settings actions opens one window.
type Launcher struct {
	cfg     *config.Config
	logger  *logrus.Logger
	mu      sync.Mutex
	lastRun time.Time
}

// NewLauncher returns a Launcher over cfg.
func NewLauncher(cfg *config.Config, logger *logrus.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger}
}

// ShouldRun returns whether cooldown allows a new launch.
func (l *Launcher) ShouldRun() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.Settings.CooldownSec <= 0 {
		return true
	}
	return time.Since(l.lastRun).Seconds() >= l.cfg.Settings.CooldownSec
}

// OpenSettings runs the configured command. The command string may carry
// its own arguments (split shell-style); configured args are appended.
func (l *Launcher) OpenSettings(ctx context.Context) error {
	l.mu.Lock()
	l.lastRun = time.Now()
	l.mu.Unlock()

	cmdStr := l.cfg.Settings.Command
	if cmdStr == "" {
		return fmt.Errorf("no settings.command configured")
	}
	parts, err := shlex.Split(os.ExpandEnv(cmdStr))
	if err != nil {
		return fmt.Errorf("parse settings.command: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("empty settings.command")
	}
	args := append(parts[1:], l.cfg.Settings.Args...)

	runCtx := ctx
	var cancel context.CancelFunc
	if l.cfg.Settings.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*l.cfg.Settings.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, parts[0], args...)
	cmd.Env = os.Environ()
	for k, v := range l.cfg.Settings.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("GAJA_OVERLAY_CONFIG=%s", l.cfg.Paths.ConfigPath))

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		l.logger.Infof("settings command output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("settings command failed: %w", err)
	}
	return nil
}
