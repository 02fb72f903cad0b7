// Package doctor runs environment checks for the overlay daemon.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gajaoverlay/internal/config"
	"gajaoverlay/internal/transport"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkStateDir(cfg),
		checkAssistant(cfg),
	}
	if cfg.Settings.Command != "" {
		results = append(results, checkSettingsExecutable(cfg.Settings.Command))
	}
	results = append(results, checkPortAudioPkgConfig())
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkStateDir(cfg *config.Config) Result {
	label := "state dir"
	if err := config.MustStatePaths(cfg); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: cfg.Paths.StateDir}
}

// checkAssistant probes the candidate ports for a running assistant.
func checkAssistant(cfg *config.Config) Result {
	label := "assistant"
	port, ok := transport.ProbeAny(cfg)
	if !ok {
		return Result{Name: label, Pass: false,
			Detail: fmt.Sprintf("no assistant answered on %s ports %v", cfg.Server.Host, cfg.Server.Ports)}
	}
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("answering on port %d", port)}
}

func checkSettingsExecutable(cmd string) Result {
	label := "settings.command"
	path := os.ExpandEnv(cmd)
	if i := strings.IndexByte(path, ' '); i > 0 {
		path = path[:i]
	}
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set settings.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found (brew install pkg-config)"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
