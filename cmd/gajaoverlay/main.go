package main

import (
	"fmt"
	"os"

	"gajaoverlay/internal/control"
	"gajaoverlay/internal/daemon"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "gajaoverlay",
		Short: "Gaja overlay — status mirror daemon for the Gaja assistant",
		Long: `Gaja overlay tracks a running Gaja voice assistant over HTTP (SSE stream with
polling fallback) and drives a click-through overlay window from its status:
visible while the assistant listens, speaks or has something to say, hidden
after 30s of silence, interactive only while listening.

Key commands:
  start|stop|restart        Daemon lifecycle
  status [--json]           Uptime, assistant port, overlay state
  show|hide|toggle          Force overlay visibility
  get-state [--json]        Current overlay state
  update-status '<json>'    Inject a status record (renderer testing)
  doctor                    Check config, assistant endpoint, portaudio
  devices                   List audio devices (build tag: portaudio)
  service install|uninstall|status   launchd helper (macOS)
  health|tail-log|reload    Liveness, log tail, config reload

Notable flags/env:
  --metrics-addr <addr>     Enable /metrics (Prometheus text)
  --no-tray                 Disable the tray icon
  Env overrides: GAJA_PORT, GAJA_OVERLAY_LOG_LEVEL/LOG_FORMAT,
                 GAJA_OVERLAY_METRICS_ADDR, GAJA_OVERLAY_TRAY_ENABLED`,
		Example: `  gajaoverlay start --metrics-addr 127.0.0.1:9321
  gajaoverlay status --json
  gajaoverlay toggle
  gajaoverlay update-status '{"status":"listening","text":"Słucham..."}'
  gajaoverlay service install --env GAJA_PORT=5001
  gajaoverlay health`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("Gaja overlay v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/gajaoverlay/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewStatusCmd(cfgPath))
	root.AddCommand(control.NewShowCmd(cfgPath))
	root.AddCommand(control.NewHideCmd(cfgPath))
	root.AddCommand(control.NewToggleCmd(cfgPath))
	root.AddCommand(control.NewGetStateCmd(cfgPath))
	root.AddCommand(control.NewUpdateStatusCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewDevicesCmd())
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewServiceCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewReloadCmd(cfgPath))

	// Hidden internal serve command used by start.
	root.AddCommand(daemon.NewServeCmd(cfgPath))

	applyColorHelp(root)

	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sGaja overlay%s — assistant status mirror daemon %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sFollows the assistant's status feed and drives the overlay window.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  gajaoverlay [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  start|stop|restart          daemon lifecycle")
		writeln("  status [--json]             uptime, assistant port, overlay state")
		writeln("  show|hide|toggle            force overlay visibility")
		writeln("  get-state [--json]          current overlay state")
		writeln("  update-status '<json>'      inject a status record")
		writeln("  doctor                      check config/assistant/portaudio")
		writeln("  devices                     list audio devices (build tag: portaudio)")
		writeln("  service install|uninstall|status manage launchd plist (macOS)")
		writeln("  health                      control-socket liveness ping")
		writeln("  tail-log                    show last log lines")
		writeln("  reload                      reload config in the running daemon")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus)")
		writeln("  --no-tray               disable the tray icon")
		writeln("  -c, --config <path>     config file (default ~/.config/gajaoverlay/config.toml)")
		writeln("  Env: GAJA_PORT=5001, GAJA_OVERLAY_METRICS_ADDR=host:port,")
		writeln("       GAJA_OVERLAY_LOG_LEVEL=debug, GAJA_OVERLAY_LOG_FORMAT=json,")
		writeln("       GAJA_OVERLAY_TRAY_ENABLED=0")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  gajaoverlay start --metrics-addr 127.0.0.1:9321")
		writeln("  gajaoverlay status --json")
		writeln("  gajaoverlay toggle")
		writeln("  gajaoverlay update-status '{\"status\":\"listening\"}'")
		writeln("  gajaoverlay service install --env GAJA_PORT=5001")
		writeln("  gajaoverlay health")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
