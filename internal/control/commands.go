package control

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"

	"gajaoverlay/internal/audio"
	"gajaoverlay/internal/config"
	"gajaoverlay/internal/doctor"
	"gajaoverlay/internal/state"

	"github.com/spf13/cobra"
)

func dial(cfg *config.Config) (net.Conn, error) {
	conn, err := net.Dial("unix", cfg.Paths.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon: %w", err)
	}
	return conn, nil
}

// simpleOp sends one op and prints the ack.
func simpleOp(cfgPath *string, op string) error {
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	conn, err := dial(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Request{Op: op}); err != nil {
		return err
	}
	var resp SimpleResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s failed: %s", op, resp.Message)
	}
	fmt.Println(resp.Message)
	return nil
}

// NewStatusCmd queries daemon status.
func NewStatusCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			conn, err := dial(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := json.NewEncoder(conn).Encode(Request{Op: "status"}); err != nil {
				return err
			}
			var st Status
			if err := json.NewDecoder(conn).Decode(&st); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
			}
			mode := "polling"
			if st.Streaming {
				mode = "streaming"
			}
			fmt.Printf("running: %v\nuptime: %.1fs\nassistant port: %d (%s)\n",
				st.Running, st.UptimeSec, st.Port, mode)
			printOverlay(st.State)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func printOverlay(o state.Overlay) {
	fmt.Printf("overlay: visible=%v interactive=%v pinned=%v\n", o.Visible, o.Interactive, o.Pinned)
	fmt.Printf("status: %s\n", o.Status)
	if o.Text != "" {
		fmt.Printf("text: %s\n", o.Text)
	}
	fmt.Printf("flags: listening=%v speaking=%v wake=%v\n", o.IsListening, o.IsSpeaking, o.WakeWordDetected)
}

// NewShowCmd forces the overlay visible.
func NewShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the overlay window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simpleOp(cfgPath, "show")
		},
	}
}

// NewHideCmd forces the overlay hidden.
func NewHideCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hide",
		Short: "Hide the overlay window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simpleOp(cfgPath, "hide")
		},
	}
}

// NewToggleCmd flips overlay visibility.
func NewToggleCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle overlay visibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simpleOp(cfgPath, "toggle-display")
		},
	}
}

// NewGetStateCmd prints the current overlay state.
func NewGetStateCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-state",
		Short: "Print the current overlay state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			conn, err := dial(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := json.NewEncoder(conn).Encode(Request{Op: "get-state"}); err != nil {
				return err
			}
			var o state.Overlay
			if err := json.NewDecoder(conn).Decode(&o); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(o)
			}
			printOverlay(o)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewUpdateStatusCmd injects a raw status record, as if the assistant
// had sent it. Useful for testing renderers.
func NewUpdateStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "update-status '<json record>'",
		Short: "Inject a status record into the running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[0])) {
				return fmt.Errorf("argument is not valid JSON")
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			conn, err := dial(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			req := Request{Op: "update-status", Record: json.RawMessage(args[0])}
			if err := json.NewEncoder(conn).Encode(req); err != nil {
				return err
			}
			var resp SimpleResponse
			if err := json.NewDecoder(conn).Decode(&resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("update-status failed: %s", resp.Message)
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tail-log",
		Short: "Show last 50 log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return tailFile(cfg.Paths.LogPath, 50)
		},
	}
}

func tailFile(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Println(l)
		}
	}
	return nil
}

// NewDevicesCmd lists audio devices on the host, for configuring the
// assistant itself.
func NewDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.ListDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("no devices found")
				return nil
			}
			for _, d := range devices {
				fmt.Printf("%-8s %s\n", d.Kind, d.Name)
			}
			return nil
		},
	}
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			exitCode := 0
			for _, r := range results {
				st := "ok"
				if !r.Pass {
					st = "fail"
					exitCode = 1
				}
				fmt.Printf("%-12s %-4s %s\n", r.Name, st, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewServiceCmd manages the launchd plist (macOS).
func NewServiceCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage launchd service (macOS)",
	}
	cmd.AddCommand(newServiceInstallCmd(cfgPath))
	cmd.AddCommand(newServiceUninstallCmd())
	cmd.AddCommand(newServiceStatusCmd())
	return cmd
}
