package control

import (
	"github.com/spf13/cobra"
)

// NewHealthCmd pings the control socket.
func NewHealthCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Control-socket liveness ping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simpleOp(cfgPath, "health")
		},
	}
}
