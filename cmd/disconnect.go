package cmd

import (
	"github.com/spf13/cobra"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the current wallet session",
	Long: `Clear the local session and revoke the provider-side permissions.
Local state is always cleared, even when the bridge call fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		return renderOutcome(ctrl.Disconnect(ctx))
	},
}
