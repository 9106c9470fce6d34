package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wconnect/internal/conn"
	"wconnect/internal/ui"
)

var connectCmd = &cobra.Command{
	Use:   "connect <walletId>",
	Short: "Connect to a wallet",
	Long: `Connect to a wallet through the bridge. The wallet will show an
approval popup; dismissing it counts one attempt against the retry budget
(3 attempts per wallet, reset on success or via "wconnect retry reset").

Examples:
  wconnect connect metaMask
  wconnect connect coinbaseWallet --bridge ws://127.0.0.1:8546`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		sp := ui.NewSpinner(fmt.Sprintf("Waiting for %s approval…", args[0]))
		sp.Start()
		res := ctrl.Connect(ctx, args[0])
		sp.Stop()

		return renderOutcome(res)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the last session",
	Long: `Attempt a single reconnect using the persisted session, if it is
younger than the configured maximum connection age. Never retries on
failure, so it cannot spam the wallet with popups.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		return renderOutcome(ctrl.RestoreSession(ctx))
	},
}

// renderOutcome prints a command result. Notifications for the interesting
// transitions were already emitted by the controller's sink; this fills in
// the outcomes that have no notification of their own.
func renderOutcome(res conn.Result) error {
	switch res.Code {
	case conn.CodeAlreadyConnected:
		fmt.Println(ui.Info(res.Message))
	case conn.CodeBusy, conn.CodeNoSession, conn.CodeExpired,
		conn.CodeNotConnected, conn.CodeUnknownWallet, conn.CodeDiscarded:
		fmt.Println(ui.Warn(res.Message))
	}
	if !res.OK && res.Code != conn.CodePending {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}
