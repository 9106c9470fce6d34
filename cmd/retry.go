package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wconnect/internal/store"
	"wconnect/internal/ui"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry the last connection",
	Long: `Re-attempt the last connection. Subject to the same bounded retry
budget as "connect"; once the budget is exhausted the wallet is blocked
until "wconnect retry reset".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		return renderOutcome(ctrl.RetryConnection(ctx))
	},
}

var retryResetCmd = &cobra.Command{
	Use:   "reset [walletId]",
	Short: "Reset the retry budget",
	Long: `Reset the attempt counter for a wallet (default: the last
connected wallet), re-enabling connect attempts after the cap was hit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		walletID := ""
		if len(args) == 1 {
			walletID = args[0]
		} else {
			st, err := openStore()
			if err != nil {
				return err
			}
			if v, err := st.Get(store.KeyLastWalletID); err == nil {
				walletID = v
			}
		}
		if walletID == "" {
			return fmt.Errorf("no wallet to reset — pass a wallet id")
		}

		ctrl.Retry().Reset(walletID)
		fmt.Println(ui.Success(fmt.Sprintf("Retry budget reset for %s", walletID)))
		return nil
	},
}

func init() {
	retryCmd.AddCommand(retryResetCmd)
}
