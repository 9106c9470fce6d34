package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wconnect/internal/ui"
	"wconnect/internal/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported wallets",
	Long: `List the wallet catalog. Installed state comes from the bridge's
connector list when the bridge is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var probe wallet.InstallProbe
		if bridge, err := dialBridge(ctx); err == nil {
			defer bridge.Close()
			probe = installProbe(ctx, bridge)
		}
		reg := wallet.NewRegistry(probe)

		t := ui.NewTable([]ui.Column{
			{Title: "ID", Width: 16},
			{Title: "Name", Width: 18},
			{Title: "Installed", Width: 9},
			{Title: "Install URL", Width: 40},
		})
		for _, d := range reg.All() {
			installed := "no"
			if d.Installed() {
				installed = "yes"
			}
			t.AddRow(ui.Row{d.ID, d.Name, installed, d.InstallURL})
		}
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	walletCmd.AddCommand(walletListCmd)
}
