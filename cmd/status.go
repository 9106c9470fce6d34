package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wconnect/internal/conn"
	"wconnect/internal/store"
	"wconnect/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection status",
	Long: `Show the persisted session state and, when the bridge is
reachable, the provider-side account it currently reports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}

		var state conn.State
		if raw, err := st.Get(store.KeyConnectionState); err == nil {
			if err := json.Unmarshal([]byte(raw), &state); err != nil {
				state = conn.State{Status: conn.StatusDisconnected}
			}
		} else {
			state = conn.State{Status: conn.StatusDisconnected}
		}

		fmt.Println(ui.StyleHeader.Render("Session"))
		fmt.Printf("  %-12s %s\n", "status", ui.StatusBadge(string(state.Status)))
		if state.WalletID != "" {
			fmt.Printf("  %-12s %s\n", "wallet", ui.ChainName(state.WalletID))
		}
		if state.Address != "" {
			fmt.Printf("  %-12s %s\n", "address", ui.Addr(state.Address))
		}
		if state.ChainID != 0 {
			fmt.Printf("  %-12s %s\n", "chain", ui.Val(fmt.Sprintf("%d", state.ChainID)))
		}
		if !state.ConnectedAt.IsZero() {
			fmt.Printf("  %-12s %s\n", "connected",
				ui.Meta(fmt.Sprintf("%s (%s ago)", state.ConnectedAt.Format(time.RFC3339),
					time.Since(state.ConnectedAt).Round(time.Second))))
		}
		if state.Err != "" {
			fmt.Printf("  %-12s %s\n", "error", ui.Err(state.Err))
		}

		// Provider side, best effort: the bridge may simply be down.
		bridge, err := dialBridge(ctx)
		if err != nil {
			fmt.Println(ui.Meta("bridge unreachable — provider state unknown"))
			return nil
		}
		defer bridge.Close()

		acct, err := bridge.Account(ctx)
		switch {
		case err != nil:
			fmt.Println(ui.Meta("provider account query failed"))
		case acct == nil:
			fmt.Println(ui.Meta("provider reports no active session"))
		default:
			fmt.Printf("  %-12s %s %s\n", "provider",
				ui.Addr(ui.TruncateAddr(acct.Address)),
				ui.Meta(fmt.Sprintf("(chain %d)", acct.ChainID)))
		}
		return nil
	},
}
