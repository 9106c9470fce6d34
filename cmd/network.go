package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"wconnect/internal/chain"
	"wconnect/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 12},
			{Title: "Display", Width: 20},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 8},
			{Title: "Testnet", Width: 7},
		})
		for _, n := range reg.All() {
			testnet := ""
			if n.Testnet {
				testnet = "yes"
			}
			t.AddRow(ui.Row{n.Name, n.DisplayName, strconv.FormatInt(n.ChainID, 10),
				n.Currency.Symbol, testnet})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d networks total", len(reg.All()))))
		return nil
	},
}

var networkSwitchCmd = &cobra.Command{
	Use:   "switch <chain>",
	Short: "Switch the active network",
	Long: `Switch the provider's active chain. Chains the provider does not
recognize are registered from the catalog descriptor first, then the
switch is retried once.

Examples:
  wconnect network switch bsc
  wconnect network switch 137`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		chainID, err := resolveChainID(args[0])
		if err != nil {
			return err
		}

		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		if !ctrl.ValidateNetwork(chainID) {
			return fmt.Errorf("chain %d is not supported — run `wconnect network list`", chainID)
		}
		return renderOutcome(ctrl.SwitchNetwork(ctx, chainID))
	},
}

var networkValidateCmd = &cobra.Command{
	Use:   "validate <chain>",
	Short: "Check whether a chain is supported",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := resolveChainID(args[0])
		if err != nil {
			return err
		}
		reg := chain.NewRegistry()
		if n, err := reg.ByID(chainID); err == nil {
			fmt.Println(ui.Success(fmt.Sprintf("%s (chain %d) is supported", n.DisplayName, chainID)))
			return nil
		}
		fmt.Println(ui.Err(fmt.Sprintf("chain %d is not supported", chainID)))
		return nil
	},
}

var networkStatusCmd = &cobra.Command{
	Use:   "status <chain>",
	Short: "Show how a chain relates to the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		chainID, err := resolveChainID(args[0])
		if err != nil {
			return err
		}

		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		st := ctrl.NetworkStatus(ctx, chainID)
		if !st.Supported {
			fmt.Println(ui.Err(fmt.Sprintf("chain %d is not supported", chainID)))
			return nil
		}
		if st.Active {
			fmt.Printf("%s  %s\n", ui.ChainName(st.Name), ui.Success("active"))
		} else {
			fmt.Printf("%s  %s\n", ui.ChainName(st.Name), ui.Meta("supported, not active"))
		}
		return nil
	},
}

// resolveChainID accepts a numeric chain id or a catalog slug.
func resolveChainID(arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	n, err := chain.NewRegistry().ByName(arg)
	if err != nil {
		return 0, fmt.Errorf("unknown chain %q — run `wconnect network list`", arg)
	}
	return n.ChainID, nil
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkSwitchCmd, networkValidateCmd, networkStatusCmd)
}
