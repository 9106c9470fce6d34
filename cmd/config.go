package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wconnect/internal/chain"
	"wconnect/internal/provider"
	"wconnect/internal/store"
	"wconnect/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.StyleHeader.Render("Settings"))
		fmt.Printf("  %-20s %s\n", "bridge_url", ui.Val(settings.BridgeURL))
		fmt.Printf("  %-20s %s\n", "log_level", ui.Val(settings.LogLevel))
		fmt.Printf("  %-20s %s\n", "data_dir", ui.Val(settings.DataDir))
		fmt.Printf("  %-20s %s\n", "max_retries", ui.Val(strconv.Itoa(settings.MaxRetries)))
		fmt.Printf("  %-20s %s\n", "connect_timeout", ui.Val(settings.ConnectTimeout.String()))
		fmt.Printf("  %-20s %s\n", "max_connection_age", ui.Val(settings.MaxConnectionAge.String()))

		fmt.Println(ui.StyleHeader.Render("Health"))
		fmt.Printf("  %-20s %s\n", "interval", ui.Val(settings.Health.Interval.String()))
		fmt.Printf("  %-20s %s\n", "probe_timeout", ui.Val(settings.Health.ProbeTimeout.String()))
		fmt.Printf("  %-20s %s\n", "check_timeout", ui.Val(settings.Health.CheckTimeout.String()))
		fmt.Printf("  %-20s %s\n", "safety_timeout", ui.Val(settings.Health.SafetyTimeout.String()))
		fmt.Printf("  %-20s %s\n", "reconnect_delay", ui.Val(settings.Health.ReconnectDelay.String()))
		fmt.Printf("  %-20s %s\n", "max_latency", ui.Val(settings.Health.MaxLatency.String()))
		fmt.Printf("  %-20s %s\n", "max_reconnects", ui.Val(strconv.Itoa(settings.Health.MaxReconnects)))

		st, err := openStore()
		if err != nil {
			return err
		}
		prefs := store.LoadPreferences(st)
		fmt.Println(ui.StyleHeader.Render("Preferences"))
		fmt.Printf("  %-20s %s\n", "auto_reconnect", ui.Val(strconv.FormatBool(prefs.AutoReconnect)))
		if prefs.PreferredChain != 0 {
			name := strconv.FormatInt(prefs.PreferredChain, 10)
			if n, err := chain.NewRegistry().ByID(prefs.PreferredChain); err == nil {
				name = n.DisplayName
			}
			fmt.Printf("  %-20s %s\n", "preferred_chain", ui.ChainName(name))
		}
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the bridge auth token",
	Long: `Read a bearer token from the terminal and store it in the system
keyring. The token is attached to every bridge request as an
Authorization header.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Bridge token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if len(raw) == 0 {
			return fmt.Errorf("empty token")
		}
		if err := provider.StoreBridgeToken(string(raw)); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		fmt.Println(ui.Success("Bridge token stored"))
		return nil
	},
}

var configSetAutoReconnectCmd = &cobra.Command{
	Use:   "set-auto-reconnect <true|false>",
	Short: "Enable or disable automatic reconnection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", args[0])
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		prefs := store.LoadPreferences(st)
		prefs.AutoReconnect = enabled
		if err := store.SavePreferences(st, prefs); err != nil {
			return fmt.Errorf("saving preferences: %w", err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("auto-reconnect %s",
			map[bool]string{true: "enabled", false: "disabled"}[enabled])))
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network <chain>",
	Short: "Set the preferred network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := resolveChainID(args[0])
		if err != nil {
			return err
		}
		n, err := chain.NewRegistry().ByID(chainID)
		if err != nil {
			return fmt.Errorf("chain %d is not supported — run `wconnect network list`", chainID)
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		prefs := store.LoadPreferences(st)
		prefs.PreferredChain = chainID
		if err := store.SavePreferences(st, prefs); err != nil {
			return fmt.Errorf("saving preferences: %w", err)
		}
		fmt.Println(ui.Success("Preferred network set to " + n.DisplayName))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetTokenCmd, configSetAutoReconnectCmd, configSetNetworkCmd)
}
