package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"wconnect/internal/chain"
	"wconnect/internal/config"
	"wconnect/internal/conn"
	"wconnect/internal/health"
	"wconnect/internal/logger"
	"wconnect/internal/notify"
	"wconnect/internal/provider"
	"wconnect/internal/store"
	"wconnect/internal/wallet"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X wconnect/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir    string
	bridgeURL string
	verbose   bool

	settings *config.Settings
	log      *logger.Logger
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "wconnect",
	Short: "Wallet connection manager",
	Long: `wconnect — manage, monitor and recover a connection to a wallet
provider across EVM networks.

Talks to a local or remote wallet bridge over JSON-RPC. Connections are
gated by a bounded retry policy, watched by a periodic health monitor and
recovered automatically when they degrade.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		settings, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if bridgeURL != "" {
			settings.BridgeURL = bridgeURL
		}
		level := settings.LogLevel
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// WCONNECT_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv("WCONNECT_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.wconnect)")
	rootCmd.PersistentFlags().StringVar(&bridgeURL, "bridge", "", "wallet bridge URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		connectCmd,
		restoreCmd,
		disconnectCmd,
		statusCmd,
		retryCmd,
		healthCmd,
		networkCmd,
		walletCmd,
		configCmd,
	)
}

// openStore opens the persisted-state store under the data dir.
func openStore() (*store.File, error) {
	return store.NewFile(settings.DataDir)
}

// dialBridge connects to the wallet bridge, attaching the stored auth token
// when one exists.
func dialBridge(ctx context.Context) (*provider.Bridge, error) {
	token, err := provider.BridgeToken()
	if err != nil {
		log.Warn("could not read bridge token, dialing unauthenticated")
		token = ""
	}
	bridge, err := provider.Dial(ctx, settings.BridgeURL, token, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to wallet bridge at %s: %w", settings.BridgeURL, err)
	}
	return bridge, nil
}

// buildController assembles the connection controller and its collaborators.
func buildController(ctx context.Context) (*conn.Controller, *provider.Bridge, error) {
	bridge, err := dialBridge(ctx)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore()
	if err != nil {
		bridge.Close()
		return nil, nil, err
	}
	prefs := store.LoadPreferences(st)

	ctrl := conn.New(conn.Deps{
		Provider: bridge,
		Store:    st,
		Wallets:  wallet.NewRegistry(installProbe(ctx, bridge)),
		Chains:   chain.NewRegistry(),
		Notify:   notify.NewConsole(),
		Log:      log,
	}, conn.Options{
		ConnectTimeout:   settings.ConnectTimeout,
		MaxConnectionAge: settings.MaxConnectionAge,
		MaxRetries:       settings.MaxRetries,
		Health: health.Options{
			Interval:       settings.Health.Interval,
			ProbeTimeout:   settings.Health.ProbeTimeout,
			CheckTimeout:   settings.Health.CheckTimeout,
			SafetyTimeout:  settings.Health.SafetyTimeout,
			ReconnectDelay: settings.Health.ReconnectDelay,
			MaxLatency:     settings.Health.MaxLatency,
			MaxReconnects:  settings.Health.MaxReconnects,
			AutoReconnect:  prefs.AutoReconnect,
		},
	})
	return ctrl, bridge, nil
}

// installProbe answers wallet installed-checks from the bridge's connector
// list, fetched lazily once. When the bridge cannot answer, wallets are
// assumed available and the connect attempt decides.
func installProbe(ctx context.Context, p provider.Provider) wallet.InstallProbe {
	var once sync.Once
	var ready map[string]bool
	return func(id string) bool {
		once.Do(func() {
			connectors, err := p.Connectors(ctx)
			if err != nil {
				return
			}
			ready = make(map[string]bool, len(connectors))
			for _, c := range connectors {
				ready[c.ID] = c.Ready
			}
		})
		if ready == nil {
			return true
		}
		return ready[id]
	}
}
