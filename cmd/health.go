package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"wconnect/internal/chain"
	"wconnect/internal/health"
	"wconnect/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Inspect connection health",
}

var healthCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one health check",
	Long: `Run the three health probes (latency, wallet responsiveness, network
responsiveness) once and print the classification.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		if res := ctrl.RestoreSession(ctx); !res.OK {
			fmt.Println(ui.Warn(res.Message))
			return nil
		}

		snap := ctrl.CheckHealth(ctx)
		renderSnapshot(snap)
		return nil
	},
}

var healthWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch connection health live",
	Long: `Run health checks on an interval and render them in a live
dashboard. Auto-reconnect stays active while watching, so a degrading
connection recovers on its own. Press r to check immediately, q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl, bridge, err := buildController(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		if res := ctrl.RestoreSession(ctx); !res.OK {
			fmt.Println(ui.Warn(res.Message))
			return nil
		}

		chains := chain.NewRegistry()
		model := ui.HealthModel{
			Interval: settings.Health.Interval,
			Fetch: func() ui.HealthView {
				snap := ctrl.CheckHealth(ctx)
				st := ctrl.Snapshot()
				view := ui.HealthView{
					Status:    string(snap.Status),
					Latency:   snap.Latency,
					Uptime:    snap.ConnectionAge,
					Issues:    snap.Issues,
					CheckedAt: snap.CheckedAt,
					Wallet:    st.WalletID,
					Address:   st.Address,
				}
				if n, err := chains.ByID(st.ChainID); err == nil {
					view.Chain = n.DisplayName
				}
				return view
			},
		}

		_, err = tea.NewProgram(model).Run()
		return err
	},
}

func renderSnapshot(snap health.Snapshot) {
	fmt.Println(ui.StyleHeader.Render("Health"))
	fmt.Printf("  %-10s %s\n", "status", ui.StatusBadge(string(snap.Status)))
	fmt.Printf("  %-10s %s\n", "latency", ui.Val(fmt.Sprintf("%dms", snap.Latency.Milliseconds())))
	fmt.Printf("  %-10s %s\n", "uptime", ui.Meta(snap.ConnectionAge.Round(time.Second).String()))
	if snap.ErrorCount > 0 {
		fmt.Printf("  %-10s %s\n", "errors", ui.Err(fmt.Sprintf("%d", snap.ErrorCount)))
	}
	for _, issue := range snap.Issues {
		fmt.Println("  " + ui.Warn(issue))
	}
}

func init() {
	healthCmd.AddCommand(healthCheckCmd, healthWatchCmd)
}
