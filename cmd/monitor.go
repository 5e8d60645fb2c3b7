package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/monitoring"
	"github.com/sells-group/enrich-cli/internal/store"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check recent run failure rates and search quota",
	Long: "Collects metrics for runs inside monitoring.lookback_window_hours, evaluates the " +
		"alert thresholds and posts any alerts to monitoring.webhook_url when set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("lookback") {
			cfg.Monitor.LookbackWindowHours, _ = cmd.Flags().GetInt("lookback")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, alerts := newChecker(st).Check(ctx)
		if snap == nil {
			return eris.New("monitor: metrics collection failed, see logs")
		}
		if alerts == nil {
			alerts = []monitoring.Alert{}
		}
		return writeOutput(os.Stdout, outputFormat, struct {
			Metrics *monitoring.MetricsSnapshot `json:"metrics"`
			Alerts  []monitoring.Alert          `json:"alerts"`
		}{snap, alerts})
	},
}

func newChecker(st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(
		monitoring.NewCollector(st),
		monitoring.NewAlerter(cfg.Monitor),
		cfg.Monitor,
	)
}

func init() {
	monitorCmd.Flags().Int("lookback", 0, "lookback window in hours (default: monitoring.lookback_window_hours)")
	rootCmd.AddCommand(monitorCmd)
}
