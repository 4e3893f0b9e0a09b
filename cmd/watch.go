package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/monitoring"
)

var (
	watchInterval int
	watchWebhook  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the scan on an interval and alert when chronodoses appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchInterval > 0 {
			cfg.Watch.IntervalSecs = watchInterval
		}
		if watchWebhook != "" {
			cfg.Watch.WebhookURL = watchWebhook
		}
		if err := cfg.Validate("watch"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scanner, breaker := newScanner(cfg, newBookingClient(cfg))
		collector := monitoring.NewCollector(newFinder(cfg, newFeedFetcher(cfg), scanner), finderOptions(cfg), breaker)
		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Watch), cfg.Watch)
		checker.OnSnapshot(func(s *monitoring.Snapshot) {
			zap.L().Info("watch pass complete",
				zap.String("run_id", s.RunID),
				zap.Int("centers", s.Centers),
				zap.Int("slots", s.Slots),
				zap.Int("degraded", s.Degraded),
				zap.String("backend", s.BackendState),
			)
		})

		checker.Run(ctx)
		return nil
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "seconds between passes (default from config)")
	watchCmd.Flags().StringVar(&watchWebhook, "webhook", "", "webhook URL receiving JSON alerts")
	rootCmd.AddCommand(watchCmd)
}
