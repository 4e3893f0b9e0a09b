package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sells-group/chronodose-cli/internal/report"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <booking-url>...",
	Short: "Confirm the chronodoses of specific centers on the live backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}

		scanner, _ := newScanner(cfg, newBookingClient(cfg))
		results := scanner.ScanAll(cmd.Context(), args)

		rep := &report.Report{RunID: uuid.NewString(), GeneratedAt: time.Now()}
		for _, res := range results {
			row := report.Row{
				Name:       res.Name,
				Slots:      res.Count,
				Candidates: res.Candidates,
				URL:        res.URL,
				Verified:   res.Err == nil,
			}
			if res.Err != nil {
				row.Error = res.Err.Error()
			}
			rep.Rows = append(rep.Rows, row)
		}
		return writeReport(cmd, rep)
	},
}

func init() {
	addOutputFlags(verifyCmd)
	rootCmd.AddCommand(verifyCmd)
}
