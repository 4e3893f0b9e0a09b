package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/chronodose-cli/internal/report"
)

var (
	outputFormat string
	outputPath   string
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format: table, json, yaml or xlsx")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write to this file instead of stdout")
}

// writeReport renders rep to --output, or to stdout.
func writeReport(cmd *cobra.Command, rep *report.Report) error {
	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	} else if outputFormat == "xlsx" {
		return eris.New("xlsx output needs --output")
	}
	return report.Write(w, outputFormat, rep)
}
