package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteTable renders the rows as a console table.
func WriteTable(w io.Writer, r *Report) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Km", "Slots", "Next RDV", "Address", "URL"})

	for _, row := range r.Rows {
		slots := strconv.Itoa(row.Slots)
		if row.Verified {
			slots += " ✓"
		}
		if row.Error != "" {
			slots += " !"
		}
		tw.AppendRow(table.Row{
			strconv.FormatFloat(row.DistanceKM, 'f', 2, 64),
			slots,
			formatNext(row.NextAppointment),
			row.Address,
			row.URL,
		})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d centers", len(r.Rows))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 4, WidthMax: 48},
	})

	tw.Render()
	return nil
}

func formatNext(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123Z)
}
