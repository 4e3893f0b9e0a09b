// Package report renders ranked centers as a console table, JSON, YAML or an
// XLSX workbook.
package report

import (
	"cmp"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Row is one ranked center.
type Row struct {
	Name            string    `json:"name" yaml:"name"`
	DistanceKM      float64   `json:"distance_km" yaml:"distance_km"`
	Slots           int       `json:"slots" yaml:"slots"`
	Candidates      int       `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	NextAppointment time.Time `json:"next_appointment,omitzero" yaml:"next_appointment,omitempty"`
	Address         string    `json:"address" yaml:"address"`
	URL             string    `json:"url" yaml:"url"`
	// Verified is set when Slots was confirmed on the live backend rather
	// than copied from the feed.
	Verified bool   `json:"verified" yaml:"verified"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the output of one finder run.
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Origin      string    `json:"origin,omitempty" yaml:"origin,omitempty"`
	RadiusKM    float64   `json:"radius_km,omitempty" yaml:"radius_km,omitempty"`
	Rows        []Row     `json:"rows" yaml:"rows"`
}

// Sort orders rows by distance, then by most slots, then by URL.
func Sort(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.DistanceKM, b.DistanceKM),
			cmp.Compare(b.Slots, a.Slots),
			strings.Compare(a.URL, b.URL),
		)
	})
}

// Formats lists the accepted output formats.
var Formats = []string{"table", "json", "yaml", "xlsx"}

// Write renders r to w in format.
func Write(w io.Writer, format string, r *Report) error {
	switch strings.ToLower(format) {
	case "", "table":
		return WriteTable(w, r)
	case "json":
		return WriteJSON(w, r)
	case "yaml", "yml":
		return WriteYAML(w, r)
	case "xlsx":
		return WriteXLSX(w, r)
	default:
		return eris.Errorf("report: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}
