// Package finder ranks nearby vaccination centers by confirmed short-notice
// availability: it reads the department feed, keeps centers within range,
// confirms their chronodoses on the live backend and returns sorted rows.
package finder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/chronodose"
	"github.com/sells-group/chronodose-cli/internal/feed"
	"github.com/sells-group/chronodose-cli/internal/geo"
	"github.com/sells-group/chronodose-cli/internal/report"
)

// DepartmentSource provides department snapshots.
type DepartmentSource interface {
	FetchDepartments(ctx context.Context, codes []int) ([]*feed.Department, error)
}

// CenterScanner confirms chronodoses on the live backend.
type CenterScanner interface {
	ScanAll(ctx context.Context, urls []string) []chronodose.Result
}

// Options select which centers a run considers.
type Options struct {
	Departments []int
	// Vaccine is matched against each center's vaccine types.
	Vaccine string
	Filter  geo.Filter
	// LiveHost is the booking host whose centers are verified live.
	LiveHost string
}

// Finder runs the feed, filter and live-scan pipeline.
type Finder struct {
	source  DepartmentSource
	scanner CenterScanner
	now     func() time.Time
}

// New creates a Finder.
func New(source DepartmentSource, scanner CenterScanner) *Finder {
	return &Finder{source: source, scanner: scanner, now: time.Now}
}

type candidate struct {
	center *feed.Center
	km     float64
	live   bool
}

// Run executes one pass. Only a feed outage or a cancelled context fails the
// run; individual center failures degrade that center to zero slots.
func (f *Finder) Run(ctx context.Context, opts Options) (*report.Report, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	start := f.now()

	depts, err := f.source.FetchDepartments(ctx, opts.Departments)
	if err != nil {
		return nil, eris.Wrap(err, "finder: fetch departments")
	}

	candidates := selectCandidates(depts, opts)
	var urls []string
	for _, c := range candidates {
		if c.live {
			urls = append(urls, c.center.URL)
		}
	}
	log.Info("finder: centers selected",
		zap.Int("departments", len(depts)),
		zap.Int("candidates", len(candidates)),
		zap.Int("live", len(urls)),
	)

	var results []chronodose.Result
	if len(urls) > 0 {
		results = f.scanner.ScanAll(ctx, urls)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "finder: run cancelled")
	}

	byURL := make(map[string]chronodose.Result, len(results))
	for _, r := range results {
		byURL[r.URL] = r
	}

	rows := make([]report.Row, 0, len(candidates))
	degraded := 0
	for _, c := range candidates {
		row := report.Row{
			Name:            c.center.Name,
			DistanceKM:      c.km,
			NextAppointment: c.center.NextAppointment.Time,
			Address:         c.center.Metadata.Address,
			URL:             c.center.URL,
		}
		if c.live {
			res := byURL[c.center.URL]
			row.Slots = res.Count
			row.Candidates = res.Candidates
			row.Verified = res.Err == nil
			if res.Err != nil {
				row.Error = res.Err.Error()
				degraded++
			}
		} else {
			row.Slots = c.center.ChronodoseCount()
		}
		rows = append(rows, row)
	}
	report.Sort(rows)

	log.Info("finder: run complete",
		zap.Int("rows", len(rows)),
		zap.Int("degraded", degraded),
		zap.Duration("elapsed", f.now().Sub(start)),
	)

	return &report.Report{
		RunID:       runID,
		GeneratedAt: start,
		Origin:      opts.Filter.Origin.String(),
		RadiusKM:    opts.Filter.RadiusKM,
		Rows:        rows,
	}, nil
}

// selectCandidates keeps available centers that advertise a chronodose for
// the wanted vaccine within range. A URL seen twice is kept once.
func selectCandidates(depts []*feed.Department, opts Options) []candidate {
	seen := make(map[string]struct{})
	var out []candidate
	for _, d := range depts {
		for i := range d.Available {
			c := &d.Available[i]
			if !c.HasChronodose() || !c.HasVaccine(opts.Vaccine) {
				continue
			}
			km, ok := opts.Filter.Score(c.Location.Point())
			if !ok {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, candidate{
				center: c,
				km:     km,
				live:   opts.LiveHost != "" && c.IsLiveVerifiable(opts.LiveHost),
			})
		}
	}
	return out
}
