// Package monitoring re-runs the finder on a schedule and alerts an operator
// when chronodoses appear or the live backend degrades.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/chronodose-cli/internal/finder"
	"github.com/sells-group/chronodose-cli/internal/report"
	"github.com/sells-group/chronodose-cli/internal/resilience"
)

// Snapshot is the outcome of one finder pass, reduced to what the alerter
// evaluates.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	CollectedAt time.Time `json:"collected_at"`

	Centers  int `json:"centers"`
	Slots    int `json:"slots"`
	Live     int `json:"live"`
	Degraded int `json:"degraded"`
	// DegradedRate is Degraded / Live, zero when nothing was scanned live.
	DegradedRate float64 `json:"degraded_rate"`
	BackendState string  `json:"backend_state,omitempty"`

	Rows []report.Row `json:"-"`
}

// Runner runs one finder pass.
type Runner interface {
	Run(ctx context.Context, opts finder.Options) (*report.Report, error)
}

// Collector runs the finder and summarises its report.
type Collector struct {
	runner  Runner
	opts    finder.Options
	breaker *resilience.CircuitBreaker
}

// NewCollector creates a collector. breaker may be nil.
func NewCollector(runner Runner, opts finder.Options, breaker *resilience.CircuitBreaker) *Collector {
	return &Collector{runner: runner, opts: opts, breaker: breaker}
}

// Collect runs one finder pass.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	rep, err := c.runner.Run(ctx, c.opts)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run finder")
	}

	snap := &Snapshot{
		RunID:       rep.RunID,
		CollectedAt: time.Now().UTC(),
		Centers:     len(rep.Rows),
		Rows:        rep.Rows,
	}
	for _, r := range rep.Rows {
		snap.Slots += r.Slots
		switch {
		case r.Error != "":
			snap.Live++
			snap.Degraded++
		case r.Verified:
			snap.Live++
		}
	}
	if snap.Live > 0 {
		snap.DegradedRate = float64(snap.Degraded) / float64(snap.Live)
	}
	if c.breaker != nil {
		snap.BackendState = c.breaker.State().String()
	}
	return snap, nil
}
