package chronodose

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// probedDays is the number of leading day buckets the probe keeps: today and
// tomorrow.
const probedDays = 2

// LimitFunc yields the page-size parameter of an availability query.
type LimitFunc func() int

// FixedLimit always returns n.
func FixedLimit(n int) LimitFunc {
	return func() int { return n }
}

// RandomLimit returns a uniform value in [lo, hi].
func RandomLimit(lo, hi int) LimitFunc {
	if hi < lo {
		lo, hi = hi, lo
	}
	return func() int {
		return lo + rand.IntN(hi-lo+1)
	}
}

// Prober queries the live availability calendar.
type Prober struct {
	client doctolib.Client
	limit  LimitFunc
}

// NewProber creates a Prober. A nil limit falls back to FixedLimit(4).
func NewProber(client doctolib.Client, limit LimitFunc) *Prober {
	if limit == nil {
		limit = FixedLimit(4)
	}
	return &Prober{client: client, limit: limit}
}

// Probe issues one availability query starting at startDate and returns the
// candidate slots of the first two days. Entries without a timestamp are
// skipped.
func (p *Prober) Probe(ctx context.Context, ids IdentifierSet, startDate time.Time) ([]Slot, error) {
	q := doctolib.AvailabilityQuery{
		StartDate:        startDate.Format(time.DateOnly),
		VisitMotiveIDs:   ids.VisitMotiveParam(),
		AgendaIDs:        ids.AgendaParam(),
		PracticeIDs:      ids.PracticeParam(),
		InsuranceSector:  "public",
		DestroyTemporary: true,
		Limit:            p.limit(),
	}

	resp, err := p.client.Availabilities(ctx, q)
	if err != nil {
		return nil, newScanError(ErrProbe, "", err)
	}

	days := resp.Availabilities
	if len(days) > probedDays {
		days = days[:probedDays]
	}

	var slots []Slot
	for _, day := range days {
		for _, entry := range day.Slots {
			if entry.StartDate == "" {
				continue
			}
			slots = append(slots, Slot(entry.StartDate))
		}
	}

	zap.L().Debug("chronodose: probed availabilities",
		zap.String("start_date", q.StartDate),
		zap.Int("days", len(resp.Availabilities)),
		zap.Int("slots", len(slots)),
	)
	return slots, nil
}
