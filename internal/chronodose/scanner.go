// Package chronodose verifies short-notice appointment availability on the
// live booking backend: it resolves a center's identifiers, probes the
// calendar and confirms each candidate slot with a claim/release pass.
package chronodose

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chronodose-cli/internal/resilience"
	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// ScannerConfig controls one center scan.
type ScannerConfig struct {
	// LookaheadDays shifts the probed start date from today.
	LookaheadDays int
	// Window keeps only slots starting within this duration of now.
	Window time.Duration
	// MaxConcurrent caps simultaneously scanned centers in ScanAll.
	MaxConcurrent int
}

// Result is the outcome of scanning one center. Count is the number of
// verified-free slots; it is zero whenever Err is set.
type Result struct {
	URL        string
	Slug       string
	Name       string
	Candidates int
	Count      int
	Err        error
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithPredicate replaces the motive predicate (default FirstDosePfizer).
func WithPredicate(p MotivePredicate) ScannerOption {
	return func(s *Scanner) {
		s.predicate = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) {
		s.now = now
	}
}

// WithCircuitBreaker skips scans while the breaker is open. Failures that
// point at the backend itself (metadata fetch, probe) count toward tripping.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ScannerOption {
	return func(s *Scanner) {
		s.breaker = cb
	}
}

// Scanner composes resolution, probing and verification for single centers
// and fans out across many.
type Scanner struct {
	client    doctolib.Client
	prober    *Prober
	verifier  *Verifier
	cfg       ScannerConfig
	predicate MotivePredicate
	now       func() time.Time
	breaker   *resilience.CircuitBreaker
}

// NewScanner creates a Scanner.
func NewScanner(client doctolib.Client, prober *Prober, verifier *Verifier, cfg ScannerConfig, opts ...ScannerOption) *Scanner {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.LookaheadDays < 0 {
		cfg.LookaheadDays = 0
	}
	s := &Scanner{
		client:    client,
		prober:    prober,
		verifier:  verifier,
		cfg:       cfg,
		predicate: FirstDosePfizer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsBackendFailure reports whether err indicates the live backend itself is
// unhealthy, as opposed to a problem with one center's data.
func IsBackendFailure(err error) bool {
	return errors.Is(err, ErrMetadataFetch) || errors.Is(err, ErrProbe)
}

// ParseBookingURL extracts the center slug (last path segment) and the
// practice id from the pid query parameter ("practice-123" yields "123").
func ParseBookingURL(raw string) (slug, practiceID string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", newScanError(ErrMalformedURL, raw, err)
	}
	if u.Host == "" {
		return "", "", newScanError(ErrMalformedURL, raw, errors.New("missing host"))
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug = segments[len(segments)-1]
	if slug == "" {
		return "", "", newScanError(ErrMalformedURL, raw, errors.New("missing center slug"))
	}

	pid := u.Query().Get("pid")
	if _, after, found := strings.Cut(pid, "-"); found {
		practiceID = after
	} else {
		practiceID = pid
	}
	if practiceID == "" {
		return "", "", newScanError(ErrMalformedURL, raw, errors.New("missing pid practice id"))
	}
	return slug, practiceID, nil
}

// Scan verifies one center. It never fails: every error degrades the result
// to a zero count and is reported on Result.Err.
func (s *Scanner) Scan(ctx context.Context, bookingURL string) Result {
	res := Result{URL: bookingURL}
	log := zap.L().With(zap.String("center", bookingURL))

	var err error
	if s.breaker != nil {
		var scanErr error
		err = s.breaker.Execute(ctx, func(ctx context.Context) error {
			scanErr = s.scan(ctx, &res, log)
			if IsBackendFailure(scanErr) {
				return scanErr
			}
			return nil
		})
		if err == nil {
			err = scanErr
		}
	} else {
		err = s.scan(ctx, &res, log)
	}

	if err != nil {
		var se *ScanError
		if errors.As(err, &se) && se.Center == "" {
			se.Center = res.URL
		}
		res.Count = 0
		res.Err = err
		log.Warn("center scan degraded to zero", zap.Error(err))
		return res
	}

	log.Info("center scanned",
		zap.String("name", res.Name),
		zap.Int("candidates", res.Candidates),
		zap.Int("free", res.Count),
	)
	return res
}

func (s *Scanner) scan(ctx context.Context, res *Result, log *zap.Logger) error {
	slug, practiceID, err := ParseBookingURL(res.URL)
	if err != nil {
		return err
	}
	res.Slug = slug
	log.Debug("parsed booking url", zap.String("slug", slug), zap.String("practice_id", practiceID))

	meta, err := s.client.Booking(ctx, slug)
	if err != nil {
		return newScanError(ErrMetadataFetch, res.URL, err)
	}
	res.Name = meta.Data.Name()

	ids, err := Resolve(meta, practiceID, s.predicate)
	if err != nil {
		return newScanError(ErrMalformedMetadata, res.URL, err)
	}
	if ids.Empty() {
		log.Debug("no eligible motive at this practice")
		return nil
	}

	start := s.now().AddDate(0, 0, s.cfg.LookaheadDays)
	slots, err := s.prober.Probe(ctx, ids, start)
	if err != nil {
		return err
	}

	candidates := s.withinWindow(slots)
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		return nil
	}

	outcomes, err := s.verifier.Verify(ctx, ids, candidates)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o == Free {
			res.Count++
		}
	}
	return nil
}

// withinWindow keeps the slots that start no later than now + Window.
// Unparseable timestamps are dropped.
func (s *Scanner) withinWindow(slots []Slot) []Slot {
	deadline := s.now().Add(s.cfg.Window)
	var out []Slot
	for _, slot := range slots {
		t, err := slot.Time()
		if err != nil {
			zap.L().Debug("dropping slot with unparseable timestamp", zap.String("slot", string(slot)))
			continue
		}
		if t.After(deadline) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// ScanAll scans every URL with at most MaxConcurrent scans in flight. A
// failed scan never cancels its siblings. Results are index-aligned with urls.
func (s *Scanner) ScanAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.Scan(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
