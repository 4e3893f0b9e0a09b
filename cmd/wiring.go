package main

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/chronodose-cli/internal/chronodose"
	"github.com/sells-group/chronodose-cli/internal/config"
	"github.com/sells-group/chronodose-cli/internal/feed"
	"github.com/sells-group/chronodose-cli/internal/fetcher"
	"github.com/sells-group/chronodose-cli/internal/finder"
	"github.com/sells-group/chronodose-cli/internal/geo"
	"github.com/sells-group/chronodose-cli/internal/resilience"
	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func newBookingClient(c *config.Config) doctolib.Client {
	limit := rate.Limit(c.Booking.RequestsPerSec)
	if limit <= 0 {
		limit = rate.Inf
	}
	return doctolib.NewClient(
		doctolib.WithBaseURL(c.Booking.BaseURL),
		doctolib.WithUserAgent(c.Booking.UserAgent),
		doctolib.WithTimeout(secs(c.Booking.TimeoutSecs)),
		doctolib.WithRateLimiter(rate.NewLimiter(limit, max(c.Booking.Burst, 1))),
	)
}

// newScanner builds the live verification stack. The returned breaker is
// shared by every scan of the process.
func newScanner(c *config.Config, client doctolib.Client) (*chronodose.Scanner, *resilience.CircuitBreaker) {
	breaker := resilience.NewCircuitBreaker(
		resilience.FromCircuitConfig("booking", c.Booking.BreakerThreshold, c.Booking.BreakerResetSecs))

	prober := chronodose.NewProber(client, chronodose.RandomLimit(c.Scan.LimitMin, c.Scan.LimitMax))
	verifier := chronodose.NewVerifier(client, chronodose.VerifierConfig{
		SettleDelay:    c.Scan.SettleDelay,
		DecoyOffset:    c.Scan.DecoyOffset,
		ReleaseTimeout: c.Scan.ReleaseTimeout,
	})
	scanner := chronodose.NewScanner(client, prober, verifier,
		chronodose.ScannerConfig{
			LookaheadDays: c.Scan.LookaheadDays,
			Window:        c.Scan.Window,
			MaxConcurrent: c.Scan.MaxConcurrentCenters,
		},
		chronodose.WithPredicate(chronodose.FirstDose(c.Scan.Vaccine)),
		chronodose.WithCircuitBreaker(breaker),
	)
	return scanner, breaker
}

func newFeedFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Feed.UserAgent,
		Timeout:    secs(c.Feed.TimeoutSecs),
		MaxRetries: c.Feed.MaxRetries,
	})
}

func newFinder(c *config.Config, f fetcher.Fetcher, scanner finder.CenterScanner) *finder.Finder {
	return finder.New(feed.NewSource(f, c.Feed.BaseURL, c.Scan.MaxConcurrentCenters), scanner)
}

// liveHost is the registrable host of the booking backend, so that feed
// URLs on any of its subdomains are verified live.
func liveHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func finderOptions(c *config.Config) finder.Options {
	return finder.Options{
		Departments: c.Feed.Departments,
		Vaccine:     c.Scan.Vaccine,
		Filter: geo.Filter{
			Origin:   geo.NewPoint(c.Location.Latitude, c.Location.Longitude),
			RadiusKM: c.Location.RadiusKM,
		},
		LiveHost: liveHost(c.Booking.BaseURL),
	}
}
