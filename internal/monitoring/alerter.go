package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/config"
	"github.com/sells-group/chronodose-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertChronodoses     AlertType = "chronodoses_available"
	AlertBackendDegraded AlertType = "backend_degraded"
)

// minLiveForRate is the number of live scans below which the degraded rate
// is too noisy to alert on.
const minLiveForRate = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against the watch thresholds and delivers
// alerts to a webhook. It remembers, for the life of the process, which
// centers it already announced so a steady slot count is reported once.
type Alerter struct {
	cfg       config.WatchConfig
	client    *resty.Client
	announced map[string]int
}

// NewAlerter creates a new Alerter with the given watch config.
func NewAlerter(cfg config.WatchConfig) *Alerter {
	if cfg.MinSlots <= 0 {
		cfg.MinSlots = 1
	}
	return &Alerter{
		cfg:       cfg,
		client:    resty.New().SetTimeout(10 * time.Second),
		announced: make(map[string]int),
	}
}

// Evaluate checks the snapshot and returns any alerts. A center is announced
// again only when its slot count changes or after it dropped below MinSlots.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	seen := make(map[string]bool, len(snap.Rows))
	for _, r := range snap.Rows {
		if r.Slots < a.cfg.MinSlots {
			continue
		}
		seen[r.URL] = true
		if prev, ok := a.announced[r.URL]; ok && prev == r.Slots {
			continue
		}
		a.announced[r.URL] = r.Slots

		source := "feed"
		if r.Verified {
			source = "verified"
		}
		alerts = append(alerts, Alert{
			Type:     AlertChronodoses,
			Severity: "info",
			Message:  fmt.Sprintf("%d chronodose(s) at %s, %.2f km away", r.Slots, r.Name, r.DistanceKM),
			Details: map[string]any{
				"url":         r.URL,
				"slots":       r.Slots,
				"distance_km": r.DistanceKM,
				"source":      source,
			},
			Timestamp: now,
		})
	}
	for url := range a.announced {
		if !seen[url] {
			delete(a.announced, url)
		}
	}

	open := snap.BackendState == resilience.CircuitOpen.String()
	rateBreached := snap.Live >= minLiveForRate && snap.DegradedRate > a.cfg.DegradedRateThreshold
	if open || rateBreached {
		alerts = append(alerts, Alert{
			Type:     AlertBackendDegraded,
			Severity: "high",
			Message: fmt.Sprintf(
				"live verification degraded: %d of %d scans failed, breaker %s",
				snap.Degraded, snap.Live, snap.BackendState,
			),
			Details: map[string]any{
				"degraded_rate": snap.DegradedRate,
				"threshold":     a.cfg.DegradedRateThreshold,
				"backend_state": snap.BackendState,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL. Without a
// webhook the alerts are only logged. Returns the number of alerts
// successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(alerts) == 0 {
		return 0
	}
	if a.cfg.WebhookURL == "" {
		for _, alert := range alerts {
			zap.L().Info("monitoring: alert",
				zap.String("type", string(alert.Type)),
				zap.String("message", alert.Message),
			)
		}
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(a.cfg.WebhookURL)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	if resp.IsError() {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode())
	}
	return nil
}
