package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chronodose-cli/internal/config"
	"github.com/sells-group/chronodose-cli/internal/report"
)

func watchConfig() config.WatchConfig {
	return config.WatchConfig{MinSlots: 1, DegradedRateThreshold: 0.5}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(watchConfig())

	snap := &Snapshot{
		Live:         4,
		Degraded:     1,
		DegradedRate: 0.25,
		BackendState: "closed",
		Rows:         []report.Row{{URL: "https://x/a", Slots: 0, Verified: true}},
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_Chronodoses(t *testing.T) {
	a := NewAlerter(watchConfig())

	snap := &Snapshot{Rows: []report.Row{
		{Name: "Centre Louvre", URL: "https://x/louvre", Slots: 3, Verified: true, DistanceKM: 0.41},
		{Name: "Centre Sud", URL: "https://x/sud", Slots: 0, Verified: true},
	}}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertChronodoses, alerts[0].Type)
	assert.Equal(t, "info", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "3 chronodose(s) at Centre Louvre")
	assert.Contains(t, alerts[0].Message, "0.41 km")
	assert.Equal(t, "verified", alerts[0].Details["source"])
}

func TestAlerter_Evaluate_AnnouncesChangesOnly(t *testing.T) {
	a := NewAlerter(watchConfig())
	row := report.Row{Name: "Centre", URL: "https://x/c", Slots: 2}

	require.Len(t, a.Evaluate(&Snapshot{Rows: []report.Row{row}}), 1)
	assert.Empty(t, a.Evaluate(&Snapshot{Rows: []report.Row{row}}), "same count is not announced twice")

	row.Slots = 5
	require.Len(t, a.Evaluate(&Snapshot{Rows: []report.Row{row}}), 1, "a new count is announced")

	assert.Empty(t, a.Evaluate(&Snapshot{}), "center gone")
	require.Len(t, a.Evaluate(&Snapshot{Rows: []report.Row{row}}), 1, "a returning center is announced again")
}

func TestAlerter_Evaluate_MinSlots(t *testing.T) {
	cfg := watchConfig()
	cfg.MinSlots = 3
	a := NewAlerter(cfg)

	snap := &Snapshot{Rows: []report.Row{
		{URL: "https://x/a", Slots: 2},
		{URL: "https://x/b", Slots: 3},
	}}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, "https://x/b", alerts[0].Details["url"])
}

func TestAlerter_Evaluate_BackendDegraded(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"rate breached", Snapshot{Live: 4, Degraded: 3, DegradedRate: 0.75, BackendState: "closed"}, true},
		{"too few scans", Snapshot{Live: 2, Degraded: 2, DegradedRate: 1, BackendState: "closed"}, false},
		{"breaker open", Snapshot{Live: 1, Degraded: 1, DegradedRate: 1, BackendState: "open"}, true},
		{"rate at threshold", Snapshot{Live: 4, Degraded: 2, DegradedRate: 0.5, BackendState: "half-open"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := NewAlerter(watchConfig()).Evaluate(&tt.snap)
			if !tt.want {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, AlertBackendDegraded, alerts[0].Type)
			assert.Equal(t, "high", alerts[0].Severity)
		})
	}
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert)) {
			return
		}
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := watchConfig()
	cfg.WebhookURL = ts.URL
	a := NewAlerter(cfg)

	alerts := []Alert{
		{Type: AlertChronodoses, Severity: "info", Message: "test alert 1"},
		{Type: AlertBackendDegraded, Severity: "high", Message: "test alert 2"},
	}

	assert.Equal(t, 2, a.SendAlerts(context.Background(), alerts))
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(watchConfig())

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertChronodoses, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	cfg := watchConfig()
	cfg.WebhookURL = "http://example.com"

	assert.Equal(t, 0, NewAlerter(cfg).SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := watchConfig()
	cfg.WebhookURL = ts.URL

	sent := NewAlerter(cfg).SendAlerts(context.Background(), []Alert{{Type: AlertChronodoses, Message: "test"}})
	assert.Equal(t, 0, sent)
}
