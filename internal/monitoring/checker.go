package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/config"
)

// Checker runs the collector and alerter on a fixed interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.WatchConfig
	// onSnapshot, when set, receives every successful snapshot.
	onSnapshot func(*Snapshot)
}

// NewChecker creates a periodic checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.WatchConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// OnSnapshot registers fn to receive every successful snapshot.
func (c *Checker) OnSnapshot(fn func(*Snapshot)) {
	c.onSnapshot = fn
}

// Run checks once immediately, then on every tick. It blocks until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting watch", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			log.Info("watch stopped")
			return
		}
		c.check(ctx, log)

		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("monitoring: finder pass failed", zap.Error(err))
		}
		return
	}
	if c.onSnapshot != nil {
		c.onSnapshot(snap)
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered", zap.Int("slots", snap.Slots))
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: check complete",
		zap.String("run_id", snap.RunID),
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}
