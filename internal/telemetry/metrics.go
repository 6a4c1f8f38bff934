package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the engine's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	advancements  metric.Int64Counter
	alertsCreated metric.Int64Counter
	escalations   metric.Int64Counter
	skippedTicks  metric.Int64Counter
	cacheDrift    metric.Int64Counter
	purged        metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.advancements, err = meter.Int64Counter("sitetrack.tracker.advancements",
		metric.WithDescription("Line items completed")); err != nil {
		return nil, err
	}
	if m.alertsCreated, err = meter.Int64Counter("sitetrack.alerts.created",
		metric.WithDescription("Alerts created, by kind")); err != nil {
		return nil, err
	}
	if m.escalations, err = meter.Int64Counter("sitetrack.alerts.escalated",
		metric.WithDescription("Overdue alerts promoted to HIGH")); err != nil {
		return nil, err
	}
	if m.skippedTicks, err = meter.Int64Counter("sitetrack.scheduler.skipped_ticks",
		metric.WithDescription("Escalation ticks skipped because a run was in progress")); err != nil {
		return nil, err
	}
	if m.cacheDrift, err = meter.Int64Counter("sitetrack.progress.cache_drift",
		metric.WithDescription("Trackers whose cached line item total disagreed with the template")); err != nil {
		return nil, err
	}
	if m.purged, err = meter.Int64Counter("sitetrack.alerts.purged",
		metric.WithDescription("Retired alerts deleted after retention")); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram("sitetrack.scheduler.run.duration",
		metric.WithDescription("Escalation run duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return m, nil
}

// Global creates instruments on the global meter provider.
func Global() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationScope))
}

// Noop returns instruments that record nothing.
func Noop() *Metrics {
	m, _ := NewMetrics(metricnoop.NewMeterProvider().Meter(instrumentationScope))
	return m
}

func (m *Metrics) TrackerAdvanced(ctx context.Context, tradeType string) {
	if m == nil {
		return
	}
	m.advancements.Add(ctx, 1, metric.WithAttributes(attribute.String("trade", tradeType)))
}

func (m *Metrics) AlertCreated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.alertsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) AlertEscalated(ctx context.Context) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1)
}

func (m *Metrics) TickSkipped(ctx context.Context) {
	if m == nil {
		return
	}
	m.skippedTicks.Add(ctx, 1)
}

func (m *Metrics) CacheDrift(ctx context.Context, tradeType string) {
	if m == nil {
		return
	}
	m.cacheDrift.Add(ctx, 1, metric.WithAttributes(attribute.String("trade", tradeType)))
}

func (m *Metrics) AlertsPurged(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.purged.Add(ctx, int64(n))
}

func (m *Metrics) RunFinished(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, float64(d.Milliseconds()))
}
