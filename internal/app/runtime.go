package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/sitetrack/internal/ports/secondary"
	"github.com/example/sitetrack/internal/telemetry"
)

// Runtime carries the ambient collaborators shared by every service.
// Zero fields get working defaults from withDefaults.
type Runtime struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Events  secondary.EventPublisher
	Audit   secondary.AuditPublisher
	Now     func() time.Time
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Logger == nil {
		rt.Logger = slog.Default()
	}
	if rt.Metrics == nil {
		rt.Metrics = telemetry.Noop()
	}
	if rt.Now == nil {
		rt.Now = func() time.Time { return time.Now().UTC() }
	}
	return rt
}

// publish sends events collected during a committed transaction.
// Push delivery is best effort; failures are logged only.
func (rt Runtime) publish(ctx context.Context, events []secondary.Event) {
	if rt.Events == nil {
		return
	}
	for _, ev := range events {
		if err := rt.Events.Publish(ctx, ev); err != nil {
			rt.Logger.WarnContext(ctx, "event publish failed",
				"type", ev.Type, "project", ev.ProjectID, "error", err)
		}
	}
}

// audit sends an audit event after commit. Failures are logged only.
func (rt Runtime) audit(ctx context.Context, ev secondary.AuditEvent) {
	if rt.Audit == nil {
		return
	}
	if err := rt.Audit.PublishAudit(ctx, ev); err != nil {
		rt.Logger.ErrorContext(ctx, "audit publish failed",
			"type", ev.Type, "project", ev.ProjectID, "override", ev.OverrideID, "error", err)
	}
}
