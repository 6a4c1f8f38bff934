package realtime

import (
	"context"
	"errors"

	"github.com/example/sitetrack/internal/ports/secondary"
)

// MultiEventPublisher fans an event out to every publisher. Each one is
// attempted; errors are joined.
type MultiEventPublisher []secondary.EventPublisher

func (m MultiEventPublisher) Publish(ctx context.Context, event secondary.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiAuditPublisher fans an audit event out to every publisher.
type MultiAuditPublisher []secondary.AuditPublisher

func (m MultiAuditPublisher) PublishAudit(ctx context.Context, event secondary.AuditEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishAudit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ secondary.EventPublisher = MultiEventPublisher(nil)
	_ secondary.AuditPublisher = MultiAuditPublisher(nil)
)
