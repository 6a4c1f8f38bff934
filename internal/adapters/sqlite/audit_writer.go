package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/sitetrack/internal/ctxutil"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// AuditWriterAdapter implements secondary.AuditPublisher by appending to the
// local audit log.
type AuditWriterAdapter struct {
	auditRepo secondary.AuditRepository
}

// NewAuditWriterAdapter creates a new AuditWriterAdapter.
func NewAuditWriterAdapter(auditRepo secondary.AuditRepository) *AuditWriterAdapter {
	return &AuditWriterAdapter{auditRepo: auditRepo}
}

// PublishAudit writes the event as an audit log entry. A missing actor is
// taken from the context.
func (w *AuditWriterAdapter) PublishAudit(ctx context.Context, event secondary.AuditEvent) error {
	actorID := event.ActorID
	if actorID == "" {
		actorID = ctxutil.ActorFromContext(ctx)
	}

	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return w.auditRepo.Create(ctx, &secondary.AuditRecord{
		ID:          uuid.NewString(),
		ProjectID:   event.ProjectID,
		EventType:   event.Type,
		ActorID:     actorID,
		FromPhaseID: event.FromPhaseID,
		ToPhaseID:   event.ToPhaseID,
		OverrideID:  event.OverrideID,
		Details:     event.Details,
		CreatedAt:   createdAt,
	})
}

var _ secondary.AuditPublisher = (*AuditWriterAdapter)(nil)
