package secondary

import (
	"context"
	"time"
)

// EventType names a real-time push event.
type EventType string

const (
	EventTrackerAdvanced EventType = "TrackerAdvanced"
	EventAlertCreated    EventType = "AlertCreated"
	EventAlertEscalated  EventType = "AlertEscalated"
	EventPhaseOverridden EventType = "PhaseOverridden"
)

// Event is a best-effort notification for connected clients.
type Event struct {
	Type      EventType         `json:"type"`
	ProjectID string            `json:"projectId"`
	TrackerID string            `json:"trackerId,omitempty"`
	AlertID   string            `json:"alertId,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// EventPublisher defines the secondary port for the real-time push channel.
// Delivery is fire-and-forget; callers log errors and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Audit event types.
const (
	AuditPhaseOverrideLogged   = "PhaseOverrideLogged"
	AuditPhaseOverrideReverted = "PhaseOverrideReverted"
)

// AuditEvent is a structured entry for the messaging/audit collaborator.
type AuditEvent struct {
	Type        string            `json:"type"`
	ProjectID   string            `json:"project"`
	FromPhaseID string            `json:"from"`
	ToPhaseID   string            `json:"to"`
	ActorID     string            `json:"actor"`
	OverrideID  string            `json:"overrideId,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// AuditPublisher defines the secondary port for the messaging/audit
// collaborator. Failures never fail the triggering operation.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, event AuditEvent) error
}
