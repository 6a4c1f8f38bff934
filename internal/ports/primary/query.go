package primary

import (
	"context"
	"time"
)

// QueryService defines the read-only surface consumed by transport layers.
// None of these calls mutate state.
type QueryService interface {
	// GetProjectPosition returns the main tracker position and effective phase.
	GetProjectPosition(ctx context.Context, projectID string) (*ProjectPosition, error)

	// ListWorkflowsForProject lists every trade tracker with position and progress.
	ListWorkflowsForProject(ctx context.Context, projectID string) ([]*Workflow, error)

	// ListOverdueAlerts lists overdue alerts, optionally for one project.
	ListOverdueAlerts(ctx context.Context, projectID string) ([]*Alert, error)

	// ListSuppressedAlerts lists alerts suppressed by the project's overrides.
	ListSuppressedAlerts(ctx context.Context, projectID string) ([]*Alert, error)

	// ListAuditEntries lists the project's audit log, oldest first.
	ListAuditEntries(ctx context.Context, projectID string) ([]*AuditEntry, error)
}

// ProjectPosition combines the live main tracker position with the phase
// an active override displays.
type ProjectPosition struct {
	ProjectID          string
	Main               *Position
	EffectivePhaseID   string
	EffectivePhaseName string
	DisplayedPhaseID   string
	ActiveOverride     *PhaseOverride // May be nil
}

// AuditEntry represents an audit log entry at the port boundary.
type AuditEntry struct {
	ID          string
	ProjectID   string
	EventType   string
	ActorID     string
	FromPhaseID string
	ToPhaseID   string
	OverrideID  string
	Details     map[string]string
	CreatedAt   time.Time
}
