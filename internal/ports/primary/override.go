package primary

import (
	"context"
	"time"
)

// OverrideService defines the primary port for manual phase overrides.
type OverrideService interface {
	// Override jumps the project's effective phase to req.ToPhase.
	Override(ctx context.Context, req OverrideRequest) (*PhaseOverride, error)

	// Revert deactivates an override and restores its fromPhase.
	Revert(ctx context.Context, req RevertRequest) (*PhaseOverride, error)

	// GetActiveOverride returns the project's active override or nil.
	GetActiveOverride(ctx context.Context, projectID string) (*PhaseOverride, error)

	// ListOverrides lists the project's overrides, newest first.
	ListOverrides(ctx context.Context, projectID string) ([]*PhaseOverride, error)

	// ListSuppressedAlerts lists alerts currently suppressed by an override.
	ListSuppressedAlerts(ctx context.Context, projectID string) ([]*Alert, error)
}

// OverrideRequest contains parameters for a phase override.
type OverrideRequest struct {
	ProjectID string
	ToPhase   string // Phase ID or type tag (e.g. COMPLETION)
	Reason    string
	ActorID   string // Defaults to the actor in context
}

// RevertRequest contains parameters for reverting an override.
type RevertRequest struct {
	ProjectID  string
	OverrideID string
	ActorID    string // Defaults to the actor in context
}

// PhaseOverride represents an override at the port boundary.
type PhaseOverride struct {
	ID                string
	ProjectID         string
	TrackerID         string
	FromPhaseID       string
	FromPhaseType     string
	ToPhaseID         string
	ToPhaseType       string
	SuppressAlertsFor []string
	SuppressedAlerts  int // Alerts flagged when the override was applied
	Reason            string
	CreatedBy         string
	IsActive          bool
	CreatedAt         time.Time
	RevertedAt        *time.Time
	RevertedBy        string
}
