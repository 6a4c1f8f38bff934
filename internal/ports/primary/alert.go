package primary

import (
	"context"
	"time"
)

// AlertService defines the primary port for the alert lifecycle.
type AlertService interface {
	// EnsureAlertForCurrentItem creates the ACTIVE alert for the tracker's
	// current line item unless one exists. created reports whether a new
	// alert was written. Returns nil when the workflow is complete.
	EnsureAlertForCurrentItem(ctx context.Context, trackerID string) (alert *Alert, created bool, err error)

	// RetireAlert marks an alert COMPLETED. Retiring a retired alert is a no-op.
	RetireAlert(ctx context.Context, alertID, reason string) error

	// GetAlert retrieves an alert by ID.
	GetAlert(ctx context.Context, alertID string) (*Alert, error)

	// ListAlerts lists alerts with optional filters.
	ListAlerts(ctx context.Context, filters AlertFilters) ([]*Alert, error)

	// ListOverdueAlerts lists ACTIVE, unsuppressed, past-due alerts.
	// An empty projectID lists across all projects.
	ListOverdueAlerts(ctx context.Context, projectID string) ([]*Alert, error)
}

// Alert represents an alert at the port boundary. Display names are
// resolved by following the stored IDs.
type Alert struct {
	ID                     string
	ProjectID              string
	TrackerID              string
	Kind                   string
	PhaseID                string
	PhaseName              string
	SectionID              string
	SectionName            string
	LineItemID             string
	LineItemName           string
	Title                  string
	Status                 string
	Priority               string
	PreviousPriority       string
	AssignedTo             string
	SuppressedByOverrideID string
	OriginalAlertID        string
	Metadata               map[string]string
	DueDate                time.Time
	EscalatedAt            *time.Time
	CompletedAt            *time.Time
	CreatedAt              time.Time
	Overdue                bool // ACTIVE, unsuppressed and past due
}

// AlertFilters contains filter options for listing alerts.
type AlertFilters struct {
	ProjectID  string
	TrackerID  string
	Status     string
	Kind       string
	Priority   string
	AssignedTo string
}
