// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"time"
)

// Transactor runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn participate in that transaction. Nested calls
// reuse the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogRepository defines the secondary port for the read-only workflow catalog.
type CatalogRepository interface {
	// ListPhases returns every phase row, active or not.
	ListPhases(ctx context.Context) ([]*PhaseRecord, error)

	// ListSections returns every section row, active or not.
	ListSections(ctx context.Context) ([]*SectionRecord, error)

	// ListLineItems returns every line item row for a trade, active or not.
	ListLineItems(ctx context.Context, tradeType string) ([]*LineItemRecord, error)

	// ListTradeTypes returns trades with at least one active line item.
	ListTradeTypes(ctx context.Context) ([]string, error)

	// ListLabels returns id → display name for every phase, section and line item.
	ListLabels(ctx context.Context) (map[string]string, error)
}

// PhaseRecord represents a phase as stored in persistence.
type PhaseRecord struct {
	ID        string
	Position  int
	PhaseType string
	Name      string
	IsActive  bool
}

// SectionRecord represents a section as stored in persistence.
type SectionRecord struct {
	ID       string
	PhaseID  string
	Position int
	Name     string
	IsActive bool
}

// LineItemRecord represents a line item as stored in persistence.
type LineItemRecord struct {
	ID              string
	SectionID       string
	ParentID        string // Empty string means null
	Position        int
	Name            string
	TradeType       string
	ResponsibleRole string
	AlertDays       int
	IsActive        bool
}

// ProjectRepository defines the secondary port for project persistence.
type ProjectRepository interface {
	// Create persists a new project.
	Create(ctx context.Context, project *ProjectRecord) error

	// GetByID retrieves a project by its ID.
	GetByID(ctx context.Context, id string) (*ProjectRecord, error)

	// List retrieves all projects.
	List(ctx context.Context) ([]*ProjectRecord, error)

	// UpdateDisplayedPhase sets the phase shown for the project.
	UpdateDisplayedPhase(ctx context.Context, id, phaseID string) error

	// SetRole assigns a user to a responsible role on the project.
	SetRole(ctx context.Context, projectID, role, userID string) error

	// GetRoles returns the project's role → user assignments.
	GetRoles(ctx context.Context, projectID string) (map[string]string, error)

	// GetNextID returns the next available project ID.
	GetNextID(ctx context.Context) (string, error)
}

// ProjectRecord represents a project as stored in persistence.
type ProjectRecord struct {
	ID               string
	Name             string
	ManagerID        string
	DisplayedPhaseID string // Empty string means null
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TrackerRepository defines the secondary port for workflow tracker persistence.
type TrackerRepository interface {
	// Create persists a new tracker. Returns a conflict error if the project
	// already tracks the trade or already has a main tracker.
	Create(ctx context.Context, tracker *TrackerRecord) error

	// GetByID retrieves a tracker by its ID.
	GetByID(ctx context.Context, id string) (*TrackerRecord, error)

	// GetMain retrieves the project's main tracker.
	GetMain(ctx context.Context, projectID string) (*TrackerRecord, error)

	// ListByProject retrieves all trackers of a project, main first.
	ListByProject(ctx context.Context, projectID string) ([]*TrackerRecord, error)

	// UpdatePosition moves the tracker pointer if it still points at
	// expectedLineItemID. Returns a conflict error if it moved concurrently.
	UpdatePosition(ctx context.Context, id, expectedLineItemID string, pos PositionRecord) error

	// UpdateTotalLineItems rewrites the cached line item count.
	UpdateTotalLineItems(ctx context.Context, id string, total int) error

	// AddCompletedItem appends a completion. Returns a conflict error if the
	// item is already completed for the tracker.
	AddCompletedItem(ctx context.Context, item *CompletedItemRecord) error

	// HasCompletedItem checks whether a line item is completed for the tracker.
	HasCompletedItem(ctx context.Context, trackerID, lineItemID string) (bool, error)

	// ListCompletedItems returns completions in completion order.
	ListCompletedItems(ctx context.Context, trackerID string) ([]*CompletedItemRecord, error)

	// GetNextID returns the next available tracker ID.
	GetNextID(ctx context.Context) (string, error)
}

// TrackerRecord represents a workflow tracker as stored in persistence.
type TrackerRecord struct {
	ID                string
	ProjectID         string
	TradeType         string
	IsMain            bool
	CurrentPhaseID    string
	CurrentSectionID  string
	CurrentLineItemID string // Empty string means workflow complete
	TotalLineItems    int
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PositionRecord is a tracker pointer update.
type PositionRecord struct {
	PhaseID     string
	SectionID   string
	LineItemID  string
	CompletedAt *time.Time
}

// CompletedItemRecord represents an append-only line item completion.
type CompletedItemRecord struct {
	TrackerID   string
	LineItemID  string
	CompletedBy string
	CompletedAt time.Time
}

// AlertRepository defines the secondary port for alert persistence.
type AlertRepository interface {
	// Create persists a new alert. Returns a conflict error if an ACTIVE line
	// item alert already exists for (project, line item), or an escalation
	// alert already exists for the original alert.
	Create(ctx context.Context, alert *AlertRecord) error

	// GetByID retrieves an alert by its ID.
	GetByID(ctx context.Context, id string) (*AlertRecord, error)

	// GetActiveForLineItem returns the ACTIVE line item alert or nil.
	GetActiveForLineItem(ctx context.Context, projectID, lineItemID string) (*AlertRecord, error)

	// GetEscalationFor returns the escalation alert linked to originalID or nil.
	GetEscalationFor(ctx context.Context, originalID string) (*AlertRecord, error)

	// List retrieves alerts matching the given filters.
	List(ctx context.Context, filters AlertFilters) ([]*AlertRecord, error)

	// ListOverdue retrieves ACTIVE, unsuppressed alerts due before filters.Now.
	ListOverdue(ctx context.Context, filters OverdueFilters) ([]*AlertRecord, error)

	// Retire marks an ACTIVE alert COMPLETED. Returns false if it was not ACTIVE.
	Retire(ctx context.Context, id string, at time.Time) (bool, error)

	// RetireLinked marks ACTIVE escalation alerts of originalID COMPLETED.
	RetireLinked(ctx context.Context, originalID string, at time.Time) (int, error)

	// Escalate promotes an ACTIVE non-HIGH alert to HIGH, recording the prior
	// priority. Returns false if nothing changed.
	Escalate(ctx context.Context, id string, at time.Time) (bool, error)

	// Suppress flags ACTIVE alerts of the project in phaseIDs as suppressed.
	Suppress(ctx context.Context, projectID string, phaseIDs []string, overrideID string) (int, error)

	// Unsuppress clears the suppression set by overrideID.
	Unsuppress(ctx context.Context, overrideID string) (int, error)

	// PurgeCompleted deletes COMPLETED alerts retired before cutoff.
	PurgeCompleted(ctx context.Context, cutoff time.Time) (int, error)
}

// AlertRecord represents an alert as stored in persistence.
type AlertRecord struct {
	ID                     string
	ProjectID              string
	TrackerID              string
	PhaseID                string
	SectionID              string
	LineItemID             string
	Kind                   string
	Title                  string
	Status                 string
	Priority               string
	PreviousPriority       string // Empty string means null
	AssignedTo             string
	SuppressedByOverrideID string // Empty string means null
	OriginalAlertID        string // Empty string means null
	Metadata               map[string]string
	DueDate                time.Time
	EscalatedAt            *time.Time
	CompletedAt            *time.Time
	CreatedAt              time.Time
}

// AlertFilters contains filter options for querying alerts.
type AlertFilters struct {
	ProjectID  string
	TrackerID  string
	Status     string
	Kind       string
	Priority   string
	AssignedTo string
	Suppressed *bool
}

// OverdueFilters contains filter options for overdue alert queries.
type OverdueFilters struct {
	ProjectID   string // Empty string means all projects
	Now         time.Time
	ExcludeHigh bool
}

// OverrideRepository defines the secondary port for phase override persistence.
type OverrideRepository interface {
	// Create persists a new override. Returns a conflict error if the project
	// already has an active override.
	Create(ctx context.Context, override *OverrideRecord) error

	// GetByID retrieves an override by its ID.
	GetByID(ctx context.Context, id string) (*OverrideRecord, error)

	// GetActive returns the project's active override or nil.
	GetActive(ctx context.Context, projectID string) (*OverrideRecord, error)

	// Deactivate marks an override inactive. Returns false if it was not active.
	Deactivate(ctx context.Context, id, actorID string, at time.Time) (bool, error)

	// List retrieves a project's overrides, newest first.
	List(ctx context.Context, projectID string) ([]*OverrideRecord, error)
}

// OverrideRecord represents a phase override as stored in persistence.
type OverrideRecord struct {
	ID                string
	ProjectID         string
	TrackerID         string
	FromPhaseID       string
	ToPhaseID         string
	SuppressAlertsFor []string
	ResumeLineItemID  string // Main tracker item when created; empty means null
	Reason            string
	CreatedBy         string
	IsActive          bool
	CreatedAt         time.Time
	RevertedAt        *time.Time
	RevertedBy        string // Empty string means null
}

// AuditRepository defines the secondary port for the local audit log.
type AuditRepository interface {
	// Create persists an audit entry.
	Create(ctx context.Context, entry *AuditRecord) error

	// List retrieves audit entries, oldest first.
	List(ctx context.Context, filters AuditFilters) ([]*AuditRecord, error)
}

// AuditRecord represents an audit log entry as stored in persistence.
type AuditRecord struct {
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

// AuditFilters contains filter options for querying audit entries.
type AuditFilters struct {
	ProjectID  string
	EventType  string
	OverrideID string
}
