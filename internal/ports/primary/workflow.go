package primary

import (
	"context"
	"time"
)

// WorkflowService defines the primary port for tracker advancement.
type WorkflowService interface {
	// AdvanceTracker completes a line item and moves the tracker forward.
	// Completing an already completed item is a no-op.
	AdvanceTracker(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error)

	// GetPosition returns the tracker's current phase, section and line item.
	GetPosition(ctx context.Context, trackerID string) (*Position, error)

	// ListCompletedItems returns the tracker's completions in order.
	ListCompletedItems(ctx context.Context, trackerID string) ([]*CompletedItem, error)
}

// AdvanceRequest contains parameters for completing a line item.
type AdvanceRequest struct {
	TrackerID   string
	LineItemID  string
	CompletedBy string // Defaults to the actor in context
}

// AdvanceResult contains the tracker position after advancement.
type AdvanceResult struct {
	Position          *Position
	WorkflowCompleted bool
	AlreadyCompleted  bool   // The item was completed before; nothing changed
	AlertID           string // Alert for the new current item, if any
}

// Position is a tracker's pointer with display names resolved by ID.
type Position struct {
	TrackerID    string
	ProjectID    string
	TradeType    string
	IsMain       bool
	PhaseID      string
	PhaseName    string
	SectionID    string
	SectionName  string
	LineItemID   string // Empty when the workflow is complete
	LineItemName string
	Completed    bool
}

// CompletedItem represents a line item completion at the port boundary.
type CompletedItem struct {
	LineItemID   string
	LineItemName string
	CompletedBy  string
	CompletedAt  time.Time
}

// Workflow summarizes a tracker for listing.
type Workflow struct {
	TrackerID string
	TradeType string
	IsMain    bool
	Position  *Position
	Progress  *Progress
}
