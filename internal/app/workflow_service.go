package app

import (
	"context"
	"fmt"
	"strings"

	coretracker "github.com/example/sitetrack/internal/core/tracker"
	"github.com/example/sitetrack/internal/ctxutil"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// WorkflowServiceImpl implements the WorkflowService interface.
type WorkflowServiceImpl struct {
	rt           Runtime
	tx           secondary.Transactor
	trackerRepo  secondary.TrackerRepository
	projectRepo  secondary.ProjectRepository
	overrideRepo secondary.OverrideRepository
	catalog      primary.CatalogService
	alerts       *AlertServiceImpl
}

// NewWorkflowService creates a new WorkflowService with injected dependencies.
func NewWorkflowService(
	rt Runtime,
	tx secondary.Transactor,
	trackerRepo secondary.TrackerRepository,
	projectRepo secondary.ProjectRepository,
	overrideRepo secondary.OverrideRepository,
	catalog primary.CatalogService,
	alerts *AlertServiceImpl,
) *WorkflowServiceImpl {
	return &WorkflowServiceImpl{
		rt:           rt.withDefaults(),
		tx:           tx,
		trackerRepo:  trackerRepo,
		projectRepo:  projectRepo,
		overrideRepo: overrideRepo,
		catalog:      catalog,
		alerts:       alerts,
	}
}

// AdvanceTracker completes a line item and moves the tracker forward.
// The whole step runs in one transaction; events are published after commit.
func (s *WorkflowServiceImpl) AdvanceTracker(ctx context.Context, req primary.AdvanceRequest) (*primary.AdvanceResult, error) {
	if strings.TrimSpace(req.TrackerID) == "" {
		return nil, errs.Validationf("tracker ID is required")
	}
	completedBy := ctxutil.ResolveActor(ctx, req.CompletedBy)
	if completedBy == "" {
		return nil, errs.Validationf("completedBy is required (pass it or set an actor)")
	}

	var (
		tracker  *secondary.TrackerRecord
		already  bool
		finished bool
		alert    *secondary.AlertRecord
		created  bool
	)
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		already, finished, alert, created = false, false, nil, false

		var err error
		tracker, err = s.trackerRepo.GetByID(ctx, req.TrackerID)
		if err != nil {
			return err
		}
		t, err := s.catalog.GetTemplate(ctx, tracker.TradeType)
		if err != nil {
			return err
		}
		if err := coretracker.CheckConsistency(tracker.ID, t, pointerOf(tracker)); err != nil {
			return err
		}

		done, err := s.trackerRepo.HasCompletedItem(ctx, tracker.ID, req.LineItemID)
		if err != nil {
			return err
		}
		if done {
			already = true
			return nil
		}

		override, err := s.overrideRepo.GetActive(ctx, tracker.ProjectID)
		if err != nil {
			return err
		}
		loc, inTemplate := t.Locate(req.LineItemID)
		guard := coretracker.AdvanceContext{
			TrackerID:         tracker.ID,
			LineItemID:        req.LineItemID,
			CurrentLineItemID: tracker.CurrentLineItemID,
			TargetInTemplate:  inTemplate,
			TargetPhaseID:     loc.PhaseID,
		}
		if override != nil {
			guard.OverrideToPhaseID = override.ToPhaseID
		}
		if result := coretracker.CanAdvance(guard); !result.Allowed {
			return result.Error()
		}

		now := s.rt.Now()
		if err := s.trackerRepo.AddCompletedItem(ctx, &secondary.CompletedItemRecord{
			TrackerID:   tracker.ID,
			LineItemID:  req.LineItemID,
			CompletedBy: completedBy,
			CompletedAt: now,
		}); err != nil {
			return err
		}

		completed, err := s.completedSet(ctx, tracker.ID)
		if err != nil {
			return err
		}
		next, complete := coretracker.AdvancePast(t, req.LineItemID, func(id string) bool { return completed[id] })

		pos := secondary.PositionRecord{PhaseID: next.PhaseID, SectionID: next.SectionID, LineItemID: next.LineItemID}
		if complete {
			pos.CompletedAt = &now
		}
		if err := s.trackerRepo.UpdatePosition(ctx, tracker.ID, tracker.CurrentLineItemID, pos); err != nil {
			return err
		}
		// An active override owns the displayed phase until it is reverted.
		if tracker.IsMain && override == nil && pos.PhaseID != tracker.CurrentPhaseID {
			if err := s.projectRepo.UpdateDisplayedPhase(ctx, tracker.ProjectID, pos.PhaseID); err != nil {
				return err
			}
		}

		if err := s.alerts.retireForItem(ctx, tracker.ProjectID, req.LineItemID, now); err != nil {
			return err
		}
		if tracker.CurrentLineItemID != req.LineItemID {
			if err := s.alerts.retireForItem(ctx, tracker.ProjectID, tracker.CurrentLineItemID, now); err != nil {
				return err
			}
		}

		moved := *tracker
		moved.CurrentPhaseID = pos.PhaseID
		moved.CurrentSectionID = pos.SectionID
		moved.CurrentLineItemID = pos.LineItemID
		moved.CompletedAt = pos.CompletedAt
		tracker = &moved
		finished = complete

		alert, created, err = s.alerts.ensureForTracker(ctx, tracker, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &primary.AdvanceResult{
		Position:          s.toPosition(ctx, tracker),
		WorkflowCompleted: tracker.CurrentLineItemID == "",
		AlreadyCompleted:  already,
	}
	if alert != nil {
		result.AlertID = alert.ID
	}
	if already {
		return result, nil
	}

	s.rt.Metrics.TrackerAdvanced(ctx, tracker.TradeType)
	s.rt.Logger.InfoContext(ctx, "tracker advanced",
		"tracker", tracker.ID, "completed", req.LineItemID, "current", tracker.CurrentLineItemID, "finished", finished)

	events := []secondary.Event{{
		Type:      secondary.EventTrackerAdvanced,
		ProjectID: tracker.ProjectID,
		TrackerID: tracker.ID,
		Data: map[string]string{
			"completedLineItemId": req.LineItemID,
			"lineItemId":          tracker.CurrentLineItemID,
			"phaseId":             tracker.CurrentPhaseID,
			"completedBy":         completedBy,
		},
		Timestamp: s.rt.Now(),
	}}
	if created {
		s.rt.Metrics.AlertCreated(ctx, alert.Kind)
		events = append(events, alertCreatedEvent(alert))
	}
	s.rt.publish(ctx, events)

	return result, nil
}

// GetPosition returns the tracker's current position.
func (s *WorkflowServiceImpl) GetPosition(ctx context.Context, trackerID string) (*primary.Position, error) {
	tracker, err := s.trackerRepo.GetByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	return s.toPosition(ctx, tracker), nil
}

// ListCompletedItems returns the tracker's completions in order.
func (s *WorkflowServiceImpl) ListCompletedItems(ctx context.Context, trackerID string) ([]*primary.CompletedItem, error) {
	if _, err := s.trackerRepo.GetByID(ctx, trackerID); err != nil {
		return nil, err
	}
	records, err := s.trackerRepo.ListCompletedItems(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed items: %w", err)
	}

	items := make([]*primary.CompletedItem, len(records))
	for i, r := range records {
		items[i] = &primary.CompletedItem{
			LineItemID:   r.LineItemID,
			LineItemName: s.catalog.Label(ctx, r.LineItemID),
			CompletedBy:  r.CompletedBy,
			CompletedAt:  r.CompletedAt,
		}
	}
	return items, nil
}

func (s *WorkflowServiceImpl) completedSet(ctx context.Context, trackerID string) (map[string]bool, error) {
	records, err := s.trackerRepo.ListCompletedItems(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, r := range records {
		set[r.LineItemID] = true
	}
	return set, nil
}

func (s *WorkflowServiceImpl) toPosition(ctx context.Context, r *secondary.TrackerRecord) *primary.Position {
	return positionOf(ctx, s.catalog, r)
}

func positionOf(ctx context.Context, catalog primary.CatalogService, r *secondary.TrackerRecord) *primary.Position {
	return &primary.Position{
		TrackerID:    r.ID,
		ProjectID:    r.ProjectID,
		TradeType:    r.TradeType,
		IsMain:       r.IsMain,
		PhaseID:      r.CurrentPhaseID,
		PhaseName:    catalog.Label(ctx, r.CurrentPhaseID),
		SectionID:    r.CurrentSectionID,
		SectionName:  catalog.Label(ctx, r.CurrentSectionID),
		LineItemID:   r.CurrentLineItemID,
		LineItemName: catalog.Label(ctx, r.CurrentLineItemID),
		Completed:    r.CurrentLineItemID == "",
	}
}

// Ensure WorkflowServiceImpl implements the interface
var _ primary.WorkflowService = (*WorkflowServiceImpl)(nil)
