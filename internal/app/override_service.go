package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	corealert "github.com/example/sitetrack/internal/core/alert"
	coreoverride "github.com/example/sitetrack/internal/core/override"
	"github.com/example/sitetrack/internal/core/template"
	coretracker "github.com/example/sitetrack/internal/core/tracker"
	"github.com/example/sitetrack/internal/ctxutil"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// OverrideServiceImpl implements the OverrideService interface.
type OverrideServiceImpl struct {
	rt           Runtime
	tx           secondary.Transactor
	overrideRepo secondary.OverrideRepository
	projectRepo  secondary.ProjectRepository
	trackerRepo  secondary.TrackerRepository
	alertRepo    secondary.AlertRepository
	catalog      primary.CatalogService
	alerts       *AlertServiceImpl
}

// NewOverrideService creates a new OverrideService with injected dependencies.
func NewOverrideService(
	rt Runtime,
	tx secondary.Transactor,
	overrideRepo secondary.OverrideRepository,
	projectRepo secondary.ProjectRepository,
	trackerRepo secondary.TrackerRepository,
	alertRepo secondary.AlertRepository,
	catalog primary.CatalogService,
	alerts *AlertServiceImpl,
) *OverrideServiceImpl {
	return &OverrideServiceImpl{
		rt:           rt.withDefaults(),
		tx:           tx,
		overrideRepo: overrideRepo,
		projectRepo:  projectRepo,
		trackerRepo:  trackerRepo,
		alertRepo:    alertRepo,
		catalog:      catalog,
		alerts:       alerts,
	}
}

// Override jumps the project's effective phase to req.ToPhase. An existing
// active override is replaced.
func (s *OverrideServiceImpl) Override(ctx context.Context, req primary.OverrideRequest) (*primary.PhaseOverride, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, errs.Validationf("project ID is required")
	}
	actor := ctxutil.ResolveActor(ctx, req.ActorID)
	if actor == "" {
		return nil, errs.Validationf("actor is required (pass it or set an actor)")
	}
	phases, err := s.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}

	var (
		record     *secondary.OverrideRecord
		suppressed int
	)
	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		record, suppressed = nil, 0

		if _, err := s.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
			return err
		}
		main, err := s.trackerRepo.GetMain(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		active, err := s.overrideRepo.GetActive(ctx, req.ProjectID)
		if err != nil {
			return err
		}

		fromPhaseID := main.CurrentPhaseID
		if active != nil {
			fromPhaseID = active.ToPhaseID
		}
		to, known := coreoverride.ResolvePhase(phases, strings.TrimSpace(req.ToPhase))
		guard := coreoverride.OverrideContext{
			ProjectID:      req.ProjectID,
			CurrentPhaseID: fromPhaseID,
			RequestedPhase: req.ToPhase,
			ToPhaseKnown:   known,
			ToPhaseID:      to.ID,
			Reason:         req.Reason,
		}
		if result := coreoverride.CanOverride(guard); !result.Allowed {
			return result.Error()
		}

		now := s.rt.Now()
		if active != nil {
			if _, err := s.overrideRepo.Deactivate(ctx, active.ID, actor, now); err != nil {
				return err
			}
			if _, err := s.alertRepo.Unsuppress(ctx, active.ID); err != nil {
				return err
			}
		}

		record = &secondary.OverrideRecord{
			ID:                uuid.NewString(),
			ProjectID:         req.ProjectID,
			TrackerID:         main.ID,
			FromPhaseID:       fromPhaseID,
			ToPhaseID:         to.ID,
			SuppressAlertsFor: coreoverride.IDs(coreoverride.SuppressedBetween(phases, fromPhaseID, to.ID)),
			ResumeLineItemID:  main.CurrentLineItemID,
			Reason:            strings.TrimSpace(req.Reason),
			CreatedBy:         actor,
			IsActive:          true,
			CreatedAt:         now,
		}
		if err := s.overrideRepo.Create(ctx, record); err != nil {
			return err
		}
		if err := s.projectRepo.UpdateDisplayedPhase(ctx, req.ProjectID, to.ID); err != nil {
			return err
		}
		suppressed, err = s.alertRepo.Suppress(ctx, req.ProjectID, record.SuppressAlertsFor, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.rt.Logger.InfoContext(ctx, "phase overridden",
		"project", record.ProjectID, "override", record.ID,
		"transition", coreoverride.Transition(phases, record.FromPhaseID, record.ToPhaseID),
		"suppressed", suppressed, "actor", actor)
	s.rt.audit(ctx, secondary.AuditEvent{
		Type:        secondary.AuditPhaseOverrideLogged,
		ProjectID:   record.ProjectID,
		FromPhaseID: record.FromPhaseID,
		ToPhaseID:   record.ToPhaseID,
		ActorID:     actor,
		OverrideID:  record.ID,
		Details: map[string]string{
			"override":          coreoverride.Transition(phases, record.FromPhaseID, record.ToPhaseID),
			"reason":            record.Reason,
			"suppressAlertsFor": strings.Join(record.SuppressAlertsFor, ","),
		},
		Timestamp: record.CreatedAt,
	})
	s.rt.publish(ctx, []secondary.Event{{
		Type:      secondary.EventPhaseOverridden,
		ProjectID: record.ProjectID,
		TrackerID: record.TrackerID,
		Data: map[string]string{
			"overrideId": record.ID,
			"from":       record.FromPhaseID,
			"to":         record.ToPhaseID,
			"suppressed": strconv.Itoa(suppressed),
		},
		Timestamp: record.CreatedAt,
	}})

	out := toPhaseOverride(phases, record)
	out.SuppressedAlerts = suppressed
	return out, nil
}

// Revert deactivates an override and restores the phase it jumped from. A
// main tracker that advanced into the override's phase is moved back to the
// item it pointed at when the override was created.
func (s *OverrideServiceImpl) Revert(ctx context.Context, req primary.RevertRequest) (*primary.PhaseOverride, error) {
	if strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.OverrideID) == "" {
		return nil, errs.Validationf("project ID and override ID are required")
	}
	actor := ctxutil.ResolveActor(ctx, req.ActorID)
	if actor == "" {
		return nil, errs.Validationf("actor is required (pass it or set an actor)")
	}
	phases, err := s.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}

	var (
		record   *secondary.OverrideRecord
		restored int
		tracker  *secondary.TrackerRecord
		alert    *secondary.AlertRecord
		created  bool
	)
	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		record, restored, tracker, alert, created = nil, 0, nil, nil, false

		var err error
		record, err = s.overrideRepo.GetByID(ctx, req.OverrideID)
		if err != nil {
			return err
		}
		guard := coreoverride.RevertContext{
			OverrideID:        record.ID,
			ProjectID:         req.ProjectID,
			OverrideProjectID: record.ProjectID,
			IsActive:          record.IsActive,
		}
		if result := coreoverride.CanRevert(guard); !result.Allowed {
			return result.Error()
		}

		now := s.rt.Now()
		ok, err := s.overrideRepo.Deactivate(ctx, record.ID, actor, now)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Conflictf("override %s is not active", record.ID)
		}
		record.IsActive = false
		record.RevertedAt = &now
		record.RevertedBy = actor

		if err := s.projectRepo.UpdateDisplayedPhase(ctx, record.ProjectID, record.FromPhaseID); err != nil {
			return err
		}
		if restored, err = s.alertRepo.Unsuppress(ctx, record.ID); err != nil {
			return err
		}
		tracker, alert, created, err = s.resumeTracker(ctx, record, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if tracker != nil {
		s.rt.Logger.InfoContext(ctx, "main tracker resumed",
			"project", record.ProjectID, "tracker", tracker.ID, "current", tracker.CurrentLineItemID)
		events := []secondary.Event{{
			Type:      secondary.EventTrackerAdvanced,
			ProjectID: tracker.ProjectID,
			TrackerID: tracker.ID,
			Data: map[string]string{
				"lineItemId": tracker.CurrentLineItemID,
				"phaseId":    tracker.CurrentPhaseID,
				"overrideId": record.ID,
			},
			Timestamp: *record.RevertedAt,
		}}
		if created {
			s.rt.Metrics.AlertCreated(ctx, alert.Kind)
			events = append(events, alertCreatedEvent(alert))
		}
		s.rt.publish(ctx, events)
	}

	overrideLeg := coreoverride.Transition(phases, record.FromPhaseID, record.ToPhaseID)
	revertLeg := coreoverride.Transition(phases, record.ToPhaseID, record.FromPhaseID)
	s.rt.Logger.InfoContext(ctx, "phase override reverted",
		"project", record.ProjectID, "override", record.ID, "revert", revertLeg, "restored", restored, "actor", actor)
	s.rt.audit(ctx, secondary.AuditEvent{
		Type:        secondary.AuditPhaseOverrideReverted,
		ProjectID:   record.ProjectID,
		FromPhaseID: record.ToPhaseID,
		ToPhaseID:   record.FromPhaseID,
		ActorID:     actor,
		OverrideID:  record.ID,
		Details: map[string]string{
			"override": overrideLeg,
			"revert":   revertLeg,
			"restored": strconv.Itoa(restored),
		},
		Timestamp: *record.RevertedAt,
	})

	return toPhaseOverride(phases, record), nil
}

// GetActiveOverride returns the project's active override or nil.
func (s *OverrideServiceImpl) GetActiveOverride(ctx context.Context, projectID string) (*primary.PhaseOverride, error) {
	record, err := s.overrideRepo.GetActive(ctx, projectID)
	if err != nil || record == nil {
		return nil, err
	}
	phases, err := s.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}
	return toPhaseOverride(phases, record), nil
}

// ListOverrides lists the project's overrides, newest first.
func (s *OverrideServiceImpl) ListOverrides(ctx context.Context, projectID string) ([]*primary.PhaseOverride, error) {
	records, err := s.overrideRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	phases, err := s.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}
	overrides := make([]*primary.PhaseOverride, len(records))
	for i, r := range records {
		overrides[i] = toPhaseOverride(phases, r)
	}
	return overrides, nil
}

// ListSuppressedAlerts lists the project's alerts hidden by an active override.
func (s *OverrideServiceImpl) ListSuppressedAlerts(ctx context.Context, projectID string) ([]*primary.Alert, error) {
	suppressed := true
	records, err := s.alertRepo.List(ctx, secondary.AlertFilters{
		ProjectID:  projectID,
		Status:     corealert.StatusActive,
		Suppressed: &suppressed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list suppressed alerts: %w", err)
	}
	return s.alerts.recordsToAlerts(ctx, records), nil
}

// Helper methods

// resumeTracker must run inside a transaction. It moves the main tracker back
// to the override's resume item and returns the moved tracker, or nil when
// the tracker is already there.
func (s *OverrideServiceImpl) resumeTracker(ctx context.Context, record *secondary.OverrideRecord, at time.Time) (*secondary.TrackerRecord, *secondary.AlertRecord, bool, error) {
	tracker, err := s.trackerRepo.GetByID(ctx, record.TrackerID)
	if err != nil {
		return nil, nil, false, err
	}
	if tracker.CurrentLineItemID == record.ResumeLineItemID {
		return nil, nil, false, nil
	}
	t, err := s.catalog.GetTemplate(ctx, tracker.TradeType)
	if err != nil {
		return nil, nil, false, err
	}
	records, err := s.trackerRepo.ListCompletedItems(ctx, tracker.ID)
	if err != nil {
		return nil, nil, false, err
	}
	completed := make(map[string]bool, len(records))
	for _, r := range records {
		completed[r.LineItemID] = true
	}

	p, ok := coretracker.Resume(t, record.ResumeLineItemID, func(id string) bool { return completed[id] })
	if !ok || p.LineItemID == tracker.CurrentLineItemID {
		return nil, nil, false, nil
	}
	pos := secondary.PositionRecord{PhaseID: p.PhaseID, SectionID: p.SectionID, LineItemID: p.LineItemID}
	if p.Done() {
		pos.CompletedAt = &at
	}
	if err := s.trackerRepo.UpdatePosition(ctx, tracker.ID, tracker.CurrentLineItemID, pos); err != nil {
		return nil, nil, false, err
	}
	if err := s.alerts.retireForItem(ctx, tracker.ProjectID, tracker.CurrentLineItemID, at); err != nil {
		return nil, nil, false, err
	}

	moved := *tracker
	moved.CurrentPhaseID = pos.PhaseID
	moved.CurrentSectionID = pos.SectionID
	moved.CurrentLineItemID = pos.LineItemID
	moved.CompletedAt = pos.CompletedAt

	alert, created, err := s.alerts.ensureForTracker(ctx, &moved, t)
	if err != nil {
		return nil, nil, false, err
	}
	return &moved, alert, created, nil
}

func toPhaseOverride(phases []template.Phase, r *secondary.OverrideRecord) *primary.PhaseOverride {
	return &primary.PhaseOverride{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		TrackerID:         r.TrackerID,
		FromPhaseID:       r.FromPhaseID,
		FromPhaseType:     phaseType(phases, r.FromPhaseID),
		ToPhaseID:         r.ToPhaseID,
		ToPhaseType:       phaseType(phases, r.ToPhaseID),
		SuppressAlertsFor: r.SuppressAlertsFor,
		Reason:            r.Reason,
		CreatedBy:         r.CreatedBy,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt,
		RevertedAt:        r.RevertedAt,
		RevertedBy:        r.RevertedBy,
	}
}

func phaseType(phases []template.Phase, id string) string {
	if p, ok := coreoverride.ResolvePhase(phases, id); ok && p.ID == id {
		return string(p.Type)
	}
	return ""
}

// Ensure OverrideServiceImpl implements the interface
var _ primary.OverrideService = (*OverrideServiceImpl)(nil)
