package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	corealert "github.com/example/sitetrack/internal/core/alert"
	"github.com/example/sitetrack/internal/core/template"
	coretracker "github.com/example/sitetrack/internal/core/tracker"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// AlertServiceImpl implements the AlertService interface.
type AlertServiceImpl struct {
	rt             Runtime
	tx             secondary.Transactor
	alertRepo      secondary.AlertRepository
	trackerRepo    secondary.TrackerRepository
	projectRepo    secondary.ProjectRepository
	overrideRepo   secondary.OverrideRepository
	catalog        primary.CatalogService
	defaultDueDays int
}

// NewAlertService creates a new AlertService with injected dependencies.
func NewAlertService(
	rt Runtime,
	tx secondary.Transactor,
	alertRepo secondary.AlertRepository,
	trackerRepo secondary.TrackerRepository,
	projectRepo secondary.ProjectRepository,
	overrideRepo secondary.OverrideRepository,
	catalog primary.CatalogService,
	defaultDueDays int,
) *AlertServiceImpl {
	return &AlertServiceImpl{
		rt:             rt.withDefaults(),
		tx:             tx,
		alertRepo:      alertRepo,
		trackerRepo:    trackerRepo,
		projectRepo:    projectRepo,
		overrideRepo:   overrideRepo,
		catalog:        catalog,
		defaultDueDays: defaultDueDays,
	}
}

// EnsureAlertForCurrentItem creates the alert for the tracker's current item
// unless an ACTIVE one exists.
func (s *AlertServiceImpl) EnsureAlertForCurrentItem(ctx context.Context, trackerID string) (*primary.Alert, bool, error) {
	var (
		record  *secondary.AlertRecord
		created bool
	)
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		record, created = nil, false

		tracker, err := s.trackerRepo.GetByID(ctx, trackerID)
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
		record, created, err = s.ensureForTracker(ctx, tracker, t)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, nil
	}

	if created {
		s.rt.Metrics.AlertCreated(ctx, record.Kind)
		s.rt.publish(ctx, []secondary.Event{alertCreatedEvent(record)})
	}
	return s.recordToAlert(ctx, record), created, nil
}

// RetireAlert marks an alert COMPLETED together with its escalation notices.
func (s *AlertServiceImpl) RetireAlert(ctx context.Context, alertID, reason string) error {
	var retired bool
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		now := s.rt.Now()
		var err error
		retired, err = s.alertRepo.Retire(ctx, alertID, now)
		if err != nil {
			return err
		}
		if !retired {
			return nil
		}
		_, err = s.alertRepo.RetireLinked(ctx, alertID, now)
		return err
	})
	if err != nil {
		return err
	}
	if retired {
		s.rt.Logger.InfoContext(ctx, "alert retired", "alert", alertID, "reason", reason)
	}
	return nil
}

// GetAlert retrieves an alert by ID.
func (s *AlertServiceImpl) GetAlert(ctx context.Context, alertID string) (*primary.Alert, error) {
	record, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	return s.recordToAlert(ctx, record), nil
}

// ListAlerts lists alerts with optional filters.
func (s *AlertServiceImpl) ListAlerts(ctx context.Context, filters primary.AlertFilters) ([]*primary.Alert, error) {
	if filters.Priority != "" && !corealert.ValidPriority(filters.Priority) {
		return nil, errs.Validationf("unknown priority %q (want %s, %s or %s)",
			filters.Priority, corealert.PriorityLow, corealert.PriorityMedium, corealert.PriorityHigh)
	}
	records, err := s.alertRepo.List(ctx, secondary.AlertFilters{
		ProjectID:  filters.ProjectID,
		TrackerID:  filters.TrackerID,
		Status:     filters.Status,
		Kind:       filters.Kind,
		Priority:   filters.Priority,
		AssignedTo: filters.AssignedTo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return s.recordsToAlerts(ctx, records), nil
}

// ListOverdueAlerts lists ACTIVE, unsuppressed alerts past their due date.
func (s *AlertServiceImpl) ListOverdueAlerts(ctx context.Context, projectID string) ([]*primary.Alert, error) {
	records, err := s.alertRepo.ListOverdue(ctx, secondary.OverdueFilters{
		ProjectID: projectID,
		Now:       s.rt.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue alerts: %w", err)
	}
	return s.recordsToAlerts(ctx, records), nil
}

// ensureForTracker must run inside a transaction. It returns the ACTIVE
// alert for the current item, creating it if needed.
func (s *AlertServiceImpl) ensureForTracker(ctx context.Context, tracker *secondary.TrackerRecord, t *template.Template) (*secondary.AlertRecord, bool, error) {
	lineItemID := tracker.CurrentLineItemID
	if lineItemID == "" {
		return nil, false, nil
	}

	existing, err := s.alertRepo.GetActiveForLineItem(ctx, tracker.ProjectID, lineItemID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	item, ok := t.Item(lineItemID)
	if !ok {
		return nil, false, errs.Consistencyf("tracker %s points at line item %s outside the %s template", tracker.ID, lineItemID, t.TradeType)
	}
	loc, _ := t.Locate(lineItemID)

	project, err := s.projectRepo.GetByID(ctx, tracker.ProjectID)
	if err != nil {
		return nil, false, err
	}
	roles, err := s.projectRepo.GetRoles(ctx, tracker.ProjectID)
	if err != nil {
		return nil, false, err
	}
	override, err := s.overrideRepo.GetActive(ctx, tracker.ProjectID)
	if err != nil {
		return nil, false, err
	}

	now := s.rt.Now()
	record := &secondary.AlertRecord{
		ID:         uuid.NewString(),
		ProjectID:  tracker.ProjectID,
		TrackerID:  tracker.ID,
		PhaseID:    loc.PhaseID,
		SectionID:  loc.SectionID,
		LineItemID: lineItemID,
		Kind:       corealert.KindLineItem,
		Title:      item.Name,
		Status:     corealert.StatusActive,
		Priority:   corealert.PriorityMedium,
		AssignedTo: corealert.ResolveAssignee(item.ResponsibleRole, roles, project.ManagerID),
		Metadata:   map[string]string{"tradeType": tracker.TradeType},
		DueDate:    corealert.DueDate(now, item.AlertDays, s.defaultDueDays),
		CreatedAt:  now,
	}
	if override != nil {
		record.SuppressedByOverrideID = corealert.SuppressedBy(loc.PhaseID, override.ID, override.SuppressAlertsFor)
	}

	if err := s.alertRepo.Create(ctx, record); err != nil {
		if !errs.Is(err, errs.KindConflict) {
			return nil, false, err
		}
		// Lost a race with another writer; its alert is the one to return.
		existing, gerr := s.alertRepo.GetActiveForLineItem(ctx, tracker.ProjectID, lineItemID)
		if gerr != nil {
			return nil, false, gerr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return record, true, nil
}

// retireForItem must run inside a transaction. It retires the ACTIVE alert
// of a line item and its escalation notices.
func (s *AlertServiceImpl) retireForItem(ctx context.Context, projectID, lineItemID string, at time.Time) error {
	if lineItemID == "" {
		return nil
	}
	active, err := s.alertRepo.GetActiveForLineItem(ctx, projectID, lineItemID)
	if err != nil || active == nil {
		return err
	}
	retired, err := s.alertRepo.Retire(ctx, active.ID, at)
	if err != nil || !retired {
		return err
	}
	_, err = s.alertRepo.RetireLinked(ctx, active.ID, at)
	return err
}

// Helper methods

func (s *AlertServiceImpl) recordsToAlerts(ctx context.Context, records []*secondary.AlertRecord) []*primary.Alert {
	alerts := make([]*primary.Alert, len(records))
	for i, r := range records {
		alerts[i] = s.recordToAlert(ctx, r)
	}
	return alerts
}

func (s *AlertServiceImpl) recordToAlert(ctx context.Context, r *secondary.AlertRecord) *primary.Alert {
	return &primary.Alert{
		ID:                     r.ID,
		ProjectID:              r.ProjectID,
		TrackerID:              r.TrackerID,
		Kind:                   r.Kind,
		PhaseID:                r.PhaseID,
		PhaseName:              s.catalog.Label(ctx, r.PhaseID),
		SectionID:              r.SectionID,
		SectionName:            s.catalog.Label(ctx, r.SectionID),
		LineItemID:             r.LineItemID,
		LineItemName:           s.catalog.Label(ctx, r.LineItemID),
		Title:                  r.Title,
		Status:                 r.Status,
		Priority:               r.Priority,
		PreviousPriority:       r.PreviousPriority,
		AssignedTo:             r.AssignedTo,
		SuppressedByOverrideID: r.SuppressedByOverrideID,
		OriginalAlertID:        r.OriginalAlertID,
		Metadata:               r.Metadata,
		DueDate:                r.DueDate,
		EscalatedAt:            r.EscalatedAt,
		CompletedAt:            r.CompletedAt,
		CreatedAt:              r.CreatedAt,
		Overdue:                r.SuppressedByOverrideID == "" && corealert.IsOverdue(r.Status, r.DueDate, s.rt.Now()),
	}
}

func alertCreatedEvent(r *secondary.AlertRecord) secondary.Event {
	return secondary.Event{
		Type:      secondary.EventAlertCreated,
		ProjectID: r.ProjectID,
		TrackerID: r.TrackerID,
		AlertID:   r.ID,
		Data: map[string]string{
			"kind":       r.Kind,
			"lineItemId": r.LineItemID,
			"assignedTo": r.AssignedTo,
		},
		Timestamp: r.CreatedAt,
	}
}

func pointerOf(r *secondary.TrackerRecord) coretracker.Pointer {
	return coretracker.Pointer{
		PhaseID:    r.CurrentPhaseID,
		SectionID:  r.CurrentSectionID,
		LineItemID: r.CurrentLineItemID,
	}
}

// Ensure AlertServiceImpl implements the interface
var _ primary.AlertService = (*AlertServiceImpl)(nil)
