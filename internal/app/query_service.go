package app

import (
	"context"
	"fmt"

	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// QueryServiceImpl implements the QueryService interface. Nothing here
// writes, including the tracker total cache.
type QueryServiceImpl struct {
	projectRepo secondary.ProjectRepository
	trackerRepo secondary.TrackerRepository
	auditRepo   secondary.AuditRepository
	catalog     primary.CatalogService
	progress    *ProgressServiceImpl
	alerts      *AlertServiceImpl
	overrides   *OverrideServiceImpl
}

// NewQueryService creates a new QueryService with injected dependencies.
func NewQueryService(
	projectRepo secondary.ProjectRepository,
	trackerRepo secondary.TrackerRepository,
	auditRepo secondary.AuditRepository,
	catalog primary.CatalogService,
	progress *ProgressServiceImpl,
	alerts *AlertServiceImpl,
	overrides *OverrideServiceImpl,
) *QueryServiceImpl {
	return &QueryServiceImpl{
		projectRepo: projectRepo,
		trackerRepo: trackerRepo,
		auditRepo:   auditRepo,
		catalog:     catalog,
		progress:    progress,
		alerts:      alerts,
		overrides:   overrides,
	}
}

// GetProjectPosition returns the main tracker position and the effective
// phase: the active override's toPhase, else the main tracker's phase.
func (s *QueryServiceImpl) GetProjectPosition(ctx context.Context, projectID string) (*primary.ProjectPosition, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	main, err := s.trackerRepo.GetMain(ctx, projectID)
	if err != nil {
		return nil, err
	}
	active, err := s.overrides.GetActiveOverride(ctx, projectID)
	if err != nil {
		return nil, err
	}

	pos := &primary.ProjectPosition{
		ProjectID:        projectID,
		Main:             positionOf(ctx, s.catalog, main),
		EffectivePhaseID: main.CurrentPhaseID,
		DisplayedPhaseID: project.DisplayedPhaseID,
		ActiveOverride:   active,
	}
	if active != nil {
		pos.EffectivePhaseID = active.ToPhaseID
	}
	pos.EffectivePhaseName = s.catalog.Label(ctx, pos.EffectivePhaseID)
	return pos, nil
}

// ListWorkflowsForProject lists every tracker of the project with live
// position and progress, main trade first.
func (s *QueryServiceImpl) ListWorkflowsForProject(ctx context.Context, projectID string) ([]*primary.Workflow, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	trackers, err := s.trackerRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}

	workflows := make([]*primary.Workflow, 0, len(trackers))
	for _, tr := range trackers {
		p, err := s.progress.compute(ctx, tr, false)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, &primary.Workflow{
			TrackerID: tr.ID,
			TradeType: tr.TradeType,
			IsMain:    tr.IsMain,
			Position:  positionOf(ctx, s.catalog, tr),
			Progress:  &primary.Progress{CompletedCount: p.CompletedCount, TotalCount: p.TotalCount, Percent: p.Percent},
		})
	}
	return workflows, nil
}

// ListOverdueAlerts lists overdue alerts, optionally for one project.
func (s *QueryServiceImpl) ListOverdueAlerts(ctx context.Context, projectID string) ([]*primary.Alert, error) {
	return s.alerts.ListOverdueAlerts(ctx, projectID)
}

// ListSuppressedAlerts lists alerts suppressed by the project's overrides.
func (s *QueryServiceImpl) ListSuppressedAlerts(ctx context.Context, projectID string) ([]*primary.Alert, error) {
	return s.overrides.ListSuppressedAlerts(ctx, projectID)
}

// ListAuditEntries lists the project's audit log, oldest first.
func (s *QueryServiceImpl) ListAuditEntries(ctx context.Context, projectID string) ([]*primary.AuditEntry, error) {
	records, err := s.auditRepo.List(ctx, secondary.AuditFilters{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	entries := make([]*primary.AuditEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.AuditEntry{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			EventType:   r.EventType,
			ActorID:     r.ActorID,
			FromPhaseID: r.FromPhaseID,
			ToPhaseID:   r.ToPhaseID,
			OverrideID:  r.OverrideID,
			Details:     r.Details,
			CreatedAt:   r.CreatedAt,
		}
	}
	return entries, nil
}

// Ensure QueryServiceImpl implements the interface
var _ primary.QueryService = (*QueryServiceImpl)(nil)
