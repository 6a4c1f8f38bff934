package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/sitetrack/internal/core/progress"
	coreproject "github.com/example/sitetrack/internal/core/project"
	"github.com/example/sitetrack/internal/core/template"
	coretracker "github.com/example/sitetrack/internal/core/tracker"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// ProjectServiceImpl implements the ProjectService interface.
type ProjectServiceImpl struct {
	rt          Runtime
	tx          secondary.Transactor
	projectRepo secondary.ProjectRepository
	trackerRepo secondary.TrackerRepository
	catalog     primary.CatalogService
	alerts      *AlertServiceImpl
}

// NewProjectService creates a new ProjectService with injected dependencies.
func NewProjectService(
	rt Runtime,
	tx secondary.Transactor,
	projectRepo secondary.ProjectRepository,
	trackerRepo secondary.TrackerRepository,
	catalog primary.CatalogService,
	alerts *AlertServiceImpl,
) *ProjectServiceImpl {
	return &ProjectServiceImpl{
		rt:          rt.withDefaults(),
		tx:          tx,
		projectRepo: projectRepo,
		trackerRepo: trackerRepo,
		catalog:     catalog,
		alerts:      alerts,
	}
}

// CreateProject registers a project, starts its main trade tracker at the
// first line item and raises the alert for that item.
func (s *ProjectServiceImpl) CreateProject(ctx context.Context, req primary.CreateProjectRequest) (*primary.CreateProjectResponse, error) {
	guard := coreproject.CreateProjectContext{
		Name:      req.Name,
		ManagerID: req.ManagerID,
		MainTrade: req.MainTrade,
		Roles:     req.Roles,
	}
	if result := coreproject.CanCreateProject(guard); !result.Allowed {
		return nil, result.Error()
	}

	t, err := s.catalog.GetTemplate(ctx, req.MainTrade)
	if err != nil {
		return nil, err
	}

	var (
		project *secondary.ProjectRecord
		tracker *secondary.TrackerRecord
		alert   *secondary.AlertRecord
		created bool
	)
	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		project, tracker, alert, created = nil, nil, nil, false

		id, err := s.projectRepo.GetNextID(ctx)
		if err != nil {
			return err
		}
		now := s.rt.Now()
		project = &secondary.ProjectRecord{
			ID:               id,
			Name:             strings.TrimSpace(req.Name),
			ManagerID:        strings.TrimSpace(req.ManagerID),
			DisplayedPhaseID: t.First().PhaseID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return err
		}
		for role, user := range req.Roles {
			if err := s.projectRepo.SetRole(ctx, id, strings.TrimSpace(role), strings.TrimSpace(user)); err != nil {
				return err
			}
		}

		tracker, err = s.startTracker(ctx, id, t, true)
		if err != nil {
			return err
		}
		alert, created, err = s.alerts.ensureForTracker(ctx, tracker, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.rt.Logger.InfoContext(ctx, "project created",
		"project", project.ID, "trade", tracker.TradeType, "tracker", tracker.ID)
	s.afterStart(ctx, alert, created)

	resp := &primary.CreateProjectResponse{
		Project:  s.toProject(ctx, project, req.Roles),
		Workflow: s.toWorkflow(ctx, tracker),
	}
	if alert != nil {
		resp.Alert = s.alerts.recordToAlert(ctx, alert)
	}
	return resp, nil
}

// AddTrade starts a non-main tracker for another trade on the project.
func (s *ProjectServiceImpl) AddTrade(ctx context.Context, projectID, tradeType string) (*primary.Workflow, error) {
	tradeType = strings.TrimSpace(tradeType)

	var (
		tracker *secondary.TrackerRecord
		alert   *secondary.AlertRecord
		created bool
	)
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		tracker, alert, created = nil, nil, false

		if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
			return err
		}
		existing, err := s.trackerRepo.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		tracked := make([]string, len(existing))
		for i, tr := range existing {
			tracked[i] = tr.TradeType
		}
		guard := coreproject.AddTradeContext{ProjectID: projectID, TradeType: tradeType, TrackedTrades: tracked}
		if result := coreproject.CanAddTrade(guard); !result.Allowed {
			return result.Error()
		}

		t, err := s.catalog.GetTemplate(ctx, tradeType)
		if err != nil {
			return err
		}
		tracker, err = s.startTracker(ctx, projectID, t, false)
		if err != nil {
			return err
		}
		alert, created, err = s.alerts.ensureForTracker(ctx, tracker, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.rt.Logger.InfoContext(ctx, "trade added", "project", projectID, "trade", tradeType, "tracker", tracker.ID)
	s.afterStart(ctx, alert, created)
	return s.toWorkflow(ctx, tracker), nil
}

// GetProject retrieves a project by ID.
func (s *ProjectServiceImpl) GetProject(ctx context.Context, projectID string) (*primary.Project, error) {
	record, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	roles, err := s.projectRepo.GetRoles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.toProject(ctx, record, roles), nil
}

// ListProjects lists all projects.
func (s *ProjectServiceImpl) ListProjects(ctx context.Context) ([]*primary.Project, error) {
	records, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := make([]*primary.Project, len(records))
	for i, r := range records {
		projects[i] = s.toProject(ctx, r, nil)
	}
	return projects, nil
}

// AssignRole assigns a user to a responsible role on the project. Only
// alerts created afterwards pick up the new assignee.
func (s *ProjectServiceImpl) AssignRole(ctx context.Context, projectID, role, userID string) error {
	if result := coreproject.CanAssignRole(role, userID); !result.Allowed {
		return result.Error()
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return err
	}
	return s.projectRepo.SetRole(ctx, projectID, strings.TrimSpace(role), strings.TrimSpace(userID))
}

// Helper methods

// startTracker must run inside a transaction.
func (s *ProjectServiceImpl) startTracker(ctx context.Context, projectID string, t *template.Template, isMain bool) (*secondary.TrackerRecord, error) {
	id, err := s.trackerRepo.GetNextID(ctx)
	if err != nil {
		return nil, err
	}
	start := coretracker.Initial(t)
	now := s.rt.Now()
	tracker := &secondary.TrackerRecord{
		ID:                id,
		ProjectID:         projectID,
		TradeType:         t.TradeType,
		IsMain:            isMain,
		CurrentPhaseID:    start.PhaseID,
		CurrentSectionID:  start.SectionID,
		CurrentLineItemID: start.LineItemID,
		TotalLineItems:    t.Count(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.trackerRepo.Create(ctx, tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

func (s *ProjectServiceImpl) afterStart(ctx context.Context, alert *secondary.AlertRecord, created bool) {
	if alert == nil || !created {
		return
	}
	s.rt.Metrics.AlertCreated(ctx, alert.Kind)
	s.rt.publish(ctx, []secondary.Event{alertCreatedEvent(alert)})
}

func (s *ProjectServiceImpl) toProject(ctx context.Context, r *secondary.ProjectRecord, roles map[string]string) *primary.Project {
	return &primary.Project{
		ID:                 r.ID,
		Name:               r.Name,
		ManagerID:          r.ManagerID,
		DisplayedPhaseID:   r.DisplayedPhaseID,
		DisplayedPhaseName: s.catalog.Label(ctx, r.DisplayedPhaseID),
		Roles:              roles,
		CreatedAt:          r.CreatedAt,
	}
}

func (s *ProjectServiceImpl) toWorkflow(ctx context.Context, r *secondary.TrackerRecord) *primary.Workflow {
	p := progress.Compute(0, r.TotalLineItems)
	return &primary.Workflow{
		TrackerID: r.ID,
		TradeType: r.TradeType,
		IsMain:    r.IsMain,
		Position:  positionOf(ctx, s.catalog, r),
		Progress:  &primary.Progress{CompletedCount: p.CompletedCount, TotalCount: p.TotalCount, Percent: p.Percent},
	}
}

// Ensure ProjectServiceImpl implements the interface
var _ primary.ProjectService = (*ProjectServiceImpl)(nil)
