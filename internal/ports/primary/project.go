package primary

import (
	"context"
	"time"
)

// ProjectService defines the primary port for project registration and
// trade initialization.
type ProjectService interface {
	// CreateProject registers a project and initializes its main trade tracker.
	CreateProject(ctx context.Context, req CreateProjectRequest) (*CreateProjectResponse, error)

	// AddTrade initializes an additional (non-main) trade tracker.
	AddTrade(ctx context.Context, projectID, tradeType string) (*Workflow, error)

	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// ListProjects lists all projects.
	ListProjects(ctx context.Context) ([]*Project, error)

	// AssignRole assigns a user to a responsible role on the project.
	AssignRole(ctx context.Context, projectID, role, userID string) error
}

// CreateProjectRequest contains parameters for creating a project.
type CreateProjectRequest struct {
	Name      string
	ManagerID string
	MainTrade string
	Roles     map[string]string // role → user ID
}

// CreateProjectResponse contains the result of creating a project.
type CreateProjectResponse struct {
	Project  *Project
	Workflow *Workflow
	Alert    *Alert // May be nil
}

// Project represents a project at the port boundary.
type Project struct {
	ID                 string
	Name               string
	ManagerID          string
	DisplayedPhaseID   string
	DisplayedPhaseName string
	Roles              map[string]string
	CreatedAt          time.Time
}
