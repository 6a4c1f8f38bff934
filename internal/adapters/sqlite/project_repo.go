package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	coreproject "github.com/example/sitetrack/internal/core/project"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// ProjectRepository implements secondary.ProjectRepository with SQLite.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create persists a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *secondary.ProjectRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO projects (id, name, manager_id, displayed_phase_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Name,
		project.ManagerID,
		nullString(project.DisplayedPhaseID),
		formatTime(project.CreatedAt),
		formatTime(project.UpdatedAt),
	)
	if err != nil {
		return classify(err, "failed to create project")
	}
	return nil
}

// GetByID retrieves a project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*secondary.ProjectRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, manager_id, displayed_phase_id, created_at, updated_at FROM projects WHERE id = ?`,
		id,
	)
	record, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("project %s not found", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get project")
	}
	return record, nil
}

// List retrieves all projects.
func (r *ProjectRepository) List(ctx context.Context) ([]*secondary.ProjectRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, manager_id, displayed_phase_id, created_at, updated_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, classify(err, "failed to list projects")
	}
	defer rows.Close()

	var projects []*secondary.ProjectRecord
	for rows.Next() {
		record, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, record)
	}
	return projects, rows.Err()
}

// UpdateDisplayedPhase sets the phase shown for the project.
func (r *ProjectRepository) UpdateDisplayedPhase(ctx context.Context, id, phaseID string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE projects SET displayed_phase_id = ?, updated_at = ? WHERE id = ?`,
		nullString(phaseID), formatTime(nowUTC()), id,
	)
	if err != nil {
		return classify(err, "failed to update displayed phase")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errs.NotFoundf("project %s not found", id)
	}
	return nil
}

// SetRole assigns a user to a responsible role, replacing any prior assignment.
func (r *ProjectRepository) SetRole(ctx context.Context, projectID, role, userID string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO project_roles (project_id, role, user_id) VALUES (?, ?, ?)
		ON CONFLICT(project_id, role) DO UPDATE SET user_id = excluded.user_id`,
		projectID, role, userID,
	)
	if err != nil {
		return classify(err, "failed to set project role")
	}
	return nil
}

// GetRoles returns the project's role assignments.
func (r *ProjectRepository) GetRoles(ctx context.Context, projectID string) (map[string]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT role, user_id FROM project_roles WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, classify(err, "failed to get project roles")
	}
	defer rows.Close()

	roles := map[string]string{}
	for rows.Next() {
		var role, user string
		if err := rows.Scan(&role, &user); err != nil {
			return nil, fmt.Errorf("failed to scan project role: %w", err)
		}
		roles[role] = user
	}
	return roles, rows.Err()
}

// GetNextID returns the next available project ID.
// PROJ-XXX format where XXX is extracted from position 6.
func (r *ProjectRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM projects",
	).Scan(&maxID)
	if err != nil {
		return "", classify(err, "failed to get next project ID")
	}
	return coreproject.GenerateProjectID(maxID), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(s rowScanner) (*secondary.ProjectRecord, error) {
	var (
		displayed            sql.NullString
		createdAt, updatedAt string
	)
	record := &secondary.ProjectRecord{}
	if err := s.Scan(&record.ID, &record.Name, &record.ManagerID, &displayed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	record.DisplayedPhaseID = displayed.String

	var err error
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return record, nil
}

var _ secondary.ProjectRepository = (*ProjectRepository)(nil)
