package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

const overrideColumns = `id, project_id, tracker_id, from_phase_id, to_phase_id, suppress_alerts_for,
	resume_line_item_id, reason, created_by, is_active, created_at, reverted_at, reverted_by`

// OverrideRepository implements secondary.OverrideRepository with SQLite.
type OverrideRepository struct {
	db *sql.DB
}

// NewOverrideRepository creates a new SQLite phase override repository.
func NewOverrideRepository(db *sql.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Create persists a new override.
func (r *OverrideRepository) Create(ctx context.Context, override *secondary.OverrideRecord) error {
	suppress := override.SuppressAlertsFor
	if suppress == nil {
		suppress = []string{}
	}
	encoded, err := encodeJSON(suppress)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO phase_overrides (`+overrideColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		override.ID,
		override.ProjectID,
		override.TrackerID,
		override.FromPhaseID,
		override.ToPhaseID,
		encoded,
		nullString(override.ResumeLineItemID),
		override.Reason,
		override.CreatedBy,
		boolToInt(override.IsActive),
		formatTime(override.CreatedAt),
		nullTime(override.RevertedAt),
		nullString(override.RevertedBy),
	)
	if err != nil {
		return classify(err, "failed to create phase override")
	}
	return nil
}

// GetByID retrieves an override by its ID.
func (r *OverrideRepository) GetByID(ctx context.Context, id string) (*secondary.OverrideRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+overrideColumns+` FROM phase_overrides WHERE id = ?`, id)
	record, err := scanOverride(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("phase override %s not found", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get phase override")
	}
	return record, nil
}

// GetActive returns the project's active override or nil.
func (r *OverrideRepository) GetActive(ctx context.Context, projectID string) (*secondary.OverrideRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+overrideColumns+` FROM phase_overrides WHERE project_id = ? AND is_active = 1`, projectID)
	record, err := scanOverride(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get active phase override")
	}
	return record, nil
}

// Deactivate marks an override inactive and records who reverted it.
func (r *OverrideRepository) Deactivate(ctx context.Context, id, actorID string, at time.Time) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE phase_overrides SET is_active = 0, reverted_at = ?, reverted_by = ? WHERE id = ? AND is_active = 1`,
		formatTime(at), nullString(actorID), id,
	)
	if err != nil {
		return false, classify(err, "failed to deactivate phase override")
	}
	n, err := affected(result)
	return n > 0, err
}

// List retrieves a project's overrides, newest first.
func (r *OverrideRepository) List(ctx context.Context, projectID string) ([]*secondary.OverrideRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+overrideColumns+` FROM phase_overrides WHERE project_id = ? ORDER BY created_at DESC, rowid DESC`,
		projectID,
	)
	if err != nil {
		return nil, classify(err, "failed to list phase overrides")
	}
	defer rows.Close()

	var overrides []*secondary.OverrideRecord
	for rows.Next() {
		record, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan phase override: %w", err)
		}
		overrides = append(overrides, record)
	}
	return overrides, rows.Err()
}

func scanOverride(s rowScanner) (*secondary.OverrideRecord, error) {
	var (
		suppress, createdAt    string
		isActive               int
		resume                 sql.NullString
		revertedAt, revertedBy sql.NullString
	)
	record := &secondary.OverrideRecord{}
	if err := s.Scan(&record.ID, &record.ProjectID, &record.TrackerID, &record.FromPhaseID, &record.ToPhaseID,
		&suppress, &resume, &record.Reason, &record.CreatedBy, &isActive, &createdAt, &revertedAt, &revertedBy); err != nil {
		return nil, err
	}
	record.IsActive = isActive == 1
	record.ResumeLineItemID = resume.String
	record.RevertedBy = revertedBy.String

	var err error
	if record.SuppressAlertsFor, err = decodeList(suppress); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.RevertedAt, err = parseNullTime(revertedAt); err != nil {
		return nil, err
	}
	return record, nil
}

var _ secondary.OverrideRepository = (*OverrideRepository)(nil)
