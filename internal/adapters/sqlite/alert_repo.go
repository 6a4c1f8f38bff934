package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	corealert "github.com/example/sitetrack/internal/core/alert"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

const alertColumns = `id, project_id, tracker_id, kind, phase_id, section_id, line_item_id, title, status,
	priority, previous_priority, assigned_to, suppressed_by_override_id, original_alert_id, metadata,
	due_date, escalated_at, completed_at, created_at`

// AlertRepository implements secondary.AlertRepository with SQLite.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new SQLite alert repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create persists a new alert. The partial unique indexes reject a second
// ACTIVE line item alert and a second escalation of the same alert.
func (r *AlertRepository) Create(ctx context.Context, alert *secondary.AlertRecord) error {
	metadata, err := encodeJSON(nonNilMap(alert.Metadata))
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		alert.ProjectID,
		alert.TrackerID,
		alert.Kind,
		alert.PhaseID,
		alert.SectionID,
		alert.LineItemID,
		alert.Title,
		alert.Status,
		alert.Priority,
		nullString(alert.PreviousPriority),
		alert.AssignedTo,
		nullString(alert.SuppressedByOverrideID),
		nullString(alert.OriginalAlertID),
		metadata,
		formatTime(alert.DueDate),
		nullTime(alert.EscalatedAt),
		nullTime(alert.CompletedAt),
		formatTime(alert.CreatedAt),
	)
	if err != nil {
		return classify(err, "failed to create alert")
	}
	return nil
}

// GetByID retrieves an alert by its ID.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*secondary.AlertRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	record, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("alert %s not found", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get alert")
	}
	return record, nil
}

// GetActiveForLineItem returns the ACTIVE line item alert or nil.
func (r *AlertRepository) GetActiveForLineItem(ctx context.Context, projectID, lineItemID string) (*secondary.AlertRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		WHERE project_id = ? AND line_item_id = ? AND status = ? AND kind = ?`,
		projectID, lineItemID, corealert.StatusActive, corealert.KindLineItem,
	)
	record, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get active alert")
	}
	return record, nil
}

// GetEscalationFor returns the escalation alert linked to originalID or nil.
func (r *AlertRepository) GetEscalationFor(ctx context.Context, originalID string) (*secondary.AlertRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE original_alert_id = ? AND kind = ?`,
		originalID, corealert.KindEscalation,
	)
	record, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get escalation alert")
	}
	return record, nil
}

// List retrieves alerts matching the given filters, oldest first.
func (r *AlertRepository) List(ctx context.Context, filters secondary.AlertFilters) ([]*secondary.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []any{}

	if filters.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filters.ProjectID)
	}
	if filters.TrackerID != "" {
		query += " AND tracker_id = ?"
		args = append(args, filters.TrackerID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filters.Kind)
	}
	if filters.Priority != "" {
		query += " AND priority = ?"
		args = append(args, filters.Priority)
	}
	if filters.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filters.AssignedTo)
	}
	if filters.Suppressed != nil {
		if *filters.Suppressed {
			query += " AND suppressed_by_override_id IS NOT NULL"
		} else {
			query += " AND suppressed_by_override_id IS NULL"
		}
	}

	query += " ORDER BY created_at, id"
	return r.query(ctx, query, args...)
}

// ListOverdue retrieves ACTIVE, unsuppressed alerts due before filters.Now.
func (r *AlertRepository) ListOverdue(ctx context.Context, filters secondary.OverdueFilters) ([]*secondary.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = ? AND suppressed_by_override_id IS NULL AND due_date < ?`
	args := []any{corealert.StatusActive, formatTime(filters.Now)}

	if filters.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filters.ProjectID)
	}
	if filters.ExcludeHigh {
		query += " AND priority != ?"
		args = append(args, corealert.PriorityHigh)
	}

	query += " ORDER BY due_date, id"
	return r.query(ctx, query, args...)
}

// Retire marks an ACTIVE alert COMPLETED.
func (r *AlertRepository) Retire(ctx context.Context, id string, at time.Time) (bool, error) {
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx,
		`UPDATE alerts SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		corealert.StatusCompleted, formatTime(at), id, corealert.StatusActive,
	)
	if err != nil {
		return false, classify(err, "failed to retire alert")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts WHERE id = ?", id).Scan(&exists); err != nil {
		return false, classify(err, "failed to check alert")
	}
	if exists == 0 {
		return false, errs.NotFoundf("alert %s not found", id)
	}
	return false, nil
}

// RetireLinked marks ACTIVE escalation alerts of originalID COMPLETED.
func (r *AlertRepository) RetireLinked(ctx context.Context, originalID string, at time.Time) (int, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE alerts SET status = ?, completed_at = ?
		WHERE original_alert_id = ? AND kind = ? AND status = ?`,
		corealert.StatusCompleted, formatTime(at), originalID, corealert.KindEscalation, corealert.StatusActive,
	)
	if err != nil {
		return 0, classify(err, "failed to retire linked alerts")
	}
	return affected(result)
}

// Escalate promotes an ACTIVE non-HIGH alert to HIGH. The WHERE clause makes
// a concurrent second escalation a no-op.
func (r *AlertRepository) Escalate(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE alerts SET previous_priority = priority, priority = ?, escalated_at = ?
		WHERE id = ? AND status = ? AND priority != ?`,
		corealert.PriorityHigh, formatTime(at), id, corealert.StatusActive, corealert.PriorityHigh,
	)
	if err != nil {
		return false, classify(err, "failed to escalate alert")
	}
	n, err := affected(result)
	return n > 0, err
}

// Suppress flags ACTIVE, unsuppressed alerts of the project in phaseIDs.
func (r *AlertRepository) Suppress(ctx context.Context, projectID string, phaseIDs []string, overrideID string) (int, error) {
	if len(phaseIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(phaseIDs)), ", ")
	args := []any{overrideID, projectID, corealert.StatusActive}
	for _, id := range phaseIDs {
		args = append(args, id)
	}

	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE alerts SET suppressed_by_override_id = ?
		WHERE project_id = ? AND status = ? AND suppressed_by_override_id IS NULL
		AND phase_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, classify(err, "failed to suppress alerts")
	}
	return affected(result)
}

// Unsuppress clears the suppression set by overrideID.
func (r *AlertRepository) Unsuppress(ctx context.Context, overrideID string) (int, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE alerts SET suppressed_by_override_id = NULL WHERE suppressed_by_override_id = ?`,
		overrideID,
	)
	if err != nil {
		return 0, classify(err, "failed to unsuppress alerts")
	}
	return affected(result)
}

// PurgeCompleted deletes COMPLETED alerts retired before cutoff.
func (r *AlertRepository) PurgeCompleted(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM alerts WHERE status = ? AND completed_at IS NOT NULL AND completed_at < ?`,
		corealert.StatusCompleted, formatTime(cutoff),
	)
	if err != nil {
		return 0, classify(err, "failed to purge alerts")
	}
	return affected(result)
}

func (r *AlertRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.AlertRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to list alerts")
	}
	defer rows.Close()

	var alerts []*secondary.AlertRecord
	for rows.Next() {
		record, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, record)
	}
	return alerts, rows.Err()
}

func scanAlert(s rowScanner) (*secondary.AlertRecord, error) {
	var (
		previousPriority, suppressedBy, originalID sql.NullString
		escalatedAt, completedAt                   sql.NullString
		metadata, dueDate, createdAt               string
	)
	record := &secondary.AlertRecord{}
	if err := s.Scan(&record.ID, &record.ProjectID, &record.TrackerID, &record.Kind, &record.PhaseID,
		&record.SectionID, &record.LineItemID, &record.Title, &record.Status, &record.Priority,
		&previousPriority, &record.AssignedTo, &suppressedBy, &originalID, &metadata,
		&dueDate, &escalatedAt, &completedAt, &createdAt); err != nil {
		return nil, err
	}
	record.PreviousPriority = previousPriority.String
	record.SuppressedByOverrideID = suppressedBy.String
	record.OriginalAlertID = originalID.String

	var err error
	if record.Metadata, err = decodeMap(metadata); err != nil {
		return nil, err
	}
	if record.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if record.EscalatedAt, err = parseNullTime(escalatedAt); err != nil {
		return nil, err
	}
	if record.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return record, nil
}

func affected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ secondary.AlertRepository = (*AlertRepository)(nil)
