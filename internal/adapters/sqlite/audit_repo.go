package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/sitetrack/internal/ports/secondary"
)

// AuditRepository implements secondary.AuditRepository with SQLite.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new SQLite audit log repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *secondary.AuditRecord) error {
	details, err := encodeJSON(nonNilMap(entry.Details))
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO audit_log (id, project_id, event_type, actor_id, from_phase_id, to_phase_id, override_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProjectID,
		entry.EventType,
		entry.ActorID,
		nullString(entry.FromPhaseID),
		nullString(entry.ToPhaseID),
		nullString(entry.OverrideID),
		details,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return classify(err, "failed to create audit entry")
	}
	return nil
}

// List retrieves audit entries matching the filters, oldest first.
func (r *AuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditRecord, error) {
	query := `SELECT id, project_id, event_type, actor_id, from_phase_id, to_phase_id, override_id, details, created_at
		FROM audit_log WHERE 1=1`
	args := []any{}

	if filters.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filters.ProjectID)
	}
	if filters.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filters.EventType)
	}
	if filters.OverrideID != "" {
		query += " AND override_id = ?"
		args = append(args, filters.OverrideID)
	}

	query += " ORDER BY created_at, rowid"

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to list audit entries")
	}
	defer rows.Close()

	var entries []*secondary.AuditRecord
	for rows.Next() {
		var (
			from, to, overrideID sql.NullString
			details, createdAt   string
		)
		entry := &secondary.AuditRecord{}
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.EventType, &entry.ActorID,
			&from, &to, &overrideID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.FromPhaseID = from.String
		entry.ToPhaseID = to.String
		entry.OverrideID = overrideID.String
		if entry.Details, err = decodeMap(details); err != nil {
			return nil, err
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ secondary.AuditRepository = (*AuditRepository)(nil)
