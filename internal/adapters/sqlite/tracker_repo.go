package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	coretracker "github.com/example/sitetrack/internal/core/tracker"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

const trackerColumns = `id, project_id, trade_type, is_main, current_phase_id, current_section_id,
	current_line_item_id, total_line_items, completed_at, created_at, updated_at`

// TrackerRepository implements secondary.TrackerRepository with SQLite.
type TrackerRepository struct {
	db *sql.DB
}

// NewTrackerRepository creates a new SQLite tracker repository.
func NewTrackerRepository(db *sql.DB) *TrackerRepository {
	return &TrackerRepository{db: db}
}

// Create persists a new tracker.
func (r *TrackerRepository) Create(ctx context.Context, tracker *secondary.TrackerRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO workflow_trackers (`+trackerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tracker.ID,
		tracker.ProjectID,
		tracker.TradeType,
		boolToInt(tracker.IsMain),
		nullString(tracker.CurrentPhaseID),
		nullString(tracker.CurrentSectionID),
		nullString(tracker.CurrentLineItemID),
		tracker.TotalLineItems,
		nullTime(tracker.CompletedAt),
		formatTime(tracker.CreatedAt),
		formatTime(tracker.UpdatedAt),
	)
	if err != nil {
		return classify(err, "failed to create tracker")
	}
	return nil
}

// GetByID retrieves a tracker by its ID.
func (r *TrackerRepository) GetByID(ctx context.Context, id string) (*secondary.TrackerRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM workflow_trackers WHERE id = ?`, id)
	record, err := scanTracker(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("tracker %s not found", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get tracker")
	}
	return record, nil
}

// GetMain retrieves the project's main tracker.
func (r *TrackerRepository) GetMain(ctx context.Context, projectID string) (*secondary.TrackerRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM workflow_trackers WHERE project_id = ? AND is_main = 1`, projectID)
	record, err := scanTracker(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("project %s has no main tracker", projectID)
	}
	if err != nil {
		return nil, classify(err, "failed to get main tracker")
	}
	return record, nil
}

// ListByProject retrieves all trackers of a project, main first then by trade.
func (r *TrackerRepository) ListByProject(ctx context.Context, projectID string) ([]*secondary.TrackerRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+trackerColumns+` FROM workflow_trackers WHERE project_id = ? ORDER BY is_main DESC, trade_type`,
		projectID,
	)
	if err != nil {
		return nil, classify(err, "failed to list trackers")
	}
	defer rows.Close()

	var trackers []*secondary.TrackerRecord
	for rows.Next() {
		record, err := scanTracker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracker: %w", err)
		}
		trackers = append(trackers, record)
	}
	return trackers, rows.Err()
}

// UpdatePosition moves the pointer only if it still points at expectedLineItemID.
func (r *TrackerRepository) UpdatePosition(ctx context.Context, id, expectedLineItemID string, pos secondary.PositionRecord) error {
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx,
		`UPDATE workflow_trackers
		SET current_phase_id = ?, current_section_id = ?, current_line_item_id = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND COALESCE(current_line_item_id, '') = ?`,
		nullString(pos.PhaseID),
		nullString(pos.SectionID),
		nullString(pos.LineItemID),
		nullTime(pos.CompletedAt),
		formatTime(nowUTC()),
		id,
		expectedLineItemID,
	)
	if err != nil {
		return classify(err, "failed to update tracker position")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_trackers WHERE id = ?", id).Scan(&exists); err != nil {
		return classify(err, "failed to check tracker")
	}
	if exists == 0 {
		return errs.NotFoundf("tracker %s not found", id)
	}
	return errs.Conflictf("tracker %s moved concurrently (expected current item %q)", id, expectedLineItemID)
}

// UpdateTotalLineItems rewrites the cached line item count.
func (r *TrackerRepository) UpdateTotalLineItems(ctx context.Context, id string, total int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE workflow_trackers SET total_line_items = ?, updated_at = ? WHERE id = ?`,
		total, formatTime(nowUTC()), id,
	)
	if err != nil {
		return classify(err, "failed to update total line items")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errs.NotFoundf("tracker %s not found", id)
	}
	return nil
}

// AddCompletedItem appends a completion.
func (r *TrackerRepository) AddCompletedItem(ctx context.Context, item *secondary.CompletedItemRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO completed_items (tracker_id, line_item_id, completed_by, completed_at) VALUES (?, ?, ?, ?)`,
		item.TrackerID, item.LineItemID, item.CompletedBy, formatTime(item.CompletedAt),
	)
	if err != nil {
		return classify(err, "failed to add completed item")
	}
	return nil
}

// HasCompletedItem checks whether a line item is completed for the tracker.
func (r *TrackerRepository) HasCompletedItem(ctx context.Context, trackerID, lineItemID string) (bool, error) {
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM completed_items WHERE tracker_id = ? AND line_item_id = ?",
		trackerID, lineItemID,
	).Scan(&count)
	if err != nil {
		return false, classify(err, "failed to check completed item")
	}
	return count > 0, nil
}

// ListCompletedItems returns completions in completion order.
func (r *TrackerRepository) ListCompletedItems(ctx context.Context, trackerID string) ([]*secondary.CompletedItemRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT tracker_id, line_item_id, completed_by, completed_at FROM completed_items
		WHERE tracker_id = ? ORDER BY completed_at, rowid`,
		trackerID,
	)
	if err != nil {
		return nil, classify(err, "failed to list completed items")
	}
	defer rows.Close()

	var items []*secondary.CompletedItemRecord
	for rows.Next() {
		var completedAt string
		item := &secondary.CompletedItemRecord{}
		if err := rows.Scan(&item.TrackerID, &item.LineItemID, &item.CompletedBy, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed item: %w", err)
		}
		if item.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetNextID returns the next available tracker ID.
// WF-XXX format where XXX is extracted from position 4.
func (r *TrackerRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 4) AS INTEGER)), 0) FROM workflow_trackers",
	).Scan(&maxID)
	if err != nil {
		return "", classify(err, "failed to get next tracker ID")
	}
	return coretracker.GenerateTrackerID(maxID), nil
}

func scanTracker(s rowScanner) (*secondary.TrackerRecord, error) {
	var (
		isMain                       int
		phaseID, sectionID, lineItem sql.NullString
		completedAt                  sql.NullString
		createdAt, updatedAt         string
	)
	record := &secondary.TrackerRecord{}
	if err := s.Scan(&record.ID, &record.ProjectID, &record.TradeType, &isMain, &phaseID, &sectionID,
		&lineItem, &record.TotalLineItems, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	record.IsMain = isMain == 1
	record.CurrentPhaseID = phaseID.String
	record.CurrentSectionID = sectionID.String
	record.CurrentLineItemID = lineItem.String

	var err error
	if record.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return record, nil
}

var _ secondary.TrackerRepository = (*TrackerRepository)(nil)
