package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/sitetrack/internal/ports/secondary"
)

// CatalogRepository implements secondary.CatalogRepository with SQLite.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new SQLite catalog repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListPhases returns every phase row ordered by position.
func (r *CatalogRepository) ListPhases(ctx context.Context) ([]*secondary.PhaseRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, position, phase_type, name, is_active FROM phases ORDER BY position`)
	if err != nil {
		return nil, classify(err, "failed to list phases")
	}
	defer rows.Close()

	var phases []*secondary.PhaseRecord
	for rows.Next() {
		var isActive int
		p := &secondary.PhaseRecord{}
		if err := rows.Scan(&p.ID, &p.Position, &p.PhaseType, &p.Name, &isActive); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		p.IsActive = isActive == 1
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ListSections returns every section row ordered by phase and position.
func (r *CatalogRepository) ListSections(ctx context.Context) ([]*secondary.SectionRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, phase_id, position, name, is_active FROM sections ORDER BY phase_id, position`)
	if err != nil {
		return nil, classify(err, "failed to list sections")
	}
	defer rows.Close()

	var sections []*secondary.SectionRecord
	for rows.Next() {
		var isActive int
		s := &secondary.SectionRecord{}
		if err := rows.Scan(&s.ID, &s.PhaseID, &s.Position, &s.Name, &isActive); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		s.IsActive = isActive == 1
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ListLineItems returns every line item row of a trade.
func (r *CatalogRepository) ListLineItems(ctx context.Context, tradeType string) ([]*secondary.LineItemRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, section_id, parent_id, position, name, trade_type, responsible_role, alert_days, is_active
		FROM line_items WHERE trade_type = ? ORDER BY section_id, position`,
		tradeType,
	)
	if err != nil {
		return nil, classify(err, "failed to list line items")
	}
	defer rows.Close()

	var items []*secondary.LineItemRecord
	for rows.Next() {
		var (
			parentID sql.NullString
			isActive int
		)
		i := &secondary.LineItemRecord{}
		if err := rows.Scan(&i.ID, &i.SectionID, &parentID, &i.Position, &i.Name, &i.TradeType, &i.ResponsibleRole, &i.AlertDays, &isActive); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		i.ParentID = parentID.String
		i.IsActive = isActive == 1
		items = append(items, i)
	}
	return items, rows.Err()
}

// ListTradeTypes returns trades with at least one active line item.
func (r *CatalogRepository) ListTradeTypes(ctx context.Context) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT trade_type FROM line_items WHERE is_active = 1 ORDER BY trade_type`)
	if err != nil {
		return nil, classify(err, "failed to list trade types")
	}
	defer rows.Close()

	var trades []string
	for rows.Next() {
		var trade string
		if err := rows.Scan(&trade); err != nil {
			return nil, fmt.Errorf("failed to scan trade type: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// ListLabels returns display names keyed by catalog ID.
func (r *CatalogRepository) ListLabels(ctx context.Context) (map[string]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, name FROM phases
		UNION ALL SELECT id, name FROM sections
		UNION ALL SELECT id, name FROM line_items`)
	if err != nil {
		return nil, classify(err, "failed to list catalog labels")
	}
	defer rows.Close()

	labels := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog label: %w", err)
		}
		labels[id] = name
	}
	return labels, rows.Err()
}

var _ secondary.CatalogRepository = (*CatalogRepository)(nil)
