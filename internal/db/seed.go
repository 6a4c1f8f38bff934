package db

import (
	"database/sql"
	"fmt"
)

// CatalogSeed describes catalog rows to insert. Seeding is additive and
// idempotent: rows whose IDs already exist are left untouched.
type CatalogSeed struct {
	Phases   []PhaseSeed
	Sections []SectionSeed
	Items    []ItemSeed
}

// PhaseSeed is a phases row.
type PhaseSeed struct {
	ID       string
	Position int
	Type     string
	Name     string
	Inactive bool
}

// SectionSeed is a sections row.
type SectionSeed struct {
	ID       string
	PhaseID  string
	Position int
	Name     string
	Inactive bool
}

// ItemSeed is a line_items row. Empty ParentID means a root item.
type ItemSeed struct {
	ID              string
	SectionID       string
	ParentID        string
	Position        int
	Name            string
	TradeType       string
	ResponsibleRole string
	AlertDays       int // 0 means the column default
	Inactive        bool
}

// SeedCatalog inserts the seed in a single transaction.
func SeedCatalog(database *sql.DB, seed CatalogSeed) error {
	tx, err := database.Begin()
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	defer tx.Rollback()

	for _, p := range seed.Phases {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO phases (id, position, phase_type, name, is_active) VALUES (?, ?, ?, ?, ?)",
			p.ID, p.Position, p.Type, p.Name, boolToInt(!p.Inactive),
		); err != nil {
			return fmt.Errorf("seed phases: %w", err)
		}
	}

	for _, s := range seed.Sections {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO sections (id, phase_id, position, name, is_active) VALUES (?, ?, ?, ?, ?)",
			s.ID, s.PhaseID, s.Position, s.Name, boolToInt(!s.Inactive),
		); err != nil {
			return fmt.Errorf("seed sections: %w", err)
		}
	}

	for _, i := range seed.Items {
		alertDays := i.AlertDays
		if alertDays == 0 {
			alertDays = 1
		}
		var parent sql.NullString
		if i.ParentID != "" {
			parent = sql.NullString{String: i.ParentID, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO line_items
				(id, section_id, parent_id, position, name, trade_type, responsible_role, alert_days, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i.ID, i.SectionID, parent, i.Position, i.Name, i.TradeType, i.ResponsibleRole, alertDays, boolToInt(!i.Inactive),
		); err != nil {
			return fmt.Errorf("seed line items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DefaultPhases is the phase ladder every trade shares.
func DefaultPhases() []PhaseSeed {
	return []PhaseSeed{
		{ID: "PH-LEAD", Position: 1, Type: "LEAD", Name: "Lead"},
		{ID: "PH-PROS", Position: 2, Type: "PROSPECT", Name: "Prospect"},
		{ID: "PH-APPR", Position: 3, Type: "APPROVED", Name: "Approved"},
		{ID: "PH-EXEC", Position: 4, Type: "EXECUTION", Name: "Execution"},
		{ID: "PH-SUPP", Position: 5, Type: "SECOND_SUPPLEMENT", Name: "Second Supplement"},
		{ID: "PH-COMP", Position: 6, Type: "COMPLETION", Name: "Completion"},
	}
}

// DefaultCatalog returns the stock ROOFING, GUTTERS and INTERIOR_PAINT templates.
func DefaultCatalog() CatalogSeed {
	return CatalogSeed{
		Phases: DefaultPhases(),
		Sections: []SectionSeed{
			{ID: "SEC-LEAD-INTAKE", PhaseID: "PH-LEAD", Position: 1, Name: "Intake"},
			{ID: "SEC-PROS-INSPECT", PhaseID: "PH-PROS", Position: 1, Name: "Inspection"},
			{ID: "SEC-PROS-ESTIMATE", PhaseID: "PH-PROS", Position: 2, Name: "Estimate"},
			{ID: "SEC-APPR-CONTRACT", PhaseID: "PH-APPR", Position: 1, Name: "Contract"},
			{ID: "SEC-APPR-MATERIALS", PhaseID: "PH-APPR", Position: 2, Name: "Materials"},
			{ID: "SEC-EXEC-BUILD", PhaseID: "PH-EXEC", Position: 1, Name: "Build"},
			{ID: "SEC-EXEC-QA", PhaseID: "PH-EXEC", Position: 2, Name: "Quality Check"},
			{ID: "SEC-SUPP-CLAIM", PhaseID: "PH-SUPP", Position: 1, Name: "Supplement Claim"},
			{ID: "SEC-COMP-CLOSE", PhaseID: "PH-COMP", Position: 1, Name: "Closeout"},
		},
		Items: append(append(roofingItems(), guttersItems()...), paintItems()...),
	}
}

func roofingItems() []ItemSeed {
	const t = "ROOFING"
	return []ItemSeed{
		{ID: "RF-LEAD-01", SectionID: "SEC-LEAD-INTAKE", Position: 1, Name: "Log customer inquiry", TradeType: t, ResponsibleRole: "sales_rep"},
		{ID: "RF-LEAD-02", SectionID: "SEC-LEAD-INTAKE", Position: 2, Name: "Schedule inspection", TradeType: t, ResponsibleRole: "sales_rep"},
		{ID: "RF-PROS-01", SectionID: "SEC-PROS-INSPECT", Position: 1, Name: "Roof inspection", TradeType: t, ResponsibleRole: "estimator", AlertDays: 2},
		{ID: "RF-PROS-01A", SectionID: "SEC-PROS-INSPECT", ParentID: "RF-PROS-01", Position: 1, Name: "Photograph damage", TradeType: t, ResponsibleRole: "estimator"},
		{ID: "RF-PROS-01B", SectionID: "SEC-PROS-INSPECT", ParentID: "RF-PROS-01", Position: 2, Name: "Measure roof pitch", TradeType: t, ResponsibleRole: "estimator"},
		{ID: "RF-PROS-02", SectionID: "SEC-PROS-ESTIMATE", Position: 1, Name: "Prepare estimate", TradeType: t, ResponsibleRole: "estimator", AlertDays: 3},
		{ID: "RF-PROS-03", SectionID: "SEC-PROS-ESTIMATE", Position: 2, Name: "Submit insurance claim", TradeType: t, ResponsibleRole: "office"},
		{ID: "RF-APPR-01", SectionID: "SEC-APPR-CONTRACT", Position: 1, Name: "Sign contract", TradeType: t, ResponsibleRole: "sales_rep"},
		{ID: "RF-APPR-02", SectionID: "SEC-APPR-MATERIALS", Position: 1, Name: "Order shingles", TradeType: t, ResponsibleRole: "office", AlertDays: 2},
		{ID: "RF-APPR-03", SectionID: "SEC-APPR-MATERIALS", Position: 2, Name: "Schedule delivery", TradeType: t, ResponsibleRole: "office"},
		{ID: "RF-EXEC-01", SectionID: "SEC-EXEC-BUILD", Position: 1, Name: "Tear off", TradeType: t, ResponsibleRole: "crew_lead"},
		{ID: "RF-EXEC-02", SectionID: "SEC-EXEC-BUILD", Position: 2, Name: "Install underlayment", TradeType: t, ResponsibleRole: "crew_lead"},
		{ID: "RF-EXEC-03", SectionID: "SEC-EXEC-BUILD", Position: 3, Name: "Install shingles", TradeType: t, ResponsibleRole: "crew_lead", AlertDays: 3},
		{ID: "RF-EXEC-04", SectionID: "SEC-EXEC-QA", Position: 1, Name: "Final walkthrough", TradeType: t, ResponsibleRole: "project_manager"},
		{ID: "RF-SUPP-01", SectionID: "SEC-SUPP-CLAIM", Position: 1, Name: "File supplement", TradeType: t, ResponsibleRole: "office", AlertDays: 5},
		{ID: "RF-COMP-01", SectionID: "SEC-COMP-CLOSE", Position: 1, Name: "Collect final payment", TradeType: t, ResponsibleRole: "office"},
		{ID: "RF-COMP-02", SectionID: "SEC-COMP-CLOSE", Position: 2, Name: "Request review", TradeType: t, ResponsibleRole: "sales_rep"},
	}
}

func guttersItems() []ItemSeed {
	const t = "GUTTERS"
	return []ItemSeed{
		{ID: "GT-APPR-01", SectionID: "SEC-APPR-MATERIALS", Position: 1, Name: "Order gutter stock", TradeType: t, ResponsibleRole: "office"},
		{ID: "GT-EXEC-01", SectionID: "SEC-EXEC-BUILD", Position: 1, Name: "Hang gutters", TradeType: t, ResponsibleRole: "crew_lead", AlertDays: 2},
		{ID: "GT-COMP-01", SectionID: "SEC-COMP-CLOSE", Position: 1, Name: "Collect gutter payment", TradeType: t, ResponsibleRole: "office"},
	}
}

func paintItems() []ItemSeed {
	const t = "INTERIOR_PAINT"
	return []ItemSeed{
		{ID: "IP-PROS-01", SectionID: "SEC-PROS-ESTIMATE", Position: 1, Name: "Color consultation", TradeType: t, ResponsibleRole: "estimator"},
		{ID: "IP-EXEC-01", SectionID: "SEC-EXEC-BUILD", Position: 1, Name: "Prep walls", TradeType: t, ResponsibleRole: "crew_lead"},
		{ID: "IP-EXEC-02", SectionID: "SEC-EXEC-BUILD", Position: 2, Name: "Apply paint", TradeType: t, ResponsibleRole: "crew_lead", AlertDays: 3},
		{ID: "IP-EXEC-03", SectionID: "SEC-EXEC-QA", Position: 1, Name: "Touch-up pass", TradeType: t, ResponsibleRole: "project_manager"},
	}
}
