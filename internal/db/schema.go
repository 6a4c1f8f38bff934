package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for sitetrack databases.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). No test file may contain CREATE TABLE
// statements, and a repository referencing a column missing here fails
// immediately with "no such column".
//
// Uniqueness rules the engine relies on are enforced here, not only in
// services:
//   - one main tracker per project, one tracker per (project, trade)
//   - one completion per (tracker, line item)
//   - one ACTIVE LINE_ITEM alert per (project, line item)
//   - one ESCALATION alert per original alert
//   - one active override per project
//
// Timestamps are fixed-width UTC TEXT so lexical comparison is chronological.
const SchemaSQL = `
-- Catalog: phase ladder shared by all trades
CREATE TABLE IF NOT EXISTS phases (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL UNIQUE,
	phase_type TEXT NOT NULL CHECK(phase_type IN ('LEAD', 'PROSPECT', 'APPROVED', 'EXECUTION', 'SECOND_SUPPLEMENT', 'COMPLETION')),
	name TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS sections (
	id TEXT PRIMARY KEY,
	phase_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (phase_id) REFERENCES phases(id),
	UNIQUE(phase_id, position)
);

CREATE TABLE IF NOT EXISTS line_items (
	id TEXT PRIMARY KEY,
	section_id TEXT NOT NULL,
	parent_id TEXT,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	trade_type TEXT NOT NULL,
	responsible_role TEXT NOT NULL DEFAULT '',
	alert_days INTEGER NOT NULL DEFAULT 1,
	is_active INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (section_id) REFERENCES sections(id),
	FOREIGN KEY (parent_id) REFERENCES line_items(id)
);

CREATE INDEX IF NOT EXISTS idx_line_items_trade ON line_items(trade_type);
CREATE INDEX IF NOT EXISTS idx_line_items_section ON line_items(section_id);

-- Projects
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	manager_id TEXT NOT NULL,
	displayed_phase_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_roles (
	project_id TEXT NOT NULL,
	role TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (project_id, role),
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

-- Workflow trackers (one per project and trade)
CREATE TABLE IF NOT EXISTS workflow_trackers (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	trade_type TEXT NOT NULL,
	is_main INTEGER NOT NULL DEFAULT 0,
	current_phase_id TEXT,
	current_section_id TEXT,
	current_line_item_id TEXT,
	total_line_items INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	UNIQUE(project_id, trade_type)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trackers_one_main ON workflow_trackers(project_id) WHERE is_main = 1;

CREATE TABLE IF NOT EXISTS completed_items (
	tracker_id TEXT NOT NULL,
	line_item_id TEXT NOT NULL,
	completed_by TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	FOREIGN KEY (tracker_id) REFERENCES workflow_trackers(id) ON DELETE CASCADE,
	UNIQUE(tracker_id, line_item_id)
);

-- Alerts
CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	tracker_id TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('LINE_ITEM', 'ESCALATION')) DEFAULT 'LINE_ITEM',
	phase_id TEXT NOT NULL,
	section_id TEXT NOT NULL,
	line_item_id TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('ACTIVE', 'COMPLETED')) DEFAULT 'ACTIVE',
	priority TEXT NOT NULL CHECK(priority IN ('LOW', 'MEDIUM', 'HIGH')) DEFAULT 'MEDIUM',
	previous_priority TEXT,
	assigned_to TEXT NOT NULL,
	suppressed_by_override_id TEXT,
	original_alert_id TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	due_date TEXT NOT NULL,
	escalated_at TEXT,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	FOREIGN KEY (tracker_id) REFERENCES workflow_trackers(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_active_item
	ON alerts(project_id, line_item_id) WHERE status = 'ACTIVE' AND kind = 'LINE_ITEM';
CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_escalation
	ON alerts(original_alert_id) WHERE kind = 'ESCALATION';
CREATE INDEX IF NOT EXISTS idx_alerts_status_due ON alerts(status, due_date);
CREATE INDEX IF NOT EXISTS idx_alerts_project ON alerts(project_id);

-- Phase overrides (never deleted)
CREATE TABLE IF NOT EXISTS phase_overrides (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	tracker_id TEXT NOT NULL,
	from_phase_id TEXT NOT NULL,
	to_phase_id TEXT NOT NULL,
	suppress_alerts_for TEXT NOT NULL DEFAULT '[]',
	resume_line_item_id TEXT,
	reason TEXT NOT NULL,
	created_by TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	reverted_at TEXT,
	reverted_by TEXT,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_overrides_one_active ON phase_overrides(project_id) WHERE is_active = 1;

-- Audit log
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	from_phase_id TEXT,
	to_phase_id TEXT,
	override_id TEXT,
	details TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_project ON audit_log(project_id, created_at);
`

// InitSchema creates the database schema. Safe to run on every open.
func InitSchema(database *sql.DB) error {
	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
