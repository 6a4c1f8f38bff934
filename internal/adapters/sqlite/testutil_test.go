// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup goes through db.Open, which applies db.GetSchemaSQL(), so
// tests run against the authoritative schema.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/db"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// setupTestDB creates a temp-file database with the authoritative schema.
// A file is used rather than :memory: so every pooled connection sees the
// same data and transactions lock like production.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open test db")

	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

// seedCatalog inserts the stock catalog.
func seedCatalog(t *testing.T, database *sql.DB) {
	t.Helper()
	require.NoError(t, db.SeedCatalog(database, db.DefaultCatalog()))
}

// seedProject inserts a project managed by "mgr-1" and returns its ID.
func seedProject(t *testing.T, database *sql.DB, id string) string {
	t.Helper()
	if id == "" {
		id = "PROJ-001"
	}
	now := time.Now().UTC()
	err := sqlite.NewProjectRepository(database).Create(context.Background(), &secondary.ProjectRecord{
		ID:        id,
		Name:      "Test Project",
		ManagerID: "mgr-1",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "failed to seed project")
	return id
}

// seedTracker inserts a tracker for projectID pointing at lineItemID.
func seedTracker(t *testing.T, database *sql.DB, id, projectID, trade string, isMain bool, lineItemID string) string {
	t.Helper()
	now := time.Now().UTC()
	err := sqlite.NewTrackerRepository(database).Create(context.Background(), &secondary.TrackerRecord{
		ID:                id,
		ProjectID:         projectID,
		TradeType:         trade,
		IsMain:            isMain,
		CurrentPhaseID:    "PH-LEAD",
		CurrentSectionID:  "SEC-LEAD-INTAKE",
		CurrentLineItemID: lineItemID,
		TotalLineItems:    3,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	require.NoError(t, err, "failed to seed tracker")
	return id
}

// newAlert returns an ACTIVE MEDIUM line item alert due in a day.
func newAlert(id, projectID, trackerID, lineItemID string) *secondary.AlertRecord {
	now := time.Now().UTC()
	return &secondary.AlertRecord{
		ID:         id,
		ProjectID:  projectID,
		TrackerID:  trackerID,
		PhaseID:    "PH-LEAD",
		SectionID:  "SEC-LEAD-INTAKE",
		LineItemID: lineItemID,
		Kind:       "LINE_ITEM",
		Title:      "Log customer inquiry",
		Status:     "ACTIVE",
		Priority:   "MEDIUM",
		AssignedTo: "sales-1",
		DueDate:    now.Add(24 * time.Hour),
		CreatedAt:  now,
	}
}
