package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func setupAlertRepo(t *testing.T) (*sqlite.AlertRepository, string, string) {
	t.Helper()
	database := setupTestDB(t)
	projectID := seedProject(t, database, "")
	trackerID := seedTracker(t, database, "WF-001", projectID, "ROOFING", true, "RF-LEAD-01")
	return sqlite.NewAlertRepository(database), projectID, trackerID
}

func TestAlertRepository_OneActivePerLineItem(t *testing.T) {
	repo, projectID, trackerID := setupAlertRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAlert("A-1", projectID, trackerID, "RF-LEAD-01")))

	err := repo.Create(ctx, newAlert("A-2", projectID, trackerID, "RF-LEAD-01"))
	assert.True(t, errs.Is(err, errs.KindConflict), "expected conflict, got %v", err)

	got, err := repo.GetActiveForLineItem(ctx, projectID, "RF-LEAD-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A-1", got.ID)

	retired, err := repo.Retire(ctx, "A-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, retired)

	// A retired alert no longer blocks a new one.
	require.NoError(t, repo.Create(ctx, newAlert("A-3", projectID, trackerID, "RF-LEAD-01")))

	none, err := repo.GetActiveForLineItem(ctx, projectID, "RF-LEAD-02")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAlertRepository_Retire(t *testing.T) {
	repo, projectID, trackerID := setupAlertRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAlert("A-1", projectID, trackerID, "RF-LEAD-01")))

	retired, err := repo.Retire(ctx, "A-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, retired)

	retired, err = repo.Retire(ctx, "A-1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, retired, "second retire is a no-op")

	_, err = repo.Retire(ctx, "missing", time.Now().UTC())
	assert.True(t, errs.Is(err, errs.KindNotFound))

	got, err := repo.GetByID(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestAlertRepository_EscalationLifecycle(t *testing.T) {
	repo, projectID, trackerID := setupAlertRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := newAlert("A-1", projectID, trackerID, "RF-LEAD-01")
	overdue.DueDate = now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, overdue))

	fresh := newAlert("A-2", projectID, trackerID, "RF-LEAD-02")
	require.NoError(t, repo.Create(ctx, fresh))

	list, err := repo.ListOverdue(ctx, secondary.OverdueFilters{Now: now, ExcludeHigh: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A-1", list[0].ID)

	escalated, err := repo.Escalate(ctx, "A-1", now)
	require.NoError(t, err)
	assert.True(t, escalated)

	escalated, err = repo.Escalate(ctx, "A-1", now)
	require.NoError(t, err)
	assert.False(t, escalated, "already HIGH")

	got, err := repo.GetByID(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, "HIGH", got.Priority)
	assert.Equal(t, "MEDIUM", got.PreviousPriority)
	require.NotNil(t, got.EscalatedAt)

	list, err = repo.ListOverdue(ctx, secondary.OverdueFilters{Now: now, ExcludeHigh: true})
	require.NoError(t, err)
	assert.Empty(t, list)

	manager := newAlert("E-1", projectID, trackerID, "RF-LEAD-01")
	manager.Kind = "ESCALATION"
	manager.AssignedTo = "mgr-1"
	manager.OriginalAlertID = "A-1"
	manager.Metadata = map[string]string{"originalAlertId": "A-1"}
	require.NoError(t, repo.Create(ctx, manager), "escalation alert coexists with the active line item alert")

	dup := newAlert("E-2", projectID, trackerID, "RF-LEAD-01")
	dup.Kind = "ESCALATION"
	dup.OriginalAlertID = "A-1"
	err = repo.Create(ctx, dup)
	assert.True(t, errs.Is(err, errs.KindConflict), "expected conflict, got %v", err)

	linked, err := repo.GetEscalationFor(ctx, "A-1")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, "A-1", linked.Metadata["originalAlertId"])

	n, err := repo.RetireLinked(ctx, "A-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAlertRepository_Suppression(t *testing.T) {
	repo, projectID, trackerID := setupAlertRepo(t)
	ctx := context.Background()

	supp := newAlert("A-1", projectID, trackerID, "RF-SUPP-01")
	supp.PhaseID = "PH-SUPP"
	require.NoError(t, repo.Create(ctx, supp))
	require.NoError(t, repo.Create(ctx, newAlert("A-2", projectID, trackerID, "RF-LEAD-01")))

	n, err := repo.Suppress(ctx, projectID, []string{"PH-SUPP"}, "OV-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Suppress(ctx, projectID, nil, "OV-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	yes := true
	suppressed, err := repo.List(ctx, secondary.AlertFilters{ProjectID: projectID, Suppressed: &yes})
	require.NoError(t, err)
	require.Len(t, suppressed, 1)
	assert.Equal(t, "OV-1", suppressed[0].SuppressedByOverrideID)

	overdue, err := repo.ListOverdue(ctx, secondary.OverdueFilters{Now: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, overdue, 1, "suppressed alerts are never overdue")
	assert.Equal(t, "A-2", overdue[0].ID)

	n, err = repo.Unsuppress(ctx, "OV-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	suppressed, err = repo.List(ctx, secondary.AlertFilters{ProjectID: projectID, Suppressed: &yes})
	require.NoError(t, err)
	assert.Empty(t, suppressed)
}

func TestAlertRepository_PurgeCompleted(t *testing.T) {
	repo, projectID, trackerID := setupAlertRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newAlert("A-1", projectID, trackerID, "RF-LEAD-01")))
	require.NoError(t, repo.Create(ctx, newAlert("A-2", projectID, trackerID, "RF-LEAD-02")))
	_, err := repo.Retire(ctx, "A-1", now.Add(-48*time.Hour))
	require.NoError(t, err)

	n, err := repo.PurgeCompleted(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, "A-1")
	assert.True(t, errs.Is(err, errs.KindNotFound))

	_, err = repo.GetByID(ctx, "A-2")
	assert.NoError(t, err, "active alerts are never purged")
}
