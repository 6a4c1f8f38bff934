package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func TestEscalationScheduler_RunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)

	f.clock.Advance(48 * time.Hour)

	report, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 1, report.ManagerAlerts, "assignee sales-1 is not the manager")
	assert.Equal(t, []string{resp.Alert.ID}, report.EscalatedIDs)

	original, err := f.alerts.GetAlert(ctx, resp.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "HIGH", original.Priority)
	assert.Equal(t, "MEDIUM", original.PreviousPriority)
	assert.Equal(t, "sales-1", original.AssignedTo, "assignee is never rewritten")
	require.NotNil(t, original.EscalatedAt)

	notices, err := f.alerts.ListAlerts(ctx, primary.AlertFilters{ProjectID: resp.Project.ID, Kind: "ESCALATION"})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "mgr-1", notices[0].AssignedTo)
	assert.Equal(t, resp.Alert.ID, notices[0].OriginalAlertID)
	assert.Equal(t, resp.Alert.ID, notices[0].Metadata["originalAlertId"])
	assert.Equal(t, "HIGH", notices[0].Priority)

	assert.Len(t, f.events.ofType(secondary.EventAlertEscalated), 1)

	again, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Escalated)
	assert.Equal(t, 0, again.ManagerAlerts)
	assert.Len(t, f.events.ofType(secondary.EventAlertEscalated), 1)
}

func TestEscalationScheduler_RunOnce_ManagerAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, primary.CreateProjectRequest{Name: "P", ManagerID: "mgr-1", MainTrade: "GUTTERS"})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)

	report, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 0, report.ManagerAlerts, "manager already owns the alert")
}

func TestEscalationScheduler_RunOnce_SkipsSuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projectID := f.createRoofingProject(t).Project.ID
	_, err := f.projects.AddTrade(ctx, projectID, "GUTTERS")
	require.NoError(t, err)
	_, err = f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: projectID, ToPhase: "EXECUTION", Reason: "rush", ActorID: "mgr-1"})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)

	report, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated, "only the unsuppressed roofing alert escalates")
}

func TestEscalationScheduler_RunOnce_PurgesRetired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)
	f.advance(t, resp.Workflow.TrackerID, "RF-LEAD-01")

	f.clock.Advance(31 * 24 * time.Hour)

	report, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)

	_, err = f.alerts.GetAlert(ctx, resp.Alert.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound), "got %v", err)
}

func TestEscalationScheduler_RunOnce_NotReentrant(t *testing.T) {
	f := newFixture(t)
	f.scheduler.running.Store(true)

	_, err := f.scheduler.RunOnce(context.Background())

	assert.True(t, errs.Is(err, errs.KindConflict), "got %v", err)
	f.scheduler.running.Store(false)
}

func TestEscalationScheduler_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Start(ctx))
	assert.True(t, f.scheduler.Running())

	err := f.scheduler.Start(ctx)
	assert.True(t, errs.Is(err, errs.KindConflict), "got %v", err)

	f.scheduler.Stop()
	assert.False(t, f.scheduler.Running())
	f.scheduler.Stop()

	require.NoError(t, f.scheduler.Start(ctx), "restart after stop")
	f.scheduler.Stop()
}

func TestEscalationScheduler_RunOnStart(t *testing.T) {
	f := newFixture(t)
	f.createRoofingProject(t)
	f.clock.Advance(48 * time.Hour)

	s := NewEscalationScheduler(Runtime{Events: f.events, Now: f.clock.Now}, f.store, f.alertRepo, f.projectRepo, SchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(f.events.ofType(secondary.EventAlertEscalated)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}
