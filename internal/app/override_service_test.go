package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func TestOverrideService_ExecutionToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)
	projectID := resp.Project.ID
	f.advanceTo(t, resp.Workflow.TrackerID, "RF-EXEC-01")

	o, err := f.overrides.Override(ctx, primary.OverrideRequest{
		ProjectID: projectID,
		ToPhase:   "completion",
		Reason:    "insurer skipped supplement",
		ActorID:   "mgr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "PH-EXEC", o.FromPhaseID)
	assert.Equal(t, "EXECUTION", o.FromPhaseType)
	assert.Equal(t, "PH-COMP", o.ToPhaseID)
	assert.Equal(t, "COMPLETION", o.ToPhaseType)
	assert.Equal(t, []string{"PH-SUPP"}, o.SuppressAlertsFor)
	assert.Equal(t, resp.Workflow.TrackerID, o.TrackerID)
	assert.True(t, o.IsActive)

	pos, err := f.query.GetProjectPosition(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "PH-COMP", pos.EffectivePhaseID)
	assert.Equal(t, "PH-COMP", pos.DisplayedPhaseID)
	assert.Equal(t, "PH-EXEC", pos.Main.PhaseID, "the tracker pointer does not move")
	require.NotNil(t, pos.ActiveOverride)
	assert.Equal(t, o.ID, pos.ActiveOverride.ID)

	require.Len(t, f.events.ofType(secondary.EventPhaseOverridden), 1)

	reverted, err := f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: o.ID, ActorID: "mgr-1"})
	require.NoError(t, err)
	assert.False(t, reverted.IsActive)
	assert.Equal(t, "mgr-1", reverted.RevertedBy)
	require.NotNil(t, reverted.RevertedAt)

	pos, err = f.query.GetProjectPosition(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "PH-EXEC", pos.EffectivePhaseID)
	assert.Equal(t, "PH-EXEC", pos.DisplayedPhaseID)
	assert.Nil(t, pos.ActiveOverride)

	entries, err := f.query.ListAuditEntries(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, secondary.AuditPhaseOverrideLogged, entries[0].EventType)
	assert.Equal(t, "PH-EXEC", entries[0].FromPhaseID)
	assert.Equal(t, "PH-COMP", entries[0].ToPhaseID)

	revert := entries[1]
	assert.Equal(t, secondary.AuditPhaseOverrideReverted, revert.EventType)
	assert.Equal(t, o.ID, revert.OverrideID)
	assert.Equal(t, "mgr-1", revert.ActorID)
	assert.Equal(t, "EXECUTION->COMPLETION", revert.Details["override"])
	assert.Equal(t, "COMPLETION->EXECUTION", revert.Details["revert"])
}

func TestOverrideService_SuppressesSkippedPhaseAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)
	projectID := resp.Project.ID

	gutters, err := f.projects.AddTrade(ctx, projectID, "GUTTERS")
	require.NoError(t, err)
	require.Len(t, f.activeAlerts(t, gutters.TrackerID), 1) // GT-APPR-01 in APPROVED

	o, err := f.overrides.Override(ctx, primary.OverrideRequest{
		ProjectID: projectID,
		ToPhase:   "PH-EXEC",
		Reason:    "rush job",
		ActorID:   "mgr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PH-PROS", "PH-APPR"}, o.SuppressAlertsFor)
	assert.Equal(t, 1, o.SuppressedAlerts)

	suppressed, err := f.query.ListSuppressedAlerts(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, suppressed, 1)
	assert.Equal(t, "GT-APPR-01", suppressed[0].LineItemID)
	assert.Equal(t, o.ID, suppressed[0].SuppressedByOverrideID)

	// Items of the target phase are legal advance targets for every trade.
	result := f.advance(t, gutters.TrackerID, "GT-EXEC-01")
	assert.Equal(t, "GT-COMP-01", result.Position.LineItemID)

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: o.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	suppressed, err = f.query.ListSuppressedAlerts(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, suppressed)
}

func TestOverrideService_ReplacesActiveOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projectID := f.createRoofingProject(t).Project.ID

	first, err := f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: projectID, ToPhase: "APPROVED", Reason: "signed early", ActorID: "mgr-1"})
	require.NoError(t, err)
	second, err := f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: projectID, ToPhase: "EXECUTION", Reason: "crew free", ActorID: "mgr-1"})
	require.NoError(t, err)

	assert.Equal(t, "PH-APPR", second.FromPhaseID, "effective phase is the previous override's target")

	list, err := f.overrides.ListOverrides(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].IsActive)
	assert.Equal(t, first.ID, list[1].ID)
	assert.False(t, list[1].IsActive)

	active, err := f.overrides.GetActiveOverride(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestOverrideService_Override_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projectID := f.createRoofingProject(t).Project.ID

	tests := []struct {
		name     string
		req      primary.OverrideRequest
		wantKind errs.Kind
	}{
		{"unknown phase", primary.OverrideRequest{ProjectID: projectID, ToPhase: "DEMOLITION", Reason: "x", ActorID: "mgr-1"}, errs.KindValidation},
		{"same phase", primary.OverrideRequest{ProjectID: projectID, ToPhase: "LEAD", Reason: "x", ActorID: "mgr-1"}, errs.KindConflict},
		{"missing reason", primary.OverrideRequest{ProjectID: projectID, ToPhase: "EXECUTION", ActorID: "mgr-1"}, errs.KindValidation},
		{"missing actor", primary.OverrideRequest{ProjectID: projectID, ToPhase: "EXECUTION", Reason: "x"}, errs.KindValidation},
		{"unknown project", primary.OverrideRequest{ProjectID: "PROJ-404", ToPhase: "EXECUTION", Reason: "x", ActorID: "mgr-1"}, errs.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.overrides.Override(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.wantKind), "got %v", err)
		})
	}

	active, err := f.overrides.GetActiveOverride(ctx, projectID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestOverrideService_Revert_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projectID := f.createRoofingProject(t).Project.ID
	other, err := f.projects.CreateProject(ctx, primary.CreateProjectRequest{Name: "Other", ManagerID: "mgr-9", MainTrade: "GUTTERS"})
	require.NoError(t, err)

	o, err := f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: projectID, ToPhase: "EXECUTION", Reason: "rush", ActorID: "mgr-1"})
	require.NoError(t, err)

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: other.Project.ID, OverrideID: o.ID, ActorID: "mgr-1"})
	assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: o.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: o.ID, ActorID: "mgr-1"})
	assert.True(t, errs.Is(err, errs.KindConflict), "got %v", err)

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: "nope", ActorID: "mgr-1"})
	assert.True(t, errs.Is(err, errs.KindNotFound), "got %v", err)
}

func TestOverrideService_Revert_ResumesMainTracker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)
	projectID := resp.Project.ID
	trackerID := resp.Workflow.TrackerID
	f.advanceTo(t, trackerID, "RF-EXEC-01")

	o, err := f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: projectID, ToPhase: "COMPLETION", Reason: "insurer skipped supplement", ActorID: "mgr-1"})
	require.NoError(t, err)
	f.advance(t, trackerID, "RF-COMP-01")

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: projectID, OverrideID: o.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	pos, err := f.query.GetProjectPosition(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "PH-EXEC", pos.Main.PhaseID)
	assert.Equal(t, "RF-EXEC-01", pos.Main.LineItemID)
	assert.Equal(t, "PH-EXEC", pos.EffectivePhaseID)
	assert.Equal(t, "PH-EXEC", pos.DisplayedPhaseID)

	active := f.activeAlerts(t, trackerID)
	require.Len(t, active, 1)
	assert.Equal(t, "RF-EXEC-01", active[0].LineItemID)
	assert.Equal(t, "COMPLETED", alertStatusFor(t, f, trackerID, "RF-COMP-02"))

	advanced := f.events.ofType(secondary.EventTrackerAdvanced)
	require.NotEmpty(t, advanced)
	last := advanced[len(advanced)-1]
	assert.Equal(t, o.ID, last.Data["overrideId"])
	assert.Equal(t, "RF-EXEC-01", last.Data["lineItemId"])

	t.Run("work done under the override is kept", func(t *testing.T) {
		f.advanceTo(t, trackerID, "RF-COMP-02")

		items, err := f.workflow.ListCompletedItems(ctx, trackerID)
		require.NoError(t, err)
		assert.Len(t, items, 16)

		result := f.advance(t, trackerID, "RF-COMP-02")
		assert.True(t, result.WorkflowCompleted)
	})
}

func TestOverrideService_Revert_LeavesUnmovedTracker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.createRoofingProject(t)
	trackerID := resp.Workflow.TrackerID

	o, err := f.overrides.Override(ctx, primary.OverrideRequest{ProjectID: resp.Project.ID, ToPhase: "PROSPECT", Reason: "inspection booked", ActorID: "mgr-1"})
	require.NoError(t, err)
	f.advance(t, trackerID, "RF-LEAD-01")
	before := len(f.events.ofType(secondary.EventTrackerAdvanced))

	_, err = f.overrides.Revert(ctx, primary.RevertRequest{ProjectID: resp.Project.ID, OverrideID: o.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	pos, err := f.workflow.GetPosition(ctx, trackerID)
	require.NoError(t, err)
	assert.Equal(t, "RF-LEAD-02", pos.LineItemID, "normal progress made under the override stays")
	assert.Len(t, f.events.ofType(secondary.EventTrackerAdvanced), before)
}
