package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/ctxutil"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func TestAuditWriterAdapter(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewAuditRepository(database)
	writer := sqlite.NewAuditWriterAdapter(repo)
	ctx := ctxutil.WithActorID(context.Background(), "mgr-1")
	now := time.Now().UTC()

	require.NoError(t, writer.PublishAudit(ctx, secondary.AuditEvent{
		Type: secondary.AuditPhaseOverrideLogged, ProjectID: "PROJ-001",
		FromPhaseID: "PH-EXEC", ToPhaseID: "PH-COMP", OverrideID: "OV-1", Timestamp: now,
	}))
	require.NoError(t, writer.PublishAudit(ctx, secondary.AuditEvent{
		Type: secondary.AuditPhaseOverrideReverted, ProjectID: "PROJ-001", ActorID: "mgr-2",
		FromPhaseID: "PH-COMP", ToPhaseID: "PH-EXEC", OverrideID: "OV-1", Timestamp: now.Add(time.Second),
		Details: map[string]string{"override": "PH-EXEC->PH-COMP", "revert": "PH-COMP->PH-EXEC"},
	}))

	entries, err := repo.List(ctx, secondary.AuditFilters{ProjectID: "PROJ-001"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, secondary.AuditPhaseOverrideLogged, entries[0].EventType)
	assert.Equal(t, "mgr-1", entries[0].ActorID, "actor taken from context")
	assert.Equal(t, "mgr-2", entries[1].ActorID)
	assert.Equal(t, "PH-COMP->PH-EXEC", entries[1].Details["revert"])

	reverts, err := repo.List(ctx, secondary.AuditFilters{EventType: secondary.AuditPhaseOverrideReverted})
	require.NoError(t, err)
	assert.Len(t, reverts, 1)
}
