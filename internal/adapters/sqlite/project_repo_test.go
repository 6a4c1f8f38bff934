package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/errs"
)

func TestProjectRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewProjectRepository(database)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-001", id)

	seedProject(t, database, id)

	id, err = repo.GetNextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-002", id)

	require.NoError(t, repo.SetRole(ctx, "PROJ-001", "estimator", "est-1"))
	require.NoError(t, repo.SetRole(ctx, "PROJ-001", "estimator", "est-2"))
	roles, err := repo.GetRoles(ctx, "PROJ-001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"estimator": "est-2"}, roles)

	require.NoError(t, repo.UpdateDisplayedPhase(ctx, "PROJ-001", "PH-COMP"))
	got, err := repo.GetByID(ctx, "PROJ-001")
	require.NoError(t, err)
	assert.Equal(t, "PH-COMP", got.DisplayedPhaseID)
	assert.Equal(t, "mgr-1", got.ManagerID)

	err = repo.UpdateDisplayedPhase(ctx, "PROJ-404", "PH-COMP")
	assert.True(t, errs.Is(err, errs.KindNotFound))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
