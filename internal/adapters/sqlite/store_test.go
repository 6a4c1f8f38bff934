package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func TestStore_WithinTx(t *testing.T) {
	database := setupTestDB(t)
	store := sqlite.NewStore(database)
	projects := sqlite.NewProjectRepository(database)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("commits on success", func(t *testing.T) {
		err := store.WithinTx(ctx, func(ctx context.Context) error {
			return projects.Create(ctx, &secondary.ProjectRecord{ID: "PROJ-001", Name: "A", ManagerID: "m", CreatedAt: now, UpdatedAt: now})
		})
		require.NoError(t, err)

		_, err = projects.GetByID(ctx, "PROJ-001")
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(ctx context.Context) error {
			if err := projects.Create(ctx, &secondary.ProjectRecord{ID: "PROJ-002", Name: "B", ManagerID: "m", CreatedAt: now, UpdatedAt: now}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = projects.GetByID(ctx, "PROJ-002")
		assert.True(t, errs.Is(err, errs.KindNotFound), "expected not found, got %v", err)
	})

	t.Run("nested calls share the outer transaction", func(t *testing.T) {
		err := store.WithinTx(ctx, func(ctx context.Context) error {
			return store.WithinTx(ctx, func(ctx context.Context) error {
				return projects.Create(ctx, &secondary.ProjectRecord{ID: "PROJ-003", Name: "C", ManagerID: "m", CreatedAt: now, UpdatedAt: now})
			})
		})
		require.NoError(t, err)

		_, err = projects.GetByID(ctx, "PROJ-003")
		require.NoError(t, err)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = store.WithinTx(ctx, func(ctx context.Context) error {
				_ = projects.Create(ctx, &secondary.ProjectRecord{ID: "PROJ-004", Name: "D", ManagerID: "m", CreatedAt: now, UpdatedAt: now})
				panic("boom")
			})
		})

		_, err := projects.GetByID(ctx, "PROJ-004")
		assert.True(t, errs.Is(err, errs.KindNotFound))
	})

	t.Run("duplicate key is a conflict", func(t *testing.T) {
		err := projects.Create(ctx, &secondary.ProjectRecord{ID: "PROJ-001", Name: "A", ManagerID: "m", CreatedAt: now, UpdatedAt: now})
		assert.True(t, errs.Is(err, errs.KindConflict), "expected conflict, got %v", err)
	})
}
