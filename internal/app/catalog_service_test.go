package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// countingCatalogRepo wraps a catalog repository and counts line item loads.
type countingCatalogRepo struct {
	secondary.CatalogRepository
	itemLoads atomic.Int32
}

func (c *countingCatalogRepo) ListLineItems(ctx context.Context, tradeType string) ([]*secondary.LineItemRecord, error) {
	c.itemLoads.Add(1)
	return c.CatalogRepository.ListLineItems(ctx, tradeType)
}

func TestCatalogService_GetTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl, err := f.catalog.GetTemplate(ctx, "GUTTERS")
	require.NoError(t, err)
	assert.Equal(t, 3, tmpl.Count())
	assert.Equal(t, []string{"GT-APPR-01", "GT-EXEC-01", "GT-COMP-01"}, tmpl.Flatten())

	_, err = f.catalog.GetTemplate(ctx, "")
	assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)

	_, err = f.catalog.GetTemplate(ctx, "PLUMBING")
	assert.True(t, errs.Is(err, errs.KindNotFound), "got %v", err)
}

func TestCatalogService_GetTemplate_LoadsOnce(t *testing.T) {
	f := newFixture(t)
	repo := &countingCatalogRepo{CatalogRepository: f.catalog.catalogRepo}
	catalog := NewCatalogService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := catalog.GetTemplate(ctx, "ROOFING")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := catalog.GetTemplate(ctx, "ROOFING")
	require.NoError(t, err)

	assert.LessOrEqual(t, repo.itemLoads.Load(), int32(10))
	loads := repo.itemLoads.Load()

	_, err = catalog.GetTemplate(ctx, "ROOFING")
	require.NoError(t, err)
	assert.Equal(t, loads, repo.itemLoads.Load(), "cached template is reused")

	catalog.Invalidate()
	_, err = catalog.GetTemplate(ctx, "ROOFING")
	require.NoError(t, err)
	assert.Equal(t, loads+1, repo.itemLoads.Load())
}

func TestCatalogService_ListPhases(t *testing.T) {
	f := newFixture(t)

	phases, err := f.catalog.ListPhases(context.Background())

	require.NoError(t, err)
	require.Len(t, phases, 6)
	assert.Equal(t, "PH-LEAD", phases[0].ID)
	assert.Equal(t, "PH-COMP", phases[5].ID)
}

func TestCatalogService_ListTradeTypes(t *testing.T) {
	f := newFixture(t)

	trades, err := f.catalog.ListTradeTypes(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GUTTERS", "INTERIOR_PAINT", "ROOFING"}, trades)
}

func TestCatalogService_Label(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Hang gutters", f.catalog.Label(ctx, "GT-EXEC-01"))
	assert.Equal(t, "Second Supplement", f.catalog.Label(ctx, "PH-SUPP"))
	assert.Equal(t, "Closeout", f.catalog.Label(ctx, "SEC-COMP-CLOSE"))
	assert.Equal(t, "NOPE-1", f.catalog.Label(ctx, "NOPE-1"))
	assert.Equal(t, "", f.catalog.Label(ctx, ""))
}
