package app

import (
	"context"
	"fmt"

	"github.com/example/sitetrack/internal/core/progress"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// ProgressServiceImpl implements the ProgressService interface.
// Totals always come from the live template; the tracker's cached total is
// only compared against it.
type ProgressServiceImpl struct {
	rt          Runtime
	trackerRepo secondary.TrackerRepository
	projectRepo secondary.ProjectRepository
	catalog     primary.CatalogService
}

// NewProgressService creates a new ProgressService with injected dependencies.
func NewProgressService(
	rt Runtime,
	trackerRepo secondary.TrackerRepository,
	projectRepo secondary.ProjectRepository,
	catalog primary.CatalogService,
) *ProgressServiceImpl {
	return &ProgressServiceImpl{
		rt:          rt.withDefaults(),
		trackerRepo: trackerRepo,
		projectRepo: projectRepo,
		catalog:     catalog,
	}
}

// ComputeProgress returns a tracker's completion and heals a stale cached total.
func (s *ProgressServiceImpl) ComputeProgress(ctx context.Context, trackerID string) (*primary.Progress, error) {
	tracker, err := s.trackerRepo.GetByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	p, err := s.compute(ctx, tracker, true)
	if err != nil {
		return nil, err
	}
	return &primary.Progress{CompletedCount: p.CompletedCount, TotalCount: p.TotalCount, Percent: p.Percent}, nil
}

// ComputeTradeBreakdown returns one entry per tracker, main trade first.
func (s *ProgressServiceImpl) ComputeTradeBreakdown(ctx context.Context, projectID string) ([]*primary.TradeProgress, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	trackers, err := s.trackerRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}

	breakdown := make([]*primary.TradeProgress, 0, len(trackers))
	for _, tr := range trackers {
		p, err := s.compute(ctx, tr, true)
		if err != nil {
			return nil, err
		}
		breakdown = append(breakdown, &primary.TradeProgress{
			TrackerID:      tr.ID,
			TradeName:      tr.TradeType,
			IsMainTrade:    tr.IsMain,
			CompletedCount: p.CompletedCount,
			TotalCount:     p.TotalCount,
			Percent:        p.Percent,
		})
	}
	return breakdown, nil
}

// ComputeOverallProgress averages trade percentages over trades that have
// line items.
func (s *ProgressServiceImpl) ComputeOverallProgress(ctx context.Context, projectID string) (*primary.OverallProgress, error) {
	trades, err := s.ComputeTradeBreakdown(ctx, projectID)
	if err != nil {
		return nil, err
	}

	values := make([]progress.Progress, len(trades))
	for i, tr := range trades {
		values[i] = progress.Progress{CompletedCount: tr.CompletedCount, TotalCount: tr.TotalCount, Percent: tr.Percent}
	}
	percent, counted := progress.Overall(values)

	return &primary.OverallProgress{Percent: percent, CountedTrades: counted, Trades: trades}, nil
}

// compute derives live progress for a tracker. With heal set, a cached total
// that disagrees with the template is rewritten.
func (s *ProgressServiceImpl) compute(ctx context.Context, tracker *secondary.TrackerRecord, heal bool) (progress.Progress, error) {
	total := 0
	inTemplate := func(string) bool { return false }

	t, err := s.catalog.GetTemplate(ctx, tracker.TradeType)
	switch {
	case err == nil:
		total = t.Count()
		inTemplate = t.Contains
	case errs.Is(err, errs.KindNotFound):
		// Every item of the trade was deactivated; progress is 0 of 0.
	default:
		return progress.Progress{}, err
	}

	records, err := s.trackerRepo.ListCompletedItems(ctx, tracker.ID)
	if err != nil {
		return progress.Progress{}, fmt.Errorf("failed to list completed items: %w", err)
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.LineItemID
	}

	if progress.Drifted(tracker.TotalLineItems, total) {
		s.rt.Metrics.CacheDrift(ctx, tracker.TradeType)
		s.rt.Logger.WarnContext(ctx, "tracker line item total drifted from template",
			"tracker", tracker.ID, "trade", tracker.TradeType, "cached", tracker.TotalLineItems, "live", total, "heal", heal)
		if heal {
			if err := s.trackerRepo.UpdateTotalLineItems(ctx, tracker.ID, total); err != nil {
				s.rt.Logger.WarnContext(ctx, "failed to heal tracker total", "tracker", tracker.ID, "error", err)
			}
		}
	}

	return progress.Compute(progress.CountCompleted(ids, inTemplate), total), nil
}

// Ensure ProgressServiceImpl implements the interface
var _ primary.ProgressService = (*ProgressServiceImpl)(nil)
