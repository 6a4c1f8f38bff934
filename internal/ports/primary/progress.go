package primary

import "context"

// ProgressService defines the primary port for completion percentages.
type ProgressService interface {
	// ComputeProgress returns a tracker's completion, healing a stale
	// totalLineItems cache.
	ComputeProgress(ctx context.Context, trackerID string) (*Progress, error)

	// ComputeTradeBreakdown returns one independently computed entry per tracker.
	ComputeTradeBreakdown(ctx context.Context, projectID string) ([]*TradeProgress, error)

	// ComputeOverallProgress averages trade percentages, ignoring empty trades.
	ComputeOverallProgress(ctx context.Context, projectID string) (*OverallProgress, error)
}

// Progress is a tracker's completion.
type Progress struct {
	CompletedCount int
	TotalCount     int
	Percent        int
}

// TradeProgress is one entry of a project's trade breakdown.
type TradeProgress struct {
	TrackerID      string
	TradeName      string
	IsMainTrade    bool
	CompletedCount int
	TotalCount     int
	Percent        int
}

// OverallProgress is the simple average across a project's trades.
type OverallProgress struct {
	Percent       int
	CountedTrades int
	Trades        []*TradeProgress
}
