package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	corealert "github.com/example/sitetrack/internal/core/alert"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// Scheduler defaults.
const (
	DefaultEscalationInterval = time.Hour
	DefaultRunTimeout         = 5 * time.Minute
	DefaultRetention          = 30 * 24 * time.Hour
)

// SchedulerConfig controls the escalation loop.
type SchedulerConfig struct {
	Interval   time.Duration
	RunTimeout time.Duration
	Retention  time.Duration // COMPLETED alerts older than this are purged; 0 disables purging
	RunOnStart bool
}

// EscalationSchedulerImpl implements the EscalationScheduler interface.
// It owns at most one loop goroutine.
type EscalationSchedulerImpl struct {
	rt          Runtime
	tx          secondary.Transactor
	alertRepo   secondary.AlertRepository
	projectRepo secondary.ProjectRepository
	cfg         SchedulerConfig

	running atomic.Bool // a pass is in flight

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEscalationScheduler creates a scheduler. Zero durations take defaults.
func NewEscalationScheduler(
	rt Runtime,
	tx secondary.Transactor,
	alertRepo secondary.AlertRepository,
	projectRepo secondary.ProjectRepository,
	cfg SchedulerConfig,
) *EscalationSchedulerImpl {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultEscalationInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	return &EscalationSchedulerImpl{
		rt:          rt.withDefaults(),
		tx:          tx,
		alertRepo:   alertRepo,
		projectRepo: projectRepo,
		cfg:         cfg,
	}
}

// Start launches the loop. The loop ends when ctx is cancelled or Stop is called.
func (s *EscalationSchedulerImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errs.Conflictf("escalation scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	s.rt.Logger.InfoContext(ctx, "escalation scheduler started", "interval", s.cfg.Interval, "run_timeout", s.cfg.RunTimeout)
	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (s *EscalationSchedulerImpl) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.rt.Logger.Info("escalation scheduler stopped")
}

// Running reports whether the loop is started.
func (s *EscalationSchedulerImpl) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *EscalationSchedulerImpl) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.cfg.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *EscalationSchedulerImpl) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	switch {
	case errs.Is(err, errs.KindConflict):
		s.rt.Logger.WarnContext(ctx, "escalation tick skipped: previous run still in progress")
	case err != nil:
		s.rt.Logger.ErrorContext(ctx, "escalation run failed", "error", err)
	default:
		s.rt.Logger.InfoContext(ctx, "escalation run finished",
			"scanned", report.Scanned, "escalated", report.Escalated,
			"manager_alerts", report.ManagerAlerts, "purged", report.Purged)
	}
}

// RunOnce escalates every overdue alert once and purges retired alerts past
// retention. A second pass over the same data escalates nothing.
func (s *EscalationSchedulerImpl) RunOnce(ctx context.Context) (*primary.EscalationReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.rt.Metrics.TickSkipped(ctx)
		return nil, errs.Conflictf("escalation run already in progress")
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	begin := time.Now()
	defer func() { s.rt.Metrics.RunFinished(ctx, time.Since(begin)) }()

	started := s.rt.Now()

	overdue, err := s.alertRepo.ListOverdue(ctx, secondary.OverdueFilters{Now: started, ExcludeHigh: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue alerts: %w", err)
	}

	report := &primary.EscalationReport{Scanned: len(overdue)}
	var failed []error
	for _, a := range overdue {
		if ctx.Err() != nil {
			failed = append(failed, ctx.Err())
			break
		}
		candidate := corealert.EscalationCandidate{
			Status:     a.Status,
			Priority:   a.Priority,
			Kind:       a.Kind,
			DueDate:    a.DueDate,
			Suppressed: a.SuppressedByOverrideID != "",
		}
		if !corealert.ShouldEscalate(candidate, started) {
			continue
		}

		escalated, notice, err := s.escalate(ctx, a)
		if err != nil {
			s.rt.Logger.ErrorContext(ctx, "failed to escalate alert", "alert", a.ID, "error", err)
			failed = append(failed, err)
			continue
		}
		if !escalated {
			continue
		}

		report.Escalated++
		report.EscalatedIDs = append(report.EscalatedIDs, a.ID)
		s.rt.Metrics.AlertEscalated(ctx)
		events := []secondary.Event{{
			Type:      secondary.EventAlertEscalated,
			ProjectID: a.ProjectID,
			TrackerID: a.TrackerID,
			AlertID:   a.ID,
			Data: map[string]string{
				"previousPriority": a.Priority,
				"priority":         corealert.PriorityHigh,
				"assignedTo":       a.AssignedTo,
			},
			Timestamp: s.rt.Now(),
		}}
		if notice != nil {
			report.ManagerAlerts++
			s.rt.Metrics.AlertCreated(ctx, notice.Kind)
			events = append(events, alertCreatedEvent(notice))
		}
		s.rt.publish(ctx, events)
	}

	if s.cfg.Retention > 0 && ctx.Err() == nil {
		purged, err := s.alertRepo.PurgeCompleted(ctx, started.Add(-s.cfg.Retention))
		if err != nil {
			failed = append(failed, fmt.Errorf("failed to purge retired alerts: %w", err))
		} else {
			report.Purged = purged
			s.rt.Metrics.AlertsPurged(ctx, purged)
		}
	}

	return report, errors.Join(failed...)
}

// escalate promotes one alert and notifies the manager in its own
// transaction. escalated is false when another writer got there first.
func (s *EscalationSchedulerImpl) escalate(ctx context.Context, a *secondary.AlertRecord) (bool, *secondary.AlertRecord, error) {
	var (
		escalated bool
		notice    *secondary.AlertRecord
	)
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		escalated, notice = false, nil

		now := s.rt.Now()
		ok, err := s.alertRepo.Escalate(ctx, a.ID, now)
		if err != nil || !ok {
			return err
		}
		escalated = true

		project, err := s.projectRepo.GetByID(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if !corealert.NeedsManagerAlert(a.AssignedTo, project.ManagerID) {
			return nil
		}
		existing, err := s.alertRepo.GetEscalationFor(ctx, a.ID)
		if err != nil || existing != nil {
			return err
		}

		metadata := map[string]string{corealert.MetadataOriginalAlertID: a.ID}
		if trade := a.Metadata["tradeType"]; trade != "" {
			metadata["tradeType"] = trade
		}
		record := &secondary.AlertRecord{
			ID:              uuid.NewString(),
			ProjectID:       a.ProjectID,
			TrackerID:       a.TrackerID,
			PhaseID:         a.PhaseID,
			SectionID:       a.SectionID,
			LineItemID:      a.LineItemID,
			Kind:            corealert.KindEscalation,
			Title:           "Overdue: " + a.Title,
			Status:          corealert.StatusActive,
			Priority:        corealert.PriorityHigh,
			AssignedTo:      project.ManagerID,
			OriginalAlertID: a.ID,
			Metadata:        metadata,
			DueDate:         now,
			CreatedAt:       now,
		}
		if err := s.alertRepo.Create(ctx, record); err != nil {
			if errs.Is(err, errs.KindConflict) {
				return nil
			}
			return err
		}
		notice = record
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return escalated, notice, nil
}

// Ensure EscalationSchedulerImpl implements the interface
var _ primary.EscalationScheduler = (*EscalationSchedulerImpl)(nil)
