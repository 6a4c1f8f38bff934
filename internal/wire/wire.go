// Package wire provides dependency injection for the sitetrack application.
// It builds every adapter and service from a loaded configuration.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/example/sitetrack/internal/adapters/natsbus"
	"github.com/example/sitetrack/internal/adapters/realtime"
	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/app"
	"github.com/example/sitetrack/internal/config"
	"github.com/example/sitetrack/internal/db"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
	"github.com/example/sitetrack/internal/telemetry"
	"github.com/example/sitetrack/internal/version"
)

// App holds the wired services for one process.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB
	Hub    *realtime.Hub

	Catalog   primary.CatalogService
	Projects  primary.ProjectService
	Workflows primary.WorkflowService
	Progress  primary.ProgressService
	Alerts    primary.AlertService
	Overrides primary.OverrideService
	Query     primary.QueryService
	Scheduler primary.EscalationScheduler

	closers []func(context.Context) error
}

// New opens the database, seeds the stock catalog into an empty database,
// connects optional collaborators and builds every service. logOut receives
// structured logs.
func New(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := NewLogger(cfg.Log, logOut)
	a := &App{Config: cfg, Logger: logger}

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		Stdout:         cfg.Telemetry.Stdout,
		ServiceName:    "sitetrack",
		ServiceVersion: version.Version,
		ExportInterval: cfg.Telemetry.ExportInterval,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	metrics, err := telemetry.Global()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.DB = database
	a.closers = append(a.closers, func(context.Context) error { return database.Close() })

	catalogRepo := sqlite.NewCatalogRepository(database)
	if err := seedIfEmpty(ctx, database, catalogRepo); err != nil {
		a.Close(ctx)
		return nil, err
	}

	// Push and audit fan-out. The local audit log always records; NATS is
	// added when configured.
	a.Hub = realtime.NewHub(0)
	auditRepo := sqlite.NewAuditRepository(database)
	events := realtime.MultiEventPublisher{a.Hub}
	audits := realtime.MultiAuditPublisher{sqlite.NewAuditWriterAdapter(auditRepo)}
	if url := strings.TrimSpace(cfg.NATS.URL); url != "" {
		bus, err := natsbus.Connect(url, cfg.NATS.ClientName, cfg.NATS.SubjectPrefix)
		if err != nil {
			// The messaging collaborator is best effort; run without it.
			logger.WarnContext(ctx, "nats unavailable, continuing without it", "url", url, "error", err)
		} else {
			events = append(events, bus)
			audits = append(audits, bus)
			a.closers = append(a.closers, func(context.Context) error { return bus.Close() })
		}
	}

	rt := app.Runtime{
		Logger:  logger,
		Metrics: metrics,
		Events:  events,
		Audit:   audits,
	}
	a.build(rt, database, catalogRepo, auditRepo)
	return a, nil
}

func (a *App) build(rt app.Runtime, database *sql.DB, catalogRepo secondary.CatalogRepository, auditRepo secondary.AuditRepository) {
	store := sqlite.NewStore(database)
	projectRepo := sqlite.NewProjectRepository(database)
	trackerRepo := sqlite.NewTrackerRepository(database)
	alertRepo := sqlite.NewAlertRepository(database)
	overrideRepo := sqlite.NewOverrideRepository(database)

	catalog := app.NewCatalogService(catalogRepo)
	alerts := app.NewAlertService(rt, store, alertRepo, trackerRepo, projectRepo, overrideRepo, catalog, a.Config.Alerts.DefaultDueDays)
	progress := app.NewProgressService(rt, trackerRepo, projectRepo, catalog)
	overrides := app.NewOverrideService(rt, store, overrideRepo, projectRepo, trackerRepo, alertRepo, catalog, alerts)

	a.Catalog = catalog
	a.Alerts = alerts
	a.Progress = progress
	a.Overrides = overrides
	a.Workflows = app.NewWorkflowService(rt, store, trackerRepo, projectRepo, overrideRepo, catalog, alerts)
	a.Projects = app.NewProjectService(rt, store, projectRepo, trackerRepo, catalog, alerts)
	a.Query = app.NewQueryService(projectRepo, trackerRepo, auditRepo, catalog, progress, alerts, overrides)
	a.Scheduler = app.NewEscalationScheduler(rt, store, alertRepo, projectRepo, app.SchedulerConfig{
		Interval:   a.Config.Scheduler.Interval,
		RunTimeout: a.Config.Scheduler.RunTimeout,
		Retention:  a.Config.Scheduler.Retention,
		RunOnStart: a.Config.Scheduler.RunOnStart,
	})
}

// Close stops the scheduler and releases resources in reverse order.
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func seedIfEmpty(ctx context.Context, database *sql.DB, catalogRepo secondary.CatalogRepository) error {
	phases, err := catalogRepo.ListPhases(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if len(phases) > 0 {
		return nil
	}
	return db.SeedCatalog(database, db.DefaultCatalog())
}
