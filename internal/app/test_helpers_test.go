package app

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/sitetrack/internal/adapters/sqlite"
	"github.com/example/sitetrack/internal/db"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// Ensure mockEventPublisher implements the interface
var _ secondary.EventPublisher = (*mockEventPublisher)(nil)

// mockEventPublisher records published events.
type mockEventPublisher struct {
	mu     sync.Mutex
	events []secondary.Event
	err    error
}

func (m *mockEventPublisher) Publish(ctx context.Context, event secondary.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockEventPublisher) ofType(t secondary.EventType) []secondary.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []secondary.Event
	for _, ev := range m.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakeClock is a settable clock shared by every service of a fixture.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires every service against a temp-file SQLite database seeded
// with the stock catalog.
type fixture struct {
	db          *sql.DB
	clock       *fakeClock
	events      *mockEventPublisher
	store       *sqlite.Store
	trackers    *sqlite.TrackerRepository
	alertRepo   *sqlite.AlertRepository
	projectRepo *sqlite.ProjectRepository
	catalog     *CatalogServiceImpl
	alerts      *AlertServiceImpl
	workflow    *WorkflowServiceImpl
	progress    *ProgressServiceImpl
	projects    *ProjectServiceImpl
	overrides   *OverrideServiceImpl
	query       *QueryServiceImpl
	scheduler   *EscalationSchedulerImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.SeedCatalog(database, db.DefaultCatalog()))

	f := &fixture{
		db:     database,
		clock:  &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		events: &mockEventPublisher{},
	}

	f.store = sqlite.NewStore(database)
	f.trackers = sqlite.NewTrackerRepository(database)
	f.alertRepo = sqlite.NewAlertRepository(database)
	f.projectRepo = sqlite.NewProjectRepository(database)
	overrideRepo := sqlite.NewOverrideRepository(database)
	auditRepo := sqlite.NewAuditRepository(database)

	rt := Runtime{
		Events: f.events,
		Audit:  sqlite.NewAuditWriterAdapter(auditRepo),
		Now:    f.clock.Now,
	}

	f.catalog = NewCatalogService(sqlite.NewCatalogRepository(database))
	f.alerts = NewAlertService(rt, f.store, f.alertRepo, f.trackers, f.projectRepo, overrideRepo, f.catalog, 1)
	f.workflow = NewWorkflowService(rt, f.store, f.trackers, f.projectRepo, overrideRepo, f.catalog, f.alerts)
	f.progress = NewProgressService(rt, f.trackers, f.projectRepo, f.catalog)
	f.projects = NewProjectService(rt, f.store, f.projectRepo, f.trackers, f.catalog, f.alerts)
	f.overrides = NewOverrideService(rt, f.store, overrideRepo, f.projectRepo, f.trackers, f.alertRepo, f.catalog, f.alerts)
	f.query = NewQueryService(f.projectRepo, f.trackers, auditRepo, f.catalog, f.progress, f.alerts, f.overrides)
	f.scheduler = NewEscalationScheduler(rt, f.store, f.alertRepo, f.projectRepo, SchedulerConfig{
		Interval:   time.Hour,
		RunTimeout: time.Minute,
		Retention:  720 * time.Hour,
	})
	return f
}

// createRoofingProject registers a ROOFING project managed by "mgr-1" with a
// sales rep assigned.
func (f *fixture) createRoofingProject(t *testing.T) *primary.CreateProjectResponse {
	t.Helper()
	resp, err := f.projects.CreateProject(context.Background(), primary.CreateProjectRequest{
		Name:      "Maple St reroof",
		ManagerID: "mgr-1",
		MainTrade: "ROOFING",
		Roles:     map[string]string{"sales_rep": "sales-1"},
	})
	require.NoError(t, err)
	return resp
}

// advance completes lineItemID on trackerID as "crew-1".
func (f *fixture) advance(t *testing.T, trackerID, lineItemID string) *primary.AdvanceResult {
	t.Helper()
	result, err := f.workflow.AdvanceTracker(context.Background(), primary.AdvanceRequest{
		TrackerID:   trackerID,
		LineItemID:  lineItemID,
		CompletedBy: "crew-1",
	})
	require.NoError(t, err, "advance %s", lineItemID)
	return result
}

// advanceTo completes items in order until the tracker points at lineItemID.
func (f *fixture) advanceTo(t *testing.T, trackerID, lineItemID string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		pos, err := f.workflow.GetPosition(context.Background(), trackerID)
		require.NoError(t, err)
		if pos.LineItemID == lineItemID {
			return
		}
		require.False(t, pos.Completed, "workflow finished before reaching %s", lineItemID)
		f.advance(t, trackerID, pos.LineItemID)
	}
	t.Fatalf("never reached %s", lineItemID)
}

// activeAlerts lists ACTIVE alerts of a tracker.
func (f *fixture) activeAlerts(t *testing.T, trackerID string) []*primary.Alert {
	t.Helper()
	alerts, err := f.alerts.ListAlerts(context.Background(), primary.AlertFilters{TrackerID: trackerID, Status: "ACTIVE"})
	require.NoError(t, err)
	return alerts
}
