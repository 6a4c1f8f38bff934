package primary

import "context"

// EscalationScheduler defines the primary port for overdue alert escalation.
// Exactly one scheduler should be started per process.
type EscalationScheduler interface {
	// Start begins periodic escalation. Returns an error if already started.
	Start(ctx context.Context) error

	// Stop halts the loop and waits for an in-flight run to finish.
	Stop()

	// RunOnce performs a single escalation pass. Returns a conflict error if
	// another pass is in progress.
	RunOnce(ctx context.Context) (*EscalationReport, error)

	// Running reports whether the loop is started.
	Running() bool
}

// EscalationReport summarizes one escalation pass.
type EscalationReport struct {
	Scanned       int
	Escalated     int
	ManagerAlerts int
	Purged        int
	EscalatedIDs  []string
}
