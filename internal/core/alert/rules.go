// Package alert contains the pure business logic for alert creation,
// retirement and overdue escalation.
package alert

import (
	"slices"
	"time"
)

// Status of an alert.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
)

// Priority of an alert.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Kind distinguishes line item alerts from the manager notices created on
// escalation.
const (
	KindLineItem   = "LINE_ITEM"
	KindEscalation = "ESCALATION"
)

// MetadataOriginalAlertID links an escalation alert back to its source.
const MetadataOriginalAlertID = "originalAlertId"

// DefaultDueDays applies when a line item does not set its own alert window.
const DefaultDueDays = 1

// ResolveAssignee picks the user responsible for a line item: the project's
// assignment for the item's role, else the responsible manager.
func ResolveAssignee(role string, roles map[string]string, managerID string) string {
	if user := roles[role]; user != "" {
		return user
	}
	return managerID
}

// DueDate returns when an alert reached at reachedAt becomes overdue.
func DueDate(reachedAt time.Time, alertDays, defaultDays int) time.Time {
	days := alertDays
	if days <= 0 {
		days = defaultDays
	}
	if days <= 0 {
		days = DefaultDueDays
	}
	return reachedAt.AddDate(0, 0, days)
}

// SuppressedBy returns overrideID when phaseID is one of the phases an
// active override skipped, else "".
func SuppressedBy(phaseID, overrideID string, suppressFor []string) string {
	if overrideID == "" || !slices.Contains(suppressFor, phaseID) {
		return ""
	}
	return overrideID
}

// EscalationCandidate is the view of an alert the escalation rules need.
type EscalationCandidate struct {
	Status     string
	Priority   string
	Kind       string
	DueDate    time.Time
	Suppressed bool
}

// ShouldEscalate reports whether an alert is overdue and not yet promoted.
func ShouldEscalate(c EscalationCandidate, now time.Time) bool {
	if c.Status != StatusActive || c.Priority == PriorityHigh || c.Suppressed {
		return false
	}
	if c.Kind == KindEscalation {
		return false
	}
	return c.DueDate.Before(now)
}

// NeedsManagerAlert reports whether escalation must notify the manager
// separately. The original alert's assignee is never rewritten.
func NeedsManagerAlert(assignee, managerID string) bool {
	return managerID != "" && assignee != managerID
}

// IsOverdue reports whether an active alert is past due.
func IsOverdue(status string, dueDate, now time.Time) bool {
	return status == StatusActive && dueDate.Before(now)
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
