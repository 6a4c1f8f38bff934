// Package override contains the pure business logic for manual phase
// overrides. Guards are pure functions that evaluate preconditions without
// side effects.
package override

import (
	"fmt"
	"strings"

	"github.com/example/sitetrack/internal/core/template"
	"github.com/example/sitetrack/internal/errs"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    errs.Kind
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return errs.New(r.Kind, "%s", r.Reason)
}

// OverrideContext provides context for override creation guards.
type OverrideContext struct {
	ProjectID      string
	CurrentPhaseID string
	RequestedPhase string
	ToPhaseKnown   bool
	ToPhaseID      string
	Reason         string
}

// RevertContext provides context for revert guards.
type RevertContext struct {
	OverrideID        string
	ProjectID         string
	OverrideProjectID string
	IsActive          bool
}

// CanOverride evaluates whether a project's phase may be overridden.
// Rules:
// - Target phase must exist in the catalog
// - Target phase must differ from the current effective phase
// - A reason must be given (audit trail)
func CanOverride(ctx OverrideContext) GuardResult {
	if !ctx.ToPhaseKnown {
		return GuardResult{Kind: errs.KindValidation, Reason: fmt.Sprintf("unknown phase %q", ctx.RequestedPhase)}
	}
	if strings.TrimSpace(ctx.Reason) == "" {
		return GuardResult{Kind: errs.KindValidation, Reason: "an override reason is required"}
	}
	if ctx.ToPhaseID == ctx.CurrentPhaseID {
		return GuardResult{
			Kind:   errs.KindConflict,
			Reason: fmt.Sprintf("project %s is already in phase %s", ctx.ProjectID, ctx.ToPhaseID),
		}
	}
	return GuardResult{Allowed: true}
}

// CanRevert evaluates whether an override may be reverted.
// Rules:
// - Override must belong to the project
// - Override must still be active
func CanRevert(ctx RevertContext) GuardResult {
	if ctx.OverrideProjectID != ctx.ProjectID {
		return GuardResult{
			Kind:   errs.KindValidation,
			Reason: fmt.Sprintf("override %s does not belong to project %s", ctx.OverrideID, ctx.ProjectID),
		}
	}
	if !ctx.IsActive {
		return GuardResult{
			Kind:   errs.KindConflict,
			Reason: fmt.Sprintf("override %s is not active", ctx.OverrideID),
		}
	}
	return GuardResult{Allowed: true}
}

// ResolvePhase finds a phase by ID or by type tag (case-insensitive).
func ResolvePhase(phases []template.Phase, ref string) (template.Phase, bool) {
	for _, p := range phases {
		if p.ID == ref || strings.EqualFold(string(p.Type), ref) {
			return p, true
		}
	}
	return template.Phase{}, false
}

// SuppressedBetween returns the phases strictly between from and to in
// ordinal order. Moving backward suppresses nothing.
func SuppressedBetween(phases []template.Phase, fromID, toID string) []template.Phase {
	from, okFrom := position(phases, fromID)
	to, okTo := position(phases, toID)
	if !okFrom || !okTo || to <= from {
		return nil
	}
	var between []template.Phase
	for _, p := range phases {
		if p.Position > from && p.Position < to {
			between = append(between, p)
		}
	}
	return between
}

// IDs returns the IDs of phases in order.
func IDs(phases []template.Phase) []string {
	ids := make([]string, len(phases))
	for i, p := range phases {
		ids[i] = p.ID
	}
	return ids
}

// Transition renders "FROM->TO" using phase type tags where known.
func Transition(phases []template.Phase, fromID, toID string) string {
	return label(phases, fromID) + "->" + label(phases, toID)
}

func label(phases []template.Phase, id string) string {
	for _, p := range phases {
		if p.ID == id {
			return string(p.Type)
		}
	}
	return id
}

func position(phases []template.Phase, id string) (int, bool) {
	for _, p := range phases {
		if p.ID == id {
			return p.Position, true
		}
	}
	return 0, false
}
