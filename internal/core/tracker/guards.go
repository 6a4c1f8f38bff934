// Package tracker contains the pure business logic for workflow tracker
// advancement. Guards are pure functions that evaluate preconditions without
// side effects.
package tracker

import (
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

// Pointer is a tracker's stored position. LineItemID is empty once the
// workflow is complete; PhaseID and SectionID then keep the last position.
type Pointer struct {
	PhaseID    string
	SectionID  string
	LineItemID string
}

// Done reports whether the pointer marks a completed workflow.
func (p Pointer) Done() bool { return p.LineItemID == "" }

// AdvanceContext provides context for the advancement guard.
type AdvanceContext struct {
	TrackerID         string
	LineItemID        string
	CurrentLineItemID string // empty when workflow complete
	TargetInTemplate  bool
	TargetPhaseID     string
	OverrideToPhaseID string // toPhase of the project's active override, if any
}

// Initial returns the pointer for a freshly created tracker.
func Initial(t *template.Template) Pointer {
	first := t.First()
	return Pointer{PhaseID: first.PhaseID, SectionID: first.SectionID, LineItemID: first.LineItemID}
}

// CheckConsistency verifies the stored pointer against the template: the
// current line item must belong to the current section, which must belong to
// the current phase. Inconsistencies are reported, never repaired.
func CheckConsistency(trackerID string, t *template.Template, p Pointer) error {
	if p.Done() {
		if p.SectionID == "" {
			return nil
		}
		s, ok := t.Section(p.SectionID)
		if !ok {
			return errs.Consistencyf("tracker %s is complete but references section %s outside the %s template", trackerID, p.SectionID, t.TradeType)
		}
		if s.PhaseID != p.PhaseID {
			return errs.Consistencyf("tracker %s references section %s which belongs to phase %s, not %s", trackerID, p.SectionID, s.PhaseID, p.PhaseID)
		}
		return nil
	}

	loc, ok := t.Locate(p.LineItemID)
	if !ok {
		return errs.Consistencyf("tracker %s references line item %s which is not in the active %s template", trackerID, p.LineItemID, t.TradeType)
	}
	if loc.SectionID != p.SectionID {
		return errs.Consistencyf("tracker %s references line item %s in section %s, but stores section %s", trackerID, p.LineItemID, loc.SectionID, p.SectionID)
	}
	if loc.PhaseID != p.PhaseID {
		return errs.Consistencyf("tracker %s references section %s in phase %s, but stores phase %s", trackerID, p.SectionID, loc.PhaseID, p.PhaseID)
	}
	return nil
}

// CanAdvance evaluates whether a line item may be completed.
// Rules:
//   - Line item must be part of the tracker's active template
//   - Line item must be the current item, or lie in the phase an active
//     override jumped to
func CanAdvance(ctx AdvanceContext) GuardResult {
	if ctx.LineItemID == "" {
		return GuardResult{Kind: errs.KindValidation, Reason: "line item ID is required"}
	}
	if !ctx.TargetInTemplate {
		return GuardResult{
			Kind:   errs.KindValidation,
			Reason: "line item " + ctx.LineItemID + " is not part of this tracker's workflow",
		}
	}
	if ctx.LineItemID == ctx.CurrentLineItemID {
		return GuardResult{Allowed: true}
	}
	if ctx.OverrideToPhaseID != "" && ctx.TargetPhaseID == ctx.OverrideToPhaseID {
		return GuardResult{Allowed: true}
	}
	if ctx.CurrentLineItemID == "" {
		return GuardResult{
			Kind:   errs.KindConflict,
			Reason: "workflow for tracker " + ctx.TrackerID + " is already complete",
		}
	}
	return GuardResult{
		Kind:   errs.KindConflict,
		Reason: "line item " + ctx.LineItemID + " is not the current item (current: " + ctx.CurrentLineItemID + ")",
	}
}

// Advance returns the pointer after completing lineItemID and whether the
// workflow is complete.
func Advance(t *template.Template, lineItemID string) (Pointer, bool) {
	next, ok := t.Next(lineItemID)
	if ok {
		return Pointer{PhaseID: next.PhaseID, SectionID: next.SectionID, LineItemID: next.LineItemID}, false
	}
	last, _ := t.Locate(lineItemID)
	return Pointer{PhaseID: last.PhaseID, SectionID: last.SectionID}, true
}

// AdvancePast returns the pointer after completing lineItemID, skipping items
// already completed (for example ones finished while an override was active).
// When nothing after lineItemID is open the pointer falls back to the first
// open item earlier in the workflow, so done is true only once every item is
// completed.
func AdvancePast(t *template.Template, lineItemID string, completed func(id string) bool) (Pointer, bool) {
	p, done := Advance(t, lineItemID)
	for !done && completed(p.LineItemID) {
		p, done = Advance(t, p.LineItemID)
	}
	if done {
		if open, ok := firstOpen(t, completed); ok {
			return open, false
		}
	}
	return p, done
}

// Resume returns the pointer to restore when reverting an override created
// while the tracker pointed at lineItemID. A resume item completed in the
// meantime is skipped like any other completed item. ok is false when
// lineItemID is empty or no longer part of the template.
func Resume(t *template.Template, lineItemID string, completed func(id string) bool) (Pointer, bool) {
	loc, ok := t.Locate(lineItemID)
	if lineItemID == "" || !ok {
		return Pointer{}, false
	}
	if !completed(lineItemID) {
		return Pointer{PhaseID: loc.PhaseID, SectionID: loc.SectionID, LineItemID: loc.LineItemID}, true
	}
	p, _ := AdvancePast(t, lineItemID, completed)
	return p, true
}

func firstOpen(t *template.Template, completed func(id string) bool) (Pointer, bool) {
	for _, id := range t.Flatten() {
		if completed(id) {
			continue
		}
		loc, _ := t.Locate(id)
		return Pointer{PhaseID: loc.PhaseID, SectionID: loc.SectionID, LineItemID: loc.LineItemID}, true
	}
	return Pointer{}, false
}
