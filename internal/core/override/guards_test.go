package override

import (
	"reflect"
	"testing"

	"github.com/example/sitetrack/internal/core/template"
	"github.com/example/sitetrack/internal/errs"
)

func ladder() []template.Phase {
	return []template.Phase{
		{ID: "PH-LEAD", Position: 1, Type: template.PhaseLead},
		{ID: "PH-PROS", Position: 2, Type: template.PhaseProspect},
		{ID: "PH-APPR", Position: 3, Type: template.PhaseApproved},
		{ID: "PH-EXEC", Position: 4, Type: template.PhaseExecution},
		{ID: "PH-SUPP", Position: 5, Type: template.PhaseSecondSupplement},
		{ID: "PH-DONE", Position: 6, Type: template.PhaseCompletion},
	}
}

func TestSuppressedBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want []string
	}{
		{"execution to completion skips second supplement", "PH-EXEC", "PH-DONE", []string{"PH-SUPP"}},
		{"lead to execution", "PH-LEAD", "PH-EXEC", []string{"PH-PROS", "PH-APPR"}},
		{"adjacent phases", "PH-APPR", "PH-EXEC", []string{}},
		{"backward suppresses nothing", "PH-DONE", "PH-LEAD", []string{}},
		{"unknown phase", "PH-EXEC", "PH-NOPE", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IDs(SuppressedBetween(ladder(), tt.from, tt.to))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuppressedBetween(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanOverride(t *testing.T) {
	tests := []struct {
		name        string
		ctx         OverrideContext
		wantAllowed bool
		wantKind    errs.Kind
		wantReason  string
	}{
		{
			name:        "forward override",
			ctx:         OverrideContext{ProjectID: "PROJ-001", CurrentPhaseID: "PH-EXEC", ToPhaseKnown: true, ToPhaseID: "PH-DONE", Reason: "customer signed off"},
			wantAllowed: true,
		},
		{
			name:       "same phase is a conflict",
			ctx:        OverrideContext{ProjectID: "PROJ-001", CurrentPhaseID: "PH-EXEC", ToPhaseKnown: true, ToPhaseID: "PH-EXEC", Reason: "noop"},
			wantKind:   errs.KindConflict,
			wantReason: "project PROJ-001 is already in phase PH-EXEC",
		},
		{
			name:       "unknown phase",
			ctx:        OverrideContext{ProjectID: "PROJ-001", CurrentPhaseID: "PH-EXEC", RequestedPhase: "DEMOLITION", Reason: "typo"},
			wantKind:   errs.KindValidation,
			wantReason: `unknown phase "DEMOLITION"`,
		},
		{
			name:       "missing reason",
			ctx:        OverrideContext{ProjectID: "PROJ-001", CurrentPhaseID: "PH-EXEC", ToPhaseKnown: true, ToPhaseID: "PH-DONE", Reason: "  "},
			wantKind:   errs.KindValidation,
			wantReason: "an override reason is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanOverride(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed {
				if result.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
				}
				if !errs.Is(result.Error(), tt.wantKind) {
					t.Errorf("kind = %v, want %v", errs.KindOf(result.Error()), tt.wantKind)
				}
			}
		})
	}
}

func TestCanRevert(t *testing.T) {
	tests := []struct {
		name        string
		ctx         RevertContext
		wantAllowed bool
		wantKind    errs.Kind
	}{
		{"active override of project", RevertContext{OverrideID: "OVR-1", ProjectID: "PROJ-001", OverrideProjectID: "PROJ-001", IsActive: true}, true, errs.KindUnknown},
		{"other project's override", RevertContext{OverrideID: "OVR-1", ProjectID: "PROJ-002", OverrideProjectID: "PROJ-001", IsActive: true}, false, errs.KindValidation},
		{"already reverted", RevertContext{OverrideID: "OVR-1", ProjectID: "PROJ-001", OverrideProjectID: "PROJ-001"}, false, errs.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanRevert(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Fatalf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && !errs.Is(result.Error(), tt.wantKind) {
				t.Errorf("kind = %v, want %v", errs.KindOf(result.Error()), tt.wantKind)
			}
		})
	}
}

func TestResolvePhase(t *testing.T) {
	if p, ok := ResolvePhase(ladder(), "completion"); !ok || p.ID != "PH-DONE" {
		t.Errorf("ResolvePhase by type = %+v, %v", p, ok)
	}
	if p, ok := ResolvePhase(ladder(), "PH-EXEC"); !ok || p.Type != template.PhaseExecution {
		t.Errorf("ResolvePhase by ID = %+v, %v", p, ok)
	}
	if _, ok := ResolvePhase(ladder(), "DEMOLITION"); ok {
		t.Error("expected unknown phase")
	}
}

func TestTransition(t *testing.T) {
	if got := Transition(ladder(), "PH-EXEC", "PH-DONE"); got != "EXECUTION->COMPLETION" {
		t.Errorf("Transition = %q", got)
	}
}
