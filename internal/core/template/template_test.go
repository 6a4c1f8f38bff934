package template

import (
	"reflect"
	"testing"

	"github.com/example/sitetrack/internal/errs"
)

func testPhases() []PhaseDef {
	return []PhaseDef{
		{ID: "PH-EXEC", Position: 4, Type: PhaseExecution, Name: "Execution", IsActive: true},
		{ID: "PH-LEAD", Position: 1, Type: PhaseLead, Name: "Lead", IsActive: true},
		{ID: "PH-APPR", Position: 3, Type: PhaseApproved, Name: "Approved", IsActive: true},
		{ID: "PH-DONE", Position: 6, Type: PhaseCompletion, Name: "Completion", IsActive: false},
	}
}

func testSections() []SectionDef {
	return []SectionDef{
		{ID: "SEC-LEAD-1", PhaseID: "PH-LEAD", Position: 1, Name: "Intake", IsActive: true},
		{ID: "SEC-APPR-1", PhaseID: "PH-APPR", Position: 1, Name: "Contract", IsActive: true},
		{ID: "SEC-EXEC-2", PhaseID: "PH-EXEC", Position: 2, Name: "Install", IsActive: true},
		{ID: "SEC-EXEC-1", PhaseID: "PH-EXEC", Position: 1, Name: "Prep", IsActive: true},
		{ID: "SEC-DONE-1", PhaseID: "PH-DONE", Position: 1, Name: "Closeout", IsActive: true},
	}
}

func testItems() []ItemDef {
	return []ItemDef{
		{ID: "LI-1", SectionID: "SEC-LEAD-1", Position: 1, Name: "Inspect roof", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-2", SectionID: "SEC-LEAD-1", Position: 2, Name: "Take photos", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-2a", SectionID: "SEC-LEAD-1", ParentID: "LI-2", Position: 1, Name: "Front elevation", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-2b", SectionID: "SEC-LEAD-1", ParentID: "LI-2", Position: 2, Name: "Rear elevation", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-3", SectionID: "SEC-EXEC-2", Position: 1, Name: "Tear off", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-4", SectionID: "SEC-EXEC-1", Position: 1, Name: "Order materials", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-5", SectionID: "SEC-EXEC-1", Position: 2, Name: "Retired step", TradeType: "ROOFING", IsActive: false},
		{ID: "LI-5a", SectionID: "SEC-EXEC-1", ParentID: "LI-5", Position: 1, Name: "Hidden child", TradeType: "ROOFING", IsActive: true},
		{ID: "LI-6", SectionID: "SEC-DONE-1", Position: 1, Name: "Final walk", TradeType: "ROOFING", IsActive: true},
		{ID: "GU-1", SectionID: "SEC-APPR-1", Position: 1, Name: "Measure gutters", TradeType: "GUTTERS", IsActive: true},
	}
}

func TestBuild_OrderAndFiltering(t *testing.T) {
	tmpl, err := Build("ROOFING", testPhases(), testSections(), testItems())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"LI-1", "LI-2", "LI-2a", "LI-2b", "LI-4", "LI-3"}
	if got := tmpl.Flatten(); !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
	if tmpl.Count() != 6 {
		t.Errorf("Count() = %d, want 6", tmpl.Count())
	}

	// APPROVED has only gutters items, COMPLETION is inactive.
	var phaseIDs []string
	for _, p := range tmpl.Phases {
		phaseIDs = append(phaseIDs, p.ID)
	}
	if !reflect.DeepEqual(phaseIDs, []string{"PH-LEAD", "PH-EXEC"}) {
		t.Errorf("phases = %v, want [PH-LEAD PH-EXEC]", phaseIDs)
	}

	item, ok := tmpl.Item("LI-2")
	if !ok {
		t.Fatal("expected LI-2 in template")
	}
	if !reflect.DeepEqual(item.ChildIDs, []string{"LI-2a", "LI-2b"}) {
		t.Errorf("LI-2 children = %v", item.ChildIDs)
	}
	if sub, _ := tmpl.Item("LI-2b"); sub.Depth != 1 {
		t.Errorf("LI-2b depth = %d, want 1", sub.Depth)
	}
	if tmpl.Contains("LI-5a") {
		t.Error("child of inactive item should be hidden")
	}
}

func TestNext(t *testing.T) {
	tmpl, err := Build("ROOFING", testPhases(), testSections(), testItems())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		name        string
		from        string
		wantID      string
		wantSection string
		wantOK      bool
	}{
		{"next item in section", "LI-1", "LI-2", "SEC-LEAD-1", true},
		{"descends into sub-items", "LI-2", "LI-2a", "SEC-LEAD-1", true},
		{"crosses to next phase", "LI-2b", "LI-4", "SEC-EXEC-1", true},
		{"crosses to next section", "LI-4", "LI-3", "SEC-EXEC-2", true},
		{"last item ends workflow", "LI-3", "", "", false},
		{"unknown item", "LI-404", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := tmpl.Next(tt.from)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if loc.LineItemID != tt.wantID || loc.SectionID != tt.wantSection {
				t.Errorf("Next(%s) = %+v, want %s in %s", tt.from, loc, tt.wantID, tt.wantSection)
			}
		})
	}
}

func TestNext_PositionsStrictlyIncrease(t *testing.T) {
	tmpl, err := Build("ROOFING", testPhases(), testSections(), testItems())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	cur := tmpl.First()
	steps := 1
	for {
		next, ok := tmpl.Next(cur.LineItemID)
		if !ok {
			break
		}
		if next.Index <= cur.Index {
			t.Fatalf("index went from %d to %d", cur.Index, next.Index)
		}
		cur = next
		steps++
	}
	if steps != tmpl.Count() {
		t.Errorf("visited %d items, want %d", steps, tmpl.Count())
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		trade    string
		items    []ItemDef
		wantKind errs.Kind
	}{
		{
			name:     "empty trade",
			trade:    "",
			items:    testItems(),
			wantKind: errs.KindValidation,
		},
		{
			name:     "trade without active items",
			trade:    "INTERIOR_PAINT",
			items:    testItems(),
			wantKind: errs.KindNotFound,
		},
		{
			name:  "duplicate position",
			trade: "ROOFING",
			items: []ItemDef{
				{ID: "A", SectionID: "SEC-LEAD-1", Position: 1, TradeType: "ROOFING", IsActive: true},
				{ID: "B", SectionID: "SEC-LEAD-1", Position: 1, TradeType: "ROOFING", IsActive: true},
			},
			wantKind: errs.KindConsistency,
		},
		{
			name:  "parent in another section",
			trade: "ROOFING",
			items: []ItemDef{
				{ID: "A", SectionID: "SEC-LEAD-1", Position: 1, TradeType: "ROOFING", IsActive: true},
				{ID: "B", SectionID: "SEC-EXEC-1", ParentID: "A", Position: 1, TradeType: "ROOFING", IsActive: true},
			},
			wantKind: errs.KindConsistency,
		},
		{
			name:  "parent cycle",
			trade: "ROOFING",
			items: []ItemDef{
				{ID: "A", SectionID: "SEC-LEAD-1", ParentID: "B", Position: 1, TradeType: "ROOFING", IsActive: true},
				{ID: "B", SectionID: "SEC-LEAD-1", ParentID: "A", Position: 2, TradeType: "ROOFING", IsActive: true},
			},
			wantKind: errs.KindConsistency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.trade, testPhases(), testSections(), tt.items)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v (err: %v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestBuild_MaxDepth(t *testing.T) {
	items := []ItemDef{{ID: "D0", SectionID: "SEC-LEAD-1", Position: 1, TradeType: "ROOFING", IsActive: true}}
	for i := 1; i <= MaxDepth; i++ {
		items = append(items, ItemDef{
			ID:        "D" + string(rune('0'+i)),
			SectionID: "SEC-LEAD-1",
			ParentID:  items[i-1].ID,
			Position:  1,
			TradeType: "ROOFING",
			IsActive:  true,
		})
	}

	_, err := Build("ROOFING", testPhases(), testSections(), items)
	if !errs.Is(err, errs.KindConsistency) {
		t.Fatalf("expected consistency error for depth %d, got %v", MaxDepth, err)
	}

	if _, err := Build("ROOFING", testPhases(), testSections(), items[:MaxDepth]); err != nil {
		t.Errorf("depth %d should be allowed: %v", MaxDepth-1, err)
	}
}

func TestActivePhases(t *testing.T) {
	phases, err := ActivePhases(testPhases())
	if err != nil {
		t.Fatalf("ActivePhases failed: %v", err)
	}
	var types []PhaseType
	for _, p := range phases {
		types = append(types, p.Type)
	}
	want := []PhaseType{PhaseLead, PhaseApproved, PhaseExecution}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v", types, want)
	}
}
