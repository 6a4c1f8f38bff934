// Package template contains the pure business logic for workflow templates.
// A Template is built from raw catalog rows and never changes after Build.
// This is part of the Functional Core - no I/O, only pure functions.
package template

import (
	"sort"

	"github.com/example/sitetrack/internal/errs"
)

// PhaseType tags a phase in the fixed construction ladder.
type PhaseType string

const (
	PhaseLead             PhaseType = "LEAD"
	PhaseProspect         PhaseType = "PROSPECT"
	PhaseApproved         PhaseType = "APPROVED"
	PhaseExecution        PhaseType = "EXECUTION"
	PhaseSecondSupplement PhaseType = "SECOND_SUPPLEMENT"
	PhaseCompletion       PhaseType = "COMPLETION"
)

// MaxDepth bounds the sub-item tree under a root line item.
const MaxDepth = 10

// PhaseDef is a raw catalog phase row.
type PhaseDef struct {
	ID       string
	Position int
	Type     PhaseType
	Name     string
	IsActive bool
}

// SectionDef is a raw catalog section row.
type SectionDef struct {
	ID       string
	PhaseID  string
	Position int
	Name     string
	IsActive bool
}

// ItemDef is a raw catalog line item row.
type ItemDef struct {
	ID              string
	SectionID       string
	ParentID        string // empty for root items
	Position        int
	Name            string
	TradeType       string
	ResponsibleRole string
	AlertDays       int
	IsActive        bool
}

// Phase is an active phase with its non-empty sections in order.
type Phase struct {
	ID       string
	Position int
	Type     PhaseType
	Name     string
	Sections []Section
}

// Section holds the ordered IDs of its root line items.
type Section struct {
	ID       string
	PhaseID  string
	Position int
	Name     string
	ItemIDs  []string
}

// LineItem is an arena entry. Children are referenced by ID, never by pointer.
type LineItem struct {
	ID              string
	SectionID       string
	ParentID        string
	Position        int
	Depth           int
	Name            string
	ResponsibleRole string
	AlertDays       int
	ChildIDs        []string
}

// Location is the structural position of a line item inside a template.
// Index is its rank in advancement order.
type Location struct {
	PhaseID    string
	SectionID  string
	LineItemID string
	Index      int
}

// Template is the ordered, active-only workflow tree for one trade.
type Template struct {
	TradeType string
	Phases    []Phase

	items map[string]*LineItem
	order []Location
	index map[string]int
}

// ActivePhases filters and orders phase rows by position.
func ActivePhases(defs []PhaseDef) ([]Phase, error) {
	var phases []Phase
	seen := make(map[int]string)
	for _, d := range defs {
		if !d.IsActive {
			continue
		}
		if other, dup := seen[d.Position]; dup {
			return nil, errs.Consistencyf("phases %s and %s share position %d", other, d.ID, d.Position)
		}
		seen[d.Position] = d.ID
		phases = append(phases, Phase{ID: d.ID, Position: d.Position, Type: d.Type, Name: d.Name})
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Position < phases[j].Position })
	return phases, nil
}

// Build assembles the template for tradeType from catalog rows.
// Inactive rows hide their whole subtree. Sections and phases left without
// active items for the trade are pruned.
func Build(tradeType string, phaseDefs []PhaseDef, sectionDefs []SectionDef, itemDefs []ItemDef) (*Template, error) {
	if tradeType == "" {
		return nil, errs.Validationf("trade type is required")
	}

	phases, err := ActivePhases(phaseDefs)
	if err != nil {
		return nil, err
	}
	activePhase := make(map[string]bool, len(phases))
	for _, p := range phases {
		activePhase[p.ID] = true
	}

	sections := make(map[string]SectionDef)
	sectionsByPhase := make(map[string][]SectionDef)
	for _, s := range sectionDefs {
		if !s.IsActive || !activePhase[s.PhaseID] {
			continue
		}
		sections[s.ID] = s
		sectionsByPhase[s.PhaseID] = append(sectionsByPhase[s.PhaseID], s)
	}

	defs := make(map[string]ItemDef)
	for _, d := range itemDefs {
		if d.TradeType == tradeType {
			defs[d.ID] = d
		}
	}

	items := make(map[string]*LineItem)
	for _, d := range defs {
		depth, visible, err := resolve(d, defs, sections)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		items[d.ID] = &LineItem{
			ID:              d.ID,
			SectionID:       d.SectionID,
			ParentID:        d.ParentID,
			Position:        d.Position,
			Depth:           depth,
			Name:            d.Name,
			ResponsibleRole: d.ResponsibleRole,
			AlertDays:       d.AlertDays,
		}
	}

	roots := make(map[string][]string)
	for _, it := range items {
		if it.ParentID == "" {
			roots[it.SectionID] = append(roots[it.SectionID], it.ID)
			continue
		}
		parent := items[it.ParentID]
		parent.ChildIDs = append(parent.ChildIDs, it.ID)
	}
	for _, it := range items {
		if err := sortByPosition(it.ChildIDs, items); err != nil {
			return nil, err
		}
	}

	t := &Template{
		TradeType: tradeType,
		items:     items,
		index:     make(map[string]int, len(items)),
	}

	for _, p := range phases {
		secs := sectionsByPhase[p.ID]
		sort.Slice(secs, func(i, j int) bool { return secs[i].Position < secs[j].Position })
		for i := 1; i < len(secs); i++ {
			if secs[i].Position == secs[i-1].Position {
				return nil, errs.Consistencyf("sections %s and %s share position %d in phase %s", secs[i-1].ID, secs[i].ID, secs[i].Position, p.ID)
			}
		}
		for _, s := range secs {
			ids := roots[s.ID]
			if len(ids) == 0 {
				continue
			}
			if err := sortByPosition(ids, items); err != nil {
				return nil, err
			}
			p.Sections = append(p.Sections, Section{ID: s.ID, PhaseID: p.ID, Position: s.Position, Name: s.Name, ItemIDs: ids})
			for _, id := range ids {
				t.walk(p.ID, s.ID, id)
			}
		}
		if len(p.Sections) > 0 {
			t.Phases = append(t.Phases, p)
		}
	}

	if len(t.order) == 0 {
		return nil, errs.NotFoundf("no active workflow template for trade %s", tradeType)
	}
	return t, nil
}

// resolve walks the parent chain of d. An item is visible only if it, every
// ancestor and its section are active.
func resolve(d ItemDef, defs map[string]ItemDef, sections map[string]SectionDef) (int, bool, error) {
	visible := d.IsActive
	if _, ok := sections[d.SectionID]; !ok {
		visible = false
	}
	depth := 0
	cur := d
	for cur.ParentID != "" {
		depth++
		if depth >= MaxDepth {
			return 0, false, errs.Consistencyf("line item %s exceeds maximum depth %d (or its parents form a cycle)", d.ID, MaxDepth)
		}
		parent, ok := defs[cur.ParentID]
		if !ok {
			return 0, false, errs.Consistencyf("line item %s references unknown parent %s", cur.ID, cur.ParentID)
		}
		if parent.SectionID != d.SectionID {
			return 0, false, errs.Consistencyf("line item %s is in section %s but its parent %s is in section %s", d.ID, d.SectionID, parent.ID, parent.SectionID)
		}
		if !parent.IsActive {
			visible = false
		}
		cur = parent
	}
	return depth, visible, nil
}

func sortByPosition(ids []string, items map[string]*LineItem) error {
	sort.Slice(ids, func(i, j int) bool { return items[ids[i]].Position < items[ids[j]].Position })
	for i := 1; i < len(ids); i++ {
		if items[ids[i]].Position == items[ids[i-1]].Position {
			return errs.Consistencyf("line items %s and %s share position %d", ids[i-1], ids[i], items[ids[i]].Position)
		}
	}
	return nil
}

// walk appends id and its subtree in pre-order.
func (t *Template) walk(phaseID, sectionID, id string) {
	t.index[id] = len(t.order)
	t.order = append(t.order, Location{PhaseID: phaseID, SectionID: sectionID, LineItemID: id, Index: len(t.order)})
	for _, child := range t.items[id].ChildIDs {
		t.walk(phaseID, sectionID, child)
	}
}

// Count returns the number of active line items for the trade.
func (t *Template) Count() int { return len(t.order) }

// First returns the first line item in advancement order.
func (t *Template) First() Location { return t.order[0] }

// Locate returns where id sits in the template.
func (t *Template) Locate(id string) (Location, bool) {
	i, ok := t.index[id]
	if !ok {
		return Location{}, false
	}
	return t.order[i], true
}

// Contains reports whether id is an active line item of this template.
func (t *Template) Contains(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Next returns the item after id in advancement order: next item (or sub-item)
// in the section, else first item of the next non-empty section, else of the
// next non-empty phase. ok is false when id is the last item or unknown.
func (t *Template) Next(id string) (Location, bool) {
	i, ok := t.index[id]
	if !ok || i+1 >= len(t.order) {
		return Location{}, false
	}
	return t.order[i+1], true
}

// Flatten returns all line item IDs in advancement order.
func (t *Template) Flatten() []string {
	ids := make([]string, len(t.order))
	for i, loc := range t.order {
		ids[i] = loc.LineItemID
	}
	return ids
}

// Item returns a copy of the line item with the given ID.
func (t *Template) Item(id string) (LineItem, bool) {
	it, ok := t.items[id]
	if !ok {
		return LineItem{}, false
	}
	cp := *it
	cp.ChildIDs = append([]string(nil), it.ChildIDs...)
	return cp, true
}

// Phase returns the template phase with the given ID.
func (t *Template) Phase(id string) (Phase, bool) {
	for _, p := range t.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// Section returns the template section with the given ID.
func (t *Template) Section(id string) (Section, bool) {
	for _, p := range t.Phases {
		for _, s := range p.Sections {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Section{}, false
}
