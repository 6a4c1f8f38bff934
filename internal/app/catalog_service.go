package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/example/sitetrack/internal/core/template"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

// CatalogServiceImpl implements the CatalogService interface. Templates are
// immutable for the life of the process, so they are built once per trade.
type CatalogServiceImpl struct {
	catalogRepo secondary.CatalogRepository

	group     singleflight.Group
	mu        sync.RWMutex
	templates map[string]*template.Template
	phases    []template.Phase
	labels    map[string]string
}

// NewCatalogService creates a new CatalogService with injected dependencies.
func NewCatalogService(catalogRepo secondary.CatalogRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		catalogRepo: catalogRepo,
		templates:   make(map[string]*template.Template),
	}
}

// GetTemplate returns the active, ordered template for a trade. Concurrent
// first loads of the same trade share one catalog read.
func (s *CatalogServiceImpl) GetTemplate(ctx context.Context, tradeType string) (*template.Template, error) {
	if tradeType == "" {
		return nil, errs.Validationf("trade type is required")
	}

	s.mu.RLock()
	t, ok := s.templates[tradeType]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := s.group.Do("template:"+tradeType, func() (any, error) {
		t, err := s.loadTemplate(ctx, tradeType)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.templates[tradeType] = t
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*template.Template), nil
}

// ListPhases returns the active phase ladder shared by all trades.
func (s *CatalogServiceImpl) ListPhases(ctx context.Context) ([]template.Phase, error) {
	s.mu.RLock()
	phases := s.phases
	s.mu.RUnlock()
	if phases != nil {
		return phases, nil
	}

	v, err, _ := s.group.Do("phases", func() (any, error) {
		records, err := s.catalogRepo.ListPhases(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load phases: %w", err)
		}
		phases, err := template.ActivePhases(recordsToPhaseDefs(records))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.phases = phases
		s.mu.Unlock()
		return phases, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]template.Phase), nil
}

// ListTradeTypes returns trades with an active template.
func (s *CatalogServiceImpl) ListTradeTypes(ctx context.Context) ([]string, error) {
	trades, err := s.catalogRepo.ListTradeTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade types: %w", err)
	}
	return trades, nil
}

// Label returns the display name for a catalog ID, or the ID when unknown.
func (s *CatalogServiceImpl) Label(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}

	s.mu.RLock()
	labels := s.labels
	s.mu.RUnlock()

	if labels == nil {
		v, err, _ := s.group.Do("labels", func() (any, error) {
			labels, err := s.catalogRepo.ListLabels(ctx)
			if err != nil {
				return nil, err
			}
			s.mu.Lock()
			s.labels = labels
			s.mu.Unlock()
			return labels, nil
		})
		if err != nil {
			return id
		}
		labels = v.(map[string]string)
	}

	if name, ok := labels[id]; ok {
		return name
	}
	return id
}

// Invalidate drops every cached template, phase and label. Used after reseeding.
func (s *CatalogServiceImpl) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = make(map[string]*template.Template)
	s.phases = nil
	s.labels = nil
}

func (s *CatalogServiceImpl) loadTemplate(ctx context.Context, tradeType string) (*template.Template, error) {
	phases, err := s.catalogRepo.ListPhases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	sections, err := s.catalogRepo.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	items, err := s.catalogRepo.ListLineItems(ctx, tradeType)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}

	return template.Build(tradeType, recordsToPhaseDefs(phases), recordsToSectionDefs(sections), recordsToItemDefs(items))
}

// Helper methods

func recordsToPhaseDefs(records []*secondary.PhaseRecord) []template.PhaseDef {
	defs := make([]template.PhaseDef, len(records))
	for i, r := range records {
		defs[i] = template.PhaseDef{
			ID:       r.ID,
			Position: r.Position,
			Type:     template.PhaseType(r.PhaseType),
			Name:     r.Name,
			IsActive: r.IsActive,
		}
	}
	return defs
}

func recordsToSectionDefs(records []*secondary.SectionRecord) []template.SectionDef {
	defs := make([]template.SectionDef, len(records))
	for i, r := range records {
		defs[i] = template.SectionDef{
			ID:       r.ID,
			PhaseID:  r.PhaseID,
			Position: r.Position,
			Name:     r.Name,
			IsActive: r.IsActive,
		}
	}
	return defs
}

func recordsToItemDefs(records []*secondary.LineItemRecord) []template.ItemDef {
	defs := make([]template.ItemDef, len(records))
	for i, r := range records {
		defs[i] = template.ItemDef{
			ID:              r.ID,
			SectionID:       r.SectionID,
			ParentID:        r.ParentID,
			Position:        r.Position,
			Name:            r.Name,
			TradeType:       r.TradeType,
			ResponsibleRole: r.ResponsibleRole,
			AlertDays:       r.AlertDays,
			IsActive:        r.IsActive,
		}
	}
	return defs
}

// Ensure CatalogServiceImpl implements the interface
var _ primary.CatalogService = (*CatalogServiceImpl)(nil)
