// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the outside world drives the application.
package primary

import (
	"context"

	"github.com/example/sitetrack/internal/core/template"
)

// CatalogService defines the primary port for the read-only workflow catalog.
type CatalogService interface {
	// GetTemplate returns the active, ordered template for a trade.
	GetTemplate(ctx context.Context, tradeType string) (*template.Template, error)

	// ListPhases returns the active phase ladder shared by all trades.
	ListPhases(ctx context.Context) ([]template.Phase, error)

	// ListTradeTypes returns trades with an active template.
	ListTradeTypes(ctx context.Context) ([]string, error)

	// Label returns the display name of a phase, section or line item ID.
	// Returns the ID itself when unknown.
	Label(ctx context.Context, id string) string
}
