package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
)

// QuoteCounter reports how many active quotes reference a unit.
type QuoteCounter interface {
	CountActiveQuotes(ctx context.Context, propertyID string) (int64, error)
}

// Guard wraps any backend with the inventory integrity rules so they hold
// whatever INVENTORY_SOURCE selects:
//   - a unit referenced by an active quote cannot be removed
//   - status moves forward only unless the patch asks for a rollback
//   - Vendido requires an active quote on the unit
//
// Status changes are pinned to the status read here, so a racing change
// surfaces as ErrConcurrentModification from the backend.
type Guard struct {
	port.InventoryProvider
	quotes QuoteCounter
	logger *zap.Logger
}

func NewGuard(inner port.InventoryProvider, quotes QuoteCounter, logger *zap.Logger) *Guard {
	return &Guard{InventoryProvider: inner, quotes: quotes, logger: logger}
}

func (g *Guard) Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	if patch.Status == nil {
		return g.InventoryProvider.Update(ctx, id, patch)
	}
	if err := patch.Check(); err != nil {
		return nil, err
	}

	current, err := g.InventoryProvider.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	if patch.ExpectStatus != nil && *patch.ExpectStatus != current.Status {
		return nil, &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "status"}
	}

	next := *patch.Status
	if next != current.Status && !current.Status.CanTransitionTo(next, patch.Rollback) {
		return nil, &domain.ErrValidation{
			Field:   "status",
			Value:   string(next),
			Message: "cannot move from " + string(current.Status) + " to " + string(next),
		}
	}
	if next == domain.PropertySold && current.Status != domain.PropertySold {
		n, err := g.quotes.CountActiveQuotes(ctx, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, &domain.ErrValidation{Field: "status", Value: string(next), Message: "a unit can only be sold with an active quote"}
		}
	}

	expect := current.Status
	patch.ExpectStatus = &expect
	return g.InventoryProvider.Update(ctx, id, patch)
}

func (g *Guard) Remove(ctx context.Context, id string) error {
	n, err := g.quotes.CountActiveQuotes(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		g.logger.Warn("refusing to remove quoted unit", zap.String("property_id", id), zap.Int64("active_quotes", n))
		return &domain.ErrValidation{Field: "id", Value: id, Message: "unit is referenced by an active quote"}
	}
	return g.InventoryProvider.Remove(ctx, id)
}
