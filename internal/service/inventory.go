package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
)

var inventoryTracer = otel.Tracer("service/inventory")

// InventoryService exposes the active InventoryProvider. Every resolved
// scope may read; only super_admin may mutate.
type InventoryService struct {
	core
	provider port.InventoryProvider
}

func NewInventoryService(provider port.InventoryProvider, events port.EventPublisher, cache Invalidator, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *InventoryService {
	return &InventoryService{core: newCore(events, cache, metrics, logger, opts), provider: provider}
}

// Backend names the active provider.
func (s *InventoryService) Backend() string { return s.provider.Backend() }

func (s *InventoryService) List(ctx context.Context, actor domain.Actor) (_ []domain.Property, err error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.List")
	defer span.End()
	span.SetAttributes(attribute.String("inventory.backend", s.provider.Backend()))
	defer s.observe("inventory.list", time.Now(), &err)

	if _, err := s.resolve(actor); err != nil {
		return nil, err
	}
	return s.provider.GetAll(ctx)
}

func (s *InventoryService) Get(ctx context.Context, actor domain.Actor, id string) (_ *domain.Property, err error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.Get")
	defer span.End()
	defer s.observe("inventory.get", time.Now(), &err)

	if _, err := s.resolve(actor); err != nil {
		return nil, err
	}
	p, err := s.provider.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	return p, nil
}

func (s *InventoryService) Create(ctx context.Context, actor domain.Actor, in domain.PropertyInput) (_ *domain.Property, err error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.Create")
	defer span.End()
	defer s.observe("inventory.create", time.Now(), &err)

	if err := s.mutator(actor, "create", ""); err != nil {
		return nil, err
	}
	if err := in.Check(); err != nil {
		return nil, err
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	p, err := s.provider.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property created", zap.String("property_id", p.ID), zap.String("unit_number", p.UnitNumber), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventPropertyCreated, p.ID, map[string]string{"status": string(p.Status)})
	return p, nil
}

// Update merges patch. Status rules (forward only, rollback flag, sold
// needs a quote) are enforced by the guarded provider.
func (s *InventoryService) Update(ctx context.Context, actor domain.Actor, id string, patch domain.PropertyPatch) (_ *domain.Property, err error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))
	defer s.observe("inventory.update", time.Now(), &err)

	if err := s.mutator(actor, "update", id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, &domain.ErrValidation{Field: "body", Message: "patch changes no field"}
	}
	if err := patch.Check(); err != nil {
		return nil, err
	}
	if patch.Attachments != nil {
		if err := validate.Var(*patch.Attachments, "dive,url"); err != nil {
			return nil, &domain.ErrValidation{Field: "attachments", Message: "must be valid URLs"}
		}
	}

	p, err := s.provider.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property updated", zap.String("property_id", id), zap.String("status", string(p.Status)), zap.String("actor_id", actor.ID))
	if patch.Status != nil {
		attrs := map[string]string{"status": string(p.Status)}
		if patch.Rollback {
			attrs["rollback"] = "true"
		}
		s.publish(ctx, actor, domain.EventPropertyStatusChanged, id, attrs)
	} else {
		s.cache.Invalidate()
	}
	return p, nil
}

func (s *InventoryService) Remove(ctx context.Context, actor domain.Actor, id string) (err error) {
	ctx, span := inventoryTracer.Start(ctx, "InventoryService.Remove")
	defer span.End()
	defer s.observe("inventory.remove", time.Now(), &err)

	if err := s.mutator(actor, "remove", id); err != nil {
		return err
	}
	if err := s.provider.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("property removed", zap.String("property_id", id), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, domain.EventPropertyRemoved, id, nil)
	return nil
}

func (s *InventoryService) mutator(actor domain.Actor, action, id string) error {
	sc, err := s.resolve(actor)
	if err != nil {
		return err
	}
	if !sc.CanMutateInventory() {
		return s.deny(actor, action, "property", id)
	}
	return nil
}
