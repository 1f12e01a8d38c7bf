package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

// ============================================================
// Inventory Handlers
// ============================================================

func listInventoryHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /inventory")
		defer span.End()
		units, err := svc.List(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("X-Inventory-Source", svc.Backend())
		writeJSON(w, http.StatusOK, units)
	}
}

func createPropertyHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /inventory")
		defer span.End()
		var in domain.PropertyInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.Create(ctx, ActorFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func getPropertyHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /inventory/{id}")
		defer span.End()
		p, err := svc.Get(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePropertyHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /inventory/{id}")
		defer span.End()
		var patch domain.PropertyPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.Update(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func removePropertyHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /inventory/{id}")
		defer span.End()
		if err := svc.Remove(ctx, ActorFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
