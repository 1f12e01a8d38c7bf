package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

// ============================================================
// Prospect Handlers
// ============================================================

func listProspectsHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /prospects")
		defer span.End()
		q := r.URL.Query()
		limit, offset := parsePagination(r)
		prospects, err := svc.ListProspects(ctx, ActorFromContext(ctx), domain.ProspectListFilter{
			Temperature:     domain.Temperature(q.Get("temperature")),
			AdvisorID:       q.Get("advisor_id"),
			Search:          q.Get("search"),
			IncludeArchived: queryBool(r, "include_archived"),
			Limit:           limit,
			Offset:          offset,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, prospects)
	}
}

func createProspectHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects")
		defer span.End()
		var in domain.CreateProspectInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.CreateProspect(ctx, ActorFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func getProspectHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /prospects/{id}")
		defer span.End()
		p, err := svc.GetProspect(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deleteProspectHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /prospects/{id}")
		defer span.End()
		if err := svc.DeleteProspect(ctx, ActorFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func recordVisitHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects/{id}/visit")
		defer span.End()
		var in domain.RecordVisitInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.RecordVisit(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func issueQuoteHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects/{id}/quote")
		defer span.End()
		var in domain.IssueQuoteInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.IssueQuote(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func cancelQuoteHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /prospects/{id}/quote")
		defer span.End()
		p, err := svc.CancelQuote(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func setTemperatureHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /prospects/{id}/temperature")
		defer span.End()
		var in domain.SetTemperatureInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.SetTemperature(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// listNotesHandler returns newest first; ?order=asc replays the audit trail.
func listNotesHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /prospects/{id}/notes")
		defer span.End()
		ascending := r.URL.Query().Get("order") == "asc"
		notes, err := svc.ListNotes(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), ascending)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

func appendNoteHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects/{id}/notes")
		defer span.End()
		var in domain.AppendNoteInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		n, err := svc.AppendNote(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// archiveProspectHandler archives by default; {"archived": false} restores.
func archiveProspectHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects/{id}/archive")
		defer span.End()
		var in archiveRequest
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		archived := in.Archived == nil || *in.Archived
		p, err := svc.ArchiveProspect(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), archived)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func assignProspectHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /prospects/{id}/assign")
		defer span.End()
		var in domain.AssignProspectInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		p, err := svc.AssignProspect(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
