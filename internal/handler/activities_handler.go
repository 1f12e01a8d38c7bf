package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

// ============================================================
// Activity Handlers
// ============================================================

func listActivitiesHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /activities")
		defer span.End()
		q := r.URL.Query()
		limit, offset := parsePagination(r)
		list, err := svc.List(ctx, ActorFromContext(ctx), domain.ActivityListFilter{
			ProspectID: q.Get("prospect_id"),
			Date:       q.Get("date"),
			Status:     domain.ActivityStatus(q.Get("status")),
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func scheduleActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /activities")
		defer span.End()
		var in domain.ScheduleActivityInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v, err := svc.Schedule(ctx, ActorFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func activitySummaryHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /activities/summary")
		defer span.End()
		sum, err := svc.Summary(ctx, ActorFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func getActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /activities/{id}")
		defer span.End()
		v, err := svc.Get(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func completeActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /activities/{id}/complete")
		defer span.End()
		v, err := svc.Complete(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func noAnswerActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /activities/{id}/no-answer")
		defer span.End()
		v, err := svc.MarkNoAnswer(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func rescheduleActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /activities/{id}/reschedule")
		defer span.End()
		var in domain.RescheduleInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v, err := svc.Reschedule(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func reopenActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /activities/{id}/reopen")
		defer span.End()
		v, err := svc.Reopen(ctx, ActorFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
