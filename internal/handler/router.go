package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services are the use cases exposed over HTTP. A nil service leaves its
// routes answering 503.
type Services struct {
	Pipeline   *service.PipelineService
	Activities *service.ActivityService
	Inventory  *service.InventoryService
	Directory  *service.DirectoryService
	Dashboard  *service.DashboardService
	Auth       Authenticator
}

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, checks []HealthCheck, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(svc.Auth, logger))

		// =============================================
		// Prospects
		// =============================================
		r.Route("/prospects", func(r chi.Router) {
			r.Use(requireService(svc.Pipeline != nil))
			r.Get("/", listProspectsHandler(svc.Pipeline, logger))
			r.Post("/", createProspectHandler(svc.Pipeline, logger))
			r.Get("/{id}", getProspectHandler(svc.Pipeline, logger))
			r.Delete("/{id}", deleteProspectHandler(svc.Pipeline, logger))
			r.Post("/{id}/visit", recordVisitHandler(svc.Pipeline, logger))
			r.Post("/{id}/quote", issueQuoteHandler(svc.Pipeline, logger))
			r.Delete("/{id}/quote", cancelQuoteHandler(svc.Pipeline, logger))
			r.Put("/{id}/temperature", setTemperatureHandler(svc.Pipeline, logger))
			r.Get("/{id}/notes", listNotesHandler(svc.Pipeline, logger))
			r.Post("/{id}/notes", appendNoteHandler(svc.Pipeline, logger))
			r.Post("/{id}/archive", archiveProspectHandler(svc.Pipeline, logger))
			r.Post("/{id}/assign", assignProspectHandler(svc.Pipeline, logger))
		})

		// =============================================
		// Activities
		// =============================================
		r.Route("/activities", func(r chi.Router) {
			r.Use(requireService(svc.Activities != nil))
			r.Get("/", listActivitiesHandler(svc.Activities, logger))
			r.Post("/", scheduleActivityHandler(svc.Activities, logger))
			r.Get("/summary", activitySummaryHandler(svc.Activities, logger))
			r.Get("/{id}", getActivityHandler(svc.Activities, logger))
			r.Post("/{id}/complete", completeActivityHandler(svc.Activities, logger))
			r.Post("/{id}/no-answer", noAnswerActivityHandler(svc.Activities, logger))
			r.Post("/{id}/reschedule", rescheduleActivityHandler(svc.Activities, logger))
			r.Post("/{id}/reopen", reopenActivityHandler(svc.Activities, logger))
		})

		// =============================================
		// Inventory
		// =============================================
		r.Route("/inventory", func(r chi.Router) {
			r.Use(requireService(svc.Inventory != nil))
			r.Get("/", listInventoryHandler(svc.Inventory, logger))
			r.Post("/", createPropertyHandler(svc.Inventory, logger))
			r.Get("/{id}", getPropertyHandler(svc.Inventory, logger))
			r.Patch("/{id}", updatePropertyHandler(svc.Inventory, logger))
			r.Delete("/{id}", removePropertyHandler(svc.Inventory, logger))
		})

		// =============================================
		// Dashboard
		// =============================================
		r.With(requireService(svc.Dashboard != nil)).Get("/dashboard", dashboardHandler(svc.Dashboard, logger))

		// =============================================
		// Directory
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(requireService(svc.Directory != nil))
			r.Get("/teams", listTeamsHandler(svc.Directory, logger))
			r.Post("/teams", createTeamHandler(svc.Directory, logger))
			r.Put("/teams/{id}", renameTeamHandler(svc.Directory, logger))
			r.Get("/users", listUsersHandler(svc.Directory, logger))
			r.Get("/users/me", currentUserHandler(svc.Directory, logger))
			r.Get("/users/{id}", getUserHandler(svc.Directory, logger))
			r.Put("/users/{id}", saveUserHandler(svc.Directory, logger))
			r.Get("/payment-schemas", listPaymentSchemasHandler(svc.Directory, logger))
			r.Post("/payment-schemas", createPaymentSchemaHandler(svc.Directory, logger))
			r.Get("/payment-schemas/{id}", getPaymentSchemaHandler(svc.Directory, logger))
			r.Put("/payment-schemas/{id}", updatePaymentSchemaHandler(svc.Directory, logger))
		})
	})

	return r
}

func requireService(ok bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ok {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "service not configured")
		})
	}
}

// ============================================================
// Health
// ============================================================

type dependencyHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"last_checked"`
}

type healthResponse struct {
	Status   string             `json:"status"`
	Services []dependencyHealth `json:"services"`
}

// healthzHandler runs every probe. A failing probe degrades the report but
// the endpoint still answers 200 so orchestrators keep the process alive.
func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().UTC().Format(time.RFC3339)

		resp := healthResponse{
			Status:   "healthy",
			Services: []dependencyHealth{{Name: "pipeline-api", Status: "healthy", LastChecked: now}},
		}
		for _, c := range checks {
			start := time.Now()
			err := c.Check(ctx)
			dep := dependencyHealth{Name: c.Name, Status: "healthy", LatencyMs: time.Since(start).Milliseconds(), LastChecked: now}
			if err != nil {
				dep.Status = "degraded"
				dep.Error = err.Error()
				resp.Status = "degraded"
			}
			resp.Services = append(resp.Services, dep)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
