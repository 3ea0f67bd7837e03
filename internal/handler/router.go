package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services and settings the router serves.
type Deps struct {
	Projects  *service.ProjectService
	Ledgers   *service.LedgerService
	Suppliers *service.SupplierService
	Dashboard *service.DashboardService
	Tokens    *service.TokenVerifier

	Store   Pinger
	Backend string

	DevAuth        bool
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract consumed by the JengaTrack dashboard.
func NewRouter(deps Deps, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", devAccountHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Store, deps.Backend, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Tokens, deps.DevAuth, logger))

		r.Get("/metrics/summary", metricsSummaryHandler(metrics))

		// =============================================
		// Projects & dashboard
		// =============================================
		r.Get("/projects", listProjectsHandler(deps.Projects, logger))
		r.Post("/projects", createProjectHandler(deps.Projects, logger))
		r.Get("/projects/{projectId}", getProjectHandler(deps.Projects, logger))
		r.Put("/projects/{projectId}", updateProjectHandler(deps.Projects, logger))
		r.Get("/projects/{projectId}/summary", projectSummaryHandler(deps.Dashboard, logger))

		// =============================================
		// Tasks, milestones, inventory
		// =============================================
		r.Get("/projects/{projectId}/tasks", listTasksHandler(deps.Projects, logger))
		r.Post("/projects/{projectId}/tasks", createTaskHandler(deps.Projects, logger))
		r.Put("/tasks/{taskId}", updateTaskHandler(deps.Projects, logger))

		r.Get("/projects/{projectId}/milestones", listMilestonesHandler(deps.Projects, logger))
		r.Post("/projects/{projectId}/milestones", createMilestoneHandler(deps.Projects, logger))
		r.Put("/milestones/{milestoneId}", updateMilestoneHandler(deps.Projects, logger))

		r.Get("/projects/{projectId}/inventory", listInventoryHandler(deps.Projects, logger))
		r.Post("/projects/{projectId}/inventory", createInventoryHandler(deps.Projects, logger))
		r.Put("/inventory/{itemId}", updateInventoryHandler(deps.Projects, logger))

		// =============================================
		// Daily ledgers & cash deposits
		// =============================================
		r.Get("/projects/{projectId}/opening-balance/{date}", openingBalanceHandler(deps.Ledgers, logger))
		r.Post("/daily-ledgers", createDailyLedgerHandler(deps.Ledgers, logger))
		r.Get("/projects/{projectId}/daily-ledgers", listDailyLedgersHandler(deps.Ledgers, logger))
		r.Get("/projects/{projectId}/daily-ledgers/{date}", getDailyLedgerHandler(deps.Ledgers, logger))
		r.Post("/cash-deposits", createCashDepositHandler(deps.Ledgers, logger))
		r.Get("/projects/{projectId}/cash-deposits", listCashDepositsHandler(deps.Ledgers, logger))

		// =============================================
		// Supplier credit
		// =============================================
		r.Get("/suppliers", listSuppliersHandler(deps.Suppliers, logger))
		r.Post("/suppliers", createSupplierHandler(deps.Suppliers, logger))
		r.Get("/suppliers/{supplierId}", getSupplierHandler(deps.Suppliers, logger))
		r.Put("/suppliers/{supplierId}", updateSupplierHandler(deps.Suppliers, logger))
		r.Post("/suppliers/{supplierId}/credits", addSupplierCreditHandler(deps.Suppliers, logger))
		r.Get("/suppliers/{supplierId}/transactions", supplierTransactionsHandler(deps.Suppliers, logger))
		r.Post("/supplier-purchases", createSupplierPurchaseHandler(deps.Suppliers, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store Pinger, backend string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "jengatrack-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "unhealthy"
				logger.Warn("store health check failed", zap.String("backend", backend), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name:        "store",
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overall := "healthy"
		code := http.StatusOK
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, domain.HealthStatus{
			Status:   overall,
			Backend:  backend,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
