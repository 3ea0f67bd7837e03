package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/config"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/handler"
	"github.com/jengatrack/jengatrack-api/internal/infra/cache"
	"github.com/jengatrack/jengatrack-api/internal/infra/memstore"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/infra/resilience"
	"github.com/jengatrack/jengatrack-api/internal/infra/supabase"
	"github.com/jengatrack/jengatrack-api/internal/port"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "jengatrack-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	projectCache := cache.New[domain.Project](cfg.CacheTTL)
	defer projectCache.Close()

	// --- Store ---
	var store port.Store
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			logger.Fatal("supabase backend requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("supabase", logger)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			metrics,
			logger,
		)
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		logger.Fatal("unknown store backend", zap.String("store_backend", cfg.StoreBackend))
	}

	if cfg.DevAuth {
		logger.Warn("DEV_AUTH enabled, X-Account-ID header is trusted")
	}

	// --- Services ---
	projects := service.NewProjectService(store, projectCache, metrics, logger)
	ledgers := service.NewLedgerService(store, projects, metrics, logger)
	suppliers := service.NewSupplierService(store, projects, metrics, logger)
	dashboard := service.NewDashboardService(store, projects, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Projects:       projects,
		Ledgers:        ledgers,
		Suppliers:      suppliers,
		Dashboard:      dashboard,
		Tokens:         service.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Store:          store,
		Backend:        cfg.StoreBackend,
		DevAuth:        cfg.DevAuth,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
