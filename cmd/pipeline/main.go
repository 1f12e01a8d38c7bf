package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/config"
	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/handler"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/cache"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/messaging"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/provider"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
	"github.com/boddenberg/realty-pipeline-go/internal/service"
)

const serviceName = "realty-pipeline"

func main() {
	issueFor := flag.String("issue-token", "", "print a signed identity token for this user id and exit")
	issueTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, serviceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("inventory_source", cfg.InventorySource),
		zap.Bool("events_enabled", cfg.AMQPURL != ""),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("dashboard_cache_ttl", cfg.DashboardCacheTTL),
		zap.Int("stale_prospect_days", cfg.StaleProspectDays),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Relational store ---
	db, err := database.Open(database.Options{
		Driver:      cfg.DatabaseDriver,
		DSN:         cfg.DatabaseDSN,
		AutoMigrate: cfg.DBAutoMigrate,
		Debug:       cfg.DBDebug,
	}, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	prospects := database.NewProspectStore(db, logger)
	notes := database.NewNoteStore(db, logger)
	activities := database.NewActivityStore(db, logger)
	directory := database.NewDirectoryStore(db, logger)

	loc := cfg.Location()
	opts := []service.Option{service.WithLocation(loc)}
	identitySvc := service.NewIdentityService(directory, cfg.IdentityJWTSecret, logger, opts...)

	if *issueFor != "" {
		token, err := identitySvc.IssueToken(*issueFor, *issueTTL)
		if err != nil {
			logger.Fatal("failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}
	if cfg.IdentityJWTSecret == "" {
		logger.Warn("IDENTITY_JWT_SECRET not set, every /v1 request will be rejected")
	}

	// --- Inventory backend ---
	inner, releaseInventory, err := provider.NewFactory(cfg, db, logger).Build(ctx)
	if err != nil {
		logger.Fatal("failed to build inventory provider", zap.Error(err))
	}
	defer releaseInventory(context.Background())
	inventory := provider.NewGuard(inner, prospects, logger)
	logger.Info("inventory provider ready", zap.String("backend", inventory.Backend()))

	// --- Domain events ---
	var events port.EventPublisher = messaging.Noop{}
	if cfg.AMQPURL != "" {
		pub, err := messaging.Dial(cfg.AMQPURL, cfg.AMQPExchange, metrics, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer pub.Close()
		events = pub
		logger.Info("publishing domain events", zap.String("exchange", cfg.AMQPExchange))
	}

	// --- Cache ---
	dashboardCache := cache.New[*domain.Dashboard](cfg.DashboardCacheTTL)
	defer dashboardCache.Close()

	// --- Services ---
	dashboardSvc := service.NewDashboardService(prospects, activities, directory, inventory, dashboardCache, metrics, logger, opts...)
	services := handler.Services{
		Pipeline:   service.NewPipelineService(prospects, notes, directory, inventory, events, dashboardSvc, metrics, logger, opts...),
		Activities: service.NewActivityService(activities, prospects, directory, cfg.StaleProspectDays, events, dashboardSvc, metrics, logger, opts...),
		Inventory:  service.NewInventoryService(inventory, events, dashboardSvc, metrics, logger, opts...),
		Directory:  service.NewDirectoryService(directory, dashboardSvc, metrics, logger, opts...),
		Dashboard:  dashboardSvc,
		Auth:       identitySvc,
	}

	checks := []handler.HealthCheck{
		{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "inventory:" + inventory.Backend(), Check: func(ctx context.Context) error {
			_, err := inventory.GetAll(ctx)
			return err
		}},
	}

	// --- Router ---
	router := handler.NewRouter(services, checks, metrics, logger)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
