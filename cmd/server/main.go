package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/freightdesk/backoffice/internal"
	"github.com/freightdesk/backoffice/internal/handler/api"
	"github.com/freightdesk/backoffice/internal/middleware"
	"github.com/freightdesk/backoffice/internal/postgres"
	"github.com/freightdesk/backoffice/internal/router"
	"github.com/freightdesk/backoffice/internal/routes"
	"github.com/freightdesk/backoffice/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize store and service
	invoiceStore := postgres.NewInvoiceStore(pool)
	invoiceService := service.NewInvoiceService(invoiceStore, nil, logger)
	logger.Info("Invoice service initialized")

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics(cfg.MetricsNamespace)

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		router.Logger(logger),
		middleware.WithRequestLogger(logger),
	)

	// Metrics endpoint (no auth required, protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	franchiseMiddleware := middleware.ResolveFranchise(logger)
	if cfg.DefaultFranchiseID > 0 {
		// Single-franchise deployment with no gateway in front.
		logger.Warn("Using default franchise for all requests", "franchise_id", cfg.DefaultFranchiseID)
		franchiseMiddleware = middleware.DefaultFranchise(cfg.DefaultFranchiseID)
	}

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Invoices:  api.NewInvoiceHandler(invoiceService, logger),
		Franchise: franchiseMiddleware,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
