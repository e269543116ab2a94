package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/auth"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/cms"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/events"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler/storefront"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler/webhook"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/middleware"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/notify"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/pesapal"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/postgres"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/router"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/routes"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/telemetry"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
		Debug:       cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

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

	orderStore := postgres.NewOrderStore(pool)
	stockStore := postgres.NewStockStore(pool)

	// Initialize payment gateway client
	gateway, err := pesapal.NewClient(pesapal.Config{
		BaseURL:        cfg.Pesapal.BaseURL,
		ConsumerKey:    cfg.Pesapal.ConsumerKey,
		ConsumerSecret: cfg.Pesapal.ConsumerSecret,
		CallbackURL:    cfg.Pesapal.CallbackURL,
		IPNURL:         cfg.Pesapal.IPNURL,
	}, pesapal.NewTokenCache(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	// Connect to NATS for order-finalized events
	logger.Info("Connecting to NATS...", "url", cfg.NATS.URL)
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("udl-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("NATS connection failed: %w", err)
	}
	defer nc.Close()
	publisher := events.NewNATSPublisher(nc)

	// Initialize operator notifications
	var notifier notify.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier, err = notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
	} else {
		logger.Warn("Telegram credentials not configured, operator notifications disabled")
		notifier = notify.NewMock()
	}

	// Initialize catalog client
	catalog, err := cms.NewClient(cms.Config{
		BaseURL: cfg.CMS.BaseURL,
		APIKey:  cfg.CMS.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize catalog client: %w", err)
	}

	// Initialize customer token verifier
	verifier, err := auth.NewHMACVerifier(cfg.AuthSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize auth verifier: %w", err)
	}

	// Initialize business metrics
	metrics := telemetry.NewMetrics("udl")

	// Initialize services
	checkoutService := service.NewCheckoutService(orderStore, gateway, catalog, logger, cfg.Currency)
	reconcileService := service.NewReconcileService(orderStore, gateway, publisher, logger, metrics, service.ReconcileConfig{
		PollAttempts: cfg.Reconcile.PollAttempts,
		PollDelay:    cfg.Reconcile.PollDelay,
	})
	orderService := service.NewOrderService(orderStore)

	// Build route dependencies
	storefrontDeps := routes.StorefrontDeps{
		ProductHandler:      storefront.NewProductHandler(catalog),
		CheckoutHandler:     storefront.NewCheckoutHandler(checkoutService, metrics),
		ConfirmationHandler: storefront.NewConfirmationHandler(reconcileService),
		OrderHandler:        storefront.NewOrderHandler(orderService, reconcileService),
	}
	webhookDeps := routes.WebhookDeps{
		IPNHandler: webhook.NewIPNHandler(reconcileService, metrics),
	}

	// Initialize middleware
	httpMetrics := middleware.NewMetrics("udl")

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	// Create router and register routes
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		telemetry.SentryMiddleware(),
		middleware.SecurityHeaders(securityConfig),
		middleware.WithCustomer(verifier),
		middleware.WithRequestLogger(logger),
		middleware.Timeout(middleware.DefaultTimeout),
		router.Logger(logger),
	)

	// Metrics endpoint (no auth required, but should be protected in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		httpMetrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)

	// Start the side-effect worker
	sideEffects := worker.NewWorker(nc, stockStore, notifier, logger, metrics, worker.Config{})
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- sideEffects.Start(ctx)
	}()

	// Start HTTP server. CORS wraps the router itself so preflight requests
	// are answered even for method/path pairs the mux would reject.
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router.CORS(cfg.CORSOrigins)(r),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// Worker drains its subscription when the run context is cancelled.
	select {
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker stopped with error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("Worker did not stop before shutdown deadline")
	}

	logger.Info("Shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
