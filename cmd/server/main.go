package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tempora-ai/be-timesheets/internal/client"
	"github.com/tempora-ai/be-timesheets/internal/config"
	"github.com/tempora-ai/be-timesheets/internal/database"
	"github.com/tempora-ai/be-timesheets/internal/handler"
	"github.com/tempora-ai/be-timesheets/internal/logger"
	"github.com/tempora-ai/be-timesheets/internal/middleware"
	"github.com/tempora-ai/be-timesheets/internal/repository"
	"github.com/tempora-ai/be-timesheets/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Timesheets Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Run migrations
	if err := repository.RunMigrations(ctx, cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	log.Info().Msg("Database migrations applied")

	// Initialize repositories
	entryRepo := repository.NewTimeEntryRepository(db)
	lockRepo := repository.NewLockRepository(db)
	rateRepo := repository.NewRateCardRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize NATS publisher (optional)
	var events service.EventPublisher
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer conn.Drain()
		events = client.NewNotificationPublisher(conn, log.Logger)
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("NATS event publisher initialized")
	} else {
		log.Warn().Msg("NATS_URL not set, workflow event publishing disabled")
	}

	// Initialize services
	entryService := service.NewTimeEntryService(entryRepo, lockRepo, auditRepo, events, log)
	lockService := service.NewLockService(lockRepo, entryRepo, auditRepo, log)
	financeService := service.NewFinanceService(entryRepo, rateRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(entryService, lockService, financeService, []byte(cfg.Auth.JWTSecret), log)
	mux := httpHandler.Routes()

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
