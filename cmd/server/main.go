package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/praxishq/be-pm-approvals/internal/client"
	"github.com/praxishq/be-pm-approvals/internal/config"
	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/execution"
	"github.com/praxishq/be-pm-approvals/internal/handler"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/middleware"
	"github.com/praxishq/be-pm-approvals/internal/natsclient"
	"github.com/praxishq/be-pm-approvals/internal/repository"
	"github.com/praxishq/be-pm-approvals/internal/service"
	"github.com/praxishq/be-pm-approvals/internal/worker"
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
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Approvals Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS (optional; empty URL disables notifications and the
	// outbox stays pending until a configured instance drains it)
	var nats *natsclient.Client
	if cfg.NATS.URL != "" {
		nats, err = natsclient.Connect(cfg.NATS.URL, cfg.Service.Name)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nats.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	} else {
		log.Warn().Msg("NATS_URL not set; notifications and outbox dispatch disabled")
	}

	// Initialize repositories
	approvalRepo := repository.NewApprovalRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	matterRepo := repository.NewMatterRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)

	stores := execution.Stores{
		Matters:           matterRepo,
		Tasks:             repository.NewTaskRepository(db),
		CalendarEvents:    repository.NewCalendarEventRepository(db),
		Invoices:          repository.NewInvoiceRepository(db),
		TimeEntries:       repository.NewTimeEntryRepository(db),
		Templates:         repository.NewTemplateRepository(db),
		ConflictChecks:    repository.NewConflictCheckRepository(db),
		SignatureRequests: repository.NewSignatureRequestRepository(db),
		Timeline:          timelineRepo,
		Outbox:            outboxRepo,
	}

	// Initialize the execution engine and services
	dispatcher := execution.NewDispatcher(stores, log)
	notifier := client.NewNotificationPublisher(nats, log.Logger)
	decisionService := service.NewDecisionService(db, approvalRepo, dispatcher, notifier, log)
	timelineService := service.NewTimelineService(db, matterRepo, timelineRepo, log)

	// Start the outbox worker
	if nats != nil {
		outboxWorker := worker.NewOutboxWorker(db, outboxRepo, nats, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, log)
		go outboxWorker.Run(ctx)
	}

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(decisionService, timelineService, log)
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	httpHandler.RegisterRoutes(router)

	// Apply middleware
	var h http.Handler = router
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

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
	cancel()

	log.Info().Msg("Server stopped")
}
