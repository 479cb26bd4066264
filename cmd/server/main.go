package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightledger-service/internal/infrastructure/config"
	"flightledger-service/internal/infrastructure/persistence"
	"flightledger-service/internal/interface/flightdata"
	"flightledger-service/internal/interface/httpapi"
	"flightledger-service/internal/interface/ledger"
	mongoRepo "flightledger-service/internal/interface/repository"
	"flightledger-service/internal/usecase"
	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/metrics"
	"flightledger-service/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Flight Ledger Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// The transform pipeline refuses to start on a bad key; fail here
	// rather than on the first poll tick.
	transformer, err := utils.NewLedgerTransformer([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatal("Invalid encryption key", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection (mirror store)
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Reference data (airlines, airports)
	gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	airlineRepository := mongoRepo.NewGormAirlineRepository(gormDB)
	airportRepository := mongoRepo.NewGormAirportRepository(gormDB)
	flightRecordRepo := mongoRepo.NewMongoFlightRecordRepository(db)

	appMetrics := metrics.NewMetrics("flightledger", prometheus.DefaultRegisterer)

	// External collaborators
	flightDataClient := flightdata.NewClient(flightdata.Config{
		BaseURL:      cfg.FlightDataBaseURL,
		TokenURL:     cfg.FlightDataTokenURL,
		ClientID:     cfg.FlightDataClientID,
		ClientSecret: cfg.FlightDataClientSecret,
		CallTimeout:  cfg.ExternalCallTimeout,
	}, airportRepository, airlineRepository, log)

	signer := ledger.NewSigner(cfg.LedgerSignerID, []byte(cfg.LedgerSignerSecret))
	ledgerClient := ledger.NewClient(
		cfg.LedgerEndpoint,
		signer,
		cfg.ExternalCallTimeout,
		cfg.LedgerConfirmPoll,
		cfg.LedgerConfirmTimeout,
		log,
	)

	// Core pipeline; syncer and reconciler share the per-key locks
	locks := usecase.NewKeyMutex()
	validator := usecase.NewTransitionValidator()
	syncer := usecase.NewStatusSyncer(
		flightRecordRepo,
		flightDataClient,
		ledgerClient,
		transformer,
		validator,
		locks,
		appMetrics,
		log,
		cfg.ExternalCallTimeout,
	)
	reconciler := usecase.NewReconciler(
		flightRecordRepo,
		ledgerClient,
		transformer,
		locks,
		appMetrics,
		log,
		usecase.ReconcilerConfig{
			CallTimeout: cfg.ExternalCallTimeout,
			MaxAttempts: cfg.ReconcileMaxAttempts,
			BaseBackoff: cfg.ReconcileBaseBackoff,
			MaxBackoff:  cfg.ReconcileMaxBackoff,
			BatchSize:   cfg.ReconcileBatchSize,
		},
	)

	historyService := usecase.NewHistoryService(ledgerClient, transformer, log)

	scheduler := usecase.NewScheduler(
		syncer.RunCycle, cfg.PollInterval,
		reconciler.RunSweep, cfg.SweepInterval,
		appMetrics, log,
	)

	// Start the scheduler in a goroutine
	go scheduler.Run(ctx)

	// Set up HTTP server for metrics and the subscription/query API
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	httpapi.NewFlightHandler(syncer, historyService, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop the scheduler

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Flight Ledger Service stopped")
}
