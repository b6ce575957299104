package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/config"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/bank"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/metrics"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/persistence/postgres"
	redisstore "github.com/DanielPopoola/posnet-gateway/internal/infrastructure/persistence/redis"
	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest/openapi"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/security"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
	"github.com/DanielPopoola/posnet-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logger, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting posnet gateway",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"session_store", cfg.ThreeDS.SessionStore,
		"journal", cfg.Database.Enabled,
	)

	ctx := context.Background()
	checks := map[string]handlers.HealthCheck{}

	var db *postgres.DB
	if cfg.UsesDatabase() {
		db, err = postgres.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checks["postgres"] = db.Ping
	}

	var journal application.TransactionJournal
	var journalRepo *postgres.JournalRepository
	if cfg.Database.Enabled {
		journalRepo = postgres.NewJournalRepository(db)
		journal = journalRepo
	}

	sessions, sweeper, closeSessions, err := sessionStore(ctx, cfg, db, checks)
	if err != nil {
		logger.Error("failed to open session store", "store", cfg.ThreeDS.SessionStore, "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	validator := validation.New(validation.WithLuhn(cfg.Validation.EnforceLuhn))
	authenticator := security.NewAuthenticator(cfg.BankClient.EncKey, cfg.BankClient.MerchantID, cfg.BankClient.TerminalID)
	header := posnet.Header{MerchantID: cfg.BankClient.MerchantID, TerminalID: cfg.BankClient.TerminalID}

	gatewayClient := bank.NewGatewayClient(cfg.BankClient, logger)
	retryGateway := bank.NewRetryGateway(gatewayClient, cfg.Retry, logger)

	paymentService := services.NewPaymentService(retryGateway, validator, header, journal, recorder, logger)
	threeDSService := services.NewThreeDSecureService(
		retryGateway,
		validator,
		header,
		services.ThreeDSecureOptions{
			PosnetID:    cfg.BankClient.PosnetID,
			RedirectURL: cfg.BankClient.OOSURL,
			ReturnURL:   cfg.ThreeDS.ReturnURL,
			Lang:        cfg.ThreeDS.Lang,
		},
		authenticator,
		sessions,
		journal,
		recorder,
		logger,
	)

	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("failed to load openapi document", "error", err)
		os.Exit(1)
	}
	validateRequests, err := middleware.ValidateRequests(doc, logger)
	if err != nil {
		logger.Error("failed to build request validator", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	h := handlers.NewHandlers(paymentService, threeDSService, logger)
	h.Register(mux, middleware.Metrics(recorder))
	mux.Handle("GET /healthz", handlers.Health(checks, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /openapi.yaml", openapi.Handler())

	handler := validateRequests(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.Timeout(cfg.Server.RequestTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if sweeper != nil {
		go worker.NewSessionSweeper(sweeper, cfg.ThreeDS.SessionTTL, cfg.ThreeDS.SweepInterval, logger).Start(workerCtx)
	}
	if journalRepo != nil {
		go worker.NewReconciler(journalRepo, paymentService, cfg.Worker, logger).Start(workerCtx)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// sessionStore opens the configured 3-D Secure session store. The sweeper is
// nil for stores that expire sessions themselves.
func sessionStore(
	ctx context.Context,
	cfg *config.Config,
	db *postgres.DB,
	checks map[string]handlers.HealthCheck,
) (application.SessionStore, application.SessionSweeper, func(), error) {
	switch cfg.ThreeDS.SessionStore {
	case "redis":
		client, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return redisstore.NewSessionStore(client, cfg.ThreeDS.SessionTTL), nil, closeRedis(client), nil
	case "postgres":
		repo := postgres.NewSessionRepository(db)
		return repo, repo, func() {}, nil
	default:
		return memory.NewSessionStore(cfg.ThreeDS.SessionTTL, cfg.ThreeDS.SweepInterval), nil, func() {}, nil
	}
}

func closeRedis(client *redis.Client) func() {
	return func() {
		_ = client.Close()
	}
}
