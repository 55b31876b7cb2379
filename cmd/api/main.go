package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outbound-calls/internal/audit"
	"outbound-calls/internal/auth"
	"outbound-calls/internal/calls"
	"outbound-calls/internal/config"
	"outbound-calls/internal/dialer"
	"outbound-calls/internal/events"
	"outbound-calls/internal/telephony"
	"outbound-calls/pkg/logger"
	"outbound-calls/pkg/metrics"
	"outbound-calls/pkg/tracing"
	"outbound-calls/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	shutdownTracing := tracing.Setup("outbound-calls")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	m := metrics.NewManager()

	store, journalRepo, closeStore, err := openStore(rootCtx, cfg)
	if err != nil {
		log.Error("store init failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	journal := audit.NewService(journalRepo)
	tracker := calls.NewTracker(store,
		calls.WithJournal(journal),
		calls.WithRecorder(m),
	)

	client, err := telephony.NewClient(cfg.Twilio, cfg.AMD, telephony.WithRecorder(m))
	if err != nil {
		log.Error("telephony init failed", "err", err)
		os.Exit(1)
	}

	deps := routeDeps{
		auth:    authManager,
		metrics: m,
		dialer: dialer.NewService(tracker, client,
			dialer.WithAMD(client.AMDEnabled()),
			dialer.WithRecorder(m),
		),
		journal: journal,
		webhooks: telephony.WebhookHandler{
			Tracker:  tracker,
			Registry: events.NewRegistry(),
			Metrics:  m,
		},
	}
	if cfg.Twilio.ValidateSignatures {
		deps.signatures = telephony.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.Twilio.BaseURL,
			cfg.Twilio.StatusCallbackURL,
			cfg.AMD.CallbackURL,
		)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, "outbound-calls"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"store", cfg.Store.Backend,
			"amd", cfg.AMD.Enabled,
			"signatures", cfg.Twilio.ValidateSignatures,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// openStore builds the call store and journal repository for the configured
// backend. The returned func releases connections.
func openStore(ctx context.Context, cfg config.Config) (calls.Store, audit.Repository, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := utils.OpenPostgres(ctx, utils.DriverPGX, cfg.PostgresDSN(), cfg.PostgresPool())
		if err != nil {
			return nil, nil, nil, err
		}
		store := calls.NewPostgresStore(db)
		repo := audit.NewPostgresRepo(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return store, repo, func() { _ = db.Close() }, nil

	case "redis":
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		store := calls.NewRedisStore(rdb, cfg.Store.RedisPrefix, cfg.Store.RedisTTL)
		return store, audit.NewMemoryRepo(), func() { _ = rdb.Close() }, nil

	default:
		return calls.NewMemoryStore(), audit.NewMemoryRepo(), func() {}, nil
	}
}
