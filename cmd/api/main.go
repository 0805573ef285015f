package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/voiceclinic/callpilot/internal/api/router"
	"github.com/voiceclinic/callpilot/internal/calls"
	appconfig "github.com/voiceclinic/callpilot/internal/config"
	"github.com/voiceclinic/callpilot/internal/directory"
	"github.com/voiceclinic/callpilot/internal/extraction"
	"github.com/voiceclinic/callpilot/internal/observability/metrics"
	"github.com/voiceclinic/callpilot/internal/scheduling"
	"github.com/voiceclinic/callpilot/internal/webhook"
	"github.com/voiceclinic/callpilot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting callpilot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	geminiClient, err := extraction.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = geminiClient.Close() }()

	// Per-(doctor, date) lock: Redis when configured, otherwise in-process.
	var locker scheduling.Locker = scheduling.NewMutexLocker()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
		locker = scheduling.NewRedisLocker(redisClient, cfg.LockTTL)
	}

	webhookMetrics := metrics.NewWebhookMetrics(nil)

	extractor := extraction.NewExtractor(geminiClient, cfg.ExtractionTimeout, logger)
	directoryRepo := directory.NewPostgresRepository(pool)
	scheduler := scheduling.NewService(scheduling.NewPostgresStore(pool), locker, cfg.MaxDailyAppointments, logger)

	webhookHandler := webhook.NewHandler(extractor, directoryRepo, scheduler, cfg.DoctorAutoProvision, webhookMetrics, logger)
	callsHandler := calls.NewHandler(calls.NewRegistry(), logger)

	r := router.New(&router.Config{
		Logger:         logger,
		WebhookHandler: webhookHandler,
		CallsHandler:   callsHandler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
