package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/intel-pipeline/internal/adapter/api"
	"github.com/user/intel-pipeline/internal/adapter/api/middleware"
	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/adapter/repository/postgres"
	redisrepo "github.com/user/intel-pipeline/internal/adapter/repository/redis"
	"github.com/user/intel-pipeline/internal/adapter/repository/wal"
	"github.com/user/intel-pipeline/internal/pkg/config"
	"github.com/user/intel-pipeline/internal/pkg/logger"
	"github.com/user/intel-pipeline/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting submit service")

	m := metrics.NewIngestMetrics()

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.OpsServerAddr,
		Handler: metricsMux,
	}

	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, will proceed in WAL-only mode", "error", err)
	}

	// --- Repositories ---
	walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize WAL repository", "error", err)
		os.Exit(1)
	}
	defer walRepo.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(db, log, cfg.APIKeyCacheTTL, m)
	queueRepo, err := redisrepo.NewQueueRepository(redisClient, log, cfg.ConsumerGroup, cfg.DLQStream, cfg.PollBlock, walRepo)
	if err != nil && !errors.Is(err, redisrepo.ErrRedisNotAvailable) {
		log.Error("failed to initialize redis queue repository", "error", err)
		os.Exit(1)
	}

	// Start the queue health check and WAL replay loop
	go queueRepo.StartHealthCheck(ctx, 5*time.Second)

	// --- Use Cases ---
	submitUseCase := usecase.NewSubmitMessageUseCase(queueRepo, log)

	// The SSE bridge shares the Redis connection with the queue.
	publisher := redisrepo.NewPublisher(redisClient, log, cfg.PublishTimeout)

	// --- Submit Server ---
	submitRouter := api.NewRouter(cfg, log, apiKeyRepo, submitUseCase, m, publisher)
	submitServer := &http.Server{
		Addr:         cfg.SubmitServerAddr,
		Handler:      middleware.Logging(log)(submitRouter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting submit server", "addr", submitServer.Addr)
		if err := submitServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("submit server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
	if err := submitServer.Shutdown(shutdownCtx); err != nil {
		log.Error("submit server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
