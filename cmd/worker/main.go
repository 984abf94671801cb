package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/intel-pipeline/internal/adapter/api"
	"github.com/user/intel-pipeline/internal/adapter/api/handler"
	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/adapter/redact"
	"github.com/user/intel-pipeline/internal/adapter/repository/postgres"
	redisrepo "github.com/user/intel-pipeline/internal/adapter/repository/redis"
	"github.com/user/intel-pipeline/internal/adapter/score"
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
	log.Info("starting consumer worker")

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connections ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "worker-default"
	}

	// --- Repositories ---
	queueRepo, err := redisrepo.NewQueueRepository(redisClient, log, cfg.ConsumerGroup, cfg.DLQStream, cfg.PollBlock, nil)
	if err != nil {
		log.Error("failed to create redis queue repository", "error", err)
		os.Exit(1)
	}
	metricRepo := redisrepo.NewMetricRepository(redisClient, log, cfg.MetricRetention)
	publisher := redisrepo.NewPublisher(redisClient, log, cfg.PublishTimeout)
	eventRepo := postgres.NewEventRepository(db, log)
	provenanceRepo := postgres.NewProvenanceRepository(db, log)
	ruleRepo := postgres.NewRuleRepository(db, log, cfg.RuleCacheTTL)

	// --- Processing Pipeline ---
	workerStats := metrics.NewWorkerMetrics()
	healthMonitor := usecase.NewHealthMonitor(usecase.DefaultHealthThresholds())
	alerter := usecase.NewAlerter(ruleRepo, cfg.AlertCooldown, log)

	processUseCase := usecase.NewProcessMessagesUseCase(usecase.ProcessDeps{
		Queue:       queueRepo,
		Events:      eventRepo,
		Provenance:  provenanceRepo,
		MetricStore: metricRepo,
		Publisher:   publisher,
		Alerter:     alerter,
		Health:      healthMonitor,
		Redactor:    redact.NewRedactor(),
		Scorer:      score.NewScorer(score.DefaultReputation, cfg.PriorityThreshold, cfg.PriorityBonus),
		WorkerStats: workerStats,
		Logger:      log,
	}, usecase.ProcessOptions{
		Group:          cfg.ConsumerGroup,
		Consumer:       consumerName,
		BatchSize:      cfg.BatchSize,
		MessageTimeout: cfg.MessageTimeout,
		CostThreshold:  cfg.CostThreshold,
	})

	// --- Poison Message Reaper ---
	adminRepo := redisrepo.NewAdminRepository(redisClient, log)
	reaper := usecase.NewPoisonReaper(adminRepo, queueRepo, log, usecase.ReaperOptions{
		Group:         cfg.ConsumerGroup,
		Consumer:      consumerName,
		MaxDeliveries: cfg.MaxDeliveries,
		MinIdle:       cfg.ReapMinIdle,
	})
	go reaper.Run(ctx, cfg.ReapInterval)

	// --- Ops and Metrics Server ---
	adminUseCase := usecase.NewQueueAdminUseCase(adminRepo)
	opsHandler := handler.NewOpsHandler(healthMonitor, metricRepo, log)

	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", promhttp.Handler())
	opsMux.Handle("/", api.NewOpsRouter(opsHandler, adminUseCase, log))
	opsServer := &http.Server{
		Addr:    cfg.OpsServerAddr,
		Handler: opsMux,
	}

	go func() {
		log.Info("starting ops & metrics server", "addr", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops & metrics server failed", "error", err)
		}
	}()

	// --- Consumer Loop ---
	log.Info("consumer worker started, processing messages...",
		"group", cfg.ConsumerGroup, "consumer", consumerName)

	backoff := cfg.MinPollBackoff
	for ctx.Err() == nil {
		_, _, err := processUseCase.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("error processing batch, backing off", "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			backoff *= 2
			if backoff > cfg.MaxPollBackoff {
				backoff = cfg.MaxPollBackoff
			}
			continue
		}
		backoff = cfg.MinPollBackoff
	}

	log.Info("context cancelled, shutting down consumer loop")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server shutdown failed", "error", err)
	}

	log.Info("consumer worker shut down gracefully")
}
