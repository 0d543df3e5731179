// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-management-service/internal/api"
	"loan-management-service/internal/common/auth"
	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/ratelimit"
	"loan-management-service/internal/services/application"
	"loan-management-service/internal/services/documents"
	"loan-management-service/internal/services/masters"
	"loan-management-service/internal/services/notifier"
	"loan-management-service/internal/services/search"
	"loan-management-service/internal/services/sequence"
	"loan-management-service/internal/services/statistics"
	"loan-management-service/internal/services/validation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan management service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// --- Init document store ---
	var store database.DocumentStore
	switch cfg.Store.Backend {
	case "memory":
		store = database.NewMemoryStore()
		zapLog.Info("Using in-memory document store")
	default:
		var fs *database.FirestoreStore
		err = retryWithBackoff(func() error {
			var err error
			fs, err = database.NewFirestore(ctx, cfg.Store)
			return err
		}, 5, 2*time.Second, zapLog, "Firestore connection")
		if err != nil {
			zapLog.Fatal("firestore failed after retries", zap.Error(err))
		}
		store = fs
		zapLog.Info("Firestore connected successfully", zap.String("projectId", cfg.Store.ProjectID))
	}
	defer store.Close()

	// --- Init Redis (rate limiting) ---
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient.GetClient(), log, cfg.RateLimit)
		zapLog.Info("Redis connected successfully, rate limiting enabled")
	}

	// --- Init Elasticsearch (search index) ---
	searcher := search.NewService(nil, log, cfg.Search)
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		searcher = search.NewService(esClient.Client, log, cfg.Search)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Search.Index))
	}

	// --- Init notifications ---
	var decisionNotifier application.DecisionNotifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		n, err := notifier.NewService(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("notification service failed", zap.Error(err))
		}
		decisionNotifier = n
		zapLog.Info("Decision notifications enabled",
			zap.Bool("email", cfg.Notifications.Email.Enabled),
			zap.Bool("sms", cfg.Notifications.SMS.Enabled),
		)
	}

	// --- Wire services ---
	allocator := sequence.NewAllocator(store, log, cfg.Sequence)
	stats := statistics.NewService(store, log, cfg.Statistics)
	docs := documents.NewService(log, cfg.Uploads)
	mastersSvc := masters.NewService(store, log, cfg.Masters)
	apps := application.NewService(store, allocator, stats, docs, decisionNotifier, searcher, log)

	validator, err := validation.NewValidator()
	if err != nil {
		zapLog.Fatal("validator init failed", zap.Error(err))
	}

	verifier := auth.NewVerifier(cfg.Auth)
	handlers := api.NewHandlers(apps, stats, mastersSvc, validator, searcher, log)
	router := api.NewRouter(handlers, verifier, limiter, log)
	server := api.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...", zap.String("signal", sig.String()))
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Millisecond
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("Loan management service stopped gracefully")
}
