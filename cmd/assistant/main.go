// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finplan-assistant/internal/api"
	"finplan-assistant/internal/chat/general"
	"finplan-assistant/internal/chat/orchestrator"
	"finplan-assistant/internal/chat/personalized"
	"finplan-assistant/internal/chat/router"
	"finplan-assistant/internal/common/config"
	"finplan-assistant/internal/common/database"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/observability"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/planner"
	"finplan-assistant/internal/profile"
	"finplan-assistant/internal/security"
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

	zapLog.Info("Starting assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tp, err := observability.NewTracerProvider(cfg.App.Name, cfg.App.Version, os.Getenv("JAEGER_ENDPOINT"), 1.0)
	if err != nil {
		zapLog.Fatal("tracer init failed", zap.Error(err))
	}
	defer tp.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
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
	zapLog.Info("Redis connected successfully")

	// --- Build the pipeline ---
	sanitizer := security.NewSanitizer(cfg.Security)
	events := security.NewEventRecorder(log)
	llmClient := llm.NewHTTPClient(&llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		MaxRetries: cfg.LLM.Router.MaxRetries,
	}, log)

	profiles := profile.NewRedisStore(redisClient, cfg.Profile, log)

	orch := orchestrator.New(
		router.NewHandler(router.LoadConfig(cfg), llmClient, sanitizer, events, log),
		general.NewHandler(general.LoadConfig(cfg), llmClient, sanitizer, events, log),
		personalized.NewHandler(personalized.LoadConfig(cfg), llmClient, sanitizer, events, log),
		profiles,
		tp.Tracer(),
		log,
	)
	plans := planner.NewHandler(planner.LoadConfig(cfg), llmClient, sanitizer, events, log)

	server := api.NewServer(orch, plans, profiles, security.NewAllowAllLimiter(), obs, log)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.Routes(),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Metrics and pprof on a separate listener
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Assistant stopped gracefully")
}
