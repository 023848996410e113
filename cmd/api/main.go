package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/miguelsanz72/dreamframe/internal/httpapi"
	"github.com/miguelsanz72/dreamframe/internal/jobs"
	"github.com/miguelsanz72/dreamframe/internal/media"
	"github.com/miguelsanz72/dreamframe/internal/prompt"
	"github.com/miguelsanz72/dreamframe/internal/provider"
	"github.com/miguelsanz72/dreamframe/internal/record"
	"github.com/miguelsanz72/dreamframe/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	// Logger
	level := parseLogLevel(getenv("LOG_LEVEL", "INFO"))
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Config via env with sensible defaults
	addr := getenv("API_ADDR", ":8080")
	artifactsDir := getenv("ARTIFACTS_DIR", "./data/artifacts")
	recordsDir := getenv("RECORDS_DIR", "./data/records")
	veoAPIKey := getenv("VEO_API_KEY", "")
	veoBaseURL := getenv("VEO_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	veoModel := getenv("VEO_MODEL", "veo-3.0-generate-preview")
	pollIntervalSec := getEnvInt("POLL_INTERVAL_SEC", 10)
	maxPollAttempts := getEnvInt("POLL_MAX_ATTEMPTS", 30)
	maxConcurrent := getEnvInt("MAX_CONCURRENT_JOBS", 8)
	fallbackEnabled := getEnvBool("FALLBACK_ENABLED", true)
	retentionMin := getEnvInt("RETENTION_MINUTES", 60)
	stuckCeilingMin := getEnvInt("STUCK_CEILING_MINUTES", 24*60)
	reapIntervalMin := getEnvInt("REAP_INTERVAL_MINUTES", 10)
	webhookRetries := getEnvInt("WEBHOOK_MAX_RETRIES", 5)
	webhookTimeoutSec := getEnvInt("WEBHOOK_TIMEOUT_SEC", 10)

	// Core components
	store := jobs.NewStore()
	streamer := jobs.NewEventStreamer()
	sender := webhook.NewHTTPSender(time.Duration(webhookTimeoutSec)*time.Second, webhookRetries)
	materializer := media.NewMaterializer(artifactsDir, media.NewFFmpegExtractor())
	primary := provider.NewVeoClient(veoAPIKey, veoBaseURL, veoModel)
	synthetic := provider.NewSyntheticClient()
	enhancer := prompt.NewRuleEnhancer()

	recorder, err := record.NewFileStore(recordsDir)
	if err != nil {
		slog.Error("failed to initialize record store", "error", err)
		os.Exit(1)
	}

	orchestrator, err := jobs.NewOrchestrator(
		store, primary, synthetic, materializer, enhancer, recorder, sender, streamer,
		jobs.OrchestratorConfig{
			PollInterval:    time.Duration(pollIntervalSec) * time.Second,
			MaxPollAttempts: maxPollAttempts,
			MaxConcurrent:   maxConcurrent,
			FallbackEnabled: fallbackEnabled,
		},
	)
	if err != nil {
		slog.Error("failed to initialize orchestrator", "error", err)
		os.Exit(1)
	}
	defer orchestrator.Stop()

	reaper := jobs.NewReaper(store, materializer, recorder,
		time.Duration(retentionMin)*time.Minute,
		time.Duration(stuckCeilingMin)*time.Minute,
		time.Duration(reapIntervalMin)*time.Minute,
	)
	reaper.Start()
	defer reaper.Stop()

	mux := httpapi.NewRouter(orchestrator, streamer)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	default:
		return def
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "INFO", "info":
		return slog.LevelInfo
	case "WARN", "warning", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
