package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/emerald-altar/internal/auth"
	"github.com/jwebster45206/emerald-altar/internal/config"
	"github.com/jwebster45206/emerald-altar/internal/handlers"
	"github.com/jwebster45206/emerald-altar/internal/logger"
	"github.com/jwebster45206/emerald-altar/internal/middleware"
	"github.com/jwebster45206/emerald-altar/internal/narrative"
	"github.com/jwebster45206/emerald-altar/internal/services"
	"github.com/jwebster45206/emerald-altar/internal/storage"
	"github.com/jwebster45206/emerald-altar/pkg/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Emerald Altar API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"model_name", cfg.ModelName,
		"image_sink", cfg.ImageSink)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startupCancel()

	store, err := storage.Open(startupCtx, cfg.DatabasePath, log)
	if err != nil {
		log.Error("Failed to open database", "error", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	log.Info("Database ready", "path", cfg.DatabasePath)

	health := map[string]handlers.Pinger{"database": store}

	var locker services.CharacterLocker
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL, log)
		if err != nil {
			log.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		if err := redisService.WaitForConnection(startupCtx); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		locker = services.NewRedisLocker(redisService.GetClient(), cfg.CharacterLockTTL, log)
		health["redis"] = redisService
	} else {
		log.Info("REDIS_URL not set; character locks are per process")
		locker = services.NewLocalLocker()
	}

	openAI := services.NewOpenAIClient(services.OpenAIConfig{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.OpenAIBaseURL,
		TextModel:          cfg.ModelName,
		ImageModelHigh:     cfg.ImageModelHigh,
		ImageModelStandard: cfg.ImageModelStandard,
	}, log)
	if !openAI.Configured() {
		log.Warn("OPENAI_API_KEY not set; narrator replies will be apologies")
	}
	model := services.NewRetryingClient(openAI, openAI, log)

	var sink services.ImageSink = services.RemoteSink{}
	if cfg.ImageSink == "local" {
		if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
			log.Error("Failed to create image directory", "error", err, "dir", cfg.ImageDir)
			os.Exit(1)
		}
		sink = services.NewLocalSink(cfg.ImageDir, cfg.ImagePublicBaseURL, log)
	}
	illustrator := services.NewIllustrator(model, sink)

	mutator := state.NewMutator(store, log)
	if cfg.GenerateItemImages {
		mutator.WithImager(illustrator)
	}

	pipeline := narrative.NewPipeline(store, model, mutator, locker, log).
		WithConfig(narrative.Config{
			HistoryLimit:  cfg.PromptHistoryLimit,
			ContentRating: cfg.ContentRating,
		}).
		WithAvatars(illustrator)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	mux := http.NewServeMux()
	mux.Handle("GET /health", handlers.NewHealthHandler(health, log))
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.ImageSink == "local" {
		prefix := strings.TrimRight(cfg.ImagePublicBaseURL, "/") + "/"
		if strings.HasPrefix(prefix, "/") {
			mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.ImageDir))))
		}
	}
	handlers.Register(mux,
		tokens,
		handlers.NewAuthHandler(store, tokens, log),
		handlers.NewCharacterHandler(store, pipeline, log),
	)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: narrator turns wait on the model and can run long.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if redisService != nil {
		if err := redisService.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing database", "error", err)
	}

	log.Info("Server exited")
}
