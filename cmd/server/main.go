// Call-center ticket classification router.
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/louaykahouli/CallCenter-Classifier/internal/agent"
	"github.com/louaykahouli/CallCenter-Classifier/internal/api"
	"github.com/louaykahouli/CallCenter-Classifier/internal/cache"
	"github.com/louaykahouli/CallCenter-Classifier/internal/classifier"
	"github.com/louaykahouli/CallCenter-Classifier/internal/complexity"
	"github.com/louaykahouli/CallCenter-Classifier/internal/config"
	"github.com/louaykahouli/CallCenter-Classifier/internal/generate"
	"github.com/louaykahouli/CallCenter-Classifier/internal/middleware"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
	"github.com/louaykahouli/CallCenter-Classifier/internal/scheduler"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"store_backend", cfg.Store.Backend,
		"threshold", cfg.Threshold)

	// Initialize dependencies.
	var repo store.Store
	switch cfg.Store.Backend {
	case "postgres":
		repo, err = store.NewPostgres(cfg.Store.PostgresDSN)
	default:
		repo, err = store.NewSQLite(cfg.Store.DBPath)
	}
	if err != nil {
		slog.Error("Failed to initialize conversation store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close conversation store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "backend", cfg.Store.Backend)

	cal := complexity.DefaultCalibration()
	if cfg.CalibrationPath != "" {
		cal, err = complexity.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			slog.Error("Failed to load complexity calibration", "path", cfg.CalibrationPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Complexity calibration loaded", "path", cfg.CalibrationPath)
	}
	scorer := complexity.NewScorer(cal)

	rt, err := router.New(scorer, cfg.Threshold)
	if err != nil {
		slog.Error("Failed to initialize router", "error", err)
		os.Exit(1)
	}

	responseCache := cache.New(cfg.CacheTTL)

	classifierClient := classifier.New(classifier.Config{
		FastBaseURL:     cfg.Classifier.FastBaseURL,
		AccurateBaseURL: cfg.Classifier.AccurateBaseURL,
		Timeout:         cfg.Classifier.Timeout,
	})

	generator := generate.NewCompletionClient(generate.Config{
		APIURL:  cfg.Generation.APIURL,
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		Enabled: cfg.Generation.Enabled,
		Timeout: cfg.Generation.Timeout,
	})

	svc := agent.New(scorer, rt, responseCache, classifierClient, generator, repo,
		agent.Config{QueueSize: cfg.QueueSize}, logger)
	defer svc.Close()

	// Initialize handlers.
	handler := api.NewHandler(svc, rt, responseCache, repo)
	healthHandler := api.NewHealthHandler(repo, classifierClient, rt)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background maintenance.
	maintenance := scheduler.New(responseCache, repo, cfg.Maintenance.RetentionDays, logger)
	if err := maintenance.Start(cfg.Maintenance.CacheCleanupSchedule, cfg.Maintenance.RetentionSchedule); err != nil {
		slog.Error("Failed to start maintenance scheduler", "error", err)
		os.Exit(1)
	}
	defer maintenance.Stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
