package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/api"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/classifier"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/database"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/dedup"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/extractor"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/feed"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/match"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/metrics"
	middlewares "github.com/PolyRides/firefunction-postsAnalyze/internal/middleware"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/notify"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/pipeline"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/store"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/sweeper"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting postsAnalyze application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	// Initialize store
	rideStore := store.New(db)

	// Dedup gate; seen ids only matter while the post is retained, so
	// the keys share the post retention window
	gate, err := dedup.New(cfg.Redis.URL, cfg.Retention.PostWindow)
	if err != nil {
		logger.Fatal("Failed to initialize dedup gate", "error", err)
	}

	// Train the classifier
	corpus, err := classifier.LoadCorpus(cfg.Classifier.CorpusPath)
	if err != nil {
		logger.Fatal("Failed to load training corpus", "error", err)
	}
	model, err := classifier.Train(corpus)
	if err != nil {
		logger.Fatal("Failed to train classifier", "error", err)
	}
	logger.Info("Classifier trained", "model_version", model.Version())

	// External service clients
	feedClient := feed.NewClient(cfg.Feed.URL, cfg.Feed.Timeout)
	analyzer := extractor.NewClient(cfg.Extractor.URL, cfg.Extractor.Timeout)
	pusher := notify.NewClient(cfg.Push.URL, cfg.Push.APIKey, cfg.Push.Timeout)
	mailer := notify.NewMailer(cfg.Mail)

	// Matching and pipeline
	engine := match.New(rideStore, pusher)
	poller := feed.NewPoller(feedClient)
	postPipeline := pipeline.New(
		poller,
		rideStore,
		gate,
		model,
		analyzer,
		extractor.NewPositionalStrategy(),
		engine,
		mailer,
		cfg.Pipeline,
	)

	// Start pipeline in background
	go func() {
		if err := postPipeline.Run(ctx); err != nil {
			logger.Error("Pipeline error", "error", err)
		}
	}()

	// Retention sweeper
	retention := sweeper.New(rideStore, rideStore, cfg.Retention)

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)

	// Initialize API handlers
	apiHandler := api.NewHandler(rideStore, postPipeline, retention, cfg.Admin, Version, BuildTime, GitCommit, model.Version())
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
