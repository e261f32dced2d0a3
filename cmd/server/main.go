package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/jobinsights/internal/config"
	"github.com/JonMunkholm/jobinsights/internal/jobs"
	"github.com/JonMunkholm/jobinsights/internal/logging"
	"github.com/JonMunkholm/jobinsights/internal/metrics"
	"github.com/JonMunkholm/jobinsights/internal/web"
)

func main() {
	// Existing environment variables win over .env.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	catalog, err := config.BuildCatalog(cfg.Data)
	if err != nil {
		slog.Error("failed to build dataset catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("dataset catalog ready", "datasets", len(catalog.Datasets))

	var recorder *metrics.Recorder
	opts := []jobs.LoaderOption{
		jobs.WithParseLimiter(jobs.NewParseLimiter(cfg.Data.MaxConcurrentLoads, cfg.Data.LoadWait)),
	}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
		opts = append(opts, jobs.WithObserver(recorder))
	}
	loader := jobs.NewLoader(opts...)

	if cfg.Data.Preload {
		// Each failing dataset is reported on its own; the rest stay cached
		// and requests for a failed one retry the load.
		if err := loader.Warm(context.Background(), catalog.Paths()...); err != nil {
			slog.Warn("dataset preload incomplete", "error", err)
		} else {
			slog.Info("datasets preloaded", "count", loader.Len())
		}
	}

	server := web.NewServer(cfg, catalog, loader, recorder)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
