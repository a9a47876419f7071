package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aryan23f3001987/Parkinson-Project/internal/app"
	"github.com/aryan23f3001987/Parkinson-Project/internal/config"
	"github.com/aryan23f3001987/Parkinson-Project/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "parkinson-assessment"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.InitLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("http_address", cfg.HTTP.Address),
		slog.String("upload_dir", cfg.Audio.UploadDir),
		slog.String("extractor_endpoint", cfg.Extractor.Endpoint),
		slog.String("models_dir", cfg.Models.Dir),
		slog.String("scalers_dir", cfg.Scalers.Dir),
		slog.Bool("history_enabled", cfg.History.Enabled),
		slog.Bool("notify_enabled", cfg.Notify.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Build(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("Failed to initialize service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Close()

	deps := server.Dependencies{
		Assessor: components.Pipeline,
		Uploads:  components.Uploads,
		Stats:    components.Extractor,
		Metrics:  components.Metrics,
		Gatherer: prometheus.DefaultGatherer,
	}
	if components.History != nil {
		deps.History = components.History
	}

	httpServer := server.NewHTTPServer(cfg, logger, deps)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// In-flight assessments may wait on the extractor, so allow its timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		cfg.Extractor.GetTimeoutDuration()+10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	stats := components.Extractor.GetStats()
	logger.Info("Final extractor statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("total_retries", stats.TotalRetries),
	)

	logger.Info("Service stopped")
}
