package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aryan23f3001987/Parkinson-Project/internal/audio"
	"github.com/aryan23f3001987/Parkinson-Project/internal/config"
	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
	"github.com/aryan23f3001987/Parkinson-Project/internal/history"
	"github.com/aryan23f3001987/Parkinson-Project/internal/metrics"
	"github.com/aryan23f3001987/Parkinson-Project/internal/model"
	"github.com/aryan23f3001987/Parkinson-Project/internal/notify"
	"github.com/aryan23f3001987/Parkinson-Project/internal/pipeline"
	"github.com/aryan23f3001987/Parkinson-Project/internal/scaler"
)

// App holds the wired components
type App struct {
	Pipeline  *pipeline.Pipeline
	Extractor *features.Client
	Models    *model.Store
	Scalers   *scaler.Store
	Uploads   *audio.UploadDir
	History   *history.Store // nil when disabled
	Notifier  notify.Publisher
	Metrics   *metrics.Metrics
}

// Build creates every component described by cfg. Metrics are registered with reg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Metrics:  metrics.NewMetrics(reg),
		Notifier: notify.Noop{},
	}

	extractor, err := features.NewClient(features.Config{
		Endpoint:      cfg.Extractor.Endpoint,
		APIKey:        cfg.Extractor.APIKey,
		Timeout:       cfg.Extractor.GetTimeoutDuration(),
		MaxRetries:    cfg.Extractor.MaxRetries,
		MaxConcurrent: cfg.Extractor.MaxConcurrent,
		BackoffBase:   cfg.Extractor.GetBackoffBaseDuration(),
		PitchFloor:    cfg.Extractor.PitchFloor,
		PitchCeiling:  cfg.Extractor.PitchCeiling,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create feature extractor: %w", err)
	}
	a.Extractor = extractor
	logger.Info("Feature extractor initialized",
		slog.String("endpoint", cfg.Extractor.Endpoint),
		slog.Int("max_concurrent", cfg.Extractor.MaxConcurrent),
	)

	a.Models = model.NewStore(cfg.Models.Dir, logger)
	a.Scalers = scaler.NewStore(cfg.Scalers.Dir, logger)
	a.Scalers.OnFit(func(string) { a.Metrics.RecordScalerFitted() })

	a.Uploads, err = audio.NewUploadDir(cfg.Audio.UploadDir)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Dependencies{
		Extractor: extractor,
		Scalers:   a.Scalers,
		Models:    a.Models,
		Converter: audio.NewFFmpegConverter(cfg.Audio.FFmpegBinary, cfg.Audio.ConvertSampleRate),
		Workspace: a.Uploads,
		Metrics:   a.Metrics,
	}

	if cfg.History.Enabled {
		a.History, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		deps.History = a.History
		logger.Info("Assessment history enabled", slog.String("path", cfg.History.Path))
	}

	if cfg.Notify.Enabled {
		publisher, err := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:   cfg.Notify.Broker,
			ClientID: cfg.Notify.ClientID,
			Username: cfg.Notify.Username,
			Password: cfg.Notify.Password,
			Topic:    cfg.Notify.Topic,
			QoS:      cfg.Notify.QoS,
			Timeout:  cfg.Notify.GetTimeoutDuration(),
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create verdict publisher: %w", err)
		}
		a.Notifier = publisher
		logger.Info("Verdict publishing enabled",
			slog.String("broker", cfg.Notify.Broker),
			slog.String("topic", cfg.Notify.Topic),
		)
	}
	deps.Notifier = a.Notifier

	a.Pipeline, err = pipeline.New(pipeline.Config{
		ClassifierID:               cfg.Models.Classifier,
		MotorWithAgeID:             cfg.Models.MotorWithAge,
		MotorWithoutAgeID:          cfg.Models.MotorWithoutAge,
		TotalWithAgeID:             cfg.Models.TotalWithAge,
		TotalWithoutAgeID:          cfg.Models.TotalWithoutAge,
		ClassificationScaler:       cfg.Scalers.Classification,
		RegressionWithAgeScaler:    cfg.Scalers.RegressionWithAge,
		RegressionWithoutAgeScaler: cfg.Scalers.RegressionWithoutAge,
		DefaultTestTime:            cfg.Audio.DefaultTestTime,
		KeepConverted:              cfg.Audio.KeepUploads,
	}, deps, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Models.Preload {
		if err := a.Models.Preload(ctx, a.Pipeline.ModelIDs()...); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to preload models: %w", err)
		}
		logger.Info("Models preloaded", slog.Any("models", a.Pipeline.ModelIDs()))
	}

	return a, nil
}

// Close releases the history database and the broker connection
func (a *App) Close() {
	if a.Notifier != nil {
		a.Notifier.Close()
	}
	if a.History != nil {
		a.History.Close()
	}
}

// InitLogger creates and configures the structured logger based on configuration
func InitLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
