package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan23f3001987/Parkinson-Project/internal/config"
	"github.com/aryan23f3001987/Parkinson-Project/internal/model"
	"github.com/aryan23f3001987/Parkinson-Project/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Audio.UploadDir = filepath.Join(dir, "uploads")
	cfg.Models.Dir = filepath.Join(dir, "models")
	cfg.Scalers.Dir = filepath.Join(dir, "models")
	cfg.History.Path = filepath.Join(dir, "data", "history.db")
	return cfg
}

func writeModels(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.Models.Dir, 0o755))

	ids := map[string]string{
		cfg.Models.Classifier:      model.KindLogisticRegression,
		cfg.Models.MotorWithAge:    model.KindLinearRegression,
		cfg.Models.MotorWithoutAge: model.KindLinearRegression,
		cfg.Models.TotalWithAge:    model.KindLinearRegression,
		cfg.Models.TotalWithoutAge: model.KindLinearRegression,
	}
	for id, kind := range ids {
		data, err := json.Marshal(model.Artifact{
			Kind:         kind,
			FeatureNames: []string{"HNR"},
			Coefficients: []float64{0.1},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Models.Dir, id+".json"), data, 0o644))
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	writeModels(t, cfg)

	a, err := Build(context.Background(), cfg, testLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.History)
	assert.IsType(t, notify.Noop{}, a.Notifier)
	assert.Len(t, a.Models.Loaded(), 5)

	_, err = os.Stat(cfg.Audio.UploadDir)
	assert.NoError(t, err)
}

func TestBuildFailsOnMissingModels(t *testing.T) {
	cfg := testConfig(t)

	_, err := Build(context.Background(), cfg, testLogger(), prometheus.NewRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrModelNotFound)
}

func TestBuildWithoutPreloadOrHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.Preload = false
	cfg.History.Enabled = false

	a, err := Build(context.Background(), cfg, testLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.History)
	assert.Empty(t, a.Models.Loaded())
}

func TestInitLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger := InitLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	logger.Info("hello", slog.String("k", "v"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Contains(t, line, "source")

	assert.True(t, InitLogger(config.LoggingConfig{Level: "warn"}).Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, InitLogger(config.LoggingConfig{Level: "warn"}).Enabled(context.Background(), slog.LevelInfo))
}
