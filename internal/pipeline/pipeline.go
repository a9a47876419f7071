package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan23f3001987/Parkinson-Project/internal/assessment"
	"github.com/aryan23f3001987/Parkinson-Project/internal/audio"
	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
	"github.com/aryan23f3001987/Parkinson-Project/internal/history"
	"github.com/aryan23f3001987/Parkinson-Project/internal/metrics"
	"github.com/aryan23f3001987/Parkinson-Project/internal/model"
	"github.com/aryan23f3001987/Parkinson-Project/internal/notify"
)

var (
	// ErrMissingInput is returned when the request names no readable recording
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidInput is returned for out of range subject values
	ErrInvalidInput = errors.New("invalid input")
)

// Stage names used in logs and metrics
const (
	StageConvert  = "convert"
	StageInspect  = "inspect"
	StageExtract  = "extract"
	StageClassify = "classify"
	StageRegress  = "regress"
	StageDecide   = "decide"
	StageRecord   = "record"
)

// Scaler standardizes a vector with the scaler stored under id
type Scaler interface {
	Scale(v features.Vector, id string) (features.Vector, error)
}

// Models resolves predictors by identifier
type Models interface {
	Classifier(id string) (model.Classifier, error)
	Regressor(id string) (model.Predictor, error)
}

// Config names the artifacts a run uses
type Config struct {
	ClassifierID      string
	MotorWithAgeID    string
	MotorWithoutAgeID string
	TotalWithAgeID    string
	TotalWithoutAgeID string

	ClassificationScaler       string
	RegressionWithAgeScaler    string
	RegressionWithoutAgeScaler string

	// DefaultTestTime is used when the recording length cannot be read
	DefaultTestTime float64
	// KeepConverted leaves WAV files produced by conversion on disk
	KeepConverted bool
}

// Workspace hands out scratch paths for converted recordings
type Workspace interface {
	WAVPath(rawPath string) string
	Release(paths ...string)
	Remove(paths ...string) error
}

// Dependencies are the collaborators of a pipeline. Converter, Workspace, History,
// Notifier and Metrics are optional. Without a Workspace converted files go to the
// system temp directory.
type Dependencies struct {
	Extractor features.Extractor
	Scalers   Scaler
	Models    Models
	Converter audio.Converter
	Workspace Workspace
	History   history.Recorder
	Notifier  notify.Publisher
	Metrics   *metrics.Metrics
}

// Request is one recording to assess
type Request struct {
	AudioPath string
	Age       float64
	Sex       float64
	// TestTime overrides the recording length when set
	TestTime *float64
}

// Result is a completed assessment
type Result struct {
	ID                     string             `json:"id"`
	CreatedAt              time.Time          `json:"created_at"`
	Verdict                assessment.Verdict `json:"verdict"`
	Probability            float64            `json:"probability"`
	Probabilistic          bool               `json:"probabilistic"`
	Subject                features.Subject   `json:"subject"`
	Bundle                 assessment.Bundle  `json:"bundle"`
	ClassificationFeatures map[string]float64 `json:"classification_features"`
	RegressionFeatures     map[string]float64 `json:"regression_features"`
	Warnings               []string           `json:"warnings"`
}

// Pipeline runs assessments
type Pipeline struct {
	config Config
	deps   Dependencies
	logger *slog.Logger
}

// New creates a pipeline
func New(config Config, deps Dependencies, logger *slog.Logger) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Scalers == nil || deps.Models == nil {
		return nil, errors.New("extractor, scalers and models are required")
	}

	if config.DefaultTestTime <= 0 {
		config.DefaultTestTime = 10.0
	}

	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}

	return &Pipeline{
		config: config,
		deps:   deps,
		logger: logger,
	}, nil
}

// ModelIDs returns every model identifier the pipeline uses
func (p *Pipeline) ModelIDs() []string {
	return []string{
		p.config.ClassifierID,
		p.config.MotorWithAgeID,
		p.config.MotorWithoutAgeID,
		p.config.TotalWithAgeID,
		p.config.TotalWithoutAgeID,
	}
}

// Run assesses one recording. Any failure aborts the run without a partial result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := p.logger.With(slog.String("assessment_id", id))

	wavPath, cleanup, err := p.prepare(ctx, logger, req.AudioPath)
	if err != nil {
		p.recordFailure(StageConvert)
		return nil, err
	}
	defer cleanup()

	testTime, warnings := p.inspect(logger, wavPath, req.TestTime)

	subject := features.Subject{Age: req.Age, Sex: req.Sex, TestTime: testTime}

	stageStart := time.Now()
	measures, err := p.deps.Extractor.Measure(ctx, wavPath)
	p.observe(StageExtract, stageStart)
	if err != nil {
		if p.deps.Metrics != nil {
			p.deps.Metrics.RecordExtractorFailure(time.Since(stageStart).Seconds())
		}
		p.recordFailure(StageExtract)
		return nil, fmt.Errorf("%s: %w", StageExtract, err)
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordExtractorSuccess(time.Since(stageStart).Seconds())
	}

	stageStart = time.Now()
	clsVector, probability, probabilistic, err := p.classify(measures)
	p.observe(StageClassify, stageStart)
	if err != nil {
		p.recordFailure(StageClassify)
		return nil, fmt.Errorf("%s: %w", StageClassify, err)
	}
	if !probabilistic {
		logger.Debug("Classifier reports hard labels, probability is 0 or 1")
	}

	stageStart = time.Now()
	regVector, bundle, err := p.regress(measures, subject)
	p.observe(StageRegress, stageStart)
	if err != nil {
		p.recordFailure(StageRegress)
		return nil, fmt.Errorf("%s: %w", StageRegress, err)
	}
	bundle.Probability = probability

	stageStart = time.Now()
	verdict, err := assessment.Decide(bundle)
	p.observe(StageDecide, stageStart)
	if err != nil {
		p.recordFailure(StageDecide)
		return nil, fmt.Errorf("%s: %w", StageDecide, err)
	}

	result := &Result{
		ID:                     id,
		CreatedAt:              time.Now().UTC(),
		Verdict:                verdict,
		Probability:            assessment.Round(probability, 3),
		Probabilistic:          probabilistic,
		Subject:                subject,
		Bundle:                 bundle,
		ClassificationFeatures: clsVector.Map(),
		RegressionFeatures:     regVector.Map(),
		Warnings:               warnings,
	}

	stageStart = time.Now()
	p.record(ctx, logger, result)
	p.observe(StageRecord, stageStart)

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordAssessment(string(verdict.Status), result.Probability, time.Since(start).Seconds())
	}

	logger.Info("Assessment complete",
		slog.String("status", string(verdict.Status)),
		slog.Float64("probability", result.Probability),
		slog.Float64("motor_updrs", verdict.MotorUPDRS),
		slog.Float64("total_updrs", verdict.TotalUPDRS),
		slog.Float64("test_time", testTime),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func validateRequest(req Request) error {
	if req.AudioPath == "" {
		return fmt.Errorf("%w: no audio file provided", ErrMissingInput)
	}

	info, err := os.Stat(req.AudioPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: audio file %s not found", ErrMissingInput, req.AudioPath)
	}

	if !isFinite(req.Age) || req.Age < 0 {
		return fmt.Errorf("%w: age must be a non-negative number", ErrInvalidInput)
	}

	if !isFinite(req.Sex) {
		return fmt.Errorf("%w: sex must be a number", ErrInvalidInput)
	}

	if req.TestTime != nil && (!isFinite(*req.TestTime) || *req.TestTime < 0) {
		return fmt.Errorf("%w: test_time must be a non-negative number", ErrInvalidInput)
	}

	return nil
}

// prepare returns a WAV path for the recording, converting it when needed
func (p *Pipeline) prepare(ctx context.Context, logger *slog.Logger, path string) (string, func(), error) {
	noop := func() {}
	if audio.IsWAV(path) {
		return path, noop, nil
	}

	if p.deps.Converter == nil {
		return "", noop, fmt.Errorf("%w: no converter for %s", audio.ErrConversion, path)
	}

	out, release, err := p.scratchPath(path)
	if err != nil {
		return "", noop, err
	}

	start := time.Now()
	if err := p.deps.Converter.Convert(ctx, path, out); err != nil {
		p.discard(logger, out)
		return "", noop, err
	}
	p.observe(StageConvert, start)

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordConversion()
	}
	logger.Debug("Converted recording to WAV", slog.String("input", path), slog.String("output", out))

	if p.config.KeepConverted {
		return out, release, nil
	}
	return out, func() { p.discard(logger, out) }, nil
}

// scratchPath picks a fresh conversion output path that never collides with
// files next to the input
func (p *Pipeline) scratchPath(input string) (string, func(), error) {
	if ws := p.deps.Workspace; ws != nil {
		out := ws.WAVPath(input)
		return out, func() { ws.Release(out) }, nil
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	f, err := os.CreateTemp("", base+"_*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to create output file: %v", audio.ErrConversion, err)
	}
	f.Close()
	return f.Name(), func() {}, nil
}

func (p *Pipeline) discard(logger *slog.Logger, path string) {
	var err error
	if ws := p.deps.Workspace; ws != nil {
		err = ws.Remove(path)
	} else if err = os.Remove(path); os.IsNotExist(err) {
		err = nil
	}
	if err != nil {
		logger.Warn("Failed to remove converted recording", slog.String("path", path), slog.Any("error", err))
	}
}

// inspect derives test_time and quality warnings from the WAV header
func (p *Pipeline) inspect(logger *slog.Logger, wavPath string, override *float64) (float64, []string) {
	start := time.Now()
	defer p.observe(StageInspect, start)

	warnings := []string{}

	info, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		logger.Warn("Could not read recording length, using default test_time",
			slog.String("path", wavPath),
			slog.Float64("default_test_time", p.config.DefaultTestTime),
			slog.Any("error", err),
		)
		if override != nil {
			return *override, warnings
		}
		return p.config.DefaultTestTime, warnings
	}

	warnings = append(warnings, audio.CheckQuality(info)...)
	for _, w := range warnings {
		logger.Warn("Audio quality warning", slog.String("warning", w))
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordRecording(info.Duration, len(warnings))
	}

	if override != nil {
		return *override, warnings
	}
	return assessment.Round(info.Duration, 2), warnings
}

func (p *Pipeline) classify(m *features.Measures) (features.Vector, float64, bool, error) {
	v, err := features.ClassificationVector(m)
	if err != nil {
		return features.Vector{}, 0, false, err
	}

	scaled, err := p.deps.Scalers.Scale(v, p.config.ClassificationScaler)
	if err != nil {
		return features.Vector{}, 0, false, err
	}

	classifier, err := p.deps.Models.Classifier(p.config.ClassifierID)
	if err != nil {
		return features.Vector{}, 0, false, err
	}

	probability, err := classifier.PositiveProbability(scaled)
	if err != nil {
		return features.Vector{}, 0, false, fmt.Errorf("model %s: %w", p.config.ClassifierID, err)
	}

	return v, probability, classifier.Probabilistic(), nil
}

func (p *Pipeline) regress(m *features.Measures, s features.Subject) (features.Vector, assessment.Bundle, error) {
	var bundle assessment.Bundle

	withAge, err := features.RegressionVector(m, s)
	if err != nil {
		return features.Vector{}, bundle, err
	}
	withoutAge := withAge.Drop(features.Age)

	scaledWithAge, err := p.deps.Scalers.Scale(withAge, p.config.RegressionWithAgeScaler)
	if err != nil {
		return features.Vector{}, bundle, err
	}

	scaledWithoutAge, err := p.deps.Scalers.Scale(withoutAge, p.config.RegressionWithoutAgeScaler)
	if err != nil {
		return features.Vector{}, bundle, err
	}

	targets := []struct {
		id  string
		x   features.Vector
		out *float64
	}{
		{p.config.MotorWithAgeID, scaledWithAge, &bundle.MotorWithAge},
		{p.config.MotorWithoutAgeID, scaledWithoutAge, &bundle.MotorWithoutAge},
		{p.config.TotalWithAgeID, scaledWithAge, &bundle.TotalWithAge},
		{p.config.TotalWithoutAgeID, scaledWithoutAge, &bundle.TotalWithoutAge},
	}

	for _, t := range targets {
		regressor, err := p.deps.Models.Regressor(t.id)
		if err != nil {
			return features.Vector{}, bundle, err
		}
		y, err := regressor.Predict(t.x)
		if err != nil {
			return features.Vector{}, bundle, fmt.Errorf("model %s: %w", t.id, err)
		}
		*t.out = y
	}

	return withAge, bundle, nil
}

// record stores and publishes the result. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, r *Result) {
	ctx = context.WithoutCancel(ctx)

	if p.deps.History != nil {
		rec := &history.Record{
			ID:                     r.ID,
			CreatedAt:              r.CreatedAt,
			Age:                    r.Subject.Age,
			Sex:                    r.Subject.Sex,
			TestTime:               r.Subject.TestTime,
			Status:                 string(r.Verdict.Status),
			Probability:            r.Probability,
			MotorUPDRS:             r.Verdict.MotorUPDRS,
			TotalUPDRS:             r.Verdict.TotalUPDRS,
			Bundle:                 r.Bundle,
			ClassificationFeatures: r.ClassificationFeatures,
			RegressionFeatures:     r.RegressionFeatures,
			Warnings:               r.Warnings,
		}
		if err := p.deps.History.Save(ctx, rec); err != nil {
			logger.Error("Failed to store assessment", slog.Any("error", err))
			if p.deps.Metrics != nil {
				p.deps.Metrics.RecordHistoryError()
			}
		}
	}

	event := &notify.Event{
		ID:          r.ID,
		Timestamp:   r.CreatedAt,
		Status:      string(r.Verdict.Status),
		Probability: r.Probability,
		MotorUPDRS:  r.Verdict.MotorUPDRS,
		TotalUPDRS:  r.Verdict.TotalUPDRS,
		TestTime:    r.Subject.TestTime,
		Warnings:    r.Warnings,
	}
	if err := p.deps.Notifier.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish verdict", slog.Any("error", err))
		if p.deps.Metrics != nil {
			p.deps.Metrics.RecordNotifyError()
		}
	}
}

func (p *Pipeline) observe(stage string, start time.Time) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(stage, time.Since(start).Seconds())
	}
}

func (p *Pipeline) recordFailure(stage string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordAssessmentFailure(stage)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
