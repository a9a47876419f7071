package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
)

// Artifact kinds understood by the loader
const (
	KindLinearRegression   = "linear_regression"
	KindLogisticRegression = "logistic_regression"
	KindLinearClassifier   = "linear_classifier"
)

var (
	// ErrModelNotFound is returned when no artifact exists for a model identifier
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidModel is returned for artifacts that cannot be evaluated
	ErrInvalidModel = errors.New("invalid model artifact")
)

// Artifact is the on-disk form of a linear model
type Artifact struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Threshold    float64   `json:"threshold,omitempty"`
	Target       string    `json:"target,omitempty"`
}

// Validate checks the artifact shape
func (a *Artifact) Validate() error {
	switch a.Kind {
	case KindLinearRegression, KindLogisticRegression, KindLinearClassifier:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, a.Kind)
	}

	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("%w: no feature names", ErrInvalidModel)
	}

	if len(a.FeatureNames) != len(a.Coefficients) {
		return fmt.Errorf("%w: %d feature names but %d coefficients",
			ErrInvalidModel, len(a.FeatureNames), len(a.Coefficients))
	}

	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coefficient for %q is not finite", ErrInvalidModel, a.FeatureNames[i])
		}
	}

	return nil
}

// LoadArtifact reads and validates an artifact file
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidModel, path, err)
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &a, nil
}

// Linear is the weighted sum shared by every artifact kind
type Linear struct {
	featureNames []string
	coefficients []float64
	intercept    float64
}

func newLinear(a *Artifact) Linear {
	return Linear{
		featureNames: append([]string(nil), a.FeatureNames...),
		coefficients: append([]float64(nil), a.Coefficients...),
		intercept:    a.Intercept,
	}
}

// Score returns intercept + Σ coef·x after aligning x to the training columns
func (l Linear) Score(x features.Vector) (float64, error) {
	aligned := x.Align(l.featureNames)
	if err := aligned.Validate(); err != nil {
		return 0, err
	}

	score := l.intercept
	for i, c := range l.coefficients {
		score += c * aligned.Values[i]
	}
	return score, nil
}

// Regressor predicts a continuous score
type Regressor struct {
	Linear
}

// Predict implements Predictor
func (r Regressor) Predict(x features.Vector) (float64, error) {
	return r.Score(x)
}

// Logistic is a probabilistic binary classifier
type Logistic struct {
	Linear
}

// PredictProba returns the sigmoid of the linear score
func (l Logistic) PredictProba(x features.Vector) (float64, error) {
	s, err := l.Score(x)
	if err != nil {
		return 0, err
	}
	return 1 / (1 + math.Exp(-s)), nil
}

// Predict returns the hard 0/1 label
func (l Logistic) Predict(x features.Vector) (float64, error) {
	p, err := l.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// ThresholdClassifier labels a sample positive when its score reaches the threshold.
// It has no probability output.
type ThresholdClassifier struct {
	Linear
	threshold float64
}

// Predict implements Predictor
func (c ThresholdClassifier) Predict(x features.Vector) (float64, error) {
	s, err := c.Score(x)
	if err != nil {
		return 0, err
	}
	if s >= c.threshold {
		return 1, nil
	}
	return 0, nil
}

// Classifier builds the classifier variant matching the artifact kind
func (a *Artifact) Classifier() (Classifier, error) {
	switch a.Kind {
	case KindLogisticRegression:
		return ProbabilisticClassifier{Model: Logistic{Linear: newLinear(a)}}, nil
	case KindLinearClassifier:
		return LabelOnlyClassifier{Model: ThresholdClassifier{Linear: newLinear(a), threshold: a.Threshold}}, nil
	default:
		return nil, fmt.Errorf("%w: kind %q is not a classifier", ErrInvalidModel, a.Kind)
	}
}

// Regressor builds a regressor from a linear regression artifact
func (a *Artifact) Regressor() (Predictor, error) {
	if a.Kind != KindLinearRegression {
		return nil, fmt.Errorf("%w: kind %q is not a regressor", ErrInvalidModel, a.Kind)
	}
	return Regressor{Linear: newLinear(a)}, nil
}
