package model

import (
	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
)

// Predictor produces a point estimate for one feature vector
type Predictor interface {
	Predict(x features.Vector) (float64, error)
}

// ProbabilisticPredictor additionally reports the probability of the positive class
type ProbabilisticPredictor interface {
	Predictor
	PredictProba(x features.Vector) (float64, error)
}

// Classifier yields the positive-class probability used by the decision engine
type Classifier interface {
	PositiveProbability(x features.Vector) (float64, error)
	// Probabilistic reports whether the value is a real probability or a hard label
	Probabilistic() bool
}

// ProbabilisticClassifier reads the probability straight from the predictor
type ProbabilisticClassifier struct {
	Model ProbabilisticPredictor
}

// PositiveProbability implements Classifier
func (c ProbabilisticClassifier) PositiveProbability(x features.Vector) (float64, error) {
	return c.Model.PredictProba(x)
}

// Probabilistic implements Classifier
func (c ProbabilisticClassifier) Probabilistic() bool { return true }

// LabelOnlyClassifier treats the predictor's 0/1 label as a degenerate probability
type LabelOnlyClassifier struct {
	Model Predictor
}

// PositiveProbability implements Classifier
func (c LabelOnlyClassifier) PositiveProbability(x features.Vector) (float64, error) {
	label, err := c.Model.Predict(x)
	if err != nil {
		return 0, err
	}
	if label >= 1 {
		return 1, nil
	}
	return 0, nil
}

// Probabilistic implements Classifier
func (c LabelOnlyClassifier) Probabilistic() bool { return false }
