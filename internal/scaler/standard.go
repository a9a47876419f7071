package scaler

import (
	"fmt"
	"math"

	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
)

// StandardScaler removes the mean and divides by the standard deviation per feature
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	Var          []float64 `json:"var"`
	NSamplesSeen int       `json:"n_samples_seen"`
}

// Fit computes per-feature mean and population variance over the given vectors.
// Features with zero variance get a scale of 1 so they transform to 0.
func Fit(vectors ...features.Vector) (*StandardScaler, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot fit scaler without samples")
	}

	names := append([]string(nil), vectors[0].Names...)
	n := float64(len(vectors))

	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		row, err := v.Select(names)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		rows[i] = row
	}

	s := &StandardScaler{
		FeatureNames: names,
		Mean:         make([]float64, len(names)),
		Scale:        make([]float64, len(names)),
		Var:          make([]float64, len(names)),
		NSamplesSeen: len(vectors),
	}

	for j := range names {
		sum := 0.0
		for _, row := range rows {
			sum += row[j]
		}
		mean := sum / n

		sq := 0.0
		for _, row := range rows {
			d := row[j] - mean
			sq += d * d
		}
		variance := sq / n

		s.Mean[j] = mean
		s.Var[j] = variance
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return s, nil
}

// Validate checks that the transform is internally consistent
func (s *StandardScaler) Validate() error {
	n := len(s.FeatureNames)
	if n == 0 {
		return fmt.Errorf("scaler has no features")
	}
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("scaler has %d features but %d means and %d scales", n, len(s.Mean), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler feature %q has invalid scale %v", s.FeatureNames[i], sc)
		}
	}
	return nil
}

// Transform standardizes v. The result follows the scaler's feature order; every
// feature the scaler was fitted on must be present in v.
func (s *StandardScaler) Transform(v features.Vector) (features.Vector, error) {
	values, err := v.Select(s.FeatureNames)
	if err != nil {
		return features.Vector{}, fmt.Errorf("scaler input mismatch: %w", err)
	}

	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = (x - s.Mean[i]) / s.Scale[i]
	}

	return features.NewVector(s.FeatureNames, out)
}
