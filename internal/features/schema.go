package features

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrExtraction is returned when acoustic analysis fails or yields unusable measures
var ErrExtraction = errors.New("feature extraction failed")

// Feature names shared by both schemas
const (
	JitterPercent = "Jitter(%)"
	JitterAbs     = "Jitter(Abs)"
	JitterRAP     = "Jitter:RAP"
	JitterDDP     = "Jitter:DDP"
	Shimmer       = "Shimmer"
	ShimmerDB     = "Shimmer(dB)"
	ShimmerAPQ3   = "Shimmer:APQ3"
	ShimmerAPQ5   = "Shimmer:APQ5"
	ShimmerAPQ11  = "Shimmer:APQ11"
	ShimmerDDA    = "Shimmer:DDA"
	NHR           = "NHR"
	HNR           = "HNR"
)

// Classification-only names
const (
	PitchMean = "Fo(Hz)"
	PitchMax  = "Fhi(Hz)"
	PitchMin  = "Flo(Hz)"
	JitterPPQ = "Jitter:PPQ"
)

// Regression-only names
const (
	Age        = "age"
	Sex        = "sex"
	TestTime   = "test_time"
	JitterPPQ5 = "Jitter:PPQ5"
	RPDE       = "RPDE"
	DFA        = "DFA"
	PPE        = "PPE"
)

// ClassificationSchema is the column order the classifier and its scaler were trained on
var ClassificationSchema = []string{
	PitchMean, PitchMax, PitchMin,
	JitterPercent, JitterAbs, JitterRAP, JitterPPQ, JitterDDP,
	Shimmer, ShimmerDB, ShimmerAPQ3, ShimmerAPQ5, ShimmerAPQ11, ShimmerDDA,
	NHR, HNR,
}

// RegressionSchema is the column order of the age-aware UPDRS regressors
var RegressionSchema = []string{
	Age, Sex, TestTime,
	JitterPercent, JitterAbs, JitterRAP, JitterPPQ5, JitterDDP,
	Shimmer, ShimmerDB, ShimmerAPQ3, ShimmerAPQ5, ShimmerAPQ11, ShimmerDDA,
	NHR, HNR,
	RPDE, DFA, PPE,
}

// Measures are the raw acoustic measures reported by the analysis service
type Measures struct {
	PitchMeanHz     float64 `json:"f0_mean_hz"`
	PitchMaxHz      float64 `json:"f0_max_hz"`
	PitchMinHz      float64 `json:"f0_min_hz"`
	JitterLocal     float64 `json:"jitter_local"`
	JitterLocalAbs  float64 `json:"jitter_local_abs"`
	JitterRAP       float64 `json:"jitter_rap"`
	JitterPPQ5      float64 `json:"jitter_ppq5"`
	ShimmerLocal    float64 `json:"shimmer_local"`
	ShimmerLocalDB  float64 `json:"shimmer_local_db"`
	ShimmerAPQ3     float64 `json:"shimmer_apq3"`
	ShimmerAPQ5     float64 `json:"shimmer_apq5"`
	ShimmerAPQ11    float64 `json:"shimmer_apq11"`
	HarmonicityMean float64 `json:"hnr_db"`
}

// Subject carries the demographic inputs of the regression schema
type Subject struct {
	Age      float64 `json:"age"`
	Sex      float64 `json:"sex"`
	TestTime float64 `json:"test_time"`
}

// ParseSex maps "male", "m" or "1" (any case) to 1 and everything else to 0
func ParseSex(v string) float64 {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "male", "m", "1":
		return 1
	default:
		return 0
	}
}

// NoiseToHarmonics converts a mean HNR in dB into the noise-to-harmonics ratio
func NoiseToHarmonics(hnr float64) float64 {
	return 1 / (1 + math.Pow(10, hnr/10))
}

// PitchPeriodEntropy approximates PPE from local jitter and shimmer
func PitchPeriodEntropy(jitter, shimmer float64) float64 {
	return math.Abs(math.Log10(jitter + shimmer))
}

// ClassificationVector lays the measures out in the classification schema
func ClassificationVector(m *Measures) (Vector, error) {
	if m == nil {
		return Vector{}, fmt.Errorf("%w: no measures", ErrExtraction)
	}

	v := Vector{
		Names: append([]string(nil), ClassificationSchema...),
		Values: []float64{
			m.PitchMeanHz,
			m.PitchMaxHz,
			m.PitchMinHz,
			m.JitterLocal,
			m.JitterLocalAbs,
			m.JitterRAP,
			m.JitterPPQ5,
			3 * m.JitterRAP,
			m.ShimmerLocal,
			m.ShimmerLocalDB,
			m.ShimmerAPQ3,
			m.ShimmerAPQ5,
			m.ShimmerAPQ11,
			3 * m.ShimmerAPQ3,
			NoiseToHarmonics(m.HarmonicityMean),
			m.HarmonicityMean,
		},
	}

	if err := v.Validate(); err != nil {
		return Vector{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return v, nil
}

// RegressionVector lays the measures and subject out in the regression schema.
// RPDE and DFA stay at zero until a nonlinear analysis backs them.
func RegressionVector(m *Measures, s Subject) (Vector, error) {
	if m == nil {
		return Vector{}, fmt.Errorf("%w: no measures", ErrExtraction)
	}

	v := Vector{
		Names: append([]string(nil), RegressionSchema...),
		Values: []float64{
			s.Age,
			s.Sex,
			s.TestTime,
			m.JitterLocal,
			m.JitterLocalAbs,
			m.JitterRAP,
			m.JitterPPQ5,
			3 * m.JitterRAP,
			m.ShimmerLocal,
			m.ShimmerLocalDB,
			m.ShimmerAPQ3,
			m.ShimmerAPQ5,
			m.ShimmerAPQ11,
			3 * m.ShimmerAPQ3,
			NoiseToHarmonics(m.HarmonicityMean),
			m.HarmonicityMean,
			0,
			0,
			PitchPeriodEntropy(m.JitterLocal, m.ShimmerLocal),
		},
	}

	if err := v.Validate(); err != nil {
		return Vector{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return v, nil
}
