package assessment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Status is the four-level severity label reported to callers
type Status string

const (
	StatusHealthy  Status = "Healthy"
	StatusMinor    Status = "Minor Parkinson"
	StatusModerate Status = "Moderate Parkinson"
	StatusSevere   Status = "Severe Parkinson"
)

// Ensemble weights. The age-agnostic models carry more weight because age is a
// noisy covariate in the training data.
const (
	WeightWithAge    = 0.35
	WeightWithoutAge = 0.65
)

// Tier thresholds, lower bounds inclusive
const (
	minorProbability    = 0.4
	moderateProbability = 0.65
	severeProbability   = 0.85

	minorMotor    = 8.0
	moderateMotor = 15.0
	severeMotor   = 25.0

	minorTotal    = 10.0
	moderateTotal = 20.0
	severeTotal   = 35.0
)

// ErrInvalidBundle is returned when a bundle carries non-finite or out of range values
var ErrInvalidBundle = errors.New("invalid prediction bundle")

// Bundle holds one request's classifier probability and the four regression outputs
type Bundle struct {
	Probability     float64 `json:"probability"`
	MotorWithAge    float64 `json:"motor_with_age"`
	MotorWithoutAge float64 `json:"motor_without_age"`
	TotalWithAge    float64 `json:"total_with_age"`
	TotalWithoutAge float64 `json:"total_without_age"`
}

// Verdict is the final assessment for one recording
type Verdict struct {
	Status     Status  `json:"status"`
	MotorUPDRS float64 `json:"motor_updrs"`
	TotalUPDRS float64 `json:"total_updrs"`
}

// Validate checks that every value is finite and the probability lies in [0,1]
func (b Bundle) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"probability", b.Probability},
		{"motor_with_age", b.MotorWithAge},
		{"motor_without_age", b.MotorWithoutAge},
		{"total_with_age", b.TotalWithAge},
		{"total_without_age", b.TotalWithoutAge},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrInvalidBundle, f.name, f.value)
		}
	}

	if b.Probability < 0 || b.Probability > 1 {
		return fmt.Errorf("%w: probability must be between 0 and 1, got %v", ErrInvalidBundle, b.Probability)
	}

	return nil
}

// Round rounds v to the given number of decimal places. Rounding works on the
// exact decimal value of v, so 0.46499999999999997 becomes 0.46; exact ties go to
// the even digit.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Ensemble combines the age-aware and age-agnostic scores into one UPDRS value
func Ensemble(withAge, withoutAge float64) float64 {
	// explicit conversions keep the products from fusing into an FMA
	return Round(float64(WeightWithAge*withAge)+float64(WeightWithoutAge*withoutAge), 2)
}

// Classify maps probability p, motor score m and total score t to a status.
// Tiers are evaluated top-down and the first match wins; a single signal inside a
// tier's band is enough to escalate past Healthy.
func Classify(p, m, t float64) Status {
	switch {
	case p < minorProbability && m < minorMotor && t < minorTotal:
		return StatusHealthy
	case (minorProbability <= p && p < moderateProbability) ||
		(minorMotor <= m && m < moderateMotor) ||
		(minorTotal <= t && t < moderateTotal):
		return StatusMinor
	case (moderateProbability <= p && p < severeProbability) ||
		(moderateMotor <= m && m < severeMotor) ||
		(moderateTotal <= t && t < severeTotal):
		return StatusModerate
	default:
		return StatusSevere
	}
}

// Decide ensembles the regression outputs and classifies the result
func Decide(b Bundle) (Verdict, error) {
	if err := b.Validate(); err != nil {
		return Verdict{}, err
	}

	motor := Ensemble(b.MotorWithAge, b.MotorWithoutAge)
	total := Ensemble(b.TotalWithAge, b.TotalWithoutAge)

	return Verdict{
		Status:     Classify(b.Probability, motor, total),
		MotorUPDRS: motor,
		TotalUPDRS: total,
	}, nil
}
