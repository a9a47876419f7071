package assessment

import (
	"math"
	"math/big"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsemble(t *testing.T) {
	tests := []struct {
		name       string
		withAge    float64
		withoutAge float64
		expected   float64
	}{
		{"equal inputs", 10, 10, 10},
		{"weighted toward age-agnostic", 5, 6, 5.65},
		{"total scenario", 7, 8, 7.65},
		{"zero", 0, 0, 0},
		{"rounds to two places", 12.3456, 20.9876, 17.96},
		{"negative", -4, -2, -2.7},
		{"sum just below a half cent", 0.01, 0.71, 0.46},
		{"product just below a half cent", 0, 1.7, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Ensemble(tt.withAge, tt.withoutAge))
		})
	}
}

func TestEnsembleMatchesFormula(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a := r.Float64()*100 - 50
		b := r.Float64()*100 - 50
		got := Ensemble(a, b)
		raw := float64(0.35*a) + float64(0.65*b)
		want, err := strconv.ParseFloat(new(big.Float).SetFloat64(raw).Text('f', 2), 64)
		require.NoError(t, err)
		require.Equal(t, want, got, "a=%v b=%v", a, b)

		// exactly two decimal places
		scaled := got * 100
		require.InDelta(t, math.Round(scaled), scaled, 1e-6, "a=%v b=%v", a, b)
	}
}

func TestClassifyHealthyRegion(t *testing.T) {
	for _, p := range []float64{0, 0.1, 0.39, 0.3999} {
		for _, m := range []float64{0, 4, 7.99} {
			for _, tot := range []float64{0, 5, 9.99} {
				assert.Equal(t, StatusHealthy, Classify(p, m, tot), "p=%v m=%v t=%v", p, m, tot)
			}
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		p, m, t  float64
		expected Status
	}{
		// probability transitions
		{"p just below 0.4", 0.399, 0, 0, StatusHealthy},
		{"p at 0.4", 0.4, 0, 0, StatusMinor},
		{"p at 0.65", 0.65, 0, 0, StatusModerate},
		{"p at 0.85", 0.85, 0, 0, StatusSevere},
		{"p at 1", 1, 0, 0, StatusSevere},

		// motor transitions
		{"m at 8", 0, 8, 0, StatusMinor},
		{"m at 15", 0, 15, 0, StatusModerate},
		{"m at 25", 0, 25, 0, StatusSevere},

		// total transitions
		{"t at 10", 0, 0, 10, StatusMinor},
		{"t at 20", 0, 0, 20, StatusModerate},
		{"t at 35", 0, 0, 35, StatusSevere},

		// first match wins
		{"low p, minor motor", 0.1, 9, 0, StatusMinor},
		{"severe p with healthy scores", 0.9, 5, 5, StatusSevere},
		{"minor p beats severe motor", 0.5, 30, 40, StatusMinor},
		{"minor total beats moderate p", 0.7, 0, 12, StatusMinor},
		{"moderate motor with severe total", 0.9, 16, 40, StatusModerate},
		{"everything severe", 0.95, 30, 40, StatusSevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.p, tt.m, tt.t))
		})
	}
}

func TestDecideScenarios(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		v, err := Decide(Bundle{
			Probability:     0.3,
			MotorWithAge:    5.0,
			MotorWithoutAge: 6.0,
			TotalWithAge:    7.0,
			TotalWithoutAge: 8.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 5.65, v.MotorUPDRS)
		assert.Equal(t, 7.65, v.TotalUPDRS)
		assert.Equal(t, StatusHealthy, v.Status)
	})

	t.Run("moderate probability with minor scores", func(t *testing.T) {
		// m=10 and t=10 sit in the minor bands, which are checked first
		v, err := Decide(Bundle{
			Probability:     0.7,
			MotorWithAge:    10,
			MotorWithoutAge: 10,
			TotalWithAge:    10,
			TotalWithoutAge: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, 10.0, v.MotorUPDRS)
		assert.Equal(t, 10.0, v.TotalUPDRS)
		assert.Equal(t, StatusMinor, v.Status)
	})

	t.Run("moderate", func(t *testing.T) {
		v, err := Decide(Bundle{Probability: 0.7})
		require.NoError(t, err)
		assert.Equal(t, StatusModerate, v.Status)
	})

	t.Run("severe", func(t *testing.T) {
		v, err := Decide(Bundle{Probability: 0.2, MotorWithAge: 40, MotorWithoutAge: 30, TotalWithAge: 50, TotalWithoutAge: 45})
		require.NoError(t, err)
		assert.Equal(t, StatusSevere, v.Status)
		assert.Equal(t, 33.5, v.MotorUPDRS)
		assert.Equal(t, 46.75, v.TotalUPDRS)
	})
}

func TestDecideRejectsInvalidBundles(t *testing.T) {
	tests := []struct {
		name   string
		bundle Bundle
	}{
		{"nan probability", Bundle{Probability: math.NaN()}},
		{"inf motor", Bundle{Probability: 0.5, MotorWithAge: math.Inf(1)}},
		{"negative inf total", Bundle{Probability: 0.5, TotalWithoutAge: math.Inf(-1)}},
		{"probability above one", Bundle{Probability: 1.2}},
		{"negative probability", Bundle{Probability: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(tt.bundle)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBundle)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.123, Round(0.12345, 3))
	assert.Equal(t, 1.0, Round(0.999, 2))
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, 4.0, Round(3.5, 0))
	assert.Equal(t, 0.46, Round(0.46499999999999997, 2))
	assert.Equal(t, -2.7, Round(-2.7000000000000002, 2))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}
