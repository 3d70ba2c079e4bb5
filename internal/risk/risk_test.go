package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		p    float64
		want Tier
	}{
		{0.0, Low},
		{0.25, Low},
		{0.4999, Low},
		{0.5, Moderate},
		{0.65, Moderate},
		{0.7999, Moderate},
		{0.8, High},
		{0.95, High},
		{1.0, High},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.p), "p=%v", tt.p)
		assert.Equal(t, tt.want, Classify(tt.p).Tier, "p=%v", tt.p)
	}
}

func TestTiersPartitionUnitInterval(t *testing.T) {
	in := map[Tier]func(float64) bool{
		Low:      func(p float64) bool { return p < ModerateThreshold },
		Moderate: func(p float64) bool { return p >= ModerateThreshold && p < HighThreshold },
		High:     func(p float64) bool { return p >= HighThreshold },
	}
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		got := TierFor(p)

		holds, ok := in[got]
		require.True(t, ok, "p=%v: unknown tier %q", p, got)
		assert.True(t, holds(p), "p=%v classified %s", p, got)

		matches := 0
		for _, pred := range in {
			if pred(p) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "p=%v", p)
	}
}

func TestClassifyCarriesDisplayCopy(t *testing.T) {
	high := Classify(0.9)
	assert.Equal(t, "HIGH RISK", high.Label)
	assert.Equal(t, "#ff4b4b", high.Color)
	assert.Equal(t, "error", high.Severity)
	assert.Len(t, high.Recommendations, 5)
	assert.Contains(t, high.Recommendations[0], "Immediate medical consultation recommended")

	moderate := Classify(0.6)
	assert.Equal(t, "#ff9800", moderate.Color)
	assert.Contains(t, moderate.Recommendations[0], "Consider preventive screening")

	low := Classify(0.1)
	assert.Equal(t, "#4caf50", low.Color)
	assert.Contains(t, low.Recommendations[4], "Annual health check-ups")
}

func TestClassifyReturnsIndependentRecommendations(t *testing.T) {
	a := Classify(0.9)
	a.Recommendations[0] = "changed"
	assert.NotEqual(t, "changed", Classify(0.9).Recommendations[0])
}

func TestVerdictFlipsAtHalf(t *testing.T) {
	assert.False(t, VerdictFor(0.4999).AtRisk)
	assert.True(t, VerdictFor(0.5).AtRisk)
	assert.Contains(t, VerdictFor(0.5).Headline, "AT RISK - Diabetes Predicted")
	assert.Contains(t, VerdictFor(0.2).Headline, "NO DIABETES - Low Risk")
}

func TestFormatProbability(t *testing.T) {
	assert.Equal(t, "42.0%", FormatProbability(0.42))
	assert.Equal(t, "100.0%", FormatProbability(1))
	assert.Equal(t, "0.0%", FormatProbability(0))
}

func TestClassifyBMI(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{18.4, Underweight},
		{18.5, Normal},
		{24.9, Normal},
		{25.0, Overweight},
		{29.9, Overweight},
		{30.0, Obesity},
		{55, Obesity},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBMI(tt.bmi).Category, "bmi=%v", tt.bmi)
	}
	assert.Equal(t, "#2ecc71", ClassifyBMI(22).Color)
}
