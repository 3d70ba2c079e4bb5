// Package risk buckets model probabilities and BMI readings for display.
package risk

import "fmt"

// Tier is a discrete risk level.
type Tier string

const (
	Low      Tier = "LOW"
	Moderate Tier = "MODERATE"
	High     Tier = "HIGH"
)

// Lower bounds, inclusive.
const (
	ModerateThreshold = 0.5
	HighThreshold     = 0.8
)

// Assessment is the display bucket for a probability.
type Assessment struct {
	Tier            Tier     `json:"tier"`
	Label           string   `json:"label"`
	Color           string   `json:"color"`
	Severity        string   `json:"severity"`
	Recommendations []string `json:"recommendations"`
}

// Verdict is the binary at-risk call shown under the probability badge.
type Verdict struct {
	AtRisk   bool   `json:"atRisk"`
	Headline string `json:"headline"`
	Advice   string `json:"advice"`
}

var assessments = map[Tier]Assessment{
	High: {
		Tier:     High,
		Label:    "HIGH RISK",
		Color:    "#ff4b4b",
		Severity: "error",
		Recommendations: []string{
			"🚨 Immediate medical consultation recommended",
			"📋 Regular blood sugar monitoring",
			"🏃‍♂️ Start physical activity program",
			"🥗 Consult nutritionist for diet plan",
			"⚕️ Regular health check-ups",
		},
	},
	Moderate: {
		Tier:     Moderate,
		Label:    "MODERATE RISK",
		Color:    "#ff9800",
		Severity: "warning",
		Recommendations: []string{
			"📋 Consider preventive screening",
			"🏃‍♂️ Increase physical activity",
			"🥗 Improve dietary habits",
			"⚖️ Maintain healthy weight",
			"🚭 Avoid smoking and limit alcohol",
		},
	},
	Low: {
		Tier:     Low,
		Label:    "LOW RISK",
		Color:    "#4caf50",
		Severity: "success",
		Recommendations: []string{
			"✅ Continue healthy lifestyle",
			"🏃‍♂️ Maintain regular exercise",
			"🥗 Balanced nutrition",
			"😊 Stress management",
			"🩺 Annual health check-ups",
		},
	},
}

// TierFor maps a probability to its tier. Anything below the moderate bound,
// including NaN, is LOW.
func TierFor(p float64) Tier {
	switch {
	case p >= HighThreshold:
		return High
	case p >= ModerateThreshold:
		return Moderate
	default:
		return Low
	}
}

// Classify returns the display bucket for p.
func Classify(p float64) Assessment {
	a := assessments[TierFor(p)]
	recs := make([]string, len(a.Recommendations))
	copy(recs, a.Recommendations)
	a.Recommendations = recs
	return a
}

// VerdictFor gives the headline shown beneath the probability.
func VerdictFor(p float64) Verdict {
	if p >= ModerateThreshold {
		return Verdict{
			AtRisk:   true,
			Headline: "⚠️ AT RISK - Diabetes Predicted",
			Advice:   "Recommend medical consultation and lifestyle changes",
		}
	}
	return Verdict{
		Headline: "✅ NO DIABETES - Low Risk",
		Advice:   "Maintain healthy lifestyle for prevention",
	}
}

// FormatProbability renders p as a one-decimal percentage.
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
