// Package economy tracks macro indicators, company exposures and the risk
// assessments derived from them for one analysis session.
package economy

import (
	"strings"
	"time"
)

// RiskLevel is the economic risk vocabulary. It is deliberately a different
// type from portfolio.RiskLevel; the two are not interchangeable.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ParseRiskLevel accepts any casing. ok is false for anything outside the enumeration.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch l := RiskLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return l, true
	}
	return "", false
}

// Sensitivity describes how strongly, or in which direction, a company reacts
// to a macro factor.
type Sensitivity string

const (
	SensitivityLow      Sensitivity = "low"
	SensitivityMedium   Sensitivity = "medium"
	SensitivityHigh     Sensitivity = "high"
	SensitivityPositive Sensitivity = "positive" // benefits from the factor
	SensitivityNegative Sensitivity = "negative" // harmed by the factor
)

// ParseSensitivity maps unrecognized values to medium.
func ParseSensitivity(s string) Sensitivity {
	switch v := Sensitivity(strings.ToLower(strings.TrimSpace(s))); v {
	case SensitivityLow, SensitivityMedium, SensitivityHigh, SensitivityPositive, SensitivityNegative:
		return v
	}
	return SensitivityMedium
}

// Trend is the direction label attached to an indicator.
type Trend string

const (
	TrendGrowing  Trend = "growing"
	TrendStable   Trend = "stable"
	TrendElevated Trend = "elevated"
	TrendHigh     Trend = "high"
	TrendRising   Trend = "rising"
	TrendFalling  Trend = "falling"
	TrendModerate Trend = "moderate"
	TrendUnknown  Trend = "unknown"
)

// ParseTrend maps anything outside the enumeration to TrendUnknown.
func ParseTrend(s string) Trend {
	switch t := Trend(strings.ToLower(strings.TrimSpace(s))); t {
	case TrendGrowing, TrendStable, TrendElevated, TrendHigh, TrendRising, TrendFalling, TrendModerate:
		return t
	}
	return TrendUnknown
}

// EconomicIndicator is one observed macro series value.
type EconomicIndicator struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Trend     Trend     `json:"trend"`
	Risk      RiskLevel `json:"risk"`
	Timestamp time.Time `json:"timestamp"`
}

// CompanyExposure is a company's static sensitivity profile.
type CompanyExposure struct {
	Ticker                  string      `json:"ticker"`
	InterestRateSensitivity Sensitivity `json:"interest_rate_sensitivity"`
	InflationSensitivity    Sensitivity `json:"inflation_sensitivity"`
	VolatilitySensitivity   Sensitivity `json:"volatility_sensitivity"`
	DebtToEquity            float64     `json:"debt_to_equity"`
	InternationalRevenue    float64     `json:"international_revenue"`
}

// VulnerableScore is the RiskScore above which a company counts as vulnerable.
const VulnerableScore = 5

// RiskScore is an additive 0..11 heuristic.
func (e CompanyExposure) RiskScore() int {
	score := 0

	switch e.InterestRateSensitivity {
	case SensitivityHigh:
		score += 3
	case SensitivityMedium:
		score += 2
	}

	switch e.InflationSensitivity {
	case SensitivityHigh, SensitivityNegative:
		score += 2
	case SensitivityMedium:
		score += 1
	}

	switch e.VolatilitySensitivity {
	case SensitivityHigh:
		score += 2
	case SensitivityMedium:
		score += 1
	}

	switch {
	case e.DebtToEquity > 2:
		score += 3
	case e.DebtToEquity > 1:
		score += 1
	}

	if e.InternationalRevenue > 0.5 {
		score++
	}

	return score
}

// RiskAssessment is a scored judgement appended to the context history.
type RiskAssessment struct {
	RiskLevel         RiskLevel `json:"risk_level"`
	RiskScore         int       `json:"risk_score"`
	RiskFactors       []string  `json:"risk_factors"`
	AffectedCompanies []string  `json:"affected_companies"`
	Recommendations   []string  `json:"recommendations"`
	Timestamp         time.Time `json:"timestamp"`
}
