package economy

import (
	"fmt"
	"strings"
)

// RiskScoreResult is returned by CalculateRiskScore.
type RiskScoreResult struct {
	Score             int       `json:"score"`
	Level             RiskLevel `json:"level"`
	Details           []string  `json:"details"`
	Recommendation    string    `json:"recommendation"`
	AffectedCompanies []string  `json:"affected_companies"`
}

// SystemicLevel grades aggregate risk across the whole context.
type SystemicLevel string

const (
	SystemicNormal   SystemicLevel = "NORMAL"
	SystemicElevated SystemicLevel = "ELEVATED"
	SystemicCritical SystemicLevel = "CRITICAL"
)

// Rank orders systemic levels so callers can compare against a threshold.
func (l SystemicLevel) Rank() int {
	switch l {
	case SystemicCritical:
		return 2
	case SystemicElevated:
		return 1
	default:
		return 0
	}
}

// ParseSystemicLevel accepts any casing; unknown values map to NORMAL.
func ParseSystemicLevel(s string) SystemicLevel {
	switch l := SystemicLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case SystemicElevated, SystemicCritical:
		return l
	}
	return SystemicNormal
}

// SystemicRiskResult is returned by AnalyzeSystemicRisk.
type SystemicRiskResult struct {
	SystemicLevel       SystemicLevel `json:"systemic_level"`
	SystemicScore       int           `json:"systemic_score"`
	HighRiskIndicators  []string      `json:"high_risk_indicators"`
	VulnerableCompanies []string      `json:"vulnerable_companies"`
	RecommendedActions  []string      `json:"recommended_actions"`
	ContextSummary      Summary       `json:"context_summary"`
}

// CalculateRiskScore scores free-text factors by the severity words they
// contain and records the outcome as a RiskAssessment in ec.
//
// Each factor counts once, at its most severe marker: "high" or "critical"
// add 3, "medium" or "moderate" add 2, "low" adds 1. Matching is
// case-insensitive and by substring.
func CalculateRiskScore(ec *Context, factors []string) RiskScoreResult {
	score := 0
	details := []string{}

	for _, factor := range factors {
		f := strings.ToLower(factor)
		switch {
		case strings.Contains(f, "high") || strings.Contains(f, "critical"):
			score += 3
			details = append(details, fmt.Sprintf("High risk: %s", factor))
		case strings.Contains(f, "medium") || strings.Contains(f, "moderate"):
			score += 2
			details = append(details, fmt.Sprintf("Medium risk: %s", factor))
		case strings.Contains(f, "low"):
			score++
			details = append(details, fmt.Sprintf("Low risk: %s", factor))
		}
	}

	level, recommendation := scoreLevel(score)
	affected := ec.VulnerableCompanies()

	ec.AddRiskAssessment(RiskAssessment{
		RiskLevel:         level,
		RiskScore:         score,
		RiskFactors:       details,
		AffectedCompanies: affected,
		Recommendations:   []string{recommendation},
	})

	return RiskScoreResult{
		Score:             score,
		Level:             level,
		Details:           details,
		Recommendation:    recommendation,
		AffectedCompanies: affected,
	}
}

func scoreLevel(score int) (RiskLevel, string) {
	switch {
	case score > 8:
		return RiskCritical, "Immediate action needed - reduce exposure"
	case score > 5:
		return RiskHigh, "Monitor closely and consider hedging"
	case score > 3:
		return RiskMedium, "Monitor and prepare contingency plans"
	default:
		return RiskLow, "Maintain current strategy"
	}
}

// AnalyzeSystemicRisk grades the context as a whole. High-risk indicators
// weigh double against vulnerable companies. It does not modify ec.
func AnalyzeSystemicRisk(ec *Context) SystemicRiskResult {
	indicators := ec.HighRiskIndicators()
	vulnerable := ec.VulnerableCompanies()

	names := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		names = append(names, ind.Name)
	}

	score := len(indicators)*2 + len(vulnerable)

	var level SystemicLevel
	var actions []string
	switch {
	case score > 6:
		level = SystemicCritical
		actions = []string{
			"Reduce overall portfolio exposure",
			"Implement defensive strategies",
			"Increase cash allocation",
		}
	case score > 3:
		level = SystemicElevated
		actions = []string{
			"Review and adjust positions",
			"Consider protective hedges",
			"Monitor daily",
		}
	default:
		level = SystemicNormal
		actions = []string{
			"Maintain positions",
			"Regular monitoring",
			"Stay informed",
		}
	}

	return SystemicRiskResult{
		SystemicLevel:       level,
		SystemicScore:       score,
		HighRiskIndicators:  names,
		VulnerableCompanies: vulnerable,
		RecommendedActions:  actions,
		ContextSummary:      ec.Summary(),
	}
}
