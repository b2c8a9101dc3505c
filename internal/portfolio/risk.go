package portfolio

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"
)

// RiskLevel classifies portfolio concentration risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ErrEmptyPortfolio is returned when a calculation needs a non-zero portfolio value.
var ErrEmptyPortfolio = errors.New("Empty portfolio")

// DefaultConfidence is used when the requested confidence has no z-score.
const DefaultConfidence = 0.95

var zScores = map[float64]float64{
	0.95: 1.65,
	0.99: 2.33,
}

// Scenario is one entry of the stress-test table.
type Scenario struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Factor      float64 `json:"factor"`
	Description string  `json:"description"`
}

// DefaultScenario is applied when an unknown scenario is requested.
const DefaultScenario = "market_crash"

var scenarios = []Scenario{
	{Key: "market_crash", Name: "Market Crash (-30%)", Factor: 0.7, Description: "Severe market downturn"},
	{Key: "recession", Name: "Recession (-15%)", Factor: 0.85, Description: "Economic recession"},
	{Key: "inflation", Name: "High Inflation (-10%)", Factor: 0.9, Description: "High inflation environment"},
}

// Scenarios lists the stress-test table in a fixed order.
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

func lookupScenario(key string) Scenario {
	for _, s := range scenarios {
		if s.Key == key {
			return s
		}
	}
	return scenarios[0]
}

// VaRResult is the parametric Value-at-Risk estimate.
type VaRResult struct {
	VaR                 float64 `json:"var"`
	PortfolioValue      float64 `json:"portfolio_value"`
	Confidence          string  `json:"confidence"`
	Volatility          string  `json:"volatility"`
	Interpretation      string  `json:"interpretation"`
	ConfidenceSupported bool    `json:"confidence_supported"`
}

// ConcentrationRisk is the tiered concentration assessment.
type ConcentrationRisk struct {
	MaxConcentration     string             `json:"max_concentration"`
	LargestPosition      string             `json:"largest_position"`
	RiskLevel            RiskLevel          `json:"risk_level"`
	DiversificationScore float64            `json:"diversification_score"`
	PositionWeights      map[string]float64 `json:"position_weights"`
	Recommendations      []string           `json:"recommendations"`
}

// SharpeResult is the risk-adjusted return estimate.
type SharpeResult struct {
	SharpeRatio     float64 `json:"sharpe_ratio"`
	PortfolioReturn string  `json:"portfolio_return"`
	RiskFreeRate    string  `json:"risk_free_rate"`
	Volatility      string  `json:"volatility"`
	Interpretation  string  `json:"interpretation"`
}

// PositionImpact is the stressed value of a single position.
type PositionImpact struct {
	Symbol        string  `json:"symbol"`
	CurrentValue  float64 `json:"current_value"`
	StressedValue float64 `json:"stressed_value"`
	Loss          float64 `json:"loss"`
}

// StressResult is the outcome of applying a scenario to the portfolio.
type StressResult struct {
	Scenario        string           `json:"scenario"`
	ScenarioName    string           `json:"scenario_name"`
	Description     string           `json:"description"`
	CurrentValue    float64          `json:"current_value"`
	StressedValue   float64          `json:"stressed_value"`
	TotalLoss       float64          `json:"total_loss"`
	LossPct         string           `json:"loss_pct"`
	PositionImpacts []PositionImpact `json:"position_impacts"`
}

// RiskMetrics bundles the risk figures reported with a portfolio summary.
// VaR95Error is set instead of VaR95 when the portfolio is empty.
type RiskMetrics struct {
	VaR95         *VaRResult        `json:"var_95,omitempty"`
	VaR95Error    string            `json:"var_95_error,omitempty"`
	Concentration ConcentrationRisk `json:"concentration"`
	SharpeRatio   SharpeResult      `json:"sharpe_ratio"`
}

// FullSummary is a portfolio summary with risk metrics attached.
type FullSummary struct {
	Summary
	RiskMetrics RiskMetrics `json:"risk_metrics"`
}

// RiskCalculator runs risk analytics over a portfolio. It holds no state of
// its own; every call reads the portfolio as it is now.
type RiskCalculator struct {
	portfolio *Portfolio
}

// NewRiskCalculator returns a calculator bound to p.
func NewRiskCalculator(p *Portfolio) *RiskCalculator {
	return &RiskCalculator{portfolio: p}
}

// CalculateVaR estimates the one-day loss not exceeded at the given confidence.
// Only 0.95 and 0.99 have z-scores; any other confidence is computed with the
// 0.95 z-score and reported with ConfidenceSupported=false.
func (rc *RiskCalculator) CalculateVaR(confidence, volatility float64) (*VaRResult, error) {
	total := rc.portfolio.TotalValue()
	if total == 0 {
		return nil, ErrEmptyPortfolio
	}

	z, supported := zScores[confidence]
	if !supported {
		z = zScores[DefaultConfidence]
	}
	v := total * volatility * z

	return &VaRResult{
		VaR:            round2(v),
		PortfolioValue: round2(total),
		Confidence:     fmt.Sprintf("%.0f%%", confidence*100),
		Volatility:     fmt.Sprintf("%.1f%%", volatility*100),
		Interpretation: fmt.Sprintf("With %.0f%% confidence, daily loss won't exceed $%s",
			confidence*100, humanize.FormatFloat("#,###.##", v)),
		ConfidenceSupported: supported,
	}, nil
}

// ConcentrationLevel maps a max concentration percentage to a tier.
// Boundaries are exclusive: exactly 40 is HIGH, not CRITICAL.
func ConcentrationLevel(maxPct float64) RiskLevel {
	switch {
	case maxPct > 40:
		return RiskCritical
	case maxPct > 30:
		return RiskHigh
	case maxPct > 20:
		return RiskModerate
	default:
		return RiskLow
	}
}

// AssessConcentrationRisk classifies the largest position's weight.
func (rc *RiskCalculator) AssessConcentrationRisk() ConcentrationRisk {
	conc := rc.portfolio.Concentration()
	level := ConcentrationLevel(conc.Max)

	var recs []string
	switch level {
	case RiskHigh, RiskCritical:
		recs = []string{
			fmt.Sprintf("⚠️ Reduce %s position - too concentrated (%.1f%%)", conc.Symbol, conc.Max),
			"Add more diversified holdings",
			"Consider position size limits (e.g., max 20% per position)",
		}
	case RiskModerate:
		recs = []string{
			"Monitor concentration levels",
			"Consider rebalancing quarterly",
		}
	default:
		recs = []string{
			"✅ Portfolio well diversified",
			"Maintain current allocation strategy",
		}
	}

	return ConcentrationRisk{
		MaxConcentration:     fmt.Sprintf("%.1f%%", conc.Max),
		LargestPosition:      conc.Symbol,
		RiskLevel:            level,
		DiversificationScore: rc.portfolio.DiversificationScore(),
		PositionWeights:      conc.Positions,
		Recommendations:      recs,
	}
}

// CalculateSharpeRatio computes (return - riskFreeRate) / volatility, where
// volatility is the sample standard deviation of the positions' individual
// returns. This is a cross-sectional stand-in for a historical return series.
func (rc *RiskCalculator) CalculateSharpeRatio(riskFreeRate float64) SharpeResult {
	portfolioReturn := rc.portfolio.TotalReturnPct() / 100

	positions := rc.portfolio.positions
	returns := make([]float64, 0, len(positions))
	for _, pos := range positions {
		returns = append(returns, pos.ReturnPct()/100)
	}

	stdDev := 0.0
	if len(returns) > 1 {
		stdDev = stat.StdDev(returns, nil)
	}

	sharpe := 0.0
	if stdDev != 0 {
		sharpe = (portfolioReturn - riskFreeRate) / stdDev
	}

	return SharpeResult{
		SharpeRatio:     round2(sharpe),
		PortfolioReturn: fmt.Sprintf("%.2f%%", portfolioReturn*100),
		RiskFreeRate:    fmt.Sprintf("%.2f%%", riskFreeRate*100),
		Volatility:      fmt.Sprintf("%.2f%%", stdDev*100),
		Interpretation:  sharpeInterpretation(sharpe),
	}
}

func sharpeInterpretation(sharpe float64) string {
	switch {
	case sharpe > 2:
		return "Excellent risk-adjusted returns"
	case sharpe > 1:
		return "Good risk-adjusted returns"
	case sharpe > 0:
		return "Positive but modest risk-adjusted returns"
	default:
		return "Poor risk-adjusted returns"
	}
}

// StressTest applies a scenario's factor uniformly to every position.
// Unknown scenario keys run market_crash.
func (rc *RiskCalculator) StressTest(scenario string) StressResult {
	s := lookupScenario(scenario)

	current := rc.portfolio.TotalValue()
	stressed := current * s.Factor

	impacts := make([]PositionImpact, 0, rc.portfolio.Len())
	for _, pos := range rc.portfolio.positions {
		v := pos.Value()
		sv := v * s.Factor
		impacts = append(impacts, PositionImpact{
			Symbol:        pos.Symbol,
			CurrentValue:  round2(v),
			StressedValue: round2(sv),
			Loss:          round2(v - sv),
		})
	}

	return StressResult{
		Scenario:        s.Key,
		ScenarioName:    s.Name,
		Description:     s.Description,
		CurrentValue:    round2(current),
		StressedValue:   round2(stressed),
		TotalLoss:       round2(current - stressed),
		LossPct:         fmt.Sprintf("%.1f%%", (1-s.Factor)*100),
		PositionImpacts: impacts,
	}
}

// PortfolioSummary composes the portfolio summary with VaR at 95%,
// concentration risk and the Sharpe ratio.
func (rc *RiskCalculator) PortfolioSummary(riskFreeRate, volatility float64) FullSummary {
	metrics := RiskMetrics{
		Concentration: rc.AssessConcentrationRisk(),
		SharpeRatio:   rc.CalculateSharpeRatio(riskFreeRate),
	}
	if v, err := rc.CalculateVaR(DefaultConfidence, volatility); err != nil {
		metrics.VaR95Error = err.Error()
	} else {
		metrics.VaR95 = v
	}

	return FullSummary{
		Summary:     rc.portfolio.Summary(),
		RiskMetrics: metrics,
	}
}
