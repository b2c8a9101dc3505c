package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"risk_desk/internal/economy"
)

// CompanyFinancials are headline fundamentals for one company.
type CompanyFinancials struct {
	Ticker          string  `json:"ticker"`
	RevenueBillions float64 `json:"revenue_billions"`
	EPS             float64 `json:"eps"`
	DebtToEquity    float64 `json:"debt_to_equity"`
	PERatio         float64 `json:"pe_ratio"`
	ProfitMargin    float64 `json:"profit_margin"`
	ROE             float64 `json:"roe"`
}

// DefaultGrowthRate is the earnings growth assumed by PEGRatio callers that have none.
const DefaultGrowthRate = 15.0

// PEGRatio divides the P/E by the growth rate in percent. Zero growth is +Inf.
func (f CompanyFinancials) PEGRatio(growthRate float64) float64 {
	if growthRate == 0 {
		return math.Inf(1)
	}
	return f.PERatio / growthRate
}

// IsHighDebt reports a debt-to-equity ratio above 1.5.
func (f CompanyFinancials) IsHighDebt() bool {
	return f.DebtToEquity > 1.5
}

// Analyst relates company fundamentals to the macro backdrop.
// Its data is a fixed snapshot, separate from any session's economy.Context.
type Analyst struct {
	companies  map[string]CompanyFinancials
	indicators map[string]economy.EconomicIndicator
}

// NewAnalyst returns an Analyst over the built-in snapshot.
func NewAnalyst() *Analyst {
	return &Analyst{
		companies: map[string]CompanyFinancials{
			"AAPL":  {Ticker: "AAPL", RevenueBillions: 383.3, EPS: 6.13, DebtToEquity: 1.95, PERatio: 30.2, ProfitMargin: 25.3, ROE: 147.9},
			"MSFT":  {Ticker: "MSFT", RevenueBillions: 245.1, EPS: 11.82, DebtToEquity: 0.58, PERatio: 35.5, ProfitMargin: 36.7, ROE: 39.2},
			"GOOGL": {Ticker: "GOOGL", RevenueBillions: 307.4, EPS: 5.61, DebtToEquity: 0.11, PERatio: 24.8, ProfitMargin: 27.8, ROE: 30.6},
		},
		indicators: map[string]economy.EconomicIndicator{
			"GDP":    {Name: "GDP", Value: 27.96, Unit: "Trillion USD", Trend: economy.TrendGrowing, Risk: economy.RiskLow},
			"UNRATE": {Name: "UNRATE", Value: 3.7, Unit: "Percent", Trend: economy.TrendStable, Risk: economy.RiskLow},
			"VIXCLS": {Name: "VIXCLS", Value: 18.5, Unit: "Index", Trend: economy.TrendModerate, Risk: economy.RiskMedium},
			"DFF":    {Name: "DFF", Value: 5.33, Unit: "Percent", Trend: economy.TrendElevated, Risk: economy.RiskMedium},
			"CPI":    {Name: "CPI", Value: 318.5, Unit: "Index", Trend: economy.TrendRising, Risk: economy.RiskMedium},
		},
	}
}

// GetCompanyFinancials looks up a ticker, case-insensitive.
func (a *Analyst) GetCompanyFinancials(ticker string) (CompanyFinancials, bool) {
	f, ok := a.companies[strings.ToUpper(ticker)]
	return f, ok
}

// Indicator looks up the analyst's own reading of a macro series.
func (a *Analyst) Indicator(name string) (economy.EconomicIndicator, bool) {
	ind, ok := a.indicators[strings.ToUpper(name)]
	return ind, ok
}

// AnalyzeCorrelation describes how ticker is exposed to indicator.
// Observations are joined with " | ". Unknown inputs produce a fixed message,
// not an error.
func (a *Analyst) AnalyzeCorrelation(ticker, indicator string) string {
	company, okCompany := a.GetCompanyFinancials(ticker)
	econ, okIndicator := a.Indicator(indicator)
	if !okCompany || !okIndicator {
		return "Invalid ticker or indicator"
	}

	var analysis []string
	value := strconv.FormatFloat(econ.Value, 'f', -1, 64)

	switch strings.ToUpper(indicator) {
	case "DFF":
		if econ.Value <= 5 {
			break
		}
		if company.IsHighDebt() {
			analysis = append(analysis, fmt.Sprintf("⚠️ %s has high debt (%.1fx) - vulnerable to high rates (%s%%)",
				ticker, company.DebtToEquity, value))
		} else {
			analysis = append(analysis, fmt.Sprintf("✅ %s has low debt (%.1fx) - resilient to rate hikes",
				ticker, company.DebtToEquity))
		}
	case "VIXCLS":
		if econ.Value > 25 {
			analysis = append(analysis, fmt.Sprintf("📊 High volatility (VIX: %s) - consider protective strategies for %s",
				value, ticker))
		} else {
			analysis = append(analysis, fmt.Sprintf("✅ Low volatility (VIX: %s) - stable environment for %s",
				value, ticker))
		}
	case "CPI":
		if econ.Trend != economy.TrendRising {
			break
		}
		if company.ProfitMargin > 30 {
			analysis = append(analysis, fmt.Sprintf("💪 %s has strong margins (%.1f%%) - can absorb inflation pressure",
				ticker, company.ProfitMargin))
		} else {
			analysis = append(analysis, fmt.Sprintf("⚠️ Rising inflation may pressure %s's margins (%.1f%%)",
				ticker, company.ProfitMargin))
		}
	}

	if len(analysis) == 0 {
		return fmt.Sprintf("Neutral relationship between %s and %s", ticker, indicator)
	}
	return strings.Join(analysis, " | ")
}
