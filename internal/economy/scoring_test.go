package economy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRiskScore(t *testing.T) {
	tests := []struct {
		name    string
		factors []string
		score   int
		level   RiskLevel
	}{
		{name: "none", factors: nil, score: 0, level: RiskLow},
		{name: "unmarked factors ignored", factors: []string{"tariffs"}, score: 0, level: RiskLow},
		{name: "medium", factors: []string{"HIGH rates", "low growth"}, score: 4, level: RiskMedium},
		{name: "high", factors: []string{"critical debt", "moderate inflation", "low growth"}, score: 6, level: RiskHigh},
		{name: "critical", factors: []string{"high vix", "high rates", "critical debt"}, score: 9, level: RiskCritical},
		{name: "one marker per factor", factors: []string{"high and low"}, score: 3, level: RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := newTestContext()
			res := CalculateRiskScore(ec, tt.factors)

			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.level, res.Level)
			assert.Len(t, ec.Assessments(), 1)
			assert.Equal(t, 1, ec.Summary().EventsLogged)
		})
	}
}

func TestCalculateRiskScore_DetailsAndAffected(t *testing.T) {
	ec := newTestContext()
	p := NewProvider(NewMockSource(), NewMockSource())
	p.GetCompanyExposure(context.Background(), ec, "aapl")

	res := CalculateRiskScore(ec, []string{"High volatility", "Moderate inflation", "Low unemployment"})

	assert.Equal(t, []string{
		"High risk: High volatility",
		"Medium risk: Moderate inflation",
		"Low risk: Low unemployment",
	}, res.Details)
	assert.Equal(t, "Monitor closely and consider hedging", res.Recommendation)
	assert.Equal(t, []string{"AAPL"}, res.AffectedCompanies)

	latest := ec.LatestAssessment()
	require.NotNil(t, latest)
	assert.Equal(t, []string{"Monitor closely and consider hedging"}, latest.Recommendations)
}

func TestAnalyzeSystemicRisk(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		ec := newTestContext()
		res := AnalyzeSystemicRisk(ec)
		assert.Equal(t, SystemicNormal, res.SystemicLevel)
		assert.Equal(t, 0, res.SystemicScore)
		assert.Equal(t, []string{"Maintain positions", "Regular monitoring", "Stay informed"}, res.RecommendedActions)
	})

	t.Run("elevated", func(t *testing.T) {
		ec := newTestContext()
		ec.AddIndicator(EconomicIndicator{Name: "VIXCLS", Risk: RiskHigh})
		ec.AddIndicator(EconomicIndicator{Name: "DFF", Risk: RiskCritical})
		before := ec.Summary().EventsLogged

		res := AnalyzeSystemicRisk(ec)
		assert.Equal(t, SystemicElevated, res.SystemicLevel)
		assert.Equal(t, 4, res.SystemicScore)
		assert.Equal(t, []string{"DFF", "VIXCLS"}, res.HighRiskIndicators)
		assert.Equal(t, before, ec.Summary().EventsLogged)
		assert.Equal(t, before, res.ContextSummary.EventsLogged)
	})

	t.Run("critical", func(t *testing.T) {
		ec := newTestContext()
		for _, name := range []string{"A", "B", "C"} {
			ec.AddIndicator(EconomicIndicator{Name: name, Risk: RiskHigh})
		}
		ec.AddCompanyExposure(CompanyExposure{Ticker: "AAPL", InterestRateSensitivity: SensitivityHigh, DebtToEquity: 3})

		res := AnalyzeSystemicRisk(ec)
		assert.Equal(t, 7, res.SystemicScore)
		assert.Equal(t, SystemicCritical, res.SystemicLevel)
		assert.Equal(t, []string{"AAPL"}, res.VulnerableCompanies)
	})
}

func TestSystemicLevel_Rank(t *testing.T) {
	assert.Greater(t, SystemicCritical.Rank(), SystemicElevated.Rank())
	assert.Greater(t, SystemicElevated.Rank(), SystemicNormal.Rank())
	assert.Equal(t, SystemicElevated, ParseSystemicLevel("elevated"))
	assert.Equal(t, SystemicNormal, ParseSystemicLevel("bogus"))
}

func TestProvider_GetEconomicIndicator(t *testing.T) {
	ec := newTestContext()
	p := NewProvider(NewMockSource(), NewMockSource())

	got := p.GetEconomicIndicator(context.Background(), ec, "vixcls")
	assert.Equal(t, IndicatorData{Value: 35.2, Unit: "Index", Trend: TrendElevated, Risk: "high"}, got)

	ind, ok := ec.Indicator("VIXCLS")
	require.True(t, ok)
	assert.Equal(t, fixedNow, ind.Timestamp)

	unknown := p.GetEconomicIndicator(context.Background(), ec, "NOPE")
	assert.Equal(t, IndicatorData{Value: 0, Unit: "Unknown", Trend: TrendUnknown, Risk: "unknown"}, unknown)
	assert.Equal(t, 1, ec.Summary().EventsLogged)
}

func TestProvider_GetCompanyExposure(t *testing.T) {
	ec := newTestContext()
	p := NewProvider(NewMockSource(), NewMockSource())

	got := p.GetCompanyExposure(context.Background(), ec, "jpm")
	assert.Equal(t, "positive", got.InterestRateSensitivity)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 1, *got.RiskScore)

	unknown := p.GetCompanyExposure(context.Background(), ec, "ZZZ")
	assert.Equal(t, "unknown", unknown.InflationSensitivity)
	assert.Equal(t, 1.0, unknown.DebtToEquity)
	assert.Equal(t, 0.3, unknown.InternationalRevenue)
	assert.Nil(t, unknown.RiskScore)

	assert.Equal(t, 1, ec.Summary().CompaniesAnalyzed)
}

type failingSource struct{ err error }

func (f failingSource) FetchIndicator(context.Context, string) (EconomicIndicator, error) {
	return EconomicIndicator{}, f.err
}

func TestFallbackSource(t *testing.T) {
	var fellBack []string
	src := &FallbackSource{
		Primary:  failingSource{err: errors.New("breaker open")},
		Fallback: NewMockSource(),
		OnFallback: func(code string, err error) {
			fellBack = append(fellBack, code)
		},
	}

	ind, err := src.FetchIndicator(context.Background(), "GDP")
	require.NoError(t, err)
	assert.Equal(t, 27.96, ind.Value)
	assert.Equal(t, []string{"GDP"}, fellBack)

	_, err = src.FetchIndicator(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownIndicator)
}

func TestFallbackSource_UnknownCodeIsNotAnOutage(t *testing.T) {
	called := false
	src := &FallbackSource{
		Primary:    failingSource{err: ErrUnknownIndicator},
		Fallback:   NewMockSource(),
		OnFallback: func(string, error) { called = true },
	}

	ind, err := src.FetchIndicator(context.Background(), "GDP")
	require.NoError(t, err)
	assert.Equal(t, 27.96, ind.Value)

	_, err = src.FetchIndicator(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownIndicator)
	assert.False(t, called)
}
