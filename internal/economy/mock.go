package economy

import (
	"context"
	"fmt"
)

// MockSource serves a fixed snapshot of indicators and company profiles.
// It is the default source and the fallback when a live feed is down.
type MockSource struct {
	indicators map[string]EconomicIndicator
	exposures  map[string]CompanyExposure
}

// NewMockSource returns the built-in dataset.
func NewMockSource() *MockSource {
	cpi := EconomicIndicator{Value: 318.5, Unit: "Index", Trend: TrendRising, Risk: RiskMedium}

	return &MockSource{
		indicators: map[string]EconomicIndicator{
			"GDP":      {Value: 27.96, Unit: "Trillion USD", Trend: TrendGrowing, Risk: RiskLow},
			"UNRATE":   {Value: 3.7, Unit: "Percent", Trend: TrendStable, Risk: RiskLow},
			"VIXCLS":   {Value: 35.2, Unit: "Index", Trend: TrendElevated, Risk: RiskHigh},
			"DFF":      {Value: 5.33, Unit: "Percent", Trend: TrendHigh, Risk: RiskMedium},
			"CPI":      cpi,
			"CPIAUCSL": cpi,
		},
		exposures: map[string]CompanyExposure{
			"AAPL": {
				InterestRateSensitivity: SensitivityHigh,
				InflationSensitivity:    SensitivityMedium,
				VolatilitySensitivity:   SensitivityHigh,
				DebtToEquity:            1.95,
				InternationalRevenue:    0.58,
			},
			"JPM": {
				InterestRateSensitivity: SensitivityPositive,
				InflationSensitivity:    SensitivityLow,
				VolatilitySensitivity:   SensitivityMedium,
				DebtToEquity:            0.92,
				InternationalRevenue:    0.23,
			},
			"XOM": {
				InterestRateSensitivity: SensitivityLow,
				InflationSensitivity:    SensitivityPositive,
				VolatilitySensitivity:   SensitivityMedium,
				DebtToEquity:            0.41,
				InternationalRevenue:    0.65,
			},
		},
	}
}

// FetchIndicator implements IndicatorSource.
func (m *MockSource) FetchIndicator(_ context.Context, code string) (EconomicIndicator, error) {
	ind, ok := m.indicators[code]
	if !ok {
		return EconomicIndicator{}, fmt.Errorf("%w: %s", ErrUnknownIndicator, code)
	}
	ind.Name = code
	return ind, nil
}

// FetchExposure implements ExposureSource.
func (m *MockSource) FetchExposure(_ context.Context, ticker string) (CompanyExposure, error) {
	e, ok := m.exposures[ticker]
	if !ok {
		return CompanyExposure{}, fmt.Errorf("%w: %s", ErrUnknownCompany, ticker)
	}
	e.Ticker = ticker
	return e, nil
}

var (
	_ IndicatorSource = (*MockSource)(nil)
	_ ExposureSource  = (*MockSource)(nil)
	_ IndicatorSource = (*FallbackSource)(nil)
)
