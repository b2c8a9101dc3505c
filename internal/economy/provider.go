package economy

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrUnknownCompany   = errors.New("unknown company")
)

// IndicatorSource supplies the latest reading of a macro series by code.
// Implementations return ErrUnknownIndicator (possibly wrapped) for codes
// they do not carry. The returned indicator has no timestamp; the Context
// stamps it when recorded.
type IndicatorSource interface {
	FetchIndicator(ctx context.Context, code string) (EconomicIndicator, error)
}

// ExposureSource supplies company sensitivity profiles by ticker.
type ExposureSource interface {
	FetchExposure(ctx context.Context, ticker string) (CompanyExposure, error)
}

// IndicatorData is the tool-facing indicator payload. Risk is a plain string
// because unknown codes report "unknown", which is not a RiskLevel.
type IndicatorData struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Trend Trend   `json:"trend"`
	Risk  string  `json:"risk"`
}

// ExposureData is the tool-facing exposure payload.
type ExposureData struct {
	InterestRateSensitivity string  `json:"interest_rate_sensitivity"`
	InflationSensitivity    string  `json:"inflation_sensitivity"`
	VolatilitySensitivity   string  `json:"volatility_sensitivity"`
	DebtToEquity            float64 `json:"debt_to_equity"`
	InternationalRevenue    float64 `json:"international_revenue"`
	RiskScore               *int    `json:"risk_score,omitempty"`
}

var unknownIndicator = IndicatorData{
	Value: 0,
	Unit:  "Unknown",
	Trend: TrendUnknown,
	Risk:  "unknown",
}

var unknownExposure = ExposureData{
	InterestRateSensitivity: "unknown",
	InflationSensitivity:    "unknown",
	VolatilitySensitivity:   "unknown",
	DebtToEquity:            1.0,
	InternationalRevenue:    0.3,
}

// Provider looks up data from its sources and records what it finds into
// the caller's Context.
type Provider struct {
	indicators IndicatorSource
	exposures  ExposureSource
}

// NewProvider wires a Provider to its sources.
func NewProvider(indicators IndicatorSource, exposures ExposureSource) *Provider {
	return &Provider{indicators: indicators, exposures: exposures}
}

// GetEconomicIndicator returns the reading for code (case-insensitive) and
// records it in ec. Codes the source cannot supply yield a zeroed "Unknown"
// payload and leave ec untouched.
func (p *Provider) GetEconomicIndicator(ctx context.Context, ec *Context, code string) IndicatorData {
	code = strings.ToUpper(strings.TrimSpace(code))

	ind, err := p.indicators.FetchIndicator(ctx, code)
	if err != nil {
		return unknownIndicator
	}
	ind.Name = code
	ec.AddIndicator(ind)

	return IndicatorData{
		Value: ind.Value,
		Unit:  ind.Unit,
		Trend: ind.Trend,
		Risk:  string(ind.Risk),
	}
}

// GetCompanyExposure returns the profile for ticker (case-insensitive) and
// records it in ec. Unknown tickers yield a default profile and leave ec
// untouched.
func (p *Provider) GetCompanyExposure(ctx context.Context, ec *Context, ticker string) ExposureData {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	e, err := p.exposures.FetchExposure(ctx, ticker)
	if err != nil {
		return unknownExposure
	}
	e.Ticker = ticker
	ec.AddCompanyExposure(e)

	score := e.RiskScore()
	return ExposureData{
		InterestRateSensitivity: string(e.InterestRateSensitivity),
		InflationSensitivity:    string(e.InflationSensitivity),
		VolatilitySensitivity:   string(e.VolatilitySensitivity),
		DebtToEquity:            e.DebtToEquity,
		InternationalRevenue:    e.InternationalRevenue,
		RiskScore:               &score,
	}
}

// FallbackSource asks Primary first and Fallback when Primary fails.
// OnFallback, when set, is told about each primary failure other than
// ErrUnknownIndicator.
type FallbackSource struct {
	Primary    IndicatorSource
	Fallback   IndicatorSource
	OnFallback func(code string, err error)
}

// FetchIndicator implements IndicatorSource.
func (f *FallbackSource) FetchIndicator(ctx context.Context, code string) (EconomicIndicator, error) {
	ind, err := f.Primary.FetchIndicator(ctx, code)
	if err == nil {
		return ind, nil
	}
	if f.OnFallback != nil && !errors.Is(err, ErrUnknownIndicator) {
		f.OnFallback(code, err)
	}
	return f.Fallback.FetchIndicator(ctx, code)
}
