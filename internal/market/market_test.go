package market

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_LatestPrices(t *testing.T) {
	p := NewStaticProvider(map[string]float64{"aapl": 185})
	p.Set("msft", 420)

	prices, err := p.LatestPrices(context.Background(), []string{"AAPL", "msft", "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 185, "msft": 420}, prices)
}

func TestCompanyFinancials(t *testing.T) {
	a := NewAnalyst()

	aapl, ok := a.GetCompanyFinancials("aapl")
	require.True(t, ok)
	assert.True(t, aapl.IsHighDebt())
	assert.InDelta(t, 30.2/15, aapl.PEGRatio(DefaultGrowthRate), 1e-9)
	assert.True(t, math.IsInf(aapl.PEGRatio(0), 1))

	msft, _ := a.GetCompanyFinancials("MSFT")
	assert.False(t, msft.IsHighDebt())

	_, ok = a.GetCompanyFinancials("TSLA")
	assert.False(t, ok)
}

func TestAnalyzeCorrelation(t *testing.T) {
	a := NewAnalyst()

	tests := []struct {
		ticker, indicator, want string
	}{
		{"AAPL", "DFF", "⚠️ AAPL has high debt (1.9x) - vulnerable to high rates (5.33%)"},
		{"MSFT", "DFF", "✅ MSFT has low debt (0.6x) - resilient to rate hikes"},
		{"GOOGL", "VIXCLS", "✅ Low volatility (VIX: 18.5) - stable environment for GOOGL"},
		{"MSFT", "CPI", "💪 MSFT has strong margins (36.7%) - can absorb inflation pressure"},
		{"AAPL", "CPI", "⚠️ Rising inflation may pressure AAPL's margins (25.3%)"},
		{"AAPL", "GDP", "Neutral relationship between AAPL and GDP"},
		{"TSLA", "DFF", "Invalid ticker or indicator"},
		{"AAPL", "BOGUS", "Invalid ticker or indicator"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker+"_"+tt.indicator, func(t *testing.T) {
			assert.Equal(t, tt.want, a.AnalyzeCorrelation(tt.ticker, tt.indicator))
		})
	}
}
