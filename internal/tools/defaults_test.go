package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"risk_desk/internal/economy"
	"risk_desk/internal/market"
	"risk_desk/internal/models"
	"risk_desk/internal/portfolio"
	"risk_desk/internal/session"
	"risk_desk/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHoldings struct {
	holdings []models.Holding
	err      error
}

func (m *mockHoldings) ListHoldings(context.Context) ([]models.Holding, error) {
	return m.holdings, m.err
}

func newTestRegistry(t *testing.T) (*Registry, *session.Session, Deps) {
	t.Helper()
	mock := economy.NewMockSource()
	deps := Deps{
		Economy:      economy.NewProvider(mock, mock),
		Prices:       market.NewStaticProvider(market.DefaultPrices()),
		Analyst:      market.NewAnalyst(),
		Volatility:   0.02,
		RiskFreeRate: 0.04,
		HoldingsPath: filepath.Join(t.TempDir(), "holdings.json"),
	}
	return NewDefaultRegistry(deps, nil), session.New(nil), deps
}

func TestDefaultRegistry_ToolSet(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	for _, name := range []string{
		"add_position", "add_positions", "remove_position", "get_position", "clear_portfolio",
		"portfolio_summary", "calculate_var", "assess_concentration_risk", "calculate_sharpe_ratio",
		"stress_test", "list_scenarios", "get_portfolio_summary", "refresh_prices", "import_holdings",
		"get_economic_indicator", "get_company_exposure", "calculate_risk_score",
		"analyze_systemic_risk", "context_summary", "get_high_risk_indicators",
		"get_vulnerable_companies", "get_latest_assessment", "list_events",
		"get_company_financials", "analyze_company_correlation",
	} {
		_, ok := r.Get(name)
		assert.True(t, ok, name)
	}
}

func TestPortfolioTools_Flow(t *testing.T) {
	r, sess, _ := newTestRegistry(t)
	ctx := context.Background()

	// 1. Empty portfolio VaR is an error record
	res := r.Call(ctx, sess, "calculate_var", nil)
	assert.False(t, res.OK)
	assert.Equal(t, "Empty portfolio", res.Error)

	// 2. Add positions
	res = r.Call(ctx, sess, "add_positions", Args{"positions": []any{
		map[string]any{"symbol": "aapl", "shares": 200.0, "buy_price": 250.0, "current_price": 250.0},
		map[string]any{"symbol": "MSFT", "shares": 100.0, "buy_price": 500.0, "current_price": 500.0},
	}})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 2, sess.Portfolio.Len())

	// 3. Risk metrics
	res = r.Call(ctx, sess, "calculate_var", Args{"confidence": 0.95})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 3300.0, res.Data.(*portfolio.VaRResult).VaR)

	res = r.Call(ctx, sess, "stress_test", Args{"scenario": "market_crash"})
	require.True(t, res.OK)
	assert.Equal(t, 70000.0, res.Data.(portfolio.StressResult).StressedValue)

	res = r.Call(ctx, sess, "get_position", Args{"symbol": "AAPL"})
	require.True(t, res.OK)
	assert.Equal(t, 200, res.Data.(portfolio.PositionSummary).Shares)

	// 4. Remove and clear
	res = r.Call(ctx, sess, "remove_position", Args{"symbol": "msft"})
	assert.Equal(t, true, res.Data.(map[string]any)["removed"])

	res = r.Call(ctx, sess, "get_position", Args{"symbol": "MSFT"})
	assert.Equal(t, "No position for MSFT", res.Error)

	res = r.Call(ctx, sess, "clear_portfolio", nil)
	assert.Equal(t, 1, res.Data.(map[string]any)["cleared"])
	assert.Equal(t, 0, sess.Portfolio.Len())
}

func TestAddPosition_UsesQuoteWhenNoCurrentPrice(t *testing.T) {
	r, sess, _ := newTestRegistry(t)

	res := r.Call(context.Background(), sess, "add_position", Args{"symbol": "AAPL", "shares": 10.0, "buy_price": 150.0})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 185.0, res.Data.(portfolio.PositionSummary).CurrentPrice)

	res = r.Call(context.Background(), sess, "add_position", Args{"symbol": "ZZZZ", "shares": 1.0, "buy_price": 9.0})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 9.0, res.Data.(portfolio.PositionSummary).CurrentPrice)
}

func TestAddPositions_RejectsIncompleteItems(t *testing.T) {
	r, sess, _ := newTestRegistry(t)

	res := r.Call(context.Background(), sess, "add_positions", Args{"positions": []any{
		map[string]any{"symbol": "AAPL", "shares": 1.0, "buy_price": 1.0},
	}})
	assert.False(t, res.OK)
	assert.Equal(t, "positions[0]: missing current_price", res.Error)
	assert.Equal(t, 0, sess.Portfolio.Len())
}

func TestRefreshPrices(t *testing.T) {
	r, sess, _ := newTestRegistry(t)
	sess.Portfolio.AddPosition("AAPL", 10, 150, 150)
	sess.Portfolio.AddPosition("ZZZZ", 1, 5, 5)

	res := r.Call(context.Background(), sess, "refresh_prices", nil)
	require.True(t, res.OK, res.Error)

	data := res.Data.(map[string]any)
	assert.Equal(t, 1, data["updated"])
	assert.Equal(t, []string{"ZZZZ"}, data["missing"])

	pos, _ := sess.Portfolio.GetPosition("AAPL")
	assert.Equal(t, 185.0, pos.CurrentPrice)
}

func TestImportHoldings(t *testing.T) {
	r, sess, deps := newTestRegistry(t)
	require.NoError(t, storage.SaveHoldings(deps.HoldingsPath, models.HoldingsFile{Holdings: []models.Holding{
		{Symbol: "JPM", Shares: 50, BuyPrice: 140, CurrentPrice: 195},
	}}))
	sess.Portfolio.AddPosition("OLD", 1, 1, 1)

	res := r.Call(context.Background(), sess, "import_holdings", nil)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 1, res.Data.(map[string]any)["imported"])
	assert.Equal(t, []string{"JPM"}, sess.Portfolio.Symbols())

	res = r.Call(context.Background(), sess, "import_holdings", Args{"source": "broker"})
	assert.Equal(t, "no broker account configured", res.Error)
}

func TestImportHoldings_Broker(t *testing.T) {
	mock := economy.NewMockSource()
	r := NewDefaultRegistry(Deps{
		Economy:  economy.NewProvider(mock, mock),
		Holdings: &mockHoldings{holdings: []models.Holding{{Symbol: "TSLA", Shares: 3, BuyPrice: 200, CurrentPrice: 175}}},
	}, nil)
	sess := session.New(nil)
	sess.Portfolio.AddPosition("AAPL", 1, 1, 1)

	res := r.Call(context.Background(), sess, "import_holdings", Args{"source": "broker", "replace": false})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []string{"AAPL", "TSLA"}, sess.Portfolio.Symbols())
}

func TestSaveHoldingsTool(t *testing.T) {
	r, sess, deps := newTestRegistry(t)
	sess.Portfolio.AddPosition("AAPL", 10, 150, 185)

	res := r.Call(context.Background(), sess, "save_holdings", nil)
	require.True(t, res.OK, res.Error)

	hf, err := storage.LoadHoldings(deps.HoldingsPath)
	require.NoError(t, err)
	require.Len(t, hf.Holdings, 1)
	assert.Equal(t, "AAPL", hf.Holdings[0].Symbol)
}

func TestEconomyTools_Flow(t *testing.T) {
	r, sess, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Call(ctx, sess, "get_economic_indicator", Args{"indicator": "vixcls"})
	require.True(t, res.OK)
	assert.Equal(t, 35.2, res.Data.(economy.IndicatorData).Value)
	assert.Equal(t, "high", res.Data.(economy.IndicatorData).Risk)

	res = r.Call(ctx, sess, "get_economic_indicator", Args{"indicator": "NOPE"})
	require.True(t, res.OK)
	assert.Equal(t, "Unknown", res.Data.(economy.IndicatorData).Unit)

	res = r.Call(ctx, sess, "get_company_exposure", Args{"company": "AAPL"})
	require.True(t, res.OK)

	res = r.Call(ctx, sess, "get_vulnerable_companies", nil)
	assert.Equal(t, []string{"AAPL"}, res.Data)

	res = r.Call(ctx, sess, "analyze_systemic_risk", nil)
	sys := res.Data.(economy.SystemicRiskResult)
	assert.Equal(t, 3, sys.SystemicScore)
	assert.Equal(t, economy.SystemicNormal, sys.SystemicLevel)

	res = r.Call(ctx, sess, "calculate_risk_score", Args{"factors": []any{"high inflation", "critical debt"}})
	require.True(t, res.OK, res.Error)

	res = r.Call(ctx, sess, "get_latest_assessment", nil)
	assert.NotNil(t, res.Data.(map[string]any)["assessment"])

	res = r.Call(ctx, sess, "list_events", Args{"limit": 1.0})
	events := res.Data.([]economy.Event)
	require.Len(t, events, 1)
	assert.Equal(t, economy.EventRiskAssessed, events[0].Type)

	res = r.Call(ctx, sess, "context_summary", nil)
	summary := res.Data.(economy.Summary)
	assert.Equal(t, 1, summary.IndicatorsCollected)
	assert.Equal(t, 3, summary.EventsLogged)
}

func TestMarketTools(t *testing.T) {
	r, sess, _ := newTestRegistry(t)
	ctx := context.Background()

	res := r.Call(ctx, sess, "get_company_financials", Args{"ticker": "ZZZ"})
	assert.False(t, res.OK)
	assert.Equal(t, "No data for ZZZ", res.Error)

	res = r.Call(ctx, sess, "get_company_financials", Args{"ticker": "aapl"})
	require.True(t, res.OK)
	view := res.Data.(financialsView)
	assert.True(t, view.IsHighDebt)
	require.NotNil(t, view.PEGRatio)
	assert.InDelta(t, 30.2/15, *view.PEGRatio, 1e-9)

	res = r.Call(ctx, sess, "get_company_financials", Args{"ticker": "MSFT", "growth_rate": 0.0})
	require.True(t, res.OK)
	assert.Nil(t, res.Data.(financialsView).PEGRatio)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"peg_ratio":null`)

	res = r.Call(ctx, sess, "analyze_company_correlation", Args{"ticker": "AAPL", "indicator": "DFF"})
	require.True(t, res.OK)
	assert.NotEmpty(t, res.Data.(map[string]string)["analysis"])
}

func TestHandleCommand(t *testing.T) {
	r, sess, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Equal(t, "", r.HandleCommand(ctx, sess, "  "))
	assert.Contains(t, r.HandleCommand(ctx, sess, "hello"), "Try /help")
	assert.Contains(t, r.HandleCommand(ctx, sess, "/nope"), "Unknown command /nope")

	help := r.HandleCommand(ctx, sess, "/help")
	assert.Contains(t, help, "/calculate_var")
	assert.Contains(t, help, "/add_position symbol=AAPL shares=10 buy_price=1.5")

	out := r.HandleCommand(ctx, sess, "/add_position symbol=AAPL shares=200 buy_price=250 current_price=250")
	assert.Contains(t, out, `"ok": true`)
	out = r.HandleCommand(ctx, sess, `/add_position {"symbol":"MSFT","shares":100,"buy_price":500,"current_price":500}`)
	assert.Contains(t, out, `"ok": true`)

	out = r.HandleCommand(ctx, sess, "/calculate_var confidence=0.99")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4660.0, res["data"].(map[string]any)["var"])

	out = r.HandleCommand(ctx, sess, "/calculate_var confidence=high")
	assert.Contains(t, out, "argument confidence must be a number")

	out = r.HandleCommand(ctx, sess, "/calculate_risk_score factors=high rates,low growth")
	assert.True(t, strings.Contains(out, "expected key=value"))

	out = r.HandleCommand(ctx, sess, "/calculate_risk_score factors=high_rates,critical_debt")
	assert.Contains(t, out, `"ok": true`)

	assert.Equal(t, "Session cleared.", r.HandleCommand(ctx, sess, "/reset"))
	assert.Equal(t, 0, sess.Portfolio.Len())
}

func TestParseCommandArgs_ArraySplitsOnComma(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	tool, ok := r.Get("calculate_risk_score")
	require.True(t, ok)

	args, err := parseCommandArgs(tool, "factors=high_rates,,critical_debt")
	require.NoError(t, err)
	assert.Equal(t, []any{"high_rates", "critical_debt"}, args["factors"])

	args, err = parseCommandArgs(tool, "factors=")
	require.NoError(t, err)
	assert.Equal(t, []any{}, args["factors"])
}
