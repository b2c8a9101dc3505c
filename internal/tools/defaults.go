package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"risk_desk/internal/economy"
	"risk_desk/internal/market"
	"risk_desk/internal/models"
	"risk_desk/internal/portfolio"
	"risk_desk/internal/session"
	"risk_desk/internal/storage"
)

// Deps are the collaborators the default tools run against.
type Deps struct {
	Economy  *economy.Provider
	Prices   market.PriceProvider
	Holdings market.HoldingsProvider // optional; nil disables broker import
	Analyst  *market.Analyst

	Volatility   float64
	RiskFreeRate float64
	HoldingsPath string
}

// NewDefaultRegistry builds a registry with every portfolio, economy and
// market-analysis tool.
func NewDefaultRegistry(deps Deps, metrics *Metrics) *Registry {
	if deps.Analyst == nil {
		deps.Analyst = market.NewAnalyst()
	}
	if deps.Economy == nil {
		mock := economy.NewMockSource()
		deps.Economy = economy.NewProvider(mock, mock)
	}

	r := NewRegistry(metrics)
	registerPortfolioTools(r, deps)
	registerEconomyTools(r, deps)
	registerMarketTools(r, deps)
	return r
}

func registerPortfolioTools(r *Registry, d Deps) {
	r.Register(Tool{
		Name:        "add_position",
		Description: "Add a stock position to the portfolio. Without current_price the latest quote is used, falling back to buy_price.",
		Params: []Param{
			{Name: "symbol", Type: TypeString, Description: "Ticker symbol", Required: true},
			{Name: "shares", Type: TypeInteger, Description: "Number of shares", Required: true},
			{Name: "buy_price", Type: TypeNumber, Description: "Purchase price per share", Required: true},
			{Name: "current_price", Type: TypeNumber, Description: "Current price per share"},
		},
		Handler: func(ctx context.Context, sess *session.Session, args Args) (any, error) {
			symbol := strings.ToUpper(strings.TrimSpace(args.String("symbol", "")))
			if symbol == "" {
				return nil, errors.New("symbol must not be empty")
			}
			buy := args.Float("buy_price", 0)
			current := args.Float("current_price", math.NaN())
			if math.IsNaN(current) {
				current = d.quote(ctx, symbol, buy)
			}
			pos := sess.Portfolio.AddPosition(symbol, args.Int("shares", 0), buy, current)
			return pos.Summary(), nil
		},
	})

	r.Register(Tool{
		Name:        "add_positions",
		Description: "Add several positions at once. Each item needs symbol, shares, buy_price and current_price.",
		Params: []Param{
			{Name: "positions", Type: TypeArray, Description: "List of {symbol, shares, buy_price, current_price} objects", Required: true, Items: "object"},
		},
		Handler: func(ctx context.Context, sess *session.Session, args Args) (any, error) {
			items := args.Objects("positions")
			if len(items) == 0 {
				return nil, errors.New("positions must be a non-empty list of objects")
			}
			for i, item := range items {
				for _, key := range []string{"symbol", "shares", "buy_price", "current_price"} {
					if !item.Has(key) {
						return nil, fmt.Errorf("positions[%d]: missing %s", i, key)
					}
				}
			}
			added := make([]portfolio.PositionSummary, 0, len(items))
			for _, item := range items {
				pos := sess.Portfolio.AddPosition(
					strings.ToUpper(item.String("symbol", "")),
					item.Int("shares", 0),
					item.Float("buy_price", 0),
					item.Float("current_price", 0),
				)
				added = append(added, pos.Summary())
			}
			return map[string]any{"added": added, "position_count": sess.Portfolio.Len()}, nil
		},
	})

	r.Register(Tool{
		Name:        "remove_position",
		Description: "Remove every position held under a symbol.",
		Params: []Param{
			{Name: "symbol", Type: TypeString, Description: "Ticker symbol", Required: true},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			symbol := strings.ToUpper(args.String("symbol", ""))
			return map[string]any{"symbol": symbol, "removed": sess.Portfolio.RemovePosition(symbol)}, nil
		},
	})

	r.Register(Tool{
		Name:        "get_position",
		Description: "Look up the first position held under a symbol.",
		Params: []Param{
			{Name: "symbol", Type: TypeString, Description: "Ticker symbol", Required: true},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			symbol := strings.ToUpper(args.String("symbol", ""))
			pos, ok := sess.Portfolio.GetPosition(symbol)
			if !ok {
				return nil, fmt.Errorf("No position for %s", symbol)
			}
			return pos.Summary(), nil
		},
	})

	r.Register(Tool{
		Name:        "clear_portfolio",
		Description: "Remove all positions.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			n := sess.Portfolio.Len()
			sess.Portfolio.Clear()
			return map[string]any{"cleared": n}, nil
		},
	})

	r.Register(Tool{
		Name:        "portfolio_summary",
		Description: "Portfolio totals, diversification score and per-position figures.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return sess.Portfolio.Summary(), nil
		},
	})

	r.Register(Tool{
		Name:        "calculate_var",
		Description: "Parametric one-day Value at Risk.",
		Params: []Param{
			{Name: "confidence", Type: TypeNumber, Description: "Confidence level (0.95 or 0.99)", Default: portfolio.DefaultConfidence},
			{Name: "volatility", Type: TypeNumber, Description: "Daily volatility as a fraction", Default: d.Volatility},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			rc := portfolio.NewRiskCalculator(sess.Portfolio)
			return rc.CalculateVaR(args.Float("confidence", portfolio.DefaultConfidence), args.Float("volatility", d.Volatility))
		},
	})

	r.Register(Tool{
		Name:        "assess_concentration_risk",
		Description: "Grade the largest position weight and suggest rebalancing.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return portfolio.NewRiskCalculator(sess.Portfolio).AssessConcentrationRisk(), nil
		},
	})

	r.Register(Tool{
		Name:        "calculate_sharpe_ratio",
		Description: "Sharpe ratio using the spread of position returns as volatility.",
		Params: []Param{
			{Name: "risk_free_rate", Type: TypeNumber, Description: "Annual risk-free rate as a fraction", Default: d.RiskFreeRate},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			rc := portfolio.NewRiskCalculator(sess.Portfolio)
			return rc.CalculateSharpeRatio(args.Float("risk_free_rate", d.RiskFreeRate)), nil
		},
	})

	r.Register(Tool{
		Name:        "stress_test",
		Description: "Apply a named shock scenario. Unknown scenarios use market_crash.",
		Params: []Param{
			{Name: "scenario", Type: TypeString, Description: "market_crash, recession or inflation", Default: portfolio.DefaultScenario},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			rc := portfolio.NewRiskCalculator(sess.Portfolio)
			return rc.StressTest(args.String("scenario", portfolio.DefaultScenario)), nil
		},
	})

	r.Register(Tool{
		Name:        "list_scenarios",
		Description: "List the stress test scenarios.",
		Handler: func(_ context.Context, _ *session.Session, _ Args) (any, error) {
			return portfolio.Scenarios(), nil
		},
	})

	r.Register(Tool{
		Name:        "get_portfolio_summary",
		Description: "Portfolio summary with VaR, concentration and Sharpe metrics.",
		Params: []Param{
			{Name: "risk_free_rate", Type: TypeNumber, Description: "Annual risk-free rate as a fraction", Default: d.RiskFreeRate},
			{Name: "volatility", Type: TypeNumber, Description: "Daily volatility as a fraction", Default: d.Volatility},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			rc := portfolio.NewRiskCalculator(sess.Portfolio)
			return rc.PortfolioSummary(args.Float("risk_free_rate", d.RiskFreeRate), args.Float("volatility", d.Volatility)), nil
		},
	})

	r.Register(Tool{
		Name:        "refresh_prices",
		Description: "Reprice every position from the configured price source.",
		Handler: func(ctx context.Context, sess *session.Session, _ Args) (any, error) {
			if d.Prices == nil {
				return nil, errors.New("no price source configured")
			}
			symbols := sess.Portfolio.Symbols()
			if len(symbols) == 0 {
				return nil, portfolio.ErrEmptyPortfolio
			}
			quotes, err := d.Prices.LatestPrices(ctx, symbols)
			if err != nil {
				return nil, fmt.Errorf("price refresh failed: %w", err)
			}
			missing := make([]string, 0)
			for _, s := range symbols {
				if _, ok := quotes[s]; !ok {
					missing = append(missing, s)
				}
			}
			sess.Portfolio = sess.Portfolio.Revalue(quotes)
			return map[string]any{
				"updated": len(symbols) - len(missing),
				"missing": missing,
				"summary": sess.Portfolio.Summary(),
			}, nil
		},
	})

	r.Register(Tool{
		Name:        "import_holdings",
		Description: "Load positions from the holdings file or the broker account.",
		Params: []Param{
			{Name: "source", Type: TypeString, Description: "file or broker", Default: "file"},
			{Name: "replace", Type: TypeBoolean, Description: "Clear the portfolio first", Default: true},
		},
		Handler: func(ctx context.Context, sess *session.Session, args Args) (any, error) {
			var holdings []models.Holding
			switch source := args.String("source", "file"); source {
			case "file":
				hf, err := storage.LoadHoldings(d.HoldingsPath)
				if err != nil {
					return nil, fmt.Errorf("load holdings: %w", err)
				}
				holdings = hf.Holdings
			case "broker":
				if d.Holdings == nil {
					return nil, errors.New("no broker account configured")
				}
				h, err := d.Holdings.ListHoldings(ctx)
				if err != nil {
					return nil, fmt.Errorf("list broker holdings: %w", err)
				}
				holdings = h
			default:
				return nil, fmt.Errorf("unknown holdings source %s", source)
			}

			if args.Bool("replace", true) {
				sess.Portfolio.Clear()
			}
			for _, h := range holdings {
				sess.Portfolio.AddPosition(h.Symbol, h.Shares, h.BuyPrice, h.CurrentPrice)
			}
			return map[string]any{"imported": len(holdings), "summary": sess.Portfolio.Summary()}, nil
		},
	})

	r.Register(Tool{
		Name:        "save_holdings",
		Description: "Write the current positions to the holdings file.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			hf := models.HoldingsFile{Holdings: storage.HoldingsFromPortfolio(sess.Portfolio)}
			if err := storage.SaveHoldings(d.HoldingsPath, hf); err != nil {
				return nil, fmt.Errorf("save holdings: %w", err)
			}
			return map[string]any{"saved": len(hf.Holdings), "path": d.HoldingsPath}, nil
		},
	})
}

func registerEconomyTools(r *Registry, d Deps) {
	r.Register(Tool{
		Name:        "get_economic_indicator",
		Description: "Fetch an economic indicator (GDP, UNRATE, VIXCLS, DFF, CPI) and record it in the session context.",
		Params: []Param{
			{Name: "indicator", Type: TypeString, Description: "Indicator code", Required: true},
		},
		Handler: func(ctx context.Context, sess *session.Session, args Args) (any, error) {
			return d.Economy.GetEconomicIndicator(ctx, sess.Economy, args.String("indicator", "")), nil
		},
	})

	r.Register(Tool{
		Name:        "get_company_exposure",
		Description: "Fetch a company's macro sensitivities and record them in the session context.",
		Params: []Param{
			{Name: "company", Type: TypeString, Description: "Ticker symbol", Required: true},
		},
		Handler: func(ctx context.Context, sess *session.Session, args Args) (any, error) {
			return d.Economy.GetCompanyExposure(ctx, sess.Economy, args.String("company", "")), nil
		},
	})

	r.Register(Tool{
		Name:        "calculate_risk_score",
		Description: "Score risk factor descriptions and record the assessment.",
		Params: []Param{
			{Name: "factors", Type: TypeArray, Description: "Free-text risk factors", Required: true},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			return economy.CalculateRiskScore(sess.Economy, args.StringSlice("factors")), nil
		},
	})

	r.Register(Tool{
		Name:        "analyze_systemic_risk",
		Description: "Aggregate high-risk indicators and vulnerable companies into a systemic level.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return economy.AnalyzeSystemicRisk(sess.Economy), nil
		},
	})

	r.Register(Tool{
		Name:        "context_summary",
		Description: "Counts of what the session context has collected.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return sess.Economy.Summary(), nil
		},
	})

	r.Register(Tool{
		Name:        "get_high_risk_indicators",
		Description: "Recorded indicators rated high or critical.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return sess.Economy.HighRiskIndicators(), nil
		},
	})

	r.Register(Tool{
		Name:        "get_vulnerable_companies",
		Description: "Tickers whose exposure risk score reaches the vulnerability threshold.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return sess.Economy.VulnerableCompanies(), nil
		},
	})

	r.Register(Tool{
		Name:        "get_latest_assessment",
		Description: "The most recent risk assessment, or null.",
		Handler: func(_ context.Context, sess *session.Session, _ Args) (any, error) {
			return map[string]any{"assessment": sess.Economy.LatestAssessment()}, nil
		},
	})

	r.Register(Tool{
		Name:        "list_events",
		Description: "The session's event log, oldest first.",
		Params: []Param{
			{Name: "limit", Type: TypeInteger, Description: "Return only the most recent N events"},
		},
		Handler: func(_ context.Context, sess *session.Session, args Args) (any, error) {
			events := sess.Economy.Events()
			if limit := args.Int("limit", 0); limit > 0 && limit < len(events) {
				events = events[len(events)-limit:]
			}
			return events, nil
		},
	})
}

type financialsView struct {
	market.CompanyFinancials
	PEGRatio   *float64 `json:"peg_ratio"`
	IsHighDebt bool     `json:"is_high_debt"`
}

func registerMarketTools(r *Registry, d Deps) {
	r.Register(Tool{
		Name:        "get_company_financials",
		Description: "Headline fundamentals for AAPL, MSFT or GOOGL.",
		Params: []Param{
			{Name: "ticker", Type: TypeString, Description: "Ticker symbol", Required: true},
			{Name: "growth_rate", Type: TypeNumber, Description: "Earnings growth in percent for the PEG ratio", Default: market.DefaultGrowthRate},
		},
		Handler: func(_ context.Context, _ *session.Session, args Args) (any, error) {
			ticker := args.String("ticker", "")
			f, ok := d.Analyst.GetCompanyFinancials(ticker)
			if !ok {
				return nil, fmt.Errorf("No data for %s", ticker)
			}
			view := financialsView{CompanyFinancials: f, IsHighDebt: f.IsHighDebt()}
			if peg := f.PEGRatio(args.Float("growth_rate", market.DefaultGrowthRate)); !math.IsInf(peg, 0) {
				view.PEGRatio = &peg
			}
			return view, nil
		},
	})

	r.Register(Tool{
		Name:        "analyze_company_correlation",
		Description: "Describe how a company is exposed to an economic indicator.",
		Params: []Param{
			{Name: "ticker", Type: TypeString, Description: "Ticker symbol", Required: true},
			{Name: "indicator", Type: TypeString, Description: "DFF, VIXCLS or CPI", Required: true},
		},
		Handler: func(_ context.Context, _ *session.Session, args Args) (any, error) {
			return map[string]string{
				"analysis": d.Analyst.AnalyzeCorrelation(args.String("ticker", ""), args.String("indicator", "")),
			}, nil
		},
	})
}

// quote returns the latest price for symbol, or fallback when none is available.
func (d Deps) quote(ctx context.Context, symbol string, fallback float64) float64 {
	if d.Prices == nil {
		return fallback
	}
	quotes, err := d.Prices.LatestPrices(ctx, []string{symbol})
	if err != nil {
		return fallback
	}
	if p, ok := quotes[symbol]; ok && p > 0 {
		return p
	}
	return fallback
}
