package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"risk_desk/internal/session"
	"risk_desk/internal/tools"

	"github.com/spf13/cobra"
)

// toolStep is one scripted tool call.
type toolStep struct {
	title string
	tool  string
	args  tools.Args
}

var portfolioDemo = []toolStep{
	{"Building sample portfolio", "add_positions", tools.Args{"positions": []any{
		map[string]any{"symbol": "AAPL", "shares": 100, "buy_price": 150, "current_price": 185},
		map[string]any{"symbol": "MSFT", "shares": 50, "buy_price": 320, "current_price": 380},
		map[string]any{"symbol": "NVDA", "shares": 40, "buy_price": 450, "current_price": 850},
		map[string]any{"symbol": "GOOGL", "shares": 30, "buy_price": 130, "current_price": 145},
		map[string]any{"symbol": "JPM", "shares": 25, "buy_price": 140, "current_price": 155},
	}}},
	{"Portfolio summary", "portfolio_summary", nil},
	{"Value at Risk (95%)", "calculate_var", nil},
	{"Concentration", "assess_concentration_risk", nil},
	{"Sharpe ratio", "calculate_sharpe_ratio", nil},
	{"Stress: market crash", "stress_test", tools.Args{"scenario": "market_crash"}},
	{"Stress: recession", "stress_test", tools.Args{"scenario": "recession"}},
	{"Stress: inflation", "stress_test", tools.Args{"scenario": "inflation"}},
}

var economyDemo = []toolStep{
	{"Volatility index", "get_economic_indicator", tools.Args{"indicator": "VIXCLS"}},
	{"Fed funds rate", "get_economic_indicator", tools.Args{"indicator": "DFF"}},
	{"Consumer prices", "get_economic_indicator", tools.Args{"indicator": "CPI"}},
	{"Unemployment", "get_economic_indicator", tools.Args{"indicator": "UNRATE"}},
	{"Apple exposure", "get_company_exposure", tools.Args{"company": "AAPL"}},
	{"JPMorgan exposure", "get_company_exposure", tools.Args{"company": "JPM"}},
	{"Exxon exposure", "get_company_exposure", tools.Args{"company": "XOM"}},
	{"High-risk indicators", "get_high_risk_indicators", nil},
	{"Risk score", "calculate_risk_score", tools.Args{"factors": []any{
		"Elevated market volatility",
		"High interest rate environment",
		"Tech sector rate sensitivity",
	}}},
	{"Systemic risk", "analyze_systemic_risk", nil},
	{"Shared context", "context_summary", nil},
}

func newDemoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Scripted walkthroughs of the tool set",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "portfolio",
			Short: "Build a sample portfolio and run every risk measure",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDemo(cmd.Context(), cmd.OutOrStdout(), a.registry(), "Portfolio Risk", portfolioDemo)
			},
		},
		&cobra.Command{
			Use:   "economy",
			Short: "Gather indicators and exposures, then assess systemic risk",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDemo(cmd.Context(), cmd.OutOrStdout(), a.registry(), "Economic Risk", economyDemo)
			},
		},
	)
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, reg *tools.Registry, title string, steps []toolStep) error {
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(out, "%s\n%s Demo\n%s\n", rule, title, rule)

	sess := session.New(nil)
	for i, step := range steps {
		args := step.args
		if args == nil {
			args = tools.Args{}
		}
		fmt.Fprintf(out, "\n%d. %s (%s)\n%s\n", i+1, step.title, step.tool, strings.Repeat("-", 50))

		res := reg.Call(ctx, sess, step.tool, args)
		fmt.Fprintln(out, res.JSON())
		if !res.OK {
			return fmt.Errorf("demo step %s: %s", step.tool, res.Error)
		}
	}

	fmt.Fprintf(out, "\n%s\n%s demo completed\n%s\n", rule, title, rule)
	return nil
}
