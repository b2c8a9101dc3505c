// Package portfolio holds positions and the risk calculators that run over them.
package portfolio

import "github.com/shopspring/decimal"

// Position represents a single holding.
//
// Positions are values: the portfolio never mutates one in place, it replaces or
// removes it.
type Position struct {
	Symbol       string  `json:"symbol"`
	Shares       int     `json:"shares"`
	BuyPrice     float64 `json:"buy_price"`
	CurrentPrice float64 `json:"current_price"`
}

// PositionSummary is the serializable view of a Position.
type PositionSummary struct {
	Symbol       string  `json:"symbol"`
	Shares       int     `json:"shares"`
	BuyPrice     float64 `json:"buy_price"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
	ReturnPct    float64 `json:"return_pct"`
}

// Value is the current market value of the position.
func (p Position) Value() float64 {
	return float64(p.Shares) * p.CurrentPrice
}

// CostBasis is what was paid for the position.
func (p Position) CostBasis() float64 {
	return float64(p.Shares) * p.BuyPrice
}

// PnL is the unrealized profit or loss.
func (p Position) PnL() float64 {
	return p.Value() - p.CostBasis()
}

// ReturnPct is the price return in percent. A zero buy price yields 0.
func (p Position) ReturnPct() float64 {
	if p.BuyPrice == 0 {
		return 0
	}
	return ((p.CurrentPrice / p.BuyPrice) - 1) * 100
}

// Summary returns the rounded, serializable view.
func (p Position) Summary() PositionSummary {
	return PositionSummary{
		Symbol:       p.Symbol,
		Shares:       p.Shares,
		BuyPrice:     p.BuyPrice,
		CurrentPrice: p.CurrentPrice,
		Value:        round2(p.Value()),
		PnL:          round2(p.PnL()),
		ReturnPct:    round2(p.ReturnPct()),
	}
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
