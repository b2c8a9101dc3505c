package portfolio

import "maps"

// Concentration describes how portfolio value is spread across symbols.
type Concentration struct {
	Max       float64            `json:"max"`
	Symbol    string             `json:"symbol"`
	Value     float64            `json:"value"`
	Positions map[string]float64 `json:"positions"`
}

// Summary is the serializable snapshot of a Portfolio.
type Summary struct {
	TotalValue           float64           `json:"total_value"`
	TotalCostBasis       float64           `json:"total_cost_basis"`
	TotalPnL             float64           `json:"total_pnl"`
	TotalReturnPct       float64           `json:"total_return_pct"`
	PositionCount        int               `json:"position_count"`
	DiversificationScore float64           `json:"diversification_score"`
	Positions            []PositionSummary `json:"positions"`
}

// Portfolio is an ordered collection of positions.
//
// Insertion order is display order. Duplicate symbols are kept as separate
// positions. Portfolio is not safe for concurrent use; one analysis session
// owns it.
type Portfolio struct {
	positions []Position

	// concentration is derived state; every mutation clears it.
	concentration *Concentration
}

// New returns an empty portfolio.
func New() *Portfolio {
	return &Portfolio{}
}

// AddPosition appends a position and returns it.
func (p *Portfolio) AddPosition(symbol string, shares int, buyPrice, currentPrice float64) Position {
	pos := Position{
		Symbol:       symbol,
		Shares:       shares,
		BuyPrice:     buyPrice,
		CurrentPrice: currentPrice,
	}
	p.positions = append(p.positions, pos)
	p.invalidate()
	return pos
}

// RemovePosition drops every position with the given symbol.
// It reports whether anything was removed.
func (p *Portfolio) RemovePosition(symbol string) bool {
	kept := p.positions[:0:0]
	for _, pos := range p.positions {
		if pos.Symbol != symbol {
			kept = append(kept, pos)
		}
	}
	removed := len(kept) < len(p.positions)
	p.positions = kept
	p.invalidate()
	return removed
}

// GetPosition returns the first position with the given symbol.
func (p *Portfolio) GetPosition(symbol string) (Position, bool) {
	for _, pos := range p.positions {
		if pos.Symbol == symbol {
			return pos, true
		}
	}
	return Position{}, false
}

// Positions returns a copy of the positions in insertion order.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Len returns the number of positions.
func (p *Portfolio) Len() int {
	return len(p.positions)
}

// Clear removes all positions.
func (p *Portfolio) Clear() {
	p.positions = nil
	p.invalidate()
}

func (p *Portfolio) invalidate() {
	p.concentration = nil
}

// TotalValue is the sum of position values.
func (p *Portfolio) TotalValue() float64 {
	total := 0.0
	for _, pos := range p.positions {
		total += pos.Value()
	}
	return total
}

// TotalCostBasis is the sum of position cost bases.
func (p *Portfolio) TotalCostBasis() float64 {
	total := 0.0
	for _, pos := range p.positions {
		total += pos.CostBasis()
	}
	return total
}

// TotalPnL is the sum of position P&L.
func (p *Portfolio) TotalPnL() float64 {
	total := 0.0
	for _, pos := range p.positions {
		total += pos.PnL()
	}
	return total
}

// TotalReturnPct is the aggregate return in percent, 0 when nothing was paid.
func (p *Portfolio) TotalReturnPct() float64 {
	cost := p.TotalCostBasis()
	if cost == 0 {
		return 0
	}
	return ((p.TotalValue() / cost) - 1) * 100
}

// Concentration returns each symbol's share of total value and the largest
// single position. A later duplicate symbol overwrites an earlier one in the
// Positions map. Ties for the largest position go to the first one added.
func (p *Portfolio) Concentration() Concentration {
	if p.concentration == nil {
		c := p.computeConcentration()
		p.concentration = &c
	}
	out := *p.concentration
	out.Positions = maps.Clone(p.concentration.Positions)
	return out
}

func (p *Portfolio) computeConcentration() Concentration {
	total := p.TotalValue()
	if len(p.positions) == 0 || total == 0 {
		return Concentration{Positions: map[string]float64{}}
	}

	largest := p.positions[0]
	weights := make(map[string]float64, len(p.positions))
	for _, pos := range p.positions {
		if pos.Value() > largest.Value() {
			largest = pos
		}
		weights[pos.Symbol] = round2(pos.Value() / total * 100)
	}

	return Concentration{
		Max:       round2(largest.Value() / total * 100),
		Symbol:    largest.Symbol,
		Value:     round2(largest.Value()),
		Positions: weights,
	}
}

// DiversificationScore rates how close the largest holding sits to the
// equal-weight ideal, from 0 to 100. Over- and under-shooting the ideal are
// penalized the same way.
func (p *Portfolio) DiversificationScore() float64 {
	n := len(p.positions)
	if n <= 1 {
		return 0
	}

	ideal := 100 / float64(n)
	deviation := p.Concentration().Max - ideal
	if deviation < 0 {
		deviation = -deviation
	}

	score := 100 - deviation*2
	if score < 0 {
		score = 0
	}
	return round2(score)
}

// Summary returns totals and per-position detail.
func (p *Portfolio) Summary() Summary {
	positions := make([]PositionSummary, 0, len(p.positions))
	for _, pos := range p.positions {
		positions = append(positions, pos.Summary())
	}

	return Summary{
		TotalValue:           round2(p.TotalValue()),
		TotalCostBasis:       round2(p.TotalCostBasis()),
		TotalPnL:             round2(p.TotalPnL()),
		TotalReturnPct:       round2(p.TotalReturnPct()),
		PositionCount:        len(p.positions),
		DiversificationScore: p.DiversificationScore(),
		Positions:            positions,
	}
}

// Revalue returns a new portfolio with current prices replaced from quotes.
// Symbols without a quote keep their price. The receiver is left untouched.
func (p *Portfolio) Revalue(quotes map[string]float64) *Portfolio {
	next := New()
	for _, pos := range p.positions {
		price := pos.CurrentPrice
		if q, ok := quotes[pos.Symbol]; ok {
			price = q
		}
		next.AddPosition(pos.Symbol, pos.Shares, pos.BuyPrice, price)
	}
	return next
}

// Symbols returns the distinct symbols in insertion order.
func (p *Portfolio) Symbols() []string {
	seen := make(map[string]bool, len(p.positions))
	var out []string
	for _, pos := range p.positions {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			out = append(out, pos.Symbol)
		}
	}
	return out
}
