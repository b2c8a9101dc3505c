package market

import (
	"context"
	"strings"
	"sync"

	"risk_desk/internal/models"
)

// PriceProvider is an Interface.
// Anything that can quote the latest price for a set of symbols satisfies it,
// so the broker adapter, a fixed table, or a test mock are interchangeable.
type PriceProvider interface {
	// LatestPrices returns a price per symbol it could quote. Symbols it could
	// not quote are simply absent from the map.
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// HoldingsProvider lists the positions held in an external account.
type HoldingsProvider interface {
	ListHoldings(ctx context.Context) ([]models.Holding, error)
}

// StaticProvider serves prices from an in-memory table.
// It is the default price source when no broker is configured.
type StaticProvider struct {
	mu     sync.RWMutex
	prices map[string]float64
}

var _ PriceProvider = (*StaticProvider)(nil)

// NewStaticProvider copies prices into a new provider. Keys are uppercased.
func NewStaticProvider(prices map[string]float64) *StaticProvider {
	p := &StaticProvider{prices: make(map[string]float64, len(prices))}
	for sym, px := range prices {
		p.prices[strings.ToUpper(sym)] = px
	}
	return p
}

// DefaultPrices is the quote table used by the demo and the static source.
func DefaultPrices() map[string]float64 {
	return map[string]float64{
		"AAPL":  185.00,
		"MSFT":  420.00,
		"GOOGL": 140.00,
		"NVDA":  880.00,
		"JPM":   195.00,
		"XOM":   112.00,
		"TSLA":  175.00,
	}
}

// Set updates or adds a quote.
func (p *StaticProvider) Set(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[strings.ToUpper(symbol)] = price
}

// LatestPrices implements PriceProvider.
func (p *StaticProvider) LatestPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if px, ok := p.prices[strings.ToUpper(sym)]; ok {
			out[sym] = px
		}
	}
	return out, nil
}
