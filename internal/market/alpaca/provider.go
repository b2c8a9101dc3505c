package alpaca

import (
	"context"
	"fmt"

	"risk_desk/internal/market"
	"risk_desk/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options carries the broker credentials. Empty fields fall back to the
// SDK's own APCA_* environment lookup.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// Provider implements the market price and holdings interfaces for Alpaca.
type Provider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
	log         zerolog.Logger
}

// Ensure Provider implements the interfaces
var (
	_ market.PriceProvider    = (*Provider)(nil)
	_ market.HoldingsProvider = (*Provider)(nil)
)

// NewProvider returns a new Alpaca provider.
func NewProvider(opts Options, log zerolog.Logger) *Provider {
	return &Provider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
		}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		log: log.With().Str("component", "alpaca").Logger(),
	}
}

// --- Market Data ---

// LatestPrices quotes each symbol's last trade. A symbol that fails is
// logged and left out; the call only fails when nothing could be priced.
func (p *Provider) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	var lastErr error

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		trade, err := p.mdClient.GetLatestTrade(sym, marketdata.GetLatestTradeRequest{})
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", sym).Msg("latest trade failed")
			lastErr = err
			continue
		}
		if trade == nil {
			continue
		}
		out[sym] = trade.Price
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("alpaca latest trades: %w", lastErr)
	}
	return out, nil
}

// --- Account ---

// ListHoldings maps the broker's open positions to holdings. Fractional
// quantities are truncated to whole shares.
func (p *Provider) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alpacaPositions, err := p.tradeClient.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca positions: %w", err)
	}

	result := make([]models.Holding, 0, len(alpacaPositions))
	for _, x := range alpacaPositions {
		// CurrentPrice is a pointer in SDK v3; Qty and AvgEntryPrice are values.
		current := decimal.Zero
		if x.CurrentPrice != nil {
			current = *x.CurrentPrice
		}

		result = append(result, models.Holding{
			Symbol:       x.Symbol,
			Shares:       int(x.Qty.IntPart()),
			BuyPrice:     x.AvgEntryPrice.InexactFloat64(),
			CurrentPrice: current.InexactFloat64(),
		})
	}
	return result, nil
}
