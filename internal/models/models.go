package models

// Holding is a position as it arrives from outside the process: a holdings
// file on disk or a broker account.
//
// The struct tags map to the current holdings file schema. Older files used
// ticker/quantity/entry_price; storage migrates those on load.
type Holding struct {
	Symbol       string  `json:"symbol"`        // The stock symbol (e.g., "AAPL")
	Shares       int     `json:"shares"`        // Whole shares held
	BuyPrice     float64 `json:"buy_price"`     // Average price paid per share
	CurrentPrice float64 `json:"current_price"` // Last known price, 0 if never priced
}

// HoldingsFile is the on-disk holdings document.
type HoldingsFile struct {
	Version   string    `json:"version"`    // Schema version for migrations
	UpdatedAt string    `json:"updated_at"` // RFC3339 time of last save
	Holdings  []Holding `json:"holdings"`
}
