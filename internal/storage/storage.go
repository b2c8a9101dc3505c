package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/models"
	"risk_desk/internal/portfolio"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// HoldingsVersion is the current holdings file schema.
const HoldingsVersion = "2.0"

// LoadHoldings reads a holdings file. A missing file is created as an empty
// template. Files from older schema versions are migrated and saved back.
func LoadHoldings(path string) (models.HoldingsFile, error) {
	var hf models.HoldingsFile

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("Holdings file missing, generating template")
		hf = models.HoldingsFile{Version: HoldingsVersion, Holdings: []models.Holding{}}
		if err := SaveHoldings(path, hf); err != nil {
			return hf, err
		}
		return hf, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return hf, err
	}

	if err := json.Unmarshal(b, &hf); err != nil {
		return hf, fmt.Errorf("parse holdings %s: %w", path, err)
	}

	// CHECK FOR MIGRATION
	updated, err := migrateHoldings(&hf, b)
	if err != nil {
		return hf, fmt.Errorf("migrate holdings %s: %w", path, err)
	}
	if updated {
		log.Info().Str("version", hf.Version).Str("path", path).Msg("Holdings migrated, saving")
		if err := SaveHoldings(path, hf); err != nil {
			return hf, err
		}
	}

	if hf.Holdings == nil {
		hf.Holdings = []models.Holding{}
	}
	return hf, nil
}

// legacyState is the 1.x layout: a trading state file whose positions used
// ticker/quantity/entry_price with decimal strings.
type legacyState struct {
	Positions []struct {
		Ticker     string          `json:"ticker"`
		Quantity   decimal.Decimal `json:"quantity"`
		EntryPrice decimal.Decimal `json:"entry_price"`
	} `json:"positions"`
}

// migrateHoldings handles schema evolution.
// Returns true if changes were made and the file needs to be saved.
func migrateHoldings(hf *models.HoldingsFile, raw []byte) (bool, error) {
	updated := false

	// Migration: 1.x -> 2.0 (positions[] becomes holdings[])
	if hf.Version < "2.0" {
		log.Info().Str("from", hf.Version).Msg("Migrating holdings schema to 2.0")

		var legacy legacyState
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return false, err
		}
		for _, p := range legacy.Positions {
			entry := p.EntryPrice.InexactFloat64()
			hf.Holdings = append(hf.Holdings, models.Holding{
				Symbol:   p.Ticker,
				Shares:   int(p.Quantity.IntPart()),
				BuyPrice: entry,
				// Legacy files never stored a mark; start from cost.
				CurrentPrice: entry,
			})
		}
		hf.Version = "2.0"
		updated = true
	}

	return updated, nil
}

// SaveHoldings writes the holdings file atomically and stamps UpdatedAt.
func SaveHoldings(path string, hf models.HoldingsFile) error {
	hf.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if hf.Version == "" {
		hf.Version = HoldingsVersion
	}
	return writeJSONAtomic(path, hf)
}

// HoldingsFromPortfolio converts positions to holdings in display order.
func HoldingsFromPortfolio(p *portfolio.Portfolio) []models.Holding {
	positions := p.Positions()
	out := make([]models.Holding, 0, len(positions))
	for _, pos := range positions {
		out = append(out, models.Holding{
			Symbol:       pos.Symbol,
			Shares:       pos.Shares,
			BuyPrice:     pos.BuyPrice,
			CurrentPrice: pos.CurrentPrice,
		})
	}
	return out
}

// Snapshot is an exported analysis session.
type Snapshot struct {
	SessionID  string                     `json:"session_id"`
	ExportedAt time.Time                  `json:"exported_at"`
	Portfolio  portfolio.FullSummary      `json:"portfolio"`
	Economy    economy.Summary            `json:"economy"`
	Systemic   economy.SystemicRiskResult `json:"systemic"`
	Events     []economy.Event            `json:"events"`
}

// NewSnapshot captures a session's state. The caller holds the session lock.
func NewSnapshot(id string, p *portfolio.Portfolio, ec *economy.Context, riskFreeRate, volatility float64, at time.Time) Snapshot {
	return Snapshot{
		SessionID:  id,
		ExportedAt: at.UTC(),
		Portfolio:  portfolio.NewRiskCalculator(p).PortfolioSummary(riskFreeRate, volatility),
		Economy:    ec.Summary(),
		Systemic:   economy.AnalyzeSystemicRisk(ec),
		Events:     ec.Events(),
	}
}

// SaveSnapshot writes s to path atomically, creating parent directories.
func SaveSnapshot(path string, s Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return writeJSONAtomic(path, s)
}

// writeJSONAtomic writes v using an atomic write pattern.
// 1. Write to a temporary file in the same directory.
// 2. Sync to ensure data is on disk.
// 3. Rename temporary file to destination.
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// Force sync to disk before rename
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	// Close explicitly before renaming (essential on Windows)
	f.Close()

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
