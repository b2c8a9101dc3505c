package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/models"
	"risk_desk/internal/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHoldings(t *testing.T) {
	// 1. Create legacy trading state (v1.3)
	path := filepath.Join(t.TempDir(), "holdings.json")
	legacyJSON := `{
		"version": "1.3",
		"positions": [
			{
				"ticker": "AAPL",
				"entry_price": "150.00",
				"quantity": "10",
				"status": "ACTIVE"
			},
			{
				"ticker": "MSFT",
				"entry_price": "300.50",
				"quantity": "2.7"
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacyJSON), 0644))

	// 2. Load (triggers migration)
	hf, err := LoadHoldings(path)
	require.NoError(t, err)

	// 3. Verify upgrade
	assert.Equal(t, HoldingsVersion, hf.Version)
	require.Len(t, hf.Holdings, 2)
	assert.Equal(t, models.Holding{Symbol: "AAPL", Shares: 10, BuyPrice: 150, CurrentPrice: 150}, hf.Holdings[0])
	assert.Equal(t, 2, hf.Holdings[1].Shares)

	// 4. Verify persistence
	hf2, err := LoadHoldings(path)
	require.NoError(t, err)
	assert.Equal(t, HoldingsVersion, hf2.Version)
	assert.Equal(t, hf.Holdings, hf2.Holdings)
	assert.NotEmpty(t, hf2.UpdatedAt)
}

func TestLoadHoldings_MissingCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.json")

	hf, err := LoadHoldings(path)
	require.NoError(t, err)
	assert.Equal(t, HoldingsVersion, hf.Version)
	assert.Empty(t, hf.Holdings)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadHoldings_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadHoldings(path)
	assert.Error(t, err)
}

func TestSaveHoldings_RoundTripFromPortfolio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.json")
	p := portfolio.New()
	p.AddPosition("AAPL", 100, 150, 185)
	p.AddPosition("AAPL", 5, 190, 185)

	require.NoError(t, SaveHoldings(path, models.HoldingsFile{Holdings: HoldingsFromPortfolio(p)}))

	hf, err := LoadHoldings(path)
	require.NoError(t, err)
	require.Len(t, hf.Holdings, 2)
	assert.Equal(t, 5, hf.Holdings[1].Shares)
}

func TestSaveSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "session.json")

	ec := economy.NewContext()
	ec.AddIndicator(economy.EconomicIndicator{Name: "VIXCLS", Value: 35.2, Risk: economy.RiskHigh})
	p := portfolio.New()
	p.AddPosition("AAPL", 100, 150, 185)

	snap := NewSnapshot("abc", p, ec, 0.04, 0.02, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, economy.SystemicNormal, snap.Systemic.SystemicLevel)
	require.NoError(t, SaveSnapshot(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["session_id"])
	assert.Len(t, decoded["events"], 1)
	assert.Equal(t, 18500.0, decoded["portfolio"].(map[string]any)["total_value"])
}
