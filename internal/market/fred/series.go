package fred

import (
	"strings"

	"risk_desk/internal/economy"
)

// series describes how to read one FRED series as an indicator.
type series struct {
	ID   string
	Unit string

	// growthLabel is the trend used when the value went up.
	growthLabel economy.Trend
	// high and medium are inclusive risk thresholds on the value. Zero
	// thresholds mean the series is rated on its trend instead.
	high, medium float64
	// fallingRisk is the rating for a series rated on trend that went down.
	fallingRisk economy.RiskLevel
	// risingRisk is the rating for a series rated on trend that went up.
	risingRisk economy.RiskLevel
}

var seriesTable = map[string]series{
	"GDP":      {ID: "GDP", Unit: "Billions of Dollars", growthLabel: economy.TrendGrowing, fallingRisk: economy.RiskHigh, risingRisk: economy.RiskLow},
	"UNRATE":   {ID: "UNRATE", Unit: "Percent", growthLabel: economy.TrendRising, high: 6, medium: 4.5},
	"VIXCLS":   {ID: "VIXCLS", Unit: "Index", growthLabel: economy.TrendElevated, high: 30, medium: 20},
	"DFF":      {ID: "DFF", Unit: "Percent", growthLabel: economy.TrendRising, high: 6, medium: 4},
	"CPIAUCSL": {ID: "CPIAUCSL", Unit: "Index", growthLabel: economy.TrendRising, fallingRisk: economy.RiskLow, risingRisk: economy.RiskMedium},
}

// aliases maps short codes to FRED series IDs.
var aliases = map[string]string{
	"CPI": "CPIAUCSL",
}

func lookupSeries(code string) (series, bool) {
	code = strings.ToUpper(code)
	if id, ok := aliases[code]; ok {
		code = id
	}
	s, ok := seriesTable[code]
	return s, ok
}

func (s series) trend(latest, previous float64) economy.Trend {
	switch {
	case latest > previous:
		return s.growthLabel
	case latest < previous:
		return economy.TrendFalling
	default:
		return economy.TrendStable
	}
}

func (s series) classify(value float64, trend economy.Trend) economy.RiskLevel {
	if s.high == 0 && s.medium == 0 {
		if trend == economy.TrendFalling {
			return s.fallingRisk
		}
		if trend == s.growthLabel {
			return s.risingRisk
		}
		return economy.RiskLow
	}

	switch {
	case value >= s.high:
		return economy.RiskHigh
	case value >= s.medium:
		return economy.RiskMedium
	default:
		return economy.RiskLow
	}
}
