package watcher

import (
	"fmt"
	"strings"
	"time"

	"risk_desk/internal/economy"

	"github.com/dustin/go-humanize"
)

func levelIcon(level economy.SystemicLevel) string {
	switch level {
	case economy.SystemicCritical:
		return "🔴"
	case economy.SystemicElevated:
		return "🟠"
	default:
		return "🟢"
	}
}

func formatAlert(r economy.SystemicRiskResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *SYSTEMIC RISK: %s* (score %d)\n", levelIcon(r.SystemicLevel), r.SystemicLevel, r.SystemicScore))
	if len(r.HighRiskIndicators) > 0 {
		sb.WriteString(fmt.Sprintf("High-risk indicators: %s\n", strings.Join(r.HighRiskIndicators, ", ")))
	}
	if len(r.VulnerableCompanies) > 0 {
		sb.WriteString(fmt.Sprintf("Vulnerable companies: %s\n", strings.Join(r.VulnerableCompanies, ", ")))
	}
	sb.WriteString("Actions:\n")
	for _, a := range r.RecommendedActions {
		sb.WriteString(fmt.Sprintf("• %s\n", a))
	}
	return sb.String()
}

// getStatus renders the dashboard for /status.
func (w *Watcher) getStatus() string {
	w.mu.Lock()
	last := w.lastResult
	lastPoll := w.lastPoll
	w.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("📊 *RISK DESK STATUS*\n")
	sb.WriteString(fmt.Sprintf("Uptime: %s\n", w.now().Sub(w.startTime).Round(time.Second)))

	if last == nil {
		sb.WriteString("No poll completed yet.\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Last check: %s\n", humanize.RelTime(lastPoll, w.now(), "ago", "from now")))
	sb.WriteString(fmt.Sprintf("%s Level: %s (score %d)\n", levelIcon(last.SystemicLevel), last.SystemicLevel, last.SystemicScore))

	w.session.Lock()
	indicators := w.session.Economy.Indicators()
	summary := w.session.Portfolio.Summary()
	w.session.Unlock()

	if len(indicators) > 0 {
		sb.WriteString("\n*Indicators*\n")
		for _, ind := range indicators {
			sb.WriteString(fmt.Sprintf("• %s: %s %s (%s, %s)\n",
				ind.Name, humanize.FormatFloat("#,###.##", ind.Value), ind.Unit, ind.Trend, ind.Risk))
		}
	}

	if summary.PositionCount > 0 {
		sb.WriteString("\n*Portfolio*\n")
		sb.WriteString(fmt.Sprintf("Value: $%s | P/L: $%s (%.2f%%)\n",
			humanize.FormatFloat("#,###.##", summary.TotalValue),
			humanize.FormatFloat("#,###.##", summary.TotalPnL),
			summary.TotalReturnPct))
	}
	return sb.String()
}
