package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/session"
	"risk_desk/internal/tools"

	"github.com/rs/zerolog"
)

// DefaultSuppressWindow is how long an alert at one level stays quiet.
const DefaultSuppressWindow = 15 * time.Minute

// Notifier delivers alert text.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Options configures a Watcher.
type Options struct {
	Provider   *economy.Provider
	Notifier   Notifier
	Registry   *tools.Registry // optional; enables tool commands
	Indicators []string
	Companies  []string
	AlertLevel economy.SystemicLevel
	Suppress   time.Duration
	Interval   time.Duration
	Version    string
	Now        func() time.Time
}

// Watcher polls economic data into its own session and alerts when
// systemic risk reaches the configured level.
type Watcher struct {
	provider   *economy.Provider
	notifier   Notifier
	registry   *tools.Registry
	session    *session.Session
	indicators []string
	companies  []string
	threshold  economy.SystemicLevel
	suppress   time.Duration
	interval   time.Duration
	version    string
	now        func() time.Time
	startTime  time.Time
	log        zerolog.Logger

	mu         sync.Mutex
	lastAlerts map[economy.SystemicLevel]time.Time // alert fatigue guard
	lastResult *economy.SystemicRiskResult
	lastPoll   time.Time
}

// New builds a watcher. A zero Suppress uses DefaultSuppressWindow.
func New(opts Options, log zerolog.Logger) *Watcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Suppress <= 0 {
		opts.Suppress = DefaultSuppressWindow
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.AlertLevel == "" {
		opts.AlertLevel = economy.SystemicElevated
	}

	return &Watcher{
		provider:   opts.Provider,
		notifier:   opts.Notifier,
		registry:   opts.Registry,
		session:    session.New(opts.Now),
		indicators: opts.Indicators,
		companies:  opts.Companies,
		threshold:  opts.AlertLevel,
		suppress:   opts.Suppress,
		interval:   opts.Interval,
		version:    opts.Version,
		now:        opts.Now,
		startTime:  opts.Now(),
		log:        log.With().Str("component", "watcher").Logger(),
		lastAlerts: make(map[economy.SystemicLevel]time.Time),
	}
}

// Session returns the session the watcher records into.
func (w *Watcher) Session() *session.Session {
	return w.session
}

// Poll refreshes every configured indicator and company, grades systemic
// risk and sends an alert when warranted.
func (w *Watcher) Poll(ctx context.Context) economy.SystemicRiskResult {
	// 1. Refresh data into the session
	w.session.Lock()
	for _, code := range w.indicators {
		data := w.provider.GetEconomicIndicator(ctx, w.session.Economy, code)
		if data.Unit == "Unknown" {
			w.log.Warn().Str("indicator", code).Msg("Indicator unavailable")
		}
	}
	for _, ticker := range w.companies {
		w.provider.GetCompanyExposure(ctx, w.session.Economy, ticker)
	}
	result := economy.AnalyzeSystemicRisk(w.session.Economy)
	w.session.Unlock()

	w.log.Info().
		Str("level", string(result.SystemicLevel)).
		Int("score", result.SystemicScore).
		Strs("high_risk", result.HighRiskIndicators).
		Strs("vulnerable", result.VulnerableCompanies).
		Msg("Systemic risk checked")

	// 2. Alert decision
	now := w.now()
	w.mu.Lock()
	w.lastResult = &result
	w.lastPoll = now
	send := w.shouldAlertLocked(result.SystemicLevel, now)
	if send {
		w.lastAlerts[result.SystemicLevel] = now
	}
	w.mu.Unlock()

	if send {
		if err := w.notify(ctx, formatAlert(result)); err != nil {
			w.log.Error().Err(err).Msg("Alert delivery failed")
		}
	}
	return result
}

// shouldAlertLocked applies the threshold and the suppression window.
func (w *Watcher) shouldAlertLocked(level economy.SystemicLevel, now time.Time) bool {
	if level.Rank() < w.threshold.Rank() {
		return false
	}
	last, seen := w.lastAlerts[level]
	return !seen || now.Sub(last) >= w.suppress
}

// Run polls once immediately and then every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Watch loop stopping")
			return
		case <-ticker.C:
			w.log.Debug().Time("next", w.now().Add(w.interval)).Msg("Next check scheduled")
			w.Poll(ctx)
		}
	}
}

// SendStartupNotification announces the watcher and its settings.
func (w *Watcher) SendStartupNotification(ctx context.Context) {
	msg := fmt.Sprintf("🚀 *SYSTEM START: Risk Desk %s online*\nWatching %d indicators, %d companies\nAlert level: %s | Interval: %s",
		w.version, len(w.indicators), len(w.companies), w.threshold, w.interval)
	if err := w.notify(ctx, msg); err != nil {
		w.log.Warn().Err(err).Msg("Startup notification failed")
	}
}

// SendShutdownNotification announces a clean stop.
func (w *Watcher) SendShutdownNotification(ctx context.Context) {
	if err := w.notify(ctx, "🛑 SYSTEM SHUTDOWN: Signal received. Watcher stopped."); err != nil {
		w.log.Warn().Err(err).Msg("Shutdown notification failed")
	}
}

func (w *Watcher) notify(ctx context.Context, text string) error {
	if w.notifier == nil {
		w.log.Info().Str("text", text).Msg("Notification (no notifier configured)")
		return nil
	}
	return w.notifier.Notify(ctx, text)
}
