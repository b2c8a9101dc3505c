package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/telegram"
	"risk_desk/internal/tools"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves whatever the test puts in its maps.
type stubSource struct {
	mu         sync.Mutex
	indicators map[string]economy.EconomicIndicator
	exposures  map[string]economy.CompanyExposure
}

func (s *stubSource) FetchIndicator(_ context.Context, code string) (economy.EconomicIndicator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ind, ok := s.indicators[code]
	if !ok {
		return economy.EconomicIndicator{}, fmt.Errorf("%w: %s", economy.ErrUnknownIndicator, code)
	}
	return ind, nil
}

func (s *stubSource) FetchExposure(_ context.Context, ticker string) (economy.CompanyExposure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exposures[ticker]
	if !ok {
		return economy.CompanyExposure{}, fmt.Errorf("%w: %s", economy.ErrUnknownCompany, ticker)
	}
	e.Ticker = ticker
	return e, nil
}

func (s *stubSource) setRisk(code string, risk economy.RiskLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ind := s.indicators[code]
	ind.Risk = risk
	s.indicators[code] = ind
}

type mockNotifier struct {
	messages []string
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, text string) error {
	m.messages = append(m.messages, text)
	return m.err
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestWatcher(t *testing.T, level economy.SystemicLevel) (*Watcher, *stubSource, *mockNotifier, *testClock) {
	t.Helper()
	src := &stubSource{
		indicators: map[string]economy.EconomicIndicator{
			"VIXCLS": {Value: 35.2, Unit: "Index", Trend: economy.TrendElevated, Risk: economy.RiskHigh},
			"DFF":    {Value: 5.33, Unit: "Percent", Trend: economy.TrendHigh, Risk: economy.RiskMedium},
			"UNRATE": {Value: 3.7, Unit: "Percent", Trend: economy.TrendStable, Risk: economy.RiskLow},
		},
		exposures: map[string]economy.CompanyExposure{
			"AAPL": {
				InterestRateSensitivity: economy.SensitivityHigh,
				VolatilitySensitivity:   economy.SensitivityHigh,
				DebtToEquity:            1.95,
			},
		},
	}
	notifier := &mockNotifier{}
	clock := &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	w := New(Options{
		Provider:   economy.NewProvider(src, src),
		Notifier:   notifier,
		Indicators: []string{"VIXCLS", "DFF", "UNRATE", "NOPE"},
		Companies:  []string{"AAPL"},
		AlertLevel: level,
		Version:    "test",
		Now:        clock.Now,
	}, zerolog.Nop())
	return w, src, notifier, clock
}

func TestPoll_BelowThresholdIsQuiet(t *testing.T) {
	w, _, notifier, _ := newTestWatcher(t, economy.SystemicElevated)

	// VIXCLS high (2) + AAPL vulnerable (1) = 3
	res := w.Poll(context.Background())
	assert.Equal(t, economy.SystemicNormal, res.SystemicLevel)
	assert.Equal(t, 3, res.SystemicScore)
	assert.Empty(t, notifier.messages)

	w.Session().Lock()
	defer w.Session().Unlock()
	assert.Len(t, w.Session().Economy.Indicators(), 3)
}

func TestPoll_AlertsAndSuppresses(t *testing.T) {
	w, src, notifier, clock := newTestWatcher(t, economy.SystemicElevated)
	ctx := context.Background()

	// 1. DFF turns high: score 5 -> ELEVATED
	src.setRisk("DFF", economy.RiskHigh)
	res := w.Poll(ctx)
	require.Equal(t, economy.SystemicElevated, res.SystemicLevel)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "SYSTEMIC RISK: ELEVATED")
	assert.Contains(t, notifier.messages[0], "DFF, VIXCLS")

	// 2. Same level inside the window stays quiet
	clock.now = clock.now.Add(10 * time.Minute)
	w.Poll(ctx)
	assert.Len(t, notifier.messages, 1)

	// 3. A different level alerts immediately
	src.setRisk("UNRATE", economy.RiskCritical)
	res = w.Poll(ctx)
	require.Equal(t, economy.SystemicCritical, res.SystemicLevel)
	require.Len(t, notifier.messages, 2)
	assert.Contains(t, notifier.messages[1], "CRITICAL")

	// 4. Back to ELEVATED after the window has passed re-alerts
	src.setRisk("UNRATE", economy.RiskLow)
	clock.now = clock.now.Add(DefaultSuppressWindow)
	w.Poll(ctx)
	assert.Len(t, notifier.messages, 3)
}

func TestPoll_NotifierErrorDoesNotStopPolling(t *testing.T) {
	w, _, notifier, clock := newTestWatcher(t, economy.SystemicNormal)
	notifier.err = errors.New("telegram down")

	w.Poll(context.Background())
	clock.now = clock.now.Add(time.Hour)
	w.Poll(context.Background())
	assert.Len(t, notifier.messages, 2)
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, economy.SystemicCritical)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandleCommand(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, economy.SystemicCritical)
	ctx := context.Background()

	assert.Equal(t, "Pong 🏓", w.HandleCommand(ctx, "/ping"))
	assert.Contains(t, w.HandleCommand(ctx, "/status"), "No poll completed yet")
	assert.Contains(t, w.HandleCommand(ctx, "/nope"), "Unknown command")

	out := w.HandleCommand(ctx, "/check")
	assert.Contains(t, out, "SYSTEMIC RISK: NORMAL")

	status := w.HandleCommand(ctx, "/status")
	assert.Contains(t, status, "Level: NORMAL (score 3)")
	assert.Contains(t, status, "VIXCLS: 35.20 Index (elevated, high)")
}

func TestHandleCommand_DelegatesToRegistry(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, economy.SystemicCritical)
	w.registry = tools.NewDefaultRegistry(tools.Deps{Volatility: 0.02, RiskFreeRate: 0.04}, nil)
	ctx := context.Background()

	out := w.HandleCommand(ctx, "/add_position symbol=AAPL shares=10 buy_price=150 current_price=185")
	assert.Contains(t, out, `"ok": true`)
	assert.Equal(t, 1, w.Session().Portfolio.Len())

	assert.Contains(t, w.HandleCommand(ctx, "/tools"), "/stress_test")
	assert.Contains(t, w.HandleCommand(ctx, "/help"), "/stress_test scenario=recession")

	w.HandleCommand(ctx, "/check")
	assert.Contains(t, w.HandleCommand(ctx, "/status"), "Value: $1,850")
}

func TestHandleCommand_ToolRepliesSurviveMarkdown(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, economy.SystemicCritical)
	w.registry = tools.NewDefaultRegistry(tools.Deps{Volatility: 0.02, RiskFreeRate: 0.04}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.HandleCommand(ctx, "/add_position symbol=AAPL shares=10 buy_price=150 current_price=185")

	var polls atomic.Int32
	sent := make(chan map[string]string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				rw.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"text":"/get_position symbol=AAPL","chat":{"id":42}}}]}`))
				return
			}
			rw.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			sent <- body
			rw.Write([]byte(`{"ok":true,"result":{}}`))
		}
	}))
	defer ts.Close()

	tg, err := telegram.NewClient(telegram.Options{Token: "TOKEN", ChatID: "42", BaseURL: ts.URL}, zerolog.Nop())
	require.NoError(t, err)
	go tg.Listen(ctx, w.HandleCommand)

	select {
	case body := <-sent:
		text := body["text"]
		assert.Equal(t, "Markdown", body["parse_mode"])
		// buy_price, current_price and return_pct leave an odd underscore count
		assert.Equal(t, 1, strings.Count(text, "_")%2)
		assert.True(t, strings.HasPrefix(text, "```\n"), text)
		assert.True(t, strings.HasSuffix(text, "\n```"), text)
		assert.Contains(t, text, `"current_price": 185`)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
}

func TestCodeBlock(t *testing.T) {
	assert.Equal(t, "", codeBlock(""))
	assert.Equal(t, "```\n{\"buy_price\": 1}\n```", codeBlock(`{"buy_price": 1}`))
	assert.Equal(t, "```\na '''b\n```", codeBlock("a ```b"))
}
