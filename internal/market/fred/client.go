// Package fred reads the latest macro indicator values from the St. Louis Fed
// FRED observations API.
package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"risk_desk/internal/economy"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public FRED API root.
const DefaultBaseURL = "https://api.stlouisfed.org/fred"

// ErrNoObservations is returned when FRED has no usable value for a series.
var ErrNoObservations = errors.New("no observations")

// Options configures a Client.
type Options struct {
	APIKey    string
	BaseURL   string
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// Client fetches observations. Calls are rate limited and go through a
// circuit breaker so a dead upstream fails fast.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

var _ economy.IndicatorSource = (*Client)(nil)

// NewClient returns a Client. Zero options take defaults.
func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	c := &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		log:     log.With().Str("component", "fred").Logger(),
	}

	st := gobreaker.Settings{Name: "fred"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
	}
	c.breaker = gobreaker.NewCircuitBreaker(st)

	return c
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

// FetchIndicator implements economy.IndicatorSource for the series in the
// classification table. Other codes return economy.ErrUnknownIndicator.
func (c *Client) FetchIndicator(ctx context.Context, code string) (economy.EconomicIndicator, error) {
	s, ok := lookupSeries(code)
	if !ok {
		return economy.EconomicIndicator{}, fmt.Errorf("%w: %s", economy.ErrUnknownIndicator, code)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.latest(ctx, s.ID)
	})
	if err != nil {
		return economy.EconomicIndicator{}, fmt.Errorf("fred %s: %w", s.ID, err)
	}

	values := res.([]float64)
	latest := values[0]
	trend := economy.TrendStable
	if len(values) > 1 {
		trend = s.trend(latest, values[1])
	}

	return economy.EconomicIndicator{
		Name:  code,
		Value: latest,
		Unit:  s.Unit,
		Trend: trend,
		Risk:  s.classify(latest, trend),
	}, nil
}

// latest returns up to the two most recent numeric observations, newest first.
func (c *Client) latest(ctx context.Context, seriesID string) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/series/observations?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.log.Debug().Str("series", seriesID).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("observations fetched")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}

	var values []float64
	for _, o := range body.Observations {
		// FRED reports missing values as "."
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
		if len(values) == 2 {
			break
		}
	}
	if len(values) == 0 {
		return nil, ErrNoObservations
	}
	return values, nil
}
