package economy

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventType tags entries in the context's audit log.
type EventType string

const (
	EventIndicatorAdded EventType = "indicator_added"
	EventExposureAdded  EventType = "exposure_added"
	EventRiskAssessed   EventType = "risk_assessed"
)

// Event is one audit log entry. Data is a JSON snapshot of the payload at the
// moment it was recorded.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Summary is the counted view of a Context.
type Summary struct {
	IndicatorsCollected int        `json:"indicators_collected"`
	CompaniesAnalyzed   int        `json:"companies_analyzed"`
	RiskAssessments     int        `json:"risk_assessments"`
	HighRiskIndicators  int        `json:"high_risk_indicators"`
	VulnerableCompanies []string   `json:"vulnerable_companies"`
	LatestRiskLevel     *RiskLevel `json:"latest_risk_level"`
	EventsLogged        int        `json:"events_logged"`
}

// Context accumulates indicators, exposures and assessments for one analysis
// session. It is not safe for concurrent use and must be passed explicitly to
// whatever reads or writes it.
type Context struct {
	indicators  map[string]EconomicIndicator
	exposures   map[string]CompanyExposure
	assessments []RiskAssessment
	events      []Event

	now func() time.Time
}

// Option configures a Context.
type Option func(*Context)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		c.now = now
	}
}

// NewContext returns an empty Context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		indicators: make(map[string]EconomicIndicator),
		exposures:  make(map[string]CompanyExposure),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the context's current time.
func (c *Context) Now() time.Time {
	return c.now()
}

// AddIndicator stores ind by name, replacing any earlier reading.
func (c *Context) AddIndicator(ind EconomicIndicator) {
	if ind.Timestamp.IsZero() {
		ind.Timestamp = c.now()
	}
	c.indicators[ind.Name] = ind
	c.logEvent(EventIndicatorAdded, ind)
}

// AddCompanyExposure stores e by ticker, replacing any earlier profile.
func (c *Context) AddCompanyExposure(e CompanyExposure) {
	c.exposures[e.Ticker] = e
	c.logEvent(EventExposureAdded, e)
}

// AddRiskAssessment appends a to the assessment history.
func (c *Context) AddRiskAssessment(a RiskAssessment) {
	if a.Timestamp.IsZero() {
		a.Timestamp = c.now()
	}
	a.RiskFactors = slices.Clone(a.RiskFactors)
	a.AffectedCompanies = slices.Clone(a.AffectedCompanies)
	a.Recommendations = slices.Clone(a.Recommendations)
	c.assessments = append(c.assessments, a)
	c.logEvent(EventRiskAssessed, a)
}

func (c *Context) logEvent(t EventType, payload any) {
	// Payloads are plain structs of strings, numbers and times.
	data, _ := json.Marshal(payload)
	c.events = append(c.events, Event{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: c.now(),
	})
}

// Indicator returns the stored reading for name.
func (c *Context) Indicator(name string) (EconomicIndicator, bool) {
	ind, ok := c.indicators[name]
	return ind, ok
}

// Indicators returns all readings sorted by name.
func (c *Context) Indicators() []EconomicIndicator {
	out := make([]EconomicIndicator, 0, len(c.indicators))
	for _, name := range slices.Sorted(maps.Keys(c.indicators)) {
		out = append(out, c.indicators[name])
	}
	return out
}

// Exposure returns the stored profile for ticker.
func (c *Context) Exposure(ticker string) (CompanyExposure, bool) {
	e, ok := c.exposures[ticker]
	return e, ok
}

// Exposures returns all profiles sorted by ticker.
func (c *Context) Exposures() []CompanyExposure {
	out := make([]CompanyExposure, 0, len(c.exposures))
	for _, t := range slices.Sorted(maps.Keys(c.exposures)) {
		out = append(out, c.exposures[t])
	}
	return out
}

// Assessments returns the assessment history, oldest first.
func (c *Context) Assessments() []RiskAssessment {
	return slices.Clone(c.assessments)
}

// Events returns the audit log, oldest first.
func (c *Context) Events() []Event {
	return slices.Clone(c.events)
}

// HighRiskIndicators returns indicators rated high or critical, sorted by name.
func (c *Context) HighRiskIndicators() []EconomicIndicator {
	out := []EconomicIndicator{}
	for _, ind := range c.indicators {
		if ind.Risk == RiskHigh || ind.Risk == RiskCritical {
			out = append(out, ind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// VulnerableCompanies returns tickers whose exposure scores above VulnerableScore, sorted.
func (c *Context) VulnerableCompanies() []string {
	out := []string{}
	for ticker, e := range c.exposures {
		if e.RiskScore() > VulnerableScore {
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out
}

// LatestAssessment returns the most recently appended assessment, or nil.
func (c *Context) LatestAssessment() *RiskAssessment {
	if len(c.assessments) == 0 {
		return nil
	}
	a := c.assessments[len(c.assessments)-1]
	return &a
}

// Summary reports counts and the derived risk views.
func (c *Context) Summary() Summary {
	s := Summary{
		IndicatorsCollected: len(c.indicators),
		CompaniesAnalyzed:   len(c.exposures),
		RiskAssessments:     len(c.assessments),
		HighRiskIndicators:  len(c.HighRiskIndicators()),
		VulnerableCompanies: c.VulnerableCompanies(),
		EventsLogged:        len(c.events),
	}
	if latest := c.LatestAssessment(); latest != nil {
		level := latest.RiskLevel
		s.LatestRiskLevel = &level
	}
	return s
}
