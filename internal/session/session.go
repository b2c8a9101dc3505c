// Package session owns analysis sessions: one portfolio and one economic
// context per session, guarded by the session's lock.
package session

import (
	"sort"
	"sync"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/portfolio"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Session is one analysis session. Portfolio and Economy are not safe for
// concurrent use; hold the session lock while touching them.
type Session struct {
	ID        string
	CreatedAt time.Time

	Portfolio *portfolio.Portfolio
	Economy   *economy.Context

	mu sync.Mutex
}

// New returns a standalone session with empty state.
func New(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: t,
		Portfolio: portfolio.New(),
		Economy:   economy.NewContext(economy.WithClock(now)),
	}
}

// Lock acquires exclusive use of the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset replaces the portfolio and context with empty ones. Caller holds the lock.
func (s *Session) Reset(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.Portfolio = portfolio.New()
	s.Economy = economy.NewContext(economy.WithClock(now))
}

// Info is a read-only description of a session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Store keeps sessions in memory and evicts ones idle longer than its TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastUsed map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewStore returns an empty store. A zero ttl disables eviction.
func NewStore(ttl time.Duration, now func() time.Time, log zerolog.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		lastUsed: make(map[string]time.Time),
		ttl:      ttl,
		now:      now,
		log:      log.With().Str("component", "sessions").Logger(),
	}
}

// Create starts a new session.
func (st *Store) Create() *Session {
	s := New(st.now)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.lastUsed[s.ID] = s.CreatedAt
	st.mu.Unlock()

	st.log.Debug().Str("session", s.ID).Msg("Session created")
	return s
}

// Get returns a session and marks it used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if ok {
		st.lastUsed[id] = st.now()
	}
	return s, ok
}

// Delete ends a session. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	delete(st.lastUsed, id)
	return true
}

// Info describes one session without marking it used.
func (st *Store) Info(id string) (Info, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Info{}, false
	}
	return Info{ID: id, CreatedAt: s.CreatedAt, LastUsed: st.lastUsed[id]}, true
}

// List describes all sessions, oldest first.
func (st *Store) List() []Info {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Info, 0, len(st.sessions))
	for id, s := range st.sessions {
		out = append(out, Info{ID: id, CreatedAt: s.CreatedAt, LastUsed: st.lastUsed[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// EvictIdle drops sessions unused for longer than the TTL and returns how
// many were dropped.
func (st *Store) EvictIdle() int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	evicted := 0
	for id, last := range st.lastUsed {
		if last.Before(cutoff) {
			delete(st.sessions, id)
			delete(st.lastUsed, id)
			evicted++
		}
	}
	return evicted
}

// StartEviction runs EvictIdle on a cron schedule such as "@every 1m".
func (st *Store) StartEviction(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := st.EvictIdle(); n > 0 {
			st.log.Info().Int("evicted", n).Int("remaining", st.Len()).Msg("Idle sessions evicted")
		}
	})
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.cron = c
	st.mu.Unlock()

	c.Start()
	st.log.Info().Str("schedule", schedule).Dur("idle_ttl", st.ttl).Msg("Session eviction started")
	return nil
}

// Stop halts the eviction schedule and waits for a running sweep.
func (st *Store) Stop() {
	st.mu.Lock()
	c := st.cron
	st.cron = nil
	st.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
