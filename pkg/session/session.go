// Package session owns the per-client state: one payment flow, one expense
// tracker, one chat and the signed-in user.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"arithmitra/pkg/account"
	"arithmitra/pkg/chat"
	"arithmitra/pkg/events"
	"arithmitra/pkg/expense"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"
	"arithmitra/pkg/transfer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown or expired session id.
	ErrNotFound = errors.New("session: not found")

	// ErrRegistryClosed is returned by Create after Close.
	ErrRegistryClosed = errors.New("session: registry closed")

	// ErrTooManySessions is returned when MaxSessions is reached.
	ErrTooManySessions = errors.New("session: too many sessions")
)

// Config configures the registry.
type Config struct {
	// IdleTTL is how long an untouched session lives
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// SweepInterval is how often expired sessions are closed
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// MaxSessions caps live sessions (0 = unlimited)
	MaxSessions int `yaml:"max_sessions"`

	// DefaultLanguage is used when Create is given none
	DefaultLanguage chat.Language `yaml:"default_language"`

	// Transfer configures each session's payment flow
	Transfer transfer.Config `yaml:"transfer"`
}

// DefaultConfig returns the registry defaults.
func DefaultConfig() Config {
	return Config{
		IdleTTL:         30 * time.Minute,
		SweepInterval:   time.Minute,
		MaxSessions:     10000,
		DefaultLanguage: chat.English,
		Transfer:        transfer.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IdleTTL <= 0 {
		return fmt.Errorf("session: idle ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("session: sweep interval must be positive")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("session: max sessions must not be negative")
	}
	if _, err := chat.ParseLanguage(string(c.DefaultLanguage)); err != nil {
		return err
	}
	return c.Transfer.Validate()
}

// Session is one client's state.
type Session struct {
	ID          string
	CreatedAt   time.Time
	Transfer    *transfer.Controller
	Expenses    *expense.Tracker
	Chat        *chat.Session
	Preferences *account.Preferences

	mu       sync.Mutex
	user     *account.User
	lastSeen time.Time
}

// User returns the signed-in user, if any.
func (s *Session) User() (account.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return account.User{}, false
	}
	return *s.user, true
}

// SetUser records the signed-in user.
func (s *Session) SetUser(u account.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

// Language is the session's display language.
func (s *Session) Language() chat.Language {
	return s.Chat.Language()
}

// SetLanguage switches the display language. The chat restarts when it
// actually changes.
func (s *Session) SetLanguage(lang chat.Language) bool {
	return s.Chat.SetLanguage(lang)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() error {
	return s.Transfer.Close()
}

// Info is the externally visible part of a session.
type Info struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Language  chat.Language `json:"language"`
	User      *account.User `json:"user,omitempty"`
}

// Info describes the session.
func (s *Session) Info() Info {
	info := Info{ID: s.ID, CreatedAt: s.CreatedAt, Language: s.Language()}
	if u, ok := s.User(); ok {
		info.User = &u
	}
	return info
}

// Registry creates sessions and closes them when idle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	config   Config
	streamer chat.Streamer
	sink     events.Sink
	metrics  metrics.Collector
	logger   *logging.Logger
	now      func() time.Time

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// Option configures a Registry.
type Option func(*Registry)

// WithSink publishes every session's completed transfers to sink.
func WithSink(sink events.Sink) Option {
	return func(r *Registry) { r.sink = sink }
}

// WithMetrics sets the metrics collector handed to each payment flow.
func WithMetrics(m metrics.Collector) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry whose chats reply through streamer and
// starts the expiry sweep.
func NewRegistry(config Config, streamer chat.Streamer, opts ...Option) *Registry {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = chat.English
	}

	r := &Registry{
		sessions:  make(map[string]*Session),
		config:    config,
		streamer:  streamer,
		sink:      events.NoOpSink{},
		metrics:   metrics.NoOpCollector{},
		logger:    logging.L(),
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("session")

	r.sweepTicker = time.NewTicker(config.SweepInterval)
	r.wg.Add(1)
	go r.sweep()

	return r
}

// Create starts a new session. An empty lang uses the default language.
func (r *Registry) Create(lang chat.Language) (*Session, error) {
	if lang == "" {
		lang = r.config.DefaultLanguage
	}
	lang, err := chat.ParseLanguage(string(lang))
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session: new id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if r.config.MaxSessions > 0 && len(r.sessions) >= r.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	now := r.now()
	logger := r.logger.ForSession(id.String())
	s := &Session{
		ID:        id.String(),
		CreatedAt: now,
		Transfer: transfer.NewController(r.config.Transfer,
			transfer.WithPublisher(events.ForSession(r.sink, id.String())),
			transfer.WithMetrics(r.metrics),
			transfer.WithLogger(logger),
			transfer.WithClock(r.now),
		),
		Expenses:    expense.NewTracker(r.now),
		Chat:        chat.NewSession(lang, r.streamer),
		Preferences: account.NewPreferences(account.NewMemoryStorage()),
		lastSeen:    now,
	}
	r.sessions[s.ID] = s

	logger.Debug("session created", zap.String("language", string(lang)))
	return s, nil
}

// Get returns a live session and marks it used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	r.logger.Debug("session closed", zap.String("session", id))
	return s.close()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expire closes every session idle for longer than IdleTTL and returns how
// many were closed.
func (r *Registry) Expire() int {
	cutoff := r.now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		if err := s.close(); err != nil {
			r.logger.Warn("closing expired session", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (r *Registry) sweep() {
	defer r.wg.Done()

	for {
		select {
		case <-r.sweepTicker.C:
			r.Expire()
		case <-r.stopSweep:
			return
		}
	}
}

// Close stops the sweep and closes every session.
func (r *Registry) Close() error {
	var errs []error
	r.closeOnce.Do(func() {
		r.sweepTicker.Stop()
		close(r.stopSweep)
		r.wg.Wait()

		r.mu.Lock()
		r.closed = true
		sessions := r.sessions
		r.sessions = make(map[string]*Session)
		r.mu.Unlock()

		for _, s := range sessions {
			if err := s.close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
