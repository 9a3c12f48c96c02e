package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/softprint/authcore/internal/retry"
)

var (
	// ErrNoSession is returned when an operation needs a session and
	// none is held.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired is returned when the held session is past its
	// validity buffer and cannot be renewed.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshFailed wraps a provider failure during token refresh.
	// Callers must re-authenticate.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// TokenClient is the narrow provider surface the manager needs: token
// renewal and best-effort revocation.
type TokenClient interface {
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	RevokeSession(ctx context.Context, accessToken string) error
}

// Config tunes the manager's proactive renewal behavior.
type Config struct {
	// AutoRefreshLead is how long before expiry the one-shot renewal
	// timer fires.
	AutoRefreshLead time.Duration
	// AutoRefreshMaxRetries bounds the timer-fired retry ladder,
	// beyond the initial attempt.
	AutoRefreshMaxRetries int
	// AutoRefreshBaseDelay is the first ladder backoff; each further
	// attempt doubles it.
	AutoRefreshBaseDelay time.Duration
	// OnRefreshDeduped, when set, is invoked each time a Refresh call
	// joins an in-flight renewal instead of starting its own.
	OnRefreshDeduped func()
	// OnAutoRefreshExhausted, when set, is invoked when the timer-fired
	// ladder spends every attempt and the session is cleared.
	OnAutoRefreshExhausted func()
}

func (c Config) withDefaults() Config {
	if c.AutoRefreshLead <= 0 {
		c.AutoRefreshLead = 5 * time.Minute
	}
	if c.AutoRefreshMaxRetries <= 0 {
		c.AutoRefreshMaxRetries = 3
	}
	if c.AutoRefreshBaseDelay <= 0 {
		c.AutoRefreshBaseDelay = time.Second
	}
	return c
}

// refreshCall is one in-flight deduplicated refresh. Concurrent callers
// block on done and observe the same outcome.
type refreshCall struct {
	done chan struct{}
	sess *Session
	err  error
}

// Manager owns the session for one client context. All state mutation
// happens under one mutex; the generation counter lets Clear terminate
// the effect of any refresh still in flight.
type Manager struct {
	client TokenClient
	store  Store
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	current    *Session
	pending    *refreshCall
	timer      *time.Timer
	generation uint64
	restored   bool
}

// NewManager creates a Manager. store may not be nil; use
// [NewMemoryStore] for ephemeral sessions.
func NewManager(client TokenClient, store Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client: client,
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Current returns a copy of the held session if it is valid, nil
// otherwise. Invalid sessions are never exposed.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.ValidAt(time.Now()) {
		return nil
	}
	return m.current.clone()
}

// Adopt installs a freshly issued session, persists it, and arms the
// auto-refresh timer. Used after sign-in and verification.
func (m *Manager) Adopt(sess *Session) {
	if sess == nil {
		return
	}

	m.mu.Lock()
	m.current = sess.clone()
	m.persistLocked(m.current)
	m.scheduleLocked(m.current)
	m.mu.Unlock()
}

// Refresh renews the token pair. Concurrent calls are deduplicated: one
// provider call runs, every caller observes its result. A Clear racing
// the provider call wins; the refreshed token is discarded and never
// persisted.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.pending != nil {
		call := m.pending
		m.mu.Unlock()
		if m.cfg.OnRefreshDeduped != nil {
			m.cfg.OnRefreshDeduped()
		}
		select {
		case <-call.done:
			return call.sess.clone(), call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.current == nil || m.current.RefreshToken == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}

	call := &refreshCall{done: make(chan struct{})}
	m.pending = call
	gen := m.generation
	token := m.current.RefreshToken
	m.mu.Unlock()

	sess, err := m.client.RefreshSession(ctx, token)
	m.settleRefresh(call, gen, sess, err)

	return call.sess.clone(), call.err
}

func (m *Manager) settleRefresh(call *refreshCall, gen uint64, sess *Session, err error) {
	m.mu.Lock()
	m.pending = nil
	switch {
	case err != nil:
		call.err = fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	case m.generation != gen:
		// Cleared while the provider call was in flight; the new
		// token must not survive the logout.
		call.err = ErrNoSession
	default:
		m.current = sess.clone()
		call.sess = sess.clone()
		m.persistLocked(m.current)
		m.scheduleLocked(m.current)
	}
	m.mu.Unlock()
	close(call.done)
}

// refreshDirect is the timer-fired renewal path. It bypasses the dedup
// call so the ladder's attempts are independent of user-driven Refresh
// calls, but commits under the same generation discipline.
func (m *Manager) refreshDirect(ctx context.Context) error {
	m.mu.Lock()
	if m.current == nil || m.current.RefreshToken == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	gen := m.generation
	token := m.current.RefreshToken
	m.mu.Unlock()

	sess, err := m.client.RefreshSession(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return ErrNoSession
	}
	m.current = sess.clone()
	m.persistLocked(m.current)
	m.scheduleLocked(m.current)
	return nil
}

// ScheduleAutoRefresh arms (or re-arms) the one-shot proactive renewal
// timer for sess. A timer only fires while the session it was armed for
// is still the live generation.
func (m *Manager) ScheduleAutoRefresh(sess *Session) {
	if sess == nil {
		return
	}
	m.mu.Lock()
	m.scheduleLocked(sess)
	m.mu.Unlock()
}

func (m *Manager) scheduleLocked(sess *Session) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	fireIn := time.Until(sess.ExpiresAt.Add(-m.cfg.AutoRefreshLead))
	if fireIn <= 0 {
		return
	}

	gen := m.generation
	m.timer = time.AfterFunc(fireIn, func() {
		m.autoRefresh(gen)
	})
}

func (m *Manager) autoRefresh(gen uint64) {
	m.mu.Lock()
	live := m.generation == gen && m.current != nil
	m.mu.Unlock()
	if !live {
		return
	}

	policy := retry.Policy{
		MaxRetries: m.cfg.AutoRefreshMaxRetries,
		BaseDelay:  m.cfg.AutoRefreshBaseDelay,
	}
	err := retry.Do(context.Background(), policy, func(err error) bool {
		// A generation change means the session was cleared; stop.
		return !errors.Is(err, ErrNoSession)
	}, m.refreshDirect)
	if err == nil || errors.Is(err, ErrNoSession) {
		return
	}

	// Renewal exhausted. Operating on a token that is about to expire
	// would fail unpredictably later; force a clean re-authentication
	// instead.
	m.logger.Warn("auto refresh exhausted, clearing session", slog.String("error", err.Error()))
	if m.cfg.OnAutoRefreshExhausted != nil {
		m.cfg.OnAutoRefreshExhausted()
	}
	m.Clear(context.Background())
}

// Clear signs the session out locally and best-effort revokes it at the
// provider. Local invalidation is unconditional: revoke or store
// failures are logged, never returned. Safe to call concurrently any
// number of times; the observable end state is always the same.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	var accessToken string
	if m.current != nil {
		accessToken = m.current.AccessToken
	}
	m.current = nil
	m.mu.Unlock()

	if accessToken != "" {
		if err := m.client.RevokeSession(ctx, accessToken); err != nil {
			m.logger.Warn("provider revoke failed during sign-out", slog.String("error", err.Error()))
		}
	}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("persisted session clear failed", slog.String("error", err.Error()))
	}
}

// RestoreFromPersistence adopts a persisted session at most once per
// process lifetime. A valid snapshot is adopted and armed; an expired
// snapshot with a refresh token gets one refresh attempt; anything else
// returns nil and the caller falls through to a live provider check.
func (m *Manager) RestoreFromPersistence(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.restored {
		cur := m.current.clone()
		m.mu.Unlock()
		if cur.ValidAt(time.Now()) {
			return cur, nil
		}
		return nil, nil
	}
	m.restored = true
	m.mu.Unlock()

	snap, err := m.store.Load()
	if err != nil {
		m.logger.Warn("session restore load failed", slog.String("error", err.Error()))
		return nil, nil
	}
	if snap == nil {
		return nil, nil
	}

	if snap.ValidAt(time.Now()) {
		m.Adopt(snap)
		return snap.clone(), nil
	}

	if snap.RefreshToken != "" {
		sess, err := m.client.RefreshSession(ctx, snap.RefreshToken)
		if err == nil {
			m.Adopt(sess)
			return sess.clone(), nil
		}
		m.logger.Warn("session restore refresh failed", slog.String("error", err.Error()))
	}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("stale snapshot clear failed", slog.String("error", err.Error()))
	}
	return nil, nil
}

// persistLocked writes a snapshot for a valid session. Invalid sessions
// are never persisted.
func (m *Manager) persistLocked(sess *Session) {
	if !sess.ValidAt(time.Now()) {
		return
	}
	if err := m.store.Save(sess); err != nil {
		m.logger.Warn("session persist failed", slog.String("error", err.Error()))
	}
}

// Close cancels the renewal timer without touching provider or store
// state. Used on context teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
}
