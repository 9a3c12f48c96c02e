package authcore

import (
	"context"
	"sync"
)

// contextCall is one in-flight façade operation. Duplicate invocations
// join the call and observe the same outcome.
type contextCall struct {
	done   chan struct{}
	result any
	err    error
}

// SessionContext is the stateful façade over a [Service] for a single
// client surface: one cached session and profile, flags the surface can
// render from, and per-operation deduplication so double-submits
// collapse into one underlying call.
//
// State commits are gated on the context's own lifetime: an operation
// that finishes after Close discards its result instead of resurrecting
// state the surface already tore down.
type SessionContext struct {
	svc    *Service
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	inflight     map[string]*contextCall
	session      *Session
	profile      *UserProfile
	initializing bool
	loading      bool
}

// NewSessionContext creates a façade over svc. The context reports
// Initializing until Initialize has run once.
func NewSessionContext(svc *Service) *SessionContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionContext{
		svc:          svc,
		ctx:          ctx,
		cancel:       cancel,
		inflight:     make(map[string]*contextCall),
		initializing: true,
	}
}

// run executes fn once per key. Callers arriving while fn is in flight
// block until it settles and share its outcome.
func (c *SessionContext) run(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &contextCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.loading = true
	c.mu.Unlock()

	result, err := fn(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	c.loading = len(c.inflight) > 0
	c.mu.Unlock()

	call.result = result
	call.err = err
	close(call.done)
	return result, err
}

// closed reports whether Close has been called.
func (c *SessionContext) closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// commit installs session and profile unless the context was closed
// while the operation ran.
func (c *SessionContext) commit(sess *Session, prof *UserProfile) {
	if c.closed() {
		return
	}
	c.mu.Lock()
	c.session = sess
	c.profile = prof
	c.mu.Unlock()
}

// Initialize restores a persisted session and loads its profile.
// Concurrent and repeated calls share one pass; restore itself happens
// at most once per process. Absence of a restorable session leaves the
// context unauthenticated without error.
func (c *SessionContext) Initialize(ctx context.Context) error {
	_, err := c.run(ctx, "initialize", func(ctx context.Context) (any, error) {
		defer func() {
			c.mu.Lock()
			c.initializing = false
			c.mu.Unlock()
		}()

		sess, err := c.svc.RestoreSession(ctx)
		if err != nil || sess == nil {
			return nil, err
		}

		prof, err := c.svc.GetProfile(ctx)
		if err != nil {
			// A session without a readable profile is still a session;
			// the profile loads lazily on the next access.
			c.commit(sess, nil)
			return nil, nil
		}

		c.commit(sess, prof)
		return nil, nil
	})
	return err
}

// SignUp registers a new identity through the service, deduplicated per
// email.
func (c *SessionContext) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	result, err := c.run(ctx, "signup:"+req.Email, func(ctx context.Context) (any, error) {
		res, err := c.svc.SignUp(ctx, req)
		if err != nil {
			return nil, err
		}
		if !res.NeedsVerification {
			c.commit(c.svc.CurrentSession(), res.Profile)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*SignUpResult), nil
}

// SignIn authenticates, deduplicated per email.
func (c *SessionContext) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	result, err := c.run(ctx, "signin:"+email, func(ctx context.Context) (any, error) {
		res, err := c.svc.SignIn(ctx, email, password)
		if err != nil {
			return nil, err
		}
		c.commit(res.Session, res.Profile)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*SignInResult), nil
}

// SignOut ends the session. Local state is dropped even if the context
// was closed mid-call; sign-out is never suppressed.
func (c *SessionContext) SignOut(ctx context.Context) {
	_, _ = c.run(ctx, "signout", func(ctx context.Context) (any, error) {
		c.svc.SignOut(ctx)
		c.mu.Lock()
		c.session = nil
		c.profile = nil
		c.mu.Unlock()
		return nil, nil
	})
}

// Refresh renews the cached session, deduplicated with every other
// refresh path through the service.
func (c *SessionContext) Refresh(ctx context.Context) error {
	_, err := c.run(ctx, "refresh", func(ctx context.Context) (any, error) {
		sess, err := c.svc.RefreshSession(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		prof := c.profile
		c.mu.Unlock()
		c.commit(sess, prof)
		return nil, nil
	})
	return err
}

// ResetPassword commits a password reset through the service. A
// successful reset invalidates the held session, so the cached state is
// dropped with it.
func (c *SessionContext) ResetPassword(ctx context.Context, recoveryToken, newPassword string) error {
	_, err := c.run(ctx, "reset_password", func(ctx context.Context) (any, error) {
		if err := c.svc.ResetPassword(ctx, recoveryToken, newPassword); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.session = nil
		c.profile = nil
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// ResendVerification requests a fresh confirmation email, deduplicated
// per address.
func (c *SessionContext) ResendVerification(ctx context.Context, email string) error {
	_, err := c.run(ctx, "resend:"+email, func(ctx context.Context) (any, error) {
		return nil, c.svc.ResendVerification(ctx, email)
	})
	return err
}

// UpdateProfile writes the signed-in identity's profile and caches the
// written row.
func (c *SessionContext) UpdateProfile(ctx context.Context, p *UserProfile) (*UserProfile, error) {
	result, err := c.run(ctx, "update_profile", func(ctx context.Context) (any, error) {
		prof, err := c.svc.UpdateProfile(ctx, p)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		sess := c.session
		c.mu.Unlock()
		c.commit(sess, prof)
		return prof, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*UserProfile), nil
}

// ReloadProfile refetches the signed-in identity's profile.
func (c *SessionContext) ReloadProfile(ctx context.Context) (*UserProfile, error) {
	result, err := c.run(ctx, "reload_profile", func(ctx context.Context) (any, error) {
		prof, err := c.svc.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		sess := c.session
		c.mu.Unlock()
		c.commit(sess, prof)
		return prof, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*UserProfile), nil
}

// IsAuthenticated reports whether a valid session is cached.
func (c *SessionContext) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.Valid()
}

// Initializing reports whether the first Initialize pass is still
// pending or running.
func (c *SessionContext) Initializing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializing
}

// Loading reports whether any façade operation is in flight.
func (c *SessionContext) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// CurrentSession returns the cached session, or nil.
func (c *SessionContext) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CurrentProfile returns the cached profile, or nil.
func (c *SessionContext) CurrentProfile() *UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Close tears the façade down. In-flight operations finish but their
// results are discarded; the underlying service is untouched.
func (c *SessionContext) Close() {
	c.cancel()
	c.mu.Lock()
	c.session = nil
	c.profile = nil
	c.mu.Unlock()
}
