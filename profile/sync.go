package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/softprint/authcore/internal/retry"
)

// CreateInput carries the identity fields a new profile is built from.
// UserID is the identity provider's user ID and becomes the profile ID.
type CreateInput struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

// Sync keeps identity accounts and application profiles in step. The
// two systems share a key, not a transaction, so every write here is
// idempotent: replays and races converge on one row.
type Sync struct {
	store  Store
	logger *slog.Logger

	policy    retry.Policy
	retryable func(error) bool
	now       func() time.Time
}

// NewSync creates a Sync over store. logger may be nil.
func NewSync(store Store, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		store:  store,
		logger: logger,
		policy: retry.Policy{
			MaxRetries:     3,
			BaseDelay:      time.Second,
			MaxDelay:       10 * time.Second,
			JitterFraction: 0.1,
		},
		retryable: defaultRetryable,
		now:       time.Now,
	}
}

// SetRetryable overrides the predicate deciding which creation errors
// are worth another attempt. Used by callers that classify errors
// centrally.
func (s *Sync) SetRetryable(fn func(error) bool) {
	if fn != nil {
		s.retryable = fn
	}
}

func defaultRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrCreationFailed)
}

// CreateProfile creates the profile for input's identity, converging
// with any concurrent or previous creation. Losing an insert race is
// success: the winner's row is fetched and returned. Role and
// verification status are never overwritten by a replay.
func (s *Sync) CreateProfile(ctx context.Context, input CreateInput) (*Profile, error) {
	existing, err := s.store.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if existing != nil {
		return existing, nil
	}

	p := New(input.UserID, input.Email, input.Name, input.Role, s.now())
	err = s.store.Insert(ctx, p)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, ErrDuplicateID):
		// Another writer created the row between our get and insert.
		winner, err := s.store.GetByID(ctx, input.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
		}
		if winner == nil {
			return nil, fmt.Errorf("%w: duplicate row vanished", ErrCreationFailed)
		}
		return winner, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
}

// CreateProfileSafe is the upsert form of CreateProfile for paths that
// must not fail on replay, such as first sign-in after email
// verification. An existing row keeps its role and verification status;
// only email and the updated-at stamp move.
func (s *Sync) CreateProfileSafe(ctx context.Context, input CreateInput) (*Profile, error) {
	p := New(input.UserID, input.Email, input.Name, input.Role, s.now())
	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	row, err := s.store.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: upserted row vanished", ErrCreationFailed)
	}
	return row, nil
}

// RetryProfileCreation runs CreateProfile under the creation retry
// policy. Once every attempt is spent the error is ErrCreationExhausted
// and the caller must surface a terminal failure.
func (s *Sync) RetryProfileCreation(ctx context.Context, input CreateInput) (*Profile, error) {
	var result *Profile
	err := retry.Do(ctx, s.policy, s.retryable, func(ctx context.Context) error {
		p, err := s.CreateProfile(ctx, input)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		if s.retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrCreationExhausted, err)
		}
		return nil, err
	}
	return result, nil
}

// GetProfile returns the profile for id, or nil when no row exists.
// Absence is not an error; only genuine store faults raise.
func (s *Sync) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateProfile rewrites the mutable fields of p, stamping UpdatedAt.
// ErrNotFound passes through; any other fault is wrapped in
// ErrUpdateFailed.
func (s *Sync) UpdateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	cp := p.clone()
	cp.UpdatedAt = s.now()

	if err := s.store.Update(ctx, cp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	return cp, nil
}

// SyncProfile reconciles the profile for the identity named by
// sessionUserID. The session must still name the identity the caller
// started the operation for; a mismatch means the user signed out or
// switched accounts mid-flight, and nothing is written. A row already
// matching the provider record is left untouched, so replays never move
// the updated-at stamp.
func (s *Sync) SyncProfile(ctx context.Context, sessionUserID string, input CreateInput) (*Profile, error) {
	if sessionUserID == "" || sessionUserID != input.UserID {
		return nil, ErrSessionMismatch
	}

	existing, err := s.store.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if existing != nil && existing.Email == input.Email {
		return existing, nil
	}
	return s.CreateProfileSafe(ctx, input)
}
