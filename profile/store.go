package profile

import (
	"context"
	"errors"
)

// Sentinel errors for the profile layer. Store implementations wrap
// backend faults in ErrStoreUnavailable; Sync wraps its own outcomes in
// the rest.
var (
	// ErrNotFound is returned when no profile exists for an ID.
	ErrNotFound = errors.New("profile not found")
	// ErrDuplicateID is returned by Insert when a profile with the same
	// ID already exists. Creation paths treat it as convergence, not
	// failure.
	ErrDuplicateID = errors.New("profile id already exists")
	// ErrStoreUnavailable wraps backend faults (connection refused,
	// timeouts, server errors).
	ErrStoreUnavailable = errors.New("profile store unavailable")
	// ErrCreationFailed wraps a transient creation fault that may
	// succeed on retry.
	ErrCreationFailed = errors.New("profile creation failed")
	// ErrCreationExhausted is returned once every creation retry has
	// been spent. Not retryable.
	ErrCreationExhausted = errors.New("profile creation retries exhausted")
	// ErrUpdateFailed wraps a failed profile update.
	ErrUpdateFailed = errors.New("profile update failed")
	// ErrSessionMismatch is returned when the caller's session no
	// longer names the identity the operation was started for.
	ErrSessionMismatch = errors.New("session identity mismatch")
)

// Store is the persistence capability for profiles. Implementations
// must distinguish absence (nil, nil from GetByID; ErrNotFound from
// Update) from backend faults (ErrStoreUnavailable).
type Store interface {
	// GetByID returns the profile for id, or (nil, nil) when none
	// exists.
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Insert creates a new profile. Returns ErrDuplicateID when a row
	// with the same ID already exists.
	Insert(ctx context.Context, p *Profile) error
	// Upsert creates the profile or, when it already exists, refreshes
	// its email and updated-at stamp without touching role or
	// verification status.
	Upsert(ctx context.Context, p *Profile) error
	// Update rewrites the mutable fields of an existing profile.
	// Returns ErrNotFound when no row matches.
	Update(ctx context.Context, p *Profile) error
}
