package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable wraps backend faults from a [Store].
var ErrStoreUnavailable = errors.New("session store unavailable")

// DefaultOuterExpiry bounds how long a persisted snapshot may outlive
// the process that wrote it, independent of the token's own (shorter)
// expiry. A snapshot older than this is discarded on load even if its
// refresh token might still work.
const DefaultOuterExpiry = 30 * 24 * time.Hour

// Store is the durable persistence capability for one session snapshot.
// Implementations hold at most one snapshot per store instance.
type Store interface {
	// Load returns the persisted session, or nil when no usable
	// snapshot exists. Absence is not an error.
	Load() (*Session, error)
	// Save persists a snapshot, replacing any previous one.
	Save(sess *Session) error
	// Clear removes any persisted snapshot. Clearing an empty store
	// is a no-op.
	Clear() error
}

// snapshot is the bounded wire form written by every backend. SavedAt
// anchors the outer expiry window.
type snapshot struct {
	Session Session   `json:"session"`
	SavedAt time.Time `json:"saved_at"`
}

func encodeSnapshot(sess *Session, now time.Time) ([]byte, error) {
	data, err := json.Marshal(snapshot{Session: *sess, SavedAt: now})
	if err != nil {
		return nil, fmt.Errorf("session: encode snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot returns nil for corrupt or outer-expired snapshots
// rather than an error: a stale snapshot is equivalent to none.
func decodeSnapshot(data []byte, now time.Time, outerExpiry time.Duration) *Session {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	if outerExpiry <= 0 {
		outerExpiry = DefaultOuterExpiry
	}
	if now.Sub(snap.SavedAt) > outerExpiry {
		return nil
	}
	if snap.Session.AccessToken == "" && snap.Session.RefreshToken == "" {
		return nil
	}
	return &snap.Session
}
