// Package session owns the access/refresh token pair: validity checks,
// deduplicated refresh, proactive renewal, and persistence across
// process restarts.
package session

import "time"

// ValidityBuffer is the minimum remaining lifetime for a session to be
// considered valid. A token expiring sooner is treated as already
// expired so callers never act on a token that dies mid-request.
const ValidityBuffer = 30 * time.Second

// Session is the authenticated token pair plus expiry. It is owned
// exclusively by [Manager] during its lifetime; a snapshot may be
// persisted through a [Store], but the in-memory copy is authoritative
// while the process is alive.
type Session struct {
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenType      string    `json:"token_type"`
	IdentityUserID string    `json:"identity_user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ValidAt reports whether the session holds an access token with at
// least [ValidityBuffer] of remaining lifetime at the given instant.
func (s *Session) ValidAt(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.Sub(now) >= ValidityBuffer
}

// Valid reports validity at the current instant.
func (s *Session) Valid() bool {
	return s.ValidAt(time.Now())
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}
