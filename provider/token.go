package provider

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the token attributes this subsystem needs when a
// provider response omits them: the identity's user id and the absolute
// expiry instant.
type AccessClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// ParseAccessClaims extracts subject and expiry from a provider-issued
// access token without verifying its signature. The provider is the
// source of truth for token validity; this parse only recovers metadata
// for local session bookkeeping and must never gate authorization.
func ParseAccessClaims(accessToken string) (*AccessClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("provider: parse access token: %w", err)
	}

	out := &AccessClaims{UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// SessionExpiry resolves the absolute expiry for a provider session,
// preferring the explicit expires_at field, then expires_in relative to
// now, then the access token's own exp claim.
func SessionExpiry(sess *Session, now time.Time) time.Time {
	if sess == nil {
		return time.Time{}
	}
	if sess.ExpiresAt > 0 {
		return time.Unix(sess.ExpiresAt, 0)
	}
	if sess.ExpiresIn > 0 {
		return now.Add(time.Duration(sess.ExpiresIn) * time.Second)
	}
	if claims, err := ParseAccessClaims(sess.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt
	}
	return time.Time{}
}

// SessionUserID resolves the identity user id for a provider session,
// preferring the embedded user object over the token's subject claim.
func SessionUserID(sess *Session) string {
	if sess == nil {
		return ""
	}
	if sess.User != nil && sess.User.ID != "" {
		return sess.User.ID
	}
	if claims, err := ParseAccessClaims(sess.AccessToken); err == nil {
		return claims.UserID
	}
	return ""
}
