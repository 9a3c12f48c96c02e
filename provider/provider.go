// Package provider contains the identity-provider client: the typed
// surface this subsystem consumes for credential verification, token
// issuance, password recovery, and email verification. All calls are
// fallible network operations; errors surface as [*APIError] values for
// classification by the caller.
package provider

import (
	"context"
	"fmt"
	"time"
)

// User is the provider-held identity record.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Session is the raw token pair as issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user,omitempty"`
}

// SignUpInput carries the identity attributes for provider sign-up.
// Metadata travels to the provider's user_metadata and is echoed back on
// verification, so profile creation can be deferred until the identity
// is confirmed.
type SignUpInput struct {
	Email      string
	Password   string
	Metadata   map[string]any
	RedirectTo string
}

// SignUpResult is returned by SignUp. Session is nil when the provider
// requires email verification before issuing tokens.
type SignUpResult struct {
	User    *User
	Session *Session
}

// VerifyType selects the verification flow for VerifyToken and Resend.
type VerifyType string

const (
	// VerifySignup confirms a new identity's email address.
	VerifySignup VerifyType = "signup"
	// VerifyRecovery exchanges a password-recovery token for a session.
	VerifyRecovery VerifyType = "recovery"
)

// Client is the identity-provider surface consumed by this subsystem.
type Client interface {
	SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUserPassword(ctx context.Context, accessToken, newPassword string) error
	VerifyToken(ctx context.Context, verifyType VerifyType, token string) (*Session, error)
	Resend(ctx context.Context, verifyType VerifyType, email, redirectTo string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// APIError is a provider-shaped error: an HTTP status plus the
// provider's own code and message. The message is diagnostic text and
// must never be shown to end users.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %d: %s", e.Status, e.Message)
}
