package authcore

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/softprint/authcore/profile"
	"github.com/softprint/authcore/provider"
	"github.com/softprint/authcore/session"
)

// Classifier turns any raised fault into a canonical [AuthError]. It is
// the single entry point of the error taxonomy: provider-shaped errors,
// network faults, subsystem sentinels, and unknown values all pass
// through Classify.
type Classifier struct {
	development bool
	logger      *slog.Logger
}

// NewClassifier creates a Classifier. When development is true, Log
// writes structured diagnostics through logger; otherwise Log is a
// no-op observability hook.
func NewClassifier(development bool, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		development: development,
		logger:      logger,
	}
}

// networkFaultPatterns are matched against error text before the
// provider table. Transport faults are always retryable with a fixed
// short backoff hint.
var networkFaultPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"dial tcp",
	"tls handshake",
	"unexpected eof",
}

// providerMessageTable maps provider error text fragments to codes, in
// match order. Lowercased substring matching mirrors the loose shapes
// hosted identity providers return.
var providerMessageTable = []struct {
	fragment string
	code     ErrorCode
}{
	{"invalid login credentials", CodeInvalidCredentials},
	{"invalid grant", CodeInvalidCredentials},
	{"email not confirmed", CodeEmailNotConfirmed},
	{"user already registered", CodeEmailAlreadyRegistered},
	{"already been registered", CodeEmailAlreadyRegistered},
	{"unable to validate email", CodeInvalidEmail},
	{"invalid email", CodeInvalidEmail},
	{"password should be at least", CodeWeakPassword},
	{"weak password", CodeWeakPassword},
	{"token has expired", CodeInvalidToken},
	{"invalid token", CodeInvalidToken},
	{"token not found", CodeInvalidToken},
	{"user not found", CodeUserNotFound},
	{"locked", CodeAccountLocked},
	{"rate limit", CodeRateLimited},
	{"too many requests", CodeRateLimited},
}

// Classify maps err onto the closed taxonomy. Classification order:
// canonical pass-through, cancellation, network fault, provider-shaped
// error, subsystem sentinel, unknown.
func (c *Classifier) Classify(err error) *AuthError {
	if err == nil {
		return nil
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newAuthError(CodeOperationCancelled, err.Error(), false, 0)
	}

	if isNetworkFault(err) {
		return newAuthError(CodeNetworkError, err.Error(), true, 3*time.Second)
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return c.classifyProviderError(apiErr)
	}

	if code, retryable, retryAfter, ok := classifySentinel(err); ok {
		return newAuthError(code, err.Error(), retryable, retryAfter)
	}

	return newAuthError(CodeUnknownError, err.Error(), false, 0)
}

func (c *Classifier) classifyProviderError(apiErr *provider.APIError) *AuthError {
	msg := strings.ToLower(apiErr.Message)

	if apiErr.Status == 429 {
		retryAfter := apiErr.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 30 * time.Second
		}
		return newAuthError(CodeRateLimited, apiErr.Error(), true, retryAfter)
	}

	for _, entry := range providerMessageTable {
		if strings.Contains(msg, entry.fragment) {
			if entry.code == CodeRateLimited {
				return newAuthError(CodeRateLimited, apiErr.Error(), true, 30*time.Second)
			}
			// Credential and validation shapes are user-correctable,
			// never retryable.
			return newAuthError(entry.code, apiErr.Error(), false, 0)
		}
	}

	if apiErr.Status >= 500 {
		return newAuthError(CodeServiceUnavailable, apiErr.Error(), true, 5*time.Second)
	}

	return newAuthError(CodeUnknownError, apiErr.Error(), false, 0)
}

func classifySentinel(err error) (code ErrorCode, retryable bool, retryAfter time.Duration, ok bool) {
	switch {
	case errors.Is(err, session.ErrRefreshFailed):
		return CodeTokenRefreshFailed, false, 0, true
	case errors.Is(err, session.ErrNoSession):
		return CodeSessionNotFound, false, 0, true
	case errors.Is(err, session.ErrSessionExpired):
		return CodeSessionExpired, false, 0, true
	case errors.Is(err, session.ErrStoreUnavailable):
		return CodeInternalError, true, 0, true
	case errors.Is(err, profile.ErrSessionMismatch):
		return CodeSessionExpired, false, 0, true
	case errors.Is(err, profile.ErrCreationExhausted):
		return CodeProfileCreationFailed, false, 0, true
	case errors.Is(err, profile.ErrCreationFailed):
		return CodeProfileCreationFailed, true, 0, true
	case errors.Is(err, profile.ErrUpdateFailed):
		return CodeProfileUpdateFailed, true, 0, true
	case errors.Is(err, profile.ErrNotFound):
		return CodeProfileNotFound, false, 0, true
	case errors.Is(err, profile.ErrStoreUnavailable):
		return CodeDatabaseError, true, 0, true
	default:
		return "", false, 0, false
	}
}

func isNetworkFault(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range networkFaultPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Log records a classified error for diagnostics. It never panics and is
// a no-op outside development mode.
func (c *Classifier) Log(err error, operation string) {
	if c == nil || !c.development || err == nil {
		return
	}

	authErr := c.Classify(err)
	c.logger.Warn("auth error",
		slog.String("operation", operation),
		slog.String("code", string(authErr.Code)),
		slog.String("message", authErr.Message),
		slog.Bool("retryable", authErr.Retryable),
	)
}
