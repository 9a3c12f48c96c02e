package authcore

import (
	"fmt"
	"time"
)

// ErrorCode identifies one member of the closed authentication error
// taxonomy. Codes are stable strings safe for logs and metrics; they are
// never shown to end users directly.
type ErrorCode string

const (
	// CodeInvalidCredentials marks a rejected email/password pair.
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// CodeEmailNotConfirmed marks a sign-in against an unverified identity.
	CodeEmailNotConfirmed ErrorCode = "EMAIL_NOT_CONFIRMED"
	// CodeAccountLocked marks an identity the provider refuses to authenticate.
	CodeAccountLocked ErrorCode = "ACCOUNT_LOCKED"
	// CodeUserNotFound marks a lookup for an identity the provider does not know.
	CodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	// CodeEmailAlreadyRegistered marks a sign-up with a taken identity key.
	CodeEmailAlreadyRegistered ErrorCode = "EMAIL_ALREADY_REGISTERED"

	// CodeInvalidEmail marks a malformed email address.
	CodeInvalidEmail ErrorCode = "INVALID_EMAIL"
	// CodeWeakPassword marks a password below the configured minimum.
	CodeWeakPassword ErrorCode = "WEAK_PASSWORD"
	// CodeMissingFields marks required input left empty.
	CodeMissingFields ErrorCode = "MISSING_FIELDS"
	// CodeInvalidRole marks a role outside {buyer, seller, admin}.
	CodeInvalidRole ErrorCode = "INVALID_ROLE"

	// CodeNetworkError marks a connectivity failure reaching a collaborator.
	CodeNetworkError ErrorCode = "NETWORK_ERROR"
	// CodeServiceUnavailable marks a 5xx-class provider failure.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// CodeRateLimited marks a provider-side rate limit (429).
	CodeRateLimited ErrorCode = "RATE_LIMITED"
	// CodeSignupCooldown marks a sign-up attempt inside the local cooldown window.
	CodeSignupCooldown ErrorCode = "SIGNUP_COOLDOWN"

	// CodeSessionExpired marks an operation against a session that is no longer valid.
	CodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	// CodeTokenRefreshFailed marks a failed provider refresh; callers must re-authenticate.
	CodeTokenRefreshFailed ErrorCode = "TOKEN_REFRESH_FAILED"
	// CodeInvalidToken marks an expired or malformed token presented to the provider.
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	// CodeSessionNotFound marks an operation that requires a session when none exists.
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// CodeNotAuthenticated marks a caller-facing operation invoked while signed out.
	CodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"

	// CodeProfileNotFound marks a missing profile row where one was required.
	CodeProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"
	// CodeProfileCreationFailed marks a failed profile insert after race handling.
	CodeProfileCreationFailed ErrorCode = "PROFILE_CREATION_FAILED"
	// CodeProfileUpdateFailed marks a failed profile update.
	CodeProfileUpdateFailed ErrorCode = "PROFILE_UPDATE_FAILED"
	// CodeDatabaseError marks a generic profile-store fault.
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// CodeVerificationResendFailed marks a failed verification-email resend.
	CodeVerificationResendFailed ErrorCode = "VERIFICATION_RESEND_FAILED"
	// CodePasswordResetFailed marks a failed password-reset commit.
	CodePasswordResetFailed ErrorCode = "PASSWORD_RESET_FAILED"
	// CodeOperationCancelled marks work discarded because its owning context was torn down.
	CodeOperationCancelled ErrorCode = "OPERATION_CANCELLED"

	// CodeInternalError marks an unexpected fault inside this subsystem.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	// CodeUnknownError marks a fault the classifier could not attribute.
	CodeUnknownError ErrorCode = "UNKNOWN_ERROR"
)

// AuthError is the canonical classified authentication error. Values are
// immutable and always fully constructed: they are produced only by
// [Classifier.Classify] or the package-internal constructors, never
// assembled field by field by callers.
type AuthError struct {
	Code        ErrorCode
	Message     string
	UserMessage string
	Retryable   bool
	RetryAfter  time.Duration
	Metadata    map[string]string
}

// Error returns the diagnostic message. The display-safe text is in
// UserMessage.
func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *AuthError with the same code, so
// errors.Is works across classification boundaries.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok || e == nil {
		return false
	}
	return e.Code == t.Code
}

// retryableCodes is the fixed escalation set consulted by IsRetryable in
// addition to the explicit per-error flag. TOKEN_REFRESH_FAILED carries
// Retryable=false but stays in this set so a caller can opt into one-off
// escalation without changing the classification table.
var retryableCodes = map[ErrorCode]bool{
	CodeNetworkError:          true,
	CodeServiceUnavailable:    true,
	CodeTokenRefreshFailed:    true,
	CodeDatabaseError:         true,
	CodeProfileCreationFailed: true,
	CodeProfileUpdateFailed:   true,
	CodeInternalError:         true,
}

// userMessages maps every code to a complete, jargon-free sentence.
// Raw provider text, stack content, and internal codes never reach the
// user; this table is the only source of display text.
var userMessages = map[ErrorCode]string{
	CodeInvalidCredentials:       "The email or password you entered is incorrect.",
	CodeEmailNotConfirmed:        "Please confirm your email address before signing in.",
	CodeAccountLocked:            "Your account is temporarily locked. Please try again later or contact support.",
	CodeUserNotFound:             "We could not find an account with that email address.",
	CodeEmailAlreadyRegistered:   "An account with this email address already exists.",
	CodeInvalidEmail:             "Please enter a valid email address.",
	CodeWeakPassword:             "Your password must be at least 8 characters long.",
	CodeMissingFields:            "Please fill in all required fields.",
	CodeInvalidRole:              "The selected account type is not available.",
	CodeNetworkError:             "We are having trouble connecting. Please check your connection and try again.",
	CodeServiceUnavailable:       "The service is temporarily unavailable. Please try again in a moment.",
	CodeRateLimited:              "Too many requests. Please wait a moment before trying again.",
	CodeSignupCooldown:           "Please wait a few seconds before trying to sign up again.",
	CodeSessionExpired:           "Your session has expired. Please sign in again.",
	CodeTokenRefreshFailed:       "Your session could not be renewed. Please sign in again.",
	CodeInvalidToken:             "This link is invalid or has expired. Please request a new one.",
	CodeSessionNotFound:          "You are not signed in.",
	CodeNotAuthenticated:         "Please sign in to continue.",
	CodeProfileNotFound:          "We could not load your profile. Please try again.",
	CodeProfileCreationFailed:    "We could not finish setting up your account. Please try again.",
	CodeProfileUpdateFailed:      "We could not save your changes. Please try again.",
	CodeDatabaseError:            "Something went wrong on our side. Please try again.",
	CodeVerificationResendFailed: "We could not resend the verification email. Please try again.",
	CodePasswordResetFailed:      "We could not reset your password. Please request a new reset link.",
	CodeOperationCancelled:       "The request was cancelled.",
	CodeInternalError:            "Something went wrong. Please try again.",
	CodeUnknownError:             "An unexpected error occurred. Please try again.",
}

// UserMessage returns the display-safe sentence for a code. Unknown
// codes fall back to the UNKNOWN_ERROR sentence.
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeUnknownError]
}

// IsRetryable reports whether a repeat attempt may succeed. The explicit
// flag is ORed with membership in the fixed retryable-code set.
func IsRetryable(err error) bool {
	authErr, ok := err.(*AuthError)
	if !ok || authErr == nil {
		return false
	}
	return authErr.Retryable || retryableCodes[authErr.Code]
}

// newAuthError builds a fully-populated AuthError for a code. All
// construction funnels through here so UserMessage is never missing.
func newAuthError(code ErrorCode, message string, retryable bool, retryAfter time.Duration) *AuthError {
	return &AuthError{
		Code:        code,
		Message:     message,
		UserMessage: UserMessage(code),
		Retryable:   retryable,
		RetryAfter:  retryAfter,
	}
}

// validationError is shorthand for the non-retryable pre-network codes.
func validationError(code ErrorCode, message string) *AuthError {
	return newAuthError(code, message, false, 0)
}
