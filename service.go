package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/softprint/authcore/internal/audit"
	"github.com/softprint/authcore/profile"
	"github.com/softprint/authcore/provider"
	"github.com/softprint/authcore/session"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service is the authentication façade: registration, credential
// sign-in, session lifecycle, profile reconciliation, password
// recovery, and email verification. All methods are safe for concurrent
// use. Errors returned by Service methods are always [*AuthError]
// values.
type Service struct {
	config     Config
	provider   provider.Client
	sessions   *session.Manager
	profiles   *profile.Sync
	classifier *Classifier
	limiter    *signupLimiter
	audit      *audit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
}

// providerTokenClient adapts the provider client to the session
// manager's narrow token surface.
type providerTokenClient struct {
	client provider.Client
}

func (c providerTokenClient) RefreshSession(ctx context.Context, refreshToken string) (*session.Session, error) {
	sess, err := c.client.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return toLocalSession(sess), nil
}

func (c providerTokenClient) RevokeSession(ctx context.Context, accessToken string) error {
	return c.client.SignOut(ctx, accessToken)
}

func toLocalSession(p *provider.Session) *session.Session {
	if p == nil {
		return nil
	}
	return &session.Session{
		AccessToken:    p.AccessToken,
		RefreshToken:   p.RefreshToken,
		TokenType:      p.TokenType,
		IdentityUserID: provider.SessionUserID(p),
		ExpiresAt:      provider.SessionExpiry(p, time.Now()),
	}
}

/*
====================================
REGISTRATION
====================================
*/

// SignUp registers a new identity. Input is validated and the
// per-identity cooldown is charged before any network call; a failed
// provider call still consumes the cooldown slot.
//
// When the provider requires email confirmation the result carries
// NeedsVerification and no tokens or profile exist yet; the profile is
// materialized later by [Service.CompleteEmailVerification] or the
// first sign-in. Otherwise the session is adopted and the profile is
// created under the creation retry policy.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	if authErr := validateSignUp(req); authErr != nil {
		s.metrics.Inc(MetricSignUpFailure)
		return nil, authErr
	}

	if remaining, ok := s.limiter.reserve(req.Email); !ok {
		s.metrics.Inc(MetricSignUpRateLimited)
		s.emitAudit(ctx, audit.EventSignUpRateLimited, false, "", req.Email, nil, nil)
		return nil, newAuthError(CodeSignupCooldown,
			fmt.Sprintf("signup throttled for %s", remaining.Round(time.Millisecond)),
			true, remaining)
	}

	result, err := s.provider.SignUp(ctx, provider.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Metadata: map[string]any{
			"name": req.Name,
			"role": string(req.Role),
		},
		RedirectTo: s.config.Provider.RedirectTo,
	})
	if err != nil {
		return nil, s.fail(ctx, "signup", err, MetricSignUpFailure, audit.EventSignUpFailure, "", req.Email)
	}

	if result.Session == nil {
		// Tokens withheld pending email confirmation. No profile row is
		// written, and the unconfirmed identity is not exposed to the
		// caller; only the flag crosses the boundary.
		s.metrics.Inc(MetricSignUpNeedsVerification)
		s.emitAudit(ctx, audit.EventSignUpNeedsVerification, true, userIDOf(result.User), req.Email, nil, nil)
		return &SignUpResult{NeedsVerification: true}, nil
	}

	s.sessions.Adopt(toLocalSession(result.Session))

	prof, err := s.profiles.RetryProfileCreation(ctx, profile.CreateInput{
		UserID: result.User.ID,
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
	})
	if err != nil {
		// The identity exists and the session is live; only the profile
		// is missing. The caller may retry through SyncProfile.
		return nil, s.fail(ctx, "signup", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, result.User.ID, req.Email)
	}

	s.metrics.Inc(MetricSignUpSuccess)
	s.metrics.Inc(MetricProfileCreated)
	s.emitAudit(ctx, audit.EventSignUpSuccess, true, result.User.ID, req.Email, nil, func() map[string]string {
		return map[string]string{"role": string(req.Role)}
	})
	return &SignUpResult{User: result.User, Profile: prof}, nil
}

func validateSignUp(req SignUpRequest) *AuthError {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return validationError(CodeMissingFields, "email, password, and name are required")
	}
	if !emailPattern.MatchString(email) {
		return validationError(CodeInvalidEmail, "email address is malformed")
	}
	if len(req.Password) < minPasswordLength {
		return validationError(CodeWeakPassword,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !req.Role.Valid() {
		return validationError(CodeInvalidRole, fmt.Sprintf("unknown role %q", req.Role))
	}
	return nil
}

/*
====================================
SIGN IN / SIGN OUT
====================================
*/

// SignIn authenticates with email and password, adopts the issued
// session, and materializes the profile if this is the first sign-in
// after verification. An existing profile keeps its role and
// verification status.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		s.metrics.Inc(MetricSignInFailure)
		return nil, validationError(CodeMissingFields, "email and password are required")
	}

	pSess, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, s.fail(ctx, "signin", err, MetricSignInFailure, audit.EventSignInFailure, "", email)
	}

	local := toLocalSession(pSess)
	s.sessions.Adopt(local)

	user := pSess.User
	if user == nil {
		user, err = s.provider.GetUser(ctx, pSess.AccessToken)
		if err != nil {
			return nil, s.fail(ctx, "signin", err, MetricSignInFailure, audit.EventSignInFailure, local.IdentityUserID, email)
		}
	}

	prof, err := s.profiles.CreateProfileSafe(ctx, s.profileInputFor(user))
	if err != nil {
		return nil, s.fail(ctx, "signin", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, user.ID, email)
	}

	s.metrics.Inc(MetricSignInSuccess)
	s.emitAudit(ctx, audit.EventSignInSuccess, true, user.ID, email, nil, nil)
	return &SignInResult{User: user, Session: local, Profile: prof}, nil
}

// profileInputFor derives profile fields from provider user metadata,
// falling back to the configured default role.
func (s *Service) profileInputFor(user *provider.User) profile.CreateInput {
	input := profile.CreateInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   s.config.Profile.DefaultRole,
	}
	if name, ok := user.UserMetadata["name"].(string); ok {
		input.Name = name
	}
	if raw, ok := user.UserMetadata["role"].(string); ok {
		if role := Role(raw); role.Valid() {
			input.Role = role
		}
	}
	return input
}

// SignOut ends the session. It never fails: provider revocation and
// snapshot removal are best effort, local invalidation is guaranteed.
func (s *Service) SignOut(ctx context.Context) {
	sess := s.sessions.Current()
	s.sessions.Clear(ctx)

	s.metrics.Inc(MetricSignOut)
	s.metrics.Inc(MetricSessionCleared)
	s.emitAudit(ctx, audit.EventSignOut, true, userIDOfSession(sess), "", nil, nil)
}

/*
====================================
SESSION
====================================
*/

// CurrentSession returns the held session if it is still valid, nil
// otherwise.
func (s *Service) CurrentSession() *Session {
	return s.sessions.Current()
}

// RefreshSession renews the token pair. Concurrent calls share one
// provider request.
func (s *Service) RefreshSession(ctx context.Context) (*Session, error) {
	sess, err := s.sessions.Refresh(ctx)
	if err != nil {
		return nil, s.fail(ctx, "refresh", err, MetricRefreshFailure, audit.EventRefreshFailure, "", "")
	}

	s.metrics.Inc(MetricRefreshSuccess)
	s.emitAudit(ctx, audit.EventRefreshSuccess, true, sess.IdentityUserID, "", nil, nil)
	return sess, nil
}

// RestoreSession adopts a previously persisted session, at most once
// per process lifetime. Absence of a restorable session is not an
// error; the result is nil and the caller proceeds unauthenticated.
func (s *Service) RestoreSession(ctx context.Context) (*Session, error) {
	sess, err := s.sessions.RestoreFromPersistence(ctx)
	if err != nil {
		return nil, s.fail(ctx, "restore", err, MetricRefreshFailure, audit.EventRefreshFailure, "", "")
	}
	if sess == nil {
		return nil, nil
	}

	s.metrics.Inc(MetricSessionRestored)
	s.emitAudit(ctx, audit.EventSessionRestored, true, sess.IdentityUserID, "", nil, nil)
	return sess, nil
}

/*
====================================
PROFILE
====================================
*/

// GetProfile returns the profile of the signed-in identity, or nil when
// no row exists yet; absence is not an error.
func (s *Service) GetProfile(ctx context.Context) (*UserProfile, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return nil, newAuthError(CodeNotAuthenticated, "no valid session", false, 0)
	}

	prof, err := s.profiles.GetProfile(ctx, sess.IdentityUserID)
	if err != nil {
		return nil, s.fail(ctx, "get_profile", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, sess.IdentityUserID, "")
	}
	return prof, nil
}

// UpdateProfile rewrites the signed-in identity's profile. The profile
// must belong to the session holder; a mismatch means the caller's
// session changed mid-operation and nothing is written.
func (s *Service) UpdateProfile(ctx context.Context, p *UserProfile) (*UserProfile, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return nil, newAuthError(CodeNotAuthenticated, "no valid session", false, 0)
	}
	if p == nil || p.ID != sess.IdentityUserID {
		return nil, s.fail(ctx, "update_profile", profile.ErrSessionMismatch, MetricProfileCreationFailed, audit.EventProfileCreationFailed, sess.IdentityUserID, "")
	}

	updated, err := s.profiles.UpdateProfile(ctx, p)
	if err != nil {
		return nil, s.fail(ctx, "update_profile", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, sess.IdentityUserID, "")
	}

	s.metrics.Inc(MetricProfileUpdated)
	s.emitAudit(ctx, audit.EventProfileUpdated, true, updated.ID, updated.Email, nil, nil)
	return updated, nil
}

// SyncProfile reconciles the signed-in identity's profile against the
// provider's current user record. Used to repair a signup whose profile
// creation exhausted its retries.
func (s *Service) SyncProfile(ctx context.Context) (*UserProfile, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return nil, newAuthError(CodeNotAuthenticated, "no valid session", false, 0)
	}

	user, err := s.provider.GetUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, s.fail(ctx, "sync_profile", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, sess.IdentityUserID, "")
	}

	prof, err := s.profiles.SyncProfile(ctx, sess.IdentityUserID, s.profileInputFor(user))
	if err != nil {
		return nil, s.fail(ctx, "sync_profile", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, sess.IdentityUserID, "")
	}

	s.metrics.Inc(MetricProfileCreated)
	s.emitAudit(ctx, audit.EventProfileCreated, true, prof.ID, prof.Email, nil, nil)
	return prof, nil
}

/*
====================================
PASSWORD RECOVERY
====================================
*/

// RequestPasswordReset asks the provider to email a recovery link. The
// provider responds identically whether or not the address is
// registered, and so does this method.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return validationError(CodeInvalidEmail, "email address is malformed")
	}

	if err := s.provider.ResetPasswordForEmail(ctx, email, s.config.Provider.RedirectTo); err != nil {
		return s.fail(ctx, "password_reset_request", err, MetricPasswordResetFailure, audit.EventPasswordResetFailure, "", email)
	}

	s.metrics.Inc(MetricPasswordResetRequest)
	s.emitAudit(ctx, audit.EventPasswordResetRequest, true, "", email, nil, nil)
	return nil
}

// ResetPassword exchanges a recovery token for a one-shot session and
// sets the new password through it. On success any held session is
// cleared so the user re-authenticates with the new credential; on
// failure the held session is untouched.
func (s *Service) ResetPassword(ctx context.Context, recoveryToken, newPassword string) error {
	if recoveryToken == "" {
		return validationError(CodeInvalidToken, "recovery token is required")
	}
	if len(newPassword) < minPasswordLength {
		return validationError(CodeWeakPassword,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	recoverySess, err := s.provider.VerifyToken(ctx, provider.VerifyRecovery, recoveryToken)
	if err != nil {
		return s.fail(ctx, "password_reset", err, MetricPasswordResetFailure, audit.EventPasswordResetFailure, "", "")
	}

	if err := s.provider.UpdateUserPassword(ctx, recoverySess.AccessToken, newPassword); err != nil {
		return s.fail(ctx, "password_reset", err, MetricPasswordResetFailure, audit.EventPasswordResetFailure, provider.SessionUserID(recoverySess), "")
	}

	// The credential changed; every outstanding token for the old one
	// is suspect.
	s.sessions.Clear(ctx)

	s.metrics.Inc(MetricPasswordResetSuccess)
	s.emitAudit(ctx, audit.EventPasswordResetSuccess, true, provider.SessionUserID(recoverySess), "", nil, nil)
	return nil
}

/*
====================================
EMAIL VERIFICATION
====================================
*/

// CompleteEmailVerification redeems a signup confirmation token, adopts
// the issued session, and materializes the profile from the identity's
// signup metadata.
func (s *Service) CompleteEmailVerification(ctx context.Context, token string) (*SignInResult, error) {
	if token == "" {
		return nil, validationError(CodeInvalidToken, "verification token is required")
	}

	pSess, err := s.provider.VerifyToken(ctx, provider.VerifySignup, token)
	if err != nil {
		return nil, s.fail(ctx, "verify_email", err, MetricSignInFailure, audit.EventSignInFailure, "", "")
	}

	local := toLocalSession(pSess)
	s.sessions.Adopt(local)

	user := pSess.User
	if user == nil {
		user, err = s.provider.GetUser(ctx, pSess.AccessToken)
		if err != nil {
			return nil, s.fail(ctx, "verify_email", err, MetricSignInFailure, audit.EventSignInFailure, local.IdentityUserID, "")
		}
	}

	prof, err := s.profiles.CreateProfileSafe(ctx, s.profileInputFor(user))
	if err != nil {
		return nil, s.fail(ctx, "verify_email", err, MetricProfileCreationFailed, audit.EventProfileCreationFailed, user.ID, user.Email)
	}

	s.metrics.Inc(MetricVerificationCompleted)
	s.metrics.Inc(MetricProfileCreated)
	s.emitAudit(ctx, audit.EventVerificationCompleted, true, user.ID, user.Email, nil, nil)
	return &SignInResult{User: user, Session: local, Profile: prof}, nil
}

// ResendVerification asks the provider to send a fresh confirmation
// email.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return validationError(CodeInvalidEmail, "email address is malformed")
	}

	if err := s.provider.Resend(ctx, provider.VerifySignup, email, s.config.Provider.RedirectTo); err != nil {
		authErr := s.classifier.Classify(err)
		s.classifier.Log(err, "resend_verification")
		if authErr.Code == CodeUnknownError {
			authErr = newAuthError(CodeVerificationResendFailed, authErr.Message, true, 0)
		}
		s.emitAudit(ctx, audit.EventVerificationResent, false, "", email, authErr, nil)
		return authErr
	}

	s.metrics.Inc(MetricVerificationResent)
	s.emitAudit(ctx, audit.EventVerificationResent, true, "", email, nil, nil)
	return nil
}

/*
====================================
LIFECYCLE
====================================
*/

// MetricsSnapshot returns a point-in-time copy of the service counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports how many audit events were shed under
// backpressure.
func (s *Service) AuditDropped() uint64 {
	if s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// Close releases background resources: the cooldown sweeper, the
// renewal timer, and the audit dispatcher. The session itself is not
// signed out.
func (s *Service) Close() {
	s.limiter.close()
	s.sessions.Close()
	if s.audit != nil {
		s.audit.Close()
	}
}

// fail classifies err, records it, and returns the canonical form.
func (s *Service) fail(ctx context.Context, op string, err error, metric MetricID, event audit.EventType, userID, email string) error {
	authErr := s.classifier.Classify(err)
	s.classifier.Log(err, op)
	s.metrics.Inc(metric)
	s.emitAudit(ctx, event, false, userID, email, authErr, nil)
	return authErr
}

func userIDOf(user *provider.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func userIDOfSession(sess *Session) string {
	if sess == nil {
		return ""
	}
	return sess.IdentityUserID
}
