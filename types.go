package authcore

import (
	"github.com/softprint/authcore/profile"
	"github.com/softprint/authcore/provider"
	"github.com/softprint/authcore/session"
)

// Aliases re-exported so integrators depend on one package for the
// service surface.
type (
	// UserProfile is the application-side record for one identity.
	UserProfile = profile.Profile
	// Role is the account role selected at signup.
	Role = profile.Role
	// VerificationStatus tracks the review state of a seller account.
	VerificationStatus = profile.VerificationStatus
	// User is the provider-held identity record.
	User = provider.User
	// Session is the locally managed token pair.
	Session = session.Session
)

const (
	RoleBuyer  = profile.RoleBuyer
	RoleSeller = profile.RoleSeller
	RoleAdmin  = profile.RoleAdmin

	StatusUnverified = profile.StatusUnverified
	StatusPending    = profile.StatusPending
	StatusApproved   = profile.StatusApproved
	StatusRejected   = profile.StatusRejected
)

// SignUpRequest carries everything a new registration needs. All fields
// are validated locally before any network call.
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// SignUpResult reports the outcome of a successful registration.
// NeedsVerification is true when the provider withheld tokens pending
// email confirmation; in that case no session, user, or profile is
// exposed, and the identity surfaces after [Service.CompleteEmailVerification]
// or the first sign-in.
type SignUpResult struct {
	NeedsVerification bool
	User              *User
	Profile           *UserProfile
}

// SignInResult reports the outcome of a successful authentication.
type SignInResult struct {
	User    *User
	Session *Session
	Profile *UserProfile
}
