package profile

import "time"

// Role is the account role selected at signup.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// VerificationStatus tracks the review state of a seller account. Buyer
// and admin accounts stay unverified; only sellers enter the review
// pipeline.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusApproved   VerificationStatus = "approved"
	StatusRejected   VerificationStatus = "rejected"
)

// Profile is the application-side record for one identity. ID equals
// the identity provider's user ID; the two systems share a key, never
// a transaction.
type Profile struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Role               Role               `json:"role"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// InitialStatus returns the verification status a new profile starts
// with for the given role. Sellers enter review immediately.
func InitialStatus(role Role) VerificationStatus {
	if role == RoleSeller {
		return StatusPending
	}
	return StatusUnverified
}

// New builds a fresh profile for an identity, stamping both timestamps
// with now.
func New(id, email, name string, role Role, now time.Time) *Profile {
	return &Profile{
		ID:                 id,
		Email:              email,
		Name:               name,
		Role:               role,
		VerificationStatus: InitialStatus(role),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
