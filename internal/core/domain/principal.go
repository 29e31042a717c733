package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role determines which route groups a principal may reach.
type Role string

const (
	RoleUser         Role = "user"
	RolePsychologist Role = "psychologist"
	RoleAdmin        Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePsychologist, RoleAdmin:
		return true
	}
	return false
}

// Permits reports whether a principal holding r may pass a gate requiring required.
// Roles are not hierarchical: only an exact match is allowed.
func (r Role) Permits(required Role) bool {
	return r.Valid() && r == required
}

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}

// Profile holds the optional, role-specific fields of a principal.
type Profile struct {
	Name           string `json:"name,omitempty" bson:"name,omitempty"`
	Address        string `json:"address,omitempty" bson:"address,omitempty"`
	Phone          string `json:"phone,omitempty" bson:"phone,omitempty"`
	Bio            string `json:"bio,omitempty" bson:"bio,omitempty"`
	Specialization string `json:"specialization,omitempty" bson:"specialization,omitempty"`
	LicenseNumber  string `json:"license_number,omitempty" bson:"license_number,omitempty"`
}

// Principal is the credential record of a user, psychologist or admin.
type Principal struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Profile      Profile   `json:"profile"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sanitized returns a copy of p with the password hash cleared.
func (p *Principal) Sanitized() *Principal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail trims and lowercases an email so it can be used as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	PrincipalID string
	Role        Role
	TokenID     string
	ExpiresAt   time.Time
}
