package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of identities a token may carry.
type Role string

const (
	RolePatient    Role = "PATIENT"
	RolePhysician  Role = "PHYSICIAN"
	RolePharmacist Role = "PHARMACIST"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RolePatient, RolePhysician, RolePharmacist:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Authority is the role-derived grant name checked by route guards.
func (r Role) Authority() string { return "ROLE_" + string(r) }

// Principal is the authenticated identity attached to one request. It is
// built by the gate and never mutated afterwards.
type Principal struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
}

// Authority returns the grant derived from the principal's role.
func (p Principal) Authority() string { return p.Role.Authority() }

// DisplayName is "First Last".
func (p Principal) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Principal) IsPatient() bool    { return p.Role == RolePatient }
func (p Principal) IsPhysician() bool  { return p.Role == RolePhysician }
func (p Principal) IsPharmacist() bool { return p.Role == RolePharmacist }

// PrincipalLookup resolves the identity behind a verified token subject.
// It is backed by the persistence layer of the service that owns the accounts.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, email string) (Principal, error)
}

// PrincipalLookupFunc adapts a function to PrincipalLookup.
type PrincipalLookupFunc func(ctx context.Context, email string) (Principal, error)

func (f PrincipalLookupFunc) LookupPrincipal(ctx context.Context, email string) (Principal, error) {
	return f(ctx, email)
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
