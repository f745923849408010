// Package identity owns the accounts of one role: registration, password
// login and the principal lookup behind the authentication gate. Each front
// service mounts it for the role it serves.
package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
)

const MinPasswordLength = 8

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal is the request identity for a.
func (a *Account) Principal() auth.Principal {
	return auth.Principal{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate normalizes and checks the request in place.
func (r *RegisterRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return apperr.Validation("A valid email address is required.")
	}
	if len(r.Password) < MinPasswordLength {
		return apperr.Validation("Password must be at least %d characters.", MinPasswordLength)
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" || r.LastName == "" {
		return apperr.Validation("First and last name are required.")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      auth.Role `json:"role"`
}

// NormalizeEmail lower-cases and trims an address; it is the token subject.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
