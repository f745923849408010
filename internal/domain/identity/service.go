package identity

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/token"
)

var errBadCredentials = &apperr.UnauthorizedError{Reason: "invalid email or password"}

// Issuer mints bearer tokens.
type Issuer interface {
	Issue(id token.Identity) (token.Issued, error)
}

type Service struct {
	repo   Repository
	tokens Issuer
	role   auth.Role
	cost   int
	logger zerolog.Logger

	// dummyHash is compared against when the email is unknown so that a
	// miss costs as much as a wrong password.
	dummyHash []byte
}

// NewService serves accounts of a single role.
func NewService(repo Repository, tokens Issuer, role auth.Role, logger zerolog.Logger) *Service {
	return newService(repo, tokens, role, bcrypt.DefaultCost, logger)
}

func newService(repo Repository, tokens Issuer, role auth.Role, cost int, logger zerolog.Logger) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("medrec-unknown-account"), cost)
	return &Service{repo: repo, tokens: tokens, role: role, cost: cost, logger: logger, dummyHash: dummy}
}

func (s *Service) Role() auth.Role { return s.role }

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Validation("Password cannot be used.")
	}
	a := &Account{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         s.role,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Str("role", string(a.Role)).Msg("account registered")
	return a, nil
}

// Login checks the password and issues a token whose subject is the email.
// Every credential failure looks the same to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	a, err := s.repo.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if !apperr.IsNotFound(err) {
			return nil, err
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Error().Err(err).Str("account_id", a.ID.String()).Msg("stored password hash unusable")
		}
		return nil, errBadCredentials
	}

	issued, err := s.tokens.Issue(token.Identity{
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      string(a.Role),
	})
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt, Role: a.Role}, nil
}

// LookupPrincipal implements auth.PrincipalLookup.
func (s *Service) LookupPrincipal(ctx context.Context, email string) (auth.Principal, error) {
	a, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return auth.Principal{}, err
	}
	return a.Principal(), nil
}
