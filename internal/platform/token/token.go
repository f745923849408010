// Package token issues and verifies the stateless bearer tokens that carry a
// caller's identity between the client and the front services.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is used when a Service is built with a non-positive TTL.
const DefaultTTL = 30 * time.Minute

// ErrInvalidToken is returned for any token that is malformed, badly signed,
// expired or missing its subject.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the information embedded in an issued token.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Issued is a signed token with its expiry.
type Issued struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service signs and verifies HS256 tokens with the key from its KeyProvider.
type Service struct {
	keys   KeyProvider
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim written and required by the service.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service.
func NewService(keys KeyProvider, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{keys: keys, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for id, valid from now until now+TTL.
func (s *Service) Issue(id Identity) (Issued, error) {
	if id.Email == "" {
		return Issued{}, fmt.Errorf("issue token: subject is required")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Role:      id.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys.SigningKey())
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Parse verifies tokenStr and returns its claims.
func (s *Service) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.keys.SigningKey(), nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// VerifySubject returns the subject (email) of a valid token.
func (s *Service) VerifySubject(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether tokenStr verifies and belongs to expectedSubject.
func (s *Service) IsValid(tokenStr, expectedSubject string) bool {
	sub, err := s.VerifySubject(tokenStr)
	return err == nil && sub == expectedSubject
}
