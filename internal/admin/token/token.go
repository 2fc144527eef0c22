// Package token issues and validates the bearer tokens admins present on the
// admin surface. The subject is the admin's wallet identity; authorization is
// decided by the admin record, not by claims.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

const DefaultAudience = "onboard-admin"

// Claims are the JWT claims of an admin token.
type Claims struct {
	Env string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and validates HS256 admin tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	env        string
	now        func() time.Time
}

type Option func(*Service)

func WithEnv(env string) Option {
	return func(s *Service) {
		s.env = env
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(signingKey, issuer string, ttl time.Duration, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   DefaultAudience,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for identity and returns it with its expiry.
func (s *Service) Issue(identity id.Identity) (string, time.Time, error) {
	if identity.IsZero() {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Env: s.env,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        hex.EncodeToString(b),
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks signature, expiry, issuer and audience and returns the
// identity in the subject.
func (s *Service) Validate(tokenString string) (id.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	identity, err := id.ParseIdentity(claims.Subject)
	if err != nil || identity.IsZero() {
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a wallet identity")
	}
	return identity, nil
}
