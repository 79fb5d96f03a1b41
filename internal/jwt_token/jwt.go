// Package jwttoken signs and verifies the staff access tokens that guard the
// admin API.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "trainingcenter/pkg/domain-errors"
)

// Audience is the only audience admin tokens are accepted for.
const Audience = "trainingcenter-admin"

// Claims carries the staff role next to the registered claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 tokens for one issuer.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
	leeway     time.Duration
}

type Option func(*JWTService)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// WithLeeway tolerates clock skew between the portal and this service.
func WithLeeway(d time.Duration) Option {
	return func(s *JWTService) { s.leeway = d }
}

func NewJWTService(signingKey, issuer string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken signs a token for a staff member. Tokens are normally
// issued by the portal's sign-in service; this serves local tooling and tests.
func (s *JWTService) GenerateAccessToken(staffID, role string, expiresIn time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   staffID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateToken verifies signature, issuer, audience and expiry. Every
// failure is reported as unauthorized.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.Subject == "" || claims.Role == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) {
	return s.signingKey, nil
}
