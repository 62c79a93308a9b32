// Package token issues and parses the signed bearer tokens used to
// authenticate API requests. Tokens are stateless HS256 JWTs carrying the
// username as subject; validity is determined purely by signature and expiry,
// so revocation is not supported.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Type is the token type tag reported alongside issued tokens.
const Type = "bearer"

// Service signs and verifies bearer tokens with a symmetric secret.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

// New creates a token Service. The signing key must be non-empty and the
// time-to-live positive.
func New(signingKey []byte, ttl time.Duration) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be positive")
	}

	return &Service{
		signingKey: signingKey,
		ttl:        ttl,
	}, nil
}

// Issue returns a signed compact token for the given username,
// expiring after the service TTL.
func (s *Service) Issue(username string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return tokenString, nil
}

// Parse verifies the token's signature and expiry and returns the subject
// username. Any structural or signature failure, expiry included, yields
// no identity rather than an error; a tampered token never yields a username.
func (s *Service) Parse(tokenString string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}

	return claims.Subject, true
}
