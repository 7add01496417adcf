// Package token mints and verifies the HS256 JWTs used for sessions and
// password resets. Both kinds share one signing secret and are told apart by
// the "typ" claim, so a reset token never authenticates a request.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose distinguishes session tokens from reset tokens.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
)

var (
	ErrInvalid       = errors.New("token invalid")
	ErrWrongPurpose  = errors.New("token purpose mismatch")
	ErrMissingSecret = errors.New("token secret is empty")
)

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"typ"`
}

// Manager signs and parses tokens with a single HMAC secret.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager returns a Manager for secret.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Manager{secret: []byte(secret), now: time.Now}, nil
}

// Mint signs a token for userID valid for ttl and returns it with its expiry.
// Every token carries a random jti, so two tokens minted in the same second differ.
func (m *Manager) Mint(userID string, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", purpose, err)
	}
	return signed, exp, nil
}

// Parse verifies signature, algorithm and expiry, checks the purpose and
// returns the claims.
func (m *Manager) Parse(raw string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims, nil
}
