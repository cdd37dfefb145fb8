// Package token mints and verifies the stateless HS256 tokens carried in the
// auth_token cookie. Tokens are not stored server-side; expiry is the only
// built-in invalidation mechanism.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, ordered from least to most specific. Handlers map
// all three to 401; the session gate additionally distinguishes ErrExpired
// to surface the "session expired" banner.
var (
	ErrMalformed = errors.New("token malformed")
	ErrSignature = errors.New("token signature invalid")
	ErrExpired   = errors.New("token expired")
)

// Claims is the payload of every issued token. The legacy user_id and email
// claims are kept alongside the registered sub claim because the task
// backend reads them directly.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens. It exclusively owns the signing
// secret; no other component reads it. Verification is a pure computation
// over the secret and the clock, never I/O.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager with the given secret and token lifetime.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime. The cookie Max-Age must match it.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue mints a signed token for the given identity, expiring ttl from now.
// Each token carries a fresh jti, so two tokens for the same user are never
// bitwise identical.
func (m *Manager) Issue(userID int64, email string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify validates signature and expiry and recovers the claims.
//
// Failure modes:
//   - ErrMalformed: the string does not parse as a three-part token.
//   - ErrSignature: the signature does not match the secret.
//   - ErrExpired: the exp claim is in the past.
//
// A token without an exp claim verifies indefinitely. That matches the
// upstream contract; see DESIGN.md before tightening it.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !parsed.Valid {
		return nil, ErrSignature
	}

	return claims, nil
}
