// Package revocation holds the optional logout revocation set.
//
// Tokens are stateless, so a replayed cookie keeps verifying until its
// natural expiry. When Redis is configured, sign-out records the token's jti
// until the exp timestamp and get-session rejects revoked tokens. Without
// Redis the set degrades to a no-op and logout is cookie-clearing only.
package revocation

import (
	"context"
	"time"
)

// Store records revoked token identifiers until their natural expiry.
type Store interface {
	// Revoke marks the token id as revoked for the given remaining lifetime.
	// Non-positive ttl is a no-op: the token is already expired.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether the token id has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Noop is the Store used when no Redis is configured. Nothing is ever
// revoked; expiry remains the only invalidation mechanism.
type Noop struct{}

func (Noop) Revoke(ctx context.Context, jti string, ttl time.Duration) error { return nil }

func (Noop) IsRevoked(ctx context.Context, jti string) (bool, error) { return false, nil }
