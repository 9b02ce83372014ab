package repository

import (
	"context"
	"time"
)

// TokenBlacklist records revoked refresh tokens by their jti.
type TokenBlacklist interface {
	// Add stores jti for ttl. It returns false when jti was already blacklisted.
	Add(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
}
