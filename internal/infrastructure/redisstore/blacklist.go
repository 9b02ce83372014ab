package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist keeps revoked refresh-token jtis in Redis until the token would have expired anyway.
type TokenBlacklist struct {
	rdb *redis.Client
}

func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

func blacklistKey(jti string) string { return blacklistPrefix + jti }

// Add is atomic: of two concurrent logouts with the same token exactly one gets true.
func (b *TokenBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	return b.rdb.SetNX(ctx, blacklistKey(jti), time.Now().UTC().Unix(), ttl).Result()
}

func (b *TokenBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
