package turnstile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TokenTTL matches the lifetime of a Turnstile token.
	TokenTTL = 300 * time.Second

	replayKeyPrefix = "exchange:turnstile:"
)

// RedisReplayGuard marks redeemed tokens in Redis so a token is accepted at
// most once even across instances.
type RedisReplayGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisReplayGuard returns nil for a nil client.
func NewRedisReplayGuard(rdb *redis.Client) *RedisReplayGuard {
	if rdb == nil {
		return nil
	}
	return &RedisReplayGuard{rdb: rdb, ttl: TokenTTL}
}

// Claim marks the token as seen. It fails with ErrTokenReplayed when the
// token was claimed before.
func (g *RedisReplayGuard) Claim(ctx context.Context, token string) error {
	set, err := g.rdb.SetNX(ctx, replayKey(token), 1, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: replay guard: %v", ErrUnavailable, err)
	}
	if !set {
		return ErrTokenReplayed
	}
	return nil
}

// Release forgets a claim.
func (g *RedisReplayGuard) Release(ctx context.Context, token string) error {
	if err := g.rdb.Del(ctx, replayKey(token)).Err(); err != nil {
		return fmt.Errorf("turnstile: replay guard release: %w", err)
	}
	return nil
}

// Tokens are hashed so raw tokens never sit in Redis.
func replayKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return replayKeyPrefix + hex.EncodeToString(sum[:])
}
