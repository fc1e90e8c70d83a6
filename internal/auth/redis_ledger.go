package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a revocation ledger backed by Redis. Entries carry a TTL
// matching the token's natural expiry, so the ledger prunes itself.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

// revokedKey generates the Redis key for a revoked token id
func revokedKey(tokenID string) string {
	return fmt.Sprintf("revoked_token:%s", tokenID)
}

// IsRevoked reports whether the token id has been revoked
func (l *RedisLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := l.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return exists > 0, nil
}

// Revoke marks the token id as revoked until the token's natural expiry.
// A token that has already expired needs no ledger entry.
func (l *RedisLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := l.client.Set(ctx, revokedKey(tokenID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
