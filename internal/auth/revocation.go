package auth

import (
	"context"
	"time"
)

// Ledger records token identifiers that have been explicitly revoked (logout).
// Presence of a token id makes that token permanently unusable regardless of
// its embedded expiry. Revoking an already-revoked id succeeds. Entries may be
// pruned once the token's natural expiry has passed.
type Ledger interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}
