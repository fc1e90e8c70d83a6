package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/account-service/internal/database"
)

// Repository is a revocation ledger backed by Postgres, for deployments
// that run without Redis. Rows are never updated; PruneExpired removes
// entries whose tokens have expired on their own.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// IsRevoked reports whether the token id has been revoked
func (r *Repository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.RevokedToken)(nil)).
		Where("token_id = ?", tokenID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return count > 0, nil
}

// Revoke records the token id in the ledger. Revoking an id twice is a no-op,
// so logout stays idempotent.
func (r *Repository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	entry := &database.RevokedToken{
		TokenID:   tokenID,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().
		Model(entry).
		On("CONFLICT (token_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// PruneExpired removes ledger entries for tokens past their natural expiry.
// Safe to run offline on a schedule.
func (r *Repository) PruneExpired(ctx context.Context) error {
	_, err := r.db.NewDelete().
		Model((*database.RevokedToken)(nil)).
		Where("expires_at < NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return nil
}
