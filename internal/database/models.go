package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the database model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Verified     bool      `bun:"verified,notnull,default:false"`
	RegisteredAt time.Time `bun:"registered_at,notnull"`

	// Profile
	Name     string  `bun:"name,notnull"`
	Pronouns *string `bun:"pronouns"`
	URL      *string `bun:"url"`
	Location *string `bun:"location"`
	Bio      *string `bun:"bio"`
}

// RevokedToken is the database model for the token revocation ledger.
// A row's presence makes the token with that jti permanently unusable;
// rows may be pruned once expires_at has passed.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens"`

	TokenID   string    `bun:"token_id,pk"`
	RevokedAt time.Time `bun:"revoked_at,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
