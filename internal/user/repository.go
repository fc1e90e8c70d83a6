package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/account-service/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new user and returns it with the store-assigned ID.
// The unique index on email is the backstop for concurrent signups: exactly
// one of two racing inserts succeeds, the other maps to ErrDuplicateEmail.
func (r *Repository) Insert(ctx context.Context, u *User) (*User, error) {
	dbUser := mapModelToDBUser(u)

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByEmail retrieves a user by email. Lookup is byte-exact; no normalization.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByID retrieves a user by ID
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Update persists the mutable account fields (email, password hash,
// verification flag) and the profile fields for an existing user.
func (r *Repository) Update(ctx context.Context, u *User) error {
	dbUser := mapModelToDBUser(u)

	result, err := r.db.NewUpdate().
		Model(dbUser).
		Column("email", "password_hash", "verified", "name", "pronouns", "url", "location", "bio").
		WherePK().
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user entirely
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Verified:     dbu.Verified,
		RegisteredAt: dbu.RegisteredAt,
		Name:         dbu.Name,
		Pronouns:     dbu.Pronouns,
		URL:          dbu.URL,
		Location:     dbu.Location,
		Bio:          dbu.Bio,
	}
}

// mapModelToDBUser converts domain model to database model
func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Verified:     u.Verified,
		RegisteredAt: u.RegisteredAt,
		Name:         u.Name,
		Pronouns:     u.Pronouns,
		URL:          u.URL,
		Location:     u.Location,
		Bio:          u.Bio,
	}
}
