package user

import (
	"time"
)

// User is the domain model for an account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Verified     bool      `json:"verified"`
	RegisteredAt time.Time `json:"registered_at"`

	// Profile
	Name     string  `json:"name"`
	Pronouns *string `json:"pronouns,omitempty"`
	URL      *string `json:"url,omitempty"`
	Location *string `json:"location,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}
