package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
// The unique index on users.email is the sole defense against concurrent
// signups for the same address; a losing writer gets this error, never a
// lost update.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRow represents a user record returned from the database.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type UserRepository interface {
	// GetByEmail returns the user matching the given email, compared exactly
	// as stored (no case normalization).
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*UserRow, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int64) (*UserRow, error)

	// Create inserts a new user and returns the generated user ID.
	// Returns ErrDuplicateEmail when the email is already present.
	Create(ctx context.Context, email, passwordHash string, name *string) (int64, error)

	// TouchUpdated sets the updated_at timestamp to now for the given user.
	TouchUpdated(ctx context.Context, id int64) error
}
