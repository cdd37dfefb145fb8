package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haletran/todo-auth-service/internal/core/domain"
)

// uniqueViolation is the Postgres error code raised when the users.email
// unique index rejects an insert.
const uniqueViolation = "23505"

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{pool: pool}
}

// GetByEmail returns the user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	query := `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE email = $1`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&row.ID, &row.Email, &row.PasswordHash, &row.Name, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id int64) (*domain.UserRow, error) {
	query := `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE id = $1`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Email, &row.PasswordHash, &row.Name, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// Create inserts a new user and returns the generated user ID.
// A unique-index violation on email maps to domain.ErrDuplicateEmail so the
// concurrent-signup race surfaces as a duplicate error, not a lost update.
func (r *PgxUserRepository) Create(ctx context.Context, email, passwordHash string, name *string) (int64, error) {
	query := `INSERT INTO users (email, password_hash, name) VALUES ($1, $2, $3) RETURNING id`

	var userID int64
	err := r.pool.QueryRow(ctx, query, email, passwordHash, name).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateEmail
		}
		return 0, err
	}

	return userID, nil
}

// TouchUpdated sets the updated_at timestamp to now for the given user.
func (r *PgxUserRepository) TouchUpdated(ctx context.Context, id int64) error {
	query := `UPDATE users SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
