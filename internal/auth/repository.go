package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// isUniqueViolation reports whether the error is a postgres unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RepositoryPort abstracts user persistence for the auth service.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
}

// Repository is the postgres implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.full_name, u.password_hash, COALESCE(u.role_id, 0),
COALESCE(r.name, ''), u.is_active, u.created_at, u.updated_at`

// FindByEmail returns the user with the given email, nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN roles r ON r.id = u.role_id
WHERE lower(u.email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row)
}

// FindByID returns the user with the given ID, nil when absent.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+`
FROM users u LEFT JOIN roles r ON r.id = u.role_id
WHERE u.id = $1`, id)
	return scanUser(row)
}

// Create inserts a new user record.
func (r *Repository) Create(ctx context.Context, user User) (*User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role_id, is_active, created_at, updated_at)
VALUES (lower($1), $2, $3, NULLIF($4, 0), true, now(), now())
RETURNING id, created_at, updated_at`, user.Email, user.FullName, user.PasswordHash, user.RoleID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	user.IsActive = true
	return &user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.RoleID,
		&user.RoleName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
