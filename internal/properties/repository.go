package properties

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the postgres implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
