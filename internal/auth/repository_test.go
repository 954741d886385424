package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestUniqueViolationDetection(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uq_users_email"}
	require.True(t, isUniqueViolation(dup))
	require.True(t, isUniqueViolation(fmt.Errorf("insert user: %w", dup)))

	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUniqueViolation(errors.New("connection reset")))
	require.False(t, isUniqueViolation(nil))
}
