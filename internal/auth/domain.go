package auth

import "time"

// User is an account that can sign in to the platform.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	RoleID       int64
	RoleName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
	RoleID   int64
}
