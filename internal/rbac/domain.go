package rbac

import "time"

// Role represents a high-level permission grouping. Each user carries
// exactly one role.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic "resource:action" capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// Assignment ties a permission to a role.
type Assignment struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}
