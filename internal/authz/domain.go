// Package authz decides whether an actor may perform an action. Every
// predicate is a pure function over an immutable Snapshot; refreshing the
// snapshot is the caller's concern.
package authz

import (
	"sort"
	"strings"
)

// Role is a coarse-grained user classification. The domain is open: new role
// names may appear without code changes.
type Role string

// Roles observed across the platform.
const (
	RoleClient     Role = "client"
	RoleRealtor    Role = "realtor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsSuperAdmin reports whether the role is the universal-access sentinel.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// PermissionName joins a resource and action into the canonical
// "resource:action" form. All permission string construction goes through
// here so call sites cannot drift on the separator.
func PermissionName(resource, action string) string {
	return resource + ":" + action
}

// Snapshot is the role and permission set of one user at one point in time.
// The zero value behaves as an unauthenticated actor: every check denies.
type Snapshot struct {
	UserID int64
	Role   Role
	perms  map[string]struct{}
}

// NewSnapshot builds a Snapshot from a role and a flat permission list.
// Permission strings are trimmed and lowercased; empty entries are dropped.
// A nil list means no permissions, not unknown permissions.
func NewSnapshot(userID int64, role Role, perms []string) Snapshot {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Snapshot{
		UserID: userID,
		Role:   Role(strings.TrimSpace(strings.ToLower(string(role)))),
		perms:  set,
	}
}

// Authenticated reports whether the snapshot belongs to a logged-in user.
// A valid session always carries a role, so an empty role means no user.
func (s Snapshot) Authenticated() bool {
	return s.Role != ""
}

// Permissions returns the granted permission strings in sorted order.
func (s Snapshot) Permissions() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
