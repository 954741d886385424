package authz

import "strings"

// HasPermission reports whether the snapshot grants "<resource>:<action>".
// Superadmin passes unconditionally, even over an empty permission set.
func (s Snapshot) HasPermission(resource, action string) bool {
	return s.HasPermissionName(PermissionName(resource, action))
}

// HasPermissionName is HasPermission over a pre-joined permission string.
func (s Snapshot) HasPermissionName(perm string) bool {
	if !s.Authenticated() {
		return false
	}
	if s.Role.IsSuperAdmin() {
		return true
	}
	_, ok := s.perms[perm]
	return ok
}

// CanAccess reports whether the snapshot grants anything on the resource.
// With no action it is a prefix match on the "<resource>:" segment only;
// with an action it is an exact HasPermission check.
func (s Snapshot) CanAccess(resource string, action ...string) bool {
	if !s.Authenticated() {
		return false
	}
	if s.Role.IsSuperAdmin() {
		return true
	}
	if len(action) > 0 && action[0] != "" {
		return s.HasPermission(resource, action[0])
	}
	prefix := resource + ":"
	for p := range s.perms {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// HasRole reports whether the user's role is one of the candidates.
// An empty candidate list is false for every role, superadmin included.
func (s Snapshot) HasRole(roles ...Role) bool {
	return s.HasAnyRole(roles)
}

// HasAnyRole reports whether the user's role is a member of the given set.
func (s Snapshot) HasAnyRole(roles []Role) bool {
	if !s.Authenticated() || len(roles) == 0 {
		return false
	}
	if s.Role.IsSuperAdmin() {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Allows evaluates a composite permission gate. With requireAll every listed
// permission must hold; otherwise one suffices. An empty list always allows.
func (s Snapshot) Allows(required []string, requireAll bool) bool {
	if len(required) == 0 {
		return true
	}
	if requireAll {
		for _, p := range required {
			if !s.HasPermissionName(p) {
				return false
			}
		}
		return true
	}
	for _, p := range required {
		if s.HasPermissionName(p) {
			return true
		}
	}
	return false
}
