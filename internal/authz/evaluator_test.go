package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasPermissionExactMatch(t *testing.T) {
	snap := NewSnapshot(7, RoleRealtor, []string{"properties:read", "leads:read"})

	require.True(t, snap.HasPermission("properties", "read"))
	require.False(t, snap.HasPermission("properties", "delete"))
	require.False(t, snap.HasPermission("leads", "edit"))
	require.True(t, snap.HasPermissionName("leads:read"))
}

func TestHasPermissionUnauthenticated(t *testing.T) {
	var zero Snapshot
	require.False(t, zero.HasPermission("properties", "read"))
	require.False(t, zero.CanAccess("properties"))
	require.False(t, zero.HasRole(RoleAdmin))

	// A role-less snapshot denies even when the set contains the string.
	snap := NewSnapshot(1, "", []string{"properties:read"})
	require.False(t, snap.HasPermission("properties", "read"))
}

func TestSuperAdminBypassesEverything(t *testing.T) {
	snap := NewSnapshot(1, RoleSuperAdmin, nil)

	require.True(t, snap.HasPermission("properties", "delete"))
	require.True(t, snap.CanAccess("anything"))
	require.True(t, snap.CanAccess("anything", "whatsoever"))
	require.True(t, snap.HasRole(RoleClient))
	require.True(t, snap.Allows([]string{"a:b", "c:d"}, true))
}

func TestCanAccessResourcePrefix(t *testing.T) {
	snap := NewSnapshot(7, RoleRealtor, []string{"properties:read", "leads:read"})

	require.True(t, snap.CanAccess("leads"))
	require.True(t, snap.CanAccess("properties"))
	require.False(t, snap.CanAccess("clients"))
	// Prefix match is on the resource segment only, not a general wildcard.
	require.False(t, snap.CanAccess("prop"))
	require.True(t, snap.CanAccess("properties", "read"))
	require.False(t, snap.CanAccess("properties", "edit"))
}

func TestHasRoleMembership(t *testing.T) {
	snap := NewSnapshot(7, RoleRealtor, []string{"properties:read", "leads:read"})

	require.True(t, snap.HasRole(RoleRealtor))
	require.False(t, snap.HasRole(RoleAdmin, RoleSuperAdmin))
	require.True(t, snap.HasAnyRole([]Role{RoleRealtor, RoleManager}))
}

func TestHasAnyRoleEmptyListIsFalse(t *testing.T) {
	for _, role := range []Role{RoleClient, RoleRealtor, RoleManager, RoleAdmin, RoleSuperAdmin} {
		snap := NewSnapshot(1, role, nil)
		require.False(t, snap.HasAnyRole(nil), "role %s", role)
		require.False(t, snap.HasAnyRole([]Role{}), "role %s", role)
	}
}

func TestAllowsComposite(t *testing.T) {
	snap := NewSnapshot(7, RoleManager, []string{"payments:read"})

	require.True(t, snap.Allows([]string{"payments:read", "payments:edit"}, false))
	require.False(t, snap.Allows([]string{"payments:read", "payments:edit"}, true))
	require.True(t, snap.Allows([]string{"payments:read"}, true))
	require.False(t, snap.Allows([]string{"payments:edit"}, false))

	// An empty requirement list never restricts.
	require.True(t, snap.Allows(nil, true))
	require.True(t, snap.Allows(nil, false))
}

func TestNewSnapshotNormalizes(t *testing.T) {
	snap := NewSnapshot(7, Role(" Realtor "), []string{" Properties:Read ", "", "properties:read"})

	require.Equal(t, RoleRealtor, snap.Role)
	require.Equal(t, []string{"properties:read"}, snap.Permissions())
}

func TestPermissionName(t *testing.T) {
	require.Equal(t, "properties:read", PermissionName("properties", "read"))
}
