package shared

// Core platform permissions.
const (
	PermUsersRead = "users:read"
	PermUsersEdit = "users:edit"

	PermRolesRead = "roles:read"
	PermRolesEdit = "roles:edit"

	PermPermissionsRead = "permissions:read"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersEdit,
		PermRolesRead,
		PermRolesEdit,
		PermPermissionsRead,
	}
}
