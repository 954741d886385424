package shared

// Brokerage permissions cover listings and the people around them.
const (
	PermPropertiesRead   = "properties:read"
	PermPropertiesEdit   = "properties:edit"
	PermPropertiesDelete = "properties:delete"

	PermLeadsRead = "leads:read"
	PermLeadsEdit = "leads:edit"

	PermClientsRead = "clients:read"
	PermClientsEdit = "clients:edit"

	PermRealtorsRead = "realtors:read"
	PermRealtorsEdit = "realtors:edit"
)

// BrokerageScopes lists all brokerage permissions.
func BrokerageScopes() []string {
	return []string{
		PermPropertiesRead,
		PermPropertiesEdit,
		PermPropertiesDelete,
		PermLeadsRead,
		PermLeadsEdit,
		PermClientsRead,
		PermClientsEdit,
		PermRealtorsRead,
		PermRealtorsEdit,
	}
}
