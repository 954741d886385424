package shared

// Finance permissions gate payment plans and commission panels.
const (
	PermPaymentsRead = "payments:read"
	PermPaymentsEdit = "payments:edit"

	PermCommissionsRead = "commissions:read"
)

// FinanceScopes lists all finance permissions.
func FinanceScopes() []string {
	return []string{
		PermPaymentsRead,
		PermPaymentsEdit,
		PermCommissionsRead,
	}
}
