package domain

// Roles carried in access credentials. The role is fixed at issuance and
// trusted until the credential expires or is revoked.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// ValidRole reports whether r is a role this service issues.
func ValidRole(r string) bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}
