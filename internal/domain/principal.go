package domain

// Role is an authorization role carried by a principal.
type Role string

const (
	// RoleAdmin sees and mutates every row.
	RoleAdmin Role = "ROLE_ADMIN"
	// RoleCompanyAdmin is confined to rows owned by its own customer.
	RoleCompanyAdmin Role = "ROLE_COMPANY_ADMIN"
	// RoleUser is the default role assigned to created users.
	RoleUser Role = "ROLE_USER"
)

// Principal is the authenticated caller of a request. It is resolved once by
// the JWT middleware and passed explicitly into every scoping decision;
// nothing below the handler layer looks it up ambiently.
type Principal struct {
	UserID     int64
	Username   string
	Role       Role
	CustomerID *int64 // required for RoleCompanyAdmin, nil for RoleAdmin
}

// PrimaryRole picks the strongest role out of a stored role set.
func PrimaryRole(roles []string) Role {
	best := RoleUser
	for _, r := range roles {
		switch Role(r) {
		case RoleAdmin:
			return RoleAdmin
		case RoleCompanyAdmin:
			best = RoleCompanyAdmin
		}
	}
	return best
}
