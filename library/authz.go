package library

// Requirement is the access level a view, menu entry or action asks for.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuth
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequireAuth:
		return "requiresAuth"
	case RequireAdmin:
		return "requiresAdmin"
	default:
		return "none"
	}
}

// CanAccess is the one authorization check. Guards, the menu and admin-only
// actions all ask it; none of them look at the role directly.
func CanAccess(identity *Identity, req Requirement) bool {
	switch req {
	case RequireNone:
		return true
	case RequireAuth:
		return identity != nil
	case RequireAdmin:
		return identity != nil && identity.Role == RoleAdmin
	default:
		return false
	}
}
