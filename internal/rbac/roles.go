package rbac

// Role names. Keep these stable; they are part of auth contracts and are
// persisted on staff records.
const (
	// RoleAdmin manages the roster and can clear history.
	RoleAdmin = "admin"
	// RoleOperator places calls and reads the roster/history.
	RoleOperator = "operator"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// Valid reports whether role is a known role value.
func Valid(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator:
		return true
	default:
		return false
	}
}
