package entity

// Role ID constants, as carried in access token claims
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
	RoleIDStaff   = 4
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleStaff   = "staff"
)

// RoleName returns the name for a role id, or an empty string
func RoleName(roleID int) string {
	switch roleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDDoctor:
		return RoleDoctor
	case RoleIDPatient:
		return RolePatient
	case RoleIDStaff:
		return RoleStaff
	default:
		return ""
	}
}
