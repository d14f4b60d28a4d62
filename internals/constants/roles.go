package constants

import "fmt"

// Template pesan error role
const (
	ErrOnlyAdminsCanAccess = "only admin accounts can access %s"
)

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

// ==========================
// Roles
// ==========================
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var (
	AllRoles = []string{
		RoleStudent,
		RoleTeacher,
		RoleAdmin,
	}

	AdminOnly = []string{
		RoleAdmin,
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ==========================
// Provenance of user records
// ==========================
const (
	SourceLocal = "local"
	SourceCSV   = "csv"
	SourceGLPI  = "glpi"
)
