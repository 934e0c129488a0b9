package domain

// Staff roles. Residents authenticate separately and carry RoleResident in their token.
const (
	RoleAdmin     = "admin"
	RoleCaregiver = "caregiver"
	RoleFamily    = "family"
	RoleResident  = "resident"
)

// User is a staff identity (users table).
type User struct {
	UserID       string `db:"id" json:"id"`                   // UUID, PRIMARY KEY
	TenantID     string `db:"facility_id" json:"facility_id"` // UUID, NOT NULL
	Email        string `db:"email" json:"email"`             // VARCHAR(255), UNIQUE
	PasswordHash string `db:"password_hash" json:"-"`         // bcrypt
	Name         string `db:"name" json:"name"`
	Role         string `db:"role" json:"role"` // admin | caregiver | family
	Active       bool   `db:"active" json:"active"`
}

// IsStaffRole reports whether role is one of the staff roles.
func IsStaffRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCaregiver, RoleFamily:
		return true
	}
	return false
}
