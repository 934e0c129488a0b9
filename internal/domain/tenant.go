package domain

import "time"

// Tenant is a care facility (facilities table). It is the isolation boundary:
// staff, residents and everything hanging off them belong to exactly one tenant.
type Tenant struct {
	TenantID     string    `db:"id" json:"id"`                       // UUID, PRIMARY KEY
	Name         string    `db:"name" json:"name"`                   // VARCHAR(200), NOT NULL
	Slug         string    `db:"slug" json:"slug"`                   // VARCHAR(100), UNIQUE, used for resident login
	ContactEmail string    `db:"contact_email" json:"contact_email"` // VARCHAR(255), NOT NULL
	MaxResidents int       `db:"max_residents" json:"max_residents"` // INTEGER, DEFAULT 10
	CreatedAt    time.Time `db:"created_at" json:"created_at"`       // TIMESTAMPTZ
	Active       bool      `db:"active" json:"active"`               // BOOLEAN, DEFAULT TRUE
}
