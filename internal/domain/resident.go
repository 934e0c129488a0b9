package domain

import "time"

// Cognitive support levels.
const (
	CognitiveNormal   = "normal"
	CognitiveMild     = "mild_impairment"
	CognitiveModerate = "moderate_impairment"
)

// Address forms (German informal/formal).
const (
	AddressFormDu  = "du"
	AddressFormSie = "sie"
)

// DefaultAvatarName is the persona name used when a resident has none configured.
const DefaultAvatarName = "Anni"

// Resident is a person in care (residents table). Residents are soft-deactivated,
// never hard-deleted while referenced.
type Resident struct {
	ResidentID     string    `db:"id" json:"id"`                   // UUID, PRIMARY KEY
	TenantID       string    `db:"facility_id" json:"facility_id"` // UUID, NOT NULL
	FirstName      string    `db:"first_name" json:"first_name"`   // VARCHAR(100), NOT NULL
	DisplayName    string    `db:"display_name" json:"display_name,omitempty"`
	PINHash        string    `db:"pin" json:"-"`                           // bcrypt hash of the PIN, nullable
	AddressForm    string    `db:"address_form" json:"address_form"`       // du | sie
	Language       string    `db:"language" json:"language"`               // DEFAULT 'de'
	CognitiveLevel string    `db:"cognitive_level" json:"cognitive_level"` // normal | mild_impairment | moderate_impairment
	AvatarName     string    `db:"avatar_name" json:"avatar_name"`         // DEFAULT 'Anni'
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Active         bool      `db:"active" json:"active"`
}

// Name returns the display name if set, otherwise the first name.
func (r *Resident) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.FirstName
}
