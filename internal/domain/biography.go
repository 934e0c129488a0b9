package domain

import "time"

// Biography categories.
const (
	BioFamily      = "family"
	BioCareer      = "career"
	BioHobbies     = "hobbies"
	BioHometown    = "hometown"
	BioMemories    = "memories"
	BioPreferences = "preferences"
)

// Biography sources.
const (
	BioSourceManual       = "manual"
	BioSourceConversation = "conversation"
)

// Biography is one confirmed fact about a resident (biographies table).
// (resident_id, category, key) is unique; writes upsert.
type Biography struct {
	BiographyID string    `db:"id" json:"id"`
	ResidentID  string    `db:"resident_id" json:"resident_id"`
	Category    string    `db:"category" json:"category"`
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Source      string    `db:"source" json:"source"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// IsBiographyCategory reports whether c is a known category.
func IsBiographyCategory(c string) bool {
	switch c {
	case BioFamily, BioCareer, BioHobbies, BioHometown, BioMemories, BioPreferences:
		return true
	}
	return false
}
