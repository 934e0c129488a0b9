package auth

import (
	"context"

	"altenheim-avatar/internal/domain"
)

// Identity is the verified caller behind a session token.
// Staff identities carry UserID, resident identities carry ResidentID.
type Identity struct {
	TenantID   string `json:"facilityId"`
	Role       string `json:"role"`
	UserID     string `json:"userId,omitempty"`
	ResidentID string `json:"residentId,omitempty"`
}

// IsResident reports whether the caller is a person in care.
func (i *Identity) IsResident() bool {
	return i.Role == domain.RoleResident
}

// IsStaff reports whether the caller is a staff member.
func (i *Identity) IsStaff() bool {
	return domain.IsStaffRole(i.Role)
}

// HasRole reports whether the caller's role is one of roles.
func (i *Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
