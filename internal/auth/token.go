package auth

import (
	"errors"
	"fmt"
	"time"

	"altenheim-avatar/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type claims struct {
	TenantID   string `json:"facilityId"`
	Role       string `json:"role"`
	UserID     string `json:"userId,omitempty"`
	ResidentID string `json:"residentId,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret      []byte
	staffTTL    time.Duration
	residentTTL time.Duration
	now         func() time.Time
}

func NewTokenIssuer(secret string, staffTTL, residentTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:      []byte(secret),
		staffTTL:    staffTTL,
		residentTTL: residentTTL,
		now:         time.Now,
	}
}

// IssueStaff returns a token for a staff user.
func (t *TokenIssuer) IssueStaff(u *domain.User) (string, error) {
	return t.sign(claims{
		TenantID: u.TenantID,
		Role:     u.Role,
		UserID:   u.UserID,
	}, t.staffTTL)
}

// IssueResident returns a token for a person in care.
func (t *TokenIssuer) IssueResident(r *domain.Resident) (string, error) {
	return t.sign(claims{
		TenantID:   r.TenantID,
		Role:       domain.RoleResident,
		ResidentID: r.ResidentID,
	}, t.residentTTL)
}

func (t *TokenIssuer) sign(c claims, ttl time.Duration) (string, error) {
	now := t.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies raw and returns the identity it carries.
func (t *TokenIssuer) Parse(raw string) (*Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.TenantID == "" || c.Role == "" {
		return nil, ErrInvalidToken
	}
	switch {
	case c.Role == domain.RoleResident && c.ResidentID == "":
		return nil, ErrInvalidToken
	case c.Role != domain.RoleResident && (c.UserID == "" || !domain.IsStaffRole(c.Role)):
		return nil, ErrInvalidToken
	}
	return &Identity{
		TenantID:   c.TenantID,
		Role:       c.Role,
		UserID:     c.UserID,
		ResidentID: c.ResidentID,
	}, nil
}
