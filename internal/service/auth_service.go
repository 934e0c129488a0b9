package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/metrics"
	"altenheim-avatar/internal/repository"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// AuthService issues session tokens for staff and residents.
type AuthService interface {
	StaffLogin(ctx context.Context, req StaffLoginRequest) (*StaffLoginResponse, error)
	ResidentLogin(ctx context.Context, req ResidentLoginRequest) (*ResidentLoginResponse, error)
}

type authService struct {
	users   repository.UsersRepository
	matcher *CredentialMatcher
	tokens  *auth.TokenIssuer
	logger  *zap.Logger
}

func NewAuthService(users repository.UsersRepository, matcher *CredentialMatcher, tokens *auth.TokenIssuer, logger *zap.Logger) AuthService {
	return &authService{users: users, matcher: matcher, tokens: tokens, logger: logger}
}

// StaffLoginRequest email and password login.
type StaffLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

type StaffUser struct {
	ID         string `json:"id"`
	FacilityID string `json:"facilityId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

type StaffLoginResponse struct {
	Token string    `json:"token"`
	User  StaffUser `json:"user"`
}

// ResidentLoginRequest facility slug and PIN login.
type ResidentLoginRequest struct {
	FacilitySlug string `json:"facilitySlug"`
	PIN          string `json:"pin"`
	IPAddress    string `json:"-"`
}

type ResidentSummary struct {
	ID             string `json:"id"`
	FacilityID     string `json:"facilityId"`
	FirstName      string `json:"firstName"`
	DisplayName    string `json:"displayName"`
	AvatarName     string `json:"avatarName"`
	AddressForm    string `json:"addressForm"`
	Language       string `json:"language"`
	CognitiveLevel string `json:"cognitiveLevel"`
}

type ResidentLoginResponse struct {
	Token    string          `json:"token"`
	Resident ResidentSummary `json:"resident"`
}

const msgBadStaffCredentials = "Email or password is incorrect."

func (s *authService) StaffLogin(ctx context.Context, req StaffLoginRequest) (*StaffLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationError("A valid email address is required.")
	}
	if req.Password == "" {
		return nil, validationError("Password is required.")
	}

	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Staff login failed: unknown email",
				zap.String("ip_address", req.IPAddress),
				zap.String("reason", "unknown_email"),
			)
			return nil, unauthenticated(msgBadStaffCredentials)
		}
		return nil, storageError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Staff login failed: invalid password",
			zap.String("ip_address", req.IPAddress),
			zap.String("user_id", user.UserID),
			zap.String("reason", "invalid_password"),
		)
		return nil, unauthenticated(msgBadStaffCredentials)
	}
	if !domain.IsStaffRole(user.Role) {
		s.logger.Warn("Staff login failed: unknown role",
			zap.String("user_id", user.UserID),
			zap.String("role", user.Role),
			zap.String("reason", "unknown_role"),
		)
		return nil, unauthenticated(msgBadStaffCredentials)
	}

	token, err := s.tokens.IssueStaff(user)
	if err != nil {
		return nil, internalError(err)
	}

	s.logger.Info("Staff login succeeded",
		zap.String("user_id", user.UserID),
		zap.String("tenant_id", user.TenantID),
		zap.String("role", user.Role),
	)
	return &StaffLoginResponse{
		Token: token,
		User: StaffUser{
			ID:         user.UserID,
			FacilityID: user.TenantID,
			Email:      user.Email,
			Name:       user.Name,
			Role:       user.Role,
		},
	}, nil
}

func (s *authService) ResidentLogin(ctx context.Context, req ResidentLoginRequest) (*ResidentLoginResponse, error) {
	if strings.TrimSpace(req.FacilitySlug) == "" {
		return nil, validationError("Facility is required.")
	}
	if !pinPattern.MatchString(req.PIN) {
		return nil, validationError("PIN must have 4-6 digits.")
	}

	tenant, resident, err := s.matcher.Match(ctx, req.FacilitySlug, req.PIN)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		s.logger.Warn("Resident login failed: facility not found",
			zap.String("ip_address", req.IPAddress),
			zap.String("facility_slug", NormalizeSlug(req.FacilitySlug)),
			zap.String("reason", "tenant_not_found"),
		)
		metrics.ObserveResidentLogin(metrics.LoginTenantNotFound)
		return nil, unauthenticated("Facility not found.")
	case errors.Is(err, ErrPINIncorrect):
		s.logger.Warn("Resident login failed: PIN incorrect",
			zap.String("ip_address", req.IPAddress),
			zap.String("tenant_id", tenant.TenantID),
			zap.String("reason", "pin_incorrect"),
		)
		metrics.ObserveResidentLogin(metrics.LoginPINIncorrect)
		return nil, unauthenticated("PIN is incorrect.")
	case err != nil:
		metrics.ObserveResidentLogin(metrics.LoginStorageError)
		return nil, storageError(err)
	}

	token, err := s.tokens.IssueResident(resident)
	if err != nil {
		return nil, internalError(err)
	}

	metrics.ObserveResidentLogin(metrics.LoginSuccess)
	s.logger.Info("Resident login succeeded",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("resident_id", resident.ResidentID),
	)
	return &ResidentLoginResponse{
		Token: token,
		Resident: ResidentSummary{
			ID:             resident.ResidentID,
			FacilityID:     tenant.TenantID,
			FirstName:      resident.FirstName,
			DisplayName:    resident.Name(),
			AvatarName:     resident.AvatarName,
			AddressForm:    resident.AddressForm,
			Language:       resident.Language,
			CognitiveLevel: resident.CognitiveLevel,
		},
	}, nil
}
