package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"altenheim-avatar/internal/service"
)

// AuthHandler staff and resident login.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.StaffLoginRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := h.authService.StaffLogin(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// ResidentLogin POST /api/auth/resident-login
func (h *AuthHandler) ResidentLogin(w http.ResponseWriter, r *http.Request) {
	var req service.ResidentLoginRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := h.authService.ResidentLogin(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
