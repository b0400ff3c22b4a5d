package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/metrics"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// SessionHandler serves login, logout, token refresh and the current
// identity.
type SessionHandler struct {
	creds        *service.CredentialService
	tokens       *service.TokenService
	audit        *audit.Recorder
	secureCookie bool
	logger       *slog.Logger
}

// NewSessionHandler creates a new SessionHandler. secureCookie marks the
// session cookie Secure and should be set in production.
func NewSessionHandler(creds *service.CredentialService, tokens *service.TokenService, rec *audit.Recorder, secureCookie bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		creds:        creds,
		tokens:       tokens,
		audit:        rec,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Success   bool                   `json:"success"`
	Admin     map[string]interface{} `json:"admin"`
	Token     string                 `json:"token"`
	ExpiresIn int                    `json:"expires_in"`
}

// Login verifies credentials, issues a session token and sets the session
// cookie.
// POST /api/admin/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeServiceError(w, r, h.logger, err, "validate login")
		return
	}

	admin, err := h.creds.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		metrics.RecordLogin(false)
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, model.KindUnauthorized, "Username or password is incorrect")
			return
		}
		writeServiceError(w, r, h.logger, err, "authenticate")
		return
	}

	token, err := h.tokens.Issue(model.IdentityOf(admin))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "issue token")
		return
	}

	ip := middleware.ClientIP(r)
	h.creds.RecordLogin(r.Context(), admin.ID, ip)
	metrics.RecordLogin(true)
	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      &admin.ID,
		Action:      model.AuditLogin,
		Module:      model.AuditModuleUsers,
		Description: "Admin " + admin.Username + " logged in",
		IPAddress:   ip,
	})

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Admin: map[string]interface{}{
			"id":           admin.ID,
			"username":     admin.Username,
			"email":        admin.Email,
			"display_name": admin.DisplayName,
			"role":         admin.Role,
		},
		Token:     token,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// Logout clears the session cookie. Tokens are stateless so a copied token
// stays valid until it expires.
// POST /api/admin/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if identity, err := h.tokens.Verify(token); err == nil {
			h.audit.Record(r.Context(), model.AuditEntry{
				UserID:      &identity.ID,
				Action:      model.AuditLogout,
				Module:      model.AuditModuleUsers,
				Description: "Admin " + identity.Username + " logged out",
				IPAddress:   middleware.ClientIP(r),
			})
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Refresh issues a new token for the caller with a fresh expiry.
// POST /api/admin/session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Refresh(middleware.TokenFromRequest(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"token":      token,
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}

// Me returns fresh account data for the caller.
// GET /api/admin/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
		return
	}

	admin, err := h.creds.Get(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "get current admin")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"admin": adminToMap(admin)})
}

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
