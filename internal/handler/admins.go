package handler

import (
	"log/slog"
	"net/http"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
)

// AdminHandler manages back-office accounts.
type AdminHandler struct {
	creds  *service.CredentialService
	audit  *audit.Recorder
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(creds *service.CredentialService, rec *audit.Recorder, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{creds: creds, audit: rec, logger: logger}
}

// List returns all accounts, newest first.
// GET /api/admin/users
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.creds.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "list admins")
		return
	}

	resources := make([]map[string]interface{}, 0, len(admins))
	for i := range admins {
		resources = append(resources, adminToMap(&admins[i]))
	}
	writeJSON(w, http.StatusOK, listResponse(resources))
}

// Create adds a new account.
// POST /api/admin/users
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewAdmin
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}

	admin, err := h.creds.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "create admin")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditCreate,
		Module:      model.AuditModuleUsers,
		Description: "Created admin user: " + admin.Username,
		Payload: audit.Payload(map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"email":    admin.Email,
			"role":     admin.Role,
		}),
		IPAddress: middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"admin":   adminToMap(admin),
	})
}

// Update applies a partial update to an account.
// PUT /api/admin/users/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid admin ID")
		return
	}

	var u model.AdminUpdate
	if err := readJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}

	if err := h.creds.Update(r.Context(), id, u); err != nil {
		writeServiceError(w, r, h.logger, err, "update admin")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditEdit,
		Module:      model.AuditModuleUsers,
		Description: "Updated admin user",
		Payload:     audit.Payload(map[string]interface{}{"id": id, "changes": u}),
		IPAddress:   middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin updated",
	})
}

type passwordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangePassword sets a new password for an account.
// PUT /api/admin/users/{id}/password
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid admin ID")
		return
	}

	var req passwordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}

	if err := h.creds.ChangePassword(r.Context(), id, req.NewPassword); err != nil {
		writeServiceError(w, r, h.logger, err, "change password")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditEdit,
		Module:      model.AuditModuleUsers,
		Description: "Changed admin password",
		Payload:     audit.Payload(map[string]interface{}{"id": id}),
		IPAddress:   middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}

// Delete removes an account. Admins cannot delete themselves.
// DELETE /api/admin/users/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid admin ID")
		return
	}

	if identity := middleware.IdentityFromContext(r.Context()); identity != nil && identity.ID == id {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Cannot delete your own account")
		return
	}

	if err := h.creds.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "delete admin")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditDelete,
		Module:      model.AuditModuleUsers,
		Description: "Deleted admin user",
		Payload:     audit.Payload(map[string]interface{}{"id": id}),
		IPAddress:   middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin deleted",
	})
}
