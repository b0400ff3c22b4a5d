package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// RoleHandler manages roles and their permission matrices.
type RoleHandler struct {
	store  *store.Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(st *store.Store, rec *audit.Recorder, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{store: st, audit: rec, logger: logger}
}

// List returns all roles in creation order.
// GET /api/admin/roles
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "list roles")
		return
	}

	resources := make([]map[string]interface{}, 0, len(roles))
	for i := range roles {
		resources = append(resources, roleToMap(&roles[i]))
	}
	writeJSON(w, http.StatusOK, listResponse(resources))
}

// Get returns a single role.
// GET /api/admin/roles/{id}
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid role ID")
		return
	}

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "get role")
		return
	}
	writeJSON(w, http.StatusOK, roleToMap(role))
}

// Create adds a role. Unknown modules or actions in the matrix are rejected.
// POST /api/admin/roles
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var role model.Role
	if err := readJSON(r, &role); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}
	role.ID = 0
	if err := validation.Struct(role); err != nil {
		writeServiceError(w, r, h.logger, err, "validate role")
		return
	}
	if err := checkMatrix(role.Permissions); err != nil {
		writeValidationError(w, err)
		return
	}
	role.Permissions = role.Permissions.Normalize()

	if err := h.store.CreateRole(r.Context(), &role); err != nil {
		writeServiceError(w, r, h.logger, err, "create role")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditCreate,
		Module:      model.AuditModuleRoles,
		Description: "Created role: " + role.Name,
		Payload:     audit.Payload(roleToMap(&role)),
		IPAddress:   middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusCreated, roleToMap(&role))
}

// Update applies a partial update. A supplied permissions object replaces
// the stored matrix.
// PUT /api/admin/roles/{id}
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid role ID")
		return
	}

	var u model.RoleUpdate
	if err := readJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}
	if err := validation.Struct(u); err != nil {
		writeServiceError(w, r, h.logger, err, "validate role")
		return
	}
	if u.Permissions != nil {
		if err := checkMatrix(u.Permissions); err != nil {
			writeValidationError(w, err)
			return
		}
		u.Permissions = u.Permissions.Normalize()
	}

	if err := h.store.UpdateRole(r.Context(), id, u); err != nil {
		writeServiceError(w, r, h.logger, err, "update role")
		return
	}

	if !u.Empty() {
		h.audit.Record(r.Context(), model.AuditEntry{
			UserID:      actorID(r),
			Action:      model.AuditEdit,
			Module:      model.AuditModuleRoles,
			Description: "Updated role",
			Payload:     audit.Payload(map[string]interface{}{"id": id, "changes": u}),
			IPAddress:   middleware.ClientIP(r),
		})
	}

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "get role")
		return
	}
	writeJSON(w, http.StatusOK, roleToMap(role))
}

// Delete removes a role. Accounts tagged with its slug keep the tag.
// DELETE /api/admin/roles/{id}
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid role ID")
		return
	}

	if err := h.store.DeleteRole(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "delete role")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditDelete,
		Module:      model.AuditModuleRoles,
		Description: "Deleted role",
		Payload:     audit.Payload(map[string]interface{}{"id": id}),
		IPAddress:   middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Role deleted",
	})
}

func checkMatrix(m model.Matrix) *validation.Error {
	if unknown := m.Unknown(); len(unknown) > 0 {
		return validation.FieldError("permissions", "unknown entries: "+strings.Join(unknown, ", "))
	}
	return nil
}
