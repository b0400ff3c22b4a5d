package handler

import (
	"log/slog"
	"net/http"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// SettingsHandler reads and updates site settings.
type SettingsHandler struct {
	store  *store.Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(st *store.Store, rec *audit.Recorder, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: st, audit: rec, logger: logger}
}

// List returns settings ordered by key. ?public=true limits the result to
// public settings.
// GET /api/admin/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context(), queryBool(r, "public"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "list settings")
		return
	}

	resources := make([]map[string]interface{}, 0, len(settings))
	for _, s := range settings {
		resources = append(resources, map[string]interface{}{
			"setting_key":   s.Key,
			"setting_value": s.Value,
			"description":   s.Description,
			"is_public":     s.IsPublic,
			"updated_at":    s.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, listResponse(resources))
}

type settingRequest struct {
	Key   string  `json:"setting_key" validate:"required,max=100"`
	Value *string `json:"setting_value" validate:"required"`
}

// Update changes the value of an existing setting. Unknown keys are not
// created.
// PUT /api/admin/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.KindValidation, "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeServiceError(w, r, h.logger, err, "validate setting")
		return
	}

	current, err := h.store.GetSetting(r.Context(), req.Key)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "get setting")
		return
	}

	old := current.Value
	current.Value = *req.Value
	if err := h.store.SetSetting(r.Context(), *current); err != nil {
		writeServiceError(w, r, h.logger, err, "update setting")
		return
	}

	h.audit.Record(r.Context(), model.AuditEntry{
		UserID:      actorID(r),
		Action:      model.AuditSettingsUpdate,
		Module:      model.AuditModuleSettings,
		Description: "Updated setting: " + req.Key,
		Payload: audit.Payload(map[string]interface{}{
			"key":       req.Key,
			"old_value": old,
			"new_value": *req.Value,
		}),
		IPAddress: middleware.ClientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Setting updated",
	})
}
