package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, kind, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Kind:    kind,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeValidationError writes a 400 carrying per-field messages.
func writeValidationError(w http.ResponseWriter, verr *validation.Error) {
	fields := make(map[string]interface{}, len(verr.Fields))
	for k, v := range verr.Fields {
		fields[k] = v
	}
	writeError(w, http.StatusBadRequest, model.KindValidation, verr.Error(),
		map[string]interface{}{"fields": fields})
}

// writeServiceError maps a store or service error to the error envelope.
// Unrecognized errors are logged with the request ID and reported as a bare
// internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, action string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, model.KindNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, model.KindConflict, "A record with the same unique value already exists")
	case errors.Is(err, service.ErrNothingToUpdate):
		writeError(w, http.StatusBadRequest, model.KindValidation, "No fields to update")
	default:
		logger.Error(action+" failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, model.KindInternal, "Internal server error")
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryBool extracts a boolean query parameter. Returns false if the parameter
// is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// actorID returns the authenticated admin's ID for audit entries.
func actorID(r *http.Request) *int64 {
	if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
		id := identity.ID
		return &id
	}
	return nil
}

// listResponse wraps resources in the standard list envelope.
func listResponse(resources []map[string]interface{}) model.ListResponse {
	return model.ListResponse{
		Resource: resources,
		Meta:     &model.ResponseMeta{Count: len(resources)},
	}
}

func adminToMap(admin *model.Admin) map[string]interface{} {
	m := map[string]interface{}{
		"id":           admin.ID,
		"username":     admin.Username,
		"email":        admin.Email,
		"display_name": admin.DisplayName,
		"role":         admin.Role,
		"is_active":    admin.IsActive,
		"created_at":   admin.CreatedAt,
	}
	if admin.LastLogin != nil {
		m["last_login"] = admin.LastLogin
		m["last_login_ip"] = admin.LastLoginIP
	}
	return m
}

func roleToMap(role *model.Role) map[string]interface{} {
	perms := role.Permissions
	if perms == nil {
		perms = model.Matrix{}
	}
	return map[string]interface{}{
		"id":          role.ID,
		"name":        role.Name,
		"slug":        role.Slug,
		"permissions": perms,
		"created_at":  role.CreatedAt,
	}
}
