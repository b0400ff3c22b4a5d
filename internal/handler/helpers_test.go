package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	return resp.Error
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"validation", validation.FieldError("email", "must be a valid email address"), http.StatusBadRequest, model.KindValidation},
		{"wrapped not found", fmt.Errorf("get admin: %w", store.ErrNotFound), http.StatusNotFound, model.KindNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict, model.KindConflict},
		{"empty update", service.ErrNothingToUpdate, http.StatusBadRequest, model.KindValidation},
		{"infrastructure", errors.New("dial tcp 10.0.0.5:5432: connection refused"), http.StatusInternalServerError, model.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			writeServiceError(rr, req, logger, tt.err, "test")

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			detail := decodeError(t, rr)
			if detail.Kind != tt.wantKind || detail.Code != tt.wantCode {
				t.Errorf("envelope = %+v", detail)
			}
			if tt.wantKind == model.KindInternal && detail.Message != "Internal server error" {
				t.Errorf("internal errors must not leak detail, got %q", detail.Message)
			}
		})
	}
}

func TestWriteValidationErrorFields(t *testing.T) {
	rr := httptest.NewRecorder()
	writeValidationError(rr, &validation.Error{Fields: map[string]string{
		"username": "is required",
		"password": "must be at least 6 characters",
	}})

	detail := decodeError(t, rr)
	fields, ok := detail.Context["fields"].(map[string]interface{})
	if !ok || len(fields) != 2 || fields["username"] != "is required" {
		t.Errorf("context = %v", detail.Context)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"-4", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", tt.raw)
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		got, ok := pathID(req)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("pathID(%q) = %d, %v", tt.raw, got, ok)
		}
	}
}

func TestActorID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if actorID(req) != nil {
		t.Error("anonymous request should have no actor")
	}

	ctx := middleware.WithIdentity(req.Context(), &model.Identity{ID: 9, Username: "root", Email: "root@example.com", Role: model.RoleAdmin})
	if id := actorID(req.WithContext(ctx)); id == nil || *id != 9 {
		t.Errorf("actorID = %v, want 9", id)
	}
}

func TestAdminToMapOmitsCredentials(t *testing.T) {
	m := adminToMap(&model.Admin{ID: 1, Username: "root", PasswordHash: "$2a$10$secret", Role: model.RoleAdmin})
	for _, key := range []string{"password_hash", "password", "last_login"} {
		if _, ok := m[key]; ok {
			t.Errorf("adminToMap should not include %q", key)
		}
	}
}

func TestRoleToMapNilMatrix(t *testing.T) {
	m := roleToMap(&model.Role{ID: 2, Name: "Viewer", Slug: "viewer"})
	if perms, ok := m["permissions"].(model.Matrix); !ok || perms == nil {
		t.Errorf("permissions = %#v, want empty matrix", m["permissions"])
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=3&limit=x&public=1", nil)
	if got := queryInt(req, "page", 1); got != 3 {
		t.Errorf("page = %d", got)
	}
	if got := queryInt(req, "limit", 50); got != 50 {
		t.Errorf("limit = %d, want default", got)
	}
	if !queryBool(req, "public") || queryBool(req, "missing") {
		t.Error("queryBool mismatch")
	}
}
