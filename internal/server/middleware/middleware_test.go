package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID == "" {
		t.Error("expected X-Request-ID in response header")
	}
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesMalformedClientID(t *testing.T) {
	for _, clientID := range []string{"has space", "line\nbreak", strings.Repeat("a", 200)} {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, clientID)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if seen == clientID || len(seen) != 36 {
			t.Errorf("client ID %q should be replaced by a UUID, got %q", clientID, seen)
		}
		if rr.Header().Get(RequestIDHeader) != seen {
			t.Errorf("response header %q does not match context %q", rr.Header().Get(RequestIDHeader), seen)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	if id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Auth middleware tests
// ---------------------------------------------------------------------------

type fakeVerifier struct {
	tokens map[string]*model.Identity
}

func (f fakeVerifier) Verify(token string) (*model.Identity, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

type fakeRoles map[string]*model.Role

func (f fakeRoles) GetRoleBySlug(_ context.Context, slug string) (*model.Role, error) {
	if r, ok := f[slug]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

var (
	adminIdentity  = &model.Identity{ID: 1, Username: "root", Email: "root@example.com", Role: model.RoleAdmin}
	editorIdentity = &model.Identity{ID: 2, Username: "ed", Email: "ed@example.com", Role: model.RoleEditor}
	verifier       = fakeVerifier{tokens: map[string]*model.Identity{"admin-token": adminIdentity, "editor-token": editorIdentity}}
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestRequireAuthBearer(t *testing.T) {
	var called bool
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		id := IdentityFromContext(r.Context())
		if id == nil || id.Username != "root" {
			t.Errorf("unexpected identity in context: %+v", id)
		}
	}))

	req := httptest.NewRequest("GET", "/api/admin/me", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("inner handler should be called")
	}
}

func TestRequireAuthCookie(t *testing.T) {
	var called bool
	handler := RequireAuth(verifier)(okHandler(&called))

	req := httptest.NewRequest("GET", "/api/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "editor-token"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called || rr.Code != http.StatusOK {
		t.Errorf("expected cookie auth to succeed, got %d", rr.Code)
	}
}

func TestRequireAuthHeaderTakesPrecedence(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "editor-token"})
	if got := TokenFromRequest(req); got != "admin-token" {
		t.Errorf("TokenFromRequest = %q, want header token", got)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no token", func(r *http.Request) {}},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") }},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"}) }},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic admin-token") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := RequireAuth(verifier)(okHandler(&called))

			req := httptest.NewRequest("GET", "/api/admin/me", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if called {
				t.Error("inner handler must not be called")
			}
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rr.Code)
			}
			if e := decodeError(t, rr); e.Kind != model.KindUnauthorized {
				t.Errorf("Kind = %q", e.Kind)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	chain := func(called *bool) http.Handler {
		return RequireAuth(verifier)(RequireRole(model.RoleAdmin)(okHandler(called)))
	}

	var called bool
	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	chain(&called).ServeHTTP(rr, req)
	if !called || rr.Code != http.StatusOK {
		t.Errorf("admin should pass, got %d", rr.Code)
	}

	called = false
	req = httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer editor-token")
	rr = httptest.NewRecorder()
	chain(&called).ServeHTTP(rr, req)
	if called {
		t.Error("editor must not reach the handler")
	}
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Kind != model.KindForbidden {
		t.Errorf("Kind = %q", e.Kind)
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	var called bool
	rr := httptest.NewRecorder()
	RequireRole(model.RoleAdmin)(okHandler(&called)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if called || rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", rr.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	roles := fakeRoles{
		model.RoleEditor: {Slug: model.RoleEditor, Permissions: model.Matrix{model.ModuleSettings: {model.ActionView}}},
	}

	tests := []struct {
		name     string
		identity *model.Identity
		action   string
		want     int
	}{
		{"admin bypass", adminIdentity, model.ActionExport, http.StatusOK},
		{"editor granted", editorIdentity, model.ActionView, http.StatusOK},
		{"editor denied", editorIdentity, model.ActionExport, http.StatusForbidden},
		{"unknown role", &model.Identity{ID: 3, Username: "x", Email: "x@example.com", Role: "ghost"}, model.ActionView, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := RequirePermission(roles, model.ModuleSettings, tt.action)(okHandler(&called))

			req := httptest.NewRequest("GET", "/api/admin/audit-logs", nil)
			req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("called = %v", called)
			}
		})
	}
}

func TestIdentityFromContextEmpty(t *testing.T) {
	if IdentityFromContext(context.Background()) != nil {
		t.Error("expected nil identity from bare context")
	}
}

// ---------------------------------------------------------------------------
// ClientIP tests
// ---------------------------------------------------------------------------

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1", "X-Real-IP": "10.0.0.2"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"none", nil, "unknown"},
		{"blank forwarded", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimit tests
// ---------------------------------------------------------------------------

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	var called bool
	handler := RateLimit(2)(okHandler(&called))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("POST", "/api/admin/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

// ---------------------------------------------------------------------------
// Logger tests
// ---------------------------------------------------------------------------

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	})))

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", line["level"])
	}
	if line["status"] != float64(http.StatusForbidden) || line["bytes"] != float64(6) {
		t.Errorf("status/bytes = %v/%v", line["status"], line["bytes"])
	}
	if line["request_id"] != "trace-42" || line["client_ip"] != "198.51.100.9" {
		t.Errorf("request_id/client_ip = %v/%v", line["request_id"], line["client_ip"])
	}
}
