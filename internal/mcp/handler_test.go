package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
)

func newTestServer(t *testing.T) (*MCPServer, *store.Store) {
	t.Helper()
	st, err := store.New(store.Config{}) // in-memory SQLite
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(st, audit.NewRecorder(st, logger), "test", logger), st
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestPageArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantPage  int
		wantLimit int
	}{
		{"defaults", nil, 1, audit.DefaultLimit},
		{"in range", map[string]interface{}{"page": 3, "limit": 20}, 3, 20},
		{"page below one", map[string]interface{}{"page": -2}, 1, audit.DefaultLimit},
		{"limit below one", map[string]interface{}{"limit": 0}, 1, 1},
		{"limit above max", map[string]interface{}{"limit": 10000}, 1, audit.MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := pageArgs(callRequest(tt.args))
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("pageArgs = (%d, %d), want (%d, %d)", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestAuditQuery(t *testing.T) {
	q := auditQuery(callRequest(map[string]interface{}{
		"module":  "users",
		"user_id": 4,
		"q":       "login",
		"extra":   "ignored",
	}))
	if q.Get("module") != "users" || q.Get("userId") != "4" || q.Get("q") != "login" {
		t.Errorf("auditQuery = %v", q)
	}
	if q.Has("extra") || q.Has("user_id") {
		t.Errorf("unexpected keys in %v", q)
	}
}

func TestVocabArg(t *testing.T) {
	req := callRequest(map[string]interface{}{"module": "articles", "action": "launch"})
	if v, err := vocabArg(req, "module", model.Modules); err != nil || v != "articles" {
		t.Errorf("vocabArg(module) = %q, %v", v, err)
	}
	if _, err := vocabArg(req, "action", model.Actions); err == nil || !strings.Contains(err.Error(), "launch") {
		t.Errorf("vocabArg(action) error = %v", err)
	}
	if _, err := vocabArg(req, "role", model.Actions); err == nil {
		t.Error("missing argument should fail")
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()

	if ann.ReadOnlyHint == nil {
		t.Fatal("ReadOnlyHint should not be nil for readOnlyAnnotation")
	}
	if *ann.ReadOnlyHint != true {
		t.Errorf("ReadOnlyHint = %v, want true", *ann.ReadOnlyHint)
	}
}

func TestListRoles(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleListRoles(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleListRoles: %v", err)
	}
	var roles []model.Role
	if err := json.Unmarshal([]byte(resultText(t, res)), &roles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(roles) != 2 || roles[0].Slug != model.RoleAdmin || roles[1].Slug != model.RoleEditor {
		t.Errorf("roles = %+v", roles)
	}
}

func TestCheckPermission(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		role, module, action string
		want                 bool
	}{
		{model.RoleAdmin, model.ModuleSettings, model.ActionDelete, true},
		{model.RoleEditor, model.ModuleArticles, model.ActionPublish, true},
		{model.RoleEditor, model.ModuleUsers, model.ActionView, false},
		{"ghost", model.ModuleArticles, model.ActionView, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+":"+tt.module+":"+tt.action, func(t *testing.T) {
			res, err := s.handleCheckPermission(context.Background(), callRequest(map[string]interface{}{
				"role": tt.role, "module": tt.module, "action": tt.action,
			}))
			if err != nil {
				t.Fatalf("handleCheckPermission: %v", err)
			}
			if res.IsError {
				t.Fatalf("tool error: %s", resultText(t, res))
			}
			var out struct {
				Allowed bool   `json:"allowed"`
				Note    string `json:"note"`
			}
			if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.Allowed != tt.want {
				t.Errorf("allowed = %v, want %v", out.Allowed, tt.want)
			}
			if tt.role == "ghost" && out.Note == "" {
				t.Error("unknown role should carry a note")
			}
		})
	}
}

func TestCheckPermission_InvalidArguments(t *testing.T) {
	s, _ := newTestServer(t)

	for _, args := range []map[string]interface{}{
		{"module": "articles", "action": "view"},
		{"role": "editor", "module": "spaceships", "action": "view"},
		{"role": "editor", "module": "articles", "action": "launch"},
	} {
		res, err := s.handleCheckPermission(context.Background(), callRequest(args))
		if err != nil {
			t.Fatalf("handleCheckPermission: %v", err)
		}
		if !res.IsError {
			t.Errorf("args %v should produce a tool error", args)
		}
	}
}

func TestQueryAuditLogs(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	uid := int64(7)
	for _, e := range []model.AuditEntry{
		{UserID: &uid, Action: model.AuditLogin, Module: model.AuditModuleUsers, Description: "Admin root logged in"},
		{UserID: &uid, Action: model.AuditSettingsUpdate, Module: model.AuditModuleSettings, Description: "Updated setting: site_name"},
		{Action: model.AuditExport, Module: model.AuditModuleSettings, Description: "Exported 3 audit log entries"},
	} {
		entry := e
		if err := st.AppendAudit(ctx, &entry); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	res, err := s.handleQueryAuditLogs(ctx, callRequest(map[string]interface{}{
		"module":  "settings",
		"user_id": float64(7),
	}))
	if err != nil {
		t.Fatalf("handleQueryAuditLogs: %v", err)
	}
	var page model.AuditPage
	if err := json.Unmarshal([]byte(resultText(t, res)), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Action != model.AuditSettingsUpdate {
		t.Errorf("page = %+v", page)
	}

	res, _ = s.handleQueryAuditLogs(ctx, callRequest(map[string]interface{}{"action": "explode"}))
	if !res.IsError {
		t.Error("unknown action should produce a tool error")
	}
}

func TestListAdmins_OmitsPasswordHash(t *testing.T) {
	s, st := newTestServer(t)
	admin := &model.Admin{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secrethashvalue",
		IsActive:     true,
	}
	if err := st.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	res, err := s.handleListAdmins(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleListAdmins: %v", err)
	}
	text := resultText(t, res)
	if strings.Contains(text, "secrethashvalue") {
		t.Error("password hash leaked")
	}
	if !strings.Contains(text, `"username": "alice"`) {
		t.Errorf("admin missing from %s", text)
	}
}

func TestRoleResource(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = roleURIPrefix + model.RoleEditor
	contents, err := s.handleRoleResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleRoleResource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"slug": "editor"`) {
		t.Errorf("resource = %s", text)
	}

	req.Params.URI = roleURIPrefix + "ghost"
	if _, err := s.handleRoleResource(context.Background(), req); err == nil {
		t.Error("unknown role should fail")
	}
}
