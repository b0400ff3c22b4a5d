package openapi

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// ─── MapGoType Tests ────────────────────────────────────────────────────────

func TestMapGoType(t *testing.T) {
	var id *int64
	tests := []struct {
		name       string
		typ        reflect.Type
		wantType   string
		wantFormat string
	}{
		{"int64", reflect.TypeOf(int64(0)), "integer", "int64"},
		{"int", reflect.TypeOf(0), "integer", "int64"},
		{"int32", reflect.TypeOf(int32(0)), "integer", "int32"},
		{"float64", reflect.TypeOf(0.0), "number", "double"},
		{"bool", reflect.TypeOf(true), "boolean", ""},
		{"string", reflect.TypeOf(""), "string", ""},
		{"time", reflect.TypeOf(time.Time{}), "string", "date-time"},
		{"pointer", reflect.TypeOf(id), "integer", "int64"},
		{"slice", reflect.TypeOf([]string{}), "array", ""},
		{"matrix", reflect.TypeOf(model.Matrix{}), "object", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapGoType(tt.typ)
			if got.Type != tt.wantType || got.Format != tt.wantFormat {
				t.Errorf("MapGoType(%s) = %+v, want {%s %s}", tt.typ, got, tt.wantType, tt.wantFormat)
			}
		})
	}
}

// ─── SchemaFor Tests ────────────────────────────────────────────────────────

func TestSchemaFor_HidesPasswordHash(t *testing.T) {
	s := SchemaFor(model.Admin{}).Value
	if _, ok := s.Properties["password_hash"]; ok {
		t.Error("password_hash must not appear in the Admin schema")
	}
	if _, ok := s.Properties["PasswordHash"]; ok {
		t.Error("PasswordHash must not appear in the Admin schema")
	}
	last := s.Properties["last_login"]
	if last == nil || last.Value.Format != "date-time" || !last.Value.Nullable {
		t.Errorf("last_login schema = %+v, want nullable date-time", last)
	}
}

func TestSchemaFor_ValidationTags(t *testing.T) {
	s := SchemaFor(model.NewAdmin{}).Value

	for _, name := range []string{"username", "email", "password"} {
		if !slices.Contains(s.Required, name) {
			t.Errorf("%s should be required, got %v", name, s.Required)
		}
	}
	if slices.Contains(s.Required, "display_name") {
		t.Error("display_name should be optional")
	}

	if got := s.Properties["email"].Value.Format; got != "email" {
		t.Errorf("email format = %q, want email", got)
	}
	username := s.Properties["username"].Value
	if username.MinLength != 3 {
		t.Errorf("username minLength = %d, want 3", username.MinLength)
	}
	if username.MaxLength == nil || *username.MaxLength != 50 {
		t.Errorf("username maxLength = %v, want 50", username.MaxLength)
	}
	role := s.Properties["role"].Value
	if len(role.Enum) != 2 || role.Enum[0] != "admin" || role.Enum[1] != "editor" {
		t.Errorf("role enum = %v, want [admin editor]", role.Enum)
	}
}

func TestSchemaFor_MatrixAndSlug(t *testing.T) {
	s := SchemaFor(model.Role{}).Value

	perms := s.Properties["permissions"].Value
	if !perms.Type.Is("object") {
		t.Fatalf("permissions type = %v, want object", perms.Type)
	}
	if perms.AdditionalProperties.Schema == nil || !perms.AdditionalProperties.Schema.Value.Type.Is("array") {
		t.Error("permissions values should be arrays of actions")
	}
	if s.Properties["slug"].Value.Pattern == "" {
		t.Error("slug should carry a pattern")
	}
}

func TestSchemaFor_NestedItems(t *testing.T) {
	s := SchemaFor(model.AuditPage{}).Value
	items := s.Properties["items"]
	if items == nil {
		t.Fatal("items property missing")
	}
	if items.Value.Items == nil || items.Value.Items.Value.Properties["description"] == nil {
		t.Error("items should describe audit entries")
	}
	if s.Properties["totalPages"] == nil {
		t.Error("totalPages property missing")
	}
}

// ─── Generate Tests ─────────────────────────────────────────────────────────

func TestGenerate_Info(t *testing.T) {
	doc := Generate("http://localhost:8080", "")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.1.0")
	}
	if doc.Info == nil || doc.Info.Version != "1.0.0" {
		t.Errorf("Info = %+v, want default version 1.0.0", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers not set correctly")
	}
}

func TestGenerate_SecuritySchemes(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.2.3")

	bearer, ok := doc.Components.SecuritySchemes["bearerAuth"]
	if !ok {
		t.Fatal("bearerAuth security scheme not found")
	}
	if bearer.Value.Scheme != "bearer" || bearer.Value.BearerFormat != "JWT" {
		t.Errorf("bearerAuth = %+v", bearer.Value)
	}

	cookie, ok := doc.Components.SecuritySchemes["cookieAuth"]
	if !ok {
		t.Fatal("cookieAuth security scheme not found")
	}
	if cookie.Value.In != "cookie" || cookie.Value.Name != "admin_token" {
		t.Errorf("cookieAuth = %+v", cookie.Value)
	}

	if len(doc.Security) != 2 {
		t.Errorf("Security requirements count = %d, want 2", len(doc.Security))
	}

	login := doc.Paths.Value("/api/admin/login").Post
	if login.Security == nil || len(*login.Security) != 0 {
		t.Error("login should not require authentication")
	}
}

func TestGenerate_Paths(t *testing.T) {
	doc := Generate("http://localhost:8080", "")

	tests := []struct {
		path    string
		methods []string
	}{
		{"/api/admin/login", []string{"POST"}},
		{"/api/admin/logout", []string{"POST"}},
		{"/api/admin/session/refresh", []string{"POST"}},
		{"/api/admin/me", []string{"GET"}},
		{"/api/admin/users", []string{"GET", "POST"}},
		{"/api/admin/users/{id}", []string{"PUT", "DELETE"}},
		{"/api/admin/users/{id}/password", []string{"PUT"}},
		{"/api/admin/roles", []string{"GET", "POST"}},
		{"/api/admin/roles/{id}", []string{"GET", "PUT", "DELETE"}},
		{"/api/admin/audit-logs", []string{"GET"}},
		{"/api/admin/audit-logs/{id}", []string{"GET"}},
		{"/api/admin/audit-logs/export", []string{"GET"}},
		{"/api/admin/settings", []string{"GET", "PUT"}},
	}
	for _, tt := range tests {
		item := doc.Paths.Value(tt.path)
		if item == nil {
			t.Errorf("path %s missing", tt.path)
			continue
		}
		for _, m := range tt.methods {
			if item.GetOperation(m) == nil {
				t.Errorf("%s %s missing", m, tt.path)
			}
		}
	}
	if doc.Paths.Len() != len(tests) {
		t.Errorf("path count = %d, want %d", doc.Paths.Len(), len(tests))
	}
}

func TestGenerate_ExportIsCSV(t *testing.T) {
	doc := Generate("http://localhost:8080", "")
	op := doc.Paths.Value("/api/admin/audit-logs/export").Get

	ok := op.Responses.Value("200")
	if ok == nil || ok.Value.Content.Get("text/csv") == nil {
		t.Fatal("export 200 should be text/csv")
	}

	var names []string
	for _, p := range op.Parameters {
		names = append(names, p.Value.Name)
	}
	for _, want := range []string{"from", "to", "userId", "action", "module", "q"} {
		if !slices.Contains(names, want) {
			t.Errorf("export parameter %s missing (got %v)", want, names)
		}
	}
}

func TestGenerate_ErrorResponseSchema(t *testing.T) {
	doc := Generate("http://localhost:8080", "")

	errSchema := doc.Components.Schemas["ErrorResponse"]
	if errSchema == nil {
		t.Fatal("ErrorResponse schema missing")
	}
	detail := errSchema.Value.Properties["error"].Value
	for _, field := range []string{"code", "kind", "message", "context"} {
		if detail.Properties[field] == nil {
			t.Errorf("error.%s missing", field)
		}
	}
	if len(detail.Properties["kind"].Value.Enum) != 6 {
		t.Errorf("kind enum = %v", detail.Properties["kind"].Value.Enum)
	}
}

func TestGenerate_MarshalsToJSON(t *testing.T) {
	doc := Generate("http://localhost:8080", "")
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", out["openapi"])
	}
}
