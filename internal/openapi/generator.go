// Package openapi generates the OpenAPI 3.1 document for the admin API.
package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// loginRequest mirrors the login payload accepted by the session handler.
type loginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type passwordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type settingRequest struct {
	Key   string `json:"setting_key" validate:"required,max=100"`
	Value string `json:"setting_value" validate:"required"`
}

// Generate builds the document for the admin API served under baseURL.
func Generate(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "1.0.0"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "LaserCalc Pro Admin API",
			Description: "Back-office authentication, account, role, settings and audit endpoints.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Components.SecuritySchemes["cookieAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: "admin_token",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
		{"cookieAuth": {}},
	}

	doc.Components.Schemas["ErrorResponse"] = errorSchema()
	doc.Components.Schemas["Admin"] = SchemaFor(model.Admin{})
	doc.Components.Schemas["AdminCreate"] = SchemaFor(model.NewAdmin{})
	doc.Components.Schemas["AdminUpdate"] = SchemaFor(model.AdminUpdate{})
	doc.Components.Schemas["PasswordChange"] = SchemaFor(passwordRequest{})
	doc.Components.Schemas["Role"] = SchemaFor(model.Role{})
	doc.Components.Schemas["RoleUpdate"] = SchemaFor(model.RoleUpdate{})
	doc.Components.Schemas["AuditEntry"] = SchemaFor(model.AuditEntry{})
	doc.Components.Schemas["AuditPage"] = SchemaFor(model.AuditPage{})
	doc.Components.Schemas["Setting"] = SchemaFor(model.Setting{})
	doc.Components.Schemas["SettingUpdate"] = SchemaFor(settingRequest{})
	doc.Components.Schemas["LoginRequest"] = SchemaFor(loginRequest{})

	doc.Paths = openapi3.NewPaths()
	addSessionPaths(doc)
	addAdminPaths(doc)
	addRolePaths(doc)
	addAuditPaths(doc)
	addSettingsPaths(doc)

	return doc
}

func addSessionPaths(doc *openapi3.T) {
	login := operation("session", "login", "Log in", nil, ref("LoginRequest"),
		newResponses("200", "Session token", objectSchema(openapi3.Schemas{
			"success":    &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
			"admin":      ref("Admin"),
			"token":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"expires_in": &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()},
		})),
	)
	login.Security = &openapi3.SecurityRequirements{}
	withError(login, "429", "Too many login attempts")
	doc.Paths.Set("/api/admin/login", &openapi3.PathItem{Post: login})

	doc.Paths.Set("/api/admin/logout", &openapi3.PathItem{
		Post: operation("session", "logout", "Log out and clear the session cookie", nil, nil,
			newResponses("200", "Logged out", successSchema())),
	})
	doc.Paths.Set("/api/admin/session/refresh", &openapi3.PathItem{
		Post: operation("session", "refresh_session", "Issue a token with a fresh expiry", nil, nil,
			newResponses("200", "Refreshed token", objectSchema(openapi3.Schemas{
				"token":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"expires_in": &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()},
			}))),
	})
	doc.Paths.Set("/api/admin/me", &openapi3.PathItem{
		Get: operation("session", "get_me", "Get the current account", nil, nil,
			newResponses("200", "Current account", objectSchema(openapi3.Schemas{"admin": ref("Admin")}))),
	})
}

func addAdminPaths(doc *openapi3.T) {
	list := operation("users", "list_admins", "List admin accounts", nil, nil,
		newResponses("200", "Admin accounts", listSchema("Admin")))
	create := operation("users", "create_admin", "Create an admin account", nil, ref("AdminCreate"),
		newResponses("201", "Created account", objectSchema(openapi3.Schemas{"admin": ref("Admin")})))
	withError(create, "409", "Username or email already in use")
	doc.Paths.Set("/api/admin/users", &openapi3.PathItem{Get: list, Post: create})

	update := operation("users", "update_admin", "Update an admin account", idParam(), ref("AdminUpdate"),
		newResponses("200", "Updated", successSchema()))
	withError(update, "409", "Email already in use")
	doc.Paths.Set("/api/admin/users/{id}", &openapi3.PathItem{
		Put: update,
		Delete: operation("users", "delete_admin", "Delete an admin account", idParam(), nil,
			newResponses("200", "Deleted", successSchema())),
	})
	doc.Paths.Set("/api/admin/users/{id}/password", &openapi3.PathItem{
		Put: operation("users", "change_admin_password", "Set a new password", idParam(), ref("PasswordChange"),
			newResponses("200", "Password changed", successSchema())),
	})
}

func addRolePaths(doc *openapi3.T) {
	create := operation("roles", "create_role", "Create a role", nil, ref("Role"),
		newResponses("201", "Created role", ref("Role")))
	withError(create, "409", "Slug already in use")
	doc.Paths.Set("/api/admin/roles", &openapi3.PathItem{
		Get: operation("roles", "list_roles", "List roles", nil, nil,
			newResponses("200", "Roles", listSchema("Role"))),
		Post: create,
	})
	doc.Paths.Set("/api/admin/roles/{id}", &openapi3.PathItem{
		Get: operation("roles", "get_role", "Get a role", idParam(), nil,
			newResponses("200", "Role", ref("Role"))),
		Put: operation("roles", "update_role", "Update a role", idParam(), ref("RoleUpdate"),
			newResponses("200", "Updated role", ref("Role"))),
		Delete: operation("roles", "delete_role", "Delete a role", idParam(), nil,
			newResponses("200", "Deleted", successSchema())),
	})
}

func addAuditPaths(doc *openapi3.T) {
	params := auditFilterParameters()
	listParams := append(openapi3.Parameters{
		queryParam("page", "Page number, starting at 1.", openapi3.NewInt32Schema()),
		queryParam("limit", "Entries per page (default 50, max 500).", openapi3.NewInt32Schema()),
	}, params...)
	doc.Paths.Set("/api/admin/audit-logs", &openapi3.PathItem{
		Get: operation("audit", "list_audit_logs", "Query audit logs, newest first", listParams, nil,
			newResponses("200", "One page of entries", ref("AuditPage"))),
	})
	doc.Paths.Set("/api/admin/audit-logs/{id}", &openapi3.PathItem{
		Get: operation("audit", "get_audit_log", "Get an audit entry", idParam(), nil,
			newResponses("200", "Audit entry", ref("AuditEntry"))),
	})

	export := operation("audit", "export_audit_logs", "Export audit logs as CSV", params, nil,
		newResponses("200", "CSV attachment", nil))
	csvDesc := "CSV attachment"
	export.Responses.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &csvDesc,
		Content: openapi3.Content{
			"text/csv": &openapi3.MediaType{Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}},
		},
	}})
	doc.Paths.Set("/api/admin/audit-logs/export", &openapi3.PathItem{Get: export})
}

func addSettingsPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/admin/settings", &openapi3.PathItem{
		Get: operation("settings", "list_settings", "List site settings",
			openapi3.Parameters{queryParam("public", "Only public settings when \"true\".", openapi3.NewBoolSchema())},
			nil, newResponses("200", "Settings", listSchema("Setting"))),
		Put: operation("settings", "update_setting", "Update a setting value", nil, ref("SettingUpdate"),
			newResponses("200", "Updated", successSchema())),
	})
}

// ─── Operation Builders ─────────────────────────────────────────────────────

func operation(tag, id, summary string, params openapi3.Parameters, body *openapi3.SchemaRef, responses *openapi3.Responses) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		OperationID: id,
		Parameters:  params,
		Responses:   responses,
	}
	if body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(body),
			},
		}
	}
	return op
}

func withError(op *openapi3.Operation, status, description string) {
	op.Responses.Set(status, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(ref("ErrorResponse")),
		},
	})
}

func idParam() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewPathParameter("id").
				WithDescription("Numeric record ID.").
				WithSchema(openapi3.NewInt64Schema()),
		},
	}
}

func queryParam(name, description string, schema *openapi3.Schema) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).
			WithDescription(description).
			WithSchema(schema),
	}
}

// auditFilterParameters returns the filter parameters shared by audit query
// and export.
func auditFilterParameters() openapi3.Parameters {
	return openapi3.Parameters{
		queryParam("from", "Earliest creation time, YYYY-MM-DD or RFC 3339.", openapi3.NewStringSchema()),
		queryParam("to", "Latest creation time. A bare date includes the whole day.", openapi3.NewStringSchema()),
		queryParam("userId", "Acting admin ID.", openapi3.NewInt64Schema()),
		queryParam("action", "Audit action.", openapi3.NewStringSchema().WithEnum(toAny(model.AuditActions)...)),
		queryParam("module", "Audit module.", openapi3.NewStringSchema().WithEnum(toAny(model.AuditModules)...)),
		queryParam("q", "Case-insensitive substring of the description.", openapi3.NewStringSchema()),
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the
// error responses every authenticated endpoint can produce.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Delete("default")

	successDesc := description
	success := &openapi3.Response{Description: &successDesc}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	errorRef := ref("ErrorResponse")
	for _, e := range []struct{ code, desc string }{
		{"400", "Bad request"},
		{"401", "Unauthorized"},
		{"403", "Forbidden"},
		{"404", "Not found"},
		{"500", "Internal server error"},
	} {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

func errorSchema() *openapi3.SchemaRef {
	kinds := []interface{}{
		model.KindUnauthorized, model.KindForbidden, model.KindValidation,
		model.KindConflict, model.KindNotFound, model.KindInternal,
	}
	return objectSchema(openapi3.Schemas{
		"error": objectSchema(openapi3.Schemas{
			"code":    &openapi3.SchemaRef{Value: openapi3.NewInt32Schema()},
			"kind":    &openapi3.SchemaRef{Value: openapi3.NewStringSchema().WithEnum(kinds...)},
			"message": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			"context": &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()},
		}),
	})
}

func listSchema(component string) *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"resource": &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: ref(component),
			},
		},
		"meta": objectSchema(openapi3.Schemas{
			"count": &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()},
		}),
	})
}

func successSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"success": &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
		"message": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
	})
}

func objectSchema(props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		},
	}
}

func ref(component string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+strings.TrimSpace(component), nil)
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
