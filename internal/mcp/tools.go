package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

// registerTools registers all MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("lasercalc_list_roles",
			mcp.WithDescription(
				"List all back-office roles with their permission matrices. Each matrix "+
					"maps a module (articles, users, settings, ...) to the actions the role "+
					"may perform on it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListRoles,
	)

	srv.AddTool(
		mcp.NewTool("lasercalc_check_permission",
			mcp.WithDescription(
				"Check whether a role may perform an action on a module. The admin role "+
					"is always allowed; unknown roles are always denied.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("role",
				mcp.Required(),
				mcp.Description("Role slug, e.g. \"editor\""),
			),
			mcp.WithString("module",
				mcp.Required(),
				mcp.Description("Permission module"),
				mcp.Enum(model.Modules...),
			),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description("Permission action"),
				mcp.Enum(model.Actions...),
			),
		),
		s.handleCheckPermission,
	)

	srv.AddTool(
		mcp.NewTool("lasercalc_query_audit_logs",
			mcp.WithDescription(
				"Query the audit trail, newest first. All filters are optional and "+
					"combined with AND. Dates accept YYYY-MM-DD or RFC 3339; a bare "+
					"\"to\" date includes the whole day.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("from", mcp.Description("Earliest creation time")),
			mcp.WithString("to", mcp.Description("Latest creation time")),
			mcp.WithNumber("user_id", mcp.Description("Acting admin ID")),
			mcp.WithString("action",
				mcp.Description("Audit action"),
				mcp.Enum(model.AuditActions...),
			),
			mcp.WithString("module",
				mcp.Description("Audit module"),
				mcp.Enum(model.AuditModules...),
			),
			mcp.WithString("q", mcp.Description("Case-insensitive substring of the description")),
			mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
			mcp.WithNumber("limit", mcp.Description("Entries per page (default 50, max 500)")),
		),
		s.handleQueryAuditLogs,
	)

	srv.AddTool(
		mcp.NewTool("lasercalc_list_admins",
			mcp.WithDescription(
				"List back-office accounts, newest first, with role tag, active flag and "+
					"last login. Password hashes are never returned.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListAdmins,
	)
}

// handleListRoles returns every role and its matrix.
func (s *MCPServer) handleListRoles(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return toolError("Failed to list roles: %v", err)
	}
	return jsonResult(roles)
}

// handleCheckPermission evaluates one matrix cell the same way the HTTP
// permission guard does.
func (s *MCPServer) handleCheckPermission(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	role, err := request.RequireString("role")
	if err != nil || role == "" {
		return toolError("missing required parameter %q", "role")
	}
	module, err := vocabArg(request, "module", model.Modules)
	if err != nil {
		return toolError("%v", err)
	}
	action, err := vocabArg(request, "action", model.Actions)
	if err != nil {
		return toolError("%v", err)
	}

	result := map[string]interface{}{
		"role":    role,
		"module":  module,
		"action":  action,
		"allowed": middleware.Allowed(ctx, s.store, role, module, action),
	}
	if role != model.RoleAdmin {
		if _, err := s.store.GetRoleBySlug(ctx, role); errors.Is(err, store.ErrNotFound) {
			result["note"] = "role does not exist"
		}
	}
	return jsonResult(result)
}

// handleQueryAuditLogs runs a paginated audit query.
func (s *MCPServer) handleQueryAuditLogs(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	f, err := audit.ParseFilter(auditQuery(request))
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return toolError("Invalid filter: %v", verr)
		}
		return toolError("%v", err)
	}

	page, limit := pageArgs(request)

	result, err := s.audit.Query(ctx, f, page, limit)
	if err != nil {
		return toolError("Audit query failed: %v", err)
	}
	if result.Items == nil {
		result.Items = []model.AuditEntry{}
	}
	return jsonResult(result)
}

// handleListAdmins returns accounts without credentials.
func (s *MCPServer) handleListAdmins(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return toolError("Failed to list admins: %v", err)
	}
	for i := range admins {
		admins[i].PasswordHash = ""
	}
	return jsonResult(admins)
}
