package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

const (
	rolesURI      = "lasercalc://roles"
	roleURIPrefix = "lasercalc://roles/"
	vocabularyURI = "lasercalc://permissions/vocabulary"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			rolesURI,
			"Back-office Roles",
			mcp.WithResourceDescription("All roles with their permission matrices."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleRolesResource,
	)

	srv.AddResource(
		mcp.NewResource(
			vocabularyURI,
			"Permission Vocabulary",
			mcp.WithResourceDescription("The modules and actions a permission matrix may contain."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleVocabularyResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			roleURIPrefix+"{slug}",
			"Role",
			mcp.WithTemplateDescription("A single role and its permission matrix, by slug."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleRoleResource,
	)
}

func (s *MCPServer) handleRolesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return jsonResource(rolesURI, roles)
}

func (s *MCPServer) handleVocabularyResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	return jsonResource(vocabularyURI, map[string][]string{
		"modules": model.Modules,
		"actions": model.Actions,
	})
}

// handleRoleResource returns one role. The slug is taken from the URI.
func (s *MCPServer) handleRoleResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	slug := strings.TrimPrefix(uri, roleURIPrefix)
	if slug == "" || slug == uri {
		return nil, fmt.Errorf("invalid role URI %q: expected %s{slug}", uri, roleURIPrefix)
	}

	role, err := s.store.GetRoleBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", slug, err)
	}
	return jsonResource(uri, role)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
