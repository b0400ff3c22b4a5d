package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
)

// vocabArg reads a required argument that must be one of vocab.
func vocabArg(request mcp.CallToolRequest, key string, vocab []string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	for _, v := range vocab {
		if v == val {
			return val, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q; expected one of %s", key, val, strings.Join(vocab, ", "))
}

// auditQuery maps tool arguments onto the query parameters accepted by
// audit.ParseFilter.
func auditQuery(request mcp.CallToolRequest) url.Values {
	q := url.Values{}
	for _, key := range []string{"from", "to", "action", "module", "q"} {
		if v := request.GetString(key, ""); v != "" {
			q.Set(key, v)
		}
	}
	if id := request.GetInt("user_id", 0); id > 0 {
		q.Set("userId", strconv.Itoa(id))
	}
	return q
}

// pageArgs returns page >= 1 and limit in [1, audit.MaxLimit].
func pageArgs(request mcp.CallToolRequest) (page, limit int) {
	page = request.GetInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = request.GetInt("limit", audit.DefaultLimit)
	switch {
	case limit < 1:
		limit = 1
	case limit > audit.MaxLimit:
		limit = audit.MaxLimit
	}
	return page, limit
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a failure to the agent without ending the session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
