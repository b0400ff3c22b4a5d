package middleware

import (
	"net/http"
	"strings"
)

// ClientIP returns the originating client address for audit and login
// metadata: the first hop of X-Forwarded-For, else X-Real-IP, else
// "unknown". The value is not trusted for authorization.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return "unknown"
}
