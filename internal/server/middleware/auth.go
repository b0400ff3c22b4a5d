package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/readyluo/lasercalcpro-sub004/internal/metrics"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// SessionCookie is the name of the HTTP-only cookie carrying the session token.
const SessionCookie = "admin_token"

type contextKeyAuth string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey contextKeyAuth = "auth_identity"

// TokenVerifier verifies a session token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// RoleResolver looks up a role by slug.
type RoleResolver interface {
	GetRoleBySlug(ctx context.Context, slug string) (*model.Role, error)
}

// TokenFromRequest extracts the session token from the Authorization header
// ("Bearer <token>") or, failing that, from the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); token != "" {
			return token
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// RequireAuth returns an HTTP middleware that rejects requests without a
// valid session token with 401. On success the identity is attached to the
// request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				metrics.RecordAuthz("auth", false)
				writeAuthError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
				return
			}

			identity, err := tokens.Verify(token)
			if err != nil {
				metrics.RecordAuthz("auth", false)
				writeAuthError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
				return
			}

			metrics.RecordAuthz("auth", true)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole returns an HTTP middleware that allows only identities whose
// role tag is one of roles. It must be used after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeAuthError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					metrics.RecordAuthz("role", true)
					next.ServeHTTP(w, r)
					return
				}
			}
			metrics.RecordAuthz("role", false)
			writeAuthError(w, http.StatusForbidden, model.KindForbidden, "Insufficient permissions")
		})
	}
}

// RequirePermission returns an HTTP middleware that consults the permission
// matrix of the caller's role. The role tag is resolved to a Role by slug;
// the admin tag is always allowed. It must be used after RequireAuth.
func RequirePermission(roles RoleResolver, module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeAuthError(w, http.StatusUnauthorized, model.KindUnauthorized, "Please login to continue")
				return
			}

			if !Allowed(r.Context(), roles, identity.Role, module, action) {
				metrics.RecordAuthz("permission", false)
				writeAuthError(w, http.StatusForbidden, model.KindForbidden, "Insufficient permissions")
				return
			}
			metrics.RecordAuthz("permission", true)
			next.ServeHTTP(w, r)
		})
	}
}

// Allowed reports whether roleTag grants action on module. Unknown roles and
// resolver errors deny.
func Allowed(ctx context.Context, roles RoleResolver, roleTag, module, action string) bool {
	if roleTag == model.RoleAdmin {
		return true
	}
	role, err := roles.GetRoleBySlug(ctx, roleTag)
	if err != nil || role == nil {
		return false
	}
	return role.Permissions.Allows(module, action)
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext extracts the authenticated identity from the context.
// Returns nil if no identity is present (i.e., unauthenticated request).
func IdentityFromContext(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(IdentityKey).(*model.Identity); ok {
		return id
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Kind: kind, Message: message},
	})
}
