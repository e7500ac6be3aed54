package auth

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/config"
	"auction-engine/utils"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type ctxKey struct{}

const ginPrincipalKey = "auth.principal"

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by the auth middleware
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// PrincipalFrom returns the principal attached to a gin request
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	if v, ok := c.Get(ginPrincipalKey); ok {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return FromContext(c.Request.Context())
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter that browsers use for websocket upgrades.
func TokenFromRequest(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireAuth validates a bearer token and seeds the request with the principal.
func RequireAuth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			utils.AbortJSONError(c, http.StatusUnauthorized, biddingerrors.ErrUnauthenticated, "Missing credentials")
			return
		}

		principal, err := ParseToken(cfg, token)
		if err != nil {
			utils.Warn("Rejected token", map[string]any{
				"path":  c.FullPath(),
				"error": err.Error(),
			})
			utils.AbortJSONError(c, http.StatusUnauthorized, biddingerrors.ErrUnauthenticated, "Invalid token")
			return
		}

		c.Set(ginPrincipalKey, principal)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireRole rejects principals whose role differs from role
func RequireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			utils.AbortJSONError(c, http.StatusUnauthorized, biddingerrors.ErrUnauthenticated, "Missing credentials")
			return
		}
		if p.Role != role {
			utils.AbortJSONError(c, http.StatusForbidden, biddingerrors.ErrForbidden, "Role required")
			return
		}
		c.Next()
	}
}
