package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "smartbin/portal/pkg/jwt"
	"smartbin/portal/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

// Authenticator validates a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwtpkg.Claims, error)
}

// SessionToken reads the token from the session cookie, falling back to an
// Authorization: Bearer header.
func SessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SessionAuth rejects requests without a valid, unrevoked session.
func SessionAuth(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			response.Unauthorized(c, "missing session")
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// Claims returns the session claims set by SessionAuth.
func Claims(c *gin.Context) (*jwtpkg.Claims, bool) {
	v, ok := c.Get(ContextKeyUserClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwtpkg.Claims)
	return claims, ok
}
