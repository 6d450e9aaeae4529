package middleware

import (
	"github.com/gin-gonic/gin"

	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/response"
)

// RequirePermission checks the session role against the permission table.
// Must be used after SessionAuth.
func RequirePermission(perm authz.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}
		if !claims.Role.Can(perm) {
			response.Forbidden(c, "permission required: "+string(perm))
			c.Abort()
			return
		}
		c.Next()
	}
}
