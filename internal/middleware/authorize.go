package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/portal/internal/models"
)

// RequireRoles rejects requests without a validated session, or whose
// session role is not listed. LoadSession must run first.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !s.MFAComplete {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "mfa_required"})
			return
		}

		if _, ok := roleSet[s.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
