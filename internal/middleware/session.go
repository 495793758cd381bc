package middleware

import (
	"github.com/gin-gonic/gin"

	"homecare/portal/internal/models"
	"homecare/portal/internal/session"
)

const sessionContextKey = "current_session"

// LoadSession validates the session cookie, refreshing it when close to
// expiry, and exposes the result through CurrentSession. It never rejects.
func LoadSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := sessions.Validate(c.Request.Context(), c.Writer, c.Request); s != nil {
			c.Set(sessionContextKey, *s)
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}
