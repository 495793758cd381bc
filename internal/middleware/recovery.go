package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
)

func Recovery(log zerolog.Logger, recorder audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("error", r).
					Str("path", c.Request.URL.Path).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")
				audit.TrackError(c.Request.Context(), recorder, fmt.Errorf("handler panic: %v", r), map[string]any{
					"path":   c.Request.URL.Path,
					"action": "handler_panic",
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal_server_error",
				})
			}
		}()
		c.Next()
	}
}
