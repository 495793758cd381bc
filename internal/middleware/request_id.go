package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homecare/portal/internal/audit"
)

const requestIDHeader = "X-Request-Id"

// RequestID also stores the id on the request context so audit events
// emitted further down carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(audit.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// RequestIDFrom returns the id RequestID assigned, or "" outside that chain.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDHeader)
}
