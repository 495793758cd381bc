package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const healthPath = "/api/health"

// Logger writes one line per request with the session's user and role and
// the gate's verdict when it stopped the request.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case c.Request.URL.Path == healthPath:
			// probes poll this every few seconds
			event = log.Debug()
		}

		if outcome := c.GetString(gateOutcomeKey); outcome != "" {
			event = event.Str("gate", outcome)
		}

		if s, ok := CurrentSession(c); ok {
			event = event.Str("user_id", s.UserID).Str("role", string(s.Role))
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", ClientKey(c)).
			Int("status", status).
			Dur("latency", latency).
			Str("request_id", RequestIDFrom(c)).
			Msg("http request")
	}
}
