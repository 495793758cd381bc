package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/models"
	"homecare/portal/internal/ratelimit"
	"homecare/portal/internal/rbac"
	"homecare/portal/internal/session"
)

type GateConfig struct {
	Limiter   ratelimit.Limiter
	Routes    *rbac.RouteTable
	DevBypass bool
	Recorder  audit.Recorder
	Log       zerolog.Logger
}

type gateOutcome int

const gateOutcomeKey = "gate_outcome"

const (
	gatePass gateOutcome = iota
	gateLimited
	gateDenied
)

// Gate runs in front of every route. In order: security headers, rate
// limit, dev bypass, public paths, role and MFA cookies. A panic while
// deciding yields a plain 500.
func Gate(cfg GateConfig) gin.HandlerFunc {
	routes := cfg.Routes
	if routes == nil {
		routes = rbac.MustDefault()
	}
	log := cfg.Log

	return func(c *gin.Context) {
		SetSecurityHeaders(c.Writer.Header())
		start := time.Now()

		outcome, ok := evaluate(c, cfg, routes, log, start)
		if !ok {
			c.Set(gateOutcomeKey, "error")
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.AbortWithStatus(http.StatusInternalServerError)
			_, _ = c.Writer.WriteString("Internal Server Error")
			return
		}

		switch outcome {
		case gateLimited:
			c.Set(gateOutcomeKey, "rate_limited")
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.AbortWithStatus(http.StatusTooManyRequests)
			_, _ = c.Writer.WriteString("Too Many Requests")
		case gateDenied:
			c.Set(gateOutcomeKey, "denied")
			c.Redirect(http.StatusTemporaryRedirect, rbac.SignInPath+"?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
		default:
			c.Next()
		}
	}
}

func evaluate(c *gin.Context, cfg GateConfig, routes *rbac.RouteTable, log zerolog.Logger, start time.Time) (outcome gateOutcome, ok bool) {
	path := c.Request.URL.Path
	key := ClientKey(c)
	requestID := RequestIDFrom(c)
	ctx := c.Request.Context()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("gate panic: %v", r)
			log.Error().
				Err(err).
				Str("path", path).
				Str("ip", key).
				Str("request_id", requestID).
				Dur("elapsed", time.Since(start)).
				Msg("middleware error")
			audit.TrackError(ctx, cfg.Recorder, err, map[string]any{
				"path":   path,
				"ip":     key,
				"action": "middleware_error",
			})
			ok = false
		}
	}()

	if cfg.Limiter != nil {
		decision, err := cfg.Limiter.Allow(ctx, key)
		if err != nil {
			log.Error().Err(err).Str("ip", key).Msg("rate limiter unavailable, allowing request")
		} else if !decision.Allowed {
			log.Warn().Str("ip", key).Str("path", path).Str("request_id", requestID).Msg("rate limit exceeded")
			return gateLimited, true
		}
	}

	if cfg.DevBypass {
		return gatePass, true
	}

	log.Debug().Str("path", path).Str("ip", key).Str("user_agent", c.Request.UserAgent()).Msg("middleware execution")

	if rbac.IsPublic(path) {
		return gatePass, true
	}

	required, protected := routes.RequiredRole(path)
	if !protected {
		return gatePass, true
	}

	role := cookieValue(c, session.CookieRole)
	mfaComplete := cookieValue(c, session.CookieMFA) == session.MFACompleteValue

	if models.Role(role) != required || !mfaComplete {
		log.Warn().
			Str("path", path).
			Str("ip", key).
			Str("role", role).
			Str("required_role", string(required)).
			Bool("mfa_complete", mfaComplete).
			Str("user_agent", c.Request.UserAgent()).
			Str("request_id", requestID).
			Msg("access denied - invalid session")
		audit.TrackError(ctx, cfg.Recorder, fmt.Errorf("access denied - invalid session"), map[string]any{
			"path":         path,
			"ip":           key,
			"role":         role,
			"mfa_complete": mfaComplete,
			"next":         path,
			"action":       "middleware_access_denied",
		})
		return gateDenied, true
	}

	log.Info().
		Str("path", path).
		Str("role", role).
		Str("ip", key).
		Dur("elapsed", time.Since(start)).
		Msg("access granted")
	return gatePass, true
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}
