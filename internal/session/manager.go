// Package session maintains the authenticated session lifecycle on top of
// signed cookies: create at sign-in, validate (and transparently refresh) on
// each request, destroy on sign-out or expiry.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/models"
	"homecare/portal/internal/security"
)

const (
	CookieSession      = "session"
	CookieRole         = "role"
	CookieMFA          = "mfa"
	CookieRefreshToken = "refreshToken"

	MFACompleteValue = "1"
)

// AuthCookies lists every cookie cleared on destroy.
var AuthCookies = []string{CookieSession, CookieRole, CookieMFA, CookieRefreshToken}

type Config struct {
	MaxAge           time.Duration
	RefreshThreshold time.Duration
	Secure           bool
}

func DefaultConfig() Config {
	return Config{
		MaxAge:           24 * time.Hour,
		RefreshThreshold: 5 * time.Minute,
	}
}

// Data is the caller-supplied part of a session; timestamps are stamped by
// the manager.
type Data struct {
	UserID       string
	Email        string
	Role         models.Role
	MFAComplete  bool
	RefreshToken string
}

type Manager struct {
	cfg   Config
	key   []byte
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

func NewManager(cfg Config, key []byte, recorder audit.Recorder, log zerolog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = def.RefreshThreshold
	}
	return &Manager{
		cfg:   cfg,
		key:   key,
		audit: recorder,
		log:   log,
		now:   time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, data Data) (models.Session, error) {
	now := m.now()
	s := models.Session{
		UserID:       data.UserID,
		Email:        data.Email,
		Role:         data.Role,
		MFAComplete:  data.MFAComplete,
		RefreshToken: data.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(m.cfg.MaxAge),
	}

	if err := m.writeCookie(w, s); err != nil {
		return models.Session{}, err
	}

	m.log.Info().Str("user_id", s.UserID).Str("role", string(s.Role)).Msg("session created")
	audit.TrackAuthEvent(ctx, m.audit, "session_created", s.UserID, map[string]any{"role": string(s.Role)})

	return s, nil
}

// Validate returns the current session, or nil when the cookie is absent,
// cannot be decoded, or has expired. An expired session is destroyed. A
// session within the refresh threshold of expiry is re-stamped and the
// refreshed copy is returned.
func (m *Manager) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.Session {
	s, ok := m.read(r)
	if !ok {
		return nil
	}

	now := m.now()
	if s.IsExpired(now) {
		m.Destroy(ctx, w)
		m.log.Warn().Str("user_id", s.UserID).Msg("session expired")
		audit.TrackAuthEvent(ctx, m.audit, "session_expired", s.UserID, nil)
		return nil
	}

	if s.ExpiresAt.Sub(now) < m.cfg.RefreshThreshold {
		m.log.Info().Str("user_id", s.UserID).Msg("refreshing session")
		refreshed, err := m.refresh(ctx, w, s)
		if err != nil {
			m.log.Error().Err(err).Str("user_id", s.UserID).Msg("session refresh failed")
			audit.TrackError(ctx, m.audit, err, map[string]any{"action": "session_refresh"})
			return &s
		}
		return &refreshed
	}

	return &s
}

func (m *Manager) refresh(ctx context.Context, w http.ResponseWriter, s models.Session) (models.Session, error) {
	now := m.now()
	s.IssuedAt = now
	s.ExpiresAt = now.Add(m.cfg.MaxAge)

	if err := m.writeCookie(w, s); err != nil {
		return models.Session{}, err
	}
	// The gate reads role and mfa, so they must live as long as the session.
	m.SetRoleCookies(w, s.Role, s.MFAComplete)

	m.log.Info().Str("user_id", s.UserID).Msg("session refreshed")
	audit.TrackAuthEvent(ctx, m.audit, "session_refreshed", s.UserID, nil)
	return s, nil
}

// Destroy expires every auth cookie and asks the browser to drop site
// storage. Each step is independent and the call cannot fail.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter) {
	for _, name := range AuthCookies {
		http.SetCookie(w, m.expiredCookie(name))
	}
	w.Header().Set("Clear-Site-Data", `"storage"`)

	m.log.Info().Msg("session destroyed")
	audit.TrackAuthEvent(ctx, m.audit, "session_destroyed", "", nil)
}

func (m *Manager) IsExpiringSoon(s models.Session) bool {
	return s.ExpiresAt.Sub(m.now()) < m.cfg.RefreshThreshold
}

func (m *Manager) Age(s models.Session) time.Duration {
	return m.now().Sub(s.IssuedAt)
}

func (m *Manager) TimeUntilExpiry(s models.Session) time.Duration {
	return s.ExpiresAt.Sub(m.now())
}

func (m *Manager) read(r *http.Request) (models.Session, bool) {
	cookie, err := r.Cookie(CookieSession)
	if err != nil || cookie.Value == "" {
		return models.Session{}, false
	}

	s, err := security.DecodeSession(m.key, cookie.Value)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to parse session cookie")
		return models.Session{}, false
	}
	return s, true
}

func (m *Manager) writeCookie(w http.ResponseWriter, s models.Session) error {
	token, err := security.EncodeSession(m.key, s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (m *Manager) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: name == CookieSession || name == CookieMFA,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetRoleCookies writes the role and MFA marker cookies the gate reads.
func (m *Manager) SetRoleCookies(w http.ResponseWriter, role models.Role, mfaComplete bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRole,
		Value:    string(role),
		Path:     "/",
		MaxAge:   int(m.cfg.MaxAge / time.Second),
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if mfaComplete {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieMFA,
			Value:    MFACompleteValue,
			Path:     "/",
			MaxAge:   int(m.cfg.MaxAge / time.Second),
			HttpOnly: true,
			Secure:   m.cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
