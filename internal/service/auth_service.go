package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/models"
	"homecare/portal/internal/repository"
	"homecare/portal/internal/session"
)

// ProviderRedirect is where the stub identity provider sends the browser
// after begin-auth.
const ProviderRedirect = "/signin?step=mfa"

const (
	DevUserID    = repository.DevUserID
	DevUserEmail = "dev@example.com"
)

type BeginAuthInput struct {
	RedirectURI string `json:"redirectUri"`
	Domain      string `json:"domain"`
	AppID       string `json:"appId"`
	Region      string `json:"region"`
}

// SessionView is the body of GET /api/auth/session.
type SessionView struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	MFAComplete bool        `json:"mfaComplete"`
	ExpiresAt   string      `json:"expiresAt,omitempty"`
}

type AuthService struct {
	users    repository.PortalStore
	sessions *session.Manager
	mfa      *MFAService
	audit    audit.Recorder
	log      zerolog.Logger
}

func NewAuthService(
	users repository.PortalStore,
	sessions *session.Manager,
	mfa *MFAService,
	recorder audit.Recorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		mfa:      mfa,
		audit:    recorder,
		log:      log,
	}
}

// BeginAuth is the stub identity provider: any well-formed request is sent
// straight to the MFA step.
func (s *AuthService) BeginAuth(ctx context.Context, input BeginAuthInput) (string, error) {
	s.log.Info().
		Str("domain", input.Domain).
		Str("app_id", input.AppID).
		Str("redirect_uri", input.RedirectURI).
		Msg("begin embedded auth")
	audit.TrackAuthEvent(ctx, s.audit, "auth_begin", "", map[string]any{
		"domain": input.Domain,
		"region": input.Region,
	})
	return ProviderRedirect, nil
}

func (s *AuthService) BeginMFA(ctx context.Context, userID string) (models.MFAChallenge, error) {
	if userID == "" {
		userID = DevUserID
	}
	return s.mfa.Begin(ctx, userID)
}

// CompleteMFA verifies the code and, on success, issues the session together
// with the role and MFA cookies the gate reads.
func (s *AuthService) CompleteMFA(ctx context.Context, w http.ResponseWriter, challengeID string, code string) (models.Session, error) {
	challenge, err := s.mfa.Verify(ctx, challengeID, code)
	if err != nil {
		return models.Session{}, err
	}

	user, err := s.users.GetUser(ctx, challenge.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return models.Session{}, err
		}
		s.log.Warn().Str("user_id", challenge.UserID).Msg("unknown user completed mfa, defaulting to client role")
		user = models.User{ID: challenge.UserID, Role: models.RoleClient}
	}

	sess, err := s.sessions.Create(ctx, w, session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		MFAComplete: true,
	})
	if err != nil {
		return models.Session{}, err
	}
	s.sessions.SetRoleCookies(w, user.Role, true)
	return sess, nil
}

// CurrentSession renders sess, the session already validated for this
// request. Without one it derives a development view from the role and mfa
// cookies on r.
func (s *AuthService) CurrentSession(sess *models.Session, r *http.Request) SessionView {
	if sess != nil {
		return SessionView{
			UserID:      sess.UserID,
			Email:       sess.Email,
			Role:        sess.Role,
			MFAComplete: sess.MFAComplete,
			ExpiresAt:   sess.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}

	view := SessionView{UserID: DevUserID, Email: DevUserEmail, Role: models.RoleClient}
	if c, err := r.Cookie(session.CookieRole); err == nil {
		if role, ok := models.ParseRole(c.Value); ok {
			view.Role = role
		}
	}
	if c, err := r.Cookie(session.CookieMFA); err == nil {
		view.MFAComplete = c.Value == session.MFACompleteValue
	}
	return view
}

// Session returns the validated session or ErrSessionInvalid.
func (s *AuthService) Session(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Session, error) {
	sess := s.sessions.Validate(ctx, w, r)
	if sess == nil {
		return models.Session{}, ErrSessionInvalid
	}
	return *sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, w http.ResponseWriter) {
	s.sessions.Destroy(ctx, w)
}
