// Package authflow drives the portal's three-step sign-in (provider
// redirect, MFA challenge, MFA verification) as an explicit state machine
// over the API client.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"homecare/portal/internal/apiclient"
	"homecare/portal/internal/audit"
	"homecare/portal/internal/config"
	"homecare/portal/internal/rbac"
	"homecare/portal/internal/security"
	"homecare/portal/internal/session"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingProvider State = "awaiting-provider-redirect"
	StateMFAPending       State = "mfa-pending"
	StateMFAVerify        State = "mfa-verify"
	StateAuthenticated    State = "authenticated"
	StateError            State = "error"
)

const (
	ProviderStubURL  = "/signin?step=mfa"
	SignInPath       = "/signin"
	DefaultDashboard = "/client-dashboard"
	CodeDigits       = 6
)

var (
	ErrConfigIncomplete  = errors.New("embedded auth configuration incomplete")
	ErrInvalidTransition = errors.New("invalid sign-in transition")
	ErrMissingURL        = errors.New("auth begin response has no url")
	ErrInvalidCodeFormat = errors.New("verification code must be 6 digits")
)

// Navigator moves the user agent to target.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

type NavigatorFunc func(ctx context.Context, target string) error

func (f NavigatorFunc) Navigate(ctx context.Context, target string) error {
	return f(ctx, target)
}

type Flow struct {
	api      *apiclient.Client
	cfg      config.EmbeddedAuthConfig
	nav      Navigator
	recorder audit.Recorder
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	challengeID string
	lastErr     error
}

func New(api *apiclient.Client, cfg config.EmbeddedAuthConfig, nav Navigator, recorder audit.Recorder, log zerolog.Logger) *Flow {
	return &Flow{
		api:      api,
		cfg:      cfg,
		nav:      nav,
		recorder: recorder,
		log:      log,
		state:    StateIdle,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) ChallengeID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challengeID
}

// Err returns the failure that moved the flow into StateError, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Reset returns the flow to idle from any state.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.state = StateIdle
	f.challengeID = ""
	f.lastErr = nil
	f.mu.Unlock()
}

func (f *Flow) BeginEmbeddedAuth(ctx context.Context) error {
	if err := f.require("begin_embedded_auth", StateIdle, StateError); err != nil {
		return err
	}

	var missing []string
	if f.cfg.Domain == "" {
		missing = append(missing, "domain")
	}
	if f.cfg.AppID == "" {
		missing = append(missing, "appId")
	}
	if f.cfg.RedirectURI == "" {
		missing = append(missing, "redirectUri")
	}
	if len(missing) > 0 {
		return f.fail(ctx, "begin_embedded_auth", fmt.Errorf("%w: missing %v", ErrConfigIncomplete, missing))
	}

	f.setState(StateAwaitingProvider)

	resp, err := f.api.BeginAuth(ctx, apiclient.BeginAuthRequest{
		RedirectURI: f.cfg.RedirectURI,
		Domain:      f.cfg.Domain,
		AppID:       f.cfg.AppID,
		Region:      f.cfg.Region,
	})
	if err != nil {
		return f.fail(ctx, "begin_embedded_auth", fmt.Errorf("begin auth: %w", err))
	}
	if resp.URL == "" {
		return f.fail(ctx, "begin_embedded_auth", ErrMissingURL)
	}

	if err := f.nav.Navigate(ctx, resp.URL); err != nil {
		return f.fail(ctx, "begin_embedded_auth", fmt.Errorf("navigate to provider: %w", err))
	}

	if resp.URL == ProviderStubURL {
		f.setState(StateMFAPending)
	}
	audit.TrackAuthEvent(ctx, f.recorder, "embedded_auth_started", "", map[string]any{"url": resp.URL})
	return nil
}

// BeginMFA requests a challenge for userID. Calling it again while a
// challenge is outstanding issues a fresh one.
func (f *Flow) BeginMFA(ctx context.Context, userID string) error {
	if err := f.require("begin_mfa", StateMFAPending, StateMFAVerify); err != nil {
		return err
	}

	resp, err := f.api.BeginMFA(ctx, apiclient.BeginMFARequest{UserID: userID})
	if err != nil {
		return f.fail(ctx, "begin_mfa", fmt.Errorf("begin mfa: %w", err))
	}

	f.mu.Lock()
	f.challengeID = resp.ChallengeID
	f.state = StateMFAVerify
	f.mu.Unlock()
	return nil
}

// VerifyMFA submits code for the outstanding challenge and, on success,
// navigates to next when it is a local path.
func (f *Flow) VerifyMFA(ctx context.Context, code string, next string) error {
	if err := f.require("verify_mfa", StateMFAVerify); err != nil {
		return err
	}
	if !security.IsNumericCode(code, CodeDigits) {
		f.log.Warn().Msg("rejecting malformed verification code")
		audit.TrackError(ctx, f.recorder, ErrInvalidCodeFormat, map[string]any{"action": "verify_mfa"})
		return ErrInvalidCodeFormat
	}

	resp, err := f.api.VerifyMFA(ctx, apiclient.VerifyMFARequest{ChallengeID: f.ChallengeID(), Code: code})
	if err != nil {
		var httpErr *apiclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
			// Wrong or expired code; the user may retry or request another.
			f.log.Warn().Int("status", httpErr.Status).Msg("mfa verification rejected")
			audit.TrackError(ctx, f.recorder, err, map[string]any{"action": "verify_mfa"})
			return fmt.Errorf("verify mfa: %w", err)
		}
		return f.fail(ctx, "verify_mfa", fmt.Errorf("verify mfa: %w", err))
	}
	if !resp.Success {
		return f.fail(ctx, "verify_mfa", errors.New("verify mfa: server reported failure"))
	}

	f.mu.Lock()
	f.state = StateAuthenticated
	f.challengeID = ""
	f.mu.Unlock()

	target := rbac.SafeNext(next, DefaultDashboard)
	if err := f.nav.Navigate(ctx, target); err != nil {
		f.log.Error().Err(err).Str("target", target).Msg("navigation after sign-in failed")
		audit.TrackError(ctx, f.recorder, err, map[string]any{"action": "verify_mfa_navigate"})
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	return nil
}

// SignOut clears local auth state and always ends on the sign-in page,
// even when the server call fails.
func (f *Flow) SignOut(ctx context.Context) error {
	serverErr := f.api.SignOut(ctx)
	if serverErr != nil {
		f.log.Warn().Err(serverErr).Msg("server sign-out failed")
		audit.TrackError(ctx, f.recorder, serverErr, map[string]any{"action": "sign_out"})
	}
	f.api.ClearCookies(session.CookieRole, session.CookieMFA)
	audit.TrackAuthEvent(ctx, f.recorder, "signed_out", "", nil)

	f.Reset()

	if err := f.nav.Navigate(ctx, SignInPath); err != nil {
		f.log.Error().Err(err).Msg("navigation to sign-in failed")
		return err
	}
	return serverErr
}

func (f *Flow) require(op string, allowed ...State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range allowed {
		if f.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, f.state)
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) fail(ctx context.Context, op string, err error) error {
	f.log.Error().Err(err).Str("op", op).Msg("sign-in step failed")
	audit.TrackError(ctx, f.recorder, err, map[string]any{"action": op})

	f.mu.Lock()
	f.state = StateError
	f.lastErr = err
	f.mu.Unlock()
	return err
}
