package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/config"
	"homecare/portal/internal/handlers"
	"homecare/portal/internal/middleware"
	"homecare/portal/internal/ratelimit"
	"homecare/portal/internal/rbac"
	"homecare/portal/internal/repository"
	"homecare/portal/internal/security"
	"homecare/portal/internal/service"
	"homecare/portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type lastCode struct {
	mu   sync.Mutex
	code string
}

func (n *lastCode) Deliver(_ context.Context, _ string, _ string, code string) error {
	n.mu.Lock()
	n.code = code
	n.mu.Unlock()
	return nil
}

func (n *lastCode) get() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.code
}

type portal struct {
	http     *httptest.Server
	client   *http.Client
	codes    *lastCode
	events   *audit.Collector
	sessions *session.Manager
	store    *repository.MemoryStore
}

func newPortal(t *testing.T, probes ...handlers.HealthProbe) *portal {
	t.Helper()

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	keys, err := security.DeriveKeys(cfg.Security.SessionSecret)
	require.NoError(t, err)

	log := zerolog.Nop()
	p := &portal{
		codes:  &lastCode{},
		events: &audit.Collector{},
		store:  repository.NewSeededMemoryStore(),
	}
	routes := rbac.MustDefault()
	p.sessions = session.NewManager(session.DefaultConfig(), keys.Session, p.events, log)
	mfa := service.NewMFAService(repository.NewMemoryChallengeStore(), keys.MFA, service.MFAConfig{}, p.codes, p.events, log)

	hs := handlers.NewHandlerSet(handlers.Dependencies{
		Log:       log,
		Config:    cfg,
		Auth:      service.NewAuthService(p.store, p.sessions, mfa, p.events, log),
		Portal:    service.NewPortalService(p.store, p.events, log),
		Documents: service.NewDocumentService(nil, p.store, time.Minute, p.events, log),
		Recorder:  p.events,
		Routes:    routes,
		Probes:    probes,
	})
	srv := NewHTTPServer(cfg, log, hs, Options{
		Gate: middleware.GateConfig{
			Limiter:  ratelimit.NewMemoryLimiter(ratelimit.Config{}, 1024),
			Routes:   routes,
			Recorder: p.events,
			Log:      log,
		},
		Sessions: p.sessions,
		Recorder: p.events,
	})

	p.http = httptest.NewServer(srv.Handler())
	t.Cleanup(p.http.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	p.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return p
}

func (p *portal) do(t *testing.T, method string, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, p.http.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (p *portal) signIn(t *testing.T, userID string) {
	t.Helper()
	_, begin := p.do(t, http.MethodPost, "/api/auth/mfa/begin", map[string]string{"userId": userID})
	resp, body := p.do(t, http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeId": begin["challengeId"].(string),
		"code":        p.codes.get(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}

func TestSignInFlowReachesDashboard(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.do(t, http.MethodGet, "/client-dashboard", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/signin?next=%2Fclient-dashboard", resp.Header.Get("Location"))

	resp, body := p.do(t, http.MethodPost, "/api/auth/begin", map[string]string{
		"redirectUri": "http://localhost/callback", "domain": "accounts.example.com", "appId": "portal", "region": "us",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/signin?step=mfa", body["url"])

	resp, body = p.do(t, http.MethodPost, "/api/auth/mfa/begin", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	challengeID, _ := body["challengeId"].(string)
	require.NotEmpty(t, challengeID)

	resp, body = p.do(t, http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeId": challengeID,
		"code":        p.codes.get(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/client-dashboard", body["dashboard"])

	resp, body = p.do(t, http.MethodGet, "/client-dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "client-dashboard", body["page"])
	plan, _ := body["carePlan"].(map[string]any)
	assert.Equal(t, "Comprehensive Home Care Support", plan["title"])
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = p.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dev-user-1", body["userId"])
	assert.Equal(t, "client", body["role"])
	assert.Equal(t, true, body["mfaComplete"])

	resp, _ = p.do(t, http.MethodPost, "/api/auth/signout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"storage"`, resp.Header.Get("Clear-Site-Data"))

	resp, _ = p.do(t, http.MethodGet, "/client-dashboard", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	for _, name := range []string{"auth_begin", "mfa_verified", "session_created", "session_destroyed", "middleware_access_denied"} {
		assert.True(t, p.events.Has(name), name)
	}
}

func TestVerifyMFAErrors(t *testing.T) {
	p := newPortal(t)

	resp, body := p.do(t, http.MethodPost, "/api/auth/mfa/verify", map[string]string{"code": "123456"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_body", body["error"])

	_, begin := p.do(t, http.MethodPost, "/api/auth/mfa/begin", nil)
	code := p.codes.get()
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	resp, body = p.do(t, http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeId": begin["challengeId"].(string), "code": wrong,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_code", body["error"])

	resp, _ = p.do(t, http.MethodGet, "/client-dashboard", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode, "failed verify sets no cookies")
}

func TestSessionStubWithoutSignIn(t *testing.T) {
	p := newPortal(t)
	resp, body := p.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"userId": "dev-user-1", "email": "dev@example.com", "role": "client", "mfaComplete": false,
	}, body)
}

func TestUpdateUserRoleRequiresAdmin(t *testing.T) {
	p := newPortal(t)
	payload := map[string]string{"userId": "dev-employee-1", "role": "contractor"}

	resp, _ := p.do(t, http.MethodPost, "/api/users/role", payload)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	p.signIn(t, "dev-user-1")
	resp, _ = p.do(t, http.MethodPost, "/api/users/role", payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	p.signIn(t, "dev-admin-1")
	resp, body := p.do(t, http.MethodPost, "/api/users/role", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])

	u, err := p.store.GetUser(context.Background(), "dev-employee-1")
	require.NoError(t, err)
	assert.Equal(t, "contractor", string(u.Role))
}

func TestPortalEndpoints(t *testing.T) {
	p := newPortal(t)

	resp, body := p.do(t, http.MethodGet, "/api/care-plans", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"id": "cp-001", "title": "Comprehensive Home Care Support", "status": "active"}, items[0])

	resp, _ = p.do(t, http.MethodGet, "/api/care-plans/cp-404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = p.do(t, http.MethodPost, "/api/service-requests", map[string]string{
		"clientId": "dev-user-1", "description": "Companion visit", "requestedDate": "2026-11-02",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.NotEmpty(t, body["requestId"])

	resp, body = p.do(t, http.MethodGet, "/api/service-requests?clientId=dev-user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 4)

	resp, body = p.do(t, http.MethodPost, "/api/schedule/interview", map[string]string{
		"clientId": "dev-user-1", "caregiverId": "1-0", "datetime": "2026-11-03T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["eventId"])

	resp, body = p.do(t, http.MethodPost, "/api/profiles/update", map[string]any{
		"userId": "dev-user-1", "fields": map[string]any{"phone": "+1 (555) 987-6543"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = p.do(t, http.MethodGet, "/api/profiles/dev-user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "+1 (555) 987-6543", body["phone"])

	resp, body = p.do(t, http.MethodPost, "/api/documents/upload/init", map[string]string{
		"ownerId": "dev-user-1", "filename": "plan.pdf", "mimeType": "application/pdf",
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "storage_unavailable", body["error"])

	resp, body = p.do(t, http.MethodGet, "/api/billing/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "USD", body["currency"])

	resp, body = p.do(t, http.MethodPost, "/api/matching/zia", map[string]string{"clientId": "abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	candidates := body["candidates"].([]any)
	require.Len(t, candidates, 3)
	// 'a' is 97, 97 % 3 == 1
	assert.Equal(t, "1-0", candidates[0].(map[string]any)["caregiverId"])
	assert.Equal(t, float64(101), candidates[0].(map[string]any)["score"])

	resp, body = p.do(t, http.MethodPost, "/api/audit", map[string]any{"action": "page_view", "metadata": map[string]any{"page": "/"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestHealth(t *testing.T) {
	p := newPortal(t,
		handlers.HealthProbe{Name: "database", Check: func(context.Context) error { return nil }},
		handlers.HealthProbe{Name: "cache"},
	)
	resp, body := p.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["ts"])
	assert.Equal(t, map[string]any{"database": "ok", "cache": "disabled"}, body["services"])

	down := newPortal(t, handlers.HealthProbe{Name: "database", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})
	resp, body = down.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
}

func TestSignInPageSanitizesNext(t *testing.T) {
	p := newPortal(t)

	_, body := p.do(t, http.MethodGet, "/signin?step=mfa&next=%2Fclient-dashboard%2Fprofile", nil)
	assert.Equal(t, "mfa", body["step"])
	assert.Equal(t, "/client-dashboard/profile", body["next"])

	_, body = p.do(t, http.MethodGet, "/signin?next=https%3A%2F%2Fevil.example", nil)
	assert.Equal(t, "/client-dashboard", body["next"])
}

func TestUnroutedPathsStillPassTheGate(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.do(t, http.MethodGet, "/client-dashboard/", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/signin?next=%2Fclient-dashboard%2F", resp.Header.Get("Location"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))

	resp, _ = p.do(t, http.MethodGet, "/CLIENT-DASHBOARD", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestTrailingSlashRequestsAreRateLimited(t *testing.T) {
	p := newPortal(t)

	for i := 1; i <= 100; i++ {
		resp, _ := p.do(t, http.MethodGet, "/client-dashboard/", nil)
		require.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode, "request %d", i)
	}
	resp, _ := p.do(t, http.MethodGet, "/client-dashboard/", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestSessionEndpointValidatesOnce(t *testing.T) {
	p := newPortal(t)
	p.signIn(t, "dev-user-1")

	// close enough to expiry that validation refreshes
	shifted := time.Now().Add(session.DefaultConfig().MaxAge - 2*time.Minute)
	p.sessions.WithClock(func() time.Time { return shifted })

	resp, body := p.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dev-user-1", body["userId"])

	sessionCookies := 0
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieSession {
			sessionCookies++
		}
	}
	assert.Equal(t, 1, sessionCookies)

	refreshed := 0
	for _, e := range p.events.Events() {
		if e.Event == "session_refreshed" {
			refreshed++
		}
	}
	assert.Equal(t, 1, refreshed)
}
