package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
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
	"homecare/portal/internal/server"
	"homecare/portal/internal/service"
	"homecare/portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// pipeNotifier feeds each delivered code into the CLI's stdin.
type pipeNotifier struct {
	w *io.PipeWriter
}

func (n pipeNotifier) Deliver(_ context.Context, _ string, _ string, code string) error {
	go func() { _, _ = io.WriteString(n.w, code+"\n") }()
	return nil
}

// startTestServer runs the portal on the seeded in-memory store and returns
// its URL.
func startTestServer(t *testing.T, notifier service.Notifier) string {
	t.Helper()

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	keys, err := security.DeriveKeys(cfg.Security.SessionSecret)
	require.NoError(t, err)

	log := zerolog.Nop()
	events := &audit.Collector{}
	store := repository.NewSeededMemoryStore()
	routes := rbac.MustDefault()
	sessions := session.NewManager(session.DefaultConfig(), keys.Session, events, log)
	mfa := service.NewMFAService(repository.NewMemoryChallengeStore(), keys.MFA, service.MFAConfig{}, notifier, events, log)

	hs := handlers.NewHandlerSet(handlers.Dependencies{
		Log:       log,
		Config:    cfg,
		Auth:      service.NewAuthService(store, sessions, mfa, events, log),
		Portal:    service.NewPortalService(store, events, log),
		Documents: service.NewDocumentService(nil, store, time.Minute, events, log),
		Recorder:  events,
		Routes:    routes,
	})
	srv := server.NewHTTPServer(cfg, log, hs, server.Options{
		Gate: middleware.GateConfig{
			Limiter:  ratelimit.NewMemoryLimiter(ratelimit.Config{}, 1024),
			Routes:   routes,
			Recorder: events,
			Log:      log,
		},
		Sessions: sessions,
		Recorder: events,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

var authFlags = []string{
	"--domain", "auth.example.com",
	"--app-id", "portal-app",
	"--redirect-uri", "http://localhost:8080/signin",
}

func TestLoginCommand(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	url := startTestServer(t, pipeNotifier{w: pw})

	args := append([]string{"--server", url, "login", "--next", "/client-dashboard/care-plan"}, authFlags...)
	output, err := runCLI(t, pr, args...)
	require.NoError(t, err, output)

	assert.Contains(t, output, "-> /signin?step=mfa")
	assert.Contains(t, output, "-> /client-dashboard/care-plan")
	assert.Contains(t, output, "User:  dev-user-1")
	assert.Contains(t, output, "Role:  client")
	assert.Contains(t, output, "MFA:   true")
}

func TestLoginWithWrongCode(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	args := append([]string{"--server", url, "login", "--code", "12"}, authFlags...)
	_, err := runCLI(t, nil, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "6 digits")
}

func TestLoginRequiresProviderConfig(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	_, err := runCLI(t, nil, "--server", url, "login", "--domain", "auth.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration incomplete")
}

func TestCarePlansCommand(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	output, err := runCLI(t, nil, "--server", url, "care-plans")
	require.NoError(t, err)
	assert.Contains(t, output, "cp-001")
	assert.Contains(t, output, "Comprehensive Home Care Support")
}

func TestRequestCommand(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	output, err := runCLI(t, nil, "--server", url, "request",
		"--client", "dev-user-1", "--description", "Weekend respite care", "--date", "2025-02-01")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "Service request created: "), output)
}

func TestMatchCommand(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	// "a" is 97, so the seed is 1.
	output, err := runCLI(t, nil, "--server", url, "match", "--client", "abc")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "101")
	assert.Contains(t, lines[2], "77")
}

func TestHealthCommand(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	output, err := runCLI(t, nil, "--server", url, "health")
	require.NoError(t, err)
	assert.Contains(t, output, "Status: ok")
}

func TestSignOutCommand(t *testing.T) {
	url := startTestServer(t, service.NewLogNotifier(zerolog.Nop()))

	output, err := runCLI(t, nil, "--server", url, "signout")
	require.NoError(t, err)
	assert.Contains(t, output, "-> /signin")
}

func TestInvalidTimeout(t *testing.T) {
	_, err := runCLI(t, nil, "--timeout", "soon", "health")
	assert.Error(t, err)
}
