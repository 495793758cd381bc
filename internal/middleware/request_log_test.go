package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/portal/internal/audit"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line), raw)
		lines = append(lines, line)
	}
	return lines
}

func findLine(lines []map[string]any, msg string) map[string]any {
	for _, l := range lines {
		if l["message"] == msg {
			return l
		}
	}
	return nil
}

func TestGateDenialCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	events := &audit.Collector{}

	cfg := defaultGate(events)
	cfg.Log = log
	r := gin.New()
	r.Use(RequestID(), Logger(log), Gate(cfg))
	r.GET("/client-dashboard", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/client-dashboard", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))

	lines := logLines(t, &buf)
	denied := findLine(lines, "access denied - invalid session")
	require.NotNil(t, denied)
	assert.Equal(t, "req-42", denied["request_id"])

	access := findLine(lines, "http request")
	require.NotNil(t, access)
	assert.Equal(t, "denied", access["gate"])
	assert.Equal(t, "req-42", access["request_id"])

	evs := events.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, "req-42", evs[len(evs)-1].RequestID)
}

func TestLoggerMarksRateLimitedRequests(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(Logger(log), Gate(defaultGate(&audit.Collector{})))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 101; i++ {
		do(r, "/")
	}

	lines := logLines(t, &buf)
	last := lines[len(lines)-1]
	assert.Equal(t, "rate_limited", last["gate"])
	assert.Equal(t, float64(http.StatusTooManyRequests), last["status"])
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	id := rec.Body.String()
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))
}

func TestCORSOrigins(t *testing.T) {
	preflight := func(h gin.HandlerFunc) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(h)
		req := httptest.NewRequest(http.MethodOptions, "/api/care-plans", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(CORS(nil, false))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://portal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(CORS(nil, true))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(CORS([]string{"https://portal.example.com"}, true))
	assert.Equal(t, "https://portal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(CORS([]string{"https://other.example.com"}, false))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
