package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 0, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("portal.local", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestVerifyMFASendsJSONAndKeepsCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/mfa/verify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req VerifyMFARequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ch-1", req.ChallengeID)
		assert.Equal(t, "123456", req.Code)

		http.SetCookie(w, &http.Cookie{Name: "role", Value: "client", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "mfa", Value: "1", Path: "/"})
		_ = json.NewEncoder(w).Encode(VerifyMFAResponse{Success: true, Dashboard: "/client-dashboard"})
	})
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		role, err := r.Cookie("role")
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(SessionResponse{UserID: "u1", Role: role.Value, MFAComplete: true})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	out, err := c.VerifyMFA(ctx, VerifyMFARequest{ChallengeID: "ch-1", Code: "123456"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "/client-dashboard", out.Dashboard)
	assert.Equal(t, "1", c.Cookie("mfa"))

	sess, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client", sess.Role)
}

func TestClearCookies(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "role", Value: "admin", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "mfa", Value: "1", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.SignOut(context.Background()))
	require.Equal(t, "admin", c.Cookie("role"))

	c.ClearCookies("role", "mfa")
	assert.Empty(t, c.Cookie("role"))
	assert.Empty(t, c.Cookie("mfa"))
}

func TestNon2xxReturnsHTTPError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
	}))

	_, err := c.VerifyMFA(context.Background(), VerifyMFARequest{ChallengeID: "x", Code: "000000"})
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Contains(t, httpErr.Error(), "invalid_code")
}

func TestRedirectsAreNotFollowed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/signin?next=%2Fapi%2Fcare-plans", http.StatusTemporaryRedirect)
	}))

	_, err := c.ListCarePlans(context.Background())
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTemporaryRedirect, httpErr.Status)
}

func TestListServiceRequestsEscapesClientID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a b&c", r.URL.Query().Get("clientId"))
		_ = json.NewEncoder(w).Encode(ListServiceRequestsResponse{Items: []ServiceRequest{{ID: "SR-001"}}})
	}))

	out, err := c.ListServiceRequests(context.Background(), "a b&c")
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "SR-001", out.Items[0].ID)
}
