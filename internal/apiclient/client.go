// Package apiclient is a typed client for the portal JSON API. It keeps the
// portal's cookies in a jar so a sequence of calls behaves like one browser.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 5 * time.Second

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
}

// New builds a client for baseURL. A non-positive timeout selects
// DefaultTimeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookie returns the jar's value for name, or "".
func (c *Client) Cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// ClearCookies drops the named cookies from the jar.
func (c *Client) ClearCookies(names ...string) {
	expired := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		expired = append(expired, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	c.http.Jar.SetCookies(c.baseURL, expired)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	target := c.baseURL.String() + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("url", target).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *Client) BeginAuth(ctx context.Context, req BeginAuthRequest) (BeginAuthResponse, error) {
	var out BeginAuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/begin", req, &out)
	return out, err
}

func (c *Client) Session(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &out)
	return out, err
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) BeginMFA(ctx context.Context, req BeginMFARequest) (BeginMFAResponse, error) {
	var out BeginMFAResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/mfa/begin", req, &out)
	return out, err
}

func (c *Client) VerifyMFA(ctx context.Context, req VerifyMFARequest) (VerifyMFAResponse, error) {
	var out VerifyMFAResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/mfa/verify", req, &out)
	return out, err
}

func (c *Client) UpdateUserRole(ctx context.Context, req UpdateUserRoleRequest) (SuccessResponse, error) {
	var out SuccessResponse
	err := c.do(ctx, http.MethodPost, "/api/users/role", req, &out)
	return out, err
}

func (c *Client) ListCarePlans(ctx context.Context) (ListCarePlansResponse, error) {
	var out ListCarePlansResponse
	err := c.do(ctx, http.MethodGet, "/api/care-plans", nil, &out)
	return out, err
}

func (c *Client) CreateServiceRequest(ctx context.Context, req CreateServiceRequest) (CreateServiceResponse, error) {
	var out CreateServiceResponse
	err := c.do(ctx, http.MethodPost, "/api/service-requests", req, &out)
	return out, err
}

func (c *Client) ListServiceRequests(ctx context.Context, clientID string) (ListServiceRequestsResponse, error) {
	var out ListServiceRequestsResponse
	path := "/api/service-requests"
	if clientID != "" {
		path += "?clientId=" + url.QueryEscape(clientID)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ScheduleInterview(ctx context.Context, req ScheduleInterviewRequest) (ScheduleInterviewResponse, error) {
	var out ScheduleInterviewResponse
	err := c.do(ctx, http.MethodPost, "/api/schedule/interview", req, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (SuccessResponse, error) {
	var out SuccessResponse
	err := c.do(ctx, http.MethodPost, "/api/profiles/update", req, &out)
	return out, err
}

func (c *Client) UploadDocumentInit(ctx context.Context, req UploadDocumentInitRequest) (UploadDocumentInitResponse, error) {
	var out UploadDocumentInitResponse
	err := c.do(ctx, http.MethodPost, "/api/documents/upload/init", req, &out)
	return out, err
}

func (c *Client) BillingSummary(ctx context.Context) (BillingSummaryResponse, error) {
	var out BillingSummaryResponse
	err := c.do(ctx, http.MethodGet, "/api/billing/summary", nil, &out)
	return out, err
}

func (c *Client) Matching(ctx context.Context, req MatchingInput) (MatchingResponse, error) {
	var out MatchingResponse
	err := c.do(ctx, http.MethodPost, "/api/matching/zia", req, &out)
	return out, err
}

func (c *Client) Audit(ctx context.Context, req AuditEventRequest) (SuccessResponse, error) {
	var out SuccessResponse
	err := c.do(ctx, http.MethodPost, "/api/audit", req, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}
