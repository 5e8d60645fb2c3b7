// Package zenserp is a minimal client for the ZenSERP search results API.
package zenserp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://app.zenserp.com/api/v2"
	defaultUserAgent = "enrich-cli/1.0 (Business Website Discovery)"
)

// Sentinel errors for the API's documented failure statuses.
var (
	ErrUnauthorized  = errors.New("zenserp: unauthorized")
	ErrQuotaExceeded = errors.New("zenserp: quota exceeded")
	ErrRateLimited   = errors.New("zenserp: rate limited")
)

// Client performs ZenSERP API operations.
type Client interface {
	Search(ctx context.Context, query string) (*SearchResponse, error)
	Status(ctx context.Context) (*StatusResponse, error)
}

// SearchResponse is the response from GET /search.
type SearchResponse struct {
	Query   QueryInfo       `json:"query"`
	Organic []OrganicResult `json:"organic"`
}

// QueryInfo echoes the submitted query and the account's remaining credits.
type QueryInfo struct {
	Q                string `json:"q"`
	URL              string `json:"url,omitempty"`
	CreditsRemaining *int   `json:"credits_remaining,omitempty"`
}

// OrganicResult is a single organic search hit.
type OrganicResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// StatusResponse is the response from GET /status.
type StatusResponse struct {
	RemainingRequests int `json:"remaining_requests"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	apiKey    string
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a ZenSERP API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)

	var result SearchResponse
	if err := c.get(ctx, "/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Status(ctx context.Context) (*StatusResponse, error) {
	var result StatusResponse
	if err := c.get(ctx, "/status", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "zenserp: create request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "zenserp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "zenserp: read response")
	}

	if err := statusError(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "zenserp: unmarshal response")
	}
	return nil
}

// statusError maps non-200 responses onto the package sentinels. Rate limits
// and server errors are wrapped as transient so callers can retry them.
func statusError(resp *http.Response, body []byte) error {
	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return eris.Wrapf(ErrUnauthorized, "status %d", code)
	case code == http.StatusPaymentRequired:
		return eris.Wrapf(ErrQuotaExceeded, "status %d", code)
	case code == http.StatusTooManyRequests:
		return resilience.NewRateLimitError(eris.Wrapf(ErrRateLimited, "status %d", code), parseRetryAfter(resp.Header.Get("Retry-After")))
	case resilience.IsTransientHTTPStatus(code):
		return resilience.NewTransientError(eris.Errorf("zenserp: unexpected status %d: %s", code, truncate(body, 200)), code)
	default:
		return eris.Errorf("zenserp: unexpected status %d: %s", code, truncate(body, 200))
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
