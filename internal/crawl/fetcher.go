// Package crawl fetches company websites, classifies their pages and
// verifies registration identifiers by exact match.
package crawl

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultUserAgent identifies the crawler to target sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; EnrichBot/1.0; +https://sells-group.com/bot)"

const defaultMaxBody = 2 << 20

// Page is a fetched document. Pages are returned for every HTTP status;
// only transport failures produce an error.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       string
	Blocked    BlockType
}

// OK reports whether the page was served with HTTP 200.
func (p *Page) OK() bool {
	return p != nil && p.StatusCode == http.StatusOK
}

// Fetcher performs GET requests with browser-like headers and decodes the
// body to UTF-8.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the underlying client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBody caps the number of body bytes read per page.
func WithMaxBody(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBody = n }
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		userAgent: DefaultUserAgent,
		maxBody:   defaultMaxBody,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch retrieves rawURL, following redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: read body")
	}

	_, block := DetectBlock(resp, body)

	return &Page{
		URL:        rawURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       decodeBody(body, resp.Header.Get("Content-Type")),
		Blocked:    block,
	}, nil
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)

// decodeBody converts body to UTF-8 using the charset from the Content-Type
// header, falling back to a <meta charset> declaration.
func decodeBody(body []byte, contentType string) string {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	}
	if name == "" {
		head := body
		if len(head) > 2048 {
			head = head[:2048]
		}
		if m := metaCharsetRe.FindSubmatch(head); m != nil {
			name = string(m[1])
		}
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(bytes.ToValidUTF8(body, []byte("�")))
	}
	return string(decoded)
}
