// Package vat resolves UK VAT registration numbers from company names by
// scraping the vat-lookup.co.uk search form through a rotating proxy.
package vat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://vat-lookup.co.uk"
	searchPath     = "/verify/search.php"
	maxBodyBytes   = 2 << 20
)

// Errors that trigger a retry of the same variant on a new session.
var (
	ErrSoftBlocked = eris.New("vat: soft block")
	ErrRequest     = eris.New("vat: request failed")
)

// Headers sent with every lookup, mimicking a desktop Chrome form submit.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-GB,en;q=0.9",
	"Cache-Control":             "max-age=0",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Sec-Fetch-User":            "?1",
	"sec-ch-ua":                 `"Google Chrome";v="137", "Chromium";v="137", "Not/A)Brand";v="24"`,
	"sec-ch-ua-mobile":          "?0",
	"sec-ch-ua-platform":        `"macOS"`,
}

// Config controls the resolver.
type Config struct {
	BaseURL    string
	ProxyURL   string
	MaxRetries int
	Timeout    time.Duration
	Delay      time.Duration
}

// FromConfig converts the application's vat section.
func FromConfig(c config.VATConfig) Config {
	return Config{
		BaseURL:    c.BaseURL,
		ProxyURL:   c.ProxyURL,
		MaxRetries: c.MaxRetries,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		Delay:      time.Duration(c.DelayMs) * time.Millisecond,
	}
}

// Resolver looks up VAT numbers. Safe for concurrent use; the request rate
// is shared by every caller of one Resolver.
type Resolver struct {
	cfg     Config
	proxy   *url.URL
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBackoff sets the wait before the first retry of a variant.
func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) { r.retry.InitialBackoff = d }
}

// WithMinDelay sets the minimum spacing between lookups. Zero disables pacing.
func WithMinDelay(d time.Duration) Option {
	return func(r *Resolver) { r.limiter = newLimiter(d) }
}

// NewResolver validates cfg and builds a Resolver. An empty ProxyURL means
// requests go out directly.
func NewResolver(cfg Config, opts ...Option) (*Resolver, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := &Resolver{
		cfg:     cfg,
		limiter: newLimiter(cfg.Delay),
		now:     time.Now,
	}
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, eris.Errorf("vat: invalid proxy url %q", cfg.ProxyURL)
		}
		r.proxy = u
	} else {
		zap.L().Warn("vat: no proxy configured, lookups go out directly")
	}

	backoff := cfg.Delay
	if backoff <= 0 {
		backoff = time.Second
	}
	r.retry = resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: backoff,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, ErrSoftBlocked) || errors.Is(err, ErrRequest)
		},
		OnRetry: resilience.RetryLogger("vat-lookup", "search"),
	}

	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// lookupPage is one classified response.
type lookupPage struct {
	kind responseKind
	html string
}

// outcome tallies how each variant ended without a match.
type outcome struct {
	notFound, ambiguous, unparseable, blocked, failed int
	lastErr                                          error
}

// Resolve looks up the VAT number for name. It never returns an error;
// every failure is reported through the result status.
func (r *Resolver) Resolve(ctx context.Context, name string) model.VATResult {
	name = strings.TrimSpace(name)
	log := zap.L().With(zap.String("company", name))
	res := model.VATResult{
		CompanyName:   name,
		VATNumber:     model.VATNotFound,
		VariantsTried: []string{},
	}

	if !ValidCompanyName(name) {
		res.Status = model.VATStatusInvalidCompanyName
		res.Notes = "Company name must be between 2 and 200 characters"
		res.ResolvedAt = r.now().UTC()
		return res
	}

	variants := NameVariants(name)
	var out outcome
	tried := 0
	for i, term := range variants {
		if ctx.Err() != nil {
			out.failed++
			out.lastErr = ctx.Err()
			break
		}
		tried = i + 1
		log.Debug("vat: trying variant", zap.Int("index", i+1), zap.Int("of", len(variants)), zap.String("term", term))

		page, err := r.lookup(ctx, term, &res.Attempts)
		if err != nil {
			if errors.Is(err, ErrSoftBlocked) {
				out.blocked++
			} else {
				out.failed++
			}
			out.lastErr = err
			log.Warn("vat: variant exhausted retries", zap.String("term", term), zap.Error(err))
			continue
		}

		switch page.kind {
		case kindNotFound:
			out.notFound++
		case kindResults:
			cands, err := parseResults(page.html)
			if err != nil || len(cands) == 0 {
				out.unparseable++
				continue
			}
			match := pick(cands, term)
			if match == nil {
				out.ambiguous++
				log.Info("vat: multiple results without exact match", zap.String("term", term), zap.Int("rows", len(cands)))
				continue
			}
			res.VATNumber = match.VATNumber
			res.Match = match
			res.VariantsTried = append(res.VariantsTried, variants[:i+1]...)
			res.Status = model.VATStatusSuccess
			res.Notes = fmt.Sprintf("Successfully found VAT number %s using search term '%s'", match.VATNumber, term)
			res.ResolvedAt = r.now().UTC()
			log.Info("vat: resolved", zap.String("vat", match.VATNumber), zap.Int("attempts", res.Attempts))
			return res
		default:
			out.unparseable++
		}
	}

	res.VariantsTried = append(res.VariantsTried, variants[:tried]...)
	res.Status, res.Notes = out.summary(len(variants))
	res.ResolvedAt = r.now().UTC()
	log.Info("vat: not resolved", zap.String("status", string(res.Status)), zap.Int("attempts", res.Attempts))
	return res
}

// summary picks the status for a lookup in which no variant matched.
// Any answer from the service ends as VAT_NOT_FOUND; SERVICE_BLOCKED and
// NETWORK_ERROR are kept for lookups the service never answered.
func (o outcome) summary(variants int) (model.VATStatus, string) {
	answered := o.notFound + o.ambiguous + o.unparseable
	switch {
	case answered > 0:
		return model.VATStatusNotFound, o.notFoundNotes(variants)
	case o.blocked > 0 && o.failed == 0:
		return model.VATStatusServiceBlocked, fmt.Sprintf("Lookup service blocked every attempt across %d search variations", variants)
	default:
		return model.VATStatusNetworkError, fmt.Sprintf("Lookup requests failed: %v", o.lastErr)
	}
}

func (o outcome) notFoundNotes(variants int) string {
	notes := fmt.Sprintf("No VAT registration found after trying %d search variations", variants)
	var detail []string
	if o.ambiguous > 0 {
		detail = append(detail, fmt.Sprintf("%d variations returned multiple results without an exact match", o.ambiguous))
	}
	if o.unparseable > 0 {
		detail = append(detail, fmt.Sprintf("%d variations returned an unrecognised page", o.unparseable))
	}
	if o.blocked+o.failed > 0 {
		detail = append(detail, fmt.Sprintf("%d variations exhausted retries", o.blocked+o.failed))
	}
	if len(detail) > 0 {
		notes += "; " + strings.Join(detail, "; ")
	}
	return notes
}

// lookup submits term, retrying soft blocks and request failures on a new
// session each time.
func (r *Resolver) lookup(ctx context.Context, term string, attempts *int) (*lookupPage, error) {
	return resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*lookupPage, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		*attempts++
		html, err := r.post(ctx, term)
		if err != nil {
			return nil, err
		}
		kind := classify(html)
		if kind == kindSoftBlock {
			return nil, ErrSoftBlocked
		}
		return &lookupPage{kind: kind, html: html}, nil
	})
}

// newSession returns a client with its own transport and no cookie jar, so
// every attempt opens a new proxy connection.
func (r *Resolver) newSession() *http.Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}
	if r.proxy != nil {
		tr.Proxy = http.ProxyURL(r.proxy)
	}
	return &http.Client{Transport: tr, Timeout: r.cfg.Timeout}
}

func (r *Resolver) post(ctx context.Context, term string) (string, error) {
	form := url.Values{"CompanyName": {term}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+searchPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "vat: create request")
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", r.cfg.BaseURL)
	req.Header.Set("Referer", r.cfg.BaseURL+"/")

	client := r.newSession()
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", eris.Wrapf(ErrRequest, "send request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrapf(ErrRequest, "read body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return "", eris.Wrapf(ErrSoftBlocked, "status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", eris.Wrapf(ErrRequest, "status %d", resp.StatusCode)
	}
	return string(body), nil
}
