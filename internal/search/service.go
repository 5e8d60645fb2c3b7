package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/zenserp"
)

// Typed search failures. Every error returned by Service.Search wraps one
// of these.
var (
	ErrAuth          = eris.New("search: authentication failed")
	ErrRateLimited   = eris.New("search: rate limited")
	ErrQuotaExceeded = eris.New("search: quota exceeded")
	ErrNetwork       = eris.New("search: network error")
	ErrAPI           = eris.New("search: api error")
)

// Results is a page of organic results plus the credits left afterwards.
type Results struct {
	Organic        []model.OrganicResult
	QuotaRemaining *int
}

// Service issues rate-limited, retried search calls. Safe for concurrent use.
type Service struct {
	client       zenserp.Client
	limiter      *rate.Limiter
	breaker      *resilience.CircuitBreaker
	retry        resilience.RetryConfig
	queryVersion int
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMinDelay sets the minimum spacing between API calls. Zero disables pacing.
func WithMinDelay(d time.Duration) Option {
	return func(s *Service) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithQueryVersion selects the query dialect used by FindWebsites.
func WithQueryVersion(v int) Option {
	return func(s *Service) { s.queryVersion = v }
}

// WithRetry overrides the retry policy for rate-limited and transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithCircuitBreaker guards API calls with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Service) { s.breaker = cb }
}

// NewService wraps client. Defaults: one call per second, v1 queries,
// default retry and breaker settings.
func NewService(client zenserp.Client, opts ...Option) *Service {
	s := &Service{
		client:       client,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
		retry:        resilience.DefaultRetryConfig(),
		queryVersion: QueryV1,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.breaker == nil {
		s.breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	s.retry.OnRetry = resilience.RetryLogger("zenserp", "search")
	return s
}

// CheckQuota returns the remaining API requests, or nil when the status
// call fails for any reason.
func (s *Service) CheckQuota(ctx context.Context) (*int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: wait for rate limiter")
	}
	status, err := s.client.Status(ctx)
	if err != nil {
		err = classify(err)
		zap.L().Warn("search: quota check failed", zap.Error(err))
		return nil, err
	}
	remaining := status.RemainingRequests
	return &remaining, nil
}

// Search runs one query. 429s and transient failures are retried with
// bounded backoff inside the circuit breaker.
func (s *Service) Search(ctx context.Context, query string) (*Results, error) {
	resp, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (*zenserp.SearchResponse, error) {
		return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*zenserp.SearchResponse, error) {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return s.client.Search(ctx, query)
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	out := &Results{
		Organic:        make([]model.OrganicResult, 0, len(resp.Organic)),
		QuotaRemaining: resp.Query.CreditsRemaining,
	}
	for _, r := range resp.Organic {
		out.Organic = append(out.Organic, model.OrganicResult{
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
			Position:    r.Position,
		})
	}
	return out, nil
}

// FindWebsites searches for a company's website with every available
// identifier in one query and returns the candidate domains. It never
// returns an error; failures are reported through the result status.
func (s *Service) FindWebsites(ctx context.Context, ids model.Identifiers, keywords, excluded []string) (result model.SearchResult) {
	ids = ids.Trimmed()
	result.SearchedAt = s.now().UTC()
	result.Domains = []string{}

	if ids.CompanyNumber == "" {
		result.Status = model.SearchStatusInvalidIdentifier
		result.Notes = "Company number is required"
		return result
	}

	identifiers := []string{ids.CompanyNumber}
	if ids.VATNumber != "" {
		identifiers = append(identifiers, ids.VATNumber)
	}
	if ids.CompanyName != "" {
		identifiers = append(identifiers, ids.CompanyName)
	}
	result.Identifier = strings.Join(identifiers, " + ")

	log := zap.L().With(zap.String("company_number", ids.CompanyNumber))

	defer func() {
		if r := recover(); r != nil {
			log.Error("search: find websites panicked", zap.Any("panic", r))
			result.Status = model.SearchStatusParsingError
			result.Notes = fmt.Sprintf("Website search failed: %v", r)
			result.Domains = []string{}
		}
	}()

	quota, _ := s.CheckQuota(ctx)
	result.QuotaRemaining = quota
	if quota != nil && *quota <= 0 {
		result.Status = model.SearchStatusQuotaExceeded
		result.Notes = "API quota exceeded - no remaining requests"
		return result
	}

	query, err := BuildVersioned(s.queryVersion, identifiers, keywords, excluded)
	if err != nil {
		result.Status = model.SearchStatusInvalidIdentifier
		result.Notes = err.Error()
		return result
	}
	result.Query = query

	res, err := s.Search(ctx, query)
	if err != nil {
		log.Warn("search: request failed", zap.Error(err))
		result.Status = StatusFor(err)
		result.Notes = "Failed to get search results from API: " + err.Error()
		return result
	}
	if res.QuotaRemaining != nil {
		result.QuotaRemaining = res.QuotaRemaining
	}

	result.Domains = ExtractDomains(res.Organic)
	result.TotalResults = len(res.Organic)

	if len(result.Domains) > 0 {
		result.Status = model.SearchStatusSuccess
		source := "company number"
		if len(identifiers) > 1 {
			source = fmt.Sprintf("combined identifiers (%d identifiers)", len(identifiers))
		}
		result.Notes = fmt.Sprintf("Successfully found %d unique website(s) from %d search results using %s",
			len(result.Domains), result.TotalResults, source)
	} else {
		result.Status = model.SearchStatusNoWebsitesFound
		result.Notes = fmt.Sprintf("No valid websites found from %d search results using %d identifier(s)",
			result.TotalResults, len(identifiers))
	}

	log.Info("search: website search complete",
		zap.String("status", string(result.Status)),
		zap.Int("domains", len(result.Domains)),
	)
	return result
}

// StatusFor maps a Search error onto the nearest search status.
func StatusFor(err error) model.SearchStatus {
	switch {
	case err == nil:
		return model.SearchStatusSuccess
	case errors.Is(err, ErrQuotaExceeded):
		return model.SearchStatusQuotaExceeded
	case errors.Is(err, ErrNetwork):
		return model.SearchStatusNetworkError
	case errors.Is(err, ErrInvalidInput):
		return model.SearchStatusInvalidIdentifier
	default:
		return model.SearchStatusAPIError
	}
}

func isNetError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

// classify wraps err in the matching typed failure.
func classify(err error) error {
	switch {
	case errors.Is(err, zenserp.ErrUnauthorized):
		return eris.Wrap(ErrAuth, err.Error())
	case errors.Is(err, zenserp.ErrQuotaExceeded):
		return eris.Wrap(ErrQuotaExceeded, err.Error())
	case errors.Is(err, zenserp.ErrRateLimited):
		return eris.Wrap(ErrRateLimited, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		return eris.Wrap(ErrAPI, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return eris.Wrap(ErrNetwork, err.Error())
	case resilience.IsTransient(err):
		var te *resilience.TransientError
		if errors.As(err, &te) && te.StatusCode > 0 {
			return eris.Wrap(ErrAPI, err.Error())
		}
		return eris.Wrap(ErrNetwork, err.Error())
	case isNetError(err):
		return eris.Wrap(ErrNetwork, err.Error())
	default:
		return eris.Wrap(ErrAPI, err.Error())
	}
}
