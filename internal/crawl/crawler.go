package crawl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrInvalidInput is returned by Rank when neither a company number nor a
// VAT number is supplied.
var ErrInvalidInput = eris.New("crawl: company number or VAT number is required")

const (
	phaseTarget     = "Phase 1: Target pages"
	phaseAdditional = "Phase 2: Additional pages"
)

// Config controls the precision crawler.
type Config struct {
	MaxTargetPages     int
	MaxAdditionalPages int
	Timeout            time.Duration
	TimeoutMultiplier  int
	MaxConcurrentSites int
	Delay              time.Duration
	TargetKeywords     []string
	SkipDomains        []string
	TargetWeight       float64
	NonTargetWeight    float64
}

// FromConfig converts the application's crawl section.
func FromConfig(c config.CrawlConfig) Config {
	return Config{
		MaxTargetPages:     c.MaxTargetPages,
		MaxAdditionalPages: c.MaxAdditionalPages,
		Timeout:            time.Duration(c.TimeoutSecs) * time.Second,
		TimeoutMultiplier:  c.TimeoutMultiplier,
		MaxConcurrentSites: c.MaxConcurrentSites,
		Delay:              time.Duration(c.DelayMs) * time.Millisecond,
		TargetKeywords:     c.TargetKeywords,
		SkipDomains:        c.SkipDomains,
		TargetWeight:       c.TargetWeight,
		NonTargetWeight:    c.NonTargetWeight,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTargetPages <= 0 {
		c.MaxTargetPages = 6
	}
	if c.MaxAdditionalPages < 0 {
		c.MaxAdditionalPages = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.TimeoutMultiplier <= 0 {
		c.TimeoutMultiplier = 3
	}
	if c.MaxConcurrentSites <= 0 {
		c.MaxConcurrentSites = 5
	}
	if len(c.TargetKeywords) == 0 {
		c.TargetKeywords = config.DefaultTargetKeywords
	}
	if c.TargetWeight <= 0 {
		c.TargetWeight = 1.0
	}
	if c.NonTargetWeight <= 0 {
		c.NonTargetWeight = 0.75
	}
	return c
}

// Crawler verifies candidate domains by exact-matching registration
// identifiers, target pages first. Safe for concurrent use.
type Crawler struct {
	cfg        Config
	fetcher    *Fetcher
	classifier *Classifier
	skip       map[string]bool
	now        func() time.Time
}

// NewCrawler creates a Crawler. Zero config values take defaults.
func NewCrawler(cfg Config, fetcher *Fetcher) *Crawler {
	cfg = cfg.withDefaults()
	if fetcher == nil {
		fetcher = NewFetcher(cfg.Timeout)
	}
	skip := make(map[string]bool, len(cfg.SkipDomains))
	for _, d := range cfg.SkipDomains {
		skip[bareHost(d)] = true
	}
	return &Crawler{
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: NewClassifier(cfg.TargetKeywords),
		skip:       skip,
		now:        time.Now,
	}
}

// Rank crawls every domain not on the skip list with at most
// MaxConcurrentSites in flight and returns the scores ordered by total score
// then pages crawled, both descending. A domain that exceeds
// Timeout*TimeoutMultiplier is recorded as TIMEOUT_ERROR.
func (c *Crawler) Rank(ctx context.Context, domains []string, ids model.Identifiers) ([]model.CrawlScore, error) {
	ids = ids.Trimmed()
	if ids.CompanyNumber == "" && ids.VATNumber == "" {
		return nil, ErrInvalidInput
	}

	var targets []string
	for _, d := range domains {
		if d == "" || c.skip[bareHost(d)] {
			continue
		}
		targets = append(targets, d)
	}
	if skipped := len(domains) - len(targets); skipped > 0 {
		zap.L().Info("crawl: skipped domains", zap.Int("count", skipped))
	}

	scores := make([]model.CrawlScore, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentSites)
	for i, domain := range targets {
		g.Go(func() error {
			scores[i] = c.crawlWithDeadline(gctx, domain, ids)
			return nil
		})
	}
	_ = g.Wait()

	SortScores(scores)

	var matched, perfect int
	for _, s := range scores {
		if s.TotalScore > 0 {
			matched++
		}
		if s.TotalScore >= model.MaxCrawlScore {
			perfect++
		}
	}
	zap.L().Info("crawl: ranking complete",
		zap.Int("domains", len(scores)),
		zap.Int("matched", matched),
		zap.Int("perfect", perfect),
	)
	return scores, nil
}

// SortScores orders scores by total score then pages crawled, descending.
func SortScores(scores []model.CrawlScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].PagesCrawled > scores[j].PagesCrawled
	})
}

func (c *Crawler) crawlWithDeadline(ctx context.Context, domain string, ids model.Identifiers) model.CrawlScore {
	limit := c.cfg.Timeout * time.Duration(c.cfg.TimeoutMultiplier)
	dctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan model.CrawlScore, 1)
	go func() { done <- c.CrawlDomain(dctx, domain, ids) }()

	select {
	case s := <-done:
		return s
	case <-dctx.Done():
		zap.L().Warn("crawl: domain timed out", zap.String("domain", domain), zap.Duration("limit", limit))
		s := c.errorScore(domain, fmt.Sprintf("Timeout or error: exceeded %s", limit))
		s.Status = model.CrawlStatusTimeoutError
		return s
	}
}

// CrawlDomain verifies a single domain.
func (c *Crawler) CrawlDomain(ctx context.Context, domain string, ids model.Identifiers) model.CrawlScore {
	log := zap.L().With(zap.String("domain", domain))
	ids = ids.Trimmed()

	site, err := c.fetcher.Discover(ctx, domain)
	if err != nil {
		log.Warn("crawl: link discovery failed", zap.Error(err))
		return c.errorScore(domain, "No links found on website")
	}
	if site.Blocked != BlockNone {
		log.Warn("crawl: homepage blocked", zap.String("block", string(site.Blocked)))
		return c.errorScore(domain, fmt.Sprintf("Homepage blocked (%s)", site.Blocked))
	}

	target, nonTarget := c.classifier.Split(site.Links)
	matcher := newIdentifierMatcher(ids.CompanyNumber, ids.VATNumber)
	// Politeness limiter shared by both phases of this domain.
	limiter := newPoliteness(c.cfg.Delay)

	score := model.CrawlScore{
		Domain:             domain,
		CompanyNumberMatch: model.ExactMatch{Kind: model.KindCompanyNumber},
		VATMatch:           model.ExactMatch{Kind: model.KindVATNumber},
		Phases:             []string{},
	}
	need := needed{companyNumber: ids.CompanyNumber != "", vat: ids.VATNumber != ""}

	if len(target) > 0 {
		log.Debug("crawl: phase 1", zap.Int("target_pages", len(target)))
		score.TargetPagesCrawled = c.crawlPhase(ctx, limiter, target, model.PageTypeTarget, c.cfg.MaxTargetPages, matcher, need, &score)
		score.Phases = append(score.Phases, phaseTarget)
	}

	if !bothFound(score) && len(nonTarget) > 0 && c.cfg.MaxAdditionalPages > 0 {
		log.Debug("crawl: phase 2", zap.Int("additional_pages", len(nonTarget)))
		score.AdditionalPagesCrawled = c.crawlPhase(ctx, limiter, nonTarget, model.PageTypeNonTarget, c.cfg.MaxAdditionalPages, matcher, need, &score)
		score.Phases = append(score.Phases, phaseAdditional)
	}

	score.PagesCrawled = score.TargetPagesCrawled + score.AdditionalPagesCrawled
	score.TotalScore = score.CompanyNumberMatch.Weight + score.VATMatch.Weight
	score.CrawledAt = c.now().UTC()

	if score.TotalScore > 0 {
		score.Status = model.CrawlStatusSuccess
		score.Notes = fmt.Sprintf("Found %.2f/%.1f precision score. Company number: %s, VAT: %s",
			score.TotalScore, model.MaxCrawlScore, tick(score.CompanyNumberMatch.Found), tick(score.VATMatch.Found))
	} else {
		score.Status = model.CrawlStatusNoMatchesFound
		score.Notes = fmt.Sprintf("No exact matches found after crawling %d pages", score.PagesCrawled)
	}

	log.Info("crawl: domain complete",
		zap.Float64("score", score.TotalScore),
		zap.Int("pages", score.PagesCrawled),
	)
	return score
}

type needed struct {
	companyNumber bool
	vat           bool
}

func bothFound(s model.CrawlScore) bool {
	return s.CompanyNumberMatch.Found && s.VATMatch.Found
}

// crawlPhase fetches up to limit pages, recording first matches only. It stops
// early once both identifiers are found. Returns the number of HTTP 200
// pages crawled.
func (c *Crawler) crawlPhase(ctx context.Context, limiter *rate.Limiter, pages []string, pt model.PageType, limit int, m identifierMatcher, need needed, score *model.CrawlScore) int {
	weight := c.cfg.NonTargetWeight
	if pt == model.PageTypeTarget {
		weight = c.cfg.TargetWeight
	}

	if len(pages) > limit {
		pages = pages[:limit]
	}

	crawled := 0
	for _, u := range pages {
		if bothFound(*score) {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		page, err := c.fetcher.Fetch(ctx, u)
		if err != nil {
			zap.L().Debug("crawl: page fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if !page.OK() {
			continue
		}
		crawled++

		cn, vat := m.match(Normalize(PlainText(page.HTML)))
		if cn && need.companyNumber && !score.CompanyNumberMatch.Found {
			setMatch(&score.CompanyNumberMatch, pt, u, weight)
		}
		if vat && need.vat && !score.VATMatch.Found {
			setMatch(&score.VATMatch, pt, u, weight)
		}
	}
	return crawled
}

func setMatch(m *model.ExactMatch, pt model.PageType, pageURL string, weight float64) {
	m.Found = true
	m.PageType = pt
	m.PageURL = pageURL
	m.Weight = weight
}

func (c *Crawler) errorScore(domain, notes string) model.CrawlScore {
	return model.CrawlScore{
		Domain:             domain,
		CompanyNumberMatch: model.ExactMatch{Kind: model.KindCompanyNumber},
		VATMatch:           model.ExactMatch{Kind: model.KindVATNumber},
		Phases:             []string{},
		Status:             model.CrawlStatusCrawlError,
		Notes:              notes,
		CrawledAt:          c.now().UTC(),
	}
}

// newPoliteness returns a limiter that lets the first request through
// immediately and spaces the rest by delay.
func newPoliteness(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func tick(found bool) string {
	if found {
		return "✓"
	}
	return "✗"
}
