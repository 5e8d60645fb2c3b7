package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func testConfig() Config {
	return Config{
		MaxTargetPages:     6,
		MaxAdditionalPages: 10,
		Timeout:            5 * time.Second,
		TimeoutMultiplier:  3,
		MaxConcurrentSites: 3,
	}
}

func newTestCrawler(cfg Config) *Crawler {
	return NewCrawler(cfg, NewFetcher(cfg.Timeout))
}

func TestCrawlDomain_TargetMatchScoresOne(t *testing.T) {
	_, host := newSiteServer(t, site{
		"/":      page(`<a href="/about">About</a><a href="/shop">Shop</a>`),
		"/about": page(`Acme Widgets Ltd. Registered in England and Wales, company number 01234567.`),
		"/shop":  page(`Buy widgets`),
	})

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), host, model.Identifiers{CompanyNumber: "01234567"})

	assert.Equal(t, model.CrawlStatusSuccess, score.Status)
	assert.InDelta(t, 1.0, score.TotalScore, 1e-9)
	assert.True(t, score.CompanyNumberMatch.Found)
	assert.Equal(t, model.PageTypeTarget, score.CompanyNumberMatch.PageType)
	assert.Contains(t, score.CompanyNumberMatch.PageURL, "/about")
	assert.False(t, score.VATMatch.Found)
	assert.Equal(t, "CompanyNum(T:1.0)", score.MatchSummary())
	assert.InDelta(t, 50.0, score.Precision(), 1e-9)
}

func TestCrawlDomain_NonTargetMatch(t *testing.T) {
	_, host := newSiteServer(t, site{
		"/":         page(`<a href="/about">About</a><a href="/products">Products</a>`),
		"/about":    page(`We make things.`),
		"/products": page(`Footer: Acme Ltd, company 01234567, VAT GB 123 456 789`),
	})

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), host, model.Identifiers{CompanyNumber: "01234567", VATNumber: "GB123456789"})

	assert.Equal(t, model.CrawlStatusSuccess, score.Status)
	assert.InDelta(t, 1.5, score.TotalScore, 1e-9)
	assert.Equal(t, model.PageTypeNonTarget, score.CompanyNumberMatch.PageType)
	assert.Equal(t, model.PageTypeNonTarget, score.VATMatch.PageType)
	assert.Equal(t, []string{phaseTarget, phaseAdditional}, score.Phases)
	assert.Equal(t, "CompanyNum(NT:0.75); VAT(NT:0.75)", score.MatchSummary())
}

func TestCrawlDomain_NoPhaseTwoWhenBothFound(t *testing.T) {
	var phase2Hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(page(`<a href="/contact">Contact</a><a href="/gallery">Gallery</a><a href="/team-photos">Team</a>`)))
		case "/contact":
			_, _ = w.Write([]byte(page(`Company No. 01234567 VAT No. GB123456789`)))
		default:
			phase2Hits.Add(1)
			_, _ = w.Write([]byte(page(`nothing`)))
		}
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), u.Host, model.Identifiers{CompanyNumber: "01234567", VATNumber: "GB123456789"})

	assert.InDelta(t, model.MaxCrawlScore, score.TotalScore, 1e-9)
	assert.Equal(t, []string{phaseTarget}, score.Phases)
	assert.Zero(t, score.AdditionalPagesCrawled)
	assert.Zero(t, phase2Hits.Load())
}

func TestCrawlDomain_PhaseTwoDoesNotOverwritePhaseOne(t *testing.T) {
	_, host := newSiteServer(t, site{
		"/":      page(`<a href="/terms">Terms</a><a href="/news">News</a>`),
		"/terms": page(`Registered number 01234567`),
		"/news":  page(`01234567 GB123456789`),
	})

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), host, model.Identifiers{CompanyNumber: "01234567", VATNumber: "GB123456789"})

	assert.Equal(t, model.PageTypeTarget, score.CompanyNumberMatch.PageType)
	assert.Equal(t, model.PageTypeNonTarget, score.VATMatch.PageType)
	assert.InDelta(t, 1.75, score.TotalScore, 1e-9)
}

func TestCrawlDomain_NoMatches(t *testing.T) {
	_, host := newSiteServer(t, site{
		"/":      page(`<a href="/about">About</a><a href="/missing">Gone</a>`),
		"/about": page(`Hello`),
	})

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), host, model.Identifiers{CompanyNumber: "01234567"})

	assert.Equal(t, model.CrawlStatusNoMatchesFound, score.Status)
	assert.Zero(t, score.TotalScore)
	// The 404 page is not counted; homepage and /about are.
	assert.Equal(t, 2, score.PagesCrawled)
	assert.Equal(t, "No matches", score.MatchSummary())
}

func TestCrawlDomain_SmallSiteWithCaptchaFormIsCrawled(t *testing.T) {
	_, host := newSiteServer(t, site{
		"/":        page(`<a href="/contact">Contact</a><script src="https://www.google.com/recaptcha/api.js"></script>`),
		"/contact": page(`Acme Ltd, company number 01234567.<form><div class="g-recaptcha"></div></form>`),
	})

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), host, model.Identifiers{CompanyNumber: "01234567"})

	assert.Equal(t, model.CrawlStatusSuccess, score.Status)
	assert.True(t, score.CompanyNumberMatch.Found)
	assert.Positive(t, score.PagesCrawled)
}

func TestCrawlDomain_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	c := newTestCrawler(testConfig())
	score := c.CrawlDomain(context.Background(), u.Host, model.Identifiers{CompanyNumber: "01234567"})

	assert.Equal(t, model.CrawlStatusCrawlError, score.Status)
	assert.Zero(t, score.TotalScore)
}

func TestRank_OrdersAndSkips(t *testing.T) {
	_, strong := newSiteServer(t, site{
		"/":      page(`<a href="/about">About</a>`),
		"/about": page(`Company 01234567 VAT GB123456789`),
	})
	_, weak := newSiteServer(t, site{
		"/":     page(`<a href="/blog">Blog</a>`),
		"/blog": page(`Mentions 01234567`),
	})
	_, none := newSiteServer(t, site{
		"/": page(`Nothing`),
	})
	_, skipped := newSiteServer(t, site{
		"/": page(`01234567`),
	})

	cfg := testConfig()
	cfg.SkipDomains = []string{skipped}
	c := newTestCrawler(cfg)

	scores, err := c.Rank(context.Background(), []string{none, weak, skipped, strong},
		model.Identifiers{CompanyNumber: "01234567", VATNumber: "GB123456789"})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, strong, scores[0].Domain)
	assert.InDelta(t, 2.0, scores[0].TotalScore, 1e-9)
	assert.Equal(t, weak, scores[1].Domain)
	assert.Equal(t, none, scores[2].Domain)

	for _, s := range scores {
		assert.GreaterOrEqual(t, s.TotalScore, 0.0)
		assert.LessOrEqual(t, s.TotalScore, model.MaxCrawlScore)
	}
}

func TestRank_RequiresIdentifier(t *testing.T) {
	c := newTestCrawler(testConfig())
	_, err := c.Rank(context.Background(), []string{"acme.com"}, model.Identifiers{CompanyName: "Acme"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRank_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.TimeoutMultiplier = 2
	c := NewCrawler(cfg, NewFetcher(5*time.Second))

	scores, err := c.Rank(context.Background(), []string{u.Host}, model.Identifiers{CompanyNumber: "01234567"})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, model.CrawlStatusTimeoutError, scores[0].Status)
	assert.Zero(t, scores[0].TotalScore)
}

func TestSortScores_TieBreakOnPages(t *testing.T) {
	scores := []model.CrawlScore{
		{Domain: "a", TotalScore: 1, PagesCrawled: 2},
		{Domain: "b", TotalScore: 1, PagesCrawled: 7},
		{Domain: "c", TotalScore: 1.75, PagesCrawled: 1},
	}
	SortScores(scores)
	assert.Equal(t, "c", scores[0].Domain)
	assert.Equal(t, "b", scores[1].Domain)
	assert.Equal(t, "a", scores[2].Domain)
}

func TestFromConfigDefaults(t *testing.T) {
	c := NewCrawler(Config{}, nil)
	assert.Equal(t, 6, c.cfg.MaxTargetPages)
	assert.Equal(t, 5, c.cfg.MaxConcurrentSites)
	assert.InDelta(t, 0.75, c.cfg.NonTargetWeight, 1e-9)
}
