// Package contact extracts UK phone numbers, email addresses and social
// profile links from a company's website.
package contact

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/crawl"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Path keywords that mark a page as likely to carry contact details.
var relevantKeywords = []string{
	"contact", "about", "team", "staff", "office", "location",
	"phone", "email", "reach", "touch", "connect", "support",
	"help", "customer", "service", "info", "information",
	"privacy", "terms", "legal", "policy", "cookies",
	"disclaimer", "imprint", "impressum",
}

// Config controls the extractor.
type Config struct {
	MaxPages    int
	Timeout     time.Duration
	Delay       time.Duration
	MaxPhones   int
	MaxEmails   int
	MaxSocial   int
	TestNumbers []string
}

// FromConfig converts the application's contact section.
func FromConfig(c config.ContactConfig) Config {
	return Config{
		MaxPages:    c.MaxPagesPerSite,
		Timeout:     time.Duration(c.TimeoutSecs) * time.Second,
		Delay:       time.Duration(c.DelayMs) * time.Millisecond,
		MaxPhones:   c.MaxPhoneNumbers,
		MaxEmails:   c.MaxEmails,
		MaxSocial:   c.MaxSocialPerPlatform,
		TestNumbers: c.TestNumbers,
	}
}

// Extractor crawls one domain's contact-relevant pages.
type Extractor struct {
	cfg     Config
	fetcher *crawl.Fetcher
	phones  *PhoneValidator
	now     func() time.Time
}

// NewExtractor creates an Extractor. A nil fetcher gets one built from cfg.
func NewExtractor(cfg Config, fetcher *crawl.Fetcher) *Extractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 15
	}
	if cfg.MaxPhones <= 0 {
		cfg.MaxPhones = 10
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = 10
	}
	if cfg.MaxSocial <= 0 {
		cfg.MaxSocial = 5
	}
	if cfg.TestNumbers == nil {
		cfg.TestNumbers = config.DefaultTestNumbers
	}
	if fetcher == nil {
		fetcher = crawl.NewFetcher(cfg.Timeout)
	}
	return &Extractor{
		cfg:     cfg,
		fetcher: fetcher,
		phones:  NewPhoneValidator(cfg.TestNumbers),
		now:     time.Now,
	}
}

// SelectPages returns the homepage followed by the contact-relevant links,
// capped at limit.
func SelectPages(site *crawl.Site, limit int) []string {
	pages := []string{site.Homepage}
	for _, l := range site.Links {
		if l == site.Homepage {
			continue
		}
		if isRelevant(l) {
			pages = append(pages, l)
		}
	}
	if len(pages) > limit {
		pages = pages[:limit]
	}
	return pages
}

func isRelevant(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	lower := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, k := range relevantKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Extract crawls domain and returns its contact details. Failures on
// individual pages are skipped; CRAWL_ERROR is reported only when no page
// could be fetched.
func (e *Extractor) Extract(ctx context.Context, domain string) model.ContactRecord {
	log := zap.L().With(zap.String("domain", domain))
	rec := model.ContactRecord{
		Domain: domain,
		Phones: []string{},
		Emails: []string{},
		Social: map[string][]string{},
	}

	site, err := e.fetcher.Discover(ctx, domain)
	if err != nil {
		log.Warn("contact: homepage unreachable", zap.Error(err))
		rec.Status = model.ContactStatusCrawlError
		rec.Notes = "Contact extraction failed: " + err.Error()
		rec.ExtractedAt = e.now().UTC()
		return rec
	}

	pages := SelectPages(site, e.cfg.MaxPages)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if e.cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.cfg.Delay), 1)
	}

	var phones, emails []string
	social := map[string][]string{}
	seenPhone, seenEmail, seenSocial := map[string]bool{}, map[string]bool{}, map[string]bool{}

	for _, u := range pages {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		page, err := e.fetcher.Fetch(ctx, u)
		if err != nil {
			log.Debug("contact: page fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if !page.OK() {
			continue
		}
		rec.PagesCrawled++

		text := crawl.PlainText(page.HTML)
		found := false
		for _, p := range e.phones.FindPhones(text, page.HTML) {
			found = true
			if !seenPhone[p] {
				seenPhone[p] = true
				phones = append(phones, p)
			}
		}
		for _, em := range FindEmails(text, page.HTML) {
			found = true
			if !seenEmail[em] {
				seenEmail[em] = true
				emails = append(emails, em)
			}
		}
		for platform, links := range FindSocial(text, page.HTML) {
			for _, l := range links {
				found = true
				key := strings.ToLower(strings.TrimSuffix(l, "/"))
				if !seenSocial[key] {
					seenSocial[key] = true
					social[platform] = append(social[platform], l)
				}
			}
		}
		if found {
			rec.PagesWithContactInfo++
		}
	}

	rec.Phones = capList(phones, e.cfg.MaxPhones)
	rec.Emails = capList(emails, e.cfg.MaxEmails)
	for platform, links := range social {
		rec.Social[platform] = capList(links, e.cfg.MaxSocial)
	}
	rec.ExtractedAt = e.now().UTC()

	switch {
	case rec.PagesCrawled == 0:
		rec.Status = model.ContactStatusCrawlError
		rec.Notes = "No pages could be fetched"
	case rec.TotalContacts() > 0:
		rec.Status = model.ContactStatusSuccess
		rec.Notes = fmt.Sprintf("Successfully extracted %d contact items from %d pages", rec.TotalContacts(), rec.PagesWithContactInfo)
	default:
		rec.Status = model.ContactStatusNoContactInfo
		rec.Notes = fmt.Sprintf("No contact information found after crawling %d pages", rec.PagesCrawled)
	}

	log.Info("contact: extraction complete",
		zap.String("status", string(rec.Status)),
		zap.Int("items", rec.TotalContacts()),
	)
	return rec
}

func capList(in []string, n int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > n {
		return in[:n]
	}
	return in
}
