// Package linkedin finds LinkedIn company pages and employee profiles for a
// company with a single site-restricted search.
package linkedin

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/search"
)

// Searcher runs one search query. *search.Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Results, error)
}

// Weights are the points a result earns per description match.
type Weights struct {
	Name   int
	Domain int
}

// FromConfig converts the application's linkedin section.
func FromConfig(c config.LinkedInConfig) Weights {
	return Weights{Name: c.NameWeight, Domain: c.DomainWeight}
}

// Finder scores LinkedIn search results for relevance to one company.
type Finder struct {
	searcher Searcher
	weights  Weights
	now      func() time.Time
}

// NewFinder creates a Finder. Non-positive weights fall back to 1 for a name
// match and 2 for a domain match.
func NewFinder(s Searcher, w Weights) *Finder {
	if w.Name <= 0 {
		w.Name = 1
	}
	if w.Domain <= 0 {
		w.Domain = 2
	}
	return &Finder{searcher: s, weights: w, now: time.Now}
}

// BuildQuery returns the LinkedIn-restricted query for name and an optional
// bare domain.
func BuildQuery(name, domain string) string {
	if domain == "" {
		return fmt.Sprintf("site:linkedin.com/ %q", name)
	}
	return fmt.Sprintf("site:linkedin.com/ %q OR %q", name, domain)
}

// NormalizeDomain reduces a website URL or host to its lowercase host
// without "www.". Unparseable input yields "".
func NormalizeDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	lower := strings.ToLower(website)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		website = "https://" + website
	}
	return search.BaseDomain(website)
}

// Find searches LinkedIn for name, boosting results that mention domain.
func (f *Finder) Find(ctx context.Context, name, website string) model.LinkedInResult {
	name = strings.TrimSpace(name)
	domain := NormalizeDomain(website)
	res := model.LinkedInResult{
		CompanyName:      name,
		Domain:           domain,
		CompanyProfiles:  []model.LinkedInProfile{},
		EmployeeProfiles: []model.LinkedInProfile{},
	}
	if name == "" {
		res.Status = model.LinkedInStatusInvalidCompanyName
		res.Notes = "Company name cannot be empty"
		res.SearchedAt = f.now().UTC()
		return res
	}

	log := zap.L().With(zap.String("company", name), zap.String("domain", domain))
	res.Query = BuildQuery(name, domain)

	results, err := f.searcher.Search(ctx, res.Query)
	if err != nil {
		log.Warn("linkedin: search failed", zap.Error(err))
		res.Status = model.LinkedInStatusAPIError
		res.Notes = "Failed to get search results from API: " + err.Error()
		res.SearchedAt = f.now().UTC()
		return res
	}
	res.QuotaRemaining = results.QuotaRemaining

	for _, o := range results.Organic {
		p, ok := f.score(o, name, domain)
		if !ok {
			continue
		}
		switch p.Category {
		case model.ProfileCompany:
			res.CompanyProfiles = append(res.CompanyProfiles, p)
		case model.ProfileEmployee:
			res.EmployeeProfiles = append(res.EmployeeProfiles, p)
		}
	}
	byScore := func(a, b model.LinkedInProfile) int { return cmp.Compare(b.Score, a.Score) }
	slices.SortStableFunc(res.CompanyProfiles, byScore)
	slices.SortStableFunc(res.EmployeeProfiles, byScore)

	total := len(res.CompanyProfiles) + len(res.EmployeeProfiles)
	if total == 0 {
		res.Status = model.LinkedInStatusNoResultsFound
		res.Notes = fmt.Sprintf("No LinkedIn profiles found for '%s'", name)
	} else {
		res.Status = model.LinkedInStatusSuccess
		res.Notes = fmt.Sprintf("Found %d company profiles and %d employee profiles", len(res.CompanyProfiles), len(res.EmployeeProfiles))
	}
	res.SearchedAt = f.now().UTC()

	log.Info("linkedin: search complete",
		zap.Int("organic", len(results.Organic)),
		zap.Int("company_profiles", len(res.CompanyProfiles)),
		zap.Int("employee_profiles", len(res.EmployeeProfiles)),
	)
	return res
}

// score rates one organic result. Results that are not LinkedIn profile or
// company URLs, or that match nothing, are rejected.
func (f *Finder) score(o model.OrganicResult, name, domain string) (model.LinkedInProfile, bool) {
	u := strings.ToLower(o.URL)
	if !strings.Contains(u, "linkedin.com") {
		return model.LinkedInProfile{}, false
	}

	var category model.ProfileCategory
	switch {
	case strings.Contains(u, "/company/"):
		category = model.ProfileCompany
	case strings.Contains(u, "/in/"):
		category = model.ProfileEmployee
	default:
		return model.LinkedInProfile{}, false
	}

	desc := strings.ToLower(o.Description)
	p := model.LinkedInProfile{
		URL:         o.URL,
		Title:       o.Title,
		Description: o.Description,
		Position:    o.Position,
		Category:    category,
	}
	if strings.Contains(desc, strings.ToLower(name)) {
		p.Score += f.weights.Name
		p.MatchDetails = append(p.MatchDetails, "CompanyName(Desc)")
	}
	if domain != "" && strings.Contains(desc, domain) {
		p.Score += f.weights.Domain
		p.MatchDetails = append(p.MatchDetails, fmt.Sprintf("Domain(Desc:+%d)", f.weights.Domain))
	}
	return p, p.Score > 0
}
