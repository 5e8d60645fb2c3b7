// Package pipeline wires the enrichment stages together: website hunting
// per company and bounded-concurrency batch runs over a company list.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

// WebsiteFinder discovers candidate domains for a company.
type WebsiteFinder interface {
	FindWebsites(ctx context.Context, ids model.Identifiers, keywords, excluded []string) model.SearchResult
}

// DomainRanker verifies and ranks candidate domains.
type DomainRanker interface {
	Rank(ctx context.Context, domains []string, ids model.Identifiers) ([]model.CrawlScore, error)
}

// Hunter runs SERP discovery followed by precision crawling.
type Hunter struct {
	finder WebsiteFinder
	ranker DomainRanker
	lists  Lists
	now    func() time.Time
}

// NewHunter creates a Hunter. A nil finder is allowed and yields
// NO_SEARCH_CLIENT results.
func NewHunter(finder WebsiteFinder, ranker DomainRanker, lists Lists) *Hunter {
	return &Hunter{
		finder: finder,
		ranker: ranker,
		lists:  lists,
		now:    time.Now,
	}
}

// Lists returns the keyword and domain lists the hunter searches with.
func (h *Hunter) Lists() Lists {
	return h.lists
}

// Hunt finds and ranks websites for one company. Expected failures are
// reported through SERPStatus and CrawlStatus; a panic anywhere inside is
// recorded as PROCESSING_ERROR.
func (h *Hunter) Hunt(ctx context.Context, ids model.Identifiers) (result model.HuntResult) {
	ids = ids.Trimmed()
	log := zap.L().With(zap.String("company_number", ids.CompanyNumber))

	result = model.HuntResult{
		Identifiers:   ids,
		DomainsFound:  []string{},
		RankedDomains: []model.RankedDomain{},
		CreatedAt:     h.now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: hunt panicked", zap.Any("panic", r))
			result.DomainsFound = []string{}
			result.RankedDomains = []model.RankedDomain{}
			result.SERPStatus = model.StatusProcessingErr
			result.CrawlStatus = model.StatusProcessingErr
			result.Notes = fmt.Sprintf("Processing error: %v", r)
		}
	}()

	var serpNotes string
	if h.finder == nil {
		log.Warn("pipeline: no search client configured")
		result.SERPStatus = model.SERPStatusNoClient
		serpNotes = "SERP client not configured (missing ZenSERP API key)"
	} else {
		sr := h.finder.FindWebsites(ctx, ids, h.lists.Keywords, h.lists.SERPExcluded)
		result.SERPStatus = string(sr.Status)
		result.Query = sr.Query
		result.DomainsFound = sr.Domains
		serpNotes = sr.Notes
		log.Info("pipeline: serp phase complete",
			zap.String("status", string(sr.Status)),
			zap.Int("domains", len(sr.Domains)),
		)
	}

	domains := FilterBlacklist(result.DomainsFound, h.lists.Blacklist)

	var crawlNotes string
	switch {
	case len(domains) == 0:
		result.CrawlStatus = model.CrawlStatusNoDomains
		crawlNotes = "No domains available for crawling after filtering"
	default:
		scores, err := h.ranker.Rank(ctx, domains, ids)
		if err != nil {
			log.Warn("pipeline: ranking failed", zap.Error(err))
			result.CrawlStatus = model.CrawlStatusFailed
			crawlNotes = "Crawl error: " + err.Error()
			break
		}
		for _, s := range scores {
			result.RankedDomains = append(result.RankedDomains, s.Ranked())
		}
		if len(result.RankedDomains) > 0 {
			result.CrawlStatus = model.CrawlStatusRanked
			crawlNotes = fmt.Sprintf("Successfully ranked %d domains", len(result.RankedDomains))
		} else {
			result.CrawlStatus = model.CrawlStatusNoResults
			crawlNotes = "Crawler completed but no results returned"
		}
	}

	result.Notes = fmt.Sprintf("SERP: %s. Crawl: %s", serpNotes, crawlNotes)
	log.Info("pipeline: hunt complete",
		zap.String("serp_status", result.SERPStatus),
		zap.String("crawl_status", result.CrawlStatus),
	)
	return result
}

// FilterBlacklist drops domains that appear verbatim in blacklist.
func FilterBlacklist(domains, blacklist []string) []string {
	if len(blacklist) == 0 {
		return domains
	}
	block := make(map[string]bool, len(blacklist))
	for _, d := range blacklist {
		block[d] = true
	}
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if !block[d] {
			out = append(out, d)
		}
	}
	if n := len(domains) - len(out); n > 0 {
		zap.L().Info("pipeline: filtered blacklisted domains", zap.Int("count", n))
	}
	return out
}
