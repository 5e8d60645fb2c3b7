package model

import "time"

// Website hunting stage statuses recorded alongside the search status.
const (
	SERPStatusNoClient   = "NO_SEARCH_CLIENT"
	CrawlStatusRanked    = "CRAWL_SUCCESS"
	CrawlStatusNoResults = "CRAWL_NO_RESULTS"
	CrawlStatusNoDomains = "NO_DOMAINS_TO_CRAWL"
	CrawlStatusFailed    = "CRAWL_ERROR"
	StatusProcessingErr  = "PROCESSING_ERROR"
)

// HuntResult is the outcome of discovering and ranking candidate websites
// for one company.
type HuntResult struct {
	Identifiers    Identifiers    `json:"identifiers"`
	Query          string         `json:"query,omitempty"`
	DomainsFound   []string       `json:"domains_found"`
	RankedDomains  []RankedDomain `json:"ranked_domains"`
	SERPStatus     string         `json:"serp_status"`
	CrawlStatus    string         `json:"crawl_status"`
	Notes          string         `json:"notes,omitempty"`
	ApprovedDomain string         `json:"approved_domain,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// BestDomain returns the top-ranked domain with a positive score, if any.
func (h HuntResult) BestDomain() (RankedDomain, bool) {
	if len(h.RankedDomains) == 0 || h.RankedDomains[0].Score <= 0 {
		return RankedDomain{}, false
	}
	return h.RankedDomains[0], true
}
