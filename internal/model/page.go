package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PageType classifies a crawled URL by how likely it is to carry official
// company information.
type PageType string

const (
	PageTypeTarget    PageType = "TARGET"
	PageTypeNonTarget PageType = "NON_TARGET"
)

// IdentifierKind names the identifier an ExactMatch refers to.
type IdentifierKind string

const (
	KindCompanyNumber IdentifierKind = "company_number"
	KindVATNumber     IdentifierKind = "vat_number"
)

// ExactMatch records where (if anywhere) an identifier was found on a site.
type ExactMatch struct {
	Kind     IdentifierKind `json:"kind"`
	Found    bool           `json:"found"`
	PageType PageType       `json:"page_type,omitempty"`
	PageURL  string         `json:"page_url,omitempty"`
	Weight   float64        `json:"weight"`
}

// CrawlStatus is the outcome of crawling one candidate domain.
type CrawlStatus string

const (
	CrawlStatusSuccess        CrawlStatus = "SUCCESS"
	CrawlStatusNoMatchesFound CrawlStatus = "NO_MATCHES_FOUND"
	CrawlStatusCrawlError     CrawlStatus = "CRAWL_ERROR"
	CrawlStatusTimeoutError   CrawlStatus = "TIMEOUT_ERROR"
)

// MaxCrawlScore is the best achievable score: both identifiers on target pages.
const MaxCrawlScore = 2.0

// CrawlScore is the verification result for one domain.
type CrawlScore struct {
	Domain                 string      `json:"domain"`
	CompanyNumberMatch     ExactMatch  `json:"company_number_match"`
	VATMatch               ExactMatch  `json:"vat_number_match"`
	TotalScore             float64     `json:"total_score"`
	PagesCrawled           int         `json:"pages_crawled"`
	TargetPagesCrawled     int         `json:"target_pages_crawled"`
	AdditionalPagesCrawled int         `json:"additional_pages_crawled"`
	Phases                 []string    `json:"phases,omitempty"`
	Status                 CrawlStatus `json:"status"`
	Notes                  string      `json:"notes,omitempty"`
	CrawledAt              time.Time   `json:"crawled_at"`
}

// Precision returns the score as a percentage of MaxCrawlScore.
func (s CrawlScore) Precision() float64 {
	return s.TotalScore / MaxCrawlScore * 100
}

// MatchSummary renders the matches compactly, e.g.
// "CompanyNum(T:1.0); VAT(NT:0.75)".
func (s CrawlScore) MatchSummary() string {
	var parts []string
	if s.CompanyNumberMatch.Found {
		parts = append(parts, fmt.Sprintf("CompanyNum(%s:%s)", shortPageType(s.CompanyNumberMatch.PageType), formatWeight(s.CompanyNumberMatch.Weight)))
	}
	if s.VATMatch.Found {
		parts = append(parts, fmt.Sprintf("VAT(%s:%s)", shortPageType(s.VATMatch.PageType), formatWeight(s.VATMatch.Weight)))
	}
	if len(parts) == 0 {
		return "No matches"
	}
	return strings.Join(parts, "; ")
}

// Ranked converts the score into the persisted ranking row.
func (s CrawlScore) Ranked() RankedDomain {
	return RankedDomain{
		Domain:       s.Domain,
		Score:        s.TotalScore,
		PagesCrawled: s.PagesCrawled,
		Status:       s.Status,
		MatchSummary: s.MatchSummary(),
	}
}

func shortPageType(pt PageType) string {
	if pt == PageTypeTarget {
		return "T"
	}
	return "NT"
}

func formatWeight(w float64) string {
	if w == math.Trunc(w) {
		return strconv.FormatFloat(w, 'f', 1, 64)
	}
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// RankedDomain is one row of a website hunting ranking.
type RankedDomain struct {
	Domain       string      `json:"domain"`
	Score        float64     `json:"score"`
	PagesCrawled int         `json:"pages_crawled"`
	Status       CrawlStatus `json:"status"`
	MatchSummary string      `json:"match_summary"`
}
