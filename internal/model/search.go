package model

import "time"

// SearchStatus is the outcome of a website search.
type SearchStatus string

const (
	SearchStatusSuccess           SearchStatus = "SUCCESS"
	SearchStatusNoWebsitesFound   SearchStatus = "NO_WEBSITES_FOUND"
	SearchStatusInvalidIdentifier SearchStatus = "INVALID_IDENTIFIER"
	SearchStatusAPIError          SearchStatus = "API_ERROR"
	SearchStatusQuotaExceeded     SearchStatus = "QUOTA_EXCEEDED"
	SearchStatusNetworkError      SearchStatus = "NETWORK_ERROR"
	SearchStatusParsingError      SearchStatus = "PARSING_ERROR"
)

// OrganicResult is a single organic search hit.
type OrganicResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// SearchResult is the outcome of searching for a company's website.
type SearchResult struct {
	Identifier     string       `json:"identifier"`
	Query          string       `json:"query"`
	Domains        []string     `json:"domains"`
	TotalResults   int          `json:"total_results"`
	Status         SearchStatus `json:"status"`
	Notes          string       `json:"notes,omitempty"`
	QuotaRemaining *int         `json:"quota_remaining,omitempty"`
	SearchedAt     time.Time    `json:"searched_at"`
}

// QuotaSnapshot records the remaining search API credits at a point in time.
type QuotaSnapshot struct {
	Remaining int       `json:"remaining"`
	CheckedAt time.Time `json:"checked_at"`
}
