package model

import "time"

// LinkedInStatus is the outcome of a LinkedIn profile search.
type LinkedInStatus string

const (
	LinkedInStatusSuccess            LinkedInStatus = "SUCCESS"
	LinkedInStatusNoResultsFound     LinkedInStatus = "NO_RESULTS_FOUND"
	LinkedInStatusInvalidCompanyName LinkedInStatus = "INVALID_COMPANY_NAME"
	LinkedInStatusAPIError           LinkedInStatus = "API_ERROR"
)

// ProfileCategory distinguishes company pages from personal profiles.
type ProfileCategory string

const (
	ProfileCompany  ProfileCategory = "company"
	ProfileEmployee ProfileCategory = "employee"
)

// LinkedInProfile is a scored LinkedIn search hit.
type LinkedInProfile struct {
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Position     int             `json:"position"`
	Score        int             `json:"score"`
	Category     ProfileCategory `json:"category"`
	MatchDetails []string        `json:"match_details,omitempty"`
}

// LinkedInResult holds the company and employee profiles found for a company.
type LinkedInResult struct {
	CompanyName      string            `json:"company_name"`
	Domain           string            `json:"domain,omitempty"`
	Query            string            `json:"query"`
	CompanyProfiles  []LinkedInProfile `json:"company_profiles"`
	EmployeeProfiles []LinkedInProfile `json:"employee_profiles"`
	Status           LinkedInStatus    `json:"status"`
	Notes            string            `json:"notes,omitempty"`
	QuotaRemaining   *int              `json:"quota_remaining,omitempty"`
	SearchedAt       time.Time         `json:"searched_at"`
}
