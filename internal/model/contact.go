package model

import "time"

// ContactStatus is the outcome of a contact extraction.
type ContactStatus string

const (
	ContactStatusSuccess       ContactStatus = "SUCCESS"
	ContactStatusNoContactInfo ContactStatus = "NO_CONTACT_INFO_FOUND"
	ContactStatusCrawlError    ContactStatus = "CRAWL_ERROR"
)

// Social platforms recognised by the contact extractor.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
)

// ContactRecord holds the deduplicated contact details found on one domain.
type ContactRecord struct {
	Domain               string              `json:"domain"`
	Phones               []string            `json:"phones"`
	Emails               []string            `json:"emails"`
	Social               map[string][]string `json:"social"`
	PagesCrawled         int                 `json:"pages_crawled"`
	PagesWithContactInfo int                 `json:"pages_with_contact_info"`
	Status               ContactStatus       `json:"status"`
	Notes                string              `json:"notes,omitempty"`
	ExtractedAt          time.Time           `json:"extracted_at"`
}

// TotalContacts counts every phone, email and social link found.
func (c ContactRecord) TotalContacts() int {
	n := len(c.Phones) + len(c.Emails)
	for _, links := range c.Social {
		n += len(links)
	}
	return n
}
