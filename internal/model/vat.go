package model

import (
	"regexp"
	"time"
)

// VATStatus is the outcome of a VAT lookup.
type VATStatus string

const (
	VATStatusSuccess                VATStatus = "SUCCESS"
	VATStatusInvalidCompanyName     VATStatus = "INVALID_COMPANY_NAME"
	VATStatusNotFound               VATStatus = "VAT_NOT_FOUND"
	VATStatusServiceBlocked         VATStatus = "SERVICE_BLOCKED"
	VATStatusNetworkError           VATStatus = "NETWORK_ERROR"
	VATStatusParsingError           VATStatus = "PARSING_ERROR"
	VATStatusMultipleResultsNoMatch VATStatus = "MULTIPLE_RESULTS_NO_MATCH"
)

var vatNumberRe = regexp.MustCompile(`^GB\d{9}$`)

// IsValidVATNumber reports whether v is a normalized UK VAT number (GB + 9 digits).
func IsValidVATNumber(v string) bool {
	return vatNumberRe.MatchString(v)
}

// VATCandidate is one row parsed from a VAT lookup results table.
type VATCandidate struct {
	CompanyName string `json:"company_name"`
	TradeName   string `json:"trade_name,omitempty"`
	VATNumber   string `json:"vat_number"`
	CompanyID   string `json:"company_id,omitempty"`
}

// VATResult is the outcome of resolving a company name to a VAT number.
type VATResult struct {
	CompanyName   string        `json:"company_name"`
	VATNumber     string        `json:"vat_number"`
	VariantsTried []string      `json:"variants_tried"`
	Match         *VATCandidate `json:"match,omitempty"`
	Status        VATStatus     `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	Attempts      int           `json:"attempts"`
	ResolvedAt    time.Time     `json:"resolved_at"`
}

// Found reports whether a usable VAT number was resolved.
func (r VATResult) Found() bool {
	return r.Status == VATStatusSuccess && IsValidVATNumber(r.VATNumber)
}
