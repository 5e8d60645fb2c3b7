package model

import (
	"strings"
	"time"
)

// VATNotFound is the sentinel VAT value recorded when resolution fails.
const VATNotFound = "NOT_FOUND"

// Identifiers is the set of facts used to find and verify a company. The
// company number is always required; VAT number and name are optional.
type Identifiers struct {
	CompanyNumber string `json:"company_number"`
	VATNumber     string `json:"vat_number,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
// A VAT number equal to VATNotFound is dropped.
func (i Identifiers) Trimmed() Identifiers {
	out := Identifiers{
		CompanyNumber: strings.TrimSpace(i.CompanyNumber),
		VATNumber:     strings.TrimSpace(i.VATNumber),
		CompanyName:   strings.TrimSpace(i.CompanyName),
	}
	if strings.EqualFold(out.VATNumber, VATNotFound) {
		out.VATNumber = ""
	}
	return out
}

// Stage is one enrichment step that can be run for a company.
type Stage string

const (
	StageVAT      Stage = "vat"
	StageHunt     Stage = "hunt"
	StageContacts Stage = "contacts"
	StageLinkedIn Stage = "linkedin"
)

// ParseStages converts raw stage names, ignoring blanks and duplicates.
// Unknown names are returned in the second slice.
func ParseStages(raw []string) ([]Stage, []string) {
	seen := make(map[Stage]bool)
	var stages []Stage
	var unknown []string
	for _, r := range raw {
		s := Stage(strings.ToLower(strings.TrimSpace(r)))
		if s == "" || seen[s] {
			continue
		}
		switch s {
		case StageVAT, StageHunt, StageContacts, StageLinkedIn:
			seen[s] = true
			stages = append(stages, s)
		default:
			unknown = append(unknown, r)
		}
	}
	return stages, unknown
}

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents one batch enrichment invocation.
type Run struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Stages    []Stage   `json:"stages"`
	Status    RunStatus `json:"status"`
	Companies int       `json:"companies"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyResult gathers the outcome of every stage run for one company.
type CompanyResult struct {
	Identifiers Identifiers     `json:"identifiers"`
	VAT         *VATResult      `json:"vat,omitempty"`
	Hunt        *HuntResult     `json:"hunt,omitempty"`
	Contacts    *ContactRecord  `json:"contacts,omitempty"`
	LinkedIn    *LinkedInResult `json:"linkedin,omitempty"`
	Error       string          `json:"error,omitempty"`
}
