// Package store persists batch runs, per-company enrichment results,
// managed domain lists and search quota snapshots.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string, stages []model.Stage, companies int) (*model.Run, error)
	CompleteRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Per-company results, keyed by company number.
	SaveHuntResult(ctx context.Context, runID string, r *model.HuntResult) error
	GetHuntResult(ctx context.Context, companyNumber string) (*model.HuntResult, error)
	ApproveDomain(ctx context.Context, companyNumber, domain string) error
	SaveContactRecord(ctx context.Context, companyNumber string, r *model.ContactRecord) error
	SaveVATResult(ctx context.Context, companyNumber string, r *model.VATResult) error
	GetVATResult(ctx context.Context, companyNumber string) (*model.VATResult, error)
	SaveLinkedInResult(ctx context.Context, companyNumber string, r *model.LinkedInResult) error

	// Managed lists
	ListDomains(ctx context.Context, kind model.ListKind) ([]string, error)
	AddDomains(ctx context.Context, kind model.ListKind, values []string) (int, error)
	RemoveDomain(ctx context.Context, kind model.ListKind, value string) error

	// Search quota
	RecordQuota(ctx context.Context, remaining int) error
	LatestQuota(ctx context.Context) (*model.QuotaSnapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// cleanValues normalizes values for kind and drops blanks and duplicates.
func cleanValues(kind model.ListKind, values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		v = model.NormalizeListValue(kind, v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func validKind(kind model.ListKind) error {
	for _, k := range model.ListKinds {
		if k == kind {
			return nil
		}
	}
	return eris.Errorf("store: unknown list kind %q", kind)
}
