// Package monitoring watches batch run health and search quota and raises
// webhook alerts when thresholds are crossed.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of enrichment health.
type MetricsSnapshot struct {
	// Runs created within the lookback window.
	RunsTotal    int `json:"runs_total"`
	RunsComplete int `json:"runs_complete"`
	RunsFailed   int `json:"runs_failed"`
	RunsRunning  int `json:"runs_running"`

	// Company outcomes across those runs.
	CompaniesProcessed int     `json:"companies_processed"`
	CompaniesFailed    int     `json:"companies_failed"`
	CompanyFailRate    float64 `json:"company_fail_rate"`

	// Latest recorded search quota, nil if never checked.
	QuotaRemaining *int       `json:"quota_remaining,omitempty"`
	QuotaCheckedAt *time.Time `json:"quota_checked_at,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the part of store.Store the collector reads.
type Source interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	LatestQuota(ctx context.Context) (*model.QuotaSnapshot, error)
}

// Collector gathers metrics from the store.
type Collector struct {
	src Source
	now func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src, now: time.Now}
}

// Collect gathers a snapshot of run and quota metrics over the given
// lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.src.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning, model.RunStatusQueued:
			snap.RunsRunning++
		}
		snap.CompaniesProcessed += r.Processed
		snap.CompaniesFailed += r.Failed
	}
	if snap.CompaniesProcessed > 0 {
		snap.CompanyFailRate = float64(snap.CompaniesFailed) / float64(snap.CompaniesProcessed)
	}

	q, err := c.src.LatestQuota(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, eris.Wrap(err, "monitoring: latest quota")
	default:
		snap.QuotaRemaining = &q.Remaining
		snap.QuotaCheckedAt = &q.CheckedAt
	}

	return snap, nil
}
