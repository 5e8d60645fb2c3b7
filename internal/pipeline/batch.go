package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

// VATResolver resolves a company name to a VAT number.
type VATResolver interface {
	Resolve(ctx context.Context, name string) model.VATResult
}

// ContactExtractor pulls contact details from a domain.
type ContactExtractor interface {
	Extract(ctx context.Context, domain string) model.ContactRecord
}

// ProfileFinder finds LinkedIn profiles for a company.
type ProfileFinder interface {
	Find(ctx context.Context, name, website string) model.LinkedInResult
}

// Deps are the stage implementations used by a Batch. Any stage
// implementation may be nil when that stage is never requested.
type Deps struct {
	Store    store.Store
	VAT      VATResolver
	Hunter   *Hunter
	Contacts ContactExtractor
	LinkedIn ProfileFinder
}

// Batch enriches a list of companies with bounded concurrency.
type Batch struct {
	deps        Deps
	concurrency int
	autoApprove bool
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithAutoApprove approves a perfect-score domain when a company has no
// human-approved domain yet.
func WithAutoApprove(on bool) BatchOption {
	return func(b *Batch) { b.autoApprove = on }
}

// NewBatch creates a Batch running at most maxConcurrent companies at once.
func NewBatch(deps Deps, maxConcurrent int, opts ...BatchOption) *Batch {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	b := &Batch{deps: deps, concurrency: maxConcurrent}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run processes every company through stages, persisting results as it
// goes. A failing company is counted and never aborts the run. The error
// return is reserved for failures to record the run itself.
func (b *Batch) Run(ctx context.Context, source string, companies []model.Identifiers, stages []model.Stage) (*model.Run, []model.CompanyResult, error) {
	if b.deps.Store == nil {
		return nil, nil, eris.New("pipeline: batch requires a store")
	}
	if len(stages) == 0 {
		return nil, nil, eris.New("pipeline: no stages selected")
	}

	run, err := b.deps.Store.CreateRun(ctx, source, stages, len(companies))
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: batch started",
		zap.String("source", source),
		zap.Int("companies", len(companies)),
		zap.Any("stages", stages),
	)
	start := time.Now()

	results := make([]model.CompanyResult, len(companies))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, ids := range companies {
		g.Go(func() error {
			results[i] = b.Process(gctx, run.ID, ids, stages)
			if results[i].Error != "" {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	run.Processed = len(companies)
	run.Failed = int(failed.Load())
	run.Status = model.RunStatusComplete
	if err := ctx.Err(); err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else if run.Failed > 0 {
		run.Error = fmt.Sprintf("%d of %d companies failed", run.Failed, run.Processed)
	}

	// Record the outcome even if ctx was cancelled.
	if err := b.deps.Store.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		return run, results, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: batch complete",
		zap.String("status", string(run.Status)),
		zap.Int("processed", run.Processed),
		zap.Int("failed", run.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, results, nil
}

// Process runs the selected stages for one company in the fixed order
// vat, hunt, contacts, linkedin. A resolved VAT number feeds hunting.
// Stage errors are joined into the result's Error field.
func (b *Batch) Process(ctx context.Context, runID string, ids model.Identifiers, stages []model.Stage) (res model.CompanyResult) {
	ids = ids.Trimmed()
	log := zap.L().With(zap.String("company_number", ids.CompanyNumber))
	res.Identifiers = ids

	var errs []string
	fail := func(stage model.Stage, err error) {
		log.Warn("pipeline: stage failed", zap.String("stage", string(stage)), zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", stage, err))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: company panicked", zap.Any("panic", r))
			errs = append(errs, fmt.Sprintf("processing error: %v", r))
		}
		res.Identifiers = ids
		res.Error = strings.Join(errs, "; ")
	}()

	if ids.CompanyNumber == "" {
		errs = append(errs, "company number is required")
		return res
	}

	want := make(map[model.Stage]bool, len(stages))
	for _, s := range stages {
		want[s] = true
	}
	st := b.deps.Store

	if want[model.StageVAT] {
		switch {
		case b.deps.VAT == nil:
			fail(model.StageVAT, eris.New("stage not configured"))
		default:
			vr := b.deps.VAT.Resolve(ctx, ids.CompanyName)
			res.VAT = &vr
			if vr.Found() && ids.VATNumber == "" {
				ids.VATNumber = vr.VATNumber
			}
			if err := st.SaveVATResult(ctx, ids.CompanyNumber, &vr); err != nil {
				fail(model.StageVAT, err)
			}
		}
	}

	if want[model.StageHunt] {
		switch {
		case b.deps.Hunter == nil:
			fail(model.StageHunt, eris.New("stage not configured"))
		default:
			if ids.VATNumber == "" {
				ids.VATNumber = b.storedVAT(ctx, ids.CompanyNumber)
			}
			hr := b.deps.Hunter.Hunt(ctx, ids)
			if err := st.SaveHuntResult(ctx, runID, &hr); err != nil {
				fail(model.StageHunt, err)
			}
			res.Hunt = &hr
		}
	}

	if !want[model.StageContacts] && !want[model.StageLinkedIn] {
		return res
	}

	domain, err := b.approvedDomain(ctx, ids.CompanyNumber, res.Hunt)
	if err != nil {
		log.Warn("pipeline: load approved domain", zap.Error(err))
	}

	if want[model.StageContacts] {
		switch {
		case b.deps.Contacts == nil:
			fail(model.StageContacts, eris.New("stage not configured"))
		case domain == "":
			fail(model.StageContacts, eris.New("no approved domain"))
		default:
			cr := b.deps.Contacts.Extract(ctx, domain)
			res.Contacts = &cr
			if err := st.SaveContactRecord(ctx, ids.CompanyNumber, &cr); err != nil {
				fail(model.StageContacts, err)
			}
		}
	}

	if want[model.StageLinkedIn] {
		switch {
		case b.deps.LinkedIn == nil:
			fail(model.StageLinkedIn, eris.New("stage not configured"))
		default:
			lr := b.deps.LinkedIn.Find(ctx, ids.CompanyName, domain)
			res.LinkedIn = &lr
			if err := st.SaveLinkedInResult(ctx, ids.CompanyNumber, &lr); err != nil {
				fail(model.StageLinkedIn, err)
			}
		}
	}
	return res
}

// storedVAT returns a previously resolved VAT number, or "".
func (b *Batch) storedVAT(ctx context.Context, companyNumber string) string {
	vr, err := b.deps.Store.GetVATResult(ctx, companyNumber)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("pipeline: load vat result", zap.String("company_number", companyNumber), zap.Error(err))
		}
		return ""
	}
	if !vr.Found() {
		return ""
	}
	return vr.VATNumber
}

// approvedDomain returns the human-approved domain for a company. With
// auto-approve on, a fresh perfect-score domain is approved and returned
// when nothing was approved before.
func (b *Batch) approvedDomain(ctx context.Context, companyNumber string, fresh *model.HuntResult) (string, error) {
	hr, err := b.deps.Store.GetHuntResult(ctx, companyNumber)
	switch {
	case err == nil && hr.ApprovedDomain != "":
		return hr.ApprovedDomain, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	if !b.autoApprove {
		return "", nil
	}
	if fresh == nil {
		fresh = hr
	}
	if fresh == nil {
		return "", nil
	}
	best, ok := fresh.BestDomain()
	if !ok || best.Score < model.MaxCrawlScore {
		return "", nil
	}
	if err := b.deps.Store.ApproveDomain(ctx, companyNumber, best.Domain); err != nil {
		return "", eris.Wrap(err, "pipeline: auto-approve")
	}
	zap.L().Info("pipeline: auto-approved domain",
		zap.String("company_number", companyNumber),
		zap.String("domain", best.Domain),
	)
	fresh.ApprovedDomain = best.Domain
	return best.Domain, nil
}
