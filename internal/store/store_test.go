package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		stages := []model.Stage{model.StageVAT, model.StageHunt}
		run, err := s.CreateRun(ctx, "companies.csv", stages, 12)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "companies.csv", got.Source)
		assert.Equal(t, stages, got.Stages)
		assert.Equal(t, 12, got.Companies)
		assert.Equal(t, model.RunStatusRunning, got.Status)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "in.xlsx", []model.Stage{model.StageHunt}, 3)
		require.NoError(t, err)

		run.Status = model.RunStatusComplete
		run.Processed = 3
		run.Failed = 1
		run.Error = "1 company failed"
		require.NoError(t, s.CompleteRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, 3, got.Processed)
		assert.Equal(t, 1, got.Failed)
		assert.Equal(t, "1 company failed", got.Error)
	})

	t.Run("CompleteRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.CompleteRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusFailed})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nonexistent")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r1, err := s.CreateRun(ctx, "a.csv", []model.Stage{model.StageVAT}, 1)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "b.csv", []model.Stage{model.StageVAT}, 1)
		require.NoError(t, err)

		r1.Status = model.RunStatusComplete
		require.NoError(t, s.CompleteRun(ctx, r1))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, complete, 1)
		assert.Equal(t, r1.ID, complete[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("HuntResultRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		hr := &model.HuntResult{
			Identifiers:  model.Identifiers{CompanyNumber: "01234567", VATNumber: "GB123456789"},
			DomainsFound: []string{"acme-widgets.co.uk", "acme.com"},
			RankedDomains: []model.RankedDomain{
				{Domain: "acme-widgets.co.uk", Score: 2, PagesCrawled: 3, Status: model.CrawlStatusSuccess, MatchSummary: "CompanyNum(T:1.0); VAT(T:1.0)"},
			},
			SERPStatus:  string(model.SearchStatusSuccess),
			CrawlStatus: model.CrawlStatusRanked,
			CreatedAt:   time.Now().UTC(),
		}
		require.NoError(t, s.SaveHuntResult(ctx, "run-1", hr))

		got, err := s.GetHuntResult(ctx, "01234567")
		require.NoError(t, err)
		assert.Equal(t, hr.DomainsFound, got.DomainsFound)
		best, ok := got.BestDomain()
		require.True(t, ok)
		assert.Equal(t, "acme-widgets.co.uk", best.Domain)
		assert.Empty(t, got.ApprovedDomain)

		_, err = s.GetHuntResult(ctx, "99999999")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ApproveDomainSurvivesRehunt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.ApproveDomain(ctx, "07654321", "acme.co.uk"))

		got, err := s.GetHuntResult(ctx, "07654321")
		require.NoError(t, err)
		assert.Equal(t, "acme.co.uk", got.ApprovedDomain)
		assert.Equal(t, "07654321", got.Identifiers.CompanyNumber)

		hr := &model.HuntResult{
			Identifiers: model.Identifiers{CompanyNumber: "07654321"},
			SERPStatus:  string(model.SearchStatusNoWebsitesFound),
			CrawlStatus: model.CrawlStatusNoDomains,
		}
		require.NoError(t, s.SaveHuntResult(ctx, "run-2", hr))

		got, err = s.GetHuntResult(ctx, "07654321")
		require.NoError(t, err)
		assert.Equal(t, "acme.co.uk", got.ApprovedDomain)
		assert.Equal(t, model.CrawlStatusNoDomains, got.CrawlStatus)
	})

	t.Run("VATResultRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		vr := &model.VATResult{
			CompanyName:   "Acme Widgets Ltd",
			VATNumber:     "GB123456789",
			VariantsTried: []string{"Acme Widgets Ltd"},
			Status:        model.VATStatusSuccess,
			Attempts:      1,
		}
		require.NoError(t, s.SaveVATResult(ctx, "01234567", vr))

		got, err := s.GetVATResult(ctx, "01234567")
		require.NoError(t, err)
		assert.True(t, got.Found())
		assert.Equal(t, "GB123456789", got.VATNumber)

		vr.Status = model.VATStatusNotFound
		vr.VATNumber = model.VATNotFound
		require.NoError(t, s.SaveVATResult(ctx, "01234567", vr))

		got, err = s.GetVATResult(ctx, "01234567")
		require.NoError(t, err)
		assert.False(t, got.Found())

		_, err = s.GetVATResult(ctx, "00000000")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("SaveContactAndLinkedIn", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveContactRecord(ctx, "01234567", &model.ContactRecord{
			Domain: "acme.co.uk",
			Emails: []string{"sales@acme.co.uk"},
			Status: model.ContactStatusSuccess,
		}))
		require.NoError(t, s.SaveContactRecord(ctx, "01234567", &model.ContactRecord{
			Domain: "acme.co.uk",
			Status: model.ContactStatusNoContactInfo,
		}))
		require.NoError(t, s.SaveLinkedInResult(ctx, "01234567", &model.LinkedInResult{
			CompanyName: "Acme",
			Status:      model.LinkedInStatusNoResultsFound,
		}))
	})

	t.Run("DomainLists", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.AddDomains(ctx, model.ListBlacklist, []string{"Yell.com", "www.checkatrade.com", "yell.com", " "})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.AddDomains(ctx, model.ListBlacklist, []string{"yell.com", "bark.com"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.ListDomains(ctx, model.ListBlacklist)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"yell.com", "checkatrade.com", "bark.com"}, got)

		require.NoError(t, s.RemoveDomain(ctx, model.ListBlacklist, "YELL.com"))
		err = s.RemoveDomain(ctx, model.ListBlacklist, "yell.com")
		assert.True(t, errors.Is(err, ErrNotFound))

		kw, err := s.ListDomains(ctx, model.ListSearchKeyword)
		require.NoError(t, err)
		assert.Empty(t, kw)
	})

	t.Run("DomainListsUnknownKind", func(t *testing.T) {
		s := newStore(t)
		_, err := s.AddDomains(context.Background(), model.ListKind("bogus"), []string{"x.com"})
		assert.Error(t, err)
		_, err = s.ListDomains(context.Background(), model.ListKind("bogus"))
		assert.Error(t, err)
	})

	t.Run("Quota", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.LatestQuota(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))

		require.NoError(t, s.RecordQuota(ctx, 500))
		require.NoError(t, s.RecordQuota(ctx, 499))

		q, err := s.LatestQuota(ctx)
		require.NoError(t, err)
		assert.Equal(t, 499, q.Remaining)
		assert.False(t, q.CheckedAt.IsZero())
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
