package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/enrich-cli/internal/model"
)

// --- WebsiteFinder Mock ---

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindWebsites(ctx context.Context, ids model.Identifiers, keywords, excluded []string) model.SearchResult {
	args := m.Called(ctx, ids, keywords, excluded)
	return args.Get(0).(model.SearchResult)
}

// --- DomainRanker Mock ---

type mockRanker struct {
	mock.Mock
}

func (m *mockRanker) Rank(ctx context.Context, domains []string, ids model.Identifiers) ([]model.CrawlScore, error) {
	args := m.Called(ctx, domains, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CrawlScore), args.Error(1)
}

// --- VATResolver Mock ---

type mockVAT struct {
	mock.Mock
}

func (m *mockVAT) Resolve(ctx context.Context, name string) model.VATResult {
	args := m.Called(ctx, name)
	return args.Get(0).(model.VATResult)
}

// --- ContactExtractor Mock ---

type mockContacts struct {
	mock.Mock
}

func (m *mockContacts) Extract(ctx context.Context, domain string) model.ContactRecord {
	args := m.Called(ctx, domain)
	return args.Get(0).(model.ContactRecord)
}

// --- ProfileFinder Mock ---

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Find(ctx context.Context, name, website string) model.LinkedInResult {
	args := m.Called(ctx, name, website)
	return args.Get(0).(model.LinkedInResult)
}

// --- ListSource stub ---

type stubLists struct {
	lists map[model.ListKind][]string
	err   error
}

func (s stubLists) ListDomains(_ context.Context, kind model.ListKind) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.lists[kind], nil
}

func perfectScore(domain string) model.CrawlScore {
	return model.CrawlScore{
		Domain:             domain,
		CompanyNumberMatch: model.ExactMatch{Kind: model.KindCompanyNumber, Found: true, PageType: model.PageTypeTarget, Weight: 1},
		VATMatch:           model.ExactMatch{Kind: model.KindVATNumber, Found: true, PageType: model.PageTypeTarget, Weight: 1},
		TotalScore:         2,
		PagesCrawled:       3,
		Status:             model.CrawlStatusSuccess,
	}
}
