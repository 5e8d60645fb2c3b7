package linkedin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/search"
	"github.com/sells-group/enrich-cli/pkg/zenserp"
	"github.com/sells-group/enrich-cli/pkg/zenserp/mocks"
)

var _ Searcher = (*search.Service)(nil)

type stubSearcher struct {
	query   string
	results *search.Results
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string) (*search.Results, error) {
	s.query = query
	return s.results, s.err
}

func intPtr(n int) *int { return &n }

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `site:linkedin.com/ "Acme Widgets Ltd"`, BuildQuery("Acme Widgets Ltd", ""))
	assert.Equal(t, `site:linkedin.com/ "Acme Widgets Ltd" OR "acmewidgets.co.uk"`, BuildQuery("Acme Widgets Ltd", "acmewidgets.co.uk"))
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"acmewidgets.co.uk":                   "acmewidgets.co.uk",
		"www.AcmeWidgets.co.uk":               "acmewidgets.co.uk",
		"https://www.acmewidgets.co.uk/about": "acmewidgets.co.uk",
		"http://acme.com":                     "acme.com",
		"":                                    "",
		"  ":                                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDomain(in), in)
	}
}

func TestFind_ScoresAndClassifies(t *testing.T) {
	s := &stubSearcher{results: &search.Results{
		QuotaRemaining: intPtr(41),
		Organic: []model.OrganicResult{
			{URL: "https://uk.linkedin.com/in/jane-doe", Title: "Jane Doe", Description: "Director at Acme Widgets Ltd", Position: 1},
			{URL: "https://www.linkedin.com/company/acme-widgets", Title: "Acme Widgets", Description: "Acme Widgets Ltd | acmewidgets.co.uk | 11-50 employees", Position: 2},
			{URL: "https://www.linkedin.com/company/acme-north", Title: "Acme North", Description: "Visit acmewidgets.co.uk", Position: 3},
			{URL: "https://www.linkedin.com/posts/acme-widgets_news", Title: "Post", Description: "Acme Widgets Ltd news", Position: 4},
			{URL: "https://acmewidgets.co.uk/team", Title: "Team", Description: "Acme Widgets Ltd team", Position: 5},
		},
	}}
	f := NewFinder(s, Weights{})

	res := f.Find(context.Background(), " Acme Widgets Ltd ", "https://www.acmewidgets.co.uk")

	assert.Equal(t, `site:linkedin.com/ "Acme Widgets Ltd" OR "acmewidgets.co.uk"`, s.query)
	assert.Equal(t, model.LinkedInStatusSuccess, res.Status)
	assert.Equal(t, "acmewidgets.co.uk", res.Domain)
	require.NotNil(t, res.QuotaRemaining)
	assert.Equal(t, 41, *res.QuotaRemaining)

	require.Len(t, res.CompanyProfiles, 2)
	assert.Equal(t, 3, res.CompanyProfiles[0].Score)
	assert.Equal(t, []string{"CompanyName(Desc)", "Domain(Desc:+2)"}, res.CompanyProfiles[0].MatchDetails)
	assert.Equal(t, "https://www.linkedin.com/company/acme-north", res.CompanyProfiles[1].URL)
	assert.Equal(t, 2, res.CompanyProfiles[1].Score)

	require.Len(t, res.EmployeeProfiles, 1)
	assert.Equal(t, 1, res.EmployeeProfiles[0].Score)
	assert.Equal(t, model.ProfileEmployee, res.EmployeeProfiles[0].Category)
	assert.Equal(t, "Found 2 company profiles and 1 employee profiles", res.Notes)
}

func TestFind_ZeroScoreResultsDropped(t *testing.T) {
	s := &stubSearcher{results: &search.Results{Organic: []model.OrganicResult{
		{URL: "https://www.linkedin.com/company/other-co", Description: "Other Co builds bridges"},
		{URL: "https://www.linkedin.com/in/john-smith", Description: "Engineer in Leeds"},
	}}}
	f := NewFinder(s, Weights{Name: 1, Domain: 2})

	res := f.Find(context.Background(), "Acme Widgets Ltd", "acmewidgets.co.uk")

	assert.Empty(t, res.CompanyProfiles)
	assert.Empty(t, res.EmployeeProfiles)
	assert.Equal(t, model.LinkedInStatusNoResultsFound, res.Status)
	assert.Equal(t, "No LinkedIn profiles found for 'Acme Widgets Ltd'", res.Notes)
}

func TestFind_CustomWeights(t *testing.T) {
	s := &stubSearcher{results: &search.Results{Organic: []model.OrganicResult{
		{URL: "https://www.linkedin.com/company/a", Description: "acme ltd"},
		{URL: "https://www.linkedin.com/company/b", Description: "see acme.com"},
	}}}
	f := NewFinder(s, Weights{Name: 5, Domain: 1})

	res := f.Find(context.Background(), "Acme Ltd", "acme.com")

	require.Len(t, res.CompanyProfiles, 2)
	assert.Equal(t, "https://www.linkedin.com/company/a", res.CompanyProfiles[0].URL)
	assert.Equal(t, 5, res.CompanyProfiles[0].Score)
	assert.Equal(t, 1, res.CompanyProfiles[1].Score)
}

func TestFind_NoDomain(t *testing.T) {
	s := &stubSearcher{results: &search.Results{Organic: []model.OrganicResult{
		{URL: "https://www.linkedin.com/company/acme", Description: "Acme Ltd on acme.com"},
	}}}
	res := NewFinder(s, Weights{}).Find(context.Background(), "Acme Ltd", "")

	assert.Equal(t, `site:linkedin.com/ "Acme Ltd"`, s.query)
	require.Len(t, res.CompanyProfiles, 1)
	assert.Equal(t, 1, res.CompanyProfiles[0].Score)
}

func TestFind_BlankName(t *testing.T) {
	s := &stubSearcher{}
	res := NewFinder(s, Weights{}).Find(context.Background(), "  ", "acme.com")

	assert.Equal(t, model.LinkedInStatusInvalidCompanyName, res.Status)
	assert.Empty(t, s.query)
}

func TestFind_SearchError(t *testing.T) {
	s := &stubSearcher{err: errors.New("boom")}
	res := NewFinder(s, Weights{}).Find(context.Background(), "Acme Ltd", "")

	assert.Equal(t, model.LinkedInStatusAPIError, res.Status)
	assert.Contains(t, res.Notes, "boom")
	assert.Equal(t, `site:linkedin.com/ "Acme Ltd"`, res.Query)
}

func TestFind_WithSearchService(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Search", mock.Anything, `site:linkedin.com/ "Acme Ltd"`).Return(&zenserp.SearchResponse{
		Query: zenserp.QueryInfo{CreditsRemaining: intPtr(9)},
		Organic: []zenserp.OrganicResult{
			{URL: "https://www.linkedin.com/company/acme", Description: "Acme Ltd, Birmingham", Position: 1},
		},
	}, nil).Once()

	svc := search.NewService(client, search.WithMinDelay(0))
	res := NewFinder(svc, Weights{}).Find(context.Background(), "Acme Ltd", "")

	assert.Equal(t, model.LinkedInStatusSuccess, res.Status)
	require.Len(t, res.CompanyProfiles, 1)
	assert.Equal(t, 9, *res.QuotaRemaining)
}
