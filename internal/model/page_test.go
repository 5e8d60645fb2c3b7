package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score CrawlScore
		want  string
	}{
		{
			name:  "no matches",
			score: CrawlScore{},
			want:  "No matches",
		},
		{
			name: "company number on target page",
			score: CrawlScore{
				CompanyNumberMatch: ExactMatch{Found: true, PageType: PageTypeTarget, Weight: 1.0},
			},
			want: "CompanyNum(T:1.0)",
		},
		{
			name: "both matches",
			score: CrawlScore{
				CompanyNumberMatch: ExactMatch{Found: true, PageType: PageTypeTarget, Weight: 1.0},
				VATMatch:           ExactMatch{Found: true, PageType: PageTypeNonTarget, Weight: 0.75},
			},
			want: "CompanyNum(T:1.0); VAT(NT:0.75)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.score.MatchSummary())
		})
	}
}

func TestCrawlScore_Precision(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100.0, CrawlScore{TotalScore: 2.0}.Precision(), 0.001)
	assert.InDelta(t, 37.5, CrawlScore{TotalScore: 0.75}.Precision(), 0.001)
	assert.InDelta(t, 0.0, CrawlScore{}.Precision(), 0.001)
}

func TestCrawlScore_Ranked(t *testing.T) {
	t.Parallel()

	s := CrawlScore{
		Domain:             "acme.co.uk",
		TotalScore:         1.0,
		PagesCrawled:       4,
		Status:             CrawlStatusSuccess,
		CompanyNumberMatch: ExactMatch{Found: true, PageType: PageTypeTarget, Weight: 1.0},
	}

	r := s.Ranked()
	assert.Equal(t, "acme.co.uk", r.Domain)
	assert.InDelta(t, 1.0, r.Score, 0.001)
	assert.Equal(t, 4, r.PagesCrawled)
	assert.Equal(t, CrawlStatusSuccess, r.Status)
	assert.Equal(t, "CompanyNum(T:1.0)", r.MatchSummary)
}

func TestHuntResult_BestDomain(t *testing.T) {
	t.Parallel()

	_, ok := HuntResult{}.BestDomain()
	assert.False(t, ok)

	_, ok = HuntResult{RankedDomains: []RankedDomain{{Domain: "a.com", Score: 0}}}.BestDomain()
	assert.False(t, ok)

	best, ok := HuntResult{RankedDomains: []RankedDomain{{Domain: "a.com", Score: 1.75}, {Domain: "b.com", Score: 1}}}.BestDomain()
	assert.True(t, ok)
	assert.Equal(t, "a.com", best.Domain)
}

func TestIsValidVATNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidVATNumber("GB123456789"))
	assert.False(t, IsValidVATNumber("GB12345678"))
	assert.False(t, IsValidVATNumber("gb123456789"))
	assert.False(t, IsValidVATNumber("123456789"))
	assert.False(t, IsValidVATNumber("GB 123456789"))
	assert.False(t, IsValidVATNumber(VATNotFound))
}

func TestContactRecord_TotalContacts(t *testing.T) {
	t.Parallel()

	rec := ContactRecord{
		Phones: []string{"01214960000"},
		Emails: []string{"info@acme.co.uk", "sales@acme.co.uk"},
		Social: map[string][]string{
			PlatformFacebook: {"https://facebook.com/acme"},
			PlatformLinkedIn: {},
		},
	}
	assert.Equal(t, 4, rec.TotalContacts())
}
