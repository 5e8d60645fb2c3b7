package vat

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/enrich-cli/internal/model"
)

// responseKind classifies a lookup page.
type responseKind string

const (
	kindSoftBlock responseKind = "soft_block"
	kindNotFound  responseKind = "not_found"
	kindResults   responseKind = "results_found"
	kindUnknown   responseKind = "unknown"
)

var (
	softBlockMarkers = []string{
		"sorry it looks like you might be a robot",
		"too many requests",
	}
	notFoundMarkers = []string{
		"sorry we were unable to find any matches for your search",
	}
)

func classify(html string) responseKind {
	lower := strings.ToLower(html)
	for _, m := range softBlockMarkers {
		if strings.Contains(lower, m) {
			return kindSoftBlock
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return kindNotFound
		}
	}
	hasTable := strings.Contains(lower, "<table border=1") || strings.Contains(lower, `<table border="1"`)
	if hasTable && strings.Contains(lower, "vat number") {
		return kindResults
	}
	return kindUnknown
}

// parseResults reads the results table. Rows whose VAT number is not
// GB followed by nine digits are dropped.
func parseResults(html string) ([]model.VATCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "vat: parse results page")
	}
	table := doc.Find(`table[border="1"]`).First()
	if table.Length() == 0 {
		return nil, eris.New("vat: results table not found")
	}

	var out []model.VATCandidate
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		vat := normalizeVAT(cells.Eq(2).Find("a").First().Text())
		if !model.IsValidVATNumber(vat) {
			return
		}
		out = append(out, model.VATCandidate{
			CompanyName: strings.TrimSpace(cells.Eq(0).Text()),
			TradeName:   strings.TrimSpace(cells.Eq(1).Text()),
			VATNumber:   vat,
			CompanyID:   strings.TrimSpace(cells.Eq(3).Find("a").First().Text()),
		})
	})
	return out, nil
}

func normalizeVAT(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// pick chooses the candidate for term: a lone row is accepted as is,
// otherwise only a case-insensitive exact name match counts.
func pick(cands []model.VATCandidate, term string) *model.VATCandidate {
	if len(cands) == 1 {
		return &cands[0]
	}
	fold := cases.Fold()
	want := fold.String(strings.Join(strings.Fields(term), " "))
	for i := range cands {
		if fold.String(strings.Join(strings.Fields(cands[i].CompanyName), " ")) == want {
			return &cands[i]
		}
	}
	return nil
}
