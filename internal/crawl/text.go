package crawl

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// PlainText returns the visible text of html with scripts and styles removed
// and whitespace collapsed.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.TrimSpace(spaceRe.ReplaceAllString(doc.Text(), " "))
}

// Normalize prepares text for exact identifier matching: all whitespace is
// removed and letters are uppercased.
func Normalize(s string) string {
	return strings.ToUpper(spaceRe.ReplaceAllString(s, ""))
}

// identifierMatcher checks normalized page text for a company number and a
// VAT number. The VAT number also matches without its GB prefix.
type identifierMatcher struct {
	companyNumber string
	vatFull       string
	vatNumeric    string
}

func newIdentifierMatcher(companyNumber, vatNumber string) identifierMatcher {
	m := identifierMatcher{
		companyNumber: Normalize(companyNumber),
		vatFull:       Normalize(vatNumber),
	}
	if numeric := strings.TrimPrefix(m.vatFull, "GB"); numeric != m.vatFull {
		m.vatNumeric = numeric
	}
	return m
}

func (m identifierMatcher) match(normalized string) (companyNumber, vat bool) {
	if m.companyNumber != "" && strings.Contains(normalized, m.companyNumber) {
		companyNumber = true
	}
	if m.vatFull != "" && strings.Contains(normalized, m.vatFull) {
		vat = true
	} else if m.vatNumeric != "" && strings.Contains(normalized, m.vatNumeric) {
		vat = true
	}
	return companyNumber, vat
}
