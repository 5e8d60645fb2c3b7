package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SameSite reports whether u is on domain, ignoring case and a leading
// "www." on either side. Subdomains are different sites. domain may carry
// a port.
func SameSite(u *url.URL, domain string) bool {
	return bareHost(u.Host) == bareHost(domain)
}

func bareHost(h string) string {
	h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
	return strings.TrimPrefix(h, "www.")
}

// ExtractLinks returns the absolute same-site http(s) links found in html's
// anchors, in document order, fragments removed and duplicates dropped.
func ExtractLinks(html string, base *url.URL, domain string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !SameSite(abs, domain) {
			return
		}
		abs.Fragment = ""
		norm := abs.String()
		if !seen[norm] {
			seen[norm] = true
			links = append(links, norm)
		}
	})
	return links
}
