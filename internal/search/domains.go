package search

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ExtractDomains returns the unique base domains of the results in first-seen
// order. Non-http URLs and hosts without a registrable suffix are dropped.
func ExtractDomains(results []model.OrganicResult) []string {
	var domains []string
	seen := make(map[string]bool)
	for _, r := range results {
		d := BaseDomain(r.URL)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	return domains
}

// BaseDomain lowercases the URL's host and strips a leading "www.". It
// returns "" for anything that is not an absolute http(s) URL on a
// registrable domain.
func BaseDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") || len(host) < 3 {
		return ""
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return ""
	}
	// An unlisted TLD reports a non-ICANN single-label suffix.
	if suffix, icann := publicsuffix.PublicSuffix(host); !icann && !strings.Contains(suffix, ".") {
		return ""
	}
	return host
}
