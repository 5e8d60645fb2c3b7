package contact

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

// Fragments that mark an address as a placeholder rather than a real inbox.
var placeholderEmail = []string{
	"example.com", "example.org", "test.com", "dummy.com", "placeholder",
	"yourname@", "name@domain", "@example", "noreply@", "no-reply@",
}

// Placeholder hosts, matched against the whole domain part.
var placeholderHosts = map[string]bool{"domain.com": true, "email.com": true}

// Asset names like logo@2x.png look like addresses.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// FindEmails returns lowercased, deduplicated addresses from sources with
// placeholders removed.
func FindEmails(sources ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, src := range sources {
		for _, m := range emailRe.FindAllString(src, -1) {
			e := strings.ToLower(strings.TrimSpace(m))
			if seen[e] || isPlaceholderEmail(e) {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

func isPlaceholderEmail(e string) bool {
	if at := strings.LastIndexByte(e, '@'); at >= 0 && placeholderHosts[e[at+1:]] {
		return true
	}
	for _, p := range placeholderEmail {
		if strings.Contains(e, p) {
			return true
		}
	}
	for _, s := range assetSuffixes {
		if strings.HasSuffix(e, s) {
			return true
		}
	}
	return false
}
