package contact

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

var socialPatterns = []struct {
	platform string
	re       *regexp.Regexp
}{
	{model.PlatformFacebook, regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com/[A-Za-z0-9._\-]+`)},
	{model.PlatformInstagram, regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/[A-Za-z0-9._\-]+`)},
	{model.PlatformLinkedIn, regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/(?:in|company)/[A-Za-z0-9._\-]+`)},
}

// First path segments that belong to share widgets, login flows and
// platform pages rather than a business profile.
var genericSocialSegments = map[string]bool{
	"sharer": true, "sharer.php": true, "share": true, "share.php": true,
	"login": true, "login.php": true, "signup": true, "home": true, "home.php": true,
	"pages": true, "pg": true, "tr": true, "plugins": true, "dialog": true,
	"p": true, "explore": true, "reel": true, "accounts": true,
}

// FindSocial returns profile links per platform. Links are given an https
// scheme when missing; share widgets and login pages are ignored.
func FindSocial(sources ...string) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	for _, src := range sources {
		for _, sp := range socialPatterns {
			for _, m := range sp.re.FindAllString(src, -1) {
				link := strings.TrimSpace(m)
				if !strings.HasPrefix(strings.ToLower(link), "http") {
					link = "https://" + link
				}
				key := strings.ToLower(strings.TrimSuffix(link, "/"))
				if seen[key] || isGenericSocial(key) {
					continue
				}
				seen[key] = true
				out[sp.platform] = append(out[sp.platform], link)
			}
		}
	}
	return out
}

func isGenericSocial(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	seg := strings.Trim(u.Path, "/")
	if i := strings.Index(seg, "/"); i >= 0 {
		seg = seg[:i]
	}
	return seg == "" || genericSocialSegments[seg]
}
