package crawl

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnreachable is returned when neither the https nor the http homepage
// of a domain answers with HTTP 200.
var ErrUnreachable = eris.New("crawl: homepage unreachable")

// Site is the result of link discovery on a domain's homepage.
type Site struct {
	Domain   string
	Homepage string
	// Links holds the homepage followed by every same-site link on it.
	Links   []string
	Blocked BlockType
}

// Discover fetches the homepage of domain (https first, then http) and
// collects its same-site links.
func (f *Fetcher) Discover(ctx context.Context, domain string) (*Site, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		home := scheme + "://" + domain
		page, err := f.Fetch(ctx, home)
		if err != nil {
			zap.L().Debug("crawl: homepage fetch failed", zap.String("url", home), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if !page.OK() {
			lastErr = eris.Errorf("crawl: %s returned status %d", home, page.StatusCode)
			continue
		}

		base, err := url.Parse(page.FinalURL)
		if err != nil {
			base, _ = url.Parse(home)
		}
		site := &Site{Domain: domain, Homepage: home, Blocked: page.Blocked}
		site.Links = append(site.Links, home)
		for _, l := range ExtractLinks(page.HTML, base, domain) {
			if l != home && l != home+"/" {
				site.Links = append(site.Links, l)
			}
		}
		return site, nil
	}
	if lastErr == nil {
		return nil, ErrUnreachable
	}
	return nil, eris.Wrap(ErrUnreachable, lastErr.Error())
}
