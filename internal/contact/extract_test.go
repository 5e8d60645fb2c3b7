package contact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/crawl"
	"github.com/sells-group/enrich-cli/internal/model"
)

func serve(t *testing.T, pages map[string]string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html><body>" + body + "</body></html>"))
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	return u.Host
}

func newTestExtractor() *Extractor {
	return NewExtractor(Config{MaxPages: 15}, crawl.NewFetcher(5*time.Second))
}

func TestExtract_PlaceholderEmailAndLandline(t *testing.T) {
	host := serve(t, map[string]string{
		"/":        `Welcome. Write to jane@example.com <a href="/contact">Contact us</a>`,
		"/contact": `Call us on 0121 496 0000 or email sales@acme-widgets.co.uk`,
	})

	rec := newTestExtractor().Extract(context.Background(), host)

	assert.Equal(t, model.ContactStatusSuccess, rec.Status)
	assert.NotContains(t, rec.Emails, "jane@example.com")
	assert.Contains(t, rec.Emails, "sales@acme-widgets.co.uk")
	assert.Contains(t, rec.Phones, "01214960000")
	assert.Equal(t, 2, rec.PagesCrawled)
	assert.Equal(t, 1, rec.PagesWithContactInfo)
}

func TestExtract_SocialAndCaps(t *testing.T) {
	host := serve(t, map[string]string{
		"/": `<a href="/about-us">About</a><a href="/shop">Shop</a>
			<a href="https://www.facebook.com/acmewidgets">fb</a>
			<a href="https://www.facebook.com/sharer/sharer.php?u=x">share</a>
			<a href="https://instagram.com/acme.widgets/">ig</a>
			<a href="https://uk.linkedin.com/company/acme-widgets">li</a>
			<a href="https://www.linkedin.com/in/jane-doe-123">jane</a>`,
		"/about-us": `a@acme.co.uk b@acme.co.uk c@acme.co.uk`,
		"/shop":     `shop@acme.co.uk 0161 496 0123`,
	})

	e := NewExtractor(Config{MaxPages: 15, MaxEmails: 2}, crawl.NewFetcher(5*time.Second))
	rec := e.Extract(context.Background(), host)

	assert.Equal(t, model.ContactStatusSuccess, rec.Status)
	assert.Equal(t, []string{"a@acme.co.uk", "b@acme.co.uk"}, rec.Emails)
	// The shop page is not contact-relevant and is never fetched.
	assert.Empty(t, rec.Phones)
	assert.Equal(t, []string{"https://www.facebook.com/acmewidgets"}, rec.Social[model.PlatformFacebook])
	assert.Equal(t, []string{"https://instagram.com/acme.widgets"}, rec.Social[model.PlatformInstagram])
	assert.ElementsMatch(t, []string{
		"https://uk.linkedin.com/company/acme-widgets",
		"https://www.linkedin.com/in/jane-doe-123",
	}, rec.Social[model.PlatformLinkedIn])
}

func TestExtract_NoContactInfo(t *testing.T) {
	host := serve(t, map[string]string{
		"/": `Just a brochure site.`,
	})

	rec := newTestExtractor().Extract(context.Background(), host)
	assert.Equal(t, model.ContactStatusNoContactInfo, rec.Status)
	assert.Equal(t, 1, rec.PagesCrawled)
	assert.Zero(t, rec.TotalContacts())
}

func TestExtract_Unreachable(t *testing.T) {
	rec := newTestExtractor().Extract(context.Background(), "127.0.0.1:1")
	assert.Equal(t, model.ContactStatusCrawlError, rec.Status)
	assert.NotEmpty(t, rec.Notes)
	require.NotNil(t, rec.Social)
}

func TestExtract_BrokenSubpageIsSkipped(t *testing.T) {
	host := serve(t, map[string]string{
		"/": `<a href="/contact">Contact</a><a href="/privacy">Privacy</a> info@acme.co.uk`,
		// /contact is missing and returns 404.
		"/privacy": `Data controller: Acme Ltd, 020 7123 4567`,
	})

	rec := newTestExtractor().Extract(context.Background(), host)
	assert.Equal(t, model.ContactStatusSuccess, rec.Status)
	assert.Equal(t, 2, rec.PagesCrawled)
	assert.Equal(t, []string{"02071234567"}, rec.Phones)
	assert.Equal(t, []string{"info@acme.co.uk"}, rec.Emails)
}

func TestSelectPages(t *testing.T) {
	site := &crawl.Site{
		Homepage: "https://acme.com",
		Links: []string{
			"https://acme.com",
			"https://acme.com/contact-us",
			"https://acme.com/products",
			"https://acme.com/privacy-policy",
			"https://acme.com/page?section=team",
		},
	}
	assert.Equal(t, []string{
		"https://acme.com",
		"https://acme.com/contact-us",
		"https://acme.com/privacy-policy",
		"https://acme.com/page?section=team",
	}, SelectPages(site, 10))
	assert.Len(t, SelectPages(site, 2), 2)
}

func TestFindEmails(t *testing.T) {
	t.Parallel()

	got := FindEmails(
		"Contact Info@Acme.co.uk, noreply@acme.co.uk, yourname@company.com",
		`<img src="logo@2x.png"> <a href="mailto:info@acme.co.uk">mail</a> sales@test.com`,
	)
	assert.Equal(t, []string{"info@acme.co.uk"}, got)
}

func TestFindEmails_PlaceholderHostIsExact(t *testing.T) {
	t.Parallel()

	got := FindEmails("info@mydomain.com sales@myemail.com x@domain.com hello@email.com")
	assert.Equal(t, []string{"info@mydomain.com", "sales@myemail.com"}, got)
}
