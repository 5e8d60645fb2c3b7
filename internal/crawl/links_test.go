package crawl

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://www.acme.co.uk/")
	require.NoError(t, err)

	html := `<html><body>
		<a href="/about">About</a>
		<a href="contact-us#form">Contact</a>
		<a href="https://acme.co.uk/privacy-policy">Privacy</a>
		<a href="https://blog.acme.co.uk/post">Blog</a>
		<a href="https://twitter.com/acme">Twitter</a>
		<a href="mailto:info@acme.co.uk">Mail</a>
		<a href="tel:+441234567890">Call</a>
		<a href="javascript:void(0)">JS</a>
		<a href="#top">Top</a>
		<a href="/about">About again</a>
		<a>No href</a>
	</body></html>`

	got := ExtractLinks(html, base, "acme.co.uk")
	assert.Equal(t, []string{
		"https://www.acme.co.uk/about",
		"https://www.acme.co.uk/contact-us",
		"https://acme.co.uk/privacy-policy",
	}, got)
}

func TestSameSite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		domain string
		want   bool
	}{
		{"https://www.acme.com/x", "acme.com", true},
		{"https://ACME.com/x", "www.acme.com", true},
		{"https://shop.acme.com/x", "acme.com", false},
		{"http://127.0.0.1:8080/x", "127.0.0.1:8080", true},
		{"http://127.0.0.1:9090/x", "127.0.0.1:8080", false},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, SameSite(u, tt.domain), tt.raw)
	}
}

func TestClassifier(t *testing.T) {
	t.Parallel()

	c := NewClassifier([]string{"About", "privacy", " "})
	assert.Equal(t, "TARGET", string(c.Classify("https://acme.com/About-Us")))
	assert.Equal(t, "TARGET", string(c.Classify("https://acme.com/legal/privacy")))
	assert.Equal(t, "NON_TARGET", string(c.Classify("https://acme.com/products?about=1")))
	assert.Equal(t, "NON_TARGET", string(c.Classify("https://acme.com")))
	assert.Equal(t, "NON_TARGET", string(c.Classify("://bad")))

	target, non := c.Split([]string{"https://a.com/", "https://a.com/about", "https://a.com/shop", "https://a.com/privacy"})
	assert.Equal(t, []string{"https://a.com/about", "https://a.com/privacy"}, target)
	assert.Equal(t, []string{"https://a.com/", "https://a.com/shop"}, non)
}
