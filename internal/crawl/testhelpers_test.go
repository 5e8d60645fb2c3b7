package crawl

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// site serves a fixed set of paths. Unknown paths return 404.
type site map[string]string

func newSiteServer(t *testing.T, pages site) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	return srv, u.Host
}

func page(body string) string {
	return "<html><head><title>t</title></head><body>" + body + "</body></html>"
}
