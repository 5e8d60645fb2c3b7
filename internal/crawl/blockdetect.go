package crawl

import (
	"net/http"
	"regexp"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// interstitialSize bounds the body length of a challenge page. Larger pages
// that merely embed a captcha widget (contact forms) are real content.
const interstitialSize = 5000

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Title fragments used by challenge and access-denied pages.
var interstitialTitles = []string{
	"captcha", "just a moment", "attention required", "access denied",
	"security check", "verify you are human", "are you a robot", "bot verification",
}

// interstitialTitle reports whether the page title names a challenge page.
func interstitialTitle(lowerBody string) bool {
	m := titleRe.FindStringSubmatch(lowerBody)
	if m == nil {
		return false
	}
	title := strings.TrimSpace(m[1])
	for _, t := range interstitialTitles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, BlockCloudflare
	}

	// Small sites embed captcha widgets too; the markers only count on a
	// page that is also an error response or titled as a challenge.
	if len(body) < interstitialSize && (resp.StatusCode != http.StatusOK || interstitialTitle(lower)) {
		if strings.Contains(lower, "captcha") {
			return true, BlockCaptcha
		}
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
