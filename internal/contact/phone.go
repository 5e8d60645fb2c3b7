package contact

import (
	"regexp"
	"strings"
)

// UK phone number shapes, most specific first.
var phonePatterns = []*regexp.Regexp{
	// Geographic landlines: 0121 496 0000, 020 7946 0000, 01234 567890
	regexp.MustCompile(`\b0(?:1[1-9]\d{1,2}|2\d|3\d{1,2})\s?\d{3,4}\s?\d{3,4}\b`),
	// Mobiles: 07123 456789, +44 7123 456789
	regexp.MustCompile(`(?:\+44\s?7|\b07)\d{3}\s?\d{3}\s?\d{3}\b`),
	// Freephone: 0800 123 4567, 0808 123 4567
	regexp.MustCompile(`\b0(?:800|808)\s?\d{3}\s?\d{3,4}\b`),
	// Local and national rate: 0845 123 4567, 0870 123 4567
	regexp.MustCompile(`\b0(?:845|870|871|872|873)\s?\d{3}\s?\d{4}\b`),
	// Premium rate: 09xx xxx xxxx
	regexp.MustCompile(`\b09\d{2}\s?\d{3}\s?\d{4}\b`),
	// International: +44 20 7946 0000, +44 (0)121 496 0000
	regexp.MustCompile(`\+44\s?(?:\(0\)\s?)?(?:1[1-9]\d{1,2}|2\d|3\d{1,2}|7\d{3}|800|808|845|87[0-3]|9\d{2})\s?\d{3,4}\s?\d{3,4}\b`),
	// Bracketed area code: (020) 7946 0000, (0121) 496 0000
	regexp.MustCompile(`\(0(?:1[1-9]\d{1,2}|2\d|3\d{1,2})\)\s?\d{3,4}\s?\d{3,4}\b`),
	// Dashed: 020-7946-0000, 0121-496-0000
	regexp.MustCompile(`\b0(?:1[1-9]\d{1,2}|2\d|3\d{1,2}|7\d{3}|800|808)-\d{3,4}-\d{3,4}\b`),
}

var nonDigitRe = regexp.MustCompile(`\D`)

// PhoneValidator accepts UK numbers and rejects known fictional ones.
type PhoneValidator struct {
	testNumbers []string
}

// NewPhoneValidator creates a validator that rejects any number containing
// one of testNumbers (given in national form, e.g. "02079460000").
func NewPhoneValidator(testNumbers []string) *PhoneValidator {
	v := &PhoneValidator{}
	for _, n := range testNumbers {
		if d := nonDigitRe.ReplaceAllString(n, ""); d != "" {
			v.testNumbers = append(v.testNumbers, d)
		}
	}
	return v
}

// Normalize converts a raw match into national digits with a leading 0 and
// reports whether it is an acceptable UK number.
func (v *PhoneValidator) Normalize(raw string) (string, bool) {
	// "+44 (0)20" carries a redundant trunk zero.
	raw = strings.ReplaceAll(raw, "(0)", "")
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "44") {
		digits = "0" + digits[2:]
	}

	if len(digits) < 10 || len(digits) > 11 {
		return "", false
	}
	for _, t := range v.testNumbers {
		if strings.Contains(digits, t) {
			return "", false
		}
	}
	if len(digits) > 8 && distinctDigits(digits) < 3 {
		return "", false
	}
	if !ValidUKRange(digits) {
		return "", false
	}
	return digits, true
}

// FindPhones returns the accepted numbers found in either text or html, in
// first-seen order.
func (v *PhoneValidator) FindPhones(sources ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, src := range sources {
		if src == "" {
			continue
		}
		for _, re := range phonePatterns {
			for _, m := range re.FindAllString(src, -1) {
				n, ok := v.Normalize(m)
				if !ok || seen[n] {
					continue
				}
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// ValidUKRange checks national-format digits against UK numbering ranges.
func ValidUKRange(d string) bool {
	if !strings.HasPrefix(d, "0") {
		return false
	}
	switch len(d) {
	case 11:
		return hasAnyPrefix(d, "01", "02", "03", "07", "0800", "0808", "0845", "0870", "0871", "0872", "0873", "09")
	case 10:
		return hasAnyPrefix(d, "012", "013", "014", "015", "016", "019", "02", "0800", "0808", "0845", "0870", "0871", "0872", "0873")
	default:
		return false
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func distinctDigits(s string) int {
	var seen [10]bool
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' && !seen[r-'0'] {
			seen[r-'0'] = true
			n++
		}
	}
	return n
}
