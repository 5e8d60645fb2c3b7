package vat

import (
	"regexp"
	"strings"
)

// Abbreviation rules applied in order to an uppercased company name. Each
// rule that changes the name contributes one new variant.
var variantRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\s*&\s*CO\.\s*LTD\s*$`), " & COMPANY LIMITED"},
	{regexp.MustCompile(`\s*&\s*CO\s*LTD\s*$`), " & COMPANY LIMITED"},
	{regexp.MustCompile(`\s*&\s*CO\.\s*$`), " & COMPANY"},
	{regexp.MustCompile(`\s*&\s*CO\s*$`), " & COMPANY"},

	{regexp.MustCompile(`\bLTD\.\s*$`), "LIMITED"},
	{regexp.MustCompile(`\bLTD\s*$`), "LIMITED"},
	{regexp.MustCompile(`\bCO\.\s*$`), "COMPANY"},
	{regexp.MustCompile(`\bCO\s*$`), "COMPANY"},
	{regexp.MustCompile(`\bCORP\.\s*$`), "CORPORATION"},
	{regexp.MustCompile(`\bCORP\s*$`), "CORPORATION"},
	{regexp.MustCompile(`\bINC\.\s*$`), "INCORPORATED"},
	{regexp.MustCompile(`\bINC\s*$`), "INCORPORATED"},

	{regexp.MustCompile(`\bSVCS\b`), "SERVICES"},
	{regexp.MustCompile(`\bSVC\b`), "SERVICE"},
	{regexp.MustCompile(`\bGRP\b`), "GROUP"},
	{regexp.MustCompile(`\bHLDGS?\b`), "HOLDINGS"},
	{regexp.MustCompile(`\bMGMT\b`), "MANAGEMENT"},
	{regexp.MustCompile(`\bMGT\b`), "MANAGEMENT"},
	{regexp.MustCompile(`\bTECH\b`), "TECHNOLOGY"},
	{regexp.MustCompile(`\bSYS\b`), "SYSTEMS"},
}

// NameVariants expands name into progressively normalized search terms.
// The trimmed original always comes first; later entries are uppercase with
// abbreviations spelled out. Blank input yields nil.
func NameVariants(name string) []string {
	original := strings.TrimSpace(name)
	if original == "" {
		return nil
	}

	variants := []string{original}
	seen := map[string]bool{original: true}

	current := strings.ToUpper(original)
	for _, rule := range variantRules {
		if !rule.re.MatchString(current) {
			continue
		}
		next := strings.TrimSpace(rule.re.ReplaceAllString(current, rule.repl))
		if next != current && !seen[next] {
			seen[next] = true
			variants = append(variants, next)
		}
		current = next
	}
	return variants
}

// ValidCompanyName reports whether name is usable as a lookup term.
func ValidCompanyName(name string) bool {
	n := len(strings.TrimSpace(name))
	return n >= 2 && n <= 200
}
