// Package search builds website-discovery queries, runs them against the
// search API and turns organic results into candidate domains.
package search

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidInput is returned when no usable identifier is supplied.
var ErrInvalidInput = eris.New("search: at least one identifier is required")

// Query dialects.
const (
	QueryV1 = 1 // quoted keywords
	QueryV2 = 2 // inurl: operators
)

// BuildQuery composes a single combined query:
//
//	("id1" OR "id2") ("kw1" OR "kw2") -site:d1 -site:d2
//
// Blank entries are ignored. Empty keyword or exclusion groups are omitted.
func BuildQuery(identifiers, keywords, excluded []string) (string, error) {
	ids := nonBlank(identifiers)
	if len(ids) == 0 {
		return "", ErrInvalidInput
	}
	return assemble(quoteAll(ids), quoteAll(nonBlank(keywords)), nonBlank(excluded)), nil
}

// BuildInURLQuery is like BuildQuery but maps keywords to inurl: operators.
func BuildInURLQuery(identifiers, keywords, excluded []string) (string, error) {
	ids := nonBlank(identifiers)
	if len(ids) == 0 {
		return "", ErrInvalidInput
	}
	return assemble(quoteAll(ids), InURLOperators(keywords), nonBlank(excluded)), nil
}

// BuildVersioned dispatches to BuildQuery or BuildInURLQuery.
func BuildVersioned(version int, identifiers, keywords, excluded []string) (string, error) {
	if version == QueryV2 {
		return BuildInURLQuery(identifiers, keywords, excluded)
	}
	return BuildQuery(identifiers, keywords, excluded)
}

// InURLOperators converts keywords to deduplicated inurl: operators.
func InURLOperators(keywords []string) []string {
	var ops []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		op := inURLFor(strings.ToLower(strings.TrimSpace(kw)))
		if op == "" || seen[op] {
			continue
		}
		seen[op] = true
		ops = append(ops, op)
	}
	return ops
}

func inURLFor(kw string) string {
	switch {
	case kw == "":
		return ""
	case strings.Contains(kw, "privacy") && strings.Contains(kw, "policy"):
		return "inurl:privacy"
	case strings.Contains(kw, "terms"):
		return "inurl:terms"
	case strings.Contains(kw, "about"):
		return "inurl:about"
	case strings.Contains(kw, "contact"):
		return "inurl:contact"
	case strings.Contains(kw, "company"):
		return "inurl:company"
	}
	rest := strings.NewReplacer(" ", "", "policy", "", "information", "").Replace(kw)
	if rest == "" {
		return ""
	}
	return "inurl:" + rest
}

func assemble(ids, keywords, excluded []string) string {
	parts := []string{orGroup(ids)}
	if len(keywords) > 0 {
		parts = append(parts, orGroup(keywords))
	}
	for _, d := range excluded {
		parts = append(parts, "-site:"+d)
	}
	return strings.Join(parts, " ")
}

func orGroup(terms []string) string {
	return "(" + strings.Join(terms, " OR ") + ")"
}

func quoteAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = fmt.Sprintf("%q", t)
	}
	return out
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
