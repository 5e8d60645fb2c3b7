package model

import "strings"

// ListKind names a managed list of hunting inputs.
type ListKind string

const (
	ListSearchKeyword ListKind = "search_keyword"
	ListSERPExcluded  ListKind = "serp_excluded"
	ListBlacklist     ListKind = "blacklist"
)

// ListKinds is every managed list, in display order.
var ListKinds = []ListKind{ListSearchKeyword, ListSERPExcluded, ListBlacklist}

// ParseListKind accepts a kind name or one of its short aliases
// ("keywords", "excluded").
func ParseListKind(s string) (ListKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "search_keyword", "search_keywords", "keywords", "keyword":
		return ListSearchKeyword, true
	case "serp_excluded", "serp_excluded_domains", "excluded":
		return ListSERPExcluded, true
	case "blacklist", "blacklist_domains":
		return ListBlacklist, true
	}
	return "", false
}

// IsDomainList reports whether entries of k are domains.
func (k ListKind) IsDomainList() bool {
	return k == ListSERPExcluded || k == ListBlacklist
}

// NormalizeListValue trims v; domain entries are also lowercased and lose
// any scheme, path and "www." prefix.
func NormalizeListValue(k ListKind, v string) string {
	v = strings.TrimSpace(v)
	if !k.IsDomainList() {
		return v
	}
	return NormalizeDomain(v)
}

// NormalizeDomain lowercases a domain or URL and strips the scheme, path
// and leading "www.".
func NormalizeDomain(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	if i := strings.IndexAny(v, "/?#"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimPrefix(v, "www.")
}

// MergeLists concatenates lists, dropping blanks and duplicates while
// keeping first-seen order.
func MergeLists(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, v := range l {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}
