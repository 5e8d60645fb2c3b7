package crawl

import (
	"net/url"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Classifier labels URLs as TARGET when their path contains one of the
// configured keywords.
type Classifier struct {
	keywords []string
}

// NewClassifier creates a Classifier. Keywords are matched case-insensitively.
func NewClassifier(keywords []string) *Classifier {
	c := &Classifier{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			c.keywords = append(c.keywords, k)
		}
	}
	return c
}

// Classify returns the page type of rawURL. Unparseable URLs are NON_TARGET.
func (c *Classifier) Classify(rawURL string) model.PageType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.PageTypeNonTarget
	}
	path := strings.ToLower(u.Path)
	for _, k := range c.keywords {
		if strings.Contains(path, k) {
			return model.PageTypeTarget
		}
	}
	return model.PageTypeNonTarget
}

// Split partitions urls by page type, preserving order.
func (c *Classifier) Split(urls []string) (target, nonTarget []string) {
	for _, u := range urls {
		if c.Classify(u) == model.PageTypeTarget {
			target = append(target, u)
		} else {
			nonTarget = append(nonTarget, u)
		}
	}
	return target, nonTarget
}
