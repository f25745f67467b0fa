package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// Extractor runs an ordered cascade of strategies; the first strategy
// producing non-empty breadcrumbs wins and its tag is reported.
type Extractor struct {
	id         string
	strategies []Strategy
}

// Extract runs the cascade over one page.
func (e *Extractor) Extract(doc *goquery.Document, body []byte, rawURL string) ([]string, string) {
	c := Context{
		Doc:      doc,
		Body:     body,
		URL:      rawURL,
		Retailer: retailer.Lookup(e.id),
	}
	for _, s := range e.strategies {
		if crumbs := s.Run(c); len(crumbs) > 0 {
			return crumbs, s.Tag
		}
	}
	return nil, ""
}

// universalStrategies is the fallback cascade applied to any retailer.
// URL inference is appended only when the profile opts in.
func universalStrategies(profile retailer.Profile) []Strategy {
	strategies := []Strategy{
		jsonLDStrategy(),
		microdataStrategy(),
		domStrategy(),
		embeddedJSStrategy(),
		windowStateStrategy(),
		metaStrategy(),
		titleStrategy(),
	}
	if profile.URLHasCategoryPath {
		strategies = append(strategies, urlPathStrategy(nil))
	}
	return strategies
}

// NewUniversal builds the universal extractor for a retailer id.
func NewUniversal(id string) *Extractor {
	return &Extractor{
		id:         id,
		strategies: universalStrategies(retailer.Lookup(id)),
	}
}

// ParseDocument parses a fetched body into a goquery document.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
