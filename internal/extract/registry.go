package extract

import (
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Registry maps retailer ids onto their extractors, with the universal
// extractor as the fallback for unknown retailers.
type Registry struct {
	mu        sync.Mutex
	byID      map[string]*Extractor
	universal map[string]*Extractor
}

// NewRegistry builds the registry with the built-in retailer table.
func NewRegistry() *Registry {
	return &Registry{
		byID:      buildRegistry(),
		universal: make(map[string]*Extractor),
	}
}

// ExtractFor runs the retailer's cascade (or the universal fallback)
// over a parsed page.
func (r *Registry) ExtractFor(retailerID string, doc *goquery.Document, body []byte, rawURL string) ([]string, string) {
	return r.extractor(retailerID).Extract(doc, body, rawURL)
}

func (r *Registry) extractor(retailerID string) *Extractor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[retailerID]; ok {
		return e
	}
	if e, ok := r.universal[retailerID]; ok {
		return e
	}
	e := NewUniversal(retailerID)
	r.universal[retailerID] = e
	return e
}
