package fetch

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry is either a fetched body or a negative marker for a URL
// that was unreachable this run.
type cacheEntry struct {
	body     []byte
	negative bool
}

// ResponseCache memoizes URL to HTML for the lifetime of the process.
// Negative entries are stable: once a URL is marked unreachable it stays
// unreachable until evicted by capacity pressure.
type ResponseCache struct {
	inner *lru.Cache[string, cacheEntry]
}

// NewResponseCache builds a cache bounded at capacity entries.
func NewResponseCache(capacity int) (*ResponseCache, error) {
	if capacity <= 0 {
		capacity = 4096
	}
	inner, err := lru.New[string, cacheEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{inner: inner}, nil
}

// Get returns (body, found). A found negative entry yields (nil, true).
func (c *ResponseCache) Get(url string) ([]byte, bool) {
	entry, ok := c.inner.Get(url)
	if !ok {
		return nil, false
	}
	if entry.negative {
		return nil, true
	}
	return entry.body, true
}

// Put stores a fetched body.
func (c *ResponseCache) Put(url string, body []byte) {
	c.inner.Add(url, cacheEntry{body: body})
}

// PutNegative marks the URL unreachable for the rest of the run. A
// positive entry is never downgraded.
func (c *ResponseCache) PutNegative(url string) {
	if entry, ok := c.inner.Get(url); ok && !entry.negative {
		return
	}
	c.inner.Add(url, cacheEntry{negative: true})
}

// Len reports the number of cached URLs.
func (c *ResponseCache) Len() int {
	return c.inner.Len()
}
