package fetch

import (
	"context"
	"net/url"

	"github.com/basketdata/aisle-crawler/internal/retailer"
	"github.com/basketdata/aisle-crawler/internal/session"
)

// Strategy method tags recorded in FetchResult.Method.
const (
	MethodHTTP     = "http"
	MethodTLS      = "tls"
	MethodWarmup   = "tls_warmup"
	MethodBrowser  = "browser"
	MethodRenderer = "external_renderer"
	MethodCache    = "cache"
)

// strategyRequest carries everything one acquisition attempt needs.
type strategyRequest struct {
	URL       string
	Retailer  retailer.Profile
	Session   *session.Session
	ProxyURL  *url.URL
	UserAgent string
}

// strategyResult is the raw product of one attempt, before validity and
// block classification.
type strategyResult struct {
	Body       []byte
	StatusCode int
}

// strategy is one way of acquiring a page body.
type strategy interface {
	Name() string
	Fetch(ctx context.Context, req strategyRequest) (strategyResult, error)
}
