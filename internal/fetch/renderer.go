package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/metrics"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// ErrQuotaExhausted is returned once the renderer's daily request quota
// is spent; Phase 2 becomes a no-op for the rest of the run.
var ErrQuotaExhausted = errors.New("external renderer quota exhausted")

// RendererConfig configures the paid rendering API client.
type RendererConfig struct {
	Endpoint   string
	APIKey     string
	DailyQuota int
	WaitMillis int
	Timeout    time.Duration
}

// ExternalRenderer calls a paid rendering HTTP API (Phase 2). The
// provider contract: GET with url, js_render, premium_proxy, and wait
// parameters, keyed by API credential.
type ExternalRenderer struct {
	cfg    RendererConfig
	client *http.Client
	logger *zap.Logger

	mu        sync.Mutex
	used      int
	exhausted bool
}

// NewExternalRenderer builds the Phase 2 client. An empty API key
// produces a renderer that is exhausted from the start.
func NewExternalRenderer(cfg RendererConfig, logger *zap.Logger) *ExternalRenderer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.zenrows.com/v1/"
	}
	if cfg.DailyQuota <= 0 {
		cfg.DailyQuota = 200
	}
	if cfg.WaitMillis <= 0 {
		cfg.WaitMillis = 3000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &ExternalRenderer{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		exhausted: cfg.APIKey == "",
	}
}

// Exhausted reports whether the quota is spent.
func (r *ExternalRenderer) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}

// Used returns how many renderer requests this run consumed.
func (r *ExternalRenderer) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Render fetches url through the rendering API and validates the body
// with the same rules as Phase 1.
func (r *ExternalRenderer) Render(ctx context.Context, rawURL, retailerID string) pipeline.FetchResult {
	start := time.Now()
	result := r.render(ctx, rawURL, retailerID)
	result.Elapsed = time.Since(start)
	result.Method = MethodRenderer
	metrics.ObserveRender(retailerID, string(result.StatusHint))
	return result
}

func (r *ExternalRenderer) render(ctx context.Context, rawURL, retailerID string) pipeline.FetchResult {
	profile := retailer.Lookup(retailerID)
	if profile.SkipExternalRenderer {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}
	if err := r.consumeQuota(); err != nil {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}

	endpoint, err := url.Parse(r.cfg.Endpoint)
	if err != nil {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}
	q := endpoint.Query()
	q.Set("apikey", r.cfg.APIKey)
	q.Set("url", rawURL)
	q.Set("js_render", "true")
	q.Set("premium_proxy", "true")
	q.Set("wait", strconv.Itoa(r.cfg.WaitMillis))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("renderer request failed", zap.String("url", rawURL), zap.Error(err))
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		r.markExhausted(resp.StatusCode)
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	case resp.StatusCode != http.StatusOK:
		r.logger.Warn("renderer non-200",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return pipeline.FetchResult{StatusHint: pipeline.FetchError}
	case blockedBody(body):
		return pipeline.FetchResult{StatusHint: pipeline.FetchBlocked, BytesReceived: len(body)}
	case len(body) < MinBodyBytes:
		return pipeline.FetchResult{StatusHint: pipeline.FetchEmpty, BytesReceived: len(body)}
	}

	return pipeline.FetchResult{
		Body:          body,
		StatusHint:    pipeline.FetchOK,
		BytesReceived: len(body),
	}
}

// consumeQuota reserves one request against the daily quota.
func (r *ExternalRenderer) consumeQuota() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhausted {
		return ErrQuotaExhausted
	}
	if r.used >= r.cfg.DailyQuota {
		r.exhausted = true
		return ErrQuotaExhausted
	}
	r.used++
	return nil
}

func (r *ExternalRenderer) markExhausted(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted = true
	r.logger.Warn("renderer quota exhausted", zap.Int("status", status))
}

var _ pipeline.Renderer = (*ExternalRenderer)(nil)
