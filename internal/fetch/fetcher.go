package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/metrics"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/proxypool"
	"github.com/basketdata/aisle-crawler/internal/ratelimit"
	"github.com/basketdata/aisle-crawler/internal/retailer"
	"github.com/basketdata/aisle-crawler/internal/session"
	"github.com/basketdata/aisle-crawler/internal/useragent"
)

// Config controls Phase 1 behavior.
type Config struct {
	MinBodyBytes       int
	MaxAttempts        int
	InterStrategyDelay time.Duration
	BrowserHeadful     bool
	CacheCapacity      int
}

// Fetcher runs the Phase 1 strategy cascade for one URL at a time and
// owns the shared per-host state: sessions, rate spacing, proxy stats,
// the response cache, and the set of hosts observed blocked.
type Fetcher struct {
	cfg      Config
	cache    *ResponseCache
	limiter  *ratelimit.Limiter
	sessions *session.Pool
	proxies  *proxypool.Pool
	agents   *useragent.Pool
	logger   *zap.Logger

	mu      sync.Mutex
	blocked map[string]struct{}

	// strategiesFor is replaceable in tests.
	strategiesFor func(profile retailer.Profile) []strategy
}

// New wires a Fetcher from its collaborators.
func New(
	cfg Config,
	limiter *ratelimit.Limiter,
	sessions *session.Pool,
	proxies *proxypool.Pool,
	agents *useragent.Pool,
	logger *zap.Logger,
) (*Fetcher, error) {
	if cfg.MinBodyBytes <= 0 {
		cfg.MinBodyBytes = MinBodyBytes
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.InterStrategyDelay <= 0 {
		cfg.InterStrategyDelay = 1500 * time.Millisecond
	}
	cache, err := NewResponseCache(cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("new response cache: %w", err)
	}

	f := &Fetcher{
		cfg:      cfg,
		cache:    cache,
		limiter:  limiter,
		sessions: sessions,
		proxies:  proxies,
		agents:   agents,
		logger:   logger,
		blocked:  make(map[string]struct{}),
	}
	f.strategiesFor = f.defaultStrategies
	return f, nil
}

// defaultStrategies builds the ordered cascade for a retailer:
// [plain HTTP, TLS-emulating], with the warm-up TLS strategy prepended
// for hard hosts and the headless browser appended when the profile
// calls for it.
func (f *Fetcher) defaultStrategies(profile retailer.Profile) []strategy {
	order := []strategy{
		newHTTPStrategy(f.agents, f.logger),
		newTLSStrategy(false),
	}
	if len(profile.WarmupPaths) > 0 && profile.NeedsBrowserFallback {
		order = append([]strategy{newTLSStrategy(true)}, order...)
	}
	if profile.NeedsBrowserFallback && !profile.SkipBrowser {
		order = append(order, newBrowserStrategy(f.cfg.BrowserHeadful, f.logger))
	}
	return order
}

// Fetch acquires one URL through the Phase 1 cascade.
func (f *Fetcher) Fetch(ctx context.Context, url, retailerID string) pipeline.FetchResult {
	start := time.Now()
	if body, found := f.cache.Get(url); found {
		if body == nil {
			return pipeline.FetchResult{StatusHint: pipeline.FetchError, Method: MethodCache, Elapsed: time.Since(start)}
		}
		return pipeline.FetchResult{
			Body:          body,
			StatusHint:    pipeline.FetchOK,
			Method:        MethodCache,
			BytesReceived: len(body),
			Elapsed:       time.Since(start),
		}
	}

	profile := retailer.Lookup(retailerID)
	if err := f.limiter.Wait(ctx, retailerID, profile.DefaultDelay); err != nil {
		return pipeline.FetchResult{StatusHint: pipeline.FetchError, Elapsed: time.Since(start)}
	}

	sess, err := f.sessions.Get(retailerID)
	if err != nil {
		f.logger.Error("session unavailable", zap.String("retailer", retailerID), zap.Error(err))
		return pipeline.FetchResult{StatusHint: pipeline.FetchError, Elapsed: time.Since(start)}
	}

	result := f.runCascade(ctx, url, profile, sess)
	result.Elapsed = time.Since(start)
	metrics.ObserveFetch(retailerID, result.Method, string(result.StatusHint), result.BytesReceived)

	if result.StatusHint == pipeline.FetchOK {
		f.cache.Put(url, result.Body)
	} else {
		f.cache.PutNegative(url)
	}
	return result
}

func (f *Fetcher) runCascade(ctx context.Context, url string, profile retailer.Profile, sess *session.Session) pipeline.FetchResult {
	strategies := f.strategiesFor(profile)
	sawBlocked := false
	lastMethod := ""

	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		for _, strat := range strategies {
			if ctx.Err() != nil {
				return pipeline.FetchResult{StatusHint: pipeline.FetchError, Method: lastMethod}
			}
			lastMethod = strat.Name()

			lease := f.proxies.Acquire()
			req := strategyRequest{
				URL:       url,
				Retailer:  profile,
				Session:   sess,
				UserAgent: sess.UserAgent,
			}
			if lease != nil {
				req.ProxyURL = lease.URL()
			}
			if strat.Name() == MethodBrowser {
				// chromedp drives its own network stack; keep the UA
				// chrome-like and skip the proxy lease
				req.ProxyURL = nil
				req.UserAgent = f.agents.PickChromeLike()
			}

			result, err := strat.Fetch(ctx, req)
			switch {
			case err != nil:
				f.proxies.ReportFailure(lease, err.Error())
				f.logger.Debug("strategy error",
					zap.String("url", url),
					zap.String("strategy", strat.Name()),
					zap.Error(err),
				)
			case blockedStatus(result.StatusCode) || blockedBody(result.Body):
				f.proxies.ReportFailure(lease, fmt.Sprintf("blocked status=%d", result.StatusCode))
				f.markBlocked(profile.ID)
				sawBlocked = true
				f.logger.Warn("host blocked",
					zap.String("retailer", profile.ID),
					zap.String("strategy", strat.Name()),
					zap.Int("status", result.StatusCode),
				)
			case validBody(result.Body, f.minBytesFor(strat, profile)):
				f.proxies.ReportSuccess(lease)
				return pipeline.FetchResult{
					Body:          result.Body,
					StatusHint:    pipeline.FetchOK,
					Method:        strat.Name(),
					BytesReceived: len(result.Body),
				}
			default:
				// thin or empty body, keep cascading
				f.proxies.ReportSuccess(lease)
			}
		}
		if err := sleepCtx(ctx, f.cfg.InterStrategyDelay); err != nil {
			break
		}
	}

	hint := pipeline.FetchEmpty
	if sawBlocked {
		hint = pipeline.FetchBlocked
	}
	return pipeline.FetchResult{StatusHint: hint, Method: lastMethod}
}

// minBytesFor raises the acceptance floor for browser captures on
// strict retailers so interstitial-only DOMs are rejected.
func (f *Fetcher) minBytesFor(strat strategy, profile retailer.Profile) int {
	if strat.Name() == MethodBrowser && profile.NeedsBrowserFallback {
		return minBrowserBodyBytes
	}
	return f.cfg.MinBodyBytes
}

func (f *Fetcher) markBlocked(retailerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[retailerID] = struct{}{}
}

// BlockedHosts returns the retailers observed blocked so far this run,
// sorted for stable diagnostics.
func (f *Fetcher) BlockedHosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blocked))
	for id := range f.blocked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ProxyStats exposes the proxy pool snapshot for the run summary.
func (f *Fetcher) ProxyStats() []proxypool.Stats {
	return f.proxies.StatsSnapshot()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch sleep canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
