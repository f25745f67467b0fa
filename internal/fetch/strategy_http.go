package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/useragent"
)

// httpStrategy performs a plain HTTP GET through a per-fetch Colly
// collector wired to the retailer's session jar and the leased proxy.
// Connection errors get up to three timeout-backoff retries with UA
// rotation; the second retry drops the proxy if one was in play.
type httpStrategy struct {
	agents *useragent.Pool
	logger *zap.Logger
}

func newHTTPStrategy(agents *useragent.Pool, logger *zap.Logger) *httpStrategy {
	return &httpStrategy{agents: agents, logger: logger}
}

func (s *httpStrategy) Name() string { return MethodHTTP }

func (s *httpStrategy) Fetch(ctx context.Context, req strategyRequest) (strategyResult, error) {
	const microRetries = 3

	proxyURL := req.ProxyURL
	ua := req.UserAgent
	var lastErr error
	for attempt := 0; attempt <= microRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 750 * time.Millisecond
			if err := sleepCtx(ctx, backoff); err != nil {
				return strategyResult{}, err
			}
			ua = s.agents.Pick()
			if attempt >= 2 {
				// the proxy is the usual suspect for repeated connect
				// failures
				proxyURL = nil
			}
		}

		result, err := s.visit(ctx, req, proxyURL, ua)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryableNetErr(err) {
			break
		}
		if s.logger != nil {
			s.logger.Debug("http strategy retry",
				zap.String("url", req.URL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	return strategyResult{}, fmt.Errorf("http strategy: %w", lastErr)
}

func (s *httpStrategy) visit(ctx context.Context, req strategyRequest, proxyURL *url.URL, ua string) (strategyResult, error) {
	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = ua
	c.IgnoreRobotsTxt = true

	timeout := req.Retailer.DefaultTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c.SetRequestTimeout(timeout)
	c.WithTransport(newTransport(proxyURL))
	if req.Session != nil && req.Session.Client.Jar != nil {
		c.SetCookieJar(req.Session.Client.Jar)
	}

	var (
		result   strategyResult
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if req.Session == nil {
			return
		}
		for key, values := range req.Session.Headers() {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	c.OnResponse(func(r *colly.Response) {
		result = strategyResult{
			Body:       append([]byte(nil), r.Body...),
			StatusCode: r.StatusCode,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			// keep the status so block classification sees 403/429/503
			result = strategyResult{
				Body:       append([]byte(nil), r.Body...),
				StatusCode: r.StatusCode,
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(req.URL)
	}()
	select {
	case <-ctx.Done():
		return strategyResult{}, fmt.Errorf("http fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return strategyResult{}, fetchErr
		}
		if result.StatusCode != 0 {
			return result, nil
		}
		if err != nil {
			return strategyResult{}, err
		}
		return result, nil
	}
}

func retryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	// colly wraps plain connect errors; anything else is worth one more
	// pass with a fresh identity
	return true
}

// newTransport builds the pooled transport used by the HTTP strategy.
func newTransport(proxyURL *url.URL) *http.Transport {
	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL != nil {
		t.Proxy = http.ProxyURL(proxyURL)
	}
	return t
}
