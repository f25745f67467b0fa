package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// stealthScript patches the obvious headless giveaways before any page
// script runs: navigator.webdriver, empty plugin lists, languages, and
// window.chrome.
const stealthScript = `
(function() {
    'use strict';
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;
    Object.defineProperty(navigator, 'languages', { get: () => Object.freeze(['en-GB', 'en']), configurable: true });
    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', { value: { runtime: {} }, writable: true, configurable: false });
    }
    if (navigator.plugins.length === 0) {
        Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3], configurable: true });
    }
    if (navigator.hardwareConcurrency === 0) {
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 4, configurable: true });
    }
})();
`

// browserStrategy drives a stealth headless Chrome. The allocator and
// browser live only for the single invocation so a crash in one fetch
// cannot poison the next.
type browserStrategy struct {
	headful bool
	logger  *zap.Logger
	rng     *rand.Rand
	// settleMin and settleMax bound the post-ready settle sleep.
	settleMin time.Duration
	settleMax time.Duration
}

func newBrowserStrategy(headful bool, logger *zap.Logger) *browserStrategy {
	return &browserStrategy{
		headful:   headful,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		settleMin: 3 * time.Second,
		settleMax: 12 * time.Second,
	}
}

func (s *browserStrategy) Name() string { return MethodBrowser }

func (s *browserStrategy) Fetch(ctx context.Context, req strategyRequest) (strategyResult, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !s.headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("lang", "en-GB,en"),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	timeout := 45 * time.Second
	if req.Retailer.DefaultTimeout > timeout {
		timeout = req.Retailer.DefaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	actions := []chromedp.Action{
		s.setupAction(req.UserAgent),
	}
	// strict hosts get the homepage, section, product warm-up walk
	for _, path := range req.Retailer.WarmupPaths {
		actions = append(actions,
			chromedp.Navigate(req.Retailer.Homepage+path),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(s.uniform(800*time.Millisecond, 2*time.Second)),
		)
	}

	var html string
	actions = append(actions,
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		waitDocumentComplete(),
		chromedp.Sleep(s.uniform(s.settleMin, s.settleMax)),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return strategyResult{}, fmt.Errorf("chromedp run: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("browser capture complete",
			zap.String("url", req.URL),
			zap.Int("bytes", len(html)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return strategyResult{Body: []byte(html), StatusCode: 200}, nil
}

// setupAction injects the stealth script and overrides the UA before
// the first navigation.
func (s *browserStrategy) setupAction(ua string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("inject stealth script: %w", err)
		}
		if ua != "" {
			if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// waitDocumentComplete polls document.readyState until "complete".
func waitDocumentComplete() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var state string
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
				return fmt.Errorf("read document state: %w", err)
			}
			if state == "complete" {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}
	})
}

func (s *browserStrategy) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
