// Package useragent provides a curated pool of realistic browser
// User-Agent strings for outbound requests.
package useragent

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

var desktop = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
}

var mobile = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36",
}

// Pool hands out User-Agent strings uniformly at random. It keeps no
// per-host state.
type Pool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPool creates a Pool with its own RNG.
func NewPool() *Pool {
	return &Pool{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick returns a random desktop or mobile UA.
func (p *Pool) Pick() string {
	all := make([]string, 0, len(desktop)+len(mobile))
	all = append(all, desktop...)
	all = append(all, mobile...)
	p.mu.Lock()
	defer p.mu.Unlock()
	return all[p.rng.Intn(len(all))]
}

// PickChromeLike returns a Chrome-family UA for browser-adjacent flows
// (sec-ch-ua synthesis, chromedp overrides).
func (p *Pool) PickChromeLike() string {
	chrome := make([]string, 0, len(desktop))
	for _, ua := range desktop {
		if strings.Contains(ua, "Chrome/") {
			chrome = append(chrome, ua)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return chrome[p.rng.Intn(len(chrome))]
}

// ChromeMajor extracts the major version from a Chrome UA, defaulting to
// a recent release when the UA is not Chrome-family.
func ChromeMajor(ua string) string {
	const marker = "Chrome/"
	i := strings.Index(ua, marker)
	if i < 0 {
		return "126"
	}
	rest := ua[i+len(marker):]
	if j := strings.IndexByte(rest, '.'); j > 0 {
		return rest[:j]
	}
	return "126"
}
