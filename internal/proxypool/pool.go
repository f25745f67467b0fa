// Package proxypool selects upstream proxies by empirical success rate
// and cools proxies that fail repeatedly.
package proxypool

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProxyConfig describes one upstream proxy.
type ProxyConfig struct {
	Server   string // host:port
	Username string
	Password string
	Kind     string // "http" or "socks5"
}

// Lease is a handle to a selected proxy; report the result back through
// the pool when done.
type Lease struct {
	cfg   ProxyConfig
	index int
}

// URL renders the lease as a proxy URL usable by an http.Transport.
func (l *Lease) URL() *url.URL {
	scheme := l.cfg.Kind
	if scheme == "" {
		scheme = "http"
	}
	u := &url.URL{Scheme: scheme, Host: l.cfg.Server}
	if l.cfg.Username != "" {
		u.User = url.UserPassword(l.cfg.Username, l.cfg.Password)
	}
	return u
}

type proxyState struct {
	cfg           ProxyConfig
	successes     int
	failures      int
	lastFailureAt time.Time
}

// Stats is a read-only snapshot of one proxy's counters.
type Stats struct {
	Server        string
	Successes     int
	Failures      int
	LastFailureAt time.Time
	Cooling       bool
}

// Pool tracks proxy health. All operations are mutex-guarded.
type Pool struct {
	mu            sync.Mutex
	proxies       []*proxyState
	maxFailures   int
	coolingWindow time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// Option tweaks Pool construction.
type Option func(*Pool)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// WithThresholds overrides the cooling rule.
func WithThresholds(maxFailures int, window time.Duration) Option {
	return func(p *Pool) {
		p.maxFailures = maxFailures
		p.coolingWindow = window
	}
}

// New builds a Pool from proxy configs.
func New(configs []ProxyConfig, logger *zap.Logger, opts ...Option) *Pool {
	p := &Pool{
		maxFailures:   5,
		coolingWindow: 10 * time.Minute,
		now:           time.Now,
		logger:        logger,
	}
	for _, cfg := range configs {
		if cfg.Server == "" {
			continue
		}
		p.proxies = append(p.proxies, &proxyState{cfg: cfg})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns the non-cooling proxy with the best success rate, ties
// broken by fewest failures. Returns nil when the pool is empty or every
// proxy is cooling; the caller then goes direct.
func (p *Pool) Acquire() *Lease {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	bestRate := -1.0
	for i, st := range p.proxies {
		if p.cooling(st) {
			continue
		}
		rate := successRate(st)
		switch {
		case rate > bestRate:
			best, bestRate = i, rate
		case rate == bestRate && best >= 0 && st.failures < p.proxies[best].failures:
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return &Lease{cfg: p.proxies[best].cfg, index: best}
}

// ReportSuccess records a successful request through the leased proxy.
func (p *Pool) ReportSuccess(l *Lease) {
	if l == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if l.index < len(p.proxies) {
		p.proxies[l.index].successes++
	}
}

// ReportFailure records a failed request through the leased proxy.
func (p *Pool) ReportFailure(l *Lease, reason string) {
	if l == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if l.index >= len(p.proxies) {
		return
	}
	st := p.proxies[l.index]
	st.failures++
	st.lastFailureAt = p.now()
	if st.failures >= p.maxFailures && p.logger != nil {
		p.logger.Warn("proxy entering cooling",
			zap.String("server", st.cfg.Server),
			zap.Int("failures", st.failures),
			zap.String("reason", reason),
		)
	}
}

// StatsSnapshot returns per-proxy counters for diagnostics.
func (p *Pool) StatsSnapshot() []Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stats, 0, len(p.proxies))
	for _, st := range p.proxies {
		out = append(out, Stats{
			Server:        st.cfg.Server,
			Successes:     st.successes,
			Failures:      st.failures,
			LastFailureAt: st.lastFailureAt,
			Cooling:       p.cooling(st),
		})
	}
	return out
}

// cooling reports whether the proxy is inside its cooling window; once
// the window passes the failure counter resets. Caller holds the mutex.
func (p *Pool) cooling(st *proxyState) bool {
	if st.failures < p.maxFailures {
		return false
	}
	if p.now().Sub(st.lastFailureAt) >= p.coolingWindow {
		st.failures = 0
		return false
	}
	return true
}

func successRate(st *proxyState) float64 {
	total := st.successes + st.failures
	if total == 0 {
		return 0.5
	}
	return float64(st.successes) / float64(total)
}

// FromBrightDataEnv builds the single Bright Data proxy config from
// credential parts, or nil when unset.
func FromBrightDataEnv(host, port, user, pass string) []ProxyConfig {
	if host == "" || port == "" {
		return nil
	}
	return []ProxyConfig{{
		Server:   fmt.Sprintf("%s:%s", host, port),
		Username: user,
		Password: pass,
		Kind:     "http",
	}}
}
