// Package session keeps persistent per-retailer HTTP sessions: cookie
// jars, seed cookies, curated default headers, and rotation after a
// fixed number of requests.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/retailer"
	"github.com/basketdata/aisle-crawler/internal/useragent"
)

// DefaultRefreshInterval is how many requests a session serves before
// it is rotated.
const DefaultRefreshInterval = 10

// Session is one persistent HTTP identity for a retailer.
type Session struct {
	Client    *http.Client
	UserAgent string
	headers   http.Header
	requests  int
}

// Headers returns a copy of the session's default headers.
func (s *Session) Headers() http.Header {
	return s.headers.Clone()
}

// ApplyHeaders sets the session's default headers on an outbound request.
func (s *Session) ApplyHeaders(req *http.Request) {
	for k, values := range s.headers {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("User-Agent", s.UserAgent)
}

// Pool owns one session per retailer and rotates them on a threshold.
type Pool struct {
	mu              sync.Mutex
	sessions        map[string]*Session
	refreshInterval int
	agents          *useragent.Pool
	transport       func() http.RoundTripper
	logger          *zap.Logger
}

// NewPool constructs a session pool. transport builds the base transport
// for new sessions; nil makes every session share http.DefaultTransport.
func NewPool(agents *useragent.Pool, refreshInterval int, transport func() http.RoundTripper, logger *zap.Logger) *Pool {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	if transport == nil {
		transport = func() http.RoundTripper { return http.DefaultTransport }
	}
	return &Pool{
		sessions:        make(map[string]*Session),
		refreshInterval: refreshInterval,
		agents:          agents,
		transport:       transport,
		logger:          logger,
	}
}

// Get returns the retailer's current session, creating or rotating as
// needed, and counts the upcoming request against it.
func (p *Pool) Get(retailerID string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[retailerID]
	if ok && s.requests < p.refreshInterval {
		s.requests++
		return s, nil
	}
	if ok && p.logger != nil {
		p.logger.Debug("rotating session",
			zap.String("retailer", retailerID),
			zap.Int("requests", s.requests),
		)
	}

	fresh, err := p.newSession(retailerID)
	if err != nil {
		return nil, err
	}
	fresh.requests = 1
	p.sessions[retailerID] = fresh
	return fresh, nil
}

// newSession builds a session with a fresh cookie jar, seed cookies, and
// retailer-aware default headers.
func (p *Pool) newSession(retailerID string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}

	profile := retailer.Lookup(retailerID)
	ua := p.agents.Pick()

	s := &Session{
		Client: &http.Client{
			Jar:       jar,
			Transport: p.transport(),
			Timeout:   profile.DefaultTimeout,
		},
		UserAgent: ua,
		headers:   defaultHeaders(profile, ua),
	}

	if profile.Homepage != "" {
		seedCookies(jar, profile.Homepage)
	}
	return s, nil
}

// defaultHeaders builds the curated header set for a retailer, with
// sec-ch-ua values synthesized from the chosen UA.
func defaultHeaders(profile retailer.Profile, ua string) http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-GB,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
	if profile.Homepage != "" {
		h.Set("Referer", profile.Homepage+"/")
		h.Set("Origin", profile.Homepage)
	}
	major := useragent.ChromeMajor(ua)
	h.Set("sec-ch-ua", fmt.Sprintf(`"Not/A)Brand";v="8", "Chromium";v="%s", "Google Chrome";v="%s"`, major, major))
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-platform", `"Windows"`)
	return h
}

// seedCookies plants benign first-visit cookies so the session does not
// arrive completely bare.
func seedCookies(jar http.CookieJar, homepage string) {
	u, err := url.Parse(homepage)
	if err != nil {
		return
	}
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session-id", Value: randomHex(16), Path: "/", Expires: time.Now().Add(24 * time.Hour)},
		{Name: "visited", Value: "1", Path: "/"},
	})
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(buf)
}
