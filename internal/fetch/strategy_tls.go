package fetch

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// tlsStrategy emulates a real Chrome TLS ClientHello via uTLS so hosts
// fingerprinting the handshake see a browser, not the Go runtime. The
// negotiated ALPN protocol decides whether the exchange runs over
// HTTP/2 or HTTP/1.1.
type tlsStrategy struct {
	warmup bool
}

func newTLSStrategy(warmup bool) *tlsStrategy {
	return &tlsStrategy{warmup: warmup}
}

func (s *tlsStrategy) Name() string {
	if s.warmup {
		return MethodWarmup
	}
	return MethodTLS
}

func (s *tlsStrategy) Fetch(ctx context.Context, req strategyRequest) (strategyResult, error) {
	if s.warmup {
		// visit homepage then section first so the product request does
		// not arrive cold; warm-up failures are not fatal
		for _, path := range req.Retailer.WarmupPaths {
			warmURL := req.Retailer.Homepage + path
			if _, err := s.get(ctx, req, warmURL); err != nil {
				break
			}
			if err := sleepCtx(ctx, 400*time.Millisecond); err != nil {
				return strategyResult{}, err
			}
		}
	}
	return s.get(ctx, req, req.URL)
}

func (s *tlsStrategy) get(ctx context.Context, req strategyRequest, rawURL string) (strategyResult, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return strategyResult{}, fmt.Errorf("parse url: %w", err)
	}
	if target.Scheme != "https" {
		return strategyResult{}, fmt.Errorf("tls strategy requires https, got %q", target.Scheme)
	}

	timeout := req.Retailer.DefaultTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialThrough(dialCtx, req.ProxyURL, hostPort(target))
	if err != nil {
		return strategyResult{}, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	uconn := utls.UClient(conn, &utls.Config{ServerName: target.Hostname()}, utls.HelloChrome_Auto)
	if err := uconn.HandshakeContext(dialCtx); err != nil {
		return strategyResult{}, fmt.Errorf("utls handshake: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(dialCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return strategyResult{}, fmt.Errorf("build request: %w", err)
	}
	applyIdentity(httpReq, req)

	switch uconn.ConnectionState().NegotiatedProtocol {
	case "h2":
		return roundTripH2(uconn, httpReq)
	default:
		return roundTripH1(uconn, httpReq)
	}
}

// applyIdentity copies the session's curated headers, cookies, and UA
// onto the handshake request.
func applyIdentity(httpReq *http.Request, req strategyRequest) {
	if req.Session != nil {
		req.Session.ApplyHeaders(httpReq)
		if jar := req.Session.Client.Jar; jar != nil {
			for _, c := range jar.Cookies(httpReq.URL) {
				httpReq.AddCookie(c)
			}
		}
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	// gzip only: the hand-rolled H1 path does not decode brotli
	httpReq.Header.Set("Accept-Encoding", "gzip")
}

func roundTripH2(conn net.Conn, req *http.Request) (strategyResult, error) {
	tr := &http2.Transport{}
	clientConn, err := tr.NewClientConn(conn)
	if err != nil {
		return strategyResult{}, fmt.Errorf("h2 client conn: %w", err)
	}
	resp, err := clientConn.RoundTrip(req)
	if err != nil {
		return strategyResult{}, fmt.Errorf("h2 round trip: %w", err)
	}
	return readResponse(resp)
}

func roundTripH1(conn net.Conn, req *http.Request) (strategyResult, error) {
	if err := req.Write(conn); err != nil {
		return strategyResult{}, fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return strategyResult{}, fmt.Errorf("read response: %w", err)
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) (strategyResult, error) {
	defer resp.Body.Close() //nolint:errcheck
	reader := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return strategyResult{}, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close() //nolint:errcheck
		reader = gz
	}
	body, err := io.ReadAll(io.LimitReader(reader, 8<<20))
	if err != nil {
		return strategyResult{}, fmt.Errorf("read body: %w", err)
	}
	return strategyResult{Body: body, StatusCode: resp.StatusCode}, nil
}

// dialThrough opens a TCP connection to addr, tunneling through an HTTP
// proxy with CONNECT when one is leased.
func dialThrough(ctx context.Context, proxyURL *url.URL, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if proxyURL == nil {
		return dialer.DialContext(ctx, "tcp", addr)
	}

	conn, err := dialer.DialContext(ctx, "tcp", proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("dial proxy: %w", err)
	}

	connect := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", addr, addr)
	if proxyURL.User != nil {
		if pass, ok := proxyURL.User.Password(); ok {
			connect += "Proxy-Authorization: Basic " + basicAuth(proxyURL.User.Username(), pass) + "\r\n"
		}
	}
	connect += "\r\n"

	if _, err := conn.Write([]byte(connect)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("write CONNECT: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read CONNECT response: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}
	return conn, nil
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), "443")
}
