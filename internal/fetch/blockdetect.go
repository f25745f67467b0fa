// Package fetch implements the two-phase page acquisition engine: a
// cascade of local strategies with per-host session, proxy, and rate
// state, plus an external rendering API for hosts observed blocked.
package fetch

import (
	"bytes"
	"net/http"
)

// blockIndicators are fragments that mark a bot-mitigation response.
// Only the head of the body is scanned.
var blockIndicators = [][]byte{
	[]byte("access denied"),
	[]byte("cloudflare challenge"),
	[]byte("captcha"),
	[]byte("pardon the interruption"),
	[]byte("pardon our interruption"),
	[]byte("request unsuccessful"),
	[]byte("are you a robot"),
	[]byte("unusual traffic"),
	[]byte("verify you are human"),
	[]byte("attention required"),
}

const (
	// blockScanBytes bounds how much of the body is scanned for
	// indicators.
	blockScanBytes = 2048
	// MinBodyBytes is the smallest body accepted as real content.
	MinBodyBytes = 500
	// minBrowserBodyBytes guards strict retailers against
	// interstitial-only browser captures.
	minBrowserBodyBytes = 30 * 1024
)

// blockedStatus reports whether the HTTP status alone marks the host
// blocked.
func blockedStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// blockedBody scans the head of the body for block indicators.
func blockedBody(body []byte) bool {
	head := body
	if len(head) > blockScanBytes {
		head = head[:blockScanBytes]
	}
	head = bytes.ToLower(head)
	for _, indicator := range blockIndicators {
		if bytes.Contains(head, indicator) {
			return true
		}
	}
	return false
}

// validBody applies the content validity rule: enough bytes and no
// block indicator in the head.
func validBody(body []byte, minBytes int) bool {
	if minBytes <= 0 {
		minBytes = MinBodyBytes
	}
	return len(body) >= minBytes && !blockedBody(body)
}
