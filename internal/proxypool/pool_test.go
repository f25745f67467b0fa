package proxypool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPool(t *testing.T, now *time.Time, configs ...ProxyConfig) *Pool {
	t.Helper()
	return New(configs, zap.NewNop(),
		WithClock(func() time.Time { return *now }),
		WithThresholds(3, 10*time.Minute),
	)
}

func TestAcquirePrefersBestSuccessRate(t *testing.T) {
	now := time.Now()
	p := testPool(t, &now,
		ProxyConfig{Server: "a:8080"},
		ProxyConfig{Server: "b:8080"},
	)

	// Warm proxy b with successes, fail proxy a once.
	lb := p.Acquire()
	require.NotNil(t, lb)
	for i := 0; i < 3; i++ {
		p.ReportSuccess(&Lease{index: 1})
	}
	p.ReportFailure(&Lease{index: 0}, "connect refused")

	l := p.Acquire()
	require.NotNil(t, l)
	assert.Equal(t, "b:8080", l.cfg.Server)
}

func TestCoolingAndReset(t *testing.T) {
	now := time.Now()
	p := testPool(t, &now, ProxyConfig{Server: "a:8080"})

	for i := 0; i < 3; i++ {
		p.ReportFailure(&Lease{index: 0}, "timeout")
	}
	assert.Nil(t, p.Acquire(), "proxy should be cooling")

	stats := p.StatsSnapshot()
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Cooling)

	// After the cooling window the failure counter resets.
	now = now.Add(11 * time.Minute)
	l := p.Acquire()
	require.NotNil(t, l)
	stats = p.StatsSnapshot()
	assert.Equal(t, 0, stats[0].Failures)
}

func TestEmptyPool(t *testing.T) {
	now := time.Now()
	p := testPool(t, &now)
	assert.Nil(t, p.Acquire())
}

func TestLeaseURL(t *testing.T) {
	l := &Lease{cfg: ProxyConfig{Server: "proxy.example:24000", Username: "u", Password: "p", Kind: "http"}}
	u := l.URL()
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "proxy.example:24000", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p", pw)
}

func TestFromBrightDataEnv(t *testing.T) {
	assert.Nil(t, FromBrightDataEnv("", "", "u", "p"))
	cfgs := FromBrightDataEnv("brd.superproxy.io", "22225", "user", "pass")
	require.Len(t, cfgs, 1)
	assert.Equal(t, "brd.superproxy.io:22225", cfgs[0].Server)
}
