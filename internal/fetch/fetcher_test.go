package fetch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/proxypool"
	"github.com/basketdata/aisle-crawler/internal/ratelimit"
	"github.com/basketdata/aisle-crawler/internal/retailer"
	"github.com/basketdata/aisle-crawler/internal/session"
	"github.com/basketdata/aisle-crawler/internal/useragent"
)

// scriptedStrategy returns canned results in order.
type scriptedStrategy struct {
	name    string
	mu      sync.Mutex
	results []scripted
	calls   int
}

type scripted struct {
	result strategyResult
	err    error
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Fetch(_ context.Context, _ strategyRequest) (strategyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	r := s.results[idx]
	return r.result, r.err
}

func newTestFetcher(t *testing.T, strategies ...strategy) *Fetcher {
	t.Helper()
	agents := useragent.NewPool()
	f, err := New(
		Config{MaxAttempts: 1, InterStrategyDelay: time.Millisecond},
		ratelimit.New(ratelimit.Config{}, zap.NewNop()),
		session.NewPool(agents, 10, nil, zap.NewNop()),
		proxypool.New(nil, zap.NewNop()),
		agents,
		zap.NewNop(),
	)
	require.NoError(t, err)
	f.strategiesFor = func(retailer.Profile) []strategy { return strategies }
	return f
}

func bigBody(prefix string) []byte {
	return []byte(prefix + strings.Repeat("<p>milk two litres</p>", 60))
}

func TestFetchFirstStrategyWins(t *testing.T) {
	first := &scriptedStrategy{name: "http", results: []scripted{{result: strategyResult{Body: bigBody(""), StatusCode: 200}}}}
	second := &scriptedStrategy{name: "tls", results: []scripted{{result: strategyResult{Body: bigBody(""), StatusCode: 200}}}}
	f := newTestFetcher(t, first, second)

	res := f.Fetch(context.Background(), "https://tesco.example/p/1", "tesco")
	assert.Equal(t, pipeline.FetchOK, res.StatusHint)
	assert.Equal(t, "http", res.Method)
	assert.Equal(t, 0, second.calls, "cascade must stop at the first valid body")
}

func TestFetchCascadesPastErrors(t *testing.T) {
	first := &scriptedStrategy{name: "http", results: []scripted{{err: assert.AnError}}}
	second := &scriptedStrategy{name: "tls", results: []scripted{{result: strategyResult{Body: bigBody(""), StatusCode: 200}}}}
	f := newTestFetcher(t, first, second)

	res := f.Fetch(context.Background(), "https://tesco.example/p/2", "tesco")
	assert.Equal(t, pipeline.FetchOK, res.StatusHint)
	assert.Equal(t, "tls", res.Method)
}

func TestFetchBlockedBodyMarksHost(t *testing.T) {
	blocked := &scriptedStrategy{name: "http", results: []scripted{
		{result: strategyResult{Body: []byte("pardon our interruption" + strings.Repeat("x", 600)), StatusCode: 200}},
	}}
	f := newTestFetcher(t, blocked)

	res := f.Fetch(context.Background(), "https://asda.example/p/3", "asda")
	assert.Equal(t, pipeline.FetchBlocked, res.StatusHint)
	assert.Contains(t, f.BlockedHosts(), "asda")
}

func TestFetchBlockedStatusMarksHost(t *testing.T) {
	blocked := &scriptedStrategy{name: "http", results: []scripted{
		{result: strategyResult{Body: bigBody(""), StatusCode: 403}},
	}}
	f := newTestFetcher(t, blocked)

	res := f.Fetch(context.Background(), "https://ocado.example/p/4", "ocado")
	assert.Equal(t, pipeline.FetchBlocked, res.StatusHint)
	assert.Contains(t, f.BlockedHosts(), "ocado")
}

func TestFetchNegativeCacheAfterExhaustion(t *testing.T) {
	failing := &scriptedStrategy{name: "http", results: []scripted{{err: assert.AnError}}}
	f := newTestFetcher(t, failing)

	url := "https://tesco.example/p/5"
	res := f.Fetch(context.Background(), url, "tesco")
	assert.NotEqual(t, pipeline.FetchOK, res.StatusHint)
	callsAfterFirst := failing.calls

	// Second fetch must be served by the negative cache: no new strategy
	// calls, and the same negative answer.
	res2 := f.Fetch(context.Background(), url, "tesco")
	assert.Equal(t, pipeline.FetchError, res2.StatusHint)
	assert.Equal(t, MethodCache, res2.Method)
	assert.Equal(t, callsAfterFirst, failing.calls)
}

func TestFetchServesFromCache(t *testing.T) {
	ok := &scriptedStrategy{name: "http", results: []scripted{{result: strategyResult{Body: bigBody(""), StatusCode: 200}}}}
	f := newTestFetcher(t, ok)

	url := "https://tesco.example/p/6"
	first := f.Fetch(context.Background(), url, "tesco")
	require.Equal(t, pipeline.FetchOK, first.StatusHint)

	second := f.Fetch(context.Background(), url, "tesco")
	assert.Equal(t, pipeline.FetchOK, second.StatusHint)
	assert.Equal(t, MethodCache, second.Method)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 1, ok.calls)
}

func TestConcurrentFetchesStableNegativeCache(t *testing.T) {
	failing := &scriptedStrategy{name: "http", results: []scripted{{err: assert.AnError}}}
	f := newTestFetcher(t, failing)

	url := "https://tesco.example/p/7"
	var wg sync.WaitGroup
	results := make([]pipeline.FetchResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Fetch(context.Background(), url, "tesco")
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, the cache must settle negative.
	body, found := f.cache.Get(url)
	assert.True(t, found)
	assert.Nil(t, body)
	for _, r := range results {
		assert.NotEqual(t, pipeline.FetchOK, r.StatusHint)
	}
}

func TestDefaultStrategyOrder(t *testing.T) {
	f := newTestFetcher(t)
	f.strategiesFor = f.defaultStrategies

	plain := f.defaultStrategies(retailer.Lookup("tesco"))
	require.Len(t, plain, 2)
	assert.Equal(t, MethodHTTP, plain[0].Name())
	assert.Equal(t, MethodTLS, plain[1].Name())

	strict := f.defaultStrategies(retailer.Lookup("ocado"))
	require.Len(t, strict, 4)
	assert.Equal(t, MethodWarmup, strict[0].Name())
	assert.Equal(t, MethodBrowser, strict[3].Name())

	noBrowser := f.defaultStrategies(retailer.Lookup("aldi"))
	for _, s := range noBrowser {
		assert.NotEqual(t, MethodBrowser, s.Name(), "aldi skips the browser")
	}
}
