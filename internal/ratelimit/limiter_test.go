package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSleeper records requested sleeps instead of blocking.
type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}

func testLimiter(strict string) (*Limiter, *fakeSleeper, *time.Time) {
	l := New(Config{StrictHost: strict}, zap.NewNop())
	fs := &fakeSleeper{}
	l.sleep = fs.sleep
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, fs, &now
}

func TestFirstRequestDoesNotWaitOnSpacing(t *testing.T) {
	l, fs, _ := testLimiter("")
	require.NoError(t, l.Wait(context.Background(), "tesco", 4*time.Second))
	// Only a probabilistic reading pause can appear; spacing must not.
	for _, d := range fs.slept {
		assert.Less(t, d, 6*time.Second)
	}
}

func TestSecondRequestWaits(t *testing.T) {
	l, fs, _ := testLimiter("")
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "tesco", 4*time.Second))
	fs.slept = nil
	require.NoError(t, l.Wait(ctx, "tesco", 4*time.Second))
	require.NotEmpty(t, fs.slept, "second request should be spaced")
	// jitter is in [0.5, 2.5], so the wait is at least 2s minus epsilon
	// and at most 10s plus a possible reading pause.
	assert.GreaterOrEqual(t, fs.slept[0], 1900*time.Millisecond)
	assert.LessOrEqual(t, fs.slept[0], 16*time.Second)
}

func TestDistinctHostsDoNotShareSpacing(t *testing.T) {
	l, fs, _ := testLimiter("")
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "tesco", 4*time.Second))
	fs.slept = nil
	require.NoError(t, l.Wait(ctx, "asda", 4*time.Second))
	for _, d := range fs.slept {
		// only a reading pause could have fired
		assert.LessOrEqual(t, d, 6*time.Second)
	}
}

func TestStrictHostWindowForcesLongPause(t *testing.T) {
	l, fs, _ := testLimiter("ocado")
	ctx := context.Background()
	var long bool
	for i := 0; i < strictMaxInWindow+1; i++ {
		fs.slept = nil
		require.NoError(t, l.Wait(ctx, "ocado", 0))
		for _, d := range fs.slept {
			if d >= 10*time.Second {
				long = true
			}
		}
	}
	assert.True(t, long, "expected a forced cooling pause inside the window")
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := New(Config{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Prime a last-request time so a sleep is required.
	l.last["tesco"] = time.Now()
	err := l.Wait(ctx, "tesco", 10*time.Second)
	assert.Error(t, err)
}
