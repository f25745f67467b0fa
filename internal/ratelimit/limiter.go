// Package ratelimit spaces outbound requests per retailer with jitter,
// an occasional human-style reading pause, and an extra cooling rule for
// the strict host. A global token bucket caps the whole process.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	jitterMin = 0.5
	jitterMax = 2.5

	readingPauseProbability = 0.08
	readingPauseMinSec      = 2.0
	readingPauseMaxSec      = 5.0

	strictWindow      = 10 * time.Minute
	strictMaxInWindow = 8
	strictPauseMinSec = 10.0
	strictPauseMaxSec = 20.0
)

// Limiter tracks per-retailer last-request times behind a mutex.
type Limiter struct {
	mu         sync.Mutex
	last       map[string]time.Time
	strictHits []time.Time
	strictHost string
	global     *rate.Limiter
	rng        *rand.Rand
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
}

// Config controls limiter construction.
type Config struct {
	// StrictHost gets the sliding-window cooling rule.
	StrictHost string
	// GlobalRPS caps requests across all hosts; <= 0 disables the cap.
	GlobalRPS float64
}

// New builds a Limiter.
func New(cfg Config, logger *zap.Logger) *Limiter {
	global := rate.NewLimiter(rate.Inf, 1)
	if cfg.GlobalRPS > 0 {
		global = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), 1)
	}
	return &Limiter{
		last:       make(map[string]time.Time),
		strictHost: cfg.StrictHost,
		global:     global,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		sleep:      sleepCtx,
		logger:     logger,
	}
}

// Wait blocks until the retailer's spacing, any reading pause, the strict
// cooling rule, and the global ceiling all allow another request.
func (l *Limiter) Wait(ctx context.Context, retailerID string, baseDelay time.Duration) error {
	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("global rate wait: %w", err)
	}

	delay := l.nextDelay(retailerID, baseDelay)
	if delay > 0 {
		if l.logger != nil && delay > time.Second {
			l.logger.Debug("rate limit wait",
				zap.String("retailer", retailerID),
				zap.Duration("delay", delay),
			)
		}
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last[retailerID] = l.now()
	l.mu.Unlock()
	return nil
}

// nextDelay computes how long the caller still has to wait.
func (l *Limiter) nextDelay(retailerID string, baseDelay time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	jitter := jitterMin + l.rng.Float64()*(jitterMax-jitterMin)
	spacing := time.Duration(float64(baseDelay) * jitter)

	var wait time.Duration
	if lastAt, ok := l.last[retailerID]; ok {
		ready := lastAt.Add(spacing)
		if d := ready.Sub(l.now()); d > 0 {
			wait = d
		}
	}

	if l.rng.Float64() < readingPauseProbability {
		wait += l.uniformSeconds(readingPauseMinSec, readingPauseMaxSec)
	}

	if retailerID == l.strictHost && l.strictHost != "" {
		wait += l.strictCooling()
	}
	return wait
}

// strictCooling enforces the sliding-window rule for the monitored host:
// after strictMaxInWindow requests inside strictWindow, force a long
// pause and reset the window. Caller holds the mutex.
func (l *Limiter) strictCooling() time.Duration {
	cutoff := l.now().Add(-strictWindow)
	kept := l.strictHits[:0]
	for _, t := range l.strictHits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.strictHits = kept

	l.strictHits = append(l.strictHits, l.now())
	if len(l.strictHits) < strictMaxInWindow {
		return 0
	}
	l.strictHits = l.strictHits[:0]
	return l.uniformSeconds(strictPauseMinSec, strictPauseMaxSec)
}

func (l *Limiter) uniformSeconds(min, max float64) time.Duration {
	return time.Duration((min + l.rng.Float64()*(max-min)) * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit sleep canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
