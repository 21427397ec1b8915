package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
	"golang.org/x/time/rate"
)

const (
	keyTimestamps = "rate_limiter:timestamps"
	keyBarrier    = "rate_limiter:retry_after_until"
)

// Limiter is the shared gate in front of every remote metadata call,
// grounded on original_source/routes/utils/redis_rate_limiter.py's dual
// sliding-window algorithm, reimplemented over a taskstore.Store instead
// of a raw Redis client (see internal/taskstore/doc.go). One Limiter is
// shared by every worker goroutine and every catalogue provider call.
type Limiter struct {
	store taskstore.Store
	log   *log.Logger

	burstLimiter    *rate.Limiter
	sustainedMax    int
	sustainedWindow time.Duration
	retryAttempts   int
	baseDelay       time.Duration
}

// New constructs a Limiter from the scheduler's RateLimit configuration
// and purges any stale keys left by a previous process, per spec.md §4.3's
// "startup" clause. The per-second burst cap (§4.3 step 3) is enforced by
// a golang.org/x/time/rate token bucket local to this process; the
// sustained window is tracked in store so it survives across the
// process's worker goroutines and, with a real coordination backend,
// across processes too.
func New(ctx context.Context, store taskstore.Store, cfg shared.RateLimitConfig, logger *log.Logger) *Limiter {
	burst := cfg.BurstPerSecond
	if burst <= 0 {
		burst = 1
	}

	l := &Limiter{
		store:           store,
		log:             logger,
		burstLimiter:    rate.NewLimiter(rate.Limit(burst), burst),
		sustainedMax:    cfg.SustainedMax,
		sustainedWindow: time.Duration(cfg.SustainedWindowS) * time.Second,
		retryAttempts:   cfg.RetryAttempts,
		baseDelay:       time.Duration(cfg.BaseDelaySeconds * float64(time.Second)),
	}
	if l.retryAttempts <= 0 {
		l.retryAttempts = 3
	}
	if l.sustainedWindow <= 0 {
		l.sustainedWindow = 30 * time.Second
	}
	_ = store.Delete(ctx, keyTimestamps)
	_ = store.Delete(ctx, keyBarrier)
	return l
}

// Wait blocks until a permit is available: first on any Retry-After
// barrier, then on the per-second burst token bucket, then on the
// sustained sliding window if it is currently full, per the five-step
// algorithm in spec.md §4.3. It records the granted permit's timestamp
// in the sustained window before returning.
func (l *Limiter) Wait(ctx context.Context) error {
	for attempt := 0; attempt < l.retryAttempts; attempt++ {
		now := time.Now()

		if barrier, ok := l.barrier(ctx); ok && now.Before(barrier) {
			if err := sleepUntil(ctx, barrier); err != nil {
				return err
			}
			continue
		}

		if err := l.burstLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: burst wait: %w", err)
		}

		now = time.Now()
		nowSecs := secondsSinceEpoch(now)
		windowStart := nowSecs - l.sustainedWindow.Seconds()
		_ = l.store.ZRemRangeByScore(ctx, keyTimestamps, 0, windowStart)

		sustainedCount, err := l.store.ZCount(ctx, keyTimestamps, windowStart, nowSecs)
		if err != nil {
			return fmt.Errorf("rate limiter: count sustained window: %w", err)
		}
		if sustainedCount >= l.sustainedMax {
			oldest, ok := l.store.ZMinScore(ctx, keyTimestamps)
			if ok {
				wakeAt := epochToTime(oldest).Add(l.sustainedWindow)
				l.log.Debug("rate limiter: sustained window full, sleeping", "until", wakeAt)
				if err := sleepUntil(ctx, wakeAt); err != nil {
					return err
				}
			}
			continue
		}

		member := taskstore.ZMember{
			Member: strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatInt(rand.Int63(), 10),
			Score:  nowSecs,
		}
		if err := l.store.ZAdd(ctx, keyTimestamps, member); err != nil {
			return fmt.Errorf("rate limiter: record permit: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: exceeded %d attempts", shared.ErrRateLimited, l.retryAttempts)
}

// ObserveRateLimited is called by a catalogue provider after the guarded
// call raised a rate-limit error. retryAfter is the parsed Retry-After
// header value, or zero if absent (the exponential-backoff-with-jitter
// fallback in spec.md §4.3's "429 handling" clause then applies).
// Clearing the shared timestamp set reflects every worker having
// effectively paused, per spec.md.
func (l *Limiter) ObserveRateLimited(ctx context.Context, retryAfter time.Duration, attempt int) {
	now := time.Now()
	var until time.Time

	if retryAfter > 0 {
		until = now.Add(retryAfter)
		l.log.Warn("rate limited, respecting Retry-After", "seconds", retryAfter.Seconds())
	} else {
		backoff := l.baseDelay * time.Duration(1<<uint(attempt))
		jitter := time.Duration(rand.Int63n(int64(time.Second)))
		until = now.Add(backoff + jitter)
		l.log.Warn("rate limited, backing off with jitter", "delay", backoff+jitter)
	}

	if existing, ok := l.barrier(ctx); ok && existing.After(until) {
		until = existing
	}
	_ = l.store.Set(ctx, keyBarrier, []byte(strconv.FormatInt(until.UnixNano(), 10)), l.sustainedWindow+60*time.Second)
	_ = l.store.Delete(ctx, keyTimestamps)
}

func (l *Limiter) barrier(ctx context.Context) (time.Time, bool) {
	raw, err := l.store.Get(ctx, keyBarrier)
	if err != nil {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func secondsSinceEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func epochToTime(secs float64) time.Time {
	return time.Unix(0, int64(secs*float64(time.Second)))
}
