package catalogue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spindle/internal/shared"
)

// RateLimitError is returned by a provider when the remote API responds
// 429. RetryAfter is zero when the response carried no Retry-After
// header, letting the caller fall back to the rate limiter's exponential
// backoff, per spec.md §4.3's "429 handling".
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", shared.ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return shared.ErrRateLimited }

func newRateLimitError(retryAfterHeader string) error {
	var d time.Duration
	if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs > 0 {
		d = time.Duration(secs) * time.Second
	}
	return &RateLimitError{RetryAfter: d}
}
