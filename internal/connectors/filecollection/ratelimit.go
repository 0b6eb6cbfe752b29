package filecollection

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
)

// Ensure RateLimiter implements the interface.
var _ driven.Pacer = (*RateLimiter)(nil)

const (
	// MinJitter is the default minimum pause before a request.
	MinJitter = time.Second

	// MaxJitter is the default maximum pause before a request.
	MaxJitter = 5 * time.Second
)

// RateLimiter paces requests with a token bucket plus a random jitter,
// so traffic never looks like a tight machine loop to the destination.
type RateLimiter struct {
	bucket    *rate.Limiter
	minJitter time.Duration
	maxJitter time.Duration
}

// NewRateLimiter creates a pacer with the default 1 to 5 second jitter
// on top of a one-request-per-second bucket.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithJitter(MinJitter, MaxJitter)
}

// NewRateLimiterWithJitter creates a pacer with a custom jitter range.
func NewRateLimiterWithJitter(min, max time.Duration) *RateLimiter {
	if max < min {
		max = min
	}
	return &RateLimiter{
		bucket:    rate.NewLimiter(rate.Every(min), 1),
		minJitter: min,
		maxJitter: max,
	}
}

// Wait blocks for the bucket plus a random share of the jitter range.
// The bucket enforces the minimum gap; the jitter spreads requests
// across the rest of the range.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	span := r.maxJitter - r.minJitter
	if span <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(rand.Int63n(int64(span)))):
		return nil
	}
}
