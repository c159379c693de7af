package ratelimiter

import (
	"errors"
	"time"

	"github.com/juju/ratelimit"
)

const onceTakeCount = 1

// RateLimiter is a token bucket guarding the client submission path.
type RateLimiter struct {
	ratelimit.Bucket
}

// New returns a token bucket that fills at the rate of one token every
// fillInterval, up to the given maximum capacity. Both arguments must be
// positive. The bucket is initially full.
func New(fillInterval time.Duration, capacity int64) (*RateLimiter, error) {
	return NewWithQuantum(fillInterval, capacity, 1)
}

// NewWithQuantum allows the specification of the quantum size - quantum
// tokens are added every fillInterval.
func NewWithQuantum(fillInterval time.Duration, capacity, quantum int64) (*RateLimiter, error) {
	if fillInterval == 0 {
		return nil, errors.New("invalid interval value to init rate limiter")
	}
	if capacity <= 0 {
		return nil, errors.New("invalid capacity value to init rate limiter")
	}
	if quantum <= 0 {
		return nil, errors.New("invalid quantum value to init rate limiter")
	}

	return &RateLimiter{Bucket: *ratelimit.NewBucketWithQuantum(fillInterval, capacity, quantum)}, nil
}

// Limit consumes one token and reports whether the caller should be
// throttled.
func (l *RateLimiter) Limit() bool {
	return l.TakeAvailable(onceTakeCount) == 0
}
