package cache

import "time"

// Clock returns the current time. Tests inject a fake to drive expiry.
type Clock func() time.Time

// Option configures a cache tier.
type Option func(*options)

type options struct {
	now        Clock
	sweepEvery int
	capacity   int
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.now = c
		}
	}
}

// WithSweepEvery sets how many writes pass between expiry sweeps of the TTL tier.
func WithSweepEvery(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sweepEvery = n
		}
	}
}

// WithCapacity bounds the number of entries a TTL tier holds. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.capacity = n
		}
	}
}

// DefaultSweepEvery is the default number of writes between TTL sweeps.
const DefaultSweepEvery = 100

func buildOptions(opts []Option) options {
	o := options{now: time.Now, sweepEvery: DefaultSweepEvery}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// expired reports whether an entry created at created with ttl has expired at now.
// A non-positive ttl never expires.
func expired(now, created time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(created) > ttl
}
