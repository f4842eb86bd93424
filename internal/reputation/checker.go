package reputation

import (
	"context"
	"time"
)

// DefaultTimeout bounds one oracle call. Degradation is graceful: on expiry
// the external signal is absent, not retried synchronously.
const DefaultTimeout = 3 * time.Second

// Checker combines an oracle with the TTL cache and the call timeout.
type Checker struct {
	oracle  Oracle
	cache   *Cache
	timeout time.Duration
}

// NewChecker wires an oracle to a cache. Zero timeout uses the default.
func NewChecker(oracle Oracle, cache *Cache, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cache == nil {
		cache = NewCache(0)
	}
	return &Checker{oracle: oracle, cache: cache, timeout: timeout}
}

// Cached returns a fresh cached result without touching the oracle.
func (c *Checker) Cached(subject string) (Result, bool) {
	return c.cache.Get(subject)
}

// Check resolves a subject's reputation, preferring the cache. Oracle
// failures and timeouts return ErrUnavailable; only successes are cached.
func (c *Checker) Check(ctx context.Context, subject string) (Result, error) {
	if r, ok := c.cache.Get(subject); ok {
		return r, nil
	}
	if c.oracle == nil {
		return Result{}, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r, err := c.oracle.CheckReputation(ctx, subject)
	if err != nil {
		return Result{}, err
	}
	c.cache.Put(subject, r)
	return r, nil
}

// CheckAsync resolves a subject's reputation in the background and hands the
// result to apply. The caller's apply closure is responsible for discarding
// stale results (subject revisited before completion). Failures are dropped
// silently: absence of a signal is the designed degradation.
func (c *Checker) CheckAsync(ctx context.Context, subject string, apply func(subject string, r Result)) {
	go func() {
		r, err := c.Check(ctx, subject)
		if err != nil || !r.Found {
			return
		}
		apply(subject, r)
	}()
}
