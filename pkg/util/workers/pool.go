// Package workers provides a small bounded fan-out helper used by the
// in-process ICMP prober to ping many targets concurrently without flooding
// the network stack.
package workers

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config bounds a fan-out run.
type Config struct {
	Workers   int     // max concurrent tasks (<=0 means 1)
	RateLimit float64 // task starts per second (0 = no limit)
	Burst     int     // burst size for the rate limiter (<=0 means Workers)
}

// Each runs fn(ctx, i) for every i in [0, n), at most cfg.Workers at a time,
// pacing task starts through the rate limiter when one is configured. It
// returns the per-index errors once every task has finished. A cancelled
// context marks the remaining tasks with the context error without starting
// them.
func Each(ctx context.Context, n int, cfg Config, fn func(ctx context.Context, i int) error) []error {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Workers
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	errs := make([]error, n)
	sem := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				errs[i] = err
				<-sem
				continue
			}
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = fn(ctx, i)
		}(i)
	}

	wg.Wait()
	return errs
}
