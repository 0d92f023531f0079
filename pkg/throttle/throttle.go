// Package throttle applies a per-query cooldown so repeated diagnoses of the
// same target cannot storm the probe mechanism.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is the minimum spacing between accepted attempts for one
// query string.
const DefaultCooldown = 2 * time.Second

// Entries idle for this many cooldowns are eligible for eviction.
const idleCooldowns = 10

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Throttle tracks the last accepted attempt per raw query string. Keys are
// the raw, case-sensitive, untrimmed queries: "Acme" and "acme " cool down
// independently, exactly as the caller sent them. A rejected attempt leaves
// the stored state untouched, so the cooldown always measures from the last
// accepted attempt. The throttle does not provide mutual exclusion: two
// concurrent calls spaced wider than the cooldown are both allowed.
type Throttle struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[string]*entry
}

// New creates a throttle with the given cooldown (DefaultCooldown when <=0).
func New(cooldown time.Duration) *Throttle {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Throttle{
		cooldown: cooldown,
		entries:  make(map[string]*entry),
	}
}

// Allow reports whether an attempt for query may proceed now.
func (t *Throttle) Allow(query string) bool {
	return t.AllowAt(query, time.Now())
}

// AllowAt is Allow with an explicit clock, for tests.
func (t *Throttle) AllowAt(query string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[query]
	if !ok {
		// Burst of one token refilled every cooldown: the first attempt is
		// accepted, the next only after the cooldown has fully elapsed.
		e = &entry{lim: rate.NewLimiter(rate.Every(t.cooldown), 1)}
		t.entries[query] = e
	}
	e.seen = now

	return e.lim.AllowN(now, 1)
}

// EvictIdle removes entries not queried for idleCooldowns cooldowns and
// returns how many were removed. Run it periodically; the keyspace is
// otherwise unbounded.
func (t *Throttle) EvictIdle(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-idleCooldowns * t.cooldown)
	evicted := 0
	for q, e := range t.entries {
		if e.seen.Before(cutoff) {
			delete(t.entries, q)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle entries until ctx is done. Intended to be launched as a
// goroutine by the daemon.
func (t *Throttle) Run(done <-chan struct{}) {
	ticker := time.NewTicker(idleCooldowns * t.cooldown)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			t.EvictIdle(now)
		}
	}
}

// Len returns the number of tracked query strings.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
