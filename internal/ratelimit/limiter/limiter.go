// Package limiter implements the in-process sliding-window request limiter.
//
// State lives in memory only: it is not shared between processes and a
// restart forgets every window.
package limiter

import (
	"sync"
	"time"
)

// UnknownClient keys callers without a usable identifier. All of them share
// one bucket.
const UnknownClient = "unknown"

// Limiter counts request timestamps per identifier. Construct one with New
// and inject it where needed; there is no package-level instance.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a request for identifier and reports whether the caller is
// now over rule.Limit inside rule.Window. true means reject.
//
// Every call is recorded, including rejected ones, so a client that keeps
// hammering stays limited until it backs off for a full window. An invalid
// rule never limits.
func (l *Limiter) Check(identifier string, rule Rule) bool {
	if identifier == "" {
		identifier = UnknownClient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	timestamps := append(prune(l.windows[identifier], now.Add(-rule.Window)), now)
	l.windows[identifier] = timestamps

	if !rule.Valid() {
		return false
	}
	return len(timestamps) > rule.Limit
}

// Sweep drops timestamps older than retention and forgets identifiers left
// with none. It returns the number of identifiers removed.
func (l *Limiter) Sweep(retention time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-retention)
	removed := 0
	for id, timestamps := range l.windows {
		kept := prune(timestamps, cutoff)
		if len(kept) == 0 {
			delete(l.windows, id)
			removed++
			continue
		}
		l.windows[id] = kept
	}
	return removed
}

// Reset forgets identifier entirely.
func (l *Limiter) Reset(identifier string) {
	if identifier == "" {
		identifier = UnknownClient
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, identifier)
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// prune returns the suffix of timestamps strictly after cutoff. Timestamps are
// appended in clock order, so the first survivor ends the scan.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	if i == 0 {
		return timestamps
	}
	// Copy so the dropped prefix does not pin the old backing array.
	return append([]time.Time(nil), timestamps[i:]...)
}
