package gameground

import (
	"sync"
	"time"
)

// LookupLimiter caps article lookups per client IP over a sliding window.
type LookupLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewLookupLimiter creates a LookupLimiter that allows max lookups per window.
func NewLookupLimiter(max int, window time.Duration) *LookupLimiter {
	l := &LookupLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *LookupLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-l.window)
			for ip, hits := range l.hits {
				kept := prune(hits, cutoff)
				if len(kept) == 0 {
					delete(l.hits, ip)
				} else {
					l.hits[ip] = kept
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow records a lookup for ip and reports whether it is within the limit.
// Rejected lookups are not recorded.
func (l *LookupLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[ip], l.now().Add(-l.window))
	if len(kept) >= l.max {
		l.hits[ip] = kept
		return false
	}
	l.hits[ip] = append(kept, l.now())
	return true
}

// RetryAfter returns how long ip has to wait before its oldest lookup leaves
// the window.
func (l *LookupLimiter) RetryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	hits := l.hits[ip]
	if len(hits) == 0 {
		return 0
	}
	d := hits[0].Add(l.window).Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Stop ends the cleanup goroutine.
func (l *LookupLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
