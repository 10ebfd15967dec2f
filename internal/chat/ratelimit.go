package chat

import (
	"sync"
	"time"
)

// rateLimiter throttles chat requests per username so one user's burst
// cannot monopolize the bot.
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
}

// newRateLimiter creates a limiter and starts its background eviction
// goroutine. The goroutine stops when done is closed.
func newRateLimiter(limit int, window time.Duration, done chan struct{}) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     done,
	}
	go rl.evictLoop()
	return rl
}

// allow checks if a request is allowed for the given key.
func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// evictLoop periodically removes expired keys so the map cannot grow
// without bound.
func (r *rateLimiter) evictLoop() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evict()
		case <-r.done:
			return
		}
	}
}

func (r *rateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	for key, times := range r.requests {
		var fresh []time.Time
		for _, t := range times {
			if t.After(cutoff) {
				fresh = append(fresh, t)
			}
		}
		if len(fresh) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = fresh
		}
	}
}
