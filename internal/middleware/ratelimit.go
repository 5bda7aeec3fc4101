package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorCleanupInterval is how often idle per-IP limiters are swept.
const visitorCleanupInterval = 5 * time.Minute

// RateLimiter implements token bucket rate limiting per IP address
type RateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}

	// Start cleanup goroutine for inactive visitors
	go rl.cleanupInactiveVisitors()

	return rl
}

// Allow checks if a request from the given IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Reset removes the rate limiter for a specific IP
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	delete(rl.visitors, ip)
	rl.mu.Unlock()
}

// cleanupInactiveVisitors removes limiters for IPs that haven't been seen
// recently. A limiter back at full tokens hasn't been used for at least a
// full refill period.
func (rl *RateLimiter) cleanupInactiveVisitors() {
	ticker := time.NewTicker(visitorCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, limiter := range rl.visitors {
			if limiter.Tokens() == float64(rl.burst) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
