// Package ratelimit provides the order placement admission policy.
package ratelimit

import (
	"sync"
	"time"
)

// OrderAdmission decides whether an order placement request is admitted.
// Pluggable so the admission granularity can change without touching the
// command gateway.
type OrderAdmission interface {
	// Allow report whether one more request for the key is admitted now
	Allow(key string) bool
	// Remaining number of requests still admitted for the key
	Remaining(key string) int
	// Reset clear the history for a key
	Reset(key string)
}

// slidingWindowAdmission sliding window limiter tracking request timestamps
// per key
type slidingWindowAdmission struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration

	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// GetSlidingWindowAdmission define an admission policy allowing at most
// limit requests per window per key
func GetSlidingWindowAdmission(limit int, window time.Duration) OrderAdmission {
	return &slidingWindowAdmission{
		requests:        make(map[string][]time.Time),
		limit:           limit,
		window:          window,
		cleanupInterval: window * 10,
		lastCleanup:     time.Now(),
	}
}

// Allow report whether one more request for the key is admitted now
func (l *slidingWindowAdmission) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	if now.Sub(l.lastCleanup) > l.cleanupInterval {
		l.cleanup(windowStart)
		l.lastCleanup = now
	}

	times := l.requests[key]
	valid := times[:0]
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	l.requests[key] = valid

	if len(valid) >= l.limit {
		return false
	}

	l.requests[key] = append(l.requests[key], now)
	return true
}

// cleanup remove stale keys. Must be called with mu held.
func (l *slidingWindowAdmission) cleanup(windowStart time.Time) {
	for key, times := range l.requests {
		valid := times[:0]
		for _, t := range times {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}

// Remaining number of requests still admitted for the key
func (l *slidingWindowAdmission) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := time.Now().Add(-l.window)
	count := 0
	for _, t := range l.requests[key] {
		if t.After(windowStart) {
			count++
		}
	}

	remaining := l.limit - count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clear the history for a key
func (l *slidingWindowAdmission) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
}

// ==============================================================================

// allowAllAdmission admits everything; used when rate limiting is disabled
type allowAllAdmission struct{}

// GetAllowAllAdmission define an admission policy which admits every request
func GetAllowAllAdmission() OrderAdmission {
	return allowAllAdmission{}
}

func (allowAllAdmission) Allow(string) bool    { return true }
func (allowAllAdmission) Remaining(string) int { return 1 }
func (allowAllAdmission) Reset(string)         {}
