// Package ratelimit provides per-client fixed-window request admission.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits or rejects requests per client under a fixed quota for a
// fixed-origin time window. A client's first request opens its window; the
// counter resets entirely once the window elapses.
//
// Counters live in a sync.Map keyed by client ID, each guarded by its own
// mutex, so concurrent requests from one client are serialized against
// each other and can never overshoot the quota, while unrelated clients
// never contend.
type Limiter struct {
	quota   int64
	window  time.Duration
	buckets sync.Map // client ID → *bucket
}

type bucket struct {
	mu        sync.Mutex
	count     int64
	windowEnd time.Time
}

// New creates a Limiter admitting quota requests per window per client.
func New(quota int, window time.Duration) *Limiter {
	return &Limiter{quota: int64(quota), window: window}
}

// Allow records one request from clientID and reports whether it is
// admitted. The counter increments whether or not the request is admitted;
// admission means the post-increment count is within the quota.
func (l *Limiter) Allow(clientID string) bool {
	b := l.bucket(clientID)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.After(b.windowEnd) {
		b.count = 0
		b.windowEnd = now.Add(l.window)
	}
	b.count++
	return b.count <= l.quota
}

// Remaining returns how many requests clientID may still make in its
// current window.
func (l *Limiter) Remaining(clientID string) int64 {
	b := l.bucket(clientID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Now().After(b.windowEnd) {
		return l.quota
	}
	remaining := l.quota - b.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter returns how long clientID must wait for a fresh window.
// Zero means a request would be admitted now.
func (l *Limiter) RetryAfter(clientID string) time.Duration {
	b := l.bucket(clientID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < l.quota {
		return 0
	}
	wait := time.Until(b.windowEnd)
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Limiter) bucket(clientID string) *bucket {
	v, _ := l.buckets.LoadOrStore(clientID, &bucket{})
	return v.(*bucket)
}
