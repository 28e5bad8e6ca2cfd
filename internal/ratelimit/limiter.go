// Package ratelimit implements sliding-window admission control per client
// identity.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// Window is the sliding admission window.
	Window = 60 * time.Second
	// bucketCap bounds per-identity memory; oldest entries are dropped beyond it.
	bucketCap = 128
)

// Limiter admits at most limit requests per identity per Window. Buckets are
// process-local and die with the process.
type Limiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

// New creates a limiter allowing limit requests per identity per 60s window.
func New(limit int) *Limiter {
	return &Limiter{
		limit:   limit,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// NewWithClock creates a limiter with an injected clock. Intended for tests.
func NewWithClock(limit int, now func() time.Time) *Limiter {
	l := New(limit)
	l.now = now
	return l
}

// Allow records and admits the request unless the identity has already used up
// its window.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket := l.buckets[identity]

	// Drop timestamps that fell out of the window.
	keep := bucket[:0]
	for _, ts := range bucket {
		if now.Sub(ts) <= Window {
			keep = append(keep, ts)
		}
	}
	bucket = keep

	if len(bucket) >= l.limit {
		l.buckets[identity] = bucket
		return false
	}

	bucket = append(bucket, now)
	if len(bucket) > bucketCap {
		bucket = bucket[len(bucket)-bucketCap:]
	}
	l.buckets[identity] = bucket
	return true
}
