package guard

import (
	"context"
	"sync"
	"time"
)

// RateLimitResult reports the state of a key after one hit.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// sweepInterval bounds how often Allow scans every key for expired buckets.
const sweepInterval = time.Minute

// SlidingWindow is an in-memory sliding-window limiter. A key's quota frees up
// one slot at a time as individual hits age out of the window. Keys whose hits
// have all aged out are dropped by a periodic sweep.
type SlidingWindow struct {
	mu        sync.Mutex
	now       func() time.Time
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	hits   []time.Time
	window time.Duration
}

func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{now: time.Now, buckets: make(map[string]*bucket)}
}

func (s *SlidingWindow) Allow(_ context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	b := s.buckets[key]
	if b == nil {
		b = &bucket{}
	}
	b.window = window
	b.hits = evict(b.hits, now.Add(-window))

	if len(b.hits) < limit {
		b.hits = append(b.hits, now)
		s.buckets[key] = b
		return &RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - len(b.hits),
			ResetAt:   b.hits[0].Add(window),
		}, nil
	}

	resetAt := now.Add(window)
	if len(b.hits) > 0 {
		resetAt = b.hits[0].Add(window)
		s.buckets[key] = b
	} else {
		delete(s.buckets, key)
	}
	return &RateLimitResult{
		Allowed: false,
		Limit:   limit,
		ResetAt: resetAt,
	}, nil
}

// sweep drops every bucket with no hits left inside its window. Callers hold mu.
func (s *SlidingWindow) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		b.hits = evict(b.hits, now.Add(-b.window))
		if len(b.hits) == 0 {
			delete(s.buckets, key)
		}
	}
}

// Len reports how many keys are tracked.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// evict drops hits at or before cutoff; hits are in ascending order.
func evict(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}
