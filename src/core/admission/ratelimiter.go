package admission

import (
	"sync"
	"time"
)

// RateState is the per-user mutable rate record. The token count is a
// float clamped to [0, capacity]; lastRequest drives the cooldown check.
type RateState struct {
	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
	lastRequest time.Time
}

// RateLimiter combines the per-user cooldown and token bucket. Records
// are created lazily on first request and each carries its own lock so
// unrelated users never contend.
type RateLimiter struct {
	mu     sync.Mutex
	states map[string]*RateState

	cooldown   time.Duration
	capacity   float64
	refillRate float64 // tokens per second
}

func NewRateLimiter(cooldown time.Duration, capacity, refillRate float64) *RateLimiter {
	return &RateLimiter{
		states:     make(map[string]*RateState),
		cooldown:   cooldown,
		capacity:   capacity,
		refillRate: refillRate,
	}
}

func (rl *RateLimiter) state(userID string, now time.Time) *RateState {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	st, ok := rl.states[userID]
	if !ok {
		st = &RateState{tokens: rl.capacity, lastRefill: now}
		rl.states[userID] = st
	}
	return st
}

// begin locks the user's record and evaluates cooldown and bucket state
// without consuming anything. The caller must invoke exactly one of
// commit or abort on the returned reservation.
func (rl *RateLimiter) begin(userID string, now time.Time) (*reservation, bool, string) {
	st := rl.state(userID, now)
	st.mu.Lock()

	if !st.lastRequest.IsZero() && now.Sub(st.lastRequest) < rl.cooldown {
		st.mu.Unlock()
		return nil, false, "cooldown"
	}

	elapsed := now.Sub(st.lastRefill).Seconds()
	if elapsed < 0 {
		// Clock went backwards; treat as no time passed.
		elapsed = 0
	}
	st.tokens = min(rl.capacity, st.tokens+elapsed*rl.refillRate)
	st.lastRefill = now

	if st.tokens < 1 {
		st.mu.Unlock()
		return nil, false, "bucket"
	}

	return &reservation{st: st, now: now}, true, ""
}

// Tokens reports the current token count for a user without refilling.
// Used by the ops surface; zero-value if the user has never requested.
func (rl *RateLimiter) Tokens(userID string) float64 {
	rl.mu.Lock()
	st, ok := rl.states[userID]
	rl.mu.Unlock()
	if !ok {
		return rl.capacity
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tokens
}

// reservation holds the user record locked between the bucket check and
// the final admission decision, so concurrent requests from the same
// user cannot double-spend a stale token count.
type reservation struct {
	st  *RateState
	now time.Time
}

func (r *reservation) commit() {
	r.st.tokens -= 1
	if r.st.tokens < 0 {
		r.st.tokens = 0
	}
	r.st.lastRequest = r.now
	r.st.mu.Unlock()
}

func (r *reservation) abort() {
	r.st.mu.Unlock()
}
