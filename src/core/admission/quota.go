package admission

import (
	"sync"
	"time"
)

// guildQuota is one tenant's rolling-window counter. The window is a
// fixed 24h reset, not a sliding count.
type guildQuota struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// QuotaTracker enforces the per-guild daily ceiling. Like RateLimiter,
// records carry their own lock keyed by tenant.
type QuotaTracker struct {
	mu     sync.Mutex
	guilds map[string]*guildQuota

	limit  int
	window time.Duration
}

func NewQuotaTracker(limit int, window time.Duration) *QuotaTracker {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &QuotaTracker{
		guilds: make(map[string]*guildQuota),
		limit:  limit,
		window: window,
	}
}

func (qt *QuotaTracker) record(guildID string, now time.Time) *guildQuota {
	qt.mu.Lock()
	defer qt.mu.Unlock()

	q, ok := qt.guilds[guildID]
	if !ok {
		q = &guildQuota{windowStart: now}
		qt.guilds[guildID] = q
	}
	return q
}

// begin locks the guild record and checks the ceiling, resetting the
// window first if it has elapsed. The caller commits (increment) or
// aborts without incrementing.
func (qt *QuotaTracker) begin(guildID string, now time.Time) (*quotaReservation, bool) {
	q := qt.record(guildID, now)
	q.mu.Lock()

	if now.Sub(q.windowStart) >= qt.window {
		q.count = 0
		q.windowStart = now
	}

	if q.count >= qt.limit {
		q.mu.Unlock()
		return nil, false
	}
	return &quotaReservation{q: q}, true
}

// Usage reports the current count for a guild.
func (qt *QuotaTracker) Usage(guildID string) int {
	qt.mu.Lock()
	q, ok := qt.guilds[guildID]
	qt.mu.Unlock()
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

type quotaReservation struct {
	q *guildQuota
}

func (r *quotaReservation) commit() {
	r.q.count++
	r.q.mu.Unlock()
}

func (r *quotaReservation) abort() {
	r.q.mu.Unlock()
}
