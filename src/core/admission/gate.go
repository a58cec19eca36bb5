package admission

import (
	"time"

	"github.com/ava-verify/ava/src/core/types"
)

// Config holds the admission tunables.
type Config struct {
	Cooldown        time.Duration
	BucketCapacity  float64
	RefillRate      float64 // tokens per second
	DailyGuildLimit int
	QuotaWindow     time.Duration
	QueueSize       int
}

// Gate runs the full admission sequence: breaker, cooldown, token
// bucket, guild quota, queue capacity. Checks are ordered cheapest
// first; each rejection short-circuits the rest.
type Gate struct {
	limiter *RateLimiter
	quota   *QuotaTracker
	queue   *Queue
	breaker *Breaker

	now func() time.Time
}

func NewGate(cfg Config) *Gate {
	return &Gate{
		limiter: NewRateLimiter(cfg.Cooldown, cfg.BucketCapacity, cfg.RefillRate),
		quota:   NewQuotaTracker(cfg.DailyGuildLimit, cfg.QuotaWindow),
		queue:   NewQueue(cfg.QueueSize),
		breaker: &Breaker{},
		now:     time.Now,
	}
}

// Admit decides whether the job may enter the queue. All checks plus
// the enqueue happen while the user's rate record (and then the guild
// record) stay locked, so two concurrent requests from one user cannot
// both spend the same token, and a guild cannot exceed its ceiling.
// Nothing is consumed on a rejected request.
func (g *Gate) Admit(job *types.Job) (bool, types.RejectReason) {
	if g.breaker.Open() {
		return false, types.RejectProviderUnavailable
	}

	now := g.now()

	res, ok, cause := g.limiter.begin(job.UserID, now)
	if !ok {
		if cause == "cooldown" {
			return false, types.RejectCooldownActive
		}
		return false, types.RejectRateLimited
	}

	qres, ok := g.quota.begin(job.GuildID, now)
	if !ok {
		res.abort()
		return false, types.RejectGuildQuotaExceeded
	}

	if !g.queue.TryEnqueue(job) {
		qres.abort()
		res.abort()
		return false, types.RejectQueueFull
	}

	qres.commit()
	res.commit()
	return true, ""
}

func (g *Gate) Queue() *Queue     { return g.queue }
func (g *Gate) Breaker() *Breaker { return g.breaker }

// Limiter and Quota expose read-only state for the ops surface.
func (g *Gate) Limiter() *RateLimiter { return g.limiter }
func (g *Gate) Quota() *QuotaTracker  { return g.quota }
