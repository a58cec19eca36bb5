package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-verify/ava/src/core/types"
)

func testGate(cfg Config) (*Gate, *time.Time) {
	g := NewGate(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	return g, &now
}

func job(user, guild string) *types.Job {
	return &types.Job{ID: "j-" + user, UserID: user, GuildID: guild, InputText: "the sky is green"}
}

func TestGateAdmitsAndAppliesCooldown(t *testing.T) {
	g, now := testGate(Config{
		Cooldown:        10 * time.Second,
		BucketCapacity:  3,
		RefillRate:      0.2,
		DailyGuildLimit: 100,
		QueueSize:       25,
	})

	ok, reason := g.Admit(job("u1", "g1"))
	require.True(t, ok, "first request should pass: %s", reason)

	// Immediate second request hits the cooldown, not the bucket.
	ok, reason = g.Admit(job("u1", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectCooldownActive, reason)

	*now = now.Add(11 * time.Second)
	ok, _ = g.Admit(job("u1", "g1"))
	assert.True(t, ok)
}

func TestGateTokenBucketExhaustionAndRefill(t *testing.T) {
	g, now := testGate(Config{
		Cooldown:        time.Second,
		BucketCapacity:  3,
		RefillRate:      0.2,
		DailyGuildLimit: 100,
		QueueSize:       25,
	})

	for i := 0; i < 3; i++ {
		ok, reason := g.Admit(job("u1", "g1"))
		require.True(t, ok, "request %d: %s", i, reason)
		*now = now.Add(2 * time.Second) // past cooldown, refills 0.4 tokens
	}

	// 3 spent, ~1.2 refilled across the waits: one more passes, then dry.
	ok, _ := g.Admit(job("u1", "g1"))
	require.True(t, ok)
	*now = now.Add(2 * time.Second)

	ok, reason := g.Admit(job("u1", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectRateLimited, reason)

	// 5s at 0.2/s refills a full token.
	*now = now.Add(5 * time.Second)
	ok, _ = g.Admit(job("u1", "g1"))
	assert.True(t, ok)
}

func TestGateTokensNeverExceedCapacity(t *testing.T) {
	g, now := testGate(Config{
		Cooldown:        time.Second,
		BucketCapacity:  3,
		RefillRate:      0.2,
		DailyGuildLimit: 100,
		QueueSize:       25,
	})

	ok, _ := g.Admit(job("u1", "g1"))
	require.True(t, ok)

	// A long idle period clamps at capacity, not capacity+idle*rate.
	*now = now.Add(24 * time.Hour)
	ok, _ = g.Admit(job("u1", "g1"))
	require.True(t, ok)
	assert.InDelta(t, 2.0, g.Limiter().Tokens("u1"), 0.001)
}

func TestGateClockGoingBackwards(t *testing.T) {
	g, now := testGate(Config{
		Cooldown:        time.Second,
		BucketCapacity:  3,
		RefillRate:      0.2,
		DailyGuildLimit: 100,
		QueueSize:       25,
	})

	ok, _ := g.Admit(job("u1", "g1"))
	require.True(t, ok)

	*now = now.Add(-time.Hour)
	// Negative elapsed must not refill or panic; cooldown sees a future
	// lastRequest and keeps rejecting until real time catches up.
	ok, reason := g.Admit(job("u1", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectCooldownActive, reason)
	assert.LessOrEqual(t, g.Limiter().Tokens("u1"), 3.0)
}

func TestGateGuildQuotaCeilingAndWindowReset(t *testing.T) {
	g, now := testGate(Config{
		Cooldown:        0,
		BucketCapacity:  1000,
		RefillRate:      1000,
		DailyGuildLimit: 3,
		QuotaWindow:     24 * time.Hour,
		QueueSize:       100,
	})

	// Different users so only the guild ceiling is in play.
	for i := 0; i < 3; i++ {
		ok, reason := g.Admit(job(string(rune('a'+i)), "g1"))
		require.True(t, ok, "request %d: %s", i, reason)
	}
	assert.Equal(t, 3, g.Quota().Usage("g1"))

	ok, reason := g.Admit(job("d", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectGuildQuotaExceeded, reason)

	// Other guilds are unaffected.
	ok, _ = g.Admit(job("a", "g2"))
	assert.True(t, ok)

	// After the window elapses the count resets and one more passes.
	*now = now.Add(24 * time.Hour)
	ok, _ = g.Admit(job("d", "g1"))
	assert.True(t, ok)
	assert.Equal(t, 1, g.Quota().Usage("g1"))
}

func TestGateQueueFullShedsLoad(t *testing.T) {
	g, _ := testGate(Config{
		Cooldown:        0,
		BucketCapacity:  1000,
		RefillRate:      1000,
		DailyGuildLimit: 1000,
		QueueSize:       2,
	})

	require.True(t, admit(g, "a"))
	require.True(t, admit(g, "b"))

	ok, reason := g.Admit(job("c", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectQueueFull, reason)
	assert.Equal(t, 2, g.Queue().Len())

	// Nothing was consumed for the shed request.
	assert.InDelta(t, 1000.0, g.Limiter().Tokens("c"), 0.001)
	assert.Equal(t, 2, g.Quota().Usage("g1"))
}

func TestGateRejectionConsumesNothing(t *testing.T) {
	g, _ := testGate(Config{
		Cooldown:        0,
		BucketCapacity:  5,
		RefillRate:      0,
		DailyGuildLimit: 1,
		QueueSize:       10,
	})

	require.True(t, admit(g, "a"))

	// Guild quota rejects u2; the user's token must survive.
	ok, reason := g.Admit(job("b", "g1"))
	require.False(t, ok)
	require.Equal(t, types.RejectGuildQuotaExceeded, reason)
	assert.InDelta(t, 5.0, g.Limiter().Tokens("b"), 0.001)
}

func TestGateBreakerRejectsBeforeAnyCheck(t *testing.T) {
	g, _ := testGate(Config{
		Cooldown:        0,
		BucketCapacity:  5,
		RefillRate:      1,
		DailyGuildLimit: 100,
		QueueSize:       10,
	})

	g.Breaker().Trip()
	ok, reason := g.Admit(job("a", "g1"))
	assert.False(t, ok)
	assert.Equal(t, types.RejectProviderUnavailable, reason)
	assert.Equal(t, 0, g.Queue().Len())

	g.Breaker().Reset()
	ok, _ = g.Admit(job("a", "g1"))
	assert.True(t, ok)
}

func admit(g *Gate, user string) bool {
	ok, _ := g.Admit(job(user, "g1"))
	return ok
}
