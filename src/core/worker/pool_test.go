package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aicore "github.com/ava-verify/ava/src/ai/core"
	"github.com/ava-verify/ava/src/core/admission"
	"github.com/ava-verify/ava/src/core/pipeline"
	"github.com/ava-verify/ava/src/core/types"
)

// cannedClient drives the whole pipeline to a true verdict for any job.
type cannedClient struct {
	mu    sync.Mutex
	calls int
}

func (c *cannedClient) Name() string { return "canned" }

func (c *cannedClient) Complete(ctx context.Context, req aicore.Request) (*aicore.Completion, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	switch (n - 1) % 3 {
	case 0:
		return &aicore.Completion{Text: `{"intent": "claim"}`}, nil
	case 1:
		return &aicore.Completion{Text: `{"statement": "water boils at 100c", "entities": [], "dates": []}`}, nil
	default:
		return &aicore.Completion{Text: `{"verdict": "true", "confidence": 0.3, "reasoning": "Common knowledge.", "citations": []}`, Model: "m"}, nil
	}
}

func (c *cannedClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type noSearch struct{}

func (noSearch) Search(ctx context.Context, query string, maxResults int) []types.Evidence {
	return nil
}

type memCache struct {
	mu      sync.Mutex
	store   map[string]*types.VerificationResult
	failing bool
}

func newMemCache() *memCache {
	return &memCache{store: make(map[string]*types.VerificationResult)}
}

func (c *memCache) Get(ctx context.Context, claim string) (*types.VerificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, false
	}
	r, ok := c.store[claim]
	return r, ok
}

func (c *memCache) Put(ctx context.Context, claim string, result *types.VerificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[claim] = result
}

type memRecorder struct {
	mu   sync.Mutex
	jobs []*types.Job
}

func (r *memRecorder) Record(job *types.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *memRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func testService(ai aicore.Client, workers int) (*Service, *admission.Gate) {
	gate := admission.NewGate(admission.Config{
		Cooldown:        0,
		BucketCapacity:  1000,
		RefillRate:      1000,
		DailyGuildLimit: 1000,
		QueueSize:       25,
	})
	orch := pipeline.New(ai, noSearch{}, gate.Breaker(), pipeline.Config{
		StageTimeout: time.Second,
		RetryBackoff: time.Millisecond,
	})
	return NewService(gate, orch, workers), gate
}

func submit(svc *Service, user, text string) (*types.Job, types.RejectReason) {
	return svc.Submit(SubmitRequest{
		UserID:  user,
		GuildID: "g1",
		Text:    text,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestServiceProcessesSubmittedJob(t *testing.T) {
	ai := &cannedClient{}
	svc, _ := testService(ai, 2)
	rec := &memRecorder{}
	svc.SetRecorder(rec)

	var delivered []*types.Job
	var mu sync.Mutex
	svc.SetDeliver(func(job *types.Job) {
		mu.Lock()
		delivered = append(delivered, job)
		mu.Unlock()
	})

	svc.Start(context.Background())
	defer svc.Stop()

	job, reason := submit(svc, "u1", "water boils at 100c")
	require.NotNil(t, job, "rejected: %s", reason)

	waitFor(t, func() bool { return rec.count() == 1 })
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, types.StatusSucceeded, delivered[0].Status)
	assert.Equal(t, types.VerdictTrue, delivered[0].Result.Verdict)
}

func TestServiceCacheHitSkipsPipeline(t *testing.T) {
	ai := &cannedClient{}
	svc, _ := testService(ai, 1)
	cache := newMemCache()
	cache.store["water boils at 100c"] = &types.VerificationResult{
		Verdict: types.VerdictTrue, Confidence: 0.9, Reasoning: "cached",
	}
	svc.SetCache(cache)
	rec := &memRecorder{}
	svc.SetRecorder(rec)

	svc.Start(context.Background())
	defer svc.Stop()

	job, _ := submit(svc, "u1", "water boils at 100c")
	require.NotNil(t, job)

	waitFor(t, func() bool { return rec.count() == 1 })
	assert.Equal(t, 0, ai.count(), "pipeline must not run on a cache hit")
	assert.Equal(t, "cached", rec.jobs[0].Result.Reasoning)
}

func TestServiceCachesSuccessfulVerdict(t *testing.T) {
	ai := &cannedClient{}
	svc, _ := testService(ai, 1)
	cache := newMemCache()
	svc.SetCache(cache)
	rec := &memRecorder{}
	svc.SetRecorder(rec)

	svc.Start(context.Background())
	defer svc.Stop()

	job, _ := submit(svc, "u1", "water boils at 100c")
	require.NotNil(t, job)
	waitFor(t, func() bool { return rec.count() == 1 })

	cache.mu.Lock()
	_, ok := cache.store["water boils at 100c"]
	cache.mu.Unlock()
	assert.True(t, ok)
}

func TestServiceCanceledJobNotDelivered(t *testing.T) {
	ai := &cannedClient{}
	svc, _ := testService(ai, 1)
	rec := &memRecorder{}
	svc.SetRecorder(rec)

	deliveries := 0
	svc.SetDeliver(func(job *types.Job) { deliveries++ })

	// Cancel before the pool starts so the worker sees the flag on pickup.
	job, _ := submit(svc, "u1", "some claim")
	require.NotNil(t, job)
	job.Cancel()

	svc.Start(context.Background())
	defer svc.Stop()

	waitFor(t, func() bool { return rec.count() == 1 })
	assert.Equal(t, types.FailCanceled, rec.jobs[0].FailReason)
	assert.Equal(t, 0, deliveries)
	assert.Equal(t, 0, ai.count())
}

func TestServiceStopDrainsWorkers(t *testing.T) {
	ai := &cannedClient{}
	svc, _ := testService(ai, 3)

	svc.Start(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestServiceSubmitRejection(t *testing.T) {
	ai := &cannedClient{}
	svc, gate := testService(ai, 1)
	gate.Breaker().Trip()

	job, reason := submit(svc, "u1", "claim")
	assert.Nil(t, job)
	assert.Equal(t, types.RejectProviderUnavailable, reason)
}
