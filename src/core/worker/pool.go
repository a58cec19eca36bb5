package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ava-verify/ava/src/core/admission"
	"github.com/ava-verify/ava/src/core/pipeline"
	"github.com/ava-verify/ava/src/core/types"
)

// ResultCache short-circuits the pipeline for recently verified claims.
type ResultCache interface {
	Get(ctx context.Context, claim string) (*types.VerificationResult, bool)
	Put(ctx context.Context, claim string, result *types.VerificationResult)
}

// Recorder receives terminal jobs for append-only persistence. It must
// not block or fail the job.
type Recorder interface {
	Record(job *types.Job)
}

// DeliverFunc hands a terminal job back to the chat surface.
type DeliverFunc func(job *types.Job)

// SubmitRequest is one inbound fact-check request.
type SubmitRequest struct {
	UserID          string
	GuildID         string
	ChannelID       string
	SourceMessageID string
	Text            string
	Context         []string
}

// Service owns the admission gate and the fixed worker pool. Pool size
// bounds simultaneous external-API work, not total accepted jobs.
type Service struct {
	gate     *admission.Gate
	orch     *pipeline.Orchestrator
	cache    ResultCache
	recorder Recorder
	deliver  DeliverFunc
	workers  int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewService(gate *admission.Gate, orch *pipeline.Orchestrator, workers int) *Service {
	if workers <= 0 {
		workers = 2
	}
	return &Service{gate: gate, orch: orch, workers: workers}
}

// SetCache, SetRecorder, and SetDeliver attach optional collaborators.
// They must be called before Start.
func (s *Service) SetCache(c ResultCache)    { s.cache = c }
func (s *Service) SetRecorder(r Recorder)    { s.recorder = r }
func (s *Service) SetDeliver(fn DeliverFunc) { s.deliver = fn }

// Submit runs admission on the caller's goroutine. On success the
// returned job is queued and owned by the pipeline until terminal.
func (s *Service) Submit(req SubmitRequest) (*types.Job, types.RejectReason) {
	job := &types.Job{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		GuildID:         req.GuildID,
		ChannelID:       req.ChannelID,
		SourceMessageID: req.SourceMessageID,
		InputText:       req.Text,
		Context:         req.Context,
		SubmittedAt:     time.Now(),
		Status:          types.StatusPending,
	}

	if ok, reason := s.gate.Admit(job); !ok {
		job.Status = types.StatusRejected
		return nil, reason
	}
	return job, ""
}

// Start launches the worker pool.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.run(ctx)
	}
	zap.S().Infow("worker pool started", "workers", s.workers, "queue_capacity", s.gate.Queue().Cap())
}

// Stop cancels the workers and waits for them to exit. An in-flight
// provider call observes the canceled context and fails; its job
// terminates and is recorded like any other failure.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		job, err := s.gate.Queue().Dequeue(ctx)
		if err != nil {
			return
		}
		s.process(ctx, job)
	}
}

func (s *Service) process(ctx context.Context, job *types.Job) {
	start := time.Now()

	if job.Canceled() {
		job.Status = types.StatusFailed
		job.FailReason = types.FailCanceled
		s.record(job)
		return
	}

	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, job.InputText); ok {
			zap.S().Infow("verdict served from cache", "job", job.ID)
			job.Result = result
			job.Status = types.StatusSucceeded
			s.finish(job, start)
			return
		}
	}

	s.orch.Run(ctx, job)

	if job.Status == types.StatusSucceeded && s.cache != nil {
		s.cache.Put(ctx, job.InputText, job.Result)
	}
	s.finish(job, start)
}

func (s *Service) finish(job *types.Job, start time.Time) {
	zap.S().Infow("job finished",
		"job", job.ID,
		"status", job.Status,
		"fail_reason", job.FailReason,
		"elapsed", time.Since(start),
	)

	s.record(job)

	if s.deliver != nil && job.FailReason != types.FailCanceled {
		s.deliver(job)
	}
}

func (s *Service) record(job *types.Job) {
	if s.recorder != nil {
		s.recorder.Record(job)
	}
}

// Gate exposes admission state for the ops surface.
func (s *Service) Gate() *admission.Gate { return s.gate }

// Workers reports the configured pool size.
func (s *Service) Workers() int { return s.workers }
