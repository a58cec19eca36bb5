package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	aicore "github.com/ava-verify/ava/src/ai/core"
	"github.com/ava-verify/ava/src/core/types"
)

// Searcher is the evidence-aggregator contract the pipeline depends on.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []types.Evidence
}

// FatalNotifier is told about fatal provider configuration errors so
// admission can stop accepting jobs destined for a broken backend.
type FatalNotifier interface {
	Trip()
}

// Config holds the per-stage execution policy.
type Config struct {
	StageTimeout     time.Duration // per external call
	StageRetries     int           // transient retries per stage
	SynthesisRetries int           // schema-violation retries
	MaxEvidence      int
	RetryBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.StageTimeout <= 0 {
		c.StageTimeout = 45 * time.Second
	}
	if c.StageRetries < 0 {
		c.StageRetries = 0
	}
	if c.SynthesisRetries < 0 {
		c.SynthesisRetries = 0
	}
	if c.MaxEvidence <= 0 {
		c.MaxEvidence = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	return c
}

// Orchestrator drives one job through the linear state machine
// classify -> extract -> retrieve -> synthesize -> validate. The only
// backward edge is the bounded validate -> synthesize retry.
type Orchestrator struct {
	ai      aicore.Client
	search  Searcher
	breaker FatalNotifier
	cfg     Config
}

func New(ai aicore.Client, search Searcher, breaker FatalNotifier, cfg Config) *Orchestrator {
	return &Orchestrator{ai: ai, search: search, breaker: breaker, cfg: cfg.withDefaults()}
}

// Run executes the job to a terminal state. It never returns an error;
// failures land on the job itself.
func (o *Orchestrator) Run(ctx context.Context, job *types.Job) {
	job.Status = types.StatusRunning

	// Classify
	job.Stage = types.StageClassifying
	intent, err := o.classify(ctx, job)
	if err != nil {
		o.fail(job, failReasonFor(err, types.FailClassificationFailed), err)
		return
	}
	if intent != "claim" {
		zap.S().Infow("request is not a checkable claim", "job", job.ID, "intent", intent)
		o.fail(job, types.FailNotAClaim, nil)
		return
	}
	if o.aborted(job) {
		return
	}

	// Extract
	job.Stage = types.StageExtracting
	extracted, err := o.extract(ctx, job)
	if err != nil {
		o.fail(job, failReasonFor(err, types.FailExtractionFailed), err)
		return
	}
	if o.aborted(job) {
		return
	}

	// Retrieve. Backend failures are swallowed by the aggregator;
	// empty evidence is a legitimate input to synthesis.
	job.Stage = types.StageRetrieving
	evidence := o.search.Search(ctx, extracted.Statement, o.cfg.MaxEvidence)
	if o.aborted(job) {
		return
	}

	// Synthesize + validate, with a bounded schema-retry edge.
	var lastErr error
	for attempt := 0; attempt <= o.cfg.SynthesisRetries; attempt++ {
		job.Stage = types.StageSynthesizing
		prompt := synthesizeUserPrompt(extracted.Statement, evidence, job.Context, attempt > 0)
		completion, err := o.complete(ctx, aicore.Request{
			SystemPrompt: synthesizeSystemPrompt,
			Prompt:       prompt,
			JSONMode:     true,
		})
		if err != nil {
			o.fail(job, failReasonFor(err, types.FailSynthesisFailed), err)
			return
		}

		job.Stage = types.StageValidating
		result, verr := validateDraft(completion.Text, extracted.Statement, evidence, completion.Model)
		if verr == nil {
			job.Result = result
			job.Status = types.StatusSucceeded
			return
		}
		lastErr = verr
		zap.S().Warnw("verdict draft failed validation", "job", job.ID, "attempt", attempt, "error", verr)
	}
	o.fail(job, types.FailSchemaViolation, lastErr)
}

type classification struct {
	Intent string `json:"intent"`
}

func (o *Orchestrator) classify(ctx context.Context, job *types.Job) (string, error) {
	var c classification
	err := o.completeJSON(ctx, aicore.Request{
		SystemPrompt: classifySystemPrompt,
		Prompt:       classifyUserPrompt(job.InputText),
		JSONMode:     true,
	}, &c, nil)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(strings.TrimSpace(c.Intent)) {
	case "claim":
		return "claim", nil
	case "injection":
		return "injection", nil
	default:
		return "out_of_scope", nil
	}
}

type extraction struct {
	Statement string   `json:"statement"`
	Entities  []string `json:"entities"`
	Dates     []string `json:"dates"`
}

func (o *Orchestrator) extract(ctx context.Context, job *types.Job) (*extraction, error) {
	var e extraction
	err := o.completeJSON(ctx, aicore.Request{
		SystemPrompt: extractSystemPrompt,
		Prompt:       extractUserPrompt(job.InputText, job.Context),
		JSONMode:     true,
	}, &e, func() error {
		// An empty statement is as useless as unparseable output and
		// gets the same retry treatment.
		if strings.TrimSpace(e.Statement) == "" {
			return fmt.Errorf("extraction produced no statement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// completeJSON runs one stage under the retry policy, treating
// malformed output and a failed post-parse check the same as a
// transient transport failure.
func (o *Orchestrator) completeJSON(ctx context.Context, req aicore.Request, out interface{}, check func() error) error {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.StageRetries; attempt++ {
		if attempt > 0 {
			if err := o.backoff(ctx); err != nil {
				return err
			}
		}

		completion, err := o.callOnce(ctx, req)
		if err != nil {
			if aicore.IsFatal(err) {
				return err
			}
			lastErr = err
			continue
		}

		if err := json.Unmarshal([]byte(extractJSON(completion.Text)), out); err != nil {
			lastErr = fmt.Errorf("malformed stage output: %w", err)
			continue
		}
		if check != nil {
			if err := check(); err != nil {
				lastErr = err
				continue
			}
		}
		return nil
	}
	return lastErr
}

// complete runs one stage under the transient retry policy and returns
// the raw completion; the caller owns output parsing.
func (o *Orchestrator) complete(ctx context.Context, req aicore.Request) (*aicore.Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.StageRetries; attempt++ {
		if attempt > 0 {
			if err := o.backoff(ctx); err != nil {
				return nil, err
			}
		}

		completion, err := o.callOnce(ctx, req)
		if err == nil {
			return completion, nil
		}
		if aicore.IsFatal(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// callOnce issues a single bounded provider call. A timeout surfaces
// as a transient error, never a hang. Fatal errors trip the admission
// breaker so no further jobs are accepted against a broken backend.
func (o *Orchestrator) callOnce(ctx context.Context, req aicore.Request) (*aicore.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	defer cancel()

	completion, err := o.ai.Complete(callCtx, req)
	if err != nil && aicore.IsFatal(err) {
		zap.S().Errorw("fatal provider error, tripping breaker", "provider", o.ai.Name(), "error", err)
		if o.breaker != nil {
			o.breaker.Trip()
		}
	}
	return completion, err
}

func (o *Orchestrator) backoff(ctx context.Context) error {
	t := time.NewTimer(o.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// aborted handles the caller-initiated cancellation flag between
// stages. In-flight calls are never interrupted; their results are
// simply discarded.
func (o *Orchestrator) aborted(job *types.Job) bool {
	if !job.Canceled() {
		return false
	}
	o.fail(job, types.FailCanceled, nil)
	return true
}

func (o *Orchestrator) fail(job *types.Job, reason types.FailReason, err error) {
	job.Status = types.StatusFailed
	job.FailReason = reason
	if err != nil {
		zap.S().Warnw("job failed", "job", job.ID, "stage", job.Stage, "reason", reason, "error", err)
	}
}

func failReasonFor(err error, transientReason types.FailReason) types.FailReason {
	if aicore.IsFatal(err) {
		return types.FailProviderConfigError
	}
	return transientReason
}
