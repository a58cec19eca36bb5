package types

import (
	"sync/atomic"
	"time"
)

// Verdict is the outcome of a completed verification.
type Verdict string

const (
	VerdictTrue         Verdict = "true"
	VerdictFalse        Verdict = "false"
	VerdictMixed        Verdict = "mixed"
	VerdictUnverifiable Verdict = "unverifiable"
)

// Stage is one step of the verification pipeline.
type Stage string

const (
	StageClassifying  Stage = "classifying"
	StageExtracting   Stage = "extracting"
	StageRetrieving   Stage = "retrieving"
	StageSynthesizing Stage = "synthesizing"
	StageValidating   Stage = "validating"
)

// Status is a Job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// RejectReason explains why a request was refused at admission.
type RejectReason string

const (
	RejectCooldownActive      RejectReason = "CooldownActive"
	RejectRateLimited         RejectReason = "RateLimited"
	RejectGuildQuotaExceeded  RejectReason = "GuildQuotaExceeded"
	RejectQueueFull           RejectReason = "QueueFull"
	RejectProviderUnavailable RejectReason = "ProviderUnavailable"
)

// FailReason explains why an admitted Job terminated without a verdict.
type FailReason string

const (
	FailNotAClaim            FailReason = "NotAClaim"
	FailClassificationFailed FailReason = "ClassificationFailed"
	FailExtractionFailed     FailReason = "ExtractionFailed"
	FailSynthesisFailed      FailReason = "SynthesisFailed"
	FailSchemaViolation      FailReason = "SchemaViolation"
	FailProviderConfigError  FailReason = "ProviderConfigError"
	FailCanceled             FailReason = "Canceled"
)

// Evidence is one retrieved source. Immutable once produced.
type Evidence struct {
	Title    string
	URL      string
	Snippet  string
	Tier     int // lower is more trusted
	Provider string
	Score    float64 // backend-reported relevance
}

// Source is a cited source inside a VerificationResult.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Tier int    `json:"tier,omitempty"`
}

// VerificationResult is the final verdict for one Job. Immutable.
type VerificationResult struct {
	Statement  string   `json:"statement"`
	Verdict    Verdict  `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Sources    []Source `json:"sources"`
	Model      string   `json:"model,omitempty"`
}

// Job is one end-to-end fact-check request. Owned by the pipeline from
// admission to terminal state; read-only afterward.
type Job struct {
	ID              string
	UserID          string
	GuildID         string
	ChannelID       string
	SourceMessageID string
	InputText       string
	Context         []string // bounded list of prior message texts
	SubmittedAt     time.Time

	Stage      Stage
	Status     Status
	FailReason FailReason
	Result     *VerificationResult

	canceled atomic.Bool
}

// Cancel marks the job for cancellation. The pipeline checks the flag
// between stages; an in-flight external call is allowed to finish.
func (j *Job) Cancel() { j.canceled.Store(true) }

// Canceled reports whether the job was marked for cancellation.
func (j *Job) Canceled() bool { return j.canceled.Load() }
