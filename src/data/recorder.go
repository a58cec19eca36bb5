package data

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ava-verify/ava/src/core/types"
)

// Recorder appends terminal jobs to the fact_checks table. Writes are
// fire-and-forget: a storage failure is logged and never fails the job.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(job *types.Job) {
	row := FactCheck{
		JobID:       job.ID,
		UserID:      job.UserID,
		GuildID:     job.GuildID,
		ChannelID:   job.ChannelID,
		MessageID:   job.SourceMessageID,
		InputText:   job.InputText,
		Status:      string(job.Status),
		FailReason:  string(job.FailReason),
		SubmittedAt: job.SubmittedAt,
		CreatedAt:   time.Now(),
	}

	if job.Result != nil {
		row.Statement = job.Result.Statement
		row.Verdict = string(job.Result.Verdict)
		row.Confidence = job.Result.Confidence
		row.Reasoning = job.Result.Reasoning
		row.Model = job.Result.Model
		if b, err := json.Marshal(job.Result.Sources); err == nil {
			row.Sources = string(b)
		}
	}

	go func() {
		if err := r.db.Create(&row).Error; err != nil {
			zap.S().Warnw("failed to record fact check", "job", job.ID, "error", err)
		}
	}()
}

// VerdictCounts aggregates stored verdicts for the stats endpoint.
func (r *Recorder) VerdictCounts() (map[string]int64, error) {
	type row struct {
		Verdict string
		N       int64
	}
	var rows []row
	err := r.db.Model(&FactCheck{}).
		Select("verdict, count(*) as n").
		Where("verdict <> ''").
		Group("verdict").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Verdict] = r.N
	}
	return counts, nil
}
