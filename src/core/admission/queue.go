package admission

import (
	"context"

	"github.com/ava-verify/ava/src/core/types"
)

// Queue is the bounded admission buffer between the gate and the worker
// pool. Enqueue never blocks; a full queue sheds load at admission.
type Queue struct {
	jobs chan *types.Job
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{jobs: make(chan *types.Job, size)}
}

// TryEnqueue adds a job if capacity allows.
func (q *Queue) TryEnqueue(job *types.Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Dequeue blocks until a job is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (*types.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) Len() int { return len(q.jobs) }
func (q *Queue) Cap() int { return cap(q.jobs) }
