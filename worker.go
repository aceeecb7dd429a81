package qobs

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Worker processes jobs
type Worker struct {
	pool *Q
	jobs chan Job
}

func (w *Worker) run() {
	for {
		select {
		case <-w.pool.ctx.Done():
			return
		case w.pool.workers <- w.jobs:
		}

		select {
		case <-w.pool.ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

/*
process runs a job under the pool's job timeout and stores exactly one
result for it. A job that overruns keeps its goroutine until it returns,
but its late result is discarded.
*/
func (w *Worker) process(job Job) {
	start := job.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	out := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- Result{Error: fmt.Errorf("job %s: %v: %w", job.ID, r, ErrJobPanicked)}
			}
		}()
		value, err := job.Fn()
		out <- Result{Value: value, Error: err}
	}()

	var res Result
	select {
	case res = <-out:
	case <-time.After(w.pool.getJobTimeout()):
		log.Warn("job timed out", "job", job.ID)
		res.Error = fmt.Errorf("job %s: %w", job.ID, ErrJobTimeout)
	case <-w.pool.ctx.Done():
		res.Error = fmt.Errorf("job %s: %w", job.ID, ErrPoolClosed)
	}

	w.pool.metrics.recordJobExecution(start, res.Error == nil)
	w.pool.space.Store(job.ID, res.Value, res.Error, job.TTL)
}
