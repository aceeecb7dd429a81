package qobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/errnie"
)

// Q is the worker pool the estimator fans chunks of work out to.
type Q struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    chan chan Job
	jobs       chan Job
	space      *resultSpace
	metrics    *Metrics
	workerMu   sync.Mutex
	workerList []*Worker
	config     *Config

	// closeMu fences Schedule off from Close so no job is queued after drain.
	closeMu sync.RWMutex
	closed  bool
}

// NewQ starts a pool with a fixed number of workers.
func NewQ(ctx context.Context, workers int, config *Config) *Q {
	if config == nil {
		config = NewConfig()
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	q := &Q{
		ctx:        ctx,
		cancel:     cancel,
		workerList: make([]*Worker, 0, workers),
		jobs:       make(chan Job, workers*10),
		workers:    make(chan chan Job, workers),
		space:      newResultSpace(sweepInterval(config.ResultTTL)),
		metrics:    NewMetrics(),
		config:     config,
	}

	for i := 0; i < workers; i++ {
		q.startWorker()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.manage()
	}()

	errnie.Info("NewQ - workers %d, scheduling timeout %v", workers, q.getSchedulingTimeout())
	return q
}

// Pool management
func (q *Q) manage() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			// Busy workers are expected; the job timeout bounds the wait.
			select {
			case <-q.ctx.Done():
				q.space.Store(job.ID, nil, fmt.Errorf("job %s: %w", job.ID, ErrPoolClosed), job.TTL)
				return
			case workerChan := <-q.workers:
				select {
				case workerChan <- job:
				case <-q.ctx.Done():
					q.space.Store(job.ID, nil, fmt.Errorf("job %s: %w", job.ID, ErrPoolClosed), job.TTL)
					return
				}
			}
		}
	}
}

/*
Schedule queues fn and returns a channel that delivers its result. The
channel always receives exactly one Result, including when the pool is
closed or the queue stays full past the scheduling timeout. The scheduling
timeout only covers queueing; a queued job waits for a worker as long as
the pool is open.
*/
func (q *Q) Schedule(id string, fn func() (any, error), opts ...JobOption) chan Result {
	job := Job{
		ID:        id,
		Fn:        fn,
		TTL:       q.config.ResultTTL,
		StartTime: time.Now(),
	}

	for _, opt := range opts {
		opt(&job)
	}

	q.closeMu.RLock()
	defer q.closeMu.RUnlock()

	if q.closed || q.ctx.Err() != nil {
		return failed(fmt.Errorf("job %s: %w", id, ErrPoolClosed))
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.getSchedulingTimeout())
	defer cancel()

	// Register before queueing so a fast job cannot finish unobserved.
	ch := q.space.Await(id)

	select {
	case q.jobs <- job:
		log.Debug("scheduled job", "job", id)
		return ch
	case <-ctx.Done():
		q.metrics.recordSchedulingFailure()
		err := ErrSchedulingTimeout
		if q.ctx.Err() != nil {
			err = ErrPoolClosed
		}
		if err == ErrSchedulingTimeout {
			log.Warn("job queue full", "job", id)
		}
		q.space.Store(id, nil, fmt.Errorf("job %s: %w", id, err), job.TTL)
		return ch
	}
}

// Metrics exposes the pool's execution metrics.
func (q *Q) Metrics() *Metrics {
	return q.metrics
}

// Helper functions
func (q *Q) startWorker() {
	worker := &Worker{
		pool: q,
		jobs: make(chan Job),
	}
	q.workerMu.Lock()
	q.workerList = append(q.workerList, worker)
	q.workerMu.Unlock()

	q.metrics.mu.Lock()
	q.metrics.WorkerCount++
	q.metrics.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		worker.run()
	}()
}

func (q *Q) getSchedulingTimeout() time.Duration {
	if q.config != nil && q.config.SchedulingTimeout > 0 {
		return q.config.SchedulingTimeout
	}
	return 5 * time.Second
}

func (q *Q) getJobTimeout() time.Duration {
	if q.config != nil && q.config.JobTimeout > 0 {
		return q.config.JobTimeout
	}
	return 30 * time.Second
}

// Close stops the workers and waits for them to exit.
func (q *Q) Close() {
	if q == nil {
		return
	}

	if q.cancel != nil {
		q.cancel()
	}

	// Waits out any Schedule already past its closed check.
	q.closeMu.Lock()
	q.closed = true
	q.closeMu.Unlock()

	q.wg.Wait()
	q.drain()

	q.workerMu.Lock()
	q.workerList = nil
	q.workerMu.Unlock()

	q.space.Close()
	errnie.Info("Q closed - %d jobs processed", q.metrics.Snapshot().JobCount)
}

// drain fails any job still queued once the manager has stopped.
func (q *Q) drain() {
	for {
		select {
		case job := <-q.jobs:
			q.space.Store(job.ID, nil, fmt.Errorf("job %s: %w", job.ID, ErrPoolClosed), job.TTL)
		default:
			return
		}
	}
}

func failed(err error) chan Result {
	ch := make(chan Result, 1)
	ch <- Result{Error: err, CreatedAt: time.Now()}
	close(ch)
	return ch
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > time.Minute {
		return time.Minute
	}
	return ttl
}
