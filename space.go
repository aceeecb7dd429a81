package qobs

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Result is the outcome of a job, delivered through an Await channel.
type Result struct {
	Value     any
	Error     error
	CreatedAt time.Time
	TTL       time.Duration
}

/*
resultSpace holds job results until they expire and hands them to anyone
awaiting the job, whether they asked before or after it finished.
*/
type resultSpace struct {
	mu      sync.Mutex
	values  map[string]Result
	waiting map[string][]chan Result
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newResultSpace(sweep time.Duration) *resultSpace {
	rs := &resultSpace{
		values:  make(map[string]Result),
		waiting: make(map[string][]chan Result),
		done:    make(chan struct{}),
	}

	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		rs.cleanup(sweep)
	}()

	return rs
}

// Store records a result and notifies any waiting channels.
func (rs *resultSpace) Store(id string, value any, err error, ttl time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	res := Result{
		Value:     value,
		Error:     err,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
	rs.values[id] = res
	log.Debug("stored result", "job", id, "err", err)

	for _, ch := range rs.waiting[id] {
		ch <- res
		close(ch)
	}
	delete(rs.waiting, id)
}

// Await returns a channel that receives the result once it is available.
func (rs *resultSpace) Await(id string) chan Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ch := make(chan Result, 1)
	if res, ok := rs.values[id]; ok {
		ch <- res
		close(ch)
		return ch
	}

	rs.waiting[id] = append(rs.waiting[id], ch)
	return ch
}

// Forget drops a delivered result ahead of its TTL.
func (rs *resultSpace) Forget(id string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.values, id)
}

func (rs *resultSpace) cleanup(sweep time.Duration) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-rs.done:
			return
		case <-ticker.C:
			rs.mu.Lock()
			rs.cleanupExpiredValues(time.Now())
			rs.mu.Unlock()
		}
	}
}

func (rs *resultSpace) cleanupExpiredValues(now time.Time) {
	for id, res := range rs.values {
		if res.TTL > 0 && now.Sub(res.CreatedAt) > res.TTL {
			delete(rs.values, id)
		}
	}
}

func (rs *resultSpace) Close() {
	rs.once.Do(func() {
		close(rs.done)
	})
	rs.wg.Wait()
}
