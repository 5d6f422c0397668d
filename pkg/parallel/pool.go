package parallel

import (
	"context"
	"sync"
	"time"

	"github.com/protodb/protodb/pkg/protolog"
)

// Task is one unit of work a WorkStealingPool executes: it processes up
// to its own chosen chunk size of records and reports how many it
// actually processed, or an error that aborts the scan (original_source
// silently swallows task exceptions to avoid deadlocking the pool; this
// port instead surfaces the first error through Run's return value,
// following the teacher's explicit-error-return convention).
type Task func(ctx context.Context) (processed int, err error)

// chanMutex is a buffered-channel binary semaphore supporting a timed
// try-lock, which sync.Mutex does not expose (its TryLock is
// non-blocking only, with no deadline).
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) Lock() { <-m }

func (m chanMutex) Unlock() { m <- struct{}{} }

func (m chanMutex) TryLockTimeout(d time.Duration) bool {
	select {
	case <-m:
		return true
	case <-time.After(d):
		return false
	}
}

// deque is one worker's local task queue: push/pop from the bottom (LIFO,
// cheap, uncontended in the common case), steal from the top (FIFO,
// contended only when a peer is idle).
type deque struct {
	mu    chanMutex
	tasks []Task
}

func newDeque() *deque {
	return &deque{mu: newChanMutex()}
}

func (d *deque) pushBottom(t Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

func (d *deque) popBottom() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	if n == 0 {
		return nil, false
	}
	t := d.tasks[n-1]
	d.tasks = d.tasks[:n-1]
	return t, true
}

// popTop steals the oldest queued task, waiting up to timeout for the
// victim's lock before giving up. contended reports whether the lock
// itself could not be acquired in time, as distinct from an acquired but
// empty queue, so callers can tell steal contention apart from a
// genuinely idle victim.
func (d *deque) popTop(timeout time.Duration) (task Task, ok bool, contended bool) {
	if !d.mu.TryLockTimeout(timeout) {
		return nil, false, true
	}
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false, false
	}
	t := d.tasks[0]
	d.tasks = d.tasks[1:]
	return t, true, false
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// WorkerMetrics accumulates one worker's lifetime counters: chunks and
// records processed, attempted and successful steals, and steal attempts
// that timed out waiting for a victim's lock. Queue depth is not tracked.
type WorkerMetrics struct {
	WorkerID          int
	ChunksProcessed   int
	RecordsProcessed  int
	StealsAttempted   int
	StealsSuccessful  int
	LockContentionHit int
}

// WorkStealingPool runs Tasks across fixed-size per-worker deques,
// stealing from a round-robin victim when a worker's own queue runs dry
// (grounded on original_source/proto_db/parallel.py's WorkStealingPool).
type WorkStealingPool struct {
	workers []*deque
	metrics []*WorkerMetrics
	backoff      time.Duration
	stealTimeout time.Duration
}

// NewWorkStealingPool builds a pool with n workers (n < 1 is clamped to 1).
func NewWorkStealingPool(n int) *WorkStealingPool {
	if n < 1 {
		n = 1
	}
	p := &WorkStealingPool{
		workers: make([]*deque, n),
		metrics: make([]*WorkerMetrics, n),
		backoff:      500 * time.Microsecond,
		stealTimeout: time.Millisecond,
	}
	for i := range p.workers {
		p.workers[i] = newDeque()
		p.metrics[i] = &WorkerMetrics{WorkerID: i}
	}
	return p
}

// Metrics returns a snapshot of every worker's counters, in worker-id order.
func (p *WorkStealingPool) Metrics() []WorkerMetrics {
	out := make([]WorkerMetrics, len(p.metrics))
	for i, m := range p.metrics {
		out[i] = *m
	}
	return out
}

// SubmitGlobal seeds tasks round-robin across every worker's local queue.
func (p *WorkStealingPool) SubmitGlobal(tasks []Task) {
	for i, t := range tasks {
		p.workers[i%len(p.workers)].pushBottom(t)
	}
}

// Run launches every worker goroutine and blocks until every local queue
// drains or ctx is cancelled, returning the first task error encountered
// (if any). Workers stop pulling new work as soon as ctx is done, but a
// task already in flight is allowed to finish.
func (p *WorkStealingPool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for wid := range p.workers {
		wg.Add(1)
		go func(wid int) {
			defer wg.Done()
			p.workerLoop(ctx, wid, func(err error) {
				once.Do(func() { firstErr = err })
			})
		}(wid)
	}
	wg.Wait()
	return firstErr
}

func (p *WorkStealingPool) workerLoop(ctx context.Context, wid int, reportErr func(error)) {
	own := p.workers[wid]
	metrics := p.metrics[wid]
	n := len(p.workers)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok := own.popBottom()
		if !ok {
			task, ok = p.steal(wid, n, metrics)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
			if p.allEmpty() {
				return
			}
			continue
		}

		processed, err := task(ctx)
		metrics.ChunksProcessed++
		metrics.RecordsProcessed += processed
		if err != nil {
			protolog.Logger.Error().Err(err).Int("worker_id", wid).Msg("parallel scan task failed")
			reportErr(err)
			return
		}
	}
}

func (p *WorkStealingPool) steal(wid, n int, metrics *WorkerMetrics) (Task, bool) {
	metrics.StealsAttempted++
	start := (wid + 1) % n
	for off := 0; off < n-1; off++ {
		vid := (start + off) % n
		task, ok, contended := p.workers[vid].popTop(p.stealTimeout)
		if contended {
			metrics.LockContentionHit++
			continue
		}
		if !ok {
			continue
		}
		metrics.StealsSuccessful++
		return task, true
	}
	return nil, false
}

func (p *WorkStealingPool) allEmpty() bool {
	for _, w := range p.workers {
		if w.len() > 0 {
			return false
		}
	}
	return true
}
