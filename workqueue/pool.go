package workqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWorkers is the worker count used when PAKET_RESOLVER_WORKERS is
// unset or invalid (spec.md §6).
const DefaultWorkers = 6

// DefaultTaskTimeout is the blocking-wait budget used when
// PAKET_RESOLVER_TASK_TIMEOUT is unset or invalid (spec.md §6).
const DefaultTaskTimeout = 180 * time.Second

// softDeadline is the grace period a running task gets after the pool's
// cancellation token fires before its context is cancelled (spec.md §4.8,
// §5).
const softDeadline = 500 * time.Millisecond

// hardDeadline is the grace period after that cancellation before the
// pool gives up waiting on the task and reports a timeout fault, letting
// the task keep running in the background (spec.md §4.8, §5).
const hardDeadline = 1 * time.Second

// Pool is a priority-ordered cooperative request pool with a bounded
// worker count, dynamic reprioritization, cancellation, and per-request
// timeout (spec.md §4.8).
type Pool struct {
	mu      sync.Mutex
	pending requestHeap
	waiters []chan *request
	nextSeq int64

	workers int
	log     *logrus.Logger

	wg sync.WaitGroup
}

// NewPool builds a Pool with the given worker count. A non-positive count
// falls back to DefaultWorkers. log may be nil, in which case a fresh
// logrus.Logger is created, matching the teacher's NewSolver(sm, l) nil
// handling.
func NewPool(workers int, log *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pool{workers: workers, log: log}
}

// Start launches the worker goroutines; they run until ctx is cancelled.
// Start returns immediately; call Wait to block until all workers exit.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx)
	}
}

// Wait blocks until every worker goroutine has exited.
func (p *Pool) Wait() { p.wg.Wait() }

// Submit enqueues a unit of work at the given priority. If a worker is
// currently parked waiting for work, the request is handed to it directly
// (spec.md §4.8's add-work); otherwise it is pushed onto the priority
// queue for the next free worker.
func (p *Pool) Submit(label string, priority Priority, sourceURLs []string, fn func(context.Context) (interface{}, error)) *Handle {
	r := &request{
		label:      label,
		sourceURLs: sourceURLs,
		priority:   priority,
		fn:         fn,
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	r.seq = p.nextSeq
	p.nextSeq++

	if n := len(p.waiters); n > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		w <- r
		return &Handle{pool: p, req: r}
	}

	heap.Push(&p.pending, r)
	p.mu.Unlock()

	return &Handle{pool: p, req: r}
}

// reprioritize implements both Handle.Reprioritize and
// Handle.TryReprioritize.
func (p *Pool) reprioritize(r *request, newPrio Priority, onlyHigher bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	r.mu.Lock()
	cur := r.priority
	if onlyHigher && newPrio >= cur {
		r.mu.Unlock()
		return false
	}
	r.priority = newPrio
	r.mu.Unlock()

	if r.index >= 0 && r.index < len(p.pending) && p.pending[r.index] == r {
		heap.Fix(&p.pending, r.index)
	}
	return true
}

// getWork is the cancellation-aware dequeue (spec.md §4.8's get-work).
func (p *Pool) getWork(ctx context.Context) (*request, bool) {
	p.mu.Lock()
	if len(p.pending) > 0 {
		r := heap.Pop(&p.pending).(*request)
		p.mu.Unlock()
		return r, true
	}

	w := make(chan *request, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case r := <-w:
		return r, true
	case <-ctx.Done():
		p.removeWaiter(w)
		// A request may have raced in right as we were cancelling.
		select {
		case r := <-w:
			return r, true
		default:
			return nil, false
		}
	}
}

func (p *Pool) removeWaiter(w chan *request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.waiters {
		if c == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for {
		r, ok := p.getWork(ctx)
		if !ok {
			return
		}
		p.execute(ctx, r)
	}
}

// execute runs one request's task under the cancellation discipline of
// spec.md §4.8/§5: a soft 500ms deadline once the pool-wide context is
// cancelled, followed by a hard 1s deadline after which the wrapper gives
// up waiting (while the task itself may continue running detached).
func (p *Pool) execute(ctx context.Context, r *request) {
	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		result, err := r.fn(taskCtx)
		r.mu.Lock()
		if !r.finished {
			r.finished = true
			r.result, r.err = result, err
			close(r.done)
		}
		r.mu.Unlock()
	}()

	select {
	case <-runDone:
		return
	case <-ctx.Done():
	}

	softTimer := time.NewTimer(softDeadline)
	defer softTimer.Stop()
	select {
	case <-runDone:
		return
	case <-softTimer.C:
		taskCancel()
	}

	hardTimer := time.NewTimer(hardDeadline)
	defer hardTimer.Stop()
	select {
	case <-runDone:
		return
	case <-hardTimer.C:
		r.mu.Lock()
		if !r.finished {
			r.finished = true
			r.err = &TimeoutError{Label: r.label, SourceURLs: r.sourceURLs}
			close(r.done)
		}
		r.mu.Unlock()
		if p.log.Level >= logrus.WarnLevel {
			p.log.WithFields(logrus.Fields{"label": r.label}).Warn("work queue: task exceeded hard deadline after cancellation; continuing detached")
		}
	}
}

// GetAndReport is the resolver-side blocking consume helper of spec.md
// §4.8: if the handle is already done, its result is returned immediately;
// otherwise the request's priority is bumped to BlockingWork and the
// caller waits up to timeout. A first timeout reports a detailed error
// enumerating source URLs; a repeated timeout on the same handle is terse.
func (p *Pool) GetAndReport(ctx context.Context, h *Handle, timeout time.Duration) (interface{}, error) {
	select {
	case <-h.req.done:
		return h.Result()
	default:
	}

	h.Reprioritize(BlockingWork)

	select {
	case <-h.req.done:
		return h.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		h.req.mu.Lock()
		repeated := h.req.awaitedOnce
		h.req.awaitedOnce = true
		h.req.mu.Unlock()
		return nil, &TimeoutError{Label: h.req.label, SourceURLs: h.req.sourceURLs, Repeated: repeated}
	}
}
