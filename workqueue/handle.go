package workqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// request is one submitted unit of work sitting in the pool's priority
// queue or running under a worker.
type request struct {
	mu          sync.Mutex
	label       string
	sourceURLs  []string
	priority    Priority
	fn          func(ctx context.Context) (interface{}, error)
	done        chan struct{}
	finished    bool
	result      interface{}
	err         error
	awaitedOnce bool

	// heap bookkeeping
	index int
	seq   int64
}

// Handle is a reprioritizable, cancellable promise for the result of one
// submitted oracle request (spec.md §4.8's "work handle").
type Handle struct {
	pool *Pool
	req  *request
}

// Done returns a channel that is closed once the request has a result (a
// success, a task error, or a timeout fault).
func (h *Handle) Done() <-chan struct{} { return h.req.done }

// Result returns the completed value and error. It must only be called
// after Done() has been observed closed; use GetAndReport for a
// bounded, reprioritizing wait instead of calling this directly.
func (h *Handle) Result() (interface{}, error) {
	<-h.req.done
	h.req.mu.Lock()
	defer h.req.mu.Unlock()
	return h.req.result, h.req.err
}

// Priority returns the request's current priority.
func (h *Handle) Priority() Priority {
	h.req.mu.Lock()
	defer h.req.mu.Unlock()
	return h.req.priority
}

// Reprioritize unconditionally sets the request's priority and, if it is
// still pending in the queue, re-sinks it to preserve heap ordering.
func (h *Handle) Reprioritize(p Priority) {
	h.pool.reprioritize(h.req, p, false)
}

// TryReprioritize sets the request's priority to p; when onlyHigher is
// true, it is a no-op unless p is numerically lower (i.e. a higher
// priority) than the current one, since priority values are ordered with
// BlockingWork (1) the most urgent and BackgroundWork (10) the least.
// Returns whether the priority changed.
func (h *Handle) TryReprioritize(onlyHigher bool, p Priority) bool {
	return h.pool.reprioritize(h.req, p, onlyHigher)
}

// SourceURLs returns the source URLs the request was submitted against,
// used to render a detailed timeout error (spec.md §4.8's GetAndReport).
func (h *Handle) SourceURLs() []string { return h.req.sourceURLs }

// TimeoutError is returned by GetAndReport when a blocking wait exceeds
// its budget. The first timeout on a handle is detailed; a later timeout
// on the same handle is terse (spec.md §4.8).
type TimeoutError struct {
	Label      string
	SourceURLs []string
	Repeated   bool
}

func (e *TimeoutError) Error() string {
	if e.Repeated {
		return fmt.Sprintf("timed out waiting for %s: not waiting again", e.Label)
	}
	return fmt.Sprintf("timed out waiting for %s (sources: %s)", e.Label, strings.Join(e.SourceURLs, ", "))
}
