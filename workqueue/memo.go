package workqueue

import "sync"

// RequestMemo is the get-or-create cache of in-flight and completed
// request handles, keyed by (sources, name[, version]), that the
// prefetch pipeline and the driver share so a given oracle call is never
// submitted twice concurrently (spec.md §4.8). It is read and written
// from both the driver and worker goroutines, so — unlike bridge.go's
// single-threaded vlists cache it is grounded on — it guards its map with
// a mutex.
type RequestMemo struct {
	mu sync.Mutex
	m  map[string]*Handle
}

// NewRequestMemo builds an empty memo.
func NewRequestMemo() *RequestMemo {
	return &RequestMemo{m: make(map[string]*Handle)}
}

// GetOrCreate returns the cached handle for key, calling create to submit
// a new request only if no handle is cached yet.
func (rm *RequestMemo) GetOrCreate(key string, create func() *Handle) *Handle {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if h, ok := rm.m[key]; ok {
		return h
	}
	h := create()
	rm.m[key] = h
	return h
}
