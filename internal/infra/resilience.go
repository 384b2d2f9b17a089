package infra

import (
	"context"
	"sync"
)

// RequestDeduplicator coalesces identical in-flight requests. When several
// page imports for the same destination wiki race to resolve its namespace
// catalog, only one siteinfo query is issued and all waiters share the
// result.
type RequestDeduplicator struct {
	mu       sync.Mutex
	inflight map[string]*inflightRequest
}

type inflightRequest struct {
	done   chan struct{}
	result interface{}
	err    error
}

// NewRequestDeduplicator creates a new request deduplicator.
func NewRequestDeduplicator() *RequestDeduplicator {
	return &RequestDeduplicator{
		inflight: make(map[string]*inflightRequest),
	}
}

// Do executes fn only if no identical request (by key) is in flight.
// If a request with the same key is already running, waits for its result.
// Returns the result, whether it was shared from another request, and any error.
func (d *RequestDeduplicator) Do(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, bool, error) {
	d.mu.Lock()

	if req, ok := d.inflight[key]; ok {
		d.mu.Unlock()
		select {
		case <-req.done:
			return req.result, true, req.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	req := &inflightRequest{done: make(chan struct{})}
	d.inflight[key] = req
	d.mu.Unlock()

	req.result, req.err = fn()
	close(req.done)

	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()

	return req.result, false, req.err
}

// Stats returns the current number of in-flight requests.
func (d *RequestDeduplicator) Stats() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
