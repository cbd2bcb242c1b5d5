package dispatch

import "sync/atomic"

// Readiness flips once startup recovery has finished. The health endpoint
// reports not-ready until then.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) MarkReady() {
	r.ready.Store(true)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}
