package telemetry

import "sync"

// ReplaySource is a Source backed by a fixed, in-memory list of samples.
// It exists for local development and tests: it lets cmd/ingest-worker
// exercise the polling/retry path without a live feed.
type ReplaySource struct {
	mu      sync.Mutex
	samples []Sample
	polled  bool
}

// NewReplaySource returns a Source that yields samples once, on the
// first Poll call, then returns no further samples.
func NewReplaySource(samples []Sample) *ReplaySource {
	return &ReplaySource{samples: samples}
}

func (r *ReplaySource) Poll() ([]Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.polled {
		return nil, nil
	}
	r.polled = true
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out, nil
}

func (r *ReplaySource) Close() error { return nil }
