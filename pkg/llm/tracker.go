package llm

import "sync"

// FailureTracker counts consecutive failures per backend. Once a backend
// reaches the threshold it stays exhausted; later successes do not revive
// it. Safe for concurrent use.
type FailureTracker struct {
	mu        sync.Mutex
	threshold int
	counts    map[string]int
	exhausted map[string]bool
}

// NewFailureTracker creates a tracker. Thresholds below one are treated as one.
func NewFailureTracker(threshold int) *FailureTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &FailureTracker{
		threshold: threshold,
		counts:    make(map[string]int),
		exhausted: make(map[string]bool),
	}
}

// Exhausted reports whether name has crossed the threshold.
func (t *FailureTracker) Exhausted(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exhausted[name]
}

// RecordFailure counts a failure and reports whether name is now exhausted.
func (t *FailureTracker) RecordFailure(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[name]++
	if t.counts[name] >= t.threshold {
		t.exhausted[name] = true
	}
	return t.exhausted[name]
}

// RecordSuccess clears the consecutive count of a live backend.
func (t *FailureTracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.exhausted[name] {
		t.counts[name] = 0
	}
}

// Failures returns the current consecutive failure count.
func (t *FailureTracker) Failures(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[name]
}

// Reset forgets all counts.
func (t *FailureTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]int)
	t.exhausted = make(map[string]bool)
}
