package receipt

import "sync"

// ProgressTracker exposes the state of the in-flight recognition call for UI
// polling. It has exactly one writer (the in-flight call) and resets to idle
// on completion or failure.
type ProgressTracker struct {
	mu       sync.Mutex
	running  bool
	fraction float64
}

// Start marks an operation as in flight at zero progress.
func (t *ProgressTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.fraction = 0
}

// Update records the current completion fraction, clamped to [0,1].
func (t *ProgressTracker) Update(fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	t.fraction = fraction
}

// Finish resets the tracker to idle, whether the operation succeeded or not.
func (t *ProgressTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.fraction = 0
}

// Snapshot returns whether a call is in flight and its completion fraction.
func (t *ProgressTracker) Snapshot() (running bool, fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running, t.fraction
}
