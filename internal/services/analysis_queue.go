package services

// AnalysisQueue bounds how many pipeline runs may execute at once. The
// upstream trigger (one capture per user selection) makes concurrent runs
// rare, but the bound makes duplicate in-flight API calls and memory-store
// contention structurally impossible instead of accidentally so.
type AnalysisQueue struct {
	slots chan struct{}
}

// NewAnalysisQueue creates a queue admitting up to capacity concurrent runs.
// Capacities below one collapse to single-flight.
func NewAnalysisQueue(capacity int) *AnalysisQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &AnalysisQueue{
		slots: make(chan struct{}, capacity),
	}
}

// TryAcquire claims a run slot without blocking. Callers that get false must
// shed the request instead of queueing it.
func (q *AnalysisQueue) TryAcquire() bool {
	select {
	case q.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot claimed by TryAcquire.
func (q *AnalysisQueue) Release() {
	select {
	case <-q.slots:
	default:
	}
}

// InFlight reports how many runs currently hold a slot.
func (q *AnalysisQueue) InFlight() int {
	return len(q.slots)
}
