package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	maxPendingLinks = 64
	maxRecentLinks  = 32
)

// StartupEvent captures startup timing.
type StartupEvent struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// LinkEvent captures the time from a deep link reaching the process to the
// window being pointed at its target.
type LinkEvent struct {
	TraceID        string
	ReceivedAt     time.Time
	AppliedAt      time.Time
	TimeToNavigate time.Duration
}

// Recorder tracks startup and deep-link latency in memory. Links that are
// received but never applied (dropped, ignored) are evicted oldest first.
type Recorder struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	pending map[string]time.Time
	recent  []LinkEvent
	startup StartupEvent
}

// NewRecorder creates a telemetry recorder on the wall clock.
func NewRecorder() *Recorder {
	return NewRecorderWithClock(clockwork.NewRealClock())
}

// NewRecorderWithClock creates a recorder that reads time from clock.
func NewRecorderWithClock(clock clockwork.Clock) *Recorder {
	return &Recorder{
		clock:   clock,
		pending: make(map[string]time.Time),
	}
}

// MarkStartupComplete computes startup duration from a provided start time.
func (r *Recorder) MarkStartupComplete(startedAt time.Time) StartupEvent {
	completedAt := r.clock.Now()
	if completedAt.Before(startedAt) {
		completedAt = startedAt
	}
	event := StartupEvent{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
	}

	r.mu.Lock()
	r.startup = event
	r.mu.Unlock()
	return event
}

// Startup returns the last recorded startup event.
func (r *Recorder) Startup() StartupEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startup
}

// MarkLinkReceived stores the arrival time of a link.
func (r *Recorder) MarkLinkReceived(traceID string, receivedAt time.Time) error {
	if traceID == "" {
		return fmt.Errorf("trace ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[traceID]; !exists && len(r.pending) >= maxPendingLinks {
		r.evictOldestLocked()
	}
	r.pending[traceID] = receivedAt
	return nil
}

// MarkLinkApplied closes a trace. A second call for the same trace is a no-op.
func (r *Recorder) MarkLinkApplied(traceID string, appliedAt time.Time) error {
	_, _, err := r.markApplied(traceID, appliedAt)
	return err
}

// markApplied reports whether this call produced a new event.
func (r *Recorder) markApplied(traceID string, appliedAt time.Time) (LinkEvent, bool, error) {
	if traceID == "" {
		return LinkEvent{}, false, fmt.Errorf("trace ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	receivedAt, ok := r.pending[traceID]
	if !ok {
		for _, event := range r.recent {
			if event.TraceID == traceID {
				return LinkEvent{}, false, nil
			}
		}
		return LinkEvent{}, false, fmt.Errorf("link trace not found")
	}
	if appliedAt.Before(receivedAt) {
		appliedAt = receivedAt
	}
	delete(r.pending, traceID)

	event := LinkEvent{
		TraceID:        traceID,
		ReceivedAt:     receivedAt,
		AppliedAt:      appliedAt,
		TimeToNavigate: appliedAt.Sub(receivedAt),
	}
	r.recent = append(r.recent, event)
	if len(r.recent) > maxRecentLinks {
		r.recent = r.recent[len(r.recent)-maxRecentLinks:]
	}
	return event, true, nil
}

// RecentLinks returns completed link traces, oldest first.
func (r *Recorder) RecentLinks() []LinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LinkEvent, len(r.recent))
	copy(out, r.recent)
	return out
}

// PendingLinks is the number of traces received but not yet applied.
func (r *Recorder) PendingLinks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Recorder) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, at := range r.pending {
		if oldestID == "" || at.Before(oldest) {
			oldestID, oldest = id, at
		}
	}
	delete(r.pending, oldestID)
}
